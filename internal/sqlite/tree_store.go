package sqlite

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/mesh-intelligence/arbor/pkg/tree"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

// findChunk bounds the IN list of one materialization query, keeping well
// under SQLite's bound-variable limit.
const findChunk = 500

// treeStore runs traversal queries against the backend's database.
type treeStore struct {
	backend *Backend
}

var _ tree.Store[*types.Node] = (*treeStore)(nil)

func (s *treeStore) Schema() tree.Schema { return nodesSchema }

func (s *treeStore) Dialect() tree.Dialect { return tree.SQLite }

// QueryIDs executes a built traversal and returns the id column in row order.
func (s *treeStore) QueryIDs(ctx context.Context, q tree.Query) ([]string, error) {
	b := s.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrGroveDetached
	}

	rows, err := b.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindByIDs loads the nodes named by ids in unspecified order.
func (s *treeStore) FindByIDs(ctx context.Context, ids []string) ([]*types.Node, error) {
	b := s.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrGroveDetached
	}

	out := make([]*types.Node, 0, len(ids))
	for start := 0; start < len(ids); start += findChunk {
		end := min(start+findChunk, len(ids))
		query, args, err := sq.Select(nodeColumns...).
			From("nodes").
			Where(sq.Eq{"node_id": ids[start:end]}).
			ToSql()
		if err != nil {
			return nil, err
		}
		rows, err := b.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			n, err := scanNode(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, n)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("materializing nodes: %w", err)
		}
	}
	return out, nil
}
