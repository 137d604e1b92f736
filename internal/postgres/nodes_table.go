package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesh-intelligence/arbor/pkg/types"
)

var _ types.Table = (*nodesTable)(nil)

type nodesTable struct {
	backend *Backend
}

// scanNode hydrates a row selected with nodeColumns.
func scanNode(row pgx.Row) (*types.Node, error) {
	var (
		n      types.Node
		parent *string
	)
	if err := row.Scan(&n.NodeID, &n.Name, &parent, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if parent != nil {
		n.ParentID = *parent
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return &n, nil
}

func nullableParent(parentID string) any {
	if parentID == "" {
		return nil
	}
	return parentID
}

// livePool returns the pool of an attached backend or ErrGroveDetached.
func (b *Backend) livePool() (*pgxpool.Pool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrGroveDetached
	}
	return b.pool, nil
}

func getNode(ctx context.Context, pool *pgxpool.Pool, id string) (*types.Node, error) {
	query, args, err := psql.Select(nodeColumns...).From("nodes").Where(sq.Eq{"node_id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	n, err := scanNode(pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting node %s: %w", id, err)
	}
	return n, nil
}

func queryNodes(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) ([]*types.Node, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*types.Node, error) {
		return scanNode(row)
	})
}

// Get retrieves a node by ID.
func (nt *nodesTable) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	pool, err := nt.backend.livePool()
	if err != nil {
		return nil, err
	}
	n, err := getNode(context.Background(), pool, id)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Set creates or updates a node in a single upsert. created_at is kept on
// conflict; updated_at is always refreshed.
func (nt *nodesTable) Set(id string, data any) (string, error) {
	node, ok := data.(*types.Node)
	if !ok || node == nil {
		return "", types.ErrInvalidData
	}
	if id != "" {
		node.NodeID = id
	}
	if err := node.Validate(); err != nil {
		return "", err
	}
	pool, err := nt.backend.livePool()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if node.NodeID == "" {
		newID, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generating UUID v7: %w", err)
		}
		node.NodeID = newID.String()
	}
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	node.UpdatedAt = now

	query, args, err := psql.Insert("nodes").
		Columns(nodeColumns...).
		Values(node.NodeID, node.Name, nullableParent(node.ParentID), node.CreatedAt, node.UpdatedAt).
		Suffix("ON CONFLICT (node_id) DO UPDATE SET name = EXCLUDED.name, parent_id = EXCLUDED.parent_id, updated_at = EXCLUDED.updated_at RETURNING created_at").
		ToSql()
	if err != nil {
		return "", err
	}
	var created time.Time
	if err := pool.QueryRow(context.Background(), query, args...).Scan(&created); err != nil {
		return "", fmt.Errorf("persisting node: %w", err)
	}
	node.CreatedAt = created.UTC()
	return node.NodeID, nil
}

// Delete removes a node. Its children keep their parent_id.
func (nt *nodesTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	pool, err := nt.backend.livePool()
	if err != nil {
		return err
	}
	query, args, err := psql.Delete("nodes").Where(sq.Eq{"node_id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := pool.Exec(context.Background(), query, args...)
	if err != nil {
		return fmt.Errorf("deleting node %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// Fetch returns nodes matching filter, ordered by node_id.
func (nt *nodesTable) Fetch(filter types.Filter) ([]any, error) {
	pool, err := nt.backend.livePool()
	if err != nil {
		return nil, err
	}
	sel, err := applyNodeFilter(psql.Select(nodeColumns...).From("nodes").OrderBy("node_id"), filter)
	if err != nil {
		return nil, err
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}
	nodes, err := queryNodes(context.Background(), pool, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching nodes: %w", err)
	}
	results := make([]any, len(nodes))
	for i, n := range nodes {
		results[i] = n
	}
	return results, nil
}

// applyNodeFilter translates a Filter into WHERE, LIMIT and OFFSET clauses.
func applyNodeFilter(sel sq.SelectBuilder, filter types.Filter) (sq.SelectBuilder, error) {
	for key, val := range filter {
		switch key {
		case "parent_id":
			s, ok := val.(string)
			if !ok {
				return sel, fmt.Errorf("%w: parent_id must be a string", types.ErrInvalidFilter)
			}
			if s == "" {
				sel = sel.Where(sq.Eq{"parent_id": nil})
			} else {
				sel = sel.Where(sq.Eq{"parent_id": s})
			}
		case "name":
			s, ok := val.(string)
			if !ok {
				return sel, fmt.Errorf("%w: name must be a string", types.ErrInvalidFilter)
			}
			sel = sel.Where(sq.Eq{"name": s})
		case "limit", "offset":
			n, ok := val.(int)
			if !ok || n < 0 {
				return sel, fmt.Errorf("%w: %s must be a non-negative int", types.ErrInvalidFilter, key)
			}
			if key == "limit" {
				sel = sel.Limit(uint64(n))
			} else {
				sel = sel.Offset(uint64(n))
			}
		default:
			return sel, fmt.Errorf("%w: unknown key %q", types.ErrInvalidFilter, key)
		}
	}
	return sel, nil
}

