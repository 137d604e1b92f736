package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/mesh-intelligence/arbor/pkg/tree"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

type treeStore struct {
	backend *Backend
}

var _ tree.Store[*types.Node] = (*treeStore)(nil)

func (s *treeStore) Schema() tree.Schema { return nodesSchema }

func (s *treeStore) Dialect() tree.Dialect { return tree.Postgres }

func (s *treeStore) QueryIDs(ctx context.Context, q tree.Query) ([]string, error) {
	pool, err := s.backend.livePool()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// FindByIDs loads nodes with a single = ANY($1) lookup.
func (s *treeStore) FindByIDs(ctx context.Context, ids []string) ([]*types.Node, error) {
	pool, err := s.backend.livePool()
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select(nodeColumns...).
		From("nodes").
		Where(sq.Expr("node_id = ANY(?)", ids)).
		ToSql()
	if err != nil {
		return nil, err
	}
	return queryNodes(ctx, pool, query, args...)
}
