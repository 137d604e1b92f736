package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/arbor/pkg/tree"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

const dsnEnv = "ARBOR_TEST_POSTGRES_DSN"

// attachTest connects to the database named by ARBOR_TEST_POSTGRES_DSN and
// empties the nodes table. The test is skipped when the variable is unset.
func attachTest(t *testing.T) *Backend {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendPostgres, PostgresDSN: dsn}))
	t.Cleanup(func() { b.Detach() })

	pool, err := b.livePool()
	require.NoError(t, err)
	_, err = pool.Exec(context.Background(), "TRUNCATE nodes")
	require.NoError(t, err)
	return b
}

func TestAttachValidatesConfig(t *testing.T) {
	b := NewBackend()
	assert.ErrorIs(t, b.Attach(types.Config{Backend: types.BackendPostgres}), types.ErrDSNEmpty)
	assert.ErrorIs(t, b.Attach(types.Config{Backend: types.BackendSQLite}), types.ErrBackendUnknown)
	assert.Error(t, b.Attach(types.Config{Backend: types.BackendPostgres, PostgresDSN: "::not a dsn::"}))

	_, err := b.GetTable(types.TableNodes)
	assert.ErrorIs(t, err, types.ErrGroveDetached)
	_, err = b.Tree()
	assert.ErrorIs(t, err, types.ErrGroveDetached)
	assert.NoError(t, b.Detach())
}

func TestNodeFilterSQL(t *testing.T) {
	sel, err := applyNodeFilter(psql.Select("node_id").From("nodes"), types.Filter{"parent_id": "", "limit": 5})
	require.NoError(t, err)
	query, args, err := sel.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT node_id FROM nodes WHERE parent_id IS NULL LIMIT 5", query)
	assert.Empty(t, args)

	sel, err = applyNodeFilter(psql.Select("node_id").From("nodes"), types.Filter{"name": "x"})
	require.NoError(t, err)
	query, args, err = sel.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT node_id FROM nodes WHERE name = $1", query)
	assert.Equal(t, []any{"x"}, args)

	_, err = applyNodeFilter(psql.Select("node_id"), types.Filter{"limit": "5"})
	assert.ErrorIs(t, err, types.ErrInvalidFilter)
}

func TestPostgresNodesCRUD(t *testing.T) {
	b := attachTest(t)
	tbl, err := b.GetTable(types.TableNodes)
	require.NoError(t, err)

	id, err := tbl.Set("", &types.Node{Name: "root"})
	require.NoError(t, err)
	got, err := tbl.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "root", got.(*types.Node).Name)
	created := got.(*types.Node).CreatedAt

	_, err = tbl.Set(id, &types.Node{Name: "renamed"})
	require.NoError(t, err)
	got, err = tbl.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.(*types.Node).Name)
	assert.True(t, created.Equal(got.(*types.Node).CreatedAt))

	roots, err := tbl.Fetch(types.Filter{"parent_id": ""})
	require.NoError(t, err)
	assert.Len(t, roots, 1)

	require.NoError(t, tbl.Delete(id))
	assert.ErrorIs(t, tbl.Delete(id), types.ErrNotFound)
	_, err = tbl.Get(id)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestPostgresTraversals(t *testing.T) {
	ctx := context.Background()
	b := attachTest(t)
	tbl, err := b.GetTable(types.TableNodes)
	require.NoError(t, err)

	nodes := []*types.Node{
		{NodeID: "1", Name: "Grandparent"},
		{NodeID: "2", Name: "Parent", ParentID: "1"},
		{NodeID: "3", Name: "Child", ParentID: "2"},
		{NodeID: "a", Name: "a", ParentID: "c"},
		{NodeID: "b", Name: "b", ParentID: "a"},
		{NodeID: "c", Name: "c", ParentID: "b"},
	}
	for _, n := range nodes {
		_, err := tbl.Set(n.NodeID, n)
		require.NoError(t, err)
	}
	tr, err := b.Tree()
	require.NoError(t, err)

	ids := func(recs []*types.Node) []string {
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.NodeID
		}
		return out
	}

	got, err := tr.SelfAndAncestors(ctx, nodes[2])
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids(got))

	got, err = tr.Descendants(ctx, nodes[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, ids(got))

	got, err = tr.SelfAndAncestors(ctx, nodes[3])
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, ids(got))

	got, err = tr.SelfAndDescendants(ctx, nodes[3])
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))

	got, err = tr.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got))

	ok, err := tr.Contains(ctx, tree.SelfAndDescendantsContains, nodes[1], nodes[2])
	require.NoError(t, err)
	assert.True(t, ok)
}
