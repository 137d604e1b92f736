package sqlite

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mesh-intelligence/arbor/pkg/tree"
	"github.com/mesh-intelligence/arbor/pkg/tree/memstore"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

// groveWith attaches a backend under dir and stores nodes with their ids.
func groveWith(t require.TestingT, dir string, nodes []*types.Node) *Backend {
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{
		Backend:      types.BackendSQLite,
		DataDir:      dir,
		SQLiteConfig: types.SQLiteConfig{SyncStrategy: types.SyncOnClose},
	}))
	tbl, err := b.GetTable(types.TableNodes)
	require.NoError(t, err)
	for _, n := range nodes {
		_, err := tbl.Set(n.NodeID, n)
		require.NoError(t, err)
	}
	return b
}

func nodeIDs(nodes []*types.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.NodeID
	}
	return out
}

func traverser(t *testing.T, nodes ...*types.Node) *tree.Traverser[*types.Node] {
	t.Helper()
	b := groveWith(t, t.TempDir(), nodes)
	t.Cleanup(func() { b.Detach() })
	tr, err := b.Tree()
	require.NoError(t, err)
	return tr
}

func TestTreeFamily(t *testing.T) {
	ctx := context.Background()
	grandparent := &types.Node{NodeID: "1", Name: "Grandparent"}
	parent := &types.Node{NodeID: "2", Name: "Parent", ParentID: "1"}
	child := &types.Node{NodeID: "3", Name: "Child", ParentID: "2"}
	tr := traverser(t, grandparent, parent, child)

	got, err := tr.Ancestors(ctx, child)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, nodeIDs(got))

	got, err = tr.SelfAndAncestors(ctx, child)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, nodeIDs(got))

	got, err = tr.Descendants(ctx, grandparent)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, nodeIDs(got))

	got, err = tr.SelfAndDescendants(ctx, parent)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, nodeIDs(got))

	got, err = tr.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, nodeIDs(got))
	assert.Equal(t, "Grandparent", got[0].Name)

	ok, err := tr.Contains(ctx, tree.AncestorsContains, child, grandparent)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = tr.Contains(ctx, tree.DescendantsContains, child, grandparent)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := tr.Find(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Parent", found.Name)
	_, err = tr.Find(ctx, "9")
	assert.ErrorIs(t, err, tree.ErrRecordNotFound)
}

func TestTreeCycleTerminates(t *testing.T) {
	ctx := context.Background()
	a := &types.Node{NodeID: "a", Name: "a", ParentID: "c"}
	b := &types.Node{NodeID: "b", Name: "b", ParentID: "a"}
	c := &types.Node{NodeID: "c", Name: "c", ParentID: "b"}
	d := &types.Node{NodeID: "d", Name: "d", ParentID: "d"}
	tr := traverser(t, a, b, c, d)

	got, err := tr.SelfAndAncestors(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, nodeIDs(got))

	got, err = tr.SelfAndDescendants(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, nodeIDs(got))

	got, err = tr.SelfAndDescendants(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, nodeIDs(got))

	got, err = tr.Roots(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTreeDeletedAndOrphaned(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	root := &types.Node{NodeID: "r", Name: "root"}
	mid := &types.Node{NodeID: "m", Name: "mid", ParentID: "r"}
	leaf := &types.Node{NodeID: "l", Name: "leaf", ParentID: "m"}
	b := groveWith(t, dir, []*types.Node{root, mid, leaf})
	defer b.Detach()
	tr, err := b.Tree()
	require.NoError(t, err)

	tbl, _ := b.GetTable(types.TableNodes)
	require.NoError(t, tbl.Delete("m"))

	got, err := tr.SelfAndAncestors(ctx, mid)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = tr.SelfAndAncestors(ctx, leaf)
	require.NoError(t, err)
	assert.Equal(t, []string{"l"}, nodeIDs(got))

	got, err = tr.Descendants(ctx, root)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTreeQueryBindsStartID(t *testing.T) {
	ctx := context.Background()
	hostile := &types.Node{NodeID: "x' OR 1=1 --", Name: "hostile"}
	other := &types.Node{NodeID: "y", Name: "other"}
	tr := traverser(t, hostile, other)

	got, err := tr.SelfAndDescendants(ctx, hostile)
	require.NoError(t, err)
	assert.Equal(t, []string{hostile.NodeID}, nodeIDs(got))
}

func TestTreeAfterDetach(t *testing.T) {
	b := groveWith(t, t.TempDir(), nil)
	tr, err := b.Tree()
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	_, err = tr.Roots(context.Background())
	assert.True(t, tree.IsStorageError(err))
	assert.ErrorIs(t, err, types.ErrGroveDetached)
}

func TestTreeCanceledContext(t *testing.T) {
	tr := traverser(t, &types.Node{NodeID: "a", Name: "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Roots(ctx)
	assert.Error(t, err)
}

// TestTreeMatchesMemstore checks that SQLite evaluates every traversal with
// the same members in the same order as the in-memory reference store, on
// forests with and without cycles.
func TestTreeMatchesMemstore(t *testing.T) {
	ctx := context.Background()
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		nodes := make([]*types.Node, n)
		for i := range nodes {
			p := ""
			if pick := rapid.IntRange(-1, n).Draw(t, fmt.Sprintf("parent_%d", i)); pick >= 0 {
				p = fmt.Sprintf("n%02d", pick)
			}
			nodes[i] = &types.Node{NodeID: fmt.Sprintf("n%02d", i), Name: "x", ParentID: p}
		}

		dir, err := os.MkdirTemp("", "arbor-rapid-*")
		require.NoError(t, err)
		defer os.RemoveAll(dir)
		b := groveWith(t, dir, nodes)
		defer b.Detach()

		sqlTree, err := b.Tree()
		require.NoError(t, err)
		memTree, err := tree.New[*types.Node](memstore.New(nodes...))
		require.NoError(t, err)

		wantRoots, err := memTree.Roots(ctx)
		require.NoError(t, err)
		gotRoots, err := sqlTree.Roots(ctx)
		require.NoError(t, err)
		require.Equal(t, nodeIDs(wantRoots), nodeIDs(gotRoots))

		for _, node := range nodes {
			for _, set := range []tree.Set{tree.Ancestors, tree.SelfAndAncestors, tree.Descendants, tree.SelfAndDescendants} {
				want, err := memTree.Collect(ctx, set, node)
				require.NoError(t, err)
				got, err := sqlTree.Collect(ctx, set, node)
				require.NoError(t, err)
				require.Equal(t, nodeIDs(want), nodeIDs(got), "%s of %s", set, node.NodeID)
			}
		}
	})
}
