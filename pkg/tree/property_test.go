package tree_test

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mesh-intelligence/arbor/pkg/tree"
	"github.com/mesh-intelligence/arbor/pkg/tree/memstore"
)

func nodeID(i int) string { return fmt.Sprintf("n%02d", i) }

// forest draws a parent-linked record set. When acyclic is set every parent
// has a lower index than its child; otherwise any record, including the
// record itself, may be drawn as parent.
func forest(t *rapid.T, acyclic bool) []person {
	n := rapid.IntRange(1, 24).Draw(t, "n")
	recs := make([]person, n)
	for i := range recs {
		hi := n - 1
		if acyclic {
			hi = i - 1
		}
		p := ""
		if hi >= 0 {
			if pick := rapid.IntRange(-1, hi).Draw(t, fmt.Sprintf("parent_%d", i)); pick >= 0 {
				p = nodeID(pick)
			}
		}
		recs[i] = person{id: nodeID(i), parent: p, name: nodeID(i)}
	}
	return recs
}

func ids(recs []person) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.id
	}
	return out
}

func TestTraversalProperties(t *testing.T) {
	ctx := context.Background()
	rapid.Check(t, func(t *rapid.T) {
		recs := forest(t, true)
		tr, err := tree.New[person](memstore.New(recs...))
		require.NoError(t, err)

		hasChild := map[string]bool{}
		for _, r := range recs {
			hasChild[r.parent] = true
		}

		for _, r := range recs {
			sa, err := tr.SelfAndAncestors(ctx, r)
			require.NoError(t, err)
			a, err := tr.Ancestors(ctx, r)
			require.NoError(t, err)
			sd, err := tr.SelfAndDescendants(ctx, r)
			require.NoError(t, err)
			d, err := tr.Descendants(ctx, r)
			require.NoError(t, err)

			require.Equal(t, r.id, sa[len(sa)-1].id, "self is last in self_and_ancestors")
			require.Equal(t, r.id, sd[0].id, "self is first in self_and_descendants")
			require.Equal(t, ids(sa[:len(sa)-1]), ids(a))
			require.Equal(t, ids(sd[1:]), ids(d))

			if r.parent == "" {
				require.Empty(t, a)
			} else {
				require.Equal(t, "", sa[0].parent, "ancestor chain starts at a root")
			}
			if !hasChild[r.id] {
				require.Empty(t, d)
			}
			for i := 1; i < len(sa); i++ {
				require.Equal(t, sa[i-1].id, sa[i].parent, "chain is root to self")
			}

			// Inverse relation.
			for _, anc := range a {
				ok, err := tr.Contains(ctx, tree.DescendantsContains, anc, r)
				require.NoError(t, err)
				require.True(t, ok, "%s should be a descendant of %s", r.id, anc.id)
			}
			for _, desc := range d {
				ok, err := tr.Contains(ctx, tree.AncestorsContains, desc, r)
				require.NoError(t, err)
				require.True(t, ok, "%s should be an ancestor of %s", r.id, desc.id)
			}

			again, err := tr.SelfAndDescendants(ctx, r)
			require.NoError(t, err)
			require.Equal(t, ids(sd), ids(again), "traversal is idempotent")
		}

		roots, err := tr.Roots(ctx)
		require.NoError(t, err)
		var want []string
		for _, r := range recs {
			if r.parent == "" {
				want = append(want, r.id)
			}
		}
		slices.Sort(want)
		require.Equal(t, want, ids(roots))
	})
}

func TestCycleSafetyProperty(t *testing.T) {
	ctx := context.Background()
	rapid.Check(t, func(t *rapid.T) {
		recs := forest(t, false)
		tr, err := tree.New[person](memstore.New(recs...))
		require.NoError(t, err)

		for _, r := range recs {
			for _, set := range []tree.Set{tree.SelfAndAncestors, tree.SelfAndDescendants} {
				got, err := tr.Collect(ctx, set, r)
				require.NoError(t, err)
				require.LessOrEqual(t, len(got), len(recs))

				seen := map[string]bool{}
				for _, g := range got {
					require.False(t, seen[g.id], "%s repeated in %s(%s)", g.id, set, r.id)
					seen[g.id] = true
				}
				require.True(t, seen[r.id], "%s missing from its own %s", r.id, set)
			}
		}
	})
}
