package cli

import (
	"fmt"
	"strconv"
	"strings"

	ltree "github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/arbor/pkg/tree"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

// setDocs describes each traversal set for its command help.
var setDocs = map[tree.Set]string{
	tree.Ancestors:          "List the ancestors of a node, root first",
	tree.SelfAndAncestors:   "List a node and its ancestors, root first and the node last",
	tree.Descendants:        "List the subtree below a node in traversal order",
	tree.SelfAndDescendants: "List a node followed by its subtree in traversal order",
}

// withTree attaches the grove and hands fn its traverser.
func (st *state) withTree(fn func(g types.Grove, tr *tree.Traverser[*types.Node]) error) error {
	return st.withGrove(func(g types.Grove) error {
		tr, err := g.Tree()
		if err != nil {
			return sysError(fmt.Errorf("open tree: %w", err))
		}
		return fn(g, tr)
	})
}

func newRootsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "roots",
		Short: "List nodes without a parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withTree(func(_ types.Grove, tr *tree.Traverser[*types.Node]) error {
				roots, err := tr.Roots(cmd.Context())
				if err != nil {
					return err
				}
				return st.printer(cmd).nodes(roots)
			})
		},
	}
}

// newSetCmds returns one command per traversal set, named after the set:
// ancestors, self-and-ancestors, descendants, self-and-descendants.
func newSetCmds(st *state) []*cobra.Command {
	sets := []tree.Set{tree.Ancestors, tree.SelfAndAncestors, tree.Descendants, tree.SelfAndDescendants}
	cmds := make([]*cobra.Command, 0, len(sets))
	for _, set := range sets {
		cmds = append(cmds, &cobra.Command{
			Use:   strings.ReplaceAll(set.String(), "_", "-") + " <id>",
			Short: setDocs[set],
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return st.withTree(func(g types.Grove, tr *tree.Traverser[*types.Node]) error {
					start, err := getNode(g, args[0])
					if err != nil {
						return err
					}
					members, err := tr.Collect(cmd.Context(), set, start)
					if err != nil {
						return err
					}
					return st.printer(cmd).nodes(members)
				})
			},
		})
	}
	return cmds
}

func newContainsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "contains <predicate> <id> <target>",
		Short: "Test whether target is in a traversal set of id",
		Long: `Contains evaluates a membership predicate and prints true or false.

Predicates: ancestors_contains, self_and_ancestors_contains,
descendants_contains, self_and_descendants_contains. Camel case,
kebab case and the "include" and "descendents" spellings are accepted.

Example:
  arbor contains ancestors-contains <child> <grandparent>`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pred, err := tree.ParsePredicate(args[0])
			if err != nil {
				return userError(err)
			}
			return st.withTree(func(g types.Grove, tr *tree.Traverser[*types.Node]) error {
				rec, err := getNode(g, args[1])
				if err != nil {
					return err
				}
				target, err := getNode(g, args[2])
				if err != nil {
					return err
				}
				ok, err := tr.Contains(cmd.Context(), pred, rec, target)
				if err != nil {
					return err
				}
				p := st.printer(cmd)
				if p.json {
					return p.writeJSON(map[string]any{"predicate": pred.String(), "result": ok})
				}
				_, err = fmt.Fprintln(p.w, strconv.FormatBool(ok))
				return err
			})
		},
	}
}

func newTreeCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <id>",
		Short: "Print the subtree below a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withTree(func(g types.Grove, tr *tree.Traverser[*types.Node]) error {
				start, err := getNode(g, args[0])
				if err != nil {
					return err
				}
				members, err := tr.SelfAndDescendants(cmd.Context(), start)
				if err != nil {
					return err
				}
				p := st.printer(cmd)
				switch {
				case p.json:
					return p.nodes(members)
				case p.styled:
					fmt.Fprintln(p.w, styledTree(members).String())
				default:
					for _, d := range depths(members) {
						fmt.Fprintf(p.w, "%s%s\t%s\n", strings.Repeat("  ", d.depth), d.node.Name, d.node.NodeID)
					}
				}
				return nil
			})
		},
	}
}

type depthNode struct {
	node  *types.Node
	depth int
}

// depths assigns each member of a self_and_descendants result its distance
// from the first member. Members arrive in path order, so a parent is always
// seen before its children.
func depths(members []*types.Node) []depthNode {
	level := make(map[string]int, len(members))
	out := make([]depthNode, 0, len(members))
	for i, n := range members {
		d := 0
		if pd, ok := level[n.ParentID]; ok && i > 0 {
			d = pd + 1
		}
		level[n.NodeID] = d
		out = append(out, depthNode{node: n, depth: d})
	}
	return out
}

// styledTree renders members, a self_and_descendants result, as a lipgloss
// tree rooted at the first member.
func styledTree(members []*types.Node) *ltree.Tree {
	if len(members) == 0 {
		return ltree.New()
	}
	label := func(n *types.Node) string {
		return n.Name + " " + muted.Render(n.NodeID)
	}
	branches := make(map[string]*ltree.Tree, len(members))
	root := ltree.Root(label(members[0])).
		Enumerator(ltree.RoundedEnumerator).
		EnumeratorStyle(muted).
		RootStyle(accent)
	branches[members[0].NodeID] = root
	for _, n := range members[1:] {
		b := ltree.Root(label(n))
		branches[n.NodeID] = b
		if parent, ok := branches[n.ParentID]; ok {
			parent.Child(b)
		}
	}
	return root
}
