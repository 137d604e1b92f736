package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/arbor/pkg/tree"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

// errCycle is returned by move when the new parent lies in the node's own
// subtree.
var errCycle = errors.New("move would create a cycle")

func newAddCmd(st *state) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a node",
		Long: `Add creates a node with a generated id and prints the id.

Example:
  arbor add projects
  arbor add backend --parent 0193...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withGrove(func(g types.Grove) error {
				tbl, err := nodes(g)
				if err != nil {
					return err
				}
				if parent != "" {
					if _, err := tbl.Get(parent); err != nil {
						return tableErr("parent "+parent, err)
					}
				}
				id, err := tbl.Set("", &types.Node{Name: args[0], ParentID: parent})
				if err != nil {
					return tableErr("add node", err)
				}
				return st.printer(cmd).message("node_id", id, id)
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent node id (default: new root)")
	return cmd
}

func newGetCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withGrove(func(g types.Grove) error {
				n, err := getNode(g, args[0])
				if err != nil {
					return err
				}
				return st.printer(cmd).node(n)
			})
		},
	}
}

func newMoveCmd(st *state) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Re-parent a node",
		Long: `Move links a node under a new parent, or makes it a root when --parent
is omitted. A move that would place a node under its own descendant is
refused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withGrove(func(g types.Grove) error {
				n, err := getNode(g, args[0])
				if err != nil {
					return err
				}
				if parent != "" {
					if err := checkMove(cmd.Context(), g, n, parent); err != nil {
						return err
					}
				}
				tbl, err := nodes(g)
				if err != nil {
					return err
				}
				n.SetParent(parent)
				if _, err := tbl.Set(n.NodeID, n); err != nil {
					return tableErr("move node", err)
				}
				return st.printer(cmd).message("node_id", n.NodeID, "moved "+n.NodeID)
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "new parent node id (default: make root)")
	return cmd
}

// checkMove verifies that parentID exists and is outside n's subtree.
func checkMove(ctx context.Context, g types.Grove, n *types.Node, parentID string) error {
	p, err := getNode(g, parentID)
	if err != nil {
		return err
	}
	tr, err := g.Tree()
	if err != nil {
		return sysError(err)
	}
	inside, err := tr.Contains(ctx, tree.SelfAndDescendantsContains, n, p)
	if err != nil {
		return err
	}
	if inside {
		return userError(fmt.Errorf("%w: %s is in the subtree of %s", errCycle, parentID, n.NodeID))
	}
	return nil
}

func newDeleteCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a node",
		Long:  "Delete removes one node. Its children keep pointing at it and no longer\nappear under any root until they are moved.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withGrove(func(g types.Grove) error {
				tbl, err := nodes(g)
				if err != nil {
					return err
				}
				if err := tbl.Delete(args[0]); err != nil {
					return tableErr("delete node "+args[0], err)
				}
				return st.printer(cmd).message("node_id", args[0], "deleted "+args[0])
			})
		},
	}
}

func newListCmd(st *state) *cobra.Command {
	var (
		parent        string
		name          string
		limit, offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List nodes",
		Long: `List prints nodes ordered by id.

Example:
  arbor list
  arbor list --parent ""        # roots only
  arbor list --parent 0193... --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := types.Filter{}
			if cmd.Flags().Changed("parent") {
				filter["parent_id"] = parent
			}
			if name != "" {
				filter["name"] = name
			}
			if limit > 0 {
				filter["limit"] = limit
			}
			if offset > 0 {
				filter["offset"] = offset
			}
			return st.withGrove(func(g types.Grove) error {
				tbl, err := nodes(g)
				if err != nil {
					return err
				}
				rows, err := tbl.Fetch(filter)
				if err != nil {
					return tableErr("list nodes", err)
				}
				list := make([]*types.Node, len(rows))
				for i, r := range rows {
					list[i] = r.(*types.Node)
				}
				return st.printer(cmd).nodes(list)
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "only children of this node; empty selects roots")
	cmd.Flags().StringVar(&name, "name", "", "only nodes with this exact name")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (0 = no limit)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of results to skip")
	return cmd
}

// getNode loads a node through the grove's nodes table.
func getNode(g types.Grove, id string) (*types.Node, error) {
	tbl, err := nodes(g)
	if err != nil {
		return nil, err
	}
	v, err := tbl.Get(id)
	if err != nil {
		return nil, tableErr("node "+id, err)
	}
	return v.(*types.Node), nil
}
