package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/arbor/pkg/types"
)

var (
	accent     = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))
	muted      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	headerCell = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	bodyCell   = lipgloss.NewStyle().Padding(0, 1)
)

// printer writes command results as JSON, a styled table for terminals, or
// tab-separated lines for pipes.
type printer struct {
	w      io.Writer
	json   bool
	styled bool
}

func (st *state) printer(cmd *cobra.Command) *printer {
	w := cmd.OutOrStdout()
	return &printer{w: w, json: st.flags.jsonMode, styled: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func (p *printer) writeJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal output: %w", err))
	}
	_, err = fmt.Fprintln(p.w, string(out))
	return err
}

// nodes prints a node list, one row per node, in the given order.
func (p *printer) nodes(list []*types.Node) error {
	if p.json {
		if list == nil {
			list = []*types.Node{}
		}
		return p.writeJSON(list)
	}
	if !p.styled {
		for _, n := range list {
			fmt.Fprintf(p.w, "%s\t%s\t%s\n", n.NodeID, n.Name, n.ParentID)
		}
		return nil
	}
	if len(list) == 0 {
		fmt.Fprintln(p.w, muted.Render("No nodes found."))
		return nil
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(muted).
		Headers("ID", "NAME", "PARENT").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerCell
			case col == 0:
				return bodyCell.Foreground(accent.GetForeground())
			case col == 2:
				return bodyCell.Foreground(muted.GetForeground())
			default:
				return bodyCell
			}
		})
	for _, n := range list {
		t.Row(n.NodeID, n.Name, n.ParentID)
	}
	fmt.Fprintln(p.w, t.String())
	return nil
}

// node prints a single node as key/value lines.
func (p *printer) node(n *types.Node) error {
	if p.json {
		return p.writeJSON(n)
	}
	fields := [][2]string{
		{"id", n.NodeID},
		{"name", n.Name},
		{"parent", n.ParentID},
		{"created", n.CreatedAt.Format(time.RFC3339)},
		{"updated", n.UpdatedAt.Format(time.RFC3339)},
	}
	for _, f := range fields {
		if p.styled {
			fmt.Fprintf(p.w, "%s %s\n", muted.Render(fmt.Sprintf("%-8s", f[0])), f[1])
		} else {
			fmt.Fprintf(p.w, "%s\t%s\n", f[0], f[1])
		}
	}
	return nil
}

// message prints a short confirmation, or {key: value} in JSON mode.
func (p *printer) message(key, value, text string) error {
	if p.json {
		return p.writeJSON(map[string]string{key: value})
	}
	if p.styled {
		text = strings.Replace(text, value, accent.Render(value), 1)
	}
	_, err := fmt.Fprintln(p.w, text)
	return err
}
