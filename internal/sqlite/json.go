package sqlite

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/arbor/pkg/types"
)

// nodeJSON represents a node in nodes.jsonl. Timestamps are RFC 3339 with
// nanoseconds; a missing or empty parent_id marks a root.
type nodeJSON struct {
	NodeID    string `json:"node_id"`
	Name      string `json:"name"`
	ParentID  string `json:"parent_id,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func toNodeJSON(n *types.Node) nodeJSON {
	return nodeJSON{
		NodeID:    n.NodeID,
		Name:      n.Name,
		ParentID:  n.ParentID,
		CreatedAt: formatTime(n.CreatedAt),
		UpdatedAt: formatTime(n.UpdatedAt),
	}
}

func (j nodeJSON) toNode() (*types.Node, error) {
	created, err := parseTime(j.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	updated, err := parseTime(j.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &types.Node{
		NodeID:    j.NodeID,
		Name:      j.Name,
		ParentID:  j.ParentID,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}
