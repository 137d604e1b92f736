package types

import (
	"strings"
	"time"

	"github.com/mesh-intelligence/arbor/pkg/tree"
)

// Node is a named record in a parent-linked hierarchy. A node with an empty
// ParentID is a root. Nothing here prevents a parent chain from looping back
// on itself; traversals tolerate such chains.
type Node struct {
	NodeID    string    `json:"node_id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var _ tree.Record = (*Node)(nil)

// TreeID implements tree.Record.
func (n *Node) TreeID() string { return n.NodeID }

// TreeParentID implements tree.Record.
func (n *Node) TreeParentID() string { return n.ParentID }

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.ParentID == "" }

// Validate checks the fields a backend requires before persisting.
func (n *Node) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return ErrInvalidName
	}
	if strings.Contains(n.NodeID, tree.PathSeparator) || strings.Contains(n.ParentID, tree.PathSeparator) {
		return ErrInvalidID
	}
	return nil
}

// SetParent re-links the node under parentID, or makes it a root when
// parentID is empty.
func (n *Node) SetParent(parentID string) {
	n.ParentID = parentID
	n.UpdatedAt = time.Now().UTC()
}

// Rename changes the node name. Returns ErrInvalidName for a blank name.
func (n *Node) Rename(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	n.Name = name
	n.UpdatedAt = time.Now().UTC()
	return nil
}
