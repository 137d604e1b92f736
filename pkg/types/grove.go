package types

import (
	"errors"

	"github.com/mesh-intelligence/arbor/pkg/tree"
)

// Grove defines the interface for backend-agnostic storage access.
// Callers attach to a backend, access tables by name, query the node
// hierarchy through Tree, and detach when done.
type Grove interface {
	// GetTable returns the Table for the given name.
	// Returns ErrTableNotFound if the name is not a standard table.
	GetTable(name string) (Table, error)

	// Tree returns a traverser over the nodes table.
	// Returns ErrGroveDetached if the grove is not attached.
	Tree() (*tree.Traverser[*Node], error)

	// Attach connects the Grove to the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations on tables return ErrGroveDetached.
	Detach() error
}

// Grove lifecycle errors.
var (
	ErrGroveDetached   = errors.New("grove is detached")
	ErrAlreadyAttached = errors.New("grove is already attached")
	ErrTableNotFound   = errors.New("table not found")
)
