// Package sqlite provides the public constructor for the SQLite Grove
// backend while keeping its implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/arbor/internal/sqlite"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	grove := sqlite.NewBackend()
//	err := grove.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".arbor",
//	})
//	defer grove.Detach()
func NewBackend() types.Grove {
	return sqlite.NewBackend()
}
