// Package postgres provides the public constructor for the PostgreSQL Grove
// backend.
package postgres

import (
	"github.com/mesh-intelligence/arbor/internal/postgres"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

// NewBackend creates a new, detached PostgreSQL backend.
//
// Example:
//
//	grove := postgres.NewBackend()
//	err := grove.Attach(types.Config{
//	    Backend:     types.BackendPostgres,
//	    PostgresDSN: "postgres://localhost/arbor",
//	})
//	defer grove.Detach()
func NewBackend() types.Grove {
	return postgres.NewBackend()
}
