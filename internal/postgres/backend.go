// Package postgres implements the PostgreSQL storage backend for arbor.
// Nodes live directly in a nodes table; traversals run as recursive CTEs
// with native array paths.
package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesh-intelligence/arbor/pkg/tree"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

// Backend implements the Grove interface on a pgx connection pool.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	pool     *pgxpool.Pool
	tables   map[string]types.Table
	tree     *tree.Traverser[*types.Node]
}

var _ types.Grove = (*Backend)(nil)

// NewBackend creates a detached Postgres backend.
func NewBackend() *Backend {
	return &Backend{
		tables: make(map[string]types.Table),
	}
}

// GetTable returns the Table for name.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrGroveDetached
	}
	table, ok := b.tables[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return table, nil
}

// Tree returns the traverser over the nodes table.
func (b *Backend) Tree() (*tree.Traverser[*types.Node], error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrGroveDetached
	}
	return b.tree, nil
}

// Attach connects to config.PostgresDSN, verifies the connection and
// creates the schema if it does not exist yet.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendPostgres {
		return types.ErrBackendUnknown
	}

	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(config.PostgresDSN)
	if err != nil {
		return fmt.Errorf("parsing postgres DSN: %w", err)
	}
	configureLogger(poolConfig.ConnConfig)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("connecting to postgres: %w", err)
	}

	for _, stmt := range schemaDDL {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	traverser, err := tree.New[*types.Node](&treeStore{backend: b})
	if err != nil {
		pool.Close()
		return fmt.Errorf("building traverser: %w", err)
	}

	b.pool = pool
	b.tree = traverser
	b.tables[types.TableNodes] = &nodesTable{backend: b}
	b.attached = true
	return nil
}

// Detach closes the pool. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.pool.Close()
	b.pool = nil
	b.attached = false
	b.tables = make(map[string]types.Table)
	b.tree = nil
	return nil
}
