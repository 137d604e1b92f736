// Package sqlite implements the SQLite storage backend for arbor.
// SQLite is the query engine; nodes.jsonl in the data directory is the
// source of truth and is reloaded into a fresh database on every Attach.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/arbor/pkg/tree"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

const dbFileName = "arbor.db"

// Backend implements the Grove interface using SQLite as the query engine
// and JSONL files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	tables   map[string]types.Table
	tree     *tree.Traverser[*types.Node]

	syncStrategy string // effective sync strategy: immediate or on_close
	dirty        bool   // nodes.jsonl is behind the database (on_close only)
}

var _ types.Grove = (*Backend)(nil)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{
		tables: make(map[string]types.Table),
	}
}

// GetTable returns a Table interface for the specified table name.
// Returns ErrTableNotFound if the table name is not recognized.
// Returns ErrGroveDetached if the backend is not attached.
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

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, recreates the SQLite database,
// loads nodes.jsonl into it, and creates table accessors.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendSQLite {
		return types.ErrBackendUnknown
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// The database is a cache of the JSONL files; start from scratch.
	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	for _, stmt := range append(schemaDDL, indexDDL...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}

	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	traverser, err := tree.New[*types.Node](&treeStore{backend: b})
	if err != nil {
		db.Close()
		return fmt.Errorf("building traverser: %w", err)
	}

	b.db = db
	b.config = config
	b.config.DataDir = dataDir
	b.syncStrategy = config.SQLiteConfig.GetSyncStrategy()
	b.dirty = false
	b.tree = traverser
	b.tables[types.TableNodes] = &nodesTable{backend: b}
	b.attached = true

	return nil
}

// Detach releases all resources held by the backend.
// For the on_close sync strategy, pending changes are written to
// nodes.jsonl before the database closes. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if b.dirty {
		if err := b.persistNodesLocked(); err != nil {
			return fmt.Errorf("flush pending writes: %w", err)
		}
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.tables = make(map[string]types.Table)
	b.tree = nil

	return nil
}

// afterWriteLocked persists nodes.jsonl now or marks it for Detach,
// depending on the sync strategy. The caller must hold b.mu for writing.
func (b *Backend) afterWriteLocked() error {
	if b.syncStrategy == types.SyncOnClose {
		b.dirty = true
		return nil
	}
	return b.persistNodesLocked()
}

func (b *Backend) persistNodesLocked() error {
	if err := persistNodesJSONL(b.db, b.config.DataDir); err != nil {
		return fmt.Errorf("persisting %s: %w", nodesJSONL, err)
	}
	b.dirty = false
	return nil
}
