package postgres

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/mesh-intelligence/arbor/pkg/tree"
)

// Identifiers use the "C" collation so that ORDER BY over id arrays compares
// bytes, matching the SQLite backend.
const (
	createNodes = `CREATE TABLE IF NOT EXISTS nodes (
    node_id TEXT COLLATE "C" PRIMARY KEY,
    name TEXT NOT NULL,
    parent_id TEXT COLLATE "C",
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);`
	idxNodesParent = `CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id);`
	idxNodesName   = `CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name);`
)

var schemaDDL = []string{
	createNodes,
	idxNodesParent,
	idxNodesName,
}

var nodesSchema = tree.Schema{
	Table:        "nodes",
	IDColumn:     "node_id",
	ParentColumn: "parent_id",
}

var nodeColumns = []string{"node_id", "name", "parent_id", "created_at", "updated_at"}

// psql renders statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
