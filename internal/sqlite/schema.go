package sqlite

import "github.com/mesh-intelligence/arbor/pkg/tree"

// Schema DDL. parent_id carries no foreign key: rows may point at missing
// or cyclic parents and traversals cope with both.
const (
	createNodes = `CREATE TABLE nodes (
    node_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    parent_id TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`
)

// Index DDL for common queries.
const (
	idxNodesParent = `CREATE INDEX idx_nodes_parent ON nodes(parent_id);`
	idxNodesName   = `CREATE INDEX idx_nodes_name ON nodes(name);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createNodes,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxNodesParent,
	idxNodesName,
}

// nodesSchema describes the nodes table to the tree query builder.
var nodesSchema = tree.Schema{
	Table:        "nodes",
	IDColumn:     "node_id",
	ParentColumn: "parent_id",
}

// nodeColumns is the column order used by every node SELECT and hydrate.
var nodeColumns = []string{"node_id", "name", "parent_id", "created_at", "updated_at"}
