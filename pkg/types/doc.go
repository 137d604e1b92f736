// Package types defines the Grove and Table interfaces, the Node entity,
// backend configuration, and the standard error values of the arbor storage
// layer. Tree traversal itself lives in package tree; Node satisfies
// tree.Record so any Grove can hand out a tree.Traverser over its nodes.
package types
