// Package tree computes ancestor chains and descendant subtrees of records
// linked to their parent by identifier, using one recursive common table
// expression per traversal instead of walking the tree row by row.
//
// A Builder renders the recursive query for a Schema and Dialect. The query
// accumulates the path of visited identifiers and never expands a row whose
// identifier is already on its path, so corrupted parent chains that form a
// cycle terminate. A Traverser runs those queries through a Store and turns
// the resulting identifiers back into ordered records:
//
//	t, err := tree.New[*types.Node](store)
//	chain, err := t.SelfAndAncestors(ctx, node)   // root first, node last
//	sub, err := t.SelfAndDescendants(ctx, node)   // node first
//	ok, err := t.Contains(ctx, tree.AncestorsContains, node, other)
package tree
