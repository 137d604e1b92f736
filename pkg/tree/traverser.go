package tree

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Record is the capability a type needs to take part in a tree: a unique
// identifier and the identifier of its parent, empty for a root.
type Record interface {
	TreeID() string
	TreeParentID() string
}

// Store is the storage collaborator a Traverser runs against.
type Store[R Record] interface {
	// Schema names the table and columns holding records of type R.
	Schema() Schema

	// Dialect selects the SQL flavour QueryIDs expects.
	Dialect() Dialect

	// QueryIDs executes q and returns the id column of every row, in row order.
	QueryIDs(ctx context.Context, q Query) ([]string, error)

	// FindByIDs materializes the records with the given ids. Result order is
	// unspecified; ids with no row are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]R, error)
}

// Traverser answers ancestor, descendant, root and membership queries for
// records of type R. It keeps no state between calls; every call queries the
// store again, and a Traverser is safe for concurrent use.
type Traverser[R Record] struct {
	store   Store[R]
	builder *Builder
	sets    map[Set]func(context.Context, R) ([]R, error)
}

// New returns a Traverser over store. It fails when the store's schema is
// not usable in query text.
func New[R Record](store Store[R]) (*Traverser[R], error) {
	b, err := NewBuilder(store.Schema(), store.Dialect())
	if err != nil {
		return nil, err
	}
	t := &Traverser[R]{store: store, builder: b}
	t.sets = map[Set]func(context.Context, R) ([]R, error){
		Ancestors:          t.Ancestors,
		SelfAndAncestors:   t.SelfAndAncestors,
		Descendants:        t.Descendants,
		SelfAndDescendants: t.SelfAndDescendants,
	}
	return t, nil
}

// Builder exposes the query builder, mostly for inspection and debugging.
func (t *Traverser[R]) Builder() *Builder { return t.builder }

// SelfAndAncestors returns rec and its ancestors, most distant ancestor
// first and rec last. The result is empty if rec no longer exists.
func (t *Traverser[R]) SelfAndAncestors(ctx context.Context, rec R) ([]R, error) {
	q, err := t.builder.SelfAndAncestors(rec.TreeID())
	if err != nil {
		return nil, err
	}
	return t.run(ctx, q)
}

// Ancestors returns SelfAndAncestors without rec itself.
func (t *Traverser[R]) Ancestors(ctx context.Context, rec R) ([]R, error) {
	all, err := t.SelfAndAncestors(ctx, rec)
	if err != nil {
		return nil, err
	}
	return without(all, rec.TreeID()), nil
}

// SelfAndDescendants returns rec followed by its subtree ordered by
// traversal path. The result is empty if rec no longer exists.
func (t *Traverser[R]) SelfAndDescendants(ctx context.Context, rec R) ([]R, error) {
	q, err := t.builder.SelfAndDescendants(rec.TreeID())
	if err != nil {
		return nil, err
	}
	return t.run(ctx, q)
}

// Descendants returns SelfAndDescendants without rec itself.
func (t *Traverser[R]) Descendants(ctx context.Context, rec R) ([]R, error) {
	all, err := t.SelfAndDescendants(ctx, rec)
	if err != nil {
		return nil, err
	}
	return without(all, rec.TreeID()), nil
}

// Roots returns every record without a parent, ordered by id.
func (t *Traverser[R]) Roots(ctx context.Context) ([]R, error) {
	q, err := t.builder.Roots()
	if err != nil {
		return nil, err
	}
	return t.run(ctx, q)
}

// Collect computes the named set for rec.
func (t *Traverser[R]) Collect(ctx context.Context, set Set, rec R) ([]R, error) {
	fn, ok := t.sets[set]
	if !ok {
		return nil, fmt.Errorf("%w: set %d", ErrUnsupportedOperation, int(set))
	}
	return fn(ctx, rec)
}

// Contains computes the set named by p for rec and reports whether target
// is a member of it, comparing by identifier.
func (t *Traverser[R]) Contains(ctx context.Context, p Predicate, rec, target R) (bool, error) {
	set, err := p.Set()
	if err != nil {
		return false, err
	}
	members, err := t.Collect(ctx, set, rec)
	if err != nil {
		return false, err
	}
	id := target.TreeID()
	for _, m := range members {
		if m.TreeID() == id {
			return true, nil
		}
	}
	return false, nil
}

// Find loads a single record by id. Unlike the traversals, a missing record
// is an error here: ErrRecordNotFound.
func (t *Traverser[R]) Find(ctx context.Context, id string) (R, error) {
	var zero R
	recs, err := t.store.FindByIDs(ctx, []string{id})
	if err != nil {
		return zero, &StorageError{Op: "find by ids", Err: err}
	}
	for _, r := range recs {
		if r.TreeID() == id {
			return r, nil
		}
	}
	return zero, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
}

// run executes q, then materializes the returned ids in the order the query
// produced them. Ids repeated by the query or whose rows vanished between
// the two round trips are dropped.
func (t *Traverser[R]) run(ctx context.Context, q Query) ([]R, error) {
	log := zerolog.Ctx(ctx)
	log.Trace().
		Str("direction", q.Direction.String()).
		Str("start", q.Start).
		Str("sql", q.SQL).
		Msg("tree query")

	ids, err := t.store.QueryIDs(ctx, q)
	if err != nil {
		return nil, &StorageError{Op: "query ids", Err: err}
	}
	if len(ids) == 0 {
		return []R{}, nil
	}

	recs, err := t.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, &StorageError{Op: "find by ids", Err: err}
	}

	out := orderByIDs(ids, recs)
	log.Debug().
		Str("direction", q.Direction.String()).
		Str("start", q.Start).
		Int("ids", len(ids)).
		Int("records", len(out)).
		Msg("tree query done")
	return out, nil
}

func orderByIDs[R Record](ids []string, recs []R) []R {
	byID := make(map[string]R, len(recs))
	for _, r := range recs {
		byID[r.TreeID()] = r
	}
	out := make([]R, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

func without[R Record](recs []R, id string) []R {
	out := make([]R, 0, len(recs))
	for _, r := range recs {
		if r.TreeID() != id {
			out = append(out, r)
		}
	}
	return out
}
