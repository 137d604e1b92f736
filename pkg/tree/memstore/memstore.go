// Package memstore is an in-memory tree.Store. It evaluates traversal
// queries natively instead of running their SQL, reproducing the cycle
// guard and path ordering of the SQLite dialect exactly. It backs tests and
// small in-process forests.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/mesh-intelligence/arbor/pkg/tree"
)

// DefaultSchema is reported by stores created without an explicit schema.
var DefaultSchema = tree.Schema{Table: "records", IDColumn: "id", ParentColumn: "parent_id"}

// Store holds records keyed by tree id.
type Store[R tree.Record] struct {
	mu      sync.RWMutex
	schema  tree.Schema
	records map[string]R
}

var _ tree.Store[tree.Record] = (*Store[tree.Record])(nil)

// New returns a store holding recs.
func New[R tree.Record](recs ...R) *Store[R] {
	s := &Store[R]{schema: DefaultSchema, records: make(map[string]R, len(recs))}
	s.Put(recs...)
	return s
}

// WithSchema sets the schema reported to the query builder.
func (s *Store[R]) WithSchema(schema tree.Schema) *Store[R] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = schema
	return s
}

// Put inserts or replaces records.
func (s *Store[R]) Put(recs ...R) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.records[r.TreeID()] = r
	}
}

// Delete removes the record with the given id, if present.
func (s *Store[R]) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// Len returns the number of stored records.
func (s *Store[R]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store[R]) Schema() tree.Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema
}

func (s *Store[R]) Dialect() tree.Dialect { return tree.SQLite }

// QueryIDs evaluates q against the stored records.
func (s *Store[R]) QueryIDs(ctx context.Context, q tree.Query) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch q.Direction {
	case tree.Up:
		return s.up(q.Start), nil
	case tree.Down:
		return s.down(q.Start), nil
	case tree.RootScope:
		return s.roots(), nil
	default:
		return nil, fmt.Errorf("memstore: unknown direction %s", q.Direction)
	}
}

// FindByIDs returns the stored records among ids, in ids order.
func (s *Store[R]) FindByIDs(ctx context.Context, ids []string) ([]R, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]R, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type pathRow struct {
	id   string
	path []string
	key  string
}

func newPathRow(path []string) pathRow {
	return pathRow{id: path[len(path)-1], path: path, key: tree.EncodePath(path)}
}

func (s *Store[R]) up(start string) []string {
	cur, ok := s.records[start]
	if !ok {
		return nil
	}
	path := []string{start}
	rows := []pathRow{newPathRow(path)}
	for {
		pid := cur.TreeParentID()
		if pid == "" || slices.Contains(path, pid) {
			break
		}
		parent, ok := s.records[pid]
		if !ok {
			break
		}
		path = append(slices.Clone(path), pid)
		rows = append(rows, newPathRow(path))
		cur = parent
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].key > rows[j].key })
	return rowIDs(rows)
}

func (s *Store[R]) down(start string) []string {
	if _, ok := s.records[start]; !ok {
		return nil
	}
	children := make(map[string][]string)
	for id, r := range s.records {
		if pid := r.TreeParentID(); pid != "" {
			children[pid] = append(children[pid], id)
		}
	}

	rows := []pathRow{newPathRow([]string{start})}
	for i := 0; i < len(rows); i++ {
		frontier := rows[i]
		for _, child := range children[frontier.id] {
			if slices.Contains(frontier.path, child) {
				continue
			}
			rows = append(rows, newPathRow(append(slices.Clone(frontier.path), child)))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].key < rows[j].key })
	return rowIDs(rows)
}

func (s *Store[R]) roots() []string {
	var ids []string
	for id, r := range s.records {
		if r.TreeParentID() == "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func rowIDs(rows []pathRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.id
	}
	return ids
}
