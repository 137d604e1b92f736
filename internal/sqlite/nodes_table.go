package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/arbor/pkg/types"
)

var _ types.Table = (*nodesTable)(nil)

// nodesTable implements the Table interface for nodes. Each write goes to
// SQLite first and then to nodes.jsonl according to the sync strategy.
type nodesTable struct {
	backend *Backend
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanNode hydrates a row selected with nodeColumns.
func scanNode(row rowScanner) (*types.Node, error) {
	var (
		n                types.Node
		parent           sql.NullString
		created, updated string
	)
	if err := row.Scan(&n.NodeID, &n.Name, &parent, &created, &updated); err != nil {
		return nil, err
	}
	n.ParentID = parent.String
	var err error
	if n.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("node %s created_at: %w", n.NodeID, err)
	}
	if n.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("node %s updated_at: %w", n.NodeID, err)
	}
	return &n, nil
}

// Get retrieves a node by ID.
func (nt *nodesTable) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	b := nt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrGroveDetached
	}

	n, err := b.getNode(id)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// getNode loads one node. The caller holds b.mu.
func (b *Backend) getNode(id string) (*types.Node, error) {
	query, args, err := sq.Select(nodeColumns...).From("nodes").Where(sq.Eq{"node_id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	n, err := scanNode(b.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting node %s: %w", id, err)
	}
	return n, nil
}

// Set creates or updates a node. With an empty id a UUID v7 is generated and
// both timestamps are set; otherwise the row is inserted or updated and
// UpdatedAt is refreshed. The parent is stored as given: it may name a
// missing node or close a cycle.
func (nt *nodesTable) Set(id string, data any) (string, error) {
	node, ok := data.(*types.Node)
	if !ok || node == nil {
		return "", types.ErrInvalidData
	}
	if id != "" {
		node.NodeID = id
	}
	if err := node.Validate(); err != nil {
		return "", err
	}

	b := nt.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrGroveDetached
	}

	now := time.Now().UTC()
	if node.NodeID == "" {
		newID, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generating UUID v7: %w", err)
		}
		node.NodeID = newID.String()
	}

	existing, err := b.getNode(node.NodeID)
	switch {
	case errors.Is(err, types.ErrNotFound):
		if node.CreatedAt.IsZero() {
			node.CreatedAt = now
		}
	case err != nil:
		return "", err
	default:
		node.CreatedAt = existing.CreatedAt
	}
	node.UpdatedAt = now

	var query string
	var args []any
	if existing == nil {
		query, args, err = sq.Insert("nodes").
			Columns(nodeColumns...).
			Values(node.NodeID, node.Name, nullableParent(node.ParentID), formatTime(node.CreatedAt), formatTime(node.UpdatedAt)).
			ToSql()
	} else {
		query, args, err = sq.Update("nodes").
			Set("name", node.Name).
			Set("parent_id", nullableParent(node.ParentID)).
			Set("updated_at", formatTime(node.UpdatedAt)).
			Where(sq.Eq{"node_id": node.NodeID}).
			ToSql()
	}
	if err != nil {
		return "", err
	}
	if _, err := b.db.Exec(query, args...); err != nil {
		return "", fmt.Errorf("persisting node: %w", err)
	}

	if err := b.afterWriteLocked(); err != nil {
		return "", err
	}
	return node.NodeID, nil
}

// Delete removes a node. Its children keep their parent_id and become
// unreachable from any root until re-parented.
func (nt *nodesTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	b := nt.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrGroveDetached
	}

	query, args, err := sq.Delete("nodes").Where(sq.Eq{"node_id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := b.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("deleting node %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return types.ErrNotFound
	}
	return b.afterWriteLocked()
}

// Fetch returns nodes matching filter, ordered by node_id. Supported keys:
// parent_id (string, empty selects roots), name (string), limit and offset
// (non-negative int).
func (nt *nodesTable) Fetch(filter types.Filter) ([]any, error) {
	b := nt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrGroveDetached
	}

	sel, err := applyNodeFilter(sq.Select(nodeColumns...).From("nodes").OrderBy("node_id"), filter)
	if err != nil {
		return nil, err
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching nodes: %w", err)
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, n)
	}
	return results, rows.Err()
}

// applyNodeFilter translates a Filter into WHERE, LIMIT and OFFSET clauses.
// SQLite rejects OFFSET without LIMIT, so an offset alone gets an unbounded
// limit.
func applyNodeFilter(sel sq.SelectBuilder, filter types.Filter) (sq.SelectBuilder, error) {
	_, hasLimit := filter["limit"]
	if _, hasOffset := filter["offset"]; hasOffset && !hasLimit {
		sel = sel.Limit(math.MaxInt64)
	}
	for key, val := range filter {
		switch key {
		case "parent_id":
			s, ok := val.(string)
			if !ok {
				return sel, fmt.Errorf("%w: parent_id must be a string", types.ErrInvalidFilter)
			}
			if s == "" {
				sel = sel.Where(sq.Eq{"parent_id": nil})
			} else {
				sel = sel.Where(sq.Eq{"parent_id": s})
			}
		case "name":
			s, ok := val.(string)
			if !ok {
				return sel, fmt.Errorf("%w: name must be a string", types.ErrInvalidFilter)
			}
			sel = sel.Where(sq.Eq{"name": s})
		case "limit", "offset":
			n, ok := val.(int)
			if !ok || n < 0 {
				return sel, fmt.Errorf("%w: %s must be a non-negative int", types.ErrInvalidFilter, key)
			}
			if key == "limit" {
				sel = sel.Limit(uint64(n))
			} else {
				sel = sel.Offset(uint64(n))
			}
		default:
			return sel, fmt.Errorf("%w: unknown key %q", types.ErrInvalidFilter, key)
		}
	}
	return sel, nil
}
