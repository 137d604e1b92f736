package tree

import (
	"fmt"
	"regexp"

	sq "github.com/Masterminds/squirrel"
)

// Direction selects which way a query walks the parent links.
type Direction int

const (
	// Up follows parent links from the start record toward the root.
	Up Direction = iota + 1
	// Down follows child links from the start record into its subtree.
	Down
	// RootScope selects every record without a parent.
	RootScope
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case RootScope:
		return "roots"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Schema names the physical table and columns of a record type. Names are
// interpolated into query text, so they are validated once at construction;
// values are always bound.
type Schema struct {
	Table        string
	IDColumn     string
	ParentColumn string
}

var identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that every name is a plain SQL identifier.
func (s Schema) Validate() error {
	for _, name := range []string{s.Table, s.IDColumn, s.ParentColumn} {
		if !identifierRE.MatchString(name) {
			return fmt.Errorf("%w: bad identifier %q", ErrInvalidSchema, name)
		}
	}
	return nil
}

// Query is a built traversal. SQL and Args are ready for the engine the
// builder's dialect targets; Direction and Start let stores that do not speak
// SQL evaluate the same request natively.
type Query struct {
	Direction Direction
	Start     string
	SQL       string
	Args      []any
}

// cteName is the recursive working table. Its columns are always
// (id, parent_id, path) regardless of the physical column names.
const cteName = "search_tree"

// Builder renders cycle-safe recursive queries for one schema and dialect.
// It holds no mutable state.
type Builder struct {
	schema  Schema
	dialect Dialect
}

// NewBuilder validates schema and returns a Builder for it.
func NewBuilder(schema Schema, dialect Dialect) (*Builder, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if dialect == nil {
		return nil, fmt.Errorf("%w: nil dialect", ErrInvalidSchema)
	}
	return &Builder{schema: schema, dialect: dialect}, nil
}

// Schema returns the schema the builder was created with.
func (b *Builder) Schema() Schema { return b.schema }

// SelfAndAncestors builds the upward query. Rows come back ordered by path
// descending, which puts the most distant ancestor first and the start
// record last.
func (b *Builder) SelfAndAncestors(id string) (Query, error) {
	s, d := b.schema, b.dialect
	col := "t." + s.IDColumn
	cte := fmt.Sprintf(`WITH RECURSIVE %[1]s(id, parent_id, path) AS (
    SELECT %[3]s, t.%[4]s, %[5]s
    FROM %[2]s t
    WHERE %[3]s = ?
  UNION ALL
    SELECT %[3]s, t.%[4]s, %[6]s
    FROM %[1]s s
    JOIN %[2]s t ON %[3]s = s.parent_id
    WHERE %[7]s
)`, cteName, s.Table, col, s.ParentColumn,
		d.SeedPath(col), d.ExtendPath("s.path", col), d.NotVisited("s.path", col))

	return b.finish(Up, id, sq.Select("id").From(cteName).Prefix(cte, id).OrderBy("path DESC"))
}

// SelfAndDescendants builds the downward query. Rows come back ordered by
// path ascending: the start record first, then its subtree.
func (b *Builder) SelfAndDescendants(id string) (Query, error) {
	s, d := b.schema, b.dialect
	col := "t." + s.IDColumn
	cte := fmt.Sprintf(`WITH RECURSIVE %[1]s(id, path) AS (
    SELECT %[3]s, %[5]s
    FROM %[2]s t
    WHERE %[3]s = ?
  UNION ALL
    SELECT %[3]s, %[6]s
    FROM %[1]s s
    JOIN %[2]s t ON t.%[4]s = s.id
    WHERE %[7]s
)`, cteName, s.Table, col, s.ParentColumn,
		d.SeedPath(col), d.ExtendPath("s.path", col), d.NotVisited("s.path", col))

	return b.finish(Down, id, sq.Select("id").From(cteName).Prefix(cte, id).OrderBy("path"))
}

// Roots builds the query selecting every record whose parent is null.
func (b *Builder) Roots() (Query, error) {
	s := b.schema
	stmt := sq.Select(s.IDColumn).
		From(s.Table).
		Where(sq.Eq{s.ParentColumn: nil}).
		OrderBy(s.IDColumn)
	return b.finish(RootScope, "", stmt)
}

func (b *Builder) finish(dir Direction, start string, stmt sq.SelectBuilder) (Query, error) {
	text, args, err := stmt.PlaceholderFormat(b.dialect.Placeholder()).ToSql()
	if err != nil {
		return Query{}, fmt.Errorf("building %s query: %w", dir, err)
	}
	return Query{Direction: dir, Start: start, SQL: text, Args: args}, nil
}
