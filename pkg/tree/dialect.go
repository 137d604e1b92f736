package tree

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// PathSeparator terminates every identifier in a SQLite-encoded traversal
// path. It sorts below every printable byte, so comparing two encoded paths
// bytewise gives the same answer as comparing their id sequences element by
// element. Identifiers must not contain it.
const PathSeparator = "\x1f"

// Dialect renders the path-array fragments of the recursive query for one
// SQL engine.
type Dialect interface {
	// Name identifies the dialect in logs and errors.
	Name() string

	// Placeholder is the bind-parameter format of the engine.
	Placeholder() sq.PlaceholderFormat

	// SeedPath returns an expression for a one-element path holding col.
	SeedPath(col string) string

	// ExtendPath returns an expression appending col to path.
	ExtendPath(path, col string) string

	// NotVisited returns a predicate that is true when col is absent from path.
	NotVisited(path, col string) string
}

// Dialects shipped with the package.
var (
	SQLite   Dialect = sqliteDialect{}
	Postgres Dialect = postgresDialect{}
)

// sqliteDialect encodes paths as separator-delimited text since SQLite has
// no array type: "\x1f1\x1f2\x1f".
type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder() sq.PlaceholderFormat { return sq.Question }

func (sqliteDialect) SeedPath(col string) string {
	return fmt.Sprintf("char(31) || %s || char(31)", col)
}

func (sqliteDialect) ExtendPath(path, col string) string {
	return fmt.Sprintf("%s || %s || char(31)", path, col)
}

func (sqliteDialect) NotVisited(path, col string) string {
	return fmt.Sprintf("instr(%s, char(31) || %s || char(31)) = 0", path, col)
}

// postgresDialect uses native arrays, matching ARRAY[id] / ANY(path).
type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder() sq.PlaceholderFormat { return sq.Dollar }

func (postgresDialect) SeedPath(col string) string {
	return fmt.Sprintf("ARRAY[%s]", col)
}

func (postgresDialect) ExtendPath(path, col string) string {
	return fmt.Sprintf("%s || %s", path, col)
}

func (postgresDialect) NotVisited(path, col string) string {
	return fmt.Sprintf("NOT %s = ANY(%s)", col, path)
}

// EncodePath renders ids the way the SQLite dialect accumulates them.
// Stores that evaluate traversals in memory use it to order results exactly
// as the SQL engine would.
func EncodePath(ids []string) string {
	s := PathSeparator
	for _, id := range ids {
		s += id + PathSeparator
	}
	return s
}
