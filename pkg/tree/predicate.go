package tree

import (
	"fmt"
	"strings"
)

// Set names one of the four traversal sets a record can produce.
type Set int

const (
	Ancestors Set = iota + 1
	SelfAndAncestors
	Descendants
	SelfAndDescendants
)

var setNames = map[Set]string{
	Ancestors:          "ancestors",
	SelfAndAncestors:   "self_and_ancestors",
	Descendants:        "descendants",
	SelfAndDescendants: "self_and_descendants",
}

func (s Set) String() string {
	if name, ok := setNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Set(%d)", int(s))
}

// Predicate names a membership test over one of the traversal sets.
type Predicate int

const (
	AncestorsContains Predicate = iota + 1
	SelfAndAncestorsContains
	DescendantsContains
	SelfAndDescendantsContains
)

// predicateSets is the fixed dispatch table for Contains. A predicate that
// is not a key here is unsupported.
var predicateSets = map[Predicate]Set{
	AncestorsContains:          Ancestors,
	SelfAndAncestorsContains:   SelfAndAncestors,
	DescendantsContains:        Descendants,
	SelfAndDescendantsContains: SelfAndDescendants,
}

// Set returns the traversal set the predicate tests membership of.
func (p Predicate) Set() (Set, error) {
	s, ok := predicateSets[p]
	if !ok {
		return 0, fmt.Errorf("%w: predicate %d", ErrUnsupportedOperation, int(p))
	}
	return s, nil
}

func (p Predicate) String() string {
	if s, ok := predicateSets[p]; ok {
		return s.String() + "_contains"
	}
	return fmt.Sprintf("Predicate(%d)", int(p))
}

// ParseSet resolves a set name. Snake case, camel case and kebab case are
// accepted, as is the "descendents" spelling.
func ParseSet(name string) (Set, error) {
	key := normalizeName(name)
	for s, n := range setNames {
		if normalizeName(n) == key {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: set %q", ErrUnsupportedOperation, name)
}

// ParsePredicate resolves a predicate name such as
// "self_and_ancestors_contains", "SelfAndAncestorsContains" or
// "self_and_ancestors_include?". Anything that does not name one of the four
// sets followed by a contains suffix fails with ErrUnsupportedOperation.
func ParsePredicate(name string) (Predicate, error) {
	key := normalizeName(name)
	var base string
	switch {
	case strings.HasSuffix(key, "contains"):
		base = strings.TrimSuffix(key, "contains")
	case strings.HasSuffix(key, "include?"):
		base = strings.TrimSuffix(key, "include?")
	case strings.HasSuffix(key, "includes"):
		base = strings.TrimSuffix(key, "includes")
	default:
		return 0, fmt.Errorf("%w: predicate %q", ErrUnsupportedOperation, name)
	}
	for p, s := range predicateSets {
		if normalizeName(s.String()) == base {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: predicate %q", ErrUnsupportedOperation, name)
}

// normalizeName lower-cases name, drops word separators and folds the
// "descendent" spelling into "descendant".
func normalizeName(name string) string {
	key := strings.ToLower(name)
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	return strings.ReplaceAll(key, "descendent", "descendant")
}
