package cli

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/arbor/pkg/postgres"
	"github.com/mesh-intelligence/arbor/pkg/sqlite"
	"github.com/mesh-intelligence/arbor/pkg/tree"
	"github.com/mesh-intelligence/arbor/pkg/types"
)

// newGrove returns a detached grove for the configured backend.
func newGrove(backend string) (types.Grove, error) {
	switch backend {
	case types.BackendSQLite:
		return sqlite.NewBackend(), nil
	case types.BackendPostgres:
		return postgres.NewBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, backend)
	}
}

// withGrove attaches the configured grove, runs fn and detaches. A Detach
// failure is reported only when fn succeeded.
func (st *state) withGrove(fn func(g types.Grove) error) (err error) {
	cfg, err := st.groveConfig()
	if err != nil {
		return err
	}
	g, err := newGrove(cfg.Backend)
	if err != nil {
		return userError(err)
	}
	if err := g.Attach(cfg); err != nil {
		return sysError(fmt.Errorf("attach %s backend: %w", cfg.Backend, err))
	}
	defer func() {
		if derr := g.Detach(); derr != nil && err == nil {
			err = sysError(fmt.Errorf("detach: %w", derr))
		}
	}()
	return fn(g)
}

// nodes returns the nodes table of g.
func nodes(g types.Grove) (types.Table, error) {
	tbl, err := g.GetTable(types.TableNodes)
	if err != nil {
		return nil, sysError(fmt.Errorf("get nodes table: %w", err))
	}
	return tbl, nil
}

// classify maps an error no command tagged to an exit code. Traversal
// storage failures are system errors; everything else, including cobra usage
// errors and the input sentinels of types and tree, is a user error.
func classify(err error) int {
	if tree.IsStorageError(err) {
		return exitSysError
	}
	return exitUserError
}

// inputErrors are the table sentinels caused by bad input rather than a
// failing backend.
var inputErrors = []error{
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrInvalidName,
	types.ErrInvalidFilter,
}

// tableErr wraps a Table failure and tags it as a user or system error.
func tableErr(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return userError(wrapped)
		}
	}
	return sysError(wrapped)
}
