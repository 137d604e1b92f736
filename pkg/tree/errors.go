package tree

import (
	"errors"
	"fmt"
)

// Traversal errors.
var (
	ErrRecordNotFound       = errors.New("record not found")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrInvalidSchema        = errors.New("invalid schema")
)

// StorageError reports a failure of the storage collaborator while running
// a traversal. It is never retried here.
type StorageError struct {
	Op  string // Traversal step that failed, e.g. "query ids".
	Err error  // Underlying driver error.
}

func (e *StorageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsStorageError reports whether err wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
