package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrInvalidRecord   = errors.New("invalid record")
	ErrDuplicateRecord = errors.New("record already exists")
)

// PersistenceError means the store could not be reached or refused a write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
