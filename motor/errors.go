package motor

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrConnection    = errors.New("relmap: connection error")
	ErrKeyAllocation = errors.New("relmap: key allocation error")
	ErrExecution     = errors.New("relmap: execution error")
)

// ConnectionError is returned when an operation needs a connection and
// there is none, or when connecting fails.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("relmap: motor: %s: no active connection", e.Op)
	}
	return fmt.Sprintf("relmap: motor: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Is(err error) bool { return err == ErrConnection }

func (e *ConnectionError) Unwrap() error { return e.Err }

// KeyAllocationError is returned when the sequencer query yields no row.
type KeyAllocationError struct {
	Query string
}

func (e *KeyAllocationError) Error() string {
	return fmt.Sprintf("relmap: motor: no key returned by %q", e.Query)
}

func (e *KeyAllocationError) Is(err error) bool { return err == ErrKeyAllocation }

// ExecutionError carries a statement failure reported by the database.
// The driver error is available unmodified through errors.Unwrap.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("relmap: motor: executing %q: %v", e.Query, e.Err)
}

func (e *ExecutionError) Is(err error) bool { return err == ErrExecution }

func (e *ExecutionError) Unwrap() error { return e.Err }
