package callable

import (
	"errors"
	"fmt"
)

// ErrAllocation is returned when an allocation backend cannot supply memory
// for a value that does not fit inline. Backends wrap it with detail.
var ErrAllocation = errors.New("callable: allocation failed")

// ContractError describes a programmer error: calling an empty Func,
// installing a nil function, or moving into a smaller inline buffer.
// It is raised with panic and never returned.
type ContractError struct {
	Op  string
	Msg string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("callable: %s: %s", e.Op, e.Msg)
}

func contract(op, format string, args ...any) *ContractError {
	return &ContractError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

func allocFailed(size, align uintptr, reason string) error {
	return fmt.Errorf("%w: %d bytes (align %d): %s", ErrAllocation, size, align, reason)
}
