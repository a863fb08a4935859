package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is the parent of every input validation failure.
var ErrValidation = errors.New("validation error")

var (
	ErrInvalidID       = fmt.Errorf("%w: invalid id", ErrValidation)
	ErrInvalidTitle    = fmt.Errorf("%w: title is required", ErrValidation)
	ErrInvalidPriority = fmt.Errorf("%w: invalid priority", ErrValidation)
	ErrInvalidDeadline = fmt.Errorf("%w: invalid deadline", ErrValidation)
	ErrInvalidColumnID = fmt.Errorf("%w: invalid column id", ErrValidation)
	ErrDuplicateID     = fmt.Errorf("%w: duplicate id", ErrValidation)
	ErrCyclicParent    = errors.New("parent would create a cycle")
	ErrColumnNotEmpty  = errors.New("column is not empty")
)

// ColumnNotEmptyError reports a blocked column delete and how many tasks still reference it.
type ColumnNotEmptyError struct {
	ColumnID string
	Count    int
}

// Error returns the user-facing message.
func (e *ColumnNotEmptyError) Error() string {
	return fmt.Sprintf("column %q still holds %d task(s); move or delete them first", e.ColumnID, e.Count)
}

// Is lets errors.Is match ErrColumnNotEmpty.
func (e *ColumnNotEmptyError) Is(target error) bool {
	return target == ErrColumnNotEmpty
}
