package fixture

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotBorrowed is returned by Release when the slot has no outstanding borrow.
	ErrNotBorrowed = errors.New("fixture is not borrowed")

	// ErrDuplicate is returned by Declare and Provide for names already in use.
	ErrDuplicate = errors.New("fixture already declared")

	// ErrOutstandingBorrow is reported by Teardown for slots still borrowed.
	ErrOutstandingBorrow = errors.New("fixture still borrowed at teardown")
)

// BorrowConflictError reports an Acquire that would violate the borrow invariant.
type BorrowConflictError struct {
	Name      string
	Requested Mode
	State     BorrowState

	// Shared is the shared borrow count at the time of the conflict.
	Shared int

	// ReadOnly is true when the slot was declared without mutable access.
	ReadOnly bool
}

// Error implements the error interface.
func (e *BorrowConflictError) Error() string {
	if e.ReadOnly {
		return fmt.Sprintf("borrow conflict on fixture %q: %s access requested but fixture is read-only",
			e.Name, e.Requested)
	}
	if e.State == SharedBorrowed {
		return fmt.Sprintf("borrow conflict on fixture %q: %s access requested while %d shared borrow(s) outstanding",
			e.Name, e.Requested, e.Shared)
	}
	return fmt.Sprintf("borrow conflict on fixture %q: %s access requested while %s",
		e.Name, e.Requested, e.State)
}

// IsBorrowConflict reports whether err is (or wraps) a BorrowConflictError.
func IsBorrowConflict(err error) bool {
	var bc *BorrowConflictError
	return errors.As(err, &bc)
}

// MissingError lists fixture names that could not be resolved.
type MissingError struct {
	Names []string
}

// Error implements the error interface.
func (e *MissingError) Error() string {
	return fmt.Sprintf("missing fixtures: %s", strings.Join(e.Names, ", "))
}
