package helper

import "fmt"

// Error wraps an underlying error with the operation that failed
type Error struct {
	Context string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("error in %s: %v", e.Context, e.Err)
}

// Unwrap returns the underlying error for errors.Is/errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new wrapped error with the given operation context
func NewError(context string, err error) error {
	return &Error{Context: context, Err: err}
}
