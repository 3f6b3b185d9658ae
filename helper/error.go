package helper

import "fmt"

// Error wraps an underlying error together with the operation it occurred in.
type Error struct {
	Context string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("error in %v: %v", e.Context, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with the operation context. Returns nil for a nil err.
func NewError(context string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Context: context, Err: err}
}
