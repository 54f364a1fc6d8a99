package helper

import "fmt"

// Error wraps an underlying error with the operation that produced it.
type Error struct {
	Original error
	Trace    string
}

// NewError wraps err with a short description of the failing step.
// It returns nil when err is nil so it can be used inline on return paths.
func NewError(trace string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Original: err,
		Trace:    trace,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Trace, e.Original)
}

func (e *Error) Unwrap() error {
	return e.Original
}
