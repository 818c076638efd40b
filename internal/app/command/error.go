package command

import (
	"errors"
	"fmt"
)

// Error marks a failure that already carries user-facing context;
// main reports it through the structured log instead of cobra usage
// output.
type Error struct {
	Inner error
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Msg, e.Inner)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

func WrapError(err error) error {
	if err == nil {
		return nil
	}
	// nested command helpers may already have wrapped; keep one layer
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return err
	}

	return &Error{
		Inner: err,
		Msg:   "command failed",
	}
}
