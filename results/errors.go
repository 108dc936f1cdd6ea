package results

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidArgument is returned when a metric or plot title is not present
// in the current snapshot.
var ErrInvalidArgument = errors.New("invalid argument")

// FetchError wraps a failed call to the tracking server made while building
// or refreshing the snapshot.
type FetchError struct {
	Op     string
	TaskID string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for task %s: %v", e.Op, e.TaskID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MissingFieldError means the server reply lacks a key the accessor reads.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field %q missing from task payload", e.Field)
}

// PlotParseError means an embedded plot document could not be decoded or
// does not have the expected data layout.
type PlotParseError struct {
	Title  string
	Reason string
	Err    error
}

func (e *PlotParseError) Error() string {
	msg := fmt.Sprintf("plot %q: %s", e.Title, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PlotParseError) Unwrap() error {
	return e.Err
}
