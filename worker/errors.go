package worker

import (
	"errors"
	"fmt"

	"github.com/vx-labs/shuffle/shuffle"
)

var (
	ErrAlreadyStarted          = errors.New("reader already started")
	ErrNotStarted              = errors.New("reader not started")
	ErrReaderClosed            = errors.New("reader closed")
	ErrFormatAlreadyRegistered = errors.New("format already registered")
)

// InvalidDescriptorError is returned when a shard description is incomplete or
// inconsistent. No backend is invoked for such descriptors.
type InvalidDescriptorError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InvalidDescriptorError) Error() string {
	msg := "invalid shard descriptor"
	if e.Field != "" {
		msg = fmt.Sprintf("%s: field %q", msg, e.Field)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}
func (e *InvalidDescriptorError) Unwrap() error { return e.Err }

// UnsupportedFormatError is returned when no backend is registered for a format.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported shard format %q", e.Format)
}

// DecodeError is returned when a record cannot be decoded. Position locates the
// offending record.
type DecodeError struct {
	Position shuffle.Position
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode record at %s: %v", e.Position, e.Err)
}
func (e *DecodeError) Unwrap() error { return e.Err }
