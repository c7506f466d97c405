package wire

import (
	"errors"
	"fmt"
)

// ErrNilMessage is returned when a nil message is passed to a Marshal function.
var ErrNilMessage = errors.New("wire: nil message")

// DecodeError reports malformed wire bytes. Message names the message being decoded and Offset is
// the byte offset within that message's encoding.
type DecodeError struct {
	Message string
	Offset  int
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: decode %s at offset %d: %v", e.Message, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
