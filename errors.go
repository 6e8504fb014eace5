//////////////////////////////////////////////////////////////////////////////
//
// Error taxonomy for the playback channel engine
//
//////////////////////////////////////////////////////////////////////////////

package blackbox

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotInitialized is returned by operations that require a decoder
	// handle before Initialize has succeeded.
	ErrNotInitialized = errors.New("channel not initialized")

	// ErrInvalidState is returned when an operation is attempted in a
	// lifecycle state that forbids it, e.g. a second Initialize.
	ErrInvalidState = errors.New("operation not allowed in current state")

	errSubscriberNotFound = errors.New("subscriber not found")
)

// DecoderError wraps a failure reported by the external decoder. Op names
// the decoder operation that failed ("open", "read", "seek").
type DecoderError struct {
	Op    string
	Cause error
}

func (e *DecoderError) Error() string {
	return fmt.Sprintf("decoder %s: %v", e.Op, e.Cause)
}

// Unwrap exposes the underlying decoder failure to errors.Is/As.
func (e *DecoderError) Unwrap() error {
	return e.Cause
}
