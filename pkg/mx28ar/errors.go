package mx28ar

import (
	"errors"
	"fmt"

	"github.com/l3xz/dynamixel-bridge/pkg/servobus"
)

// ErrPrecondition marks a malformed call. Retrying it unchanged fails again.
var ErrPrecondition = errors.New("precondition violated")

// Precondition failures. All of them wrap ErrPrecondition.
var (
	ErrLengthMismatch = fmt.Errorf("%w: value count does not match group size", ErrPrecondition)
	ErrMissingCoxa    = fmt.Errorf("%w: missing coxa entry", ErrPrecondition)
	ErrUnknownCoxa    = fmt.Errorf("%w: unknown coxa id", ErrPrecondition)
	ErrOutOfRange     = fmt.Errorf("%w: value not representable in register steps", ErrPrecondition)
)

// BusError reports a failed bus transaction. The whole batched call failed.
type BusError struct {
	Op       string            // "write" or "read"
	Register servobus.Register // Register addressed by the frame
	Err      error             // Underlying transport error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus error during %s of %s: %v", e.Op, e.Register.Name, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// IsBusError returns true if err came from the bus rather than the caller.
func IsBusError(err error) bool {
	var busErr *BusError
	return errors.As(err, &busErr)
}

// IsPrecondition returns true if err was caused by a malformed call.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition)
}
