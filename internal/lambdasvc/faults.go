// Where: cli/internal/lambdasvc/faults.go
// What: Fault taxonomy for remote service calls.
// Why: Give every failure an operation name, identity, and classified kind.
package lambdasvc

import (
	"errors"
	"fmt"
)

// ErrFunctionNotFound marks the expected miss from GetFunction. It drives
// the create branch and must never abort the run on the read path.
var ErrFunctionNotFound = errors.New("function not found")

// Kind classifies a remote failure.
type Kind string

const (
	KindNotFound     Kind = "NotFound"
	KindConflict     Kind = "Conflict"
	KindThrottled    Kind = "Throttled"
	KindInvalidInput Kind = "InvalidInput"
	KindTimeout      Kind = "Timeout"
	KindFault        Kind = "Fault"
)

// Fault wraps a failed remote call with the operation and function it was
// issued against. It unwraps to the underlying SDK error.
type Fault struct {
	Op       string
	Function string
	Kind     Kind
	Err      error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", f.Op, f.Function, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsKind reports whether err is a Fault of the given kind.
func IsKind(err error, kind Kind) bool {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.Kind == kind
	}
	return false
}

// IsNotFound reports whether err represents a missing function.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFunctionNotFound) || IsKind(err, KindNotFound)
}
