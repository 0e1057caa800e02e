package daemon

import "fmt"

// ErrorKind classifies daemon-side failures for logging and retry policy.
type ErrorKind string

const (
	ErrQueue      ErrorKind = "queue"
	ErrExtraction ErrorKind = "extraction"
	ErrStorage    ErrorKind = "storage"
	ErrDecay      ErrorKind = "decay"
)

// Error wraps a failure with its daemon subsystem. Everything but startup
// failures is logged at warn and retried on the next tick.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("daemon %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
