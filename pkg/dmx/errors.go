package dmx

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can tell fatal conditions apart
type Kind string

const (
	KindStartup  Kind = "startup"  // adapter not found or port open failure
	KindTransmit Kind = "transmit" // write error or device gone mid-stream
	KindIntent   Kind = "intent"   // malformed operator command
)

// Kind sentinels for errors.Is
var (
	ErrStartup  = &Error{Kind: KindStartup}
	ErrTransmit = &Error{Kind: KindTransmit}
	ErrIntent   = &Error{Kind: KindIntent}
)

// ErrAdapterNotFound is returned when no serial device matches the search pattern
var ErrAdapterNotFound = errors.New("no USB serial adapter found")

// Error wraps a failure with its kind and the operation that failed
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s error", e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// StartupError wraps err as a startup failure
func StartupError(op string, err error) error {
	return &Error{Kind: KindStartup, Op: op, Err: err}
}

// TransmitError wraps err as a runtime transmission failure
func TransmitError(op string, err error) error {
	return &Error{Kind: KindTransmit, Op: op, Err: err}
}

// IntentError wraps err as a rejected operator intent
func IntentError(op string, err error) error {
	return &Error{Kind: KindIntent, Op: op, Err: err}
}

// KindOf returns the kind of err, or "" if it is not classified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
