// Package errkind classifies errors into the kinds enumerated in the
// error-handling design: user input, validation, remote, local, logical,
// and interrupt. It generalizes pkg/utils.Wrap by tagging the wrapped
// error with a Kind so the command layer can map it to an exit code
// without string-matching messages.
package errkind

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories from the error-handling design.
type Kind int

const (
	// Unknown is the zero value; never intentionally produced.
	Unknown Kind = iota
	// UserInput covers malformed dates, conflicting flags, missing
	// destination, invalid rule ids.
	UserInput
	// Validation covers duplicate rule ids, bad regex, unresolved
	// category names, invalid label tokens.
	Validation
	// Remote covers auth failure, rate-limit exhaustion, 5xx, malformed
	// responses from the remote ledger service.
	Remote
	// Local covers archive parse errors, unwritable destinations,
	// missing sibling changelog.
	Local
	// Logical covers attempted mutation of an immutable field — this is
	// recorded as a warning by callers, not surfaced as fatal normally.
	Logical
	// Interrupt covers user-initiated cancellation.
	Interrupt
)

func (k Kind) String() string {
	switch k {
	case UserInput:
		return "user-input"
	case Validation:
		return "validation"
	case Remote:
		return "remote"
	case Local:
		return "local"
	case Logical:
		return "logical"
	case Interrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// ExitCode maps a Kind onto the process exit codes from the external
// interfaces design: 0 success, 2 user input, 3 remote, 4 local.
func (k Kind) ExitCode() int {
	switch k {
	case UserInput, Validation:
		return 2
	case Remote:
		return 3
	case Local:
		return 4
	default:
		return 1
	}
}

// Fault is an error tagged with a Kind, wrapping an inner cause.
type Fault struct {
	Kind    Kind
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause == nil {
		return f.Message
	}
	return fmt.Sprintf("%s: %v", f.Message, f.Cause)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (f *Fault) Unwrap() error { return f.Cause }

// Wrap tags err with kind and a message, mirroring pkg/utils.Wrap's
// "%s: %w" contract but carrying a Kind for exit-code mapping. Returns
// nil if err is nil.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: kind, Message: message, Cause: err}
}

// New builds a Fault with no wrapped cause.
func New(kind Kind, message string) error {
	return &Fault{Kind: kind, Message: message}
}

// KindOf returns the Kind of err if it (or something it wraps) is a
// *Fault, and Unknown otherwise.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return Unknown
}
