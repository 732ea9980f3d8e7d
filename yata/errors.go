package yata

import (
	"errors"
	"fmt"

	"golang.org/x/xerrors"
)

// Sentinel error kinds, matched with errors.Is.
var (
	// ErrInvalidPosition is returned when a caller names a document
	// position outside [0, len(visible text)].
	ErrInvalidPosition = errors.New("yata: invalid position")

	// ErrUnintegratable is returned (internally; see MissingDependency)
	// when an op's anchor is not yet known to the replica.
	ErrUnintegratable = errors.New("yata: op anchor not yet known")

	// ErrMissingDependency surfaces once a whole Integrate pass ends with
	// ops still queued: every op in the batch was unintegratable.
	ErrMissingDependency = errors.New("yata: remote ops depend on spans never received")

	// ErrMalformedFrame is returned when an op stream fails framing or
	// UTF-8 decoding.
	ErrMalformedFrame = errors.New("yata: malformed op frame")
)

// InvariantError is the structured payload of a check_consistency panic.
// It names which invariant failed and carries
// enough context to diagnose it without re-running the check under a
// debugger.
type InvariantError struct {
	Invariant string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("yata: invariant %q violated: %s", e.Invariant, e.Detail)
}

func invariantViolation(invariant, format string, args ...any) {
	panic(&InvariantError{Invariant: invariant, Detail: fmt.Sprintf(format, args...)})
}

// wrapUnintegratable chains anchor into an ErrUnintegratable so the caller
// can see exactly which ID blocked the op.
func wrapUnintegratable(anchor ID) error {
	return xerrors.Errorf("anchor %s not resolved: %w", anchor, ErrUnintegratable)
}

// wrapMissingDependency escalates the last Unintegratable seen in a pass
// once the whole batch makes no further progress.
func wrapMissingDependency(last error) error {
	return xerrors.Errorf("integrate made no progress, last blocker: %v: %w", last, ErrMissingDependency)
}
