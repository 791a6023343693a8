package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds the graph can report. Callers
// classify with errors.Is; the wrapped message carries the detail.
var (
	// ErrNotFound reports a lookup by name or handle that matched nothing.
	// Operations that return it perform no mutation.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName reports a process registration colliding with an
	// existing name when overwriting was not permitted.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrProducerConflict reports an output edge declared for a node that
	// already has a different producer. The graph is left unchanged.
	ErrProducerConflict = errors.New("producer conflict")

	// ErrCorrupt reports a persisted record set that violates the graph
	// invariants. A failed Read never replaces the live graph.
	ErrCorrupt = errors.New("corrupt pipeline data")
)

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func duplicatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDuplicateName, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProducerConflict, fmt.Sprintf(format, args...))
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
