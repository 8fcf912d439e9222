package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is the sentinel all CycleError values wrap, for errors.Is checks.
var ErrCycle = errors.New("cycle detected in dependency graph")

// CycleError reports that BuildGraph found one or more cycles. It is the
// only fatal error this package raises: when returned, no task has been
// marked started.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	if e == nil || len(e.Cycles) == 0 {
		return ErrCycle.Error()
	}
	parts := make([]string, len(e.Cycles))
	for i, c := range e.Cycles {
		parts[i] = strings.Join(c, " -> ")
	}
	return fmt.Sprintf("%s: %s", ErrCycle.Error(), strings.Join(parts, "; "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }
