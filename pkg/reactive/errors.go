package reactive

import (
	"errors"
	"fmt"
)

// ErrCycleDetected is the sentinel wrapped by CycleError. Use errors.Is to
// test for it after recovering from an evaluation panic.
var ErrCycleDetected = errors.New("reactive: cyclic dependency detected")

// CycleError reports that evaluating a derived node caused, directly or
// transitively, a read of itself. The engine detects this with a per-node
// re-entrancy guard and panics with a *CycleError instead of recursing to
// a stack overflow.
type CycleError struct {
	// NodeID identifies the node whose evaluation re-entered itself.
	NodeID uint64
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("reactive: cyclic dependency detected at node %d", e.NodeID)
}

// Unwrap returns ErrCycleDetected for errors.Is support.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}
