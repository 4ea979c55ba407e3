package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOperation marks dispatch of a name with no registration.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrMaxDepth marks resolution that exceeded the configured depth.
	ErrMaxDepth = errors.New("maximum resolution depth exceeded")
)

// DispatchKind separates the two dispatch failure classes.
type DispatchKind int

const (
	// UnknownOperation means the expression head names nothing registered.
	UnknownOperation DispatchKind = iota
	// OperationFailed means the operation ran and reported an error.
	OperationFailed
)

// DispatchError reports a failed dispatch. For OperationFailed the
// operation's own error sits in Cause, wrapped exactly once.
type DispatchError struct {
	Kind  DispatchKind
	Name  string
	Cause error
}

func (e *DispatchError) Error() string {
	if e.Kind == UnknownOperation {
		return fmt.Sprintf("unknown operation %s", e.Name)
	}
	return fmt.Sprintf("operation %s failed: %v", e.Name, e.Cause)
}

func (e *DispatchError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrUnknownOperation) match without a cause
// chain to unwrap into.
func (e *DispatchError) Is(target error) bool {
	return target == ErrUnknownOperation && e.Kind == UnknownOperation
}

// ResolutionError locates a failure in the expression tree: the
// enclosing operation and the argument position that failed, 0-based.
// The frame nearest the failure creates it; outer frames pass it through
// untouched, so the terminal error always names the deepest site.
type ResolutionError struct {
	Op       string
	ArgIndex int
	Depth    int // set when the depth guard fired
	Err      error
}

func (e *ResolutionError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("resolution aborted at depth %d: %v", e.Depth, e.Err)
	}
	return fmt.Sprintf("argument %d of %s: %v", e.ArgIndex, e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
