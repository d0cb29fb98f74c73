package tonegraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownNode is returned when node key is stale or never existed.
	ErrUnknownNode = errors.New("unknown node")
	// ErrUnknownEndpoint is returned when endpoint doesn't exist.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	// ErrUnknownConnection is returned when connection doesn't exist.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrKindMismatch is returned when connected endpoints have different
	// kinds.
	ErrKindMismatch = errors.New("endpoint kind mismatch")
	// ErrIncompatibleDirection is returned when connection source is not an
	// output or destination is not an input.
	ErrIncompatibleDirection = errors.New("incompatible endpoint direction")
	// ErrCycleDetected is returned when connections form a cycle without
	// feedback edge.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrQueueOverflow is returned when external event can't be queued.
	ErrQueueOverflow = errors.New("queue overflow")
	// ErrTopologyFrozen is returned when compiled graph is modified.
	ErrTopologyFrozen = errors.New("topology frozen")
	// ErrValueConflict is returned when value input already has a source.
	ErrValueConflict = errors.New("value input already driven")
	// ErrDuplicateName is returned when node name is already taken.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrInvalidOffset is returned when frame offset is outside the block.
	ErrInvalidOffset = errors.New("invalid frame offset")
)

// ConnectError is returned when connection can't be made.
type ConnectError struct {
	From, To string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s -> %s: %v", e.From, e.To, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// CycleError lists nodes of every cycle not broken by a feedback edge.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	s := make([]string, 0, len(e.Cycles))
	for _, c := range e.Cycles {
		s = append(s, "["+strings.Join(c, " ")+"]")
	}
	return fmt.Sprintf("%v: %s", ErrCycleDetected, strings.Join(s, ", "))
}

// Is checks if err is ErrCycleDetected.
func (e *CycleError) Is(err error) bool {
	return err == ErrCycleDetected
}
