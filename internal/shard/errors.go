package shard

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// Kind classifies structural shard errors.
type Kind int

const (
	// KindIncompatibleDepths is returned by Add for non-adjacent levels.
	KindIncompatibleDepths Kind = iota + 1
	// KindVariableMismatch is returned by Join when variable spaces differ.
	KindVariableMismatch
	// KindMalformedSwap is returned by Swap when d or d+1 is not an LHS level.
	KindMalformedSwap
	// KindOutOfRange is returned for depths or node indices outside the shard.
	KindOutOfRange
	// KindEmptyShard is returned when an operation would leave no source-to-sink path.
	KindEmptyShard
	// KindMalformedDump is returned by Parse.
	KindMalformedDump
)

func (k Kind) String() string {
	switch k {
	case KindIncompatibleDepths:
		return "incompatible-depths"
	case KindVariableMismatch:
		return "variable-mismatch"
	case KindMalformedSwap:
		return "malformed-swap"
	case KindOutOfRange:
		return "out-of-range"
	case KindEmptyShard:
		return "empty-shard"
	case KindMalformedDump:
		return "malformed-dump"
	default:
		return "unknown"
	}
}

// Error is a structural error raised by a shard operation.
type Error struct {
	Kind  Kind
	Op    string
	Depth int
	Msg   string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("shard %s at depth %d: %s", e.Op, e.Depth, e.Kind)
	}
	return fmt.Sprintf("shard %s at depth %d: %s: %s", e.Op, e.Depth, e.Kind, e.Msg)
}

// newError builds an *Error wrapped with a stack trace.
func newError(kind Kind, op string, depth int, format string, args ...interface{}) error {
	return goerrors.Wrap(&Error{Kind: kind, Op: op, Depth: depth, Msg: fmt.Sprintf(format, args...)}, 1)
}

// IsKind reports whether err carries a shard *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
