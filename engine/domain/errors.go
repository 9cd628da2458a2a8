package domain

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Kind classifies a pipeline failure. Every error crossing a component
// boundary carries exactly one kind so callers can decide how to degrade.
type Kind int

const (
	// KindTransport marks network or service unavailability (fetch,
	// embedding call, index call).
	KindTransport Kind = iota
	// KindTimeout marks a per-call deadline expiry, distinct from transport.
	KindTimeout
	// KindFormat marks an unrecognized source-document structure.
	KindFormat
	// KindData marks a malformed row; skipped per-row, never fatal.
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindFormat:
		return "format"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	Op   string // e.g. "listing.fetch", "ingest.upsert"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with an operation and kind.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Ef wraps a formatted message with an operation and kind.
func Ef(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Classify wraps an error from an external call, mapping deadline expiry to
// KindTimeout and everything else to KindTransport.
func Classify(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return E(KindTimeout, op, err)
	}
	return E(KindTransport, op, err)
}

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
