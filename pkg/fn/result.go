// Package fn provides a small Result type, slice helpers, and composable
// pipeline stages used by the refresh pipeline.
package fn

import "fmt"

// Result holds either a value or an error, never both.
type Result[T any] struct {
	val T
	err error
	ok  bool
}

// Ok creates a successful Result.
func Ok[T any](v T) Result[T] { return Result[T]{val: v, ok: true} }

// Err creates a failed Result.
func Err[T any](err error) Result[T] { return Result[T]{err: err} }

// Errf creates a failed Result from a format string.
func Errf[T any](format string, args ...any) Result[T] {
	return Result[T]{err: fmt.Errorf(format, args...)}
}

// FromPair creates a Result from a (value, error) pair.
func FromPair[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

// IsOk reports success.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr reports failure.
func (r Result[T]) IsErr() bool { return !r.ok }

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }

// UnwrapOr returns the value, or fallback on error.
func (r Result[T]) UnwrapOr(fallback T) T {
	if !r.ok {
		return fallback
	}
	return r.val
}

// Must returns the value or panics. Test helper.
func (r Result[T]) Must() T {
	if !r.ok {
		panic(r.err)
	}
	return r.val
}

// MapResult transforms Result[T] into Result[U], propagating errors.
func MapResult[T, U any](r Result[T], f func(T) U) Result[U] {
	if !r.ok {
		return Err[U](r.err)
	}
	return Ok(f(r.val))
}
