// Package attempt records the outcome of best-effort side effects.
package attempt

import "errors"

// ErrNotConfigured marks an integration that was never wired up.
var ErrNotConfigured = errors.New("integration not configured")

// Attempt is either a value or the error that prevented it.
type Attempt[T any] struct {
	Value T
	Err   error
}

func Try[T any](fn func() (T, error)) Attempt[T] {
	v, err := fn()
	if err != nil {
		var zero T
		return Attempt[T]{Value: zero, Err: err}
	}
	return Attempt[T]{Value: v}
}

func Skipped[T any]() Attempt[T] {
	return Attempt[T]{Err: ErrNotConfigured}
}

func (a Attempt[T]) OK() bool {
	return a.Err == nil
}

// Or returns the value, or fallback when the attempt failed.
func (a Attempt[T]) Or(fallback T) T {
	if a.Err != nil {
		return fallback
	}
	return a.Value
}
