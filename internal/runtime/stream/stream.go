// Package stream implements the lazy, single-pass stream abstraction
// (spec §4.I): a producer pulled one element at a time by its consumer,
// with lazy intermediate operators and eager terminal operators.
package stream

import "errors"

// ErrDone is an exhaustion sentinel. No Stream in this package returns
// it: exhaustion is reported as ok=false, and a non-nil error from Next
// is always a terminal failure.
var ErrDone = errors.New("stream: done")

// Stream is a single-pass, pull-based producer of T. Next returns the
// next element, or ok=false when the stream is exhausted, or a non-nil
// error if the source failed. Once Next returns an error, every
// subsequent call must return the same error (spec §7: "once a stream
// fails, all downstream operators terminate with the same error").
type Stream[T any] interface {
	Next() (value T, ok bool, err error)
}

// PullFunc adapts a plain function into a Stream.
type PullFunc[T any] func() (T, bool, error)

func (f PullFunc[T]) Next() (T, bool, error) { return f() }

// FromSlice returns a Stream that yields xs in order, then completes.
func FromSlice[T any](xs []T) Stream[T] {
	i := 0
	return PullFunc[T](func() (T, bool, error) {
		var zero T
		if i >= len(xs) {
			return zero, false, nil
		}
		v := xs[i]
		i++
		return v, true, nil
	})
}

// FromFunc wraps an arbitrary generator function as a Stream.
func FromFunc[T any](f func() (T, bool, error)) Stream[T] {
	return PullFunc[T](f)
}

// failed wraps a terminal error so every subsequent Next returns it
// (spec §7's "sticky" failure semantics).
type failed[T any] struct {
	err error
}

func (f *failed[T]) Next() (T, bool, error) {
	var zero T
	return zero, false, f.err
}

func sticky[T any](err error) Stream[T] { return &failed[T]{err: err} }
