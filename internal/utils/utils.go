package utils

import (
	"context"
)

type result[T any] struct {
	value T
	err   error
}

// Await runs fn in its own goroutine and returns when it finishes or ctx is
// done, whichever comes first. fn keeps running after an early return; its
// result is discarded.
func Await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	done := make(chan result[T], 1)
	go func() {
		value, err := fn()
		done <- result[T]{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-done:
		return res.value, res.err
	}
}
