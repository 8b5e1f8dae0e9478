package companion

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Status is the outcome of an AI call
type Status string

const (
	StatusOK      Status = "ok"
	StatusTimeout Status = "timeout"
	StatusFailed  Status = "failed"
)

// Result carries the value of an AI call or the reason it has none.
// Callers must check Status before using Value.
type Result[T any] struct {
	Value  T
	Status Status
	Err    error
}

// OK reports whether the call succeeded
func (r Result[T]) OK() bool {
	return r.Status == StatusOK
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusOK}
}

func failed[T any](err error) Result[T] {
	return Result[T]{Status: StatusFailed, Err: err}
}

func timedOut[T any](err error) Result[T] {
	return Result[T]{Status: StatusTimeout, Err: err}
}

var (
	// ErrDisabled is returned by the Disabled service
	ErrDisabled = errors.New("companion service is disabled")
	// ErrMalformedResponse is returned when the AI output cannot be used
	ErrMalformedResponse = errors.New("malformed AI response")
)

// bounded runs fn under timeout and waits no longer than that, even when fn
// ignores its context. A panic in fn becomes a failed result.
func bounded[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) Result[T] {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- failed[T](goerr.New("panic in AI call", goerr.V("panic", r)))
			}
		}()

		v, err := fn(ctx)
		if err != nil {
			done <- classify[T](ctx, err)
			return
		}
		done <- ok(v)
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		return classify[T](ctx, ctx.Err())
	}
}

func classify[T any](ctx context.Context, err error) Result[T] {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timedOut[T](goerr.Wrap(err, "AI call timed out"))
	}
	return failed[T](err)
}
