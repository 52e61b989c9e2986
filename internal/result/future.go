package result

import (
	"log/slog"
	"time"
)

// Future is a single-consumer handle to a Result[T] produced by a matching
// Promise[T]. For in-process operations the provider resolves the Promise
// synchronously inside the consumer's invocation goroutine, so IsReady
// returns true immediately upon return from the call that created the
// Future; the same type serves wire-backed transports where resolution
// happens later on a callback goroutine.
type Future[T any] struct {
	ch    chan Result[T]
	cache *Result[T]
	valid bool
}

// NewFuture creates a Future backed by a fresh channel, paired with the
// Promise that will resolve it.
func NewFuture[T any]() (Future[T], Promise[T]) {
	ch := make(chan Result[T], 1)
	return Future[T]{ch: ch, valid: true}, Promise[T]{ch: ch}
}

// Valid reports whether the result has not yet been consumed via Get or
// GetResult. It stays true across repeated IsReady/WaitFor polls.
func (f *Future[T]) Valid() bool {
	return f.valid
}

// IsReady performs a non-blocking (timeout == 0) or bounded peek at
// whether the Promise has resolved, without consuming the result.
func (f *Future[T]) IsReady(timeout time.Duration) bool {
	if !f.valid {
		return false
	}
	if f.cache != nil {
		return true
	}
	if timeout <= 0 {
		select {
		case r := <-f.ch:
			f.cache = &r
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case r := <-f.ch:
		f.cache = &r
		return true
	case <-t.C:
		return false
	}
}

// WaitFor blocks until the Promise resolves or d elapses, returning true if
// it became ready within the bound. It does not consume the result.
func (f *Future[T]) WaitFor(d time.Duration) bool {
	return f.IsReady(d)
}

// WaitUntil blocks until the Promise resolves or the absolute deadline
// passes. This implements the bounded-wait semantics the original's
// wait_until clearly intended; the original recurses into itself instead
// of delegating to the underlying future and never returns — that bug is
// not reproduced here.
func (f *Future[T]) WaitUntil(deadline time.Time) bool {
	return f.WaitFor(time.Until(deadline))
}

// GetResult blocks until the Promise resolves, then returns and consumes
// the Result. Calling it again without a fresh Promise returns a
// DefaultError Result ("future already consumed").
func (f *Future[T]) GetResult() Result[T] {
	if f.cache != nil {
		r := *f.cache
		f.cache = nil
		f.valid = false
		return r
	}
	if !f.valid {
		return Err[T](New(DefaultError, "future already consumed"))
	}
	r := <-f.ch
	f.valid = false
	return r
}

// Get blocks until ready and unwraps Ok. If the Result is Err, Get logs
// the error and aborts the process — this is the process-fatal
// convenience path the original documents as such; callers that need to
// handle errors must use GetResult instead.
func (f *Future[T]) Get() T {
	r := f.GetResult()
	v, ok := r.Value()
	if !ok {
		slog.Error("future result has no value", "error", r.Error())
		panic("vaf: Future.Get() called on an Err result: " + r.Error().Error())
	}
	return v
}

// Promise is the single-producer counterpart to Future[T].
type Promise[T any] struct {
	ch chan Result[T]
}

// SetValue resolves the Promise with a successful value.
func (p Promise[T]) SetValue(value T) {
	p.ch <- Ok(value)
}

// SetError resolves the Promise with a failure.
func (p Promise[T]) SetError(kind ErrorKind, msg string) {
	p.ch <- Err[T](New(kind, msg))
}

// SetResult resolves the Promise with an already-constructed Result.
func (p Promise[T]) SetResult(r Result[T]) {
	p.ch <- r
}
