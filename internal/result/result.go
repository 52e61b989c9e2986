package result

// Result is a sum of a value and an error, the Go analogue of the
// original's tl::expected<T, Error>. Result[struct{}] degenerates to the
// Ok(())/Err(Error) shape used by void-returning operations.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok builds a successful Result.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Err builds a failed Result.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err, ok: false}
}

// HasValue reports whether the Result holds a value.
func (r Result[T]) HasValue() bool {
	return r.ok
}

// Value returns the held value and whether one is present. Callers that
// already checked HasValue can ignore the second return.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.ok
}

// Error returns the held error, or nil if the Result is Ok.
func (r Result[T]) Error() error {
	return r.err
}

// Unwrap returns the value, panicking if the Result is an error. Reserved
// for call sites that have already established the Result must be Ok
// (e.g. immediately after construction from a known-good literal).
func (r Result[T]) Unwrap() T {
	if !r.ok {
		panic("result: Unwrap called on an Err Result: " + r.err.Error())
	}
	return r.value
}
