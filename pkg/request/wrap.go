package request

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/grovetools/inbox/errors"
)

// Wrap runs fn and captures its result as Success or Failed.
// It never returns an error and never lets a panic in fn escape.
func Wrap[T any](ctx context.Context, fn func(context.Context) (T, error)) (s State[T]) {
	defer func() {
		if r := recover(); r != nil {
			s = Failed[T](errors.New(errors.ErrCodeInternal, fmt.Sprintf("request panicked: %v", r)))
		}
	}()

	v, err := fn(ctx)
	return FromResult(v, err)
}

// FromResult synchronously converts an already-known result, such as
// data fetched before the consumer started, into a State. No I/O happens.
func FromResult[T any](v T, err error) State[T] {
	if err != nil {
		return Failed[T](err)
	}
	return Success(v)
}

// Slot holds one State that a single writer replaces wholesale while
// any number of readers load it. A zero Slot reads as Empty.
type Slot[T any] struct {
	p atomic.Pointer[State[T]]
}

// Load returns the current state.
func (s *Slot[T]) Load() State[T] {
	if st := s.p.Load(); st != nil {
		return *st
	}
	return Empty[T]()
}

// Store replaces the current state.
func (s *Slot[T]) Store(st State[T]) {
	s.p.Store(&st)
}
