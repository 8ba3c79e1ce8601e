// Package request tracks the outcome of asynchronous fetches as a closed
// set of states: empty, loading, success and failed.
package request

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/inbox/errors"
)

// Kind identifies which case of a State is active.
type Kind int

const (
	KindEmpty Kind = iota
	KindLoading
	KindSuccess
	KindFailed
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindFailed:
		return "failed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "empty", "":
		return KindEmpty, nil
	case "loading":
		return KindLoading, nil
	case "success":
		return KindSuccess, nil
	case "failed":
		return KindFailed, nil
	}
	return KindEmpty, fmt.Errorf("unknown request state %q", s)
}

// State is the outcome of the most recent fetch for one resource.
// Exactly one case is active. The zero value is Empty.
type State[T any] struct {
	kind Kind
	data T
	err  *errors.InboxError
}

// Empty returns the state of a resource that was never fetched.
func Empty[T any]() State[T] {
	return State[T]{kind: KindEmpty}
}

// Loading returns the state of a resource with a fetch in flight.
func Loading[T any]() State[T] {
	return State[T]{kind: KindLoading}
}

// Success returns the state of a resource whose last fetch returned v.
func Success[T any](v T) State[T] {
	return State[T]{kind: KindSuccess, data: v}
}

// Failed returns the state of a resource whose last fetch failed.
// Errors that are not already *errors.InboxError are wrapped as INTERNAL_ERROR.
func Failed[T any](err error) State[T] {
	return State[T]{kind: KindFailed, err: detail(err)}
}

func detail(err error) *errors.InboxError {
	if err == nil {
		return errors.New(errors.ErrCodeInternal, "unknown failure")
	}
	if inboxErr, ok := errors.As(err); ok {
		return inboxErr
	}
	return errors.Wrap(err, errors.ErrCodeInternal, err.Error())
}

// Kind returns the active case.
func (s State[T]) Kind() Kind { return s.kind }

// Data returns the payload and true when the state is Success.
func (s State[T]) Data() (T, bool) {
	if s.kind != KindSuccess {
		var zero T
		return zero, false
	}
	return s.data, true
}

// Err returns the failure detail when the state is Failed, nil otherwise.
func (s State[T]) Err() *errors.InboxError {
	if s.kind != KindFailed {
		return nil
	}
	return s.err
}

// Match dispatches on the active case. Every case must be handled.
func Match[T, R any](
	s State[T],
	empty func() R,
	loading func() R,
	success func(T) R,
	failed func(*errors.InboxError) R,
) R {
	switch s.kind {
	case KindLoading:
		return loading()
	case KindSuccess:
		return success(s.data)
	case KindFailed:
		return failed(s.err)
	default:
		return empty()
	}
}

type wireState[T any] struct {
	State string             `json:"state"`
	Data  *T                 `json:"data,omitempty"`
	Error *errors.InboxError `json:"error,omitempty"`
}

// MarshalJSON encodes the state as {"state": ..., "data"|"error": ...}.
func (s State[T]) MarshalJSON() ([]byte, error) {
	w := wireState[T]{State: s.kind.String()}
	switch s.kind {
	case KindSuccess:
		w.Data = &s.data
	case KindFailed:
		w.Error = s.err
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (s *State[T]) UnmarshalJSON(b []byte) error {
	var w wireState[T]
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	kind, err := parseKind(w.State)
	if err != nil {
		return err
	}
	switch kind {
	case KindSuccess:
		if w.Data == nil {
			return fmt.Errorf("success state without data")
		}
		*s = Success(*w.Data)
	case KindFailed:
		if w.Error == nil {
			*s = Failed[T](nil)
		} else {
			*s = Failed[T](w.Error)
		}
	case KindLoading:
		*s = Loading[T]()
	default:
		*s = Empty[T]()
	}
	return nil
}
