// Package result carries the outcome of a user action to the front end as
// one of idle, loading, success or error.
package result

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/bazaar/internal/common"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorKind is a stable name for a class of failure.
type ErrorKind string

const (
	KindNone                 ErrorKind = ""
	KindUnauthenticated      ErrorKind = "unauthenticated"
	KindRemoteMutationFailed ErrorKind = "remote_mutation_failed"
	KindLinkageInconsistent  ErrorKind = "linkage_inconsistent"
	KindNotFound             ErrorKind = "not_found"
	KindTimeout              ErrorKind = "timeout"
	KindNetworkUnavailable   ErrorKind = "network_unavailable"
	KindMalformedTimestamp   ErrorKind = "malformed_timestamp"
	KindRemoteFailed         ErrorKind = "remote_failed"
	KindCanceled             ErrorKind = "canceled"
	KindUnknown              ErrorKind = "unknown"
)

// State is what a front end renders for one action.
type State[T any] struct {
	Status  Status
	Value   T
	Kind    ErrorKind
	Message string
	// Warning is set on a success whose side effects only partly applied.
	Warning string
	Err     error
}

func Idle[T any]() State[T] { return State[T]{Status: StatusIdle} }

func Loading[T any]() State[T] { return State[T]{Status: StatusLoading} }

func Succeeded[T any](v T) State[T] { return State[T]{Status: StatusSuccess, Value: v} }

func Failed[T any](err error) State[T] {
	return State[T]{Status: StatusError, Kind: Classify(err), Message: err.Error(), Err: err}
}

// From turns a call's return values into a final state. A linkage
// inconsistency is reported as success with a warning, since the resource
// the user asked for does exist.
func From[T any](v T, err error) State[T] {
	switch {
	case err == nil:
		return Succeeded(v)
	case errors.Is(err, common.ErrLinkageInconsistent):
		s := Succeeded(v)
		s.Kind = KindLinkageInconsistent
		s.Warning = err.Error()
		s.Err = err
		return s
	default:
		s := Failed[T](err)
		s.Value = v
		return s
	}
}

func (s State[T]) OK() bool { return s.Status == StatusSuccess }

// Classify maps err onto an ErrorKind. The order matters: a mutation that
// failed because of a timeout is reported as a timeout.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, common.ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, common.ErrLinkageInconsistent):
		return KindLinkageInconsistent
	case errors.Is(err, common.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, common.ErrNetworkUnavailable):
		return KindNetworkUnavailable
	case errors.Is(err, common.ErrRemoteMutationFailed):
		return KindRemoteMutationFailed
	case errors.Is(err, common.ErrNotFound):
		return KindNotFound
	case errors.Is(err, common.ErrMalformedTimestamp):
		return KindMalformedTimestamp
	case errors.Is(err, common.ErrRemoteFailed):
		return KindRemoteFailed
	default:
		return KindUnknown
	}
}

// Run emits Loading, calls fn and emits the final state, which it also
// returns. emit may be nil.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error), emit func(State[T])) State[T] {
	if emit == nil {
		emit = func(State[T]) {}
	}
	emit(Loading[T]())
	s := From(fn(ctx))
	emit(s)
	return s
}
