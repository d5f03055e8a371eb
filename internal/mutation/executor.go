// internal/mutation/executor.go
//
// Executor wraps one write operation. It tracks the pending state (the
// console's only duplicate-submission guard), and on completion invalidates
// the declared cache tags and emits exactly one toast. It never touches cached
// values directly: visible updates always come from a refetch.

package mutation

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/toast"
	"github.com/kingrea/strata/internal/validation"
)

// ErrPending is returned when Run is called while a previous run is in flight.
var ErrPending = errors.New("mutation: already pending")

// Spec describes one mutation.
type Spec[In, Out any] struct {
	// Name labels log lines and default toasts ("Create holiday").
	Name string
	// Do performs the request.
	Do func(ctx context.Context, in In) (Out, error)
	// Invalidates lists the tags dirtied on success.
	Invalidates []query.Tag
	// Keys lists exact keys dirtied on success.
	Keys func(in In, out Out) []query.Key
	// Success renders the success toast description. Nil uses Name.
	Success func(in In, out Out) string
	// Failure is the generic fallback when the server sends no message.
	Failure string
	// OnSuccess and OnError run after invalidation and the toast.
	OnSuccess func(in In, out Out)
	OnError   func(in In, err error)
}

// Executor runs a Spec.
type Executor[In, Out any] struct {
	spec    Spec[In, Out]
	cache   *query.Cache
	sink    toast.Sink
	log     logrus.FieldLogger
	pending atomic.Bool
}

type options struct {
	log logrus.FieldLogger
}

// Option configures an Executor.
type Option func(*options)

// WithLogger records each outcome: failures at warn, successes at debug.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// New builds an executor. A nil sink discards toasts.
func New[In, Out any](spec Spec[In, Out], cache *query.Cache, sink toast.Sink, opts ...Option) *Executor[In, Out] {
	if sink == nil {
		sink = toast.Discard
	}
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	var log logrus.FieldLogger
	if o.log != nil {
		log = o.log.WithField("mutation", spec.Name)
	}
	return &Executor[In, Out]{spec: spec, cache: cache, sink: sink, log: log}
}

// IsPending reports whether a run is in flight.
func (e *Executor[In, Out]) IsPending() bool {
	return e.pending.Load()
}

// Run performs the mutation. Errors are returned for callers that branch on
// the outcome; the toast has already been shown.
func (e *Executor[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	var zero Out
	if !e.pending.CompareAndSwap(false, true) {
		if e.log != nil {
			e.log.Debug("mutation already pending")
		}
		return zero, ErrPending
	}
	defer e.pending.Store(false)

	out, err := e.spec.Do(ctx, in)
	if err != nil {
		if e.log != nil {
			e.log.WithError(err).WithField("status", apiclient.StatusCode(err)).Warn("mutation failed")
		}
		e.sink.Show(toast.Failure("Error", apiclient.Message(err, e.failureText())))
		if e.spec.OnError != nil {
			e.spec.OnError(in, err)
		}
		return zero, err
	}

	if e.cache != nil {
		if len(e.spec.Invalidates) > 0 {
			e.cache.Invalidate(e.spec.Invalidates...)
		}
		if e.spec.Keys != nil {
			for _, k := range e.spec.Keys(in, out) {
				e.cache.InvalidateKey(k)
			}
		}
	}
	desc := e.spec.Name
	if e.spec.Success != nil {
		desc = e.spec.Success(in, out)
	}
	if e.log != nil {
		e.log.Debug("mutation succeeded")
	}
	e.sink.Show(toast.Success("Success", desc))
	if e.spec.OnSuccess != nil {
		e.spec.OnSuccess(in, out)
	}
	return out, nil
}

func (e *Executor[In, Out]) failureText() string {
	if e.spec.Failure != "" {
		return e.spec.Failure
	}
	if e.spec.Name != "" {
		return "Failed to " + lowerFirst(e.spec.Name)
	}
	return "Request failed"
}

// Reject shows the single destructive toast for a submission blocked before
// any request, and returns err so callers can propagate it.
func Reject(sink toast.Sink, err error) error {
	if sink == nil || err == nil {
		return err
	}
	if validation.IsValidation(err) {
		sink.Show(toast.Failure("Validation error", validation.Message(err)))
		return err
	}
	sink.Show(toast.Failure("Error", apiclient.Message(err, err.Error())))
	return err
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
