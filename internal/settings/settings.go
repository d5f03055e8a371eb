// Package settings implements the console's panels. Each panel reads through
// the query cache, writes through mutation executors, and reports every
// outcome as exactly one toast.
package settings

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/capability"
	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/toast"
)

var (
	// ErrNotConfirmed is returned when the user declines a confirm prompt.
	ErrNotConfirmed = errors.New("settings: not confirmed")
	// ErrForbidden is returned when the capabilities do not allow an action.
	ErrForbidden = errors.New("settings: not permitted")
	// ErrInvalidState is returned for an action the panel's state does not offer.
	ErrInvalidState = errors.New("settings: action not available")
)

// API is the part of the HTTP client panels use.
type API interface {
	Get(ctx context.Context, path string, out any, opts ...apiclient.RequestOption) error
	Post(ctx context.Context, path string, body, out any, opts ...apiclient.RequestOption) error
	Patch(ctx context.Context, path string, body, out any, opts ...apiclient.RequestOption) error
	Put(ctx context.Context, path string, body, out any, opts ...apiclient.RequestOption) error
	Delete(ctx context.Context, path string, opts ...apiclient.RequestOption) error
	Origin() string
}

// Confirmer asks the user a yes/no question and blocks for the answer.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

var (
	AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })
	NeverConfirm  Confirmer = ConfirmFunc(func(context.Context, string) bool { return false })
)

// Deps is what every panel is built from.
type Deps struct {
	API     API
	Cache   *query.Cache
	Toasts  toast.Sink
	Confirm Confirmer
	Caps    capability.Capabilities
	Me      domain.CurrentUser
	Logger  logrus.FieldLogger
}

func (d Deps) normalize(component string) Deps {
	if d.Cache == nil {
		d.Cache = query.New()
	}
	if d.Toasts == nil {
		d.Toasts = toast.Discard
	}
	if d.Confirm == nil {
		d.Confirm = NeverConfirm
	}
	if d.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		d.Logger = l
	}
	d.Logger = d.Logger.WithField("component", component)
	return d
}

func (d Deps) confirm(ctx context.Context, prompt string) error {
	if !d.Confirm.Confirm(ctx, prompt) {
		return ErrNotConfirmed
	}
	return nil
}

// fetch returns a query fetcher that GETs path into a fresh T.
func fetch[T any](api API, path string, opts ...apiclient.RequestOption) query.Fetcher[T] {
	return func(ctx context.Context) (T, error) {
		var out T
		err := api.Get(ctx, path, &out, opts...)
		return out, err
	}
}
