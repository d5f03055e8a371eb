package settings

import (
	"context"
	"fmt"
	"sort"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/mutation"
	"github.com/kingrea/strata/internal/query"
)

// Resource describes one simple CRUD collection. T is the stored record and
// D the create/edit draft.
type Resource[T, D any] struct {
	// Name is the singular display name ("Holiday").
	Name string
	// Path is the collection endpoint; items live at Path/<id>.
	Path string
	// ListOptions scope the list request (e.g. a userId query).
	ListOptions []apiclient.RequestOption
	// Key caches the list.
	Key query.Key
	// Tags are extra families dirtied by every write.
	Tags []query.Tag
	// Enabled gates the list read. Nil means always.
	Enabled func() bool
	ID      func(T) string
	Label   func(T) string
	// Less orders the list. Nil keeps server order.
	Less func(a, b T) bool
	// Validate checks a draft against the cached list before any request.
	// selfID is empty on create.
	Validate func(draft D, existing []T, selfID string) error
	// Body turns a draft into the request body. Nil sends the draft.
	Body func(D) any
}

type updateInput[D any] struct {
	ID    string
	Draft D
}

// Panel is a generic list/create/update/delete panel.
type Panel[T, D any] struct {
	deps   Deps
	res    Resource[T, D]
	create *mutation.Executor[D, T]
	update *mutation.Executor[updateInput[D], T]
	remove *mutation.Executor[T, struct{}]
}

// NewPanel wires a panel for res.
func NewPanel[T, D any](deps Deps, res Resource[T, D]) *Panel[T, D] {
	deps = deps.normalize("settings." + res.Name)
	p := &Panel[T, D]{deps: deps, res: res}
	dirtyKey := func() []query.Key { return []query.Key{res.Key} }

	p.create = mutation.New(mutation.Spec[D, T]{
		Name: "Create " + lower(res.Name),
		Do: func(ctx context.Context, d D) (T, error) {
			var out T
			err := deps.API.Post(ctx, res.Path, p.body(d), &out)
			return out, err
		},
		Invalidates: res.Tags,
		Keys:        func(D, T) []query.Key { return dirtyKey() },
		Success:     func(D, T) string { return res.Name + " created" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))

	p.update = mutation.New(mutation.Spec[updateInput[D], T]{
		Name: "Update " + lower(res.Name),
		Do: func(ctx context.Context, in updateInput[D]) (T, error) {
			var out T
			err := deps.API.Patch(ctx, res.Path+"/"+pathEscape(in.ID), p.body(in.Draft), &out)
			return out, err
		},
		Invalidates: res.Tags,
		Keys:        func(updateInput[D], T) []query.Key { return dirtyKey() },
		Success:     func(updateInput[D], T) string { return res.Name + " updated" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))

	p.remove = mutation.New(mutation.Spec[T, struct{}]{
		Name: "Delete " + lower(res.Name),
		Do: func(ctx context.Context, row T) (struct{}, error) {
			return struct{}{}, deps.API.Delete(ctx, res.Path+"/"+pathEscape(res.ID(row)))
		},
		Invalidates: res.Tags,
		Keys:        func(T, struct{}) []query.Key { return dirtyKey() },
		Success:     func(T, struct{}) string { return res.Name + " deleted" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	return p
}

// Name returns the resource's display name.
func (p *Panel[T, D]) Name() string { return p.res.Name }

// Key returns the list's cache key.
func (p *Panel[T, D]) Key() query.Key { return p.res.Key }

// Label renders a row for prompts and lists.
func (p *Panel[T, D]) Label(row T) string { return p.res.Label(row) }

// List reads the collection, sorted when the resource defines an order.
func (p *Panel[T, D]) List(ctx context.Context) (query.Result[[]T], error) {
	enabled := p.res.Enabled == nil || p.res.Enabled()
	res, err := query.Read(ctx, p.deps.Cache, p.res.Key, fetch[[]T](p.deps.API, p.res.Path, p.res.ListOptions...), query.Enabled(enabled))
	if err != nil {
		return res, fmt.Errorf("settings: list %s: %w", lower(p.res.Name), err)
	}
	if p.res.Less != nil && len(res.Data) > 1 {
		sorted := append([]T(nil), res.Data...)
		sort.SliceStable(sorted, func(i, j int) bool { return p.res.Less(sorted[i], sorted[j]) })
		res.Data = sorted
	}
	return res, nil
}

// validate runs the draft checks that need no data first, then checks the
// draft against the list, refetching it when missing or stale.
func (p *Panel[T, D]) validate(ctx context.Context, d D, selfID string) error {
	if p.res.Validate == nil {
		return nil
	}
	if err := p.res.Validate(d, nil, selfID); err != nil {
		return err
	}
	list, err := p.List(ctx)
	if err != nil {
		return err
	}
	return p.res.Validate(d, list.Data, selfID)
}

func (p *Panel[T, D]) body(d D) any {
	if p.res.Body != nil {
		return p.res.Body(d)
	}
	return d
}

// Create validates d and posts it.
func (p *Panel[T, D]) Create(ctx context.Context, d D) (T, error) {
	if err := p.validate(ctx, d, ""); err != nil {
		var zero T
		return zero, mutation.Reject(p.deps.Toasts, err)
	}
	return p.create.Run(ctx, d)
}

// Update validates d and patches the row with id.
func (p *Panel[T, D]) Update(ctx context.Context, id string, d D) (T, error) {
	if err := p.validate(ctx, d, id); err != nil {
		var zero T
		return zero, mutation.Reject(p.deps.Toasts, err)
	}
	return p.update.Run(ctx, updateInput[D]{ID: id, Draft: d})
}

// Delete asks for confirmation, then deletes row.
func (p *Panel[T, D]) Delete(ctx context.Context, row T) error {
	if err := p.deps.confirm(ctx, fmt.Sprintf("Delete %s %q?", lower(p.res.Name), p.res.Label(row))); err != nil {
		return err
	}
	_, err := p.remove.Run(ctx, row)
	return err
}

// IsPending reports whether any write is in flight.
func (p *Panel[T, D]) IsPending() bool {
	return p.create.IsPending() || p.update.IsPending() || p.remove.IsPending()
}
