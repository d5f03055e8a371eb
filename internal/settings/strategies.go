package settings

import (
	"context"
	"fmt"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/mutation"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/validation"
)

// StrategyDraft is the strategy form.
type StrategyDraft struct {
	Title       string `json:"title" validate:"notblank"`
	ColorCode   string `json:"colorCode,omitempty" validate:"omitempty,hexcolor"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
}

// StrategyOrder is one entry of a reorder request.
type StrategyOrder struct {
	ID           string `json:"id"`
	DisplayOrder int    `json:"displayOrder"`
}

var strategyTags = []query.Tag{"strategies", "strategy-assignments"}

// StrategyPanel lists and edits strategies. Writes need the edit-tactics
// capability.
type StrategyPanel struct {
	deps    Deps
	crud    *Panel[domain.Strategy, StrategyDraft]
	reorder *mutation.Executor[[]StrategyOrder, struct{}]
}

// NewStrategyPanel wires the panel.
func NewStrategyPanel(deps Deps) *StrategyPanel {
	deps = deps.normalize("settings.strategies")
	p := &StrategyPanel{deps: deps}
	p.crud = NewPanel(deps, Resource[domain.Strategy, StrategyDraft]{
		Name:  "Strategy",
		Path:  apiclient.Path("strategies"),
		Key:   query.Key{"strategies"},
		Tags:  strategyTags,
		ID:    func(s domain.Strategy) string { return s.ID },
		Label: func(s domain.Strategy) string { return s.Title },
		Less:  func(a, b domain.Strategy) bool { return a.DisplayOrder < b.DisplayOrder },
		Validate: func(d StrategyDraft, _ []domain.Strategy, _ string) error {
			return validation.Struct(d)
		},
	})
	p.reorder = mutation.New(mutation.Spec[[]StrategyOrder, struct{}]{
		Name: "Reorder strategies",
		Do: func(ctx context.Context, orders []StrategyOrder) (struct{}, error) {
			body := map[string][]StrategyOrder{"strategyOrders": orders}
			return struct{}{}, deps.API.Post(ctx, apiclient.Path("strategies", "reorder"), body, nil)
		},
		Invalidates: strategyTags,
		Success:     func([]StrategyOrder, struct{}) string { return "Strategy order saved" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	return p
}

// List returns strategies in display order.
func (p *StrategyPanel) List(ctx context.Context) ([]domain.Strategy, error) {
	res, err := p.crud.List(ctx)
	return res.Data, err
}

func (p *StrategyPanel) allowed() error {
	if !p.deps.Caps.CanEditTactics {
		return mutation.Reject(p.deps.Toasts, fmt.Errorf("%w: %w", validation.Errorf("Role", "You do not have permission to edit strategies"), ErrForbidden))
	}
	return nil
}

// Create adds a strategy.
func (p *StrategyPanel) Create(ctx context.Context, d StrategyDraft) (domain.Strategy, error) {
	if err := p.allowed(); err != nil {
		return domain.Strategy{}, err
	}
	return p.crud.Create(ctx, d)
}

// Update edits a strategy.
func (p *StrategyPanel) Update(ctx context.Context, id string, d StrategyDraft) (domain.Strategy, error) {
	if err := p.allowed(); err != nil {
		return domain.Strategy{}, err
	}
	return p.crud.Update(ctx, id, d)
}

// Delete confirms and removes s.
func (p *StrategyPanel) Delete(ctx context.Context, s domain.Strategy) error {
	if err := p.allowed(); err != nil {
		return err
	}
	return p.crud.Delete(ctx, s)
}

// Reorder moves id by delta places and returns dense ranks 1..n for the
// resulting order. ok is false when id is unknown or the move is a no-op.
func Reorder(strategies []domain.Strategy, id string, delta int) (orders []StrategyOrder, ok bool) {
	from := -1
	for i, s := range strategies {
		if s.ID == id {
			from = i
			break
		}
	}
	to := from + delta
	if from < 0 || delta == 0 || to < 0 || to >= len(strategies) {
		return nil, false
	}
	ids := make([]string, len(strategies))
	for i, s := range strategies {
		ids[i] = s.ID
	}
	moved := ids[from]
	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids[:to], append([]string{moved}, ids[to:]...)...)
	orders = make([]StrategyOrder, len(ids))
	for i, sid := range ids {
		orders[i] = StrategyOrder{ID: sid, DisplayOrder: i + 1}
	}
	return orders, true
}

// Move shifts a strategy up (negative delta) or down and saves the new order.
func (p *StrategyPanel) Move(ctx context.Context, id string, delta int) error {
	if err := p.allowed(); err != nil {
		return err
	}
	list, err := p.List(ctx)
	if err != nil {
		return mutation.Reject(p.deps.Toasts, err)
	}
	orders, ok := Reorder(list, id, delta)
	if !ok {
		return nil
	}
	_, err = p.reorder.Run(ctx, orders)
	return err
}
