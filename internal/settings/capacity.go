package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/mutation"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/validation"
)

// MaxFTE is the largest full-time-equivalent a user may carry.
const MaxFTE = 1.5

// UserTeamTagsKey caches a user's team-tag assignments.
func UserTeamTagsKey(userID string) query.Key {
	return query.Key{"users", userID, "team-tags"}
}

type capacityBody struct {
	FTE                  float64         `json:"fte"`
	Salary               decimal.Decimal `json:"salary"`
	ServiceDeliveryHours float64         `json:"serviceDeliveryHours"`
}

type teamTagsBody struct {
	TeamTagIDs       []string `json:"teamTagIds"`
	PrimaryTeamTagID string   `json:"primaryTeamTagId,omitempty"`
}

// CapacityEditor edits one user's capacity figures and team tags. Both are
// saved together; the editor closes only when both writes succeed.
type CapacityEditor struct {
	deps   Deps
	userID string

	mu       sync.Mutex
	open     bool
	selected []string
	primary  string
	fte      float64
	salary   decimal.Decimal
	hours    float64

	capacity *mutation.Executor[capacityBody, struct{}]
	tags     *mutation.Executor[teamTagsBody, struct{}]
}

// OpenCapacityEditor refetches the user's record and tag assignments, then
// seeds the editor from them.
func OpenCapacityEditor(ctx context.Context, deps Deps, userID string) (*CapacityEditor, error) {
	deps = deps.normalize("settings.capacity")
	e := &CapacityEditor{deps: deps, userID: userID}
	e.capacity = mutation.New(mutation.Spec[capacityBody, struct{}]{
		Name: "Update capacity",
		Do: func(ctx context.Context, in capacityBody) (struct{}, error) {
			return struct{}{}, deps.API.Patch(ctx, apiclient.Path("users", userID, "capacity"), in, nil)
		},
		Invalidates: []query.Tag{"users"},
		Success:     func(capacityBody, struct{}) string { return "Capacity updated" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	e.tags = mutation.New(mutation.Spec[teamTagsBody, struct{}]{
		Name: "Update team tags",
		Do: func(ctx context.Context, in teamTagsBody) (struct{}, error) {
			return struct{}{}, deps.API.Put(ctx, apiclient.Path("users", userID, "team-tags"), in, nil)
		},
		Keys:    func(teamTagsBody, struct{}) []query.Key { return []query.Key{UserTeamTagsKey(userID)} },
		Success: func(teamTagsBody, struct{}) string { return "Team tags updated" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))

	if userID == "" {
		return nil, mutation.Reject(deps.Toasts, validation.Errorf("UserID", "Select a user first"))
	}
	deps.Cache.InvalidateKey(UserTeamTagsKey(userID))
	deps.Cache.InvalidateKey(query.Key{"users"})

	tags, err := query.Read(ctx, deps.Cache, UserTeamTagsKey(userID),
		fetch[[]domain.UserTeamTag](deps.API, apiclient.Path("users", userID, "team-tags")))
	if err != nil {
		return nil, mutation.Reject(deps.Toasts, fmt.Errorf("settings: load team tags: %w", err))
	}
	users, err := query.Read(ctx, deps.Cache, query.Key{"users"}, fetch[[]domain.User](deps.API, apiclient.Path("users")))
	if err != nil {
		return nil, mutation.Reject(deps.Toasts, fmt.Errorf("settings: load users: %w", err))
	}
	found := false
	for _, u := range users.Data {
		if u.ID == userID {
			e.fte, e.salary, e.hours = u.FTE, u.Salary, u.ServiceDeliveryHours
			found = true
			break
		}
	}
	if !found {
		return nil, mutation.Reject(deps.Toasts, validation.Errorf("UserID", "User not found"))
	}
	for _, t := range tags.Data {
		e.selected = append(e.selected, t.TeamTagID)
		if t.IsPrimary {
			e.primary = t.TeamTagID
		}
	}
	e.open = true
	return e, nil
}

// UserID returns the edited user's id.
func (e *CapacityEditor) UserID() string { return e.userID }

// IsOpen reports whether the editor is still showing.
func (e *CapacityEditor) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// Close discards edits.
func (e *CapacityEditor) Close() {
	e.mu.Lock()
	e.open = false
	e.mu.Unlock()
}

// Selected returns the selected tag ids in selection order.
func (e *CapacityEditor) Selected() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.selected...)
}

// IsSelected reports whether tagID is selected.
func (e *CapacityEditor) IsSelected(tagID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.indexOf(tagID) >= 0
}

func (e *CapacityEditor) indexOf(tagID string) int {
	for i, id := range e.selected {
		if id == tagID {
			return i
		}
	}
	return -1
}

// ToggleTag selects or deselects tagID. Deselecting the primary clears it.
func (e *CapacityEditor) ToggleTag(tagID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexOf(tagID); i >= 0 {
		e.selected = append(e.selected[:i], e.selected[i+1:]...)
		if e.primary == tagID {
			e.primary = ""
		}
		return
	}
	e.selected = append(e.selected, tagID)
}

// SetPrimary marks a selected tag primary.
func (e *CapacityEditor) SetPrimary(tagID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.indexOf(tagID) < 0 {
		return validation.Errorf("PrimaryTeamTagID", "Select the tag before making it primary")
	}
	e.primary = tagID
	return nil
}

// ResolvedPrimary is the explicit primary, else the first selected tag.
func (e *CapacityEditor) ResolvedPrimary() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolvedPrimary()
}

func (e *CapacityEditor) resolvedPrimary() string {
	if e.primary != "" && e.indexOf(e.primary) >= 0 {
		return e.primary
	}
	if len(e.selected) > 0 {
		return e.selected[0]
	}
	return ""
}

// SetFTE sets the full-time equivalent.
func (e *CapacityEditor) SetFTE(v float64) {
	e.mu.Lock()
	e.fte = v
	e.mu.Unlock()
}

// SetSalary sets the annual salary.
func (e *CapacityEditor) SetSalary(v decimal.Decimal) {
	e.mu.Lock()
	e.salary = v
	e.mu.Unlock()
}

// SetHours sets weekly service delivery hours.
func (e *CapacityEditor) SetHours(v float64) {
	e.mu.Lock()
	e.hours = v
	e.mu.Unlock()
}

// Figures returns the current capacity fields.
func (e *CapacityEditor) Figures() (fte float64, salary decimal.Decimal, hours float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fte, e.salary, e.hours
}

func (e *CapacityEditor) check() error {
	switch {
	case e.fte < 0 || e.fte > MaxFTE:
		return validation.Errorf("FTE", "FTE must be between 0 and %s", decimal.NewFromFloat(MaxFTE).String())
	case e.salary.IsNegative():
		return validation.Errorf("Salary", "Salary cannot be negative")
	case e.hours < 0:
		return validation.Errorf("ServiceDeliveryHours", "Service delivery hours cannot be negative")
	}
	return nil
}

// Save writes capacity and tags concurrently. Each failure shows its own
// toast; the editor stays open unless both succeed.
func (e *CapacityEditor) Save(ctx context.Context) error {
	e.mu.Lock()
	if err := e.check(); err != nil {
		e.mu.Unlock()
		return mutation.Reject(e.deps.Toasts, err)
	}
	capacity := capacityBody{FTE: e.fte, Salary: e.salary, ServiceDeliveryHours: e.hours}
	tags := teamTagsBody{TeamTagIDs: append([]string{}, e.selected...), PrimaryTeamTagID: e.resolvedPrimary()}
	e.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		_, err := e.capacity.Run(ctx, capacity)
		return err
	})
	g.Go(func() error {
		_, err := e.tags.Run(ctx, tags)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	e.Close()
	return nil
}
