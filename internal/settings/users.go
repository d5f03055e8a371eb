package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/mutation"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/validation"
)

var (
	// ErrSelfDelete blocks deleting the signed-in account.
	ErrSelfDelete = errors.New("settings: cannot delete your own account")
	// ErrLastAdministrator blocks deleting the only administrator.
	ErrLastAdministrator = errors.New("settings: cannot delete the last administrator")
)

// AssignmentsKey caches a user's strategy assignment rows.
func AssignmentsKey(userID string) query.Key {
	return query.Key{"users", userID, "strategy-assignments"}
}

type toggleInput struct {
	UserID     string
	StrategyID string
	Assigned   bool
}

type roleInput struct {
	UserID string
	Role   domain.Role
}

// UsersPanel manages members, their roles and their strategy assignments.
type UsersPanel struct {
	deps   Deps
	toggle *mutation.Executor[toggleInput, struct{}]
	role   *mutation.Executor[roleInput, domain.User]
	remove *mutation.Executor[domain.User, struct{}]
}

// NewUsersPanel wires the panel.
func NewUsersPanel(deps Deps) *UsersPanel {
	deps = deps.normalize("settings.users")
	p := &UsersPanel{deps: deps}

	p.toggle = mutation.New(mutation.Spec[toggleInput, struct{}]{
		Name: "Update assignment",
		Do: func(ctx context.Context, in toggleInput) (struct{}, error) {
			path := apiclient.Path("users", in.UserID, "strategy-assignments")
			if in.Assigned {
				return struct{}{}, deps.API.Delete(ctx, path+"/"+pathEscape(in.StrategyID))
			}
			return struct{}{}, deps.API.Post(ctx, path, map[string]string{"strategyId": in.StrategyID}, nil)
		},
		Invalidates: []query.Tag{"users"},
		Keys: func(in toggleInput, _ struct{}) []query.Key {
			return []query.Key{AssignmentsKey(in.UserID)}
		},
		Success: func(in toggleInput, _ struct{}) string {
			if in.Assigned {
				return "Strategy unassigned"
			}
			return "Strategy assigned"
		},
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))

	p.role = mutation.New(mutation.Spec[roleInput, domain.User]{
		Name: "Update role",
		Do: func(ctx context.Context, in roleInput) (domain.User, error) {
			var out domain.User
			err := deps.API.Patch(ctx, apiclient.Path("users", in.UserID), map[string]domain.Role{"role": in.Role}, &out)
			return out, err
		},
		Invalidates: []query.Tag{"users"},
		Success: func(in roleInput, _ domain.User) string {
			return "Role changed to " + in.Role.Label()
		},
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))

	p.remove = mutation.New(mutation.Spec[domain.User, struct{}]{
		Name: "Delete user",
		Do: func(ctx context.Context, u domain.User) (struct{}, error) {
			return struct{}{}, deps.API.Delete(ctx, apiclient.Path("users", u.ID))
		},
		Invalidates: []query.Tag{"users"},
		Success:     func(u domain.User, _ struct{}) string { return u.DisplayName() + " deleted" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	return p
}

// Users lists organization members.
func (p *UsersPanel) Users(ctx context.Context) ([]domain.User, error) {
	res, err := query.Read(ctx, p.deps.Cache, query.Key{"users"}, fetch[[]domain.User](p.deps.API, apiclient.Path("users")))
	if err != nil {
		return nil, fmt.Errorf("settings: list users: %w", err)
	}
	return res.Data, nil
}

// Strategies lists strategies in display order.
func (p *UsersPanel) Strategies(ctx context.Context) ([]domain.Strategy, error) {
	return readStrategies(ctx, p.deps)
}

// Assignments reads a user's join rows. An empty id disables the read.
func (p *UsersPanel) Assignments(ctx context.Context, userID string) (query.Result[[]domain.StrategyAssignment], error) {
	res, err := query.Read(ctx, p.deps.Cache, AssignmentsKey(userID),
		fetch[[]domain.StrategyAssignment](p.deps.API, apiclient.Path("users", userID, "strategy-assignments")),
		query.Enabled(userID != ""),
		query.WithTags("strategy-assignments"),
	)
	if err != nil {
		return res, fmt.Errorf("settings: list assignments: %w", err)
	}
	return res, nil
}

// AssignedStrategyIDs deduplicates join rows into a set.
func AssignedStrategyIDs(rows []domain.StrategyAssignment) map[string]struct{} {
	set := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		set[r.StrategyID] = struct{}{}
	}
	return set
}

// AssignedCount is the number shown beside a user. Administrators are
// implicitly assigned to every strategy.
func AssignedCount(u domain.User, totalStrategies int, rows []domain.StrategyAssignment) int {
	if u.Role == domain.RoleAdministrator {
		return totalStrategies
	}
	return len(AssignedStrategyIDs(rows))
}

// Assignable reports whether a user's assignments are edited explicitly.
func Assignable(u domain.User) bool {
	return u.Role != domain.RoleAdministrator && u.Role != domain.RoleSME
}

// IsAssigned reports whether any join row links the user to the strategy.
func (p *UsersPanel) IsAssigned(ctx context.Context, userID, strategyID string) (bool, error) {
	res, err := p.Assignments(ctx, userID)
	if err != nil {
		return false, err
	}
	_, ok := AssignedStrategyIDs(res.Data)[strategyID]
	return ok, nil
}

func (p *UsersPanel) allowed() error {
	if !p.deps.Caps.CanManageUsers {
		return mutation.Reject(p.deps.Toasts, fmt.Errorf("%w: %w", validation.Errorf("Role", "Administrator access required"), ErrForbidden))
	}
	return nil
}

// ToggleAssignment unassigns when assigned and assigns otherwise.
func (p *UsersPanel) ToggleAssignment(ctx context.Context, u domain.User, strategyID string) error {
	if err := p.allowed(); err != nil {
		return err
	}
	switch u.Role {
	case domain.RoleAdministrator:
		return mutation.Reject(p.deps.Toasts, validation.Errorf("Role", "Administrators are assigned to every strategy"))
	case domain.RoleSME:
		return mutation.Reject(p.deps.Toasts, validation.Errorf("Role", "SMEs cannot be assigned to strategies"))
	}
	assigned, err := p.IsAssigned(ctx, u.ID, strategyID)
	if err != nil {
		return mutation.Reject(p.deps.Toasts, err)
	}
	_, err = p.toggle.Run(ctx, toggleInput{UserID: u.ID, StrategyID: strategyID, Assigned: assigned})
	return err
}

type roleForm struct {
	Role string `validate:"required,oneof=administrator co_lead view sme"`
}

// ChangeRole patches the user's role.
func (p *UsersPanel) ChangeRole(ctx context.Context, userID string, role domain.Role) error {
	if err := p.allowed(); err != nil {
		return err
	}
	if err := validation.Struct(roleForm{Role: string(role)}); err != nil {
		return mutation.Reject(p.deps.Toasts, err)
	}
	_, err := p.role.Run(ctx, roleInput{UserID: userID, Role: role})
	return err
}

// CheckDelete explains why u cannot be deleted, or returns nil.
func CheckDelete(meID string, u domain.User, users []domain.User) error {
	if u.ID == meID {
		return ErrSelfDelete
	}
	if u.Role != domain.RoleAdministrator {
		return nil
	}
	admins := 0
	for _, other := range users {
		if other.Role == domain.RoleAdministrator {
			admins++
		}
	}
	if admins <= 1 {
		return ErrLastAdministrator
	}
	return nil
}

// CanDelete reports whether the delete control is offered for u.
func (p *UsersPanel) CanDelete(u domain.User, users []domain.User) bool {
	return CheckDelete(p.deps.Me.ID, u, users) == nil
}

// DeleteUser checks the guards, confirms and deletes.
func (p *UsersPanel) DeleteUser(ctx context.Context, u domain.User) error {
	if err := p.allowed(); err != nil {
		return err
	}
	users, err := p.Users(ctx)
	if err != nil {
		return mutation.Reject(p.deps.Toasts, err)
	}
	if err := CheckDelete(p.deps.Me.ID, u, users); err != nil {
		msg := "You cannot delete your own account"
		if errors.Is(err, ErrLastAdministrator) {
			msg = "At least one administrator must remain"
		}
		return mutation.Reject(p.deps.Toasts, fmt.Errorf("%w: %w", validation.Errorf("ID", "%s", msg), err))
	}
	if err := p.deps.confirm(ctx, fmt.Sprintf("Delete %s? This cannot be undone.", u.DisplayName())); err != nil {
		return err
	}
	_, err = p.remove.Run(ctx, u)
	return err
}

// Filter fuzzy-matches term against names and emails, keeping input order.
func Filter(users []domain.User, term string) []domain.User {
	term = strings.TrimSpace(term)
	if term == "" {
		return users
	}
	var out []domain.User
	for _, u := range users {
		if fuzzy.MatchNormalizedFold(term, u.DisplayName()) || fuzzy.MatchNormalizedFold(term, u.Email) {
			out = append(out, u)
		}
	}
	return out
}

func readStrategies(ctx context.Context, deps Deps) ([]domain.Strategy, error) {
	res, err := query.Read(ctx, deps.Cache, query.Key{"strategies"}, fetch[[]domain.Strategy](deps.API, apiclient.Path("strategies")))
	if err != nil {
		return nil, fmt.Errorf("settings: list strategies: %w", err)
	}
	out := append([]domain.Strategy(nil), res.Data...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}
