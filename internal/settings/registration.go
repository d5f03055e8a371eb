package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/mutation"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/validation"
)

var registrationTokenKey = query.Key{"registration-token"}

type tokenResponse struct {
	Token string `json:"token"`
}

// RegistrationForm is what a new member submits on the public page.
type RegistrationForm struct {
	Token     string `json:"token" validate:"notblank"`
	FirstName string `json:"firstName" validate:"notblank"`
	LastName  string `json:"lastName" validate:"notblank"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

// RegistrationPanel manages the organization's single active registration
// token. Rotating it invalidates every previously shared link.
type RegistrationPanel struct {
	deps     Deps
	generate *mutation.Executor[struct{}, string]
	rotate   *mutation.Executor[struct{}, string]
	register *mutation.Executor[RegistrationForm, domain.User]
}

// NewRegistrationPanel wires the panel.
func NewRegistrationPanel(deps Deps) *RegistrationPanel {
	deps = deps.normalize("settings.registration")
	p := &RegistrationPanel{deps: deps}
	tokenCall := func(path string) func(context.Context, struct{}) (string, error) {
		return func(ctx context.Context, _ struct{}) (string, error) {
			var out tokenResponse
			err := deps.API.Post(ctx, path, struct{}{}, &out)
			return out.Token, err
		}
	}
	dirty := func(struct{}, string) []query.Key { return []query.Key{registrationTokenKey} }
	p.generate = mutation.New(mutation.Spec[struct{}, string]{
		Name:    "Generate registration link",
		Do:      tokenCall(apiclient.Path("admin", "registration-token")),
		Keys:    dirty,
		Success: func(struct{}, string) string { return "Registration link generated" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	p.rotate = mutation.New(mutation.Spec[struct{}, string]{
		Name:    "Rotate registration link",
		Do:      tokenCall(apiclient.Path("admin", "registration-token", "rotate")),
		Keys:    dirty,
		Success: func(struct{}, string) string { return "Registration link rotated. Old links no longer work" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	p.register = mutation.New(mutation.Spec[RegistrationForm, domain.User]{
		Name: "Register",
		Do: func(ctx context.Context, f RegistrationForm) (domain.User, error) {
			var out domain.User
			err := deps.API.Post(ctx, apiclient.Path("auth", "register"), f, &out)
			return out, err
		},
		Invalidates: []query.Tag{"users"},
		Success:     func(_ RegistrationForm, u domain.User) string { return "Welcome, " + u.DisplayName() },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	return p
}

// Token returns the active token, or "" when none was generated.
func (p *RegistrationPanel) Token(ctx context.Context) (string, error) {
	res, err := query.Read(ctx, p.deps.Cache, registrationTokenKey,
		fetch[tokenResponse](p.deps.API, apiclient.Path("admin", "registration-token")))
	if err != nil {
		return "", fmt.Errorf("settings: load registration token: %w", err)
	}
	return res.Data.Token, nil
}

// Generate creates a token when none exists.
func (p *RegistrationPanel) Generate(ctx context.Context) (string, error) {
	return p.generate.Run(ctx, struct{}{})
}

// Rotate confirms, then replaces the token.
func (p *RegistrationPanel) Rotate(ctx context.Context) (string, error) {
	if err := p.deps.confirm(ctx, "Rotate the registration link? Anyone holding the old link will no longer be able to register."); err != nil {
		return "", err
	}
	return p.rotate.Run(ctx, struct{}{})
}

// URL is the shareable registration link for token.
func (p *RegistrationPanel) URL(token string) string {
	return RegistrationURL(p.deps.API.Origin(), token)
}

// RegistrationURL joins origin and token into the public registration link.
func RegistrationURL(origin, token string) string {
	if token == "" {
		return ""
	}
	return strings.TrimRight(origin, "/") + "/register/" + token
}

// Register submits the public registration form.
func (p *RegistrationPanel) Register(ctx context.Context, f RegistrationForm) (domain.User, error) {
	f.Email = strings.TrimSpace(f.Email)
	if err := validation.Struct(f); err != nil {
		return domain.User{}, mutation.Reject(p.deps.Toasts, err)
	}
	return p.register.Run(ctx, f)
}
