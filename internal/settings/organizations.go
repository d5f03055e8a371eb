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

// OrganizationDraft is the new-organization form.
type OrganizationDraft struct {
	Name string `json:"name" validate:"notblank"`
}

// OrganizationPanel is the super-admin tenant list.
type OrganizationPanel struct {
	deps   Deps
	crud   *Panel[domain.Organization, OrganizationDraft]
	rotate *mutation.Executor[domain.Organization, string]
}

// NewOrganizationPanel wires the panel. Without the super-admin capability
// nothing is fetched.
func NewOrganizationPanel(deps Deps) *OrganizationPanel {
	deps = deps.normalize("settings.organizations")
	p := &OrganizationPanel{deps: deps}
	path := apiclient.Path("super-admin", "organizations")
	p.crud = NewPanel(deps, Resource[domain.Organization, OrganizationDraft]{
		Name:    "Organization",
		Path:    path,
		Key:     query.Key{"organizations"},
		Enabled: func() bool { return deps.Caps.IsSuperAdmin },
		ID:      func(o domain.Organization) string { return o.ID },
		Label:   func(o domain.Organization) string { return o.Name },
		Validate: func(d OrganizationDraft, existing []domain.Organization, selfID string) error {
			if err := validation.Struct(d); err != nil {
				return err
			}
			return validation.UniqueName("Organization", d.Name, namesExcept(existing, selfID,
				func(o domain.Organization) (string, string) { return o.ID, o.Name }))
		},
	})
	p.rotate = mutation.New(mutation.Spec[domain.Organization, string]{
		Name: "Rotate organization token",
		Do: func(ctx context.Context, o domain.Organization) (string, error) {
			var out tokenResponse
			err := deps.API.Post(ctx, path+"/"+pathEscape(o.ID)+"/rotate-token", struct{}{}, &out)
			return out.Token, err
		},
		Keys:    func(domain.Organization, string) []query.Key { return []query.Key{{"organizations"}} },
		Success: func(o domain.Organization, _ string) string { return o.Name + " token rotated" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	return p
}

func (p *OrganizationPanel) allowed() error {
	if !p.deps.Caps.IsSuperAdmin {
		return mutation.Reject(p.deps.Toasts, fmt.Errorf("%w: %w", validation.Errorf("Role", "Super admin access required"), ErrForbidden))
	}
	return nil
}

// List returns every organization.
func (p *OrganizationPanel) List(ctx context.Context) (query.Result[[]domain.Organization], error) {
	return p.crud.List(ctx)
}

// Create adds an organization.
func (p *OrganizationPanel) Create(ctx context.Context, name string) (domain.Organization, error) {
	if err := p.allowed(); err != nil {
		return domain.Organization{}, err
	}
	return p.crud.Create(ctx, OrganizationDraft{Name: name})
}

// Delete confirms and removes o.
func (p *OrganizationPanel) Delete(ctx context.Context, o domain.Organization) error {
	if err := p.allowed(); err != nil {
		return err
	}
	return p.crud.Delete(ctx, o)
}

// RotateToken confirms and replaces o's registration token.
func (p *OrganizationPanel) RotateToken(ctx context.Context, o domain.Organization) (string, error) {
	if err := p.allowed(); err != nil {
		return "", err
	}
	if err := p.deps.confirm(ctx, fmt.Sprintf("Rotate the registration token for %s?", o.Name)); err != nil {
		return "", err
	}
	return p.rotate.Run(ctx, o)
}
