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

// TemplateEdit is the communication template form.
type TemplateEdit struct {
	Subject string `json:"subject" validate:"notblank,max=200"`
	Body    string `json:"body" validate:"notblank"`
}

type templateInput struct {
	ID   string
	Edit TemplateEdit
}

// CommunicationTemplatePanel edits the organization's message templates.
type CommunicationTemplatePanel struct {
	deps   Deps
	update *mutation.Executor[templateInput, domain.CommunicationTemplate]
}

// NewCommunicationTemplatePanel wires the panel.
func NewCommunicationTemplatePanel(deps Deps) *CommunicationTemplatePanel {
	deps = deps.normalize("settings.communication-templates")
	p := &CommunicationTemplatePanel{deps: deps}
	p.update = mutation.New(mutation.Spec[templateInput, domain.CommunicationTemplate]{
		Name: "Update template",
		Do: func(ctx context.Context, in templateInput) (domain.CommunicationTemplate, error) {
			var out domain.CommunicationTemplate
			err := deps.API.Patch(ctx, apiclient.Path("communication-templates", in.ID), in.Edit, &out)
			return out, err
		},
		Invalidates: []query.Tag{"communication-templates"},
		Success:     func(templateInput, domain.CommunicationTemplate) string { return "Template saved" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	return p
}

// List returns the templates.
func (p *CommunicationTemplatePanel) List(ctx context.Context) ([]domain.CommunicationTemplate, error) {
	res, err := query.Read(ctx, p.deps.Cache, query.Key{"communication-templates"},
		fetch[[]domain.CommunicationTemplate](p.deps.API, apiclient.Path("communication-templates")))
	if err != nil {
		return nil, fmt.Errorf("settings: list communication templates: %w", err)
	}
	return res.Data, nil
}

// Update saves a template's subject and body.
func (p *CommunicationTemplatePanel) Update(ctx context.Context, id, subject, body string) (domain.CommunicationTemplate, error) {
	edit := TemplateEdit{Subject: subject, Body: body}
	if err := validation.Struct(edit); err != nil {
		return domain.CommunicationTemplate{}, mutation.Reject(p.deps.Toasts, err)
	}
	return p.update.Run(ctx, templateInput{ID: id, Edit: edit})
}
