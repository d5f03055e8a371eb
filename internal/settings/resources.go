package settings

import (
	"strings"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/validation"
)

// HolidayDraft is the holiday form.
type HolidayDraft struct {
	Date        string `json:"date" validate:"required,isodate"`
	Name        string `json:"name" validate:"notblank"`
	Description string `json:"description,omitempty"`
}

// NewHolidayPanel lists holidays sorted by date.
func NewHolidayPanel(deps Deps) *Panel[domain.Holiday, HolidayDraft] {
	return NewPanel(deps, Resource[domain.Holiday, HolidayDraft]{
		Name:  "Holiday",
		Path:  apiclient.Path("holidays"),
		Key:   query.Key{"holidays"},
		ID:    func(h domain.Holiday) string { return h.ID },
		Label: func(h domain.Holiday) string { return h.Date + " " + h.Name },
		Less:  func(a, b domain.Holiday) bool { return a.Date < b.Date },
		Validate: func(d HolidayDraft, _ []domain.Holiday, _ string) error {
			return validation.Struct(d)
		},
		Body: func(d HolidayDraft) any {
			d.Name = strings.TrimSpace(d.Name)
			return d
		},
	})
}

// TeamTagDraft is the team tag form.
type TeamTagDraft struct {
	Name     string `json:"name" validate:"notblank"`
	ColorHex string `json:"colorHex" validate:"required,hexcolor"`
}

// NewTeamTagPanel enforces case-insensitive unique names.
func NewTeamTagPanel(deps Deps) *Panel[domain.TeamTag, TeamTagDraft] {
	return NewPanel(deps, Resource[domain.TeamTag, TeamTagDraft]{
		Name:  "Team tag",
		Path:  apiclient.Path("team-tags"),
		Key:   query.Key{"team-tags"},
		ID:    func(t domain.TeamTag) string { return t.ID },
		Label: func(t domain.TeamTag) string { return t.Name },
		Less:  func(a, b domain.TeamTag) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) },
		Validate: func(d TeamTagDraft, existing []domain.TeamTag, selfID string) error {
			if err := validation.Struct(d); err != nil {
				return err
			}
			return validation.UniqueName("Team tag", d.Name, namesExcept(existing, selfID,
				func(t domain.TeamTag) (string, string) { return t.ID, t.Name }))
		},
		Body: func(d TeamTagDraft) any {
			d.Name = strings.TrimSpace(d.Name)
			return d
		},
	})
}

// ExecutiveGoalDraft is the executive goal form.
type ExecutiveGoalDraft struct {
	Name        string `json:"name" validate:"notblank"`
	Description string `json:"description,omitempty"`
}

// NewExecutiveGoalPanel enforces case-insensitive unique names.
func NewExecutiveGoalPanel(deps Deps) *Panel[domain.ExecutiveGoal, ExecutiveGoalDraft] {
	return NewPanel(deps, Resource[domain.ExecutiveGoal, ExecutiveGoalDraft]{
		Name:  "Executive goal",
		Path:  apiclient.Path("executive-goals"),
		Key:   query.Key{"executive-goals"},
		Tags:  []query.Tag{"strategies"},
		ID:    func(g domain.ExecutiveGoal) string { return g.ID },
		Label: func(g domain.ExecutiveGoal) string { return g.Name },
		Validate: func(d ExecutiveGoalDraft, existing []domain.ExecutiveGoal, selfID string) error {
			if err := validation.Struct(d); err != nil {
				return err
			}
			return validation.UniqueName("Executive goal", d.Name, namesExcept(existing, selfID,
				func(g domain.ExecutiveGoal) (string, string) { return g.ID, g.Name }))
		},
		Body: func(d ExecutiveGoalDraft) any {
			d.Name = strings.TrimSpace(d.Name)
			return d
		},
	})
}

// TemplateTypeDraft is the template category form.
type TemplateTypeDraft struct {
	Name string `json:"name" validate:"notblank"`
}

// NewTemplateTypePanel rejects names that collide, ignoring case, with an
// existing category or a built-in one.
func NewTemplateTypePanel(deps Deps) *Panel[domain.TemplateType, TemplateTypeDraft] {
	return NewPanel(deps, Resource[domain.TemplateType, TemplateTypeDraft]{
		Name:  "Template category",
		Path:  apiclient.Path("template-types"),
		Key:   query.Key{"template-types"},
		ID:    func(t domain.TemplateType) string { return t.ID },
		Label: func(t domain.TemplateType) string { return t.Name },
		Validate: func(d TemplateTypeDraft, existing []domain.TemplateType, selfID string) error {
			if err := validation.Struct(d); err != nil {
				return err
			}
			taken := namesExcept(existing, selfID, func(t domain.TemplateType) (string, string) { return t.ID, t.Name })
			taken = append(taken, domain.DefaultTemplateTypes...)
			return validation.UniqueName("Template category", d.Name, taken)
		},
		Body: func(d TemplateTypeDraft) any {
			d.Name = strings.TrimSpace(d.Name)
			return d
		},
	})
}

// PtoDraft is the time-off form.
type PtoDraft struct {
	StartDate string `json:"startDate" validate:"required,isodate,notafter=EndDate"`
	EndDate   string `json:"endDate" validate:"required,isodate"`
	Notes     string `json:"notes,omitempty"`
}

type ptoBody struct {
	UserID string `json:"userId,omitempty"`
	PtoDraft
}

// NewPtoPanel scopes time off to one user. Until userID is known the list is
// disabled and no request is made.
func NewPtoPanel(deps Deps, userID string) *Panel[domain.PtoEntry, PtoDraft] {
	return NewPanel(deps, Resource[domain.PtoEntry, PtoDraft]{
		Name:        "Time off",
		Path:        apiclient.Path("pto"),
		ListOptions: []apiclient.RequestOption{apiclient.WithQuery("userId", userID)},
		Key:         query.Key{"users", userID, "pto"},
		Enabled:     func() bool { return userID != "" },
		ID:          func(e domain.PtoEntry) string { return e.ID },
		Label:       func(e domain.PtoEntry) string { return e.StartDate + " to " + e.EndDate },
		Less:        func(a, b domain.PtoEntry) bool { return a.StartDate < b.StartDate },
		Validate: func(d PtoDraft, _ []domain.PtoEntry, _ string) error {
			if userID == "" {
				return validation.Errorf("UserID", "Select a user first")
			}
			return validation.Struct(d)
		},
		Body: func(d PtoDraft) any {
			return ptoBody{UserID: userID, PtoDraft: d}
		},
	})
}

func namesExcept[T any](rows []T, selfID string, fields func(T) (id, name string)) []string {
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		id, name := fields(row)
		if selfID != "" && id == selfID {
			continue
		}
		names = append(names, name)
	}
	return names
}
