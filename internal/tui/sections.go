package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kingrea/strata/internal/catalog"
	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/export"
	"github.com/kingrea/strata/internal/mutation"
	"github.com/kingrea/strata/internal/settings"
	"github.com/kingrea/strata/internal/shell"
	"github.com/kingrea/strata/internal/validation"
)

// row is one selectable line of a section.
type row struct {
	id   string
	text string
	item any
}

type sectionData struct {
	notes []string
	rows  []row
}

// action is a key-bound operation. When fields is set a form collects
// values first; run receives them keyed by field key.
type action struct {
	key      string
	label    string
	needsRow bool
	fields   func(ctx context.Context, sel *row) ([]field, error)
	run      func(ctx context.Context, sel *row, values map[string]string) error
	cancel   func(sel *row)
	// keepOpen reports whether the form stays up after run fails, so the
	// user can retry without retyping.
	keepOpen func(sel *row) bool
}

type section struct {
	load    func(ctx context.Context) (sectionData, error)
	actions []action
	empty   string
}

func (a *App) buildSections() map[shell.Tab]*section {
	d := a.deps
	twoFactor := settings.NewTwoFactorPanel(d)
	users := settings.NewUsersPanel(d)
	strategies := settings.NewStrategyPanel(d)
	workstreams := settings.NewWorkstreamPanel(d)
	templateTypes := settings.NewTemplateTypePanel(d)
	registration := settings.NewRegistrationPanel(d)

	sections := map[shell.Tab]*section{
		shell.TabSecurity:       a.securitySection(twoFactor),
		shell.TabTimeOff:        ptoSection(settings.NewPtoPanel(d, a.session.Me.ID)),
		shell.TabTemplates:      catalogSection(templateTypes),
		shell.TabUsers:          a.usersSection(users, settings.NewTeamTagPanel(d)),
		shell.TabStrategies:     strategiesSection(strategies),
		shell.TabWorkstreams:    workstreamsSection(workstreams, a.reject),
		shell.TabHolidays:       holidaysSection(settings.NewHolidayPanel(d)),
		shell.TabTeamTags:       teamTagsSection(settings.NewTeamTagPanel(d)),
		shell.TabExecutiveGoals: goalsSection(settings.NewExecutiveGoalPanel(d)),
		shell.TabTemplateTypes:  templateTypesSection(templateTypes),
		shell.TabCommTemplates:  commTemplatesSection(settings.NewCommunicationTemplatePanel(d)),
		shell.TabRegistration:   registrationSection(registration),
		shell.TabOrganizations:  organizationsSection(settings.NewOrganizationPanel(d)),
	}
	if a.session.Exporter != nil {
		sections[shell.TabExport] = exportSection(a.session.Exporter)
	}
	return sections
}

func (a *App) reject(err error) error {
	return mutation.Reject(a.deps.Toasts, err)
}

func text(values map[string]string, key string) string {
	return strings.TrimSpace(values[key])
}

func parseFloat(label, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, validation.Errorf(label, "%s must be a number", label)
	}
	return v, nil
}

func parseInt(label, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, validation.Errorf(label, "%s must be a whole number", label)
	}
	return v, nil
}

func staticFields(fields ...field) func(context.Context, *row) ([]field, error) {
	return func(context.Context, *row) ([]field, error) { return fields, nil }
}

// Security

func (a *App) securitySection(p *settings.TwoFactorPanel) *section {
	reject := a.reject
	return &section{
		load: func(ctx context.Context) (sectionData, error) {
			switch p.State() {
			case settings.TwoFactorLoading, settings.TwoFactorOff, settings.TwoFactorOn:
				if err := p.Load(ctx); err != nil {
					return sectionData{}, err
				}
			}
			st := p.Status()
			notes := []string{"Two-factor authentication: " + twoFactorLabel(p.State())}
			if st.Email != "" {
				notes = append(notes, "Codes are sent to "+st.Email)
			}
			switch p.State() {
			case settings.TwoFactorSetup:
				notes = append(notes, fmt.Sprintf("Enter the %d-digit code from your email (c).", settings.CodeLength))
			case settings.TwoFactorDisable:
				notes = append(notes, "Confirm your password to turn it off (x).")
			}
			return sectionData{notes: notes}, nil
		},
		actions: []action{
			{
				key: "e", label: "Enable",
				run: func(ctx context.Context, _ *row, _ map[string]string) error { return p.Enable(ctx) },
			},
			{
				key: "c", label: "Enter code",
				fields: func(context.Context, *row) ([]field, error) {
					if p.State() != settings.TwoFactorSetup {
						return nil, reject(validation.Errorf("Code", "Start setup first"))
					}
					return []field{{key: "code", label: "Code", placeholder: "123456", limit: settings.CodeLength}}, nil
				},
				run: func(ctx context.Context, _ *row, values map[string]string) error {
					p.SetCode(values["code"])
					return p.SubmitCode(ctx)
				},
				cancel: func(*row) { p.Cancel() },
			},
			{
				key: "x", label: "Disable",
				fields: func(context.Context, *row) ([]field, error) {
					if err := p.BeginDisable(); err != nil {
						return nil, reject(validation.Errorf("State", "Two-factor authentication is not on"))
					}
					return []field{{key: "password", label: "Password", secret: true}}, nil
				},
				run: func(ctx context.Context, _ *row, values map[string]string) error {
					return p.ConfirmDisable(ctx, values["password"])
				},
				cancel: func(*row) { p.Cancel() },
			},
		},
	}
}

func twoFactorLabel(s settings.TwoFactorState) string {
	switch s {
	case settings.TwoFactorOn:
		return "on"
	case settings.TwoFactorOff:
		return "off"
	case settings.TwoFactorSetup:
		return "awaiting code"
	case settings.TwoFactorDisable:
		return "confirm disable"
	}
	return "loading"
}

// Time off

func ptoSection(p *settings.Panel[domain.PtoEntry, settings.PtoDraft]) *section {
	return &section{
		empty: "No time off scheduled.",
		load: func(ctx context.Context) (sectionData, error) {
			res, err := p.List(ctx)
			if err != nil {
				return sectionData{}, err
			}
			var data sectionData
			for _, e := range res.Data {
				line := p.Label(e)
				if e.Notes != "" {
					line += " · " + e.Notes
				}
				data.rows = append(data.rows, row{id: e.ID, text: line, item: e})
			}
			return data, nil
		},
		actions: []action{
			{
				key: "n", label: "New time off",
				fields: staticFields(
					field{key: "start", label: "Start date", placeholder: "YYYY-MM-DD"},
					field{key: "end", label: "End date", placeholder: "YYYY-MM-DD"},
					field{key: "notes", label: "Notes"},
				),
				run: func(ctx context.Context, _ *row, v map[string]string) error {
					_, err := p.Create(ctx, settings.PtoDraft{StartDate: text(v, "start"), EndDate: text(v, "end"), Notes: text(v, "notes")})
					return err
				},
			},
			{
				key: "d", label: "Delete", needsRow: true,
				run: func(ctx context.Context, sel *row, _ map[string]string) error {
					return p.Delete(ctx, sel.item.(domain.PtoEntry))
				},
			},
		},
	}
}

// Template catalog

func catalogSection(types *settings.Panel[domain.TemplateType, settings.TemplateTypeDraft]) *section {
	var term string
	return &section{
		empty: "No templates match.",
		load: func(ctx context.Context) (sectionData, error) {
			res, err := types.List(ctx)
			if err != nil {
				return sectionData{}, err
			}
			data := sectionData{notes: []string{"Categories: " + strings.Join(catalog.Categories(res.Data), ", ")}}
			if term != "" {
				data.notes = append(data.notes, fmt.Sprintf("Filter: %q", term))
			}
			for _, e := range catalog.Search(term) {
				data.rows = append(data.rows, row{
					id:   e.ID,
					text: fmt.Sprintf("%-28s %-14s %s", e.Title, e.Category, e.Summary),
					item: e,
				})
			}
			return data, nil
		},
		actions: []action{
			{
				key: "/", label: "Search",
				fields: func(context.Context, *row) ([]field, error) {
					return []field{{key: "term", label: "Search", value: term}}, nil
				},
				run: func(_ context.Context, _ *row, v map[string]string) error {
					term = text(v, "term")
					return nil
				},
			},
		},
	}
}

// Users

func (a *App) usersSection(p *settings.UsersPanel, tags *settings.Panel[domain.TeamTag, settings.TeamTagDraft]) *section {
	var term string
	var editor *settings.CapacityEditor
	return &section{
		empty: "No users.",
		load: func(ctx context.Context) (sectionData, error) {
			all, err := p.Users(ctx)
			if err != nil {
				return sectionData{}, err
			}
			strategies, err := p.Strategies(ctx)
			if err != nil {
				return sectionData{}, err
			}
			var data sectionData
			if term != "" {
				data.notes = append(data.notes, fmt.Sprintf("Filter: %q", term))
			}
			for _, u := range settings.Filter(all, term) {
				assigned, err := p.Assignments(ctx, u.ID)
				if err != nil {
					return sectionData{}, err
				}
				count := settings.AssignedCount(u, len(strategies), assigned.Data)
				line := fmt.Sprintf("%-24s %-28s %-14s %d/%d priorities · %.2f FTE",
					u.DisplayName(), u.Email, u.Role.Label(), count, len(strategies), u.FTE)
				if !p.CanDelete(u, all) {
					line += " · protected"
				}
				data.rows = append(data.rows, row{id: u.ID, text: line, item: u})
			}
			return data, nil
		},
		actions: []action{
			{
				key: "/", label: "Filter",
				fields: func(context.Context, *row) ([]field, error) {
					return []field{{key: "term", label: "Name or email", value: term}}, nil
				},
				run: func(_ context.Context, _ *row, v map[string]string) error {
					term = text(v, "term")
					return nil
				},
			},
			{
				key: "o", label: "Change role", needsRow: true,
				fields: func(_ context.Context, sel *row) ([]field, error) {
					u := sel.item.(domain.User)
					return []field{{key: "role", label: "Role (administrator, co_lead, view, sme)", value: string(u.Role)}}, nil
				},
				run: func(ctx context.Context, sel *row, v map[string]string) error {
					return p.ChangeRole(ctx, sel.id, domain.Role(text(v, "role")))
				},
			},
			{
				key: "s", label: "Toggle priority", needsRow: true,
				fields: func(ctx context.Context, sel *row) ([]field, error) {
					u := sel.item.(domain.User)
					if !settings.Assignable(u) {
						return nil, p.ToggleAssignment(ctx, u, "")
					}
					strategies, err := p.Strategies(ctx)
					if err != nil {
						return nil, err
					}
					titles := make([]string, len(strategies))
					for i, s := range strategies {
						titles[i] = s.Title
					}
					return []field{{key: "strategy", label: "Priority", placeholder: strings.Join(titles, ", ")}}, nil
				},
				run: func(ctx context.Context, sel *row, v map[string]string) error {
					strategies, err := p.Strategies(ctx)
					if err != nil {
						return err
					}
					want := strings.ToLower(text(v, "strategy"))
					for _, s := range strategies {
						if strings.ToLower(s.Title) == want {
							return p.ToggleAssignment(ctx, sel.item.(domain.User), s.ID)
						}
					}
					return a.reject(validation.Errorf("Strategy", "No priority named %q", text(v, "strategy")))
				},
			},
			{
				key: "c", label: "Edit capacity", needsRow: true,
				fields: func(ctx context.Context, sel *row) ([]field, error) {
					e, err := settings.OpenCapacityEditor(ctx, a.deps, sel.id)
					if err != nil {
						return nil, err
					}
					editor = e
					all, err := tags.List(ctx)
					if err != nil {
						return nil, err
					}
					names := tagNames(all.Data)
					var selected []string
					for _, id := range e.Selected() {
						selected = append(selected, names[id])
					}
					fte, salary, hours := e.Figures()
					return []field{
						{key: "tags", label: "Team tags", value: strings.Join(selected, ", ")},
						{key: "primary", label: "Primary tag", value: names[e.ResolvedPrimary()]},
						{key: "fte", label: "FTE", value: strconv.FormatFloat(fte, 'f', -1, 64)},
						{key: "salary", label: "Salary", value: salary.String()},
						{key: "hours", label: "Service delivery hours", value: strconv.FormatFloat(hours, 'f', -1, 64)},
					}, nil
				},
				run: func(ctx context.Context, _ *row, v map[string]string) error {
					if editor == nil || !editor.IsOpen() {
						return settings.ErrInvalidState
					}
					all, err := tags.List(ctx)
					if err != nil {
						return err
					}
					if err := applyCapacity(editor, all.Data, v); err != nil {
						return a.reject(err)
					}
					return editor.Save(ctx)
				},
				cancel: func(*row) {
					if editor != nil {
						editor.Close()
					}
				},
				keepOpen: func(*row) bool { return editor != nil && editor.IsOpen() },
			},
			{
				key: "d", label: "Delete user", needsRow: true,
				run: func(ctx context.Context, sel *row, _ map[string]string) error {
					return p.DeleteUser(ctx, sel.item.(domain.User))
				},
			},
		},
	}
}

func tagNames(tags []domain.TeamTag) map[string]string {
	out := make(map[string]string, len(tags))
	for _, t := range tags {
		out[t.ID] = t.Name
	}
	return out
}

// applyCapacity moves the editor to the form's values: tags named in the
// comma list end up selected, every other tag deselected.
func applyCapacity(e *settings.CapacityEditor, tags []domain.TeamTag, v map[string]string) error {
	byName := make(map[string]string, len(tags))
	for _, t := range tags {
		byName[strings.ToLower(strings.TrimSpace(t.Name))] = t.ID
	}
	want := map[string]bool{}
	for _, name := range strings.Split(v["tags"], ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		id, ok := byName[name]
		if !ok {
			return validation.Errorf("TeamTags", "No team tag named %q", strings.TrimSpace(name))
		}
		want[id] = true
	}
	for _, id := range e.Selected() {
		if !want[id] {
			e.ToggleTag(id)
		}
	}
	for _, t := range tags {
		if want[t.ID] && !e.IsSelected(t.ID) {
			e.ToggleTag(t.ID)
		}
	}
	if primary := strings.ToLower(text(v, "primary")); primary != "" {
		id, ok := byName[primary]
		if !ok {
			return validation.Errorf("PrimaryTeamTagID", "No team tag named %q", text(v, "primary"))
		}
		if err := e.SetPrimary(id); err != nil {
			return err
		}
	}
	fte, err := parseFloat("FTE", v["fte"])
	if err != nil {
		return err
	}
	hours, err := parseFloat("Service delivery hours", v["hours"])
	if err != nil {
		return err
	}
	salary := decimal.Zero
	if raw := text(v, "salary"); raw != "" {
		salary, err = decimal.NewFromString(raw)
		if err != nil {
			return validation.Errorf("Salary", "Salary must be a number")
		}
	}
	e.SetFTE(fte)
	e.SetSalary(salary)
	e.SetHours(hours)
	return nil
}

// Strategies

func strategiesSection(p *settings.StrategyPanel) *section {
	draftFields := func(s *domain.Strategy) []field {
		var cur domain.Strategy
		if s != nil {
			cur = *s
		}
		return []field{
			{key: "title", label: "Title", value: cur.Title},
			{key: "color", label: "Color", value: cur.ColorCode, placeholder: "#1E88E5"},
			{key: "status", label: "Status", value: cur.Status},
			{key: "description", label: "Description", value: cur.Description},
		}
	}
	draft := func(v map[string]string) settings.StrategyDraft {
		return settings.StrategyDraft{Title: text(v, "title"), ColorCode: text(v, "color"), Status: text(v, "status"), Description: text(v, "description")}
	}
	move := func(delta int) func(context.Context, *row, map[string]string) error {
		return func(ctx context.Context, sel *row, _ map[string]string) error {
			return p.Move(ctx, sel.id, delta)
		}
	}
	return &section{
		empty: "No priorities yet.",
		load: func(ctx context.Context) (sectionData, error) {
			list, err := p.List(ctx)
			if err != nil {
				return sectionData{}, err
			}
			var data sectionData
			for _, s := range list {
				data.rows = append(data.rows, row{
					id:   s.ID,
					text: fmt.Sprintf("%2d. %-32s %-8s %s", s.DisplayOrder, s.Title, s.ColorCode, s.Status),
					item: s,
				})
			}
			return data, nil
		},
		actions: []action{
			{
				key: "n", label: "New priority",
				fields: staticFields(draftFields(nil)...),
				run: func(ctx context.Context, _ *row, v map[string]string) error {
					_, err := p.Create(ctx, draft(v))
					return err
				},
			},
			{
				key: "e", label: "Edit", needsRow: true,
				fields: func(_ context.Context, sel *row) ([]field, error) {
					s := sel.item.(domain.Strategy)
					return draftFields(&s), nil
				},
				run: func(ctx context.Context, sel *row, v map[string]string) error {
					_, err := p.Update(ctx, sel.id, draft(v))
					return err
				},
			},
			{key: "[", label: "Move up", needsRow: true, run: move(-1)},
			{key: "]", label: "Move down", needsRow: true, run: move(1)},
			{
				key: "d", label: "Delete", needsRow: true,
				run: func(ctx context.Context, sel *row, _ map[string]string) error {
					return p.Delete(ctx, sel.item.(domain.Strategy))
				},
			},
		},
	}
}

// Workstreams and phases

func workstreamsSection(p *settings.WorkstreamPanel, reject func(error) error) *section {
	return &section{
		empty: "Select a priority with s.",
		load: func(ctx context.Context) (sectionData, error) {
			strategies, err := p.Strategies(ctx)
			if err != nil {
				return sectionData{}, err
			}
			var data sectionData
			selected := "none"
			for _, s := range strategies {
				if s.ID == p.StrategyID() {
					selected = s.Title
				}
			}
			data.notes = append(data.notes, "Priority: "+selected)
			ws, err := p.Workstreams(ctx)
			if err != nil {
				return sectionData{}, err
			}
			phases, err := p.Phases(ctx)
			if err != nil {
				return sectionData{}, err
			}
			if ws.Disabled {
				return data, nil
			}
			for _, w := range ws.Data {
				line := fmt.Sprintf("workstream  %-28s %-16s %s", w.Name, w.Lead, w.Status)
				data.rows = append(data.rows, row{id: w.ID, text: line, item: w})
			}
			for _, ph := range phases.Data {
				line := fmt.Sprintf("phase %2d    %-28s %s → %s", ph.Sequence, ph.Name, ph.PlannedStart, ph.PlannedEnd)
				data.rows = append(data.rows, row{id: ph.ID, text: line, item: ph})
			}
			return data, nil
		},
		actions: []action{
			{
				key: "s", label: "Select priority",
				fields: func(ctx context.Context, _ *row) ([]field, error) {
					strategies, err := p.Strategies(ctx)
					if err != nil {
						return nil, err
					}
					titles := make([]string, len(strategies))
					for i, s := range strategies {
						titles[i] = s.Title
					}
					return []field{{key: "strategy", label: "Priority", placeholder: strings.Join(titles, ", ")}}, nil
				},
				run: func(ctx context.Context, _ *row, v map[string]string) error {
					strategies, err := p.Strategies(ctx)
					if err != nil {
						return err
					}
					want := strings.ToLower(text(v, "strategy"))
					for _, s := range strategies {
						if strings.ToLower(s.Title) == want {
							p.SelectStrategy(s.ID)
							return nil
						}
					}
					return reject(validation.Errorf("Strategy", "No priority named %q", text(v, "strategy")))
				},
			},
			{
				key: "g", label: "Seed defaults",
				run: func(ctx context.Context, _ *row, _ map[string]string) error { return p.SeedDefaults(ctx) },
			},
			{
				key: "n", label: "New workstream",
				fields: staticFields(field{key: "name", label: "Name"}),
				run: func(ctx context.Context, _ *row, v map[string]string) error {
					_, err := p.CreateWorkstream(ctx, text(v, "name"))
					return err
				},
			},
			{
				key: "p", label: "New phase",
				fields: staticFields(field{key: "name", label: "Name"}, field{key: "sequence", label: "Sequence", value: "1"}),
				run: func(ctx context.Context, _ *row, v map[string]string) error {
					seq, err := parseInt("Sequence", v["sequence"])
					if err != nil {
						return err
					}
					_, err = p.CreatePhase(ctx, text(v, "name"), seq)
					return err
				},
			},
			{
				key: "e", label: "Edit", needsRow: true,
				fields: func(_ context.Context, sel *row) ([]field, error) {
					switch it := sel.item.(type) {
					case domain.Workstream:
						p.BeginEditWorkstream(it.ID)
						return []field{
							{key: "name", label: "Name", value: it.Name},
							{key: "lead", label: "Lead", value: it.Lead},
							{key: "status", label: "Status", value: it.Status},
						}, nil
					case domain.Phase:
						p.BeginEditPhase(it.ID)
						return []field{
							{key: "name", label: "Name", value: it.Name},
							{key: "start", label: "Planned start", value: it.PlannedStart, placeholder: "YYYY-MM-DD"},
							{key: "end", label: "Planned end", value: it.PlannedEnd, placeholder: "YYYY-MM-DD"},
						}, nil
					}
					return nil, settings.ErrInvalidState
				},
				run: func(ctx context.Context, sel *row, v map[string]string) error {
					switch it := sel.item.(type) {
					case domain.Workstream:
						err := p.UpdateWorkstreamDraft(it.ID, func(d *settings.WorkstreamDraft) {
							d.Name = changed(it.Name, v["name"])
							d.Lead = changed(it.Lead, v["lead"])
							d.Status = changed(it.Status, v["status"])
						})
						if err != nil {
							return err
						}
						return p.SaveWorkstream(ctx, it.ID)
					case domain.Phase:
						err := p.UpdatePhaseDraft(it.ID, func(d *settings.PhaseDraft) {
							d.Name = changed(it.Name, v["name"])
							d.PlannedStart = changed(it.PlannedStart, v["start"])
							d.PlannedEnd = changed(it.PlannedEnd, v["end"])
						})
						if err != nil {
							return err
						}
						return p.SavePhase(ctx, it.ID)
					}
					return settings.ErrInvalidState
				},
				cancel: func(sel *row) {
					switch it := sel.item.(type) {
					case domain.Workstream:
						p.CancelWorkstream(it.ID)
					case domain.Phase:
						p.CancelPhase(it.ID)
					}
				},
			},
			{
				key: "d", label: "Delete", needsRow: true,
				run: func(ctx context.Context, sel *row, _ map[string]string) error {
					switch it := sel.item.(type) {
					case domain.Workstream:
						return p.DeleteWorkstream(ctx, it)
					case domain.Phase:
						return p.DeletePhase(ctx, it)
					}
					return settings.ErrInvalidState
				},
			},
		},
	}
}

// changed returns a pointer to the trimmed input when it differs from the
// current value, nil otherwise.
func changed(current, input string) *string {
	input = strings.TrimSpace(input)
	if input == current {
		return nil
	}
	return &input
}

// Simple collections

func holidaysSection(p *settings.Panel[domain.Holiday, settings.HolidayDraft]) *section {
	return crudSection(p, "No holidays yet.",
		func(h domain.Holiday) string { return fmt.Sprintf("%s  %-28s %s", h.Date, h.Name, h.Description) },
		func(h *domain.Holiday) []field {
			var cur domain.Holiday
			if h != nil {
				cur = *h
			}
			return []field{
				{key: "date", label: "Date", value: cur.Date, placeholder: "YYYY-MM-DD"},
				{key: "name", label: "Name", value: cur.Name},
				{key: "description", label: "Description", value: cur.Description},
			}
		},
		func(v map[string]string) settings.HolidayDraft {
			return settings.HolidayDraft{Date: text(v, "date"), Name: text(v, "name"), Description: text(v, "description")}
		},
		func(h domain.Holiday) string { return h.ID },
	)
}

func teamTagsSection(p *settings.Panel[domain.TeamTag, settings.TeamTagDraft]) *section {
	return crudSection(p, "No team tags yet.",
		func(t domain.TeamTag) string { return fmt.Sprintf("%-28s %s", t.Name, t.ColorHex) },
		func(t *domain.TeamTag) []field {
			var cur domain.TeamTag
			if t != nil {
				cur = *t
			}
			return []field{
				{key: "name", label: "Name", value: cur.Name},
				{key: "color", label: "Color", value: cur.ColorHex, placeholder: "#1E88E5"},
			}
		},
		func(v map[string]string) settings.TeamTagDraft {
			return settings.TeamTagDraft{Name: text(v, "name"), ColorHex: text(v, "color")}
		},
		func(t domain.TeamTag) string { return t.ID },
	)
}

func goalsSection(p *settings.Panel[domain.ExecutiveGoal, settings.ExecutiveGoalDraft]) *section {
	return crudSection(p, "No executive goals yet.",
		func(g domain.ExecutiveGoal) string { return fmt.Sprintf("%-28s %s", g.Name, g.Description) },
		func(g *domain.ExecutiveGoal) []field {
			var cur domain.ExecutiveGoal
			if g != nil {
				cur = *g
			}
			return []field{
				{key: "name", label: "Name", value: cur.Name},
				{key: "description", label: "Description", value: cur.Description},
			}
		},
		func(v map[string]string) settings.ExecutiveGoalDraft {
			return settings.ExecutiveGoalDraft{Name: text(v, "name"), Description: text(v, "description")}
		},
		func(g domain.ExecutiveGoal) string { return g.ID },
	)
}

func templateTypesSection(p *settings.Panel[domain.TemplateType, settings.TemplateTypeDraft]) *section {
	sec := crudSection(p, "Only the built-in categories exist.",
		func(t domain.TemplateType) string { return t.Name },
		func(t *domain.TemplateType) []field {
			var cur domain.TemplateType
			if t != nil {
				cur = *t
			}
			return []field{{key: "name", label: "Name", value: cur.Name}}
		},
		func(v map[string]string) settings.TemplateTypeDraft {
			return settings.TemplateTypeDraft{Name: text(v, "name")}
		},
		func(t domain.TemplateType) string { return t.ID },
	)
	load := sec.load
	sec.load = func(ctx context.Context) (sectionData, error) {
		data, err := load(ctx)
		if err != nil {
			return data, err
		}
		data.notes = append(data.notes, "Built in: "+strings.Join(domain.DefaultTemplateTypes, ", "))
		return data, nil
	}
	return sec
}

// crudSection binds a generic panel to n/e/d.
func crudSection[T, D any](
	p *settings.Panel[T, D],
	empty string,
	describe func(T) string,
	fields func(*T) []field,
	draft func(map[string]string) D,
	id func(T) string,
) *section {
	return &section{
		empty: empty,
		load: func(ctx context.Context) (sectionData, error) {
			res, err := p.List(ctx)
			if err != nil {
				return sectionData{}, err
			}
			var data sectionData
			for _, item := range res.Data {
				data.rows = append(data.rows, row{id: id(item), text: describe(item), item: item})
			}
			return data, nil
		},
		actions: []action{
			{
				key: "n", label: "New " + strings.ToLower(p.Name()),
				fields: func(context.Context, *row) ([]field, error) { return fields(nil), nil },
				run: func(ctx context.Context, _ *row, v map[string]string) error {
					_, err := p.Create(ctx, draft(v))
					return err
				},
			},
			{
				key: "e", label: "Edit", needsRow: true,
				fields: func(_ context.Context, sel *row) ([]field, error) {
					item := sel.item.(T)
					return fields(&item), nil
				},
				run: func(ctx context.Context, sel *row, v map[string]string) error {
					_, err := p.Update(ctx, sel.id, draft(v))
					return err
				},
			},
			{
				key: "d", label: "Delete", needsRow: true,
				run: func(ctx context.Context, sel *row, _ map[string]string) error {
					return p.Delete(ctx, sel.item.(T))
				},
			},
		},
	}
}

// Communication templates

func commTemplatesSection(p *settings.CommunicationTemplatePanel) *section {
	return &section{
		empty: "No communication templates.",
		load: func(ctx context.Context) (sectionData, error) {
			list, err := p.List(ctx)
			if err != nil {
				return sectionData{}, err
			}
			var data sectionData
			for _, t := range list {
				data.rows = append(data.rows, row{id: t.ID, text: fmt.Sprintf("%-28s %s", t.Name, t.Subject), item: t})
			}
			return data, nil
		},
		actions: []action{
			{
				key: "e", label: "Edit", needsRow: true,
				fields: func(_ context.Context, sel *row) ([]field, error) {
					t := sel.item.(domain.CommunicationTemplate)
					return []field{
						{key: "subject", label: "Subject", value: t.Subject},
						{key: "body", label: "Body", value: t.Body},
					}, nil
				},
				run: func(ctx context.Context, sel *row, v map[string]string) error {
					_, err := p.Update(ctx, sel.id, v["subject"], v["body"])
					return err
				},
			},
		},
	}
}

// Registration

func registrationSection(p *settings.RegistrationPanel) *section {
	return &section{
		load: func(ctx context.Context) (sectionData, error) {
			token, err := p.Token(ctx)
			if err != nil {
				return sectionData{}, err
			}
			if token == "" {
				return sectionData{notes: []string{"No registration link yet. Press g to generate one."}}, nil
			}
			return sectionData{notes: []string{
				"Share this link to let people join your organization:",
				p.URL(token),
			}}, nil
		},
		actions: []action{
			{
				key: "g", label: "Generate link",
				run: func(ctx context.Context, _ *row, _ map[string]string) error {
					_, err := p.Generate(ctx)
					return err
				},
			},
			{
				key: "t", label: "Rotate link",
				run: func(ctx context.Context, _ *row, _ map[string]string) error {
					_, err := p.Rotate(ctx)
					return err
				},
			},
		},
	}
}

// Data export

func exportSection(x *export.Exporter) *section {
	return &section{
		load: func(context.Context) (sectionData, error) {
			data := sectionData{notes: []string{"Files are written to " + x.Dir}}
			for _, e := range export.Entities {
				line := e.Label()
				if x.IsRunning(e) {
					line += " · exporting"
				}
				data.rows = append(data.rows, row{id: string(e), text: line, item: e})
			}
			return data, nil
		},
		actions: []action{
			{
				key: "x", label: "Export", needsRow: true,
				run: func(ctx context.Context, sel *row, _ map[string]string) error {
					_, err := x.Export(ctx, sel.item.(export.Entity))
					return err
				},
			},
			{
				key: "A", label: "Export all",
				run: func(ctx context.Context, _ *row, _ map[string]string) error {
					for _, res := range x.ExportAll(ctx) {
						if res.Err != nil {
							return res.Err
						}
					}
					return nil
				},
			},
		},
	}
}

// Organizations

func organizationsSection(p *settings.OrganizationPanel) *section {
	return &section{
		empty: "No organizations.",
		load: func(ctx context.Context) (sectionData, error) {
			res, err := p.List(ctx)
			if err != nil {
				return sectionData{}, err
			}
			var data sectionData
			for _, o := range res.Data {
				data.rows = append(data.rows, row{id: o.ID, text: fmt.Sprintf("%-32s %s", o.Name, o.RegistrationToken), item: o})
			}
			return data, nil
		},
		actions: []action{
			{
				key: "n", label: "New organization",
				fields: staticFields(field{key: "name", label: "Name"}),
				run: func(ctx context.Context, _ *row, v map[string]string) error {
					_, err := p.Create(ctx, text(v, "name"))
					return err
				},
			},
			{
				key: "t", label: "Rotate token", needsRow: true,
				run: func(ctx context.Context, sel *row, _ map[string]string) error {
					_, err := p.RotateToken(ctx, sel.item.(domain.Organization))
					return err
				},
			},
			{
				key: "d", label: "Delete", needsRow: true,
				run: func(ctx context.Context, sel *row, _ map[string]string) error {
					return p.Delete(ctx, sel.item.(domain.Organization))
				},
			},
		},
	}
}
