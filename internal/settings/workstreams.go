package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/mutation"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/validation"
)

// ProgramTags are the families a workstream or phase write can affect.
var ProgramTags = []query.Tag{
	"workstreams", "phases", "workstream-tasks", "workstream-calculations",
	"projects", "actions", "strategies",
}

// WorkstreamDraft holds the fields collected while editing a workstream. Nil
// fields were not touched and are not sent.
type WorkstreamDraft struct {
	StrategyID string  `json:"strategyId,omitempty"`
	Name       *string `json:"name,omitempty"`
	Lead       *string `json:"lead,omitempty"`
	Status     *string `json:"status,omitempty"`
	SortOrder  *int    `json:"sortOrder,omitempty"`
}

// Empty reports whether nothing was collected.
func (d WorkstreamDraft) Empty() bool {
	return d.Name == nil && d.Lead == nil && d.Status == nil && d.SortOrder == nil
}

// PhaseDraft holds the fields collected while editing a phase.
type PhaseDraft struct {
	StrategyID   string  `json:"strategyId,omitempty"`
	Name         *string `json:"name,omitempty"`
	Sequence     *int    `json:"sequence,omitempty"`
	PlannedStart *string `json:"plannedStart,omitempty"`
	PlannedEnd   *string `json:"plannedEnd,omitempty"`
}

// Empty reports whether nothing was collected.
func (d PhaseDraft) Empty() bool {
	return d.Name == nil && d.Sequence == nil && d.PlannedStart == nil && d.PlannedEnd == nil
}

type phaseDates struct {
	PlannedStart string `validate:"isodate,notafter=PlannedEnd"`
	PlannedEnd   string `validate:"isodate"`
}

type patchInput[D any] struct {
	ID    string
	Draft D
}

// WorkstreamPanel manages a strategy's workstreams and phases. Each row has
// its own edit draft, so editing one row never disturbs another.
type WorkstreamPanel struct {
	deps Deps

	mu         sync.Mutex
	strategyID string
	wsDrafts   map[string]WorkstreamDraft
	phDrafts   map[string]PhaseDraft

	seed        *mutation.Executor[string, seedResult]
	createWS    *mutation.Executor[WorkstreamDraft, domain.Workstream]
	updateWS    *mutation.Executor[patchInput[WorkstreamDraft], domain.Workstream]
	deleteWS    *mutation.Executor[domain.Workstream, struct{}]
	createPhase *mutation.Executor[PhaseDraft, domain.Phase]
	updatePhase *mutation.Executor[patchInput[PhaseDraft], domain.Phase]
	deletePhase *mutation.Executor[domain.Phase, struct{}]
}

type seedResult struct {
	WorkstreamsCreated int `json:"workstreamsCreated"`
	PhasesCreated      int `json:"phasesCreated"`
}

// NewWorkstreamPanel wires the panel with no strategy selected.
func NewWorkstreamPanel(deps Deps) *WorkstreamPanel {
	deps = deps.normalize("settings.workstreams")
	p := &WorkstreamPanel{
		deps:     deps,
		wsDrafts: map[string]WorkstreamDraft{},
		phDrafts: map[string]PhaseDraft{},
	}
	wsPath := apiclient.Path("workstreams")
	phPath := apiclient.Path("phases")

	p.seed = mutation.New(mutation.Spec[string, seedResult]{
		Name: "Seed default program",
		Do: func(ctx context.Context, strategyID string) (seedResult, error) {
			var out seedResult
			err := deps.API.Post(ctx, apiclient.Path("workstreams", "seed-program"), map[string]string{"strategyId": strategyID}, &out)
			return out, err
		},
		Invalidates: ProgramTags,
		Success: func(_ string, r seedResult) string {
			if r.WorkstreamsCreated+r.PhasesCreated == 0 {
				return "Default program already present"
			}
			return fmt.Sprintf("Added %d workstreams and %d phases", r.WorkstreamsCreated, r.PhasesCreated)
		},
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))

	p.createWS = mutation.New(mutation.Spec[WorkstreamDraft, domain.Workstream]{
		Name: "Create workstream",
		Do: func(ctx context.Context, d WorkstreamDraft) (domain.Workstream, error) {
			var out domain.Workstream
			err := deps.API.Post(ctx, wsPath, d, &out)
			return out, err
		},
		Invalidates: ProgramTags,
		Success:     func(_ WorkstreamDraft, w domain.Workstream) string { return w.Name + " created" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	p.updateWS = mutation.New(mutation.Spec[patchInput[WorkstreamDraft], domain.Workstream]{
		Name: "Update workstream",
		Do: func(ctx context.Context, in patchInput[WorkstreamDraft]) (domain.Workstream, error) {
			var out domain.Workstream
			err := deps.API.Patch(ctx, wsPath+"/"+pathEscape(in.ID), in.Draft, &out)
			return out, err
		},
		Invalidates: ProgramTags,
		Success:     func(patchInput[WorkstreamDraft], domain.Workstream) string { return "Workstream updated" },
		OnSuccess:   func(in patchInput[WorkstreamDraft], _ domain.Workstream) { p.CancelWorkstream(in.ID) },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	p.deleteWS = mutation.New(mutation.Spec[domain.Workstream, struct{}]{
		Name: "Delete workstream",
		Do: func(ctx context.Context, w domain.Workstream) (struct{}, error) {
			return struct{}{}, deps.API.Delete(ctx, wsPath+"/"+pathEscape(w.ID))
		},
		Invalidates: ProgramTags,
		Success:     func(w domain.Workstream, _ struct{}) string { return w.Name + " deleted" },
		OnSuccess:   func(w domain.Workstream, _ struct{}) { p.CancelWorkstream(w.ID) },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))

	p.createPhase = mutation.New(mutation.Spec[PhaseDraft, domain.Phase]{
		Name: "Create phase",
		Do: func(ctx context.Context, d PhaseDraft) (domain.Phase, error) {
			var out domain.Phase
			err := deps.API.Post(ctx, phPath, d, &out)
			return out, err
		},
		Invalidates: ProgramTags,
		Success:     func(_ PhaseDraft, ph domain.Phase) string { return ph.Name + " created" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	p.updatePhase = mutation.New(mutation.Spec[patchInput[PhaseDraft], domain.Phase]{
		Name: "Update phase",
		Do: func(ctx context.Context, in patchInput[PhaseDraft]) (domain.Phase, error) {
			var out domain.Phase
			err := deps.API.Patch(ctx, phPath+"/"+pathEscape(in.ID), in.Draft, &out)
			return out, err
		},
		Invalidates: ProgramTags,
		Success:     func(patchInput[PhaseDraft], domain.Phase) string { return "Phase updated" },
		OnSuccess:   func(in patchInput[PhaseDraft], _ domain.Phase) { p.CancelPhase(in.ID) },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	p.deletePhase = mutation.New(mutation.Spec[domain.Phase, struct{}]{
		Name: "Delete phase",
		Do: func(ctx context.Context, ph domain.Phase) (struct{}, error) {
			return struct{}{}, deps.API.Delete(ctx, phPath+"/"+pathEscape(ph.ID))
		},
		Invalidates: ProgramTags,
		Success:     func(ph domain.Phase, _ struct{}) string { return ph.Name + " deleted" },
		OnSuccess:   func(ph domain.Phase, _ struct{}) { p.CancelPhase(ph.ID) },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	return p
}

// Strategies lists the strategies to choose from.
func (p *WorkstreamPanel) Strategies(ctx context.Context) ([]domain.Strategy, error) {
	return readStrategies(ctx, p.deps)
}

// SelectStrategy switches the panel to strategyID and drops open drafts.
func (p *WorkstreamPanel) SelectStrategy(strategyID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.strategyID == strategyID {
		return
	}
	p.strategyID = strategyID
	p.wsDrafts = map[string]WorkstreamDraft{}
	p.phDrafts = map[string]PhaseDraft{}
}

// StrategyID returns the selected strategy, or "".
func (p *WorkstreamPanel) StrategyID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.strategyID
}

// Workstreams reads the selected strategy's workstreams. Disabled until a
// strategy is selected.
func (p *WorkstreamPanel) Workstreams(ctx context.Context) (query.Result[[]domain.Workstream], error) {
	sid := p.StrategyID()
	res, err := query.Read(ctx, p.deps.Cache, query.Key{"workstreams", sid},
		fetch[[]domain.Workstream](p.deps.API, apiclient.Path("workstreams"), apiclient.WithQuery("strategyId", sid)),
		query.Enabled(sid != ""))
	if err != nil {
		return res, fmt.Errorf("settings: list workstreams: %w", err)
	}
	return res, nil
}

// Phases reads the selected strategy's phases.
func (p *WorkstreamPanel) Phases(ctx context.Context) (query.Result[[]domain.Phase], error) {
	sid := p.StrategyID()
	res, err := query.Read(ctx, p.deps.Cache, query.Key{"phases", sid},
		fetch[[]domain.Phase](p.deps.API, apiclient.Path("phases"), apiclient.WithQuery("strategyId", sid)),
		query.Enabled(sid != ""))
	if err != nil {
		return res, fmt.Errorf("settings: list phases: %w", err)
	}
	return res, nil
}

func (p *WorkstreamPanel) requireStrategy() (string, error) {
	sid := p.StrategyID()
	if sid == "" {
		return "", mutation.Reject(p.deps.Toasts, validation.Errorf("StrategyID", "Select a strategy first"))
	}
	return sid, nil
}

// SeedDefaults adds the default workstreams and phases the strategy lacks.
func (p *WorkstreamPanel) SeedDefaults(ctx context.Context) error {
	sid, err := p.requireStrategy()
	if err != nil {
		return err
	}
	_, err = p.seed.Run(ctx, sid)
	return err
}

// CreateWorkstream adds a workstream named name to the selected strategy.
func (p *WorkstreamPanel) CreateWorkstream(ctx context.Context, name string) (domain.Workstream, error) {
	sid, err := p.requireStrategy()
	if err != nil {
		return domain.Workstream{}, err
	}
	if err := validation.Struct(struct {
		Name string `validate:"notblank"`
	}{name}); err != nil {
		return domain.Workstream{}, mutation.Reject(p.deps.Toasts, err)
	}
	return p.createWS.Run(ctx, WorkstreamDraft{StrategyID: sid, Name: &name})
}

// DeleteWorkstream confirms and deletes w.
func (p *WorkstreamPanel) DeleteWorkstream(ctx context.Context, w domain.Workstream) error {
	if err := p.deps.confirm(ctx, fmt.Sprintf("Delete workstream %q?", w.Name)); err != nil {
		return err
	}
	_, err := p.deleteWS.Run(ctx, w)
	return err
}

// BeginEditWorkstream opens an empty draft for id. An existing draft is kept.
func (p *WorkstreamPanel) BeginEditWorkstream(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.wsDrafts[id]; !ok {
		p.wsDrafts[id] = WorkstreamDraft{}
	}
}

// UpdateWorkstreamDraft applies edit to id's draft.
func (p *WorkstreamPanel) UpdateWorkstreamDraft(id string, edit func(*WorkstreamDraft)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.wsDrafts[id]
	if !ok {
		return fmt.Errorf("%w: workstream %s is not being edited", ErrInvalidState, id)
	}
	edit(&d)
	p.wsDrafts[id] = d
	return nil
}

// WorkstreamDraftFor returns id's draft.
func (p *WorkstreamPanel) WorkstreamDraftFor(id string) (WorkstreamDraft, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.wsDrafts[id]
	return d, ok
}

// SaveWorkstream sends only the collected fields. An untouched draft closes
// without a request.
func (p *WorkstreamPanel) SaveWorkstream(ctx context.Context, id string) error {
	d, ok := p.WorkstreamDraftFor(id)
	if !ok {
		return fmt.Errorf("%w: workstream %s is not being edited", ErrInvalidState, id)
	}
	if d.Empty() {
		p.CancelWorkstream(id)
		return nil
	}
	if d.Name != nil {
		if err := validation.Struct(struct {
			Name string `validate:"notblank"`
		}{*d.Name}); err != nil {
			return mutation.Reject(p.deps.Toasts, err)
		}
	}
	_, err := p.updateWS.Run(ctx, patchInput[WorkstreamDraft]{ID: id, Draft: d})
	return err
}

// CancelWorkstream drops id's draft.
func (p *WorkstreamPanel) CancelWorkstream(id string) {
	p.mu.Lock()
	delete(p.wsDrafts, id)
	p.mu.Unlock()
}

// CreatePhase adds a phase to the selected strategy.
func (p *WorkstreamPanel) CreatePhase(ctx context.Context, name string, sequence int) (domain.Phase, error) {
	sid, err := p.requireStrategy()
	if err != nil {
		return domain.Phase{}, err
	}
	if err := validation.Struct(struct {
		Name     string `validate:"notblank"`
		Sequence int    `validate:"gte=1"`
	}{name, sequence}); err != nil {
		return domain.Phase{}, mutation.Reject(p.deps.Toasts, err)
	}
	return p.createPhase.Run(ctx, PhaseDraft{StrategyID: sid, Name: &name, Sequence: &sequence})
}

// DeletePhase confirms and deletes ph.
func (p *WorkstreamPanel) DeletePhase(ctx context.Context, ph domain.Phase) error {
	if err := p.deps.confirm(ctx, fmt.Sprintf("Delete phase %q?", ph.Name)); err != nil {
		return err
	}
	_, err := p.deletePhase.Run(ctx, ph)
	return err
}

// BeginEditPhase opens an empty draft for id.
func (p *WorkstreamPanel) BeginEditPhase(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.phDrafts[id]; !ok {
		p.phDrafts[id] = PhaseDraft{}
	}
}

// UpdatePhaseDraft applies edit to id's draft.
func (p *WorkstreamPanel) UpdatePhaseDraft(id string, edit func(*PhaseDraft)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.phDrafts[id]
	if !ok {
		return fmt.Errorf("%w: phase %s is not being edited", ErrInvalidState, id)
	}
	edit(&d)
	p.phDrafts[id] = d
	return nil
}

// PhaseDraftFor returns id's draft.
func (p *WorkstreamPanel) PhaseDraftFor(id string) (PhaseDraft, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.phDrafts[id]
	return d, ok
}

// SavePhase sends only the collected fields. When both planned dates were
// collected they must be ordered.
func (p *WorkstreamPanel) SavePhase(ctx context.Context, id string) error {
	d, ok := p.PhaseDraftFor(id)
	if !ok {
		return fmt.Errorf("%w: phase %s is not being edited", ErrInvalidState, id)
	}
	if d.Empty() {
		p.CancelPhase(id)
		return nil
	}
	if d.PlannedStart != nil && d.PlannedEnd != nil {
		if err := validation.Struct(phaseDates{PlannedStart: *d.PlannedStart, PlannedEnd: *d.PlannedEnd}); err != nil {
			return mutation.Reject(p.deps.Toasts, err)
		}
	}
	_, err := p.updatePhase.Run(ctx, patchInput[PhaseDraft]{ID: id, Draft: d})
	return err
}

// CancelPhase drops id's draft.
func (p *WorkstreamPanel) CancelPhase(id string) {
	p.mu.Lock()
	delete(p.phDrafts, id)
	p.mu.Unlock()
}
