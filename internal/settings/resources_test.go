package settings

import (
	"net/http"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/query"
)

func TestHolidayCreateListDelete(t *testing.T) {
	f := newFixture(t, adminCaps)
	p := NewHolidayPanel(f.deps)

	_, err := p.Create(f.ctx, HolidayDraft{Date: "2025-12-25", Name: "Christmas"})
	require.NoError(t, err)
	_, err = p.Create(f.ctx, HolidayDraft{Date: "2025-01-01", Name: "New Year"})
	require.NoError(t, err)

	res, err := p.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "New Year", res.Data[0].Name, "holidays sort by date")

	require.NoError(t, p.Delete(f.ctx, res.Data[1]))
	res, err = p.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "New Year", res.Data[0].Name)
	assert.Equal(t, "Holiday deleted", f.lastToast(t).Description)
}

func TestHolidayValidation(t *testing.T) {
	f := newFixture(t, adminCaps)
	p := NewHolidayPanel(f.deps)
	_, err := p.Create(f.ctx, HolidayDraft{Date: "25/12/2025", Name: "Christmas"})
	require.Error(t, err)
	_, err = p.Create(f.ctx, HolidayDraft{Date: "2025-12-25", Name: "  "})
	require.Error(t, err)
	assert.Empty(t, f.srv.Requests())
	assert.Equal(t, 2, f.toasts.Len())
}

func TestDeclinedDeleteMakesNoRequest(t *testing.T) {
	f := newFixture(t, adminCaps)
	h := f.srv.AddHoliday(domain.Holiday{Date: "2025-07-04", Name: "Independence Day"})
	f.deps.Confirm = NeverConfirm
	err := NewHolidayPanel(f.deps).Delete(f.ctx, h)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Empty(t, f.srv.Requests())
	assert.Len(t, f.srv.Holidays(), 1)
}

func TestPtoEndBeforeStartMakesNoRequest(t *testing.T) {
	f := newFixture(t, adminCaps)
	p := NewPtoPanel(f.deps, "u1")
	_, err := p.Create(f.ctx, PtoDraft{StartDate: "2025-06-10", EndDate: "2025-06-05"})
	require.Error(t, err)
	assert.Empty(t, f.srv.Requests())
	assert.Equal(t, 1, f.toasts.Len())
	assert.Equal(t, "Start date must be on or before end date", f.lastToast(t).Description)
}

func TestPtoScopedToUser(t *testing.T) {
	f := newFixture(t, adminCaps)
	f.srv.AddPto(domain.PtoEntry{UserID: "u2", StartDate: "2025-02-01", EndDate: "2025-02-02"})
	p := NewPtoPanel(f.deps, "u1")

	created, err := p.Create(f.ctx, PtoDraft{StartDate: "2025-06-05", EndDate: "2025-06-10", Notes: "Beach"})
	require.NoError(t, err)
	assert.Equal(t, "u1", created.UserID)

	res, err := p.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Beach", res.Data[0].Notes)
	_, fresh, ok := query.Peek[[]domain.PtoEntry](f.deps.Cache, query.Key{"users", "u1", "pto"})
	assert.True(t, ok)
	assert.True(t, fresh)
}

func TestPtoDisabledWithoutUser(t *testing.T) {
	f := newFixture(t, adminCaps)
	p := NewPtoPanel(f.deps, "")
	res, err := p.List(f.ctx)
	require.NoError(t, err)
	assert.True(t, res.Disabled)
	_, err = p.Create(f.ctx, PtoDraft{StartDate: "2025-06-05", EndDate: "2025-06-10"})
	require.Error(t, err)
	assert.Empty(t, f.srv.Requests())
}

func TestTeamTagNamesAreUniqueIgnoringCase(t *testing.T) {
	f := newFixture(t, adminCaps)
	existing := f.srv.AddTeamTag(domain.TeamTag{Name: "Engineering", ColorHex: "#1E88E5"})
	p := NewTeamTagPanel(f.deps)
	_, err := p.List(f.ctx)
	require.NoError(t, err)
	f.srv.ResetRequests()

	_, err = p.Create(f.ctx, TeamTagDraft{Name: "engineering ", ColorHex: "#000000"})
	require.Error(t, err)
	_, err = p.Create(f.ctx, TeamTagDraft{Name: "Design", ColorHex: "red"})
	require.Error(t, err)
	assert.Empty(t, f.srv.Requests())

	_, err = p.Update(f.ctx, existing.ID, TeamTagDraft{Name: "ENGINEERING", ColorHex: "#1E88E5"})
	require.NoError(t, err, "renaming a tag to its own name in another case is allowed")
	assert.Equal(t, 1, f.srv.Count(http.MethodPatch, "/api/team-tags/"+existing.ID))
}

func TestTemplateCategoryCollidesWithBuiltIns(t *testing.T) {
	f := newFixture(t, adminCaps)
	p := NewTemplateTypePanel(f.deps)
	_, err := p.Create(f.ctx, TemplateTypeDraft{Name: "project"})
	require.Error(t, err)
	assert.Empty(t, f.srv.Requests())
	_, err = p.Create(f.ctx, TemplateTypeDraft{Name: "Finance"})
	require.NoError(t, err)
}

func TestExecutiveGoalUniqueness(t *testing.T) {
	f := newFixture(t, adminCaps)
	f.srv.AddExecutiveGoal(domain.ExecutiveGoal{Name: "Grow revenue"})
	p := NewExecutiveGoalPanel(f.deps)
	_, err := p.List(f.ctx)
	require.NoError(t, err)
	_, err = p.Create(f.ctx, ExecutiveGoalDraft{Name: "GROW REVENUE"})
	require.Error(t, err)
	assert.Equal(t, `Executive goal "GROW REVENUE" already exists`, f.lastToast(t).Description)
}

func TestUniqueNameCheckedBeforeListIsLoaded(t *testing.T) {
	f := newFixture(t, adminCaps)
	f.srv.AddTeamTag(domain.TeamTag{Name: "Engineering", ColorHex: "#1E88E5"})
	p := NewTeamTagPanel(f.deps)

	_, err := p.Create(f.ctx, TeamTagDraft{Name: "engineering", ColorHex: "#000000"})
	require.Error(t, err)
	assert.Equal(t, 0, f.srv.Count(http.MethodPost, "/api/team-tags"))
	assert.Equal(t, 1, f.toasts.Len())
}

func TestUniqueNameSeesRowsCreatedSinceLastList(t *testing.T) {
	f := newFixture(t, adminCaps)
	p := NewTeamTagPanel(f.deps)
	_, err := p.List(f.ctx)
	require.NoError(t, err)

	_, err = p.Create(f.ctx, TeamTagDraft{Name: "Design", ColorHex: "#1E88E5"})
	require.NoError(t, err)
	_, err = p.Create(f.ctx, TeamTagDraft{Name: "design", ColorHex: "#000000"})
	require.Error(t, err)
	assert.Equal(t, `Team tag "design" already exists`, f.lastToast(t).Description)

	assert.Equal(t, 1, f.srv.Count(http.MethodPost, "/api/team-tags"))
	res, err := p.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)
}

func TestFailedWriteIsLoggedWithComponent(t *testing.T) {
	f := newFixture(t, adminCaps)
	logger, hook := logtest.NewNullLogger()
	f.deps.Logger = logger
	p := NewHolidayPanel(f.deps)
	f.srv.FailNext(http.MethodPost, "/api/holidays", http.StatusConflict, "Holiday already exists on that date")

	_, err := p.Create(f.ctx, HolidayDraft{Date: "2025-12-25", Name: "Christmas"})
	require.Error(t, err)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "settings.Holiday", entry.Data["component"])
	assert.Equal(t, "Create holiday", entry.Data["mutation"])
	assert.Equal(t, http.StatusConflict, entry.Data["status"])
}
