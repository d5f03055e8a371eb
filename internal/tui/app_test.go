package tui

import (
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/strata/internal/apitest"
	"github.com/kingrea/strata/internal/capability"
	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/settings"
	"github.com/kingrea/strata/internal/shell"
	"github.com/kingrea/strata/internal/toast"
)

var adminCaps = capability.Capabilities{CanManageUsers: true, CanEditTactics: true}

type harness struct {
	app    *App
	srv    *apitest.Server
	cache  *query.Cache
	toasts *toast.Recorder
}

func newHarness(t *testing.T, caps capability.Capabilities, opts ...AppOption) *harness {
	t.Helper()
	return buildHarness(t, caps, append([]AppOption{WithConfirmer(settings.AlwaysConfirm)}, opts...)...)
}

// buildHarness keeps the modal confirmer unless opts replace it.
func buildHarness(t *testing.T, caps capability.Capabilities, opts ...AppOption) *harness {
	t.Helper()
	srv := apitest.New(t)
	cache := query.New()
	rec := &toast.Recorder{}
	opts = append([]AppOption{WithToastSink(rec)}, opts...)
	app, err := NewApp(Session{
		API:   srv.NewClient(t),
		Me:    domain.CurrentUser{ID: "me", Email: "me@example.com", Role: domain.RoleAdministrator},
		Caps:  caps,
		Cache: cache,
	}, opts...)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return &harness{app: app, srv: srv, cache: cache, toasts: rec}
}

// drive runs cmd and every command it produces, feeding messages back into
// Update until nothing is left. Spinner ticks and cursor blinks are dropped;
// both re-arm themselves forever.
func (h *harness) drive(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 200, "command loop did not settle")
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case nil, spinner.TickMsg, cursor.BlinkMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, follow := h.app.Update(msg)
			queue = append(queue, follow)
		}
	}
}

func (h *harness) press(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		_, cmd := h.app.Update(keyMsg(k))
		h.drive(t, cmd)
	}
}

func (h *harness) typeText(t *testing.T, s string) {
	t.Helper()
	_, cmd := h.app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	h.drive(t, cmd)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "ctrl+u":
		return tea.KeyMsg{Type: tea.KeyCtrlU}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func (h *harness) open(t *testing.T, tab shell.Tab) {
	t.Helper()
	if tab != shell.TabSecurity && tab != shell.TabTimeOff && tab != shell.TabTemplates {
		require.NoError(t, h.app.Shell().SetMode(shell.ModeAdmin))
	}
	require.NoError(t, h.app.Shell().SetTab(tab))
	h.drive(t, h.app.switched())
}

func rowTexts(a *App) []string {
	out := make([]string, len(a.data.rows))
	for i, r := range a.data.rows {
		out[i] = r.text
	}
	return out
}

func TestAdministrationHiddenWithoutCapability(t *testing.T) {
	h := newHarness(t, capability.Capabilities{})
	h.drive(t, h.app.Init())
	view := h.app.View()
	assert.Contains(t, view, "My Settings")
	assert.NotContains(t, view, "Administration")

	h.press(t, "a")
	assert.Equal(t, shell.ModeUser, h.app.Shell().Mode())
	assert.Equal(t, 0, h.srv.Count(http.MethodGet, "/api/users"))
}

func TestModeSwitchResetsToFirstTab(t *testing.T) {
	h := newHarness(t, adminCaps)
	h.drive(t, h.app.Init())
	h.press(t, "tab")
	assert.Equal(t, shell.TabTimeOff, h.app.Shell().Tab())

	h.press(t, "a")
	assert.Equal(t, shell.TabUsers, h.app.Shell().Tab())
	assert.Contains(t, h.app.View(), "Administration")

	h.press(t, "u")
	assert.Equal(t, shell.TabSecurity, h.app.Shell().Tab())
}

func TestCreateHolidayThroughForm(t *testing.T) {
	h := newHarness(t, adminCaps)
	h.open(t, shell.TabHolidays)

	h.press(t, "n")
	require.NotNil(t, h.app.form)
	h.typeText(t, "2025-12-25")
	h.press(t, "enter")
	h.typeText(t, "Christmas")
	h.press(t, "enter", "enter")

	assert.Nil(t, h.app.form)
	require.Len(t, h.srv.Holidays(), 1)
	assert.Equal(t, "Christmas", h.srv.Holidays()[0].Name)
	last, ok := h.toasts.Last()
	require.True(t, ok)
	assert.Equal(t, toast.VariantDefault, last.Variant)
	require.Len(t, h.app.data.rows, 1)
	assert.Contains(t, rowTexts(h.app)[0], "Christmas")
}

func TestEscapeCancelsFormWithoutRequest(t *testing.T) {
	h := newHarness(t, adminCaps)
	h.open(t, shell.TabStrategies)
	h.srv.ResetRequests()

	h.press(t, "n")
	h.typeText(t, "Grow revenue")
	h.press(t, "esc")

	assert.Nil(t, h.app.form)
	assert.Equal(t, "Cancelled", h.app.statusMsg)
	assert.Equal(t, 0, h.srv.Count(http.MethodPost, "/api/strategies"))
}

func TestInvalidFormShowsOneToastAndNoRequest(t *testing.T) {
	h := newHarness(t, adminCaps)
	h.open(t, shell.TabTeamTags)
	h.srv.ResetRequests()

	h.press(t, "n")
	h.typeText(t, "Ops")
	h.press(t, "enter")
	h.typeText(t, "blue")
	h.press(t, "enter")

	assert.Equal(t, 1, h.toasts.Len())
	last, _ := h.toasts.Last()
	assert.Equal(t, "Validation error", last.Title)
	assert.Equal(t, 0, h.srv.Count(http.MethodPost, "/api/team-tags"))
}

func TestDeleteWaitsForModalAnswer(t *testing.T) {
	msgs := make(chan tea.Msg, 32)
	h := buildHarness(t, adminCaps, WithSender(func(m tea.Msg) { msgs <- m }))
	h.srv.AddHoliday(domain.Holiday{Date: "2025-01-01", Name: "New Year"})
	h.open(t, shell.TabHolidays)
	require.Len(t, h.app.data.rows, 1)

	answer := func(key string) []tea.Msg {
		_, cmd := h.app.Update(keyMsg("d"))
		done := make(chan []tea.Msg, 1)
		go func() { done <- collect(cmd) }()

		var req confirmRequestMsg
		select {
		case m := <-msgs:
			var ok bool
			req, ok = m.(confirmRequestMsg)
			require.True(t, ok, "expected a confirm request, got %T", m)
		case <-time.After(5 * time.Second):
			t.Fatal("no confirm request")
		}
		h.app.Update(req)
		assert.Contains(t, h.app.View(), `Delete holiday "2025-01-01 New Year"?`)
		h.app.Update(keyMsg(key))
		assert.Nil(t, h.app.prompt)
		return <-done
	}

	for _, m := range answer("n") {
		h.app.Update(m)
	}
	assert.Equal(t, "Cancelled", h.app.statusMsg)
	assert.Len(t, h.srv.Holidays(), 1)

	for _, m := range answer("y") {
		_, cmd := h.app.Update(m)
		h.drive(t, cmd)
	}
	assert.Empty(t, h.srv.Holidays())
}

// collect runs cmd and its batch children, returning every non-tick message.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case nil, spinner.TickMsg:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	default:
		return []tea.Msg{msg}
	}
}

func TestTwoFactorEnrollmentByKeys(t *testing.T) {
	h := newHarness(t, capability.Capabilities{})
	h.drive(t, h.app.Init())
	assert.Contains(t, h.app.View(), "Two-factor authentication: off")
	assert.Contains(t, h.app.View(), "a***@example.com")

	h.press(t, "e")
	assert.Contains(t, h.app.View(), "awaiting code")

	h.press(t, "c")
	require.NotNil(t, h.app.form)
	h.typeText(t, apitest.TwoFactorCode)
	h.press(t, "enter")

	assert.True(t, h.srv.TwoFactorEnabled())
	assert.Contains(t, h.app.View(), "Two-factor authentication: on")
}

func TestCapacityFormSavesEditedFigures(t *testing.T) {
	h := newHarness(t, adminCaps)
	ops := h.srv.AddTeamTag(domain.TeamTag{Name: "Ops", ColorHex: "#112233"})
	u := h.srv.AddUser(domain.User{FirstName: "Ada", LastName: "L", Email: "ada@example.com", Role: domain.RoleView, FTE: 1, Salary: decimal.NewFromInt(90000)})
	h.srv.SetUserTeamTags(u.ID, []domain.UserTeamTag{{TeamTagID: ops.ID, IsPrimary: true}})
	h.open(t, shell.TabUsers)
	require.Len(t, h.app.data.rows, 1)

	h.press(t, "c")
	require.NotNil(t, h.app.form)
	assert.Equal(t, "Ops", h.app.form.values()["tags"])
	h.press(t, "tab", "tab", "ctrl+u")
	h.typeText(t, "0.5")
	h.press(t, "enter", "enter", "enter")

	saved, ok := h.srv.User(u.ID)
	require.True(t, ok)
	assert.Equal(t, 0.5, saved.FTE)
	assert.True(t, decimal.NewFromInt(90000).Equal(saved.Salary))
	require.Len(t, h.srv.UserTeamTags(u.ID), 1)
	assert.True(t, h.srv.UserTeamTags(u.ID)[0].IsPrimary)
}

func TestCapacityFormStaysOpenWhenSaveFails(t *testing.T) {
	h := newHarness(t, adminCaps)
	ops := h.srv.AddTeamTag(domain.TeamTag{Name: "Ops", ColorHex: "#112233"})
	u := h.srv.AddUser(domain.User{FirstName: "Ada", LastName: "L", Email: "ada@example.com", Role: domain.RoleView, FTE: 1})
	h.srv.SetUserTeamTags(u.ID, []domain.UserTeamTag{{TeamTagID: ops.ID, IsPrimary: true}})
	h.open(t, shell.TabUsers)

	h.press(t, "c")
	require.NotNil(t, h.app.form)
	h.press(t, "tab", "tab", "ctrl+u")
	h.typeText(t, "0.5")
	h.srv.FailNext(http.MethodPatch, "/api/users/"+u.ID+"/capacity", http.StatusInternalServerError, "boom")
	h.press(t, "enter", "enter", "enter")

	require.NotNil(t, h.app.form, "a failed save keeps the edits on screen")
	assert.Equal(t, "0.5", h.app.form.values()["fte"])
	assert.Equal(t, "Failed: boom", h.app.statusMsg)
	saved, _ := h.srv.User(u.ID)
	assert.Equal(t, 1.0, saved.FTE)

	h.press(t, "enter")
	assert.Nil(t, h.app.form)
	saved, _ = h.srv.User(u.ID)
	assert.Equal(t, 0.5, saved.FTE)
}

func TestInvalidationPostsSingleReload(t *testing.T) {
	msgs := make(chan tea.Msg, 8)
	h := newHarness(t, adminCaps, WithSender(func(m tea.Msg) { msgs <- m }))
	h.open(t, shell.TabHolidays)

	h.cache.Invalidate("holidays")
	h.cache.Invalidate("holidays")
	require.Len(t, msgs, 1)
	msg := <-msgs
	assert.IsType(t, invalidatedMsg{}, msg)

	h.srv.AddHoliday(domain.Holiday{Date: "2025-07-04", Name: "Independence Day"})
	_, cmd := h.app.Update(msg)
	h.drive(t, cmd)
	assert.Len(t, h.app.data.rows, 1)
}

func TestJournalTailIsRendered(t *testing.T) {
	journal, err := toast.NewJournal(filepath.Join(t.TempDir(), "activity.log"))
	require.NoError(t, err)
	srv := apitest.New(t)
	app, err := NewApp(Session{API: srv.NewClient(t), Caps: adminCaps, Journal: journal}, WithConfirmer(settings.AlwaysConfirm))
	require.NoError(t, err)
	t.Cleanup(app.Close)

	require.NoError(t, app.Shell().SetMode(shell.ModeAdmin))
	require.NoError(t, app.Shell().SetTab(shell.TabRegistration))
	h := &harness{app: app, srv: srv}
	h.drive(t, app.switched())
	assert.Contains(t, app.View(), "No registration link yet")

	h.press(t, "g")
	view := app.View()
	assert.Contains(t, view, "Activity")
	assert.Contains(t, view, "https://plan.example.com/register/")
	assert.True(t, strings.Contains(view, "OK"))
}
