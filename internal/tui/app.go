// internal/tui/app.go
//
// This is the settings console's TUI. It uses bubbletea, which follows The
// Elm Architecture:
//
// 1. Model: the shell (mode + tab), the active section's rows and any open
//    form or confirm prompt
// 2. Update: keys and command results change that state
// 3. View: renders it
//
// Panels do their network work inside tea.Cmds; results come back as
// messages. Cache invalidations arrive the same way and reload the section.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/capability"
	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/export"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/settings"
	"github.com/kingrea/strata/internal/shell"
	"github.com/kingrea/strata/internal/toast"
)

const journalLines = 5

// Session is everything the console needs from startup.
type Session struct {
	API      settings.API
	Me       domain.CurrentUser
	Caps     capability.Capabilities
	Cache    *query.Cache
	Journal  *toast.Journal
	Exporter *export.Exporter
	Logger   logrus.FieldLogger
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithConfirmer replaces the modal y/n prompt.
func WithConfirmer(c settings.Confirmer) AppOption {
	return func(a *App) {
		if c != nil {
			a.confirmer = c
		}
	}
}

// WithToastSink adds a sink that receives every toast alongside the journal.
func WithToastSink(s toast.Sink) AppOption {
	return func(a *App) {
		a.extraSink = s
	}
}

// WithSender sets how background work posts messages to the program.
func WithSender(send func(tea.Msg)) AppOption {
	return func(a *App) {
		a.attach(send)
	}
}

type sectionLoadedMsg struct {
	tab  shell.Tab
	data sectionData
	err  error
}

type formReadyMsg struct {
	tab    shell.Tab
	action *action
	row    *row
	fields []field
	err    error
}

type actionDoneMsg struct {
	tab    shell.Tab
	act    *action
	action string
	err    error
}

type toastMsg struct {
	toast toast.Toast
}

type invalidatedMsg struct{}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	session   Session
	shell     *shell.Shell
	deps      settings.Deps
	sections  map[shell.Tab]*section
	confirmer settings.Confirmer
	modal     *modalConfirmer
	extraSink toast.Sink
	logger    logrus.FieldLogger

	send          atomic.Pointer[func(tea.Msg)]
	reloadPending atomic.Bool
	unsubscribe   func()

	data      sectionData
	loadErr   error
	loading   bool
	busy      bool
	cursor    int
	form      *form
	formFor   *action
	formRow   *row
	prompt    *confirmRequestMsg
	lastToast *toast.Toast
	statusMsg string
	spinner   spinner.Model

	width  int
	height int
}

// NewApp builds the console for an authenticated session.
func NewApp(s Session, opts ...AppOption) (*App, error) {
	if s.API == nil {
		return nil, errors.New("tui: session has no API client")
	}
	if s.Cache == nil {
		s.Cache = query.New()
	}
	if s.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		s.Logger = l
	}
	ctx, cancel := context.WithCancel(context.Background())
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	app := &App{
		ctx:     ctx,
		cancel:  cancel,
		session: s,
		shell:   shell.New(s.Caps),
		modal:   &modalConfirmer{},
		logger:  s.Logger.WithField("component", "tui"),
		spinner: sp,
	}
	app.confirmer = app.modal
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	sink := toast.Fanout(s.Journal, app.extraSink, toast.SinkFunc(func(t toast.Toast) {
		app.post(toastMsg{toast: t})
	}))
	app.deps = settings.Deps{
		API:     s.API,
		Cache:   s.Cache,
		Toasts:  sink,
		Confirm: app.confirmer,
		Caps:    s.Caps,
		Me:      s.Me,
		Logger:  s.Logger,
	}
	if s.Exporter != nil {
		s.Exporter.Toasts = sink
		if s.Exporter.Logger == nil {
			s.Exporter.Logger = s.Logger
		}
	}
	app.sections = app.buildSections()
	app.unsubscribe = s.Cache.Subscribe(func(query.Key) {
		if app.reloadPending.CompareAndSwap(false, true) {
			app.post(invalidatedMsg{})
		}
	})
	return app, nil
}

// Attach routes background messages to p. Call it before p.Run.
func (a *App) Attach(p *tea.Program) {
	if p == nil {
		return
	}
	a.attach(p.Send)
}

func (a *App) attach(send func(tea.Msg)) {
	if send == nil {
		return
	}
	a.send.Store(&send)
	a.modal.attach(send)
}

func (a *App) post(msg tea.Msg) {
	if fn := a.send.Load(); fn != nil {
		(*fn)(msg)
	}
}

// Close cancels in-flight work and drops the cache subscription.
func (a *App) Close() {
	a.cancel()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

// Shell exposes the navigation state.
func (a *App) Shell() *shell.Shell { return a.shell }

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.reload()
}

func (a *App) current() *section {
	return a.sections[a.shell.Tab()]
}

func (a *App) reload() tea.Cmd {
	sec := a.current()
	if sec == nil || sec.load == nil {
		a.data = sectionData{}
		return nil
	}
	a.loading = true
	tab := a.shell.Tab()
	ctx := a.ctx
	load := sec.load
	return tea.Batch(func() tea.Msg {
		data, err := load(ctx)
		return sectionLoadedMsg{tab: tab, data: data, err: err}
	}, a.spinner.Tick)
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case spinner.TickMsg:
		if !a.loading && !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case sectionLoadedMsg:
		if msg.tab != a.shell.Tab() {
			return a, nil
		}
		a.loading = false
		a.loadErr = msg.err
		if msg.err == nil {
			a.data = msg.data
		}
		a.clampCursor()
		return a, nil

	case invalidatedMsg:
		a.reloadPending.Store(false)
		if a.loading {
			return a, nil
		}
		return a, a.reload()

	case toastMsg:
		t := msg.toast
		a.lastToast = &t
		return a, nil

	case confirmRequestMsg:
		a.prompt = &msg
		return a, nil

	case formReadyMsg:
		a.busy = false
		if msg.err != nil || msg.tab != a.shell.Tab() {
			if msg.err != nil {
				a.statusMsg = errorStatus(msg.err)
			}
			return a, nil
		}
		a.form = newForm(msg.action.label, msg.fields)
		a.formFor = msg.action
		a.formRow = msg.row
		return a, nil

	case actionDoneMsg:
		a.busy = false
		if a.form != nil && a.formFor == msg.act {
			if msg.err == nil || msg.act.keepOpen == nil || !msg.act.keepOpen(a.formRow) {
				a.closeForm()
			}
		}
		if msg.err == nil {
			a.statusMsg = msg.action + " done"
		} else {
			a.statusMsg = errorStatus(msg.err)
			a.logger.WithError(msg.err).WithField("action", msg.action).Debug("action failed")
		}
		if msg.tab != a.shell.Tab() {
			return a, nil
		}
		return a, a.reload()

	case tea.KeyMsg:
		if a.prompt != nil {
			return a, a.answerPrompt(msg)
		}
		if a.form != nil {
			if a.busy && msg.String() != "ctrl+c" {
				return a, nil
			}
			return a, a.updateForm(msg)
		}
		return a, a.handleKey(msg)
	}

	if a.form != nil {
		return a, a.updateForm(msg)
	}
	return a, nil
}

func (a *App) answerPrompt(msg tea.KeyMsg) tea.Cmd {
	var answer, done bool
	switch msg.String() {
	case "y", "Y", "enter":
		answer, done = true, true
	case "n", "N", "esc":
		done = true
	case "ctrl+c":
		done = true
	}
	if !done {
		return nil
	}
	a.prompt.reply <- answer
	a.prompt = nil
	if msg.String() == "ctrl+c" {
		a.Close()
		return tea.Quit
	}
	return nil
}

func (a *App) updateForm(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
		a.Close()
		return tea.Quit
	}
	result, cmd := a.form.update(msg)
	switch result {
	case formCancelled:
		if a.formFor != nil && a.formFor.cancel != nil {
			a.formFor.cancel(a.formRow)
		}
		a.closeForm()
		a.statusMsg = "Cancelled"
		return nil
	case formSubmitted:
		act, r, values := a.formFor, a.formRow, a.form.values()
		if act == nil || act.keepOpen == nil {
			a.closeForm()
		}
		return a.run(act, r, values)
	}
	return cmd
}

func (a *App) closeForm() {
	a.form = nil
	a.formFor = nil
	a.formRow = nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		a.Close()
		return tea.Quit
	case "tab", "right", "l":
		a.shell.NextTab()
		return a.switched()
	case "shift+tab", "left", "h":
		a.shell.PrevTab()
		return a.switched()
	case "u":
		if err := a.shell.SetMode(shell.ModeUser); err == nil {
			return a.switched()
		}
		return nil
	case "a":
		if err := a.shell.SetMode(shell.ModeAdmin); err != nil {
			a.statusMsg = "Administration requires the administrator role"
			return nil
		}
		return a.switched()
	case "r":
		a.statusMsg = "Reloading..."
		return a.reload()
	case "down", "j":
		if a.cursor < len(a.data.rows)-1 {
			a.cursor++
		}
		return nil
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
		return nil
	}
	sec := a.current()
	if sec == nil {
		return nil
	}
	for i := range sec.actions {
		act := &sec.actions[i]
		if act.key == key {
			return a.trigger(act)
		}
	}
	return nil
}

func (a *App) switched() tea.Cmd {
	a.cursor = 0
	a.data = sectionData{}
	a.loadErr = nil
	a.statusMsg = ""
	return a.reload()
}

func (a *App) selected() *row {
	if a.cursor < 0 || a.cursor >= len(a.data.rows) {
		return nil
	}
	r := a.data.rows[a.cursor]
	return &r
}

func (a *App) trigger(act *action) tea.Cmd {
	if a.busy {
		a.statusMsg = "Still working..."
		return nil
	}
	sel := a.selected()
	if act.needsRow && sel == nil {
		a.statusMsg = "Select a row first"
		return nil
	}
	if act.fields == nil {
		return a.run(act, sel, nil)
	}
	a.busy = true
	tab, ctx := a.shell.Tab(), a.ctx
	return tea.Batch(func() tea.Msg {
		fields, err := act.fields(ctx, sel)
		return formReadyMsg{tab: tab, action: act, row: sel, fields: fields, err: err}
	}, a.spinner.Tick)
}

func (a *App) run(act *action, sel *row, values map[string]string) tea.Cmd {
	if act == nil || act.run == nil {
		return nil
	}
	a.busy = true
	tab, ctx := a.shell.Tab(), a.ctx
	return tea.Batch(func() tea.Msg {
		err := act.run(ctx, sel, values)
		return actionDoneMsg{tab: tab, act: act, action: act.label, err: err}
	}, a.spinner.Tick)
}

func (a *App) clampCursor() {
	if a.cursor >= len(a.data.rows) {
		a.cursor = len(a.data.rows) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, settings.ErrNotConfirmed):
		return "Cancelled"
	case errors.Is(err, settings.ErrForbidden), errors.Is(err, shell.ErrForbidden):
		return "Not permitted"
	case errors.Is(err, settings.ErrInvalidState):
		return "Not available right now"
	}
	return "Failed: " + apiclient.Message(err, err.Error())
}

// View renders the console.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	parts := []string{
		a.renderHeader(),
		a.renderModes(),
		a.renderTabs(),
		a.renderBody(width),
	}
	if a.form != nil {
		parts = append(parts, a.form.view(width))
	}
	if a.prompt != nil {
		parts = append(parts, a.renderPrompt(width))
	}
	if logPanel := a.renderJournal(width); logPanel != "" {
		parts = append(parts, logPanel)
	}
	parts = append(parts, a.renderStatus())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).Render("◆ STRATA SETTINGS")
	who := a.session.Me.Email
	if who == "" {
		who = a.session.Me.ID
	}
	meta := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).
		Render(fmt.Sprintf("  %s · %s", who, a.session.Me.Role.Label()))
	return title + meta
}

func (a *App) renderModes() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	idle := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Padding(0, 1)
	var out []string
	for _, m := range a.shell.Modes() {
		hotkey := "u"
		if m == shell.ModeAdmin {
			hotkey = "a"
		}
		label := fmt.Sprintf("[%s] %s", hotkey, m.Label())
		if m == a.shell.Mode() {
			out = append(out, active.Render(label))
		} else {
			out = append(out, idle.Render(label))
		}
	}
	return strings.Join(out, " ")
}

func (a *App) renderTabs() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Underline(true)
	idle := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	var out []string
	for _, t := range a.shell.Tabs() {
		if t == a.shell.Tab() {
			out = append(out, active.Render(t.Label()))
		} else {
			out = append(out, idle.Render(t.Label()))
		}
	}
	return strings.Join(out, " │ ")
}

func (a *App) renderBody(width int) string {
	sec := a.current()
	var lines []string
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	switch {
	case a.loading && len(a.data.rows) == 0 && len(a.data.notes) == 0:
		lines = append(lines, a.spinner.View()+" Loading...")
	case a.loadErr != nil:
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Render(a.loadErr.Error()))
	default:
		lines = append(lines, a.data.notes...)
		if len(a.data.notes) > 0 && len(a.data.rows) > 0 {
			lines = append(lines, "")
		}
		for i, r := range a.data.rows {
			if i == a.cursor {
				lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Render("› "+r.text))
			} else {
				lines = append(lines, "  "+r.text)
			}
		}
		if len(a.data.rows) == 0 && len(a.data.notes) == 0 && sec != nil {
			lines = append(lines, muted.Render(sec.empty))
		}
	}
	if sec != nil && len(sec.actions) > 0 {
		var hints []string
		for _, act := range sec.actions {
			hints = append(hints, act.key+" "+strings.ToLower(act.label))
		}
		lines = append(lines, "", muted.Render(strings.Join(hints, " · ")))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(30, width-4)).
		Render(strings.Join(lines, "\n"))
}

func (a *App) renderPrompt(width int) string {
	body := a.prompt.prompt + "\n\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Render("y confirm · n cancel")
	return lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color("#FF6B6B")).
		Padding(0, 1).
		Width(max(30, width-4)).
		Render(body)
}

func (a *App) renderJournal(width int) string {
	if a.session.Journal == nil {
		return ""
	}
	entries := a.session.Journal.Tail(journalLines)
	if len(entries) == 0 {
		return ""
	}
	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Render("Activity")
	body := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Render(strings.Join(entries, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(30, width-4)).
		Render(head + "\n" + body)
}

func (a *App) renderStatus() string {
	var parts []string
	if a.busy {
		parts = append(parts, a.spinner.View()+" working")
	}
	if a.lastToast != nil {
		color := lipgloss.Color("#7BC67B")
		if a.lastToast.Variant == toast.VariantDestructive {
			color = lipgloss.Color("#FF6B6B")
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(color).Render(a.lastToast.String()))
	}
	if a.statusMsg != "" {
		parts = append(parts, a.statusMsg)
	}
	parts = append(parts, "tab/shift+tab sections · j/k select · r reload · q quit")
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(strings.Join(parts, " · "))
}
