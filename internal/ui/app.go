package ui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/beacon/internal/api"
	"github.com/five82/beacon/internal/prefs"
	"github.com/five82/beacon/internal/state"
)

// Tab identifies a section of the connected dashboard.
type Tab int

const (
	TabLogs Tab = iota
	TabRoutes
	TabFiles
	TabConfig
)

var tabOrder = []Tab{TabLogs, TabRoutes, TabFiles, TabConfig}

func (t Tab) String() string {
	switch t {
	case TabRoutes:
		return "Routes"
	case TabFiles:
		return "Files"
	case TabConfig:
		return "Config"
	default:
		return "Logs"
	}
}

// Controller performs the dashboard's remote actions. Results reach the UI
// through the store.
type Controller interface {
	ServerURL() string
	Connect(ctx context.Context, serverURL string) error
	ToggleServer(ctx context.Context) error
	AddRoute(ctx context.Context) error
	ClearLogs(ctx context.Context) error
}

// Options configures the UI.
type Options struct {
	Context     context.Context
	Controller  Controller
	Store       *state.Store
	ServerURL   string // prefilled in the connect form
	AutoConnect bool   // connect to ServerURL on start
	ThemeName   string
	PrefsPath   string
	ClockTick   time.Duration
	Logger      *slog.Logger
}

// route form fields
const (
	fieldPath = iota
	fieldHandler
	fieldMethod
	fieldCount
)

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	ctrl      Controller
	store     *state.Store
	prefsPath string
	clockTick time.Duration
	log       *slog.Logger
	keys      keyMap

	changes     chan struct{}
	unsubscribe func()
	autoConnect bool

	theme    Theme
	width    int
	height   int
	ready    bool
	now      time.Time
	showHelp bool

	snapshot state.Snapshot
	pending  map[string]bool // actions in flight; replaced, never mutated

	activeTab   Tab
	urlInput    textinput.Model
	routeInputs [fieldCount]textinput.Model
	routeFocus  int
	routeForm   bool
	logViewport viewport.Model
	spinner     spinner.Model
}

// New creates a new Bubble Tea model subscribed to opts.Store.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.Default().Theme
	}

	clockTick := opts.ClockTick
	if clockTick <= 0 {
		clockTick = DefaultClockTick
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serverURL := strings.TrimSpace(opts.ServerURL)
	if serverURL == "" {
		serverURL = api.DefaultServerURL
	}

	m := Model{
		ctx:         ctx,
		ctrl:        opts.Controller,
		store:       opts.Store,
		prefsPath:   opts.PrefsPath,
		clockTick:   clockTick,
		log:         logger.With("component", "ui"),
		keys:        DefaultKeyMap(),
		autoConnect: opts.AutoConnect,
		theme:       GetTheme(themeName),
		now:         time.Now(),
		activeTab:   TabLogs,
		urlInput:    newURLInput(serverURL),
		routeInputs: newRouteInputs(),
		logViewport: viewport.New(0, 0),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
		m.changes = make(chan struct{}, 1)
		changes := m.changes
		m.unsubscribe = m.store.Subscribe(func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		})
	}
	return m
}

func newURLInput(value string) textinput.Model {
	in := textinput.New()
	in.Prompt = "URL "
	in.Placeholder = api.DefaultServerURL
	in.CharLimit = 256
	in.SetValue(value)
	in.Focus()
	return in
}

func newRouteInputs() [fieldCount]textinput.Model {
	var inputs [fieldCount]textinput.Model
	placeholders := [fieldCount]string{"/api/users", "UserHandler", "GET"}
	prompts := [fieldCount]string{"Path    ", "Handler ", "Method  "}
	for i := range inputs {
		in := textinput.New()
		in.Prompt = prompts[i]
		in.Placeholder = placeholders[i]
		in.CharLimit = 128
		inputs[i] = in
	}
	return inputs
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		m.spinner.Tick,
		tickCmd(m.clockTick),
	}
	if m.changes != nil {
		cmds = append(cmds, waitForChange(m.changes))
	}
	if m.autoConnect {
		cmds = append(cmds, m.connectCmd(m.urlInput.Value()))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateLogViewport()
		return m, nil

	case storeChangedMsg:
		m.applySnapshot()
		return m, waitForChange(m.changes)

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd(m.clockTick)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, m.updateFocusedInput(msg)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.snapshot.IsConnected() {
		return m.renderDashboard()
	}
	return m.renderConnect()
}

// applySnapshot pulls the latest state from the store.
func (m *Model) applySnapshot() {
	if m.store == nil {
		return
	}
	m.snapshot = m.store.Snapshot()
	if !m.snapshot.IsConnected() && m.routeForm {
		m.closeRouteForm()
	}
	m.updateLogViewport()
}

// inputActive reports whether keystrokes go to a text input.
func (m Model) inputActive() bool {
	if m.snapshot.IsConnected() {
		return m.routeForm
	}
	return m.urlInput.Focused()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.inputActive() {
		if m.snapshot.IsConnected() {
			return m.handleRouteFormKey(msg)
		}
		return m.handleURLKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		if m.store != nil && m.snapshot.LastError != "" {
			m.store.DismissError()
		}
		return m, nil
	}

	if !m.snapshot.IsConnected() {
		return m.handleConnectKey(msg)
	}
	return m.handleDashboardKey(msg)
}

// handleConnectKey handles keys on the connect screen with the URL input blurred.
func (m Model) handleConnectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Connect), key.Matches(msg, m.keys.Reconnect):
		return m, m.startConnect()
	case key.Matches(msg, m.keys.FocusURL):
		return m, m.urlInput.Focus()
	}
	return m, nil
}

// handleURLKey routes keys to the focused URL input.
func (m Model) handleURLKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Connect):
		return m, m.startConnect()
	case key.Matches(msg, m.keys.CancelInput):
		m.urlInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.urlInput, cmd = m.urlInput.Update(msg)
	return m, cmd
}

// handleDashboardKey handles keys while connected and no input is active.
func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleRun):
		return m, m.runAction(actionToggle, m.ctrlToggle)

	case key.Matches(msg, m.keys.ClearLogs):
		return m, m.runAction(actionClearLogs, m.ctrlClearLogs)

	case key.Matches(msg, m.keys.Reconnect):
		return m, m.startConnect()

	case key.Matches(msg, m.keys.AddRoute):
		m.activeTab = TabRoutes
		return m, m.openRouteForm()

	case key.Matches(msg, m.keys.NextTab):
		m.activeTab = m.shiftTab(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevTab):
		m.activeTab = m.shiftTab(-1)
		return m, nil
	}

	if m.activeTab == TabLogs {
		m.scrollLogs(msg)
	}
	return m, nil
}

func (m Model) shiftTab(delta int) Tab {
	n := len(tabOrder)
	return tabOrder[((int(m.activeTab)+delta)%n+n)%n]
}

// scrollLogs moves the log viewport.
func (m *Model) scrollLogs(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.HalfPageDown()
	case key.Matches(msg, m.keys.PageUp):
		m.logViewport.HalfPageUp()
	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
	}
}

// updateFocusedInput forwards non-key messages such as cursor blinks.
func (m *Model) updateFocusedInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if m.routeForm {
		m.routeInputs[m.routeFocus], cmd = m.routeInputs[m.routeFocus].Update(msg)
		return cmd
	}
	if m.urlInput.Focused() {
		m.urlInput, cmd = m.urlInput.Update(msg)
	}
	return cmd
}

func (m *Model) startConnect() tea.Cmd {
	if m.pending[actionConnect] {
		return nil
	}
	url := strings.TrimSpace(m.urlInput.Value())
	if url == "" {
		url = api.DefaultServerURL
		m.urlInput.SetValue(url)
	}
	m.urlInput.Blur()
	return m.connectCmd(url)
}

func (m *Model) connectCmd(url string) tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	m.setPending(actionConnect, true)
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		err := ctrl.Connect(ctx, url)
		return actionDoneMsg{action: actionConnect, serverURL: url, err: err}
	}
}

func (m Model) ctrlToggle(ctx context.Context) error    { return m.ctrl.ToggleServer(ctx) }
func (m Model) ctrlClearLogs(ctx context.Context) error { return m.ctrl.ClearLogs(ctx) }
func (m Model) ctrlAddRoute(ctx context.Context) error  { return m.ctrl.AddRoute(ctx) }

// setPending copies the pending set so earlier Model values keep their own.
func (m *Model) setPending(action string, inFlight bool) {
	next := make(map[string]bool, len(m.pending)+1)
	for a := range m.pending {
		next[a] = true
	}
	if inFlight {
		next[action] = true
	} else {
		delete(next, action)
	}
	m.pending = next
}

// runAction runs fn in a command unless another action of the same kind is
// already in flight.
func (m *Model) runAction(action string, fn func(context.Context) error) tea.Cmd {
	if m.ctrl == nil || m.pending[action] {
		return nil
	}
	m.setPending(action, true)
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

func (m Model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	m.setPending(msg.action, false)
	if msg.err != nil {
		m.log.Debug("action failed", "action", msg.action, "error", msg.err)
	}

	var cmd tea.Cmd
	switch msg.action {
	case actionConnect:
		if msg.err == nil {
			m.savePrefs()
		} else {
			cmd = m.urlInput.Focus()
		}
	case actionAddRoute:
		if msg.err == nil {
			m.closeRouteForm()
		}
	}
	m.applySnapshot()
	return m, cmd
}

// serverURL prefers the controller's normalized URL over the raw input.
func (m Model) serverURL() string {
	if m.ctrl != nil {
		if url := m.ctrl.ServerURL(); url != "" {
			return url
		}
	}
	return strings.TrimSpace(m.urlInput.Value())
}

// savePrefs persists the theme and server URL.
func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, LastServerURL: m.serverURL()}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.Warn("save prefs failed", "error", err)
	}
}

// Messages

type tickMsg time.Time

type storeChangedMsg struct{}

const (
	actionConnect   = "connect"
	actionToggle    = "toggle"
	actionAddRoute  = "add-route"
	actionClearLogs = "clear-logs"
)

type actionDoneMsg struct {
	action    string
	serverURL string
	err       error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForChange blocks until the store reports a mutation.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		<-ch
		return storeChangedMsg{}
	}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	if m.unsubscribe != nil {
		defer m.unsubscribe()
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	return err
}
