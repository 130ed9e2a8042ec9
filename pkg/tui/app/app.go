// Package teaui hosts the Bubble Tea program for the perch widget: a small
// anchor pane and a task panel floated over the terminal cell grid.
package teaui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"

	"tableflip.dev/perch/pkg/api"
	"tableflip.dev/perch/pkg/app"
	"tableflip.dev/perch/pkg/auth"
	"tableflip.dev/perch/pkg/geometry"
	"tableflip.dev/perch/pkg/session"
	"tableflip.dev/perch/pkg/sleep"
	"tableflip.dev/perch/pkg/task"
	"tableflip.dev/perch/pkg/tui/components/anchor"
	"tableflip.dev/perch/pkg/tui/components/detail"
	"tableflip.dev/perch/pkg/tui/components/taskpanel"
	"tableflip.dev/perch/pkg/tui/compose"
	"tableflip.dev/perch/pkg/tui/events"
	"tableflip.dev/perch/pkg/tui/theme"
)

// Pane sizes in cells. The anchor is deliberately tiny; the panel holds the
// task list or the detail view.
const (
	anchorWidth  = 20
	anchorHeight = 4
	panelWidth   = 46
	panelHeight  = 16
	paneGap      = 1
	screenMargin = 1

	defaultTaskLimit = 50
	sleepHours       = 1
)

type mode int

const (
	modeList mode = iota
	modeDetail
)

// Model contains UI state.
type Model struct {
	svc    *app.Service
	ctx    context.Context
	cancel context.CancelFunc
	mode   mode

	screen     geometry.Bounds
	anchorRect geometry.Rect
	panelRect  geometry.Rect
	expanded   bool

	anchor anchor.Model
	panel  taskpanel.Model
	detail detail.Model

	authState auth.State
	user      *task.User
	authCh    chan events.AuthChangedMsg
	authUnsub func()

	sleeping     bool
	remaining    time.Duration
	sleepCh      chan sleep.Event
	sleepStop    func()
	sleepTicking bool

	watchCh     <-chan session.Event
	watchCancel context.CancelFunc

	tasks []task.Task
	th    theme.Theme
}

// New creates a new UI model backed by the Service.
func New(svc *app.Service) *Model {
	th := theme.Default()
	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		svc:    svc,
		ctx:    ctx,
		cancel: cancel,
		mode:   modeList,
		anchor: anchor.New(th.Anchor),
		panel:  taskpanel.New(th.Panel, th.Footer),
		detail: detail.New(th.Detail),
		authCh: make(chan events.AuthChangedMsg, 8),
		th:     th,
		anchorRect: geometry.Rect{
			X: screenMargin, Y: screenMargin,
			Width: anchorWidth, Height: anchorHeight,
		},
	}
	m.panel.SetSize(panelWidth, panelHeight)
	m.detail.SetSize(panelWidth, panelHeight)

	if svc != nil && svc.Auth != nil {
		m.authState = svc.Auth.State()
		m.user = svc.Auth.User()
		m.authUnsub = svc.Auth.Subscribe(func(state auth.State, user *task.User) {
			select {
			case m.authCh <- events.AuthChangedMsg{State: state, User: user}:
			default:
			}
		})
	}
	if svc != nil && svc.Sleep != nil {
		m.sleepCh = make(chan sleep.Event, 8)
		m.sleepStop = svc.Sleep.Subscribe(func(ev sleep.Event) {
			select {
			case m.sleepCh <- ev:
			default:
			}
		})
	}
	return m
}

// Init loads initial data and starts the background listeners.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.panel.Init(),
		m.waitForAuth(),
		startWatchCmd(m.ctx, m.svc),
	}
	if m.authState == auth.StateAuthenticated {
		cmds = append(cmds, m.loadTasks())
		m.expanded = true
	}
	if m.sleepCh != nil {
		cmds = append(cmds, m.waitForSleep())
	}
	return tea.Batch(cmds...)
}

type watchStartedMsg struct {
	ch     <-chan session.Event
	cancel context.CancelFunc
	err    error
}

type watchStoppedMsg struct{}

func startWatchCmd(parent context.Context, svc *app.Service) tea.Cmd {
	if svc == nil || svc.Store == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(parent)
		ch, err := svc.Watch(ctx)
		if err != nil {
			cancel()
			return watchStartedMsg{err: err}
		}
		return watchStartedMsg{ch: ch, cancel: cancel}
	}
}

func (m *Model) waitForWatch() tea.Cmd {
	if m.watchCh == nil {
		return nil
	}
	ch := m.watchCh
	return func() tea.Msg {
		if ev, ok := <-ch; ok {
			return events.SessionChangedMsg{Key: ev.Key}
		}
		return watchStoppedMsg{}
	}
}

func (m *Model) waitForAuth() tea.Cmd {
	ch := m.authCh
	return func() tea.Msg {
		return <-ch
	}
}

func (m *Model) waitForSleep() tea.Cmd {
	ch := m.sleepCh
	return func() tea.Msg {
		ev := <-ch
		if ev.Kind == sleep.EventEnded {
			return events.SleepEndedMsg{Woken: ev.Woken}
		}
		return events.SleepTickMsg{Remaining: time.Duration(ev.Remaining) * time.Minute}
	}
}

type sleepRunDoneMsg struct{}

// runSleepCmd drives the timer's minute ticks until the countdown ends or
// the program exits.
func runSleepCmd(ctx context.Context, t *sleep.Timer) tea.Cmd {
	return func() tea.Msg {
		t.Run(ctx)
		return sleepRunDoneMsg{}
	}
}

func (m *Model) loadTasks() tea.Cmd {
	m.panel.SetLoading(true)
	return func() tea.Msg {
		tasks, err := m.svc.Tasks(m.ctx, api.ListOptions{Limit: defaultTaskLimit, Status: task.StatusPending})
		if err != nil {
			return events.ErrMsg{Err: err}
		}
		return events.TasksLoadedMsg{Tasks: tasks}
	}
}

func (m *Model) reorderCmd(from, to int) tea.Cmd {
	tasks := m.tasks
	return func() tea.Msg {
		out, err := m.svc.Reorder(m.ctx, tasks, from, to)
		if err != nil {
			return events.ReorderedMsg{Tasks: out, Reverted: true, Err: err}
		}
		return events.ReorderedMsg{Tasks: out}
	}
}

func (m *Model) completeCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.svc.Complete(m.ctx, id); err != nil {
			return events.ErrMsg{Err: err}
		}
		return events.TasksLoadedMsg{Tasks: removeTask(m.tasks, id)}
	}
}

func (m *Model) rateCmd(id string, index int, rating task.Rating) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.RateSuggestion(m.ctx, id, index, rating); err != nil {
			return events.ErrMsg{Err: err}
		}
		t, err := m.svc.Task(m.ctx, id)
		if err != nil {
			return events.ErrMsg{Err: err}
		}
		return events.TaskUpdatedMsg{Task: t}
	}
}

func (m *Model) enhanceCmd(id string) tea.Cmd {
	return func() tea.Msg {
		t, err := m.svc.Enhance(m.ctx, id)
		if err != nil {
			return events.ErrMsg{Err: err}
		}
		return events.TaskUpdatedMsg{Task: t}
	}
}

func (m *Model) loginCmd() tea.Cmd {
	return func() tea.Msg {
		if _, err := m.svc.Auth.Login(m.ctx); err != nil {
			return events.ErrMsg{Err: err}
		}
		return nil
	}
}

func (m *Model) replayDeepLinkCmd() tea.Cmd {
	return func() tea.Msg {
		if _, err := m.svc.ReplayDeepLink(m.ctx); err != nil {
			return events.ErrMsg{Err: err}
		}
		return nil
	}
}

func (m *Model) syncCmd() tea.Cmd {
	return func() tea.Msg {
		if _, err := m.svc.TriggerSync(m.ctx, api.SyncSourceIngestion, false); err != nil {
			return events.ErrMsg{Err: err}
		}
		return nil
	}
}

// Update handles messages and keybindings.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.screen = geometry.Bounds{Width: msg.Width, Height: msg.Height}
		m.anchorRect = geometry.ClampToScreen(m.anchorRect, m.screen, screenMargin)
		m.placePanel()
	case tea.KeyPressMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
		cmds = append(cmds, m.routeKey(msg))
	case events.AuthChangedMsg:
		m.authState = msg.State
		m.user = msg.User
		cmds = append(cmds, m.waitForAuth())
		if msg.State == auth.StateAuthenticated {
			m.expanded = true
			m.placePanel()
			cmds = append(cmds, m.loadTasks(), m.syncCmd())
		} else {
			m.tasks = nil
			m.panel.SetTasks(nil)
			m.mode = modeList
		}
	case events.TasksLoadedMsg:
		m.tasks = msg.Tasks
		m.panel.SetTasks(msg.Tasks)
	case events.TaskUpdatedMsg:
		if msg.Task != nil {
			m.tasks = replaceTask(m.tasks, *msg.Task)
			m.panel.SetTasks(m.tasks)
			if m.mode == modeDetail {
				m.detail.SetTask(msg.Task)
			}
		}
	case events.ReorderedMsg:
		m.tasks = msg.Tasks
		m.panel.SetTasks(msg.Tasks)
		if msg.Reverted {
			m.panel.SetError(msg.Err)
		}
	case events.ReorderRequestMsg:
		cmds = append(cmds, m.reorderCmd(msg.From, msg.To))
	case events.DetailRequestMsg:
		t := msg.Task
		m.detail.SetTask(&t)
		m.mode = modeDetail
	case events.CompleteRequestMsg:
		cmds = append(cmds, m.completeCmd(msg.TaskID))
	case events.RateRequestMsg:
		m.detail.SetStatus("saving…")
		cmds = append(cmds, m.rateCmd(msg.TaskID, msg.Index, msg.Rating))
	case events.SleepTickMsg:
		m.remaining = msg.Remaining
		m.anchor.SetSleeping(true, msg.Remaining)
		cmds = append(cmds, m.waitForSleep())
	case events.SleepEndedMsg:
		m.sleeping = false
		m.anchor.SetSleeping(false, 0)
		if msg.Woken {
			m.expanded = true
			m.placePanel()
		}
		cmds = append(cmds, m.waitForSleep())
	case events.SessionChangedMsg:
		if msg.Key == session.KeyDeepLink {
			cmds = append(cmds, m.replayDeepLinkCmd())
		}
		cmds = append(cmds, m.waitForWatch())
	case events.ErrMsg:
		m.panel.SetError(msg.Err)
		if m.mode == modeDetail {
			m.detail.SetStatus(msg.Err.Error())
		}
	case sleepRunDoneMsg:
		m.sleepTicking = false
		// A new countdown can start before the old run loop notices it went
		// idle; keep the ticks flowing in that case.
		if m.svc.Sleep != nil && m.svc.Sleep.State() == sleep.StateRunning {
			m.sleepTicking = true
			cmds = append(cmds, runSleepCmd(m.ctx, m.svc.Sleep))
		}
	case watchStartedMsg:
		if msg.err != nil {
			m.panel.SetError(msg.err)
		} else {
			m.watchCh = msg.ch
			m.watchCancel = msg.cancel
			cmds = append(cmds, m.waitForWatch())
		}
	case watchStoppedMsg:
		m.watchCh = nil
	default:
		cmds = append(cmds, m.panel.Update(msg))
	}

	return m, tea.Batch(cmds...)
}

// handleKey owns the global bindings; everything else routes to the focused
// pane.
func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.shutdown()
		return tea.Quit, true
	case "tab":
		if !m.sleeping {
			m.expanded = !m.expanded
			if m.expanded {
				m.placePanel()
			}
		}
		return nil, true
	case "i":
		if m.authState == auth.StateUnauthenticated {
			return m.loginCmd(), true
		}
	case "O":
		if m.authState == auth.StateAuthenticated {
			svc := m.svc
			return func() tea.Msg {
				svc.Auth.Logout(m.ctx)
				return nil
			}, true
		}
	case "r":
		if m.authState == auth.StateAuthenticated && !m.sleeping {
			return m.loadTasks(), true
		}
	case "s":
		if m.svc.Sleep != nil && !m.sleeping {
			if err := m.svc.Sleep.Start(sleepHours, 0); err == nil {
				m.sleeping = true
				m.expanded = false
				m.mode = modeList
				m.remaining = sleepHours * time.Hour
				m.anchor.SetSleeping(true, m.remaining)
				if !m.sleepTicking {
					m.sleepTicking = true
					return runSleepCmd(m.ctx, m.svc.Sleep), true
				}
			}
		}
		return nil, true
	case "w":
		if m.svc.Sleep != nil && m.sleeping {
			m.svc.Sleep.Wake()
		}
		return nil, true
	case "esc":
		if m.mode == modeDetail {
			m.mode = modeList
			return nil, true
		}
	case "e":
		if m.mode == modeDetail {
			if t := m.detail.Task(); t != nil {
				m.detail.SetStatus("enhancing…")
				return m.enhanceCmd(t.ID), true
			}
		}
	case "left", "right", "up", "down":
		if m.mode == modeList && !m.panelFocused() {
			m.moveAnchor(msg.String())
			return nil, true
		}
	case "shift+left", "shift+right", "shift+up", "shift+down":
		if m.expanded {
			m.movePanel(msg.String())
		}
		return nil, true
	}
	return nil, false
}

// panelFocused reports whether list keys should go to the panel instead of
// dragging the anchor.
func (m *Model) panelFocused() bool {
	return m.expanded && !m.sleeping && len(m.tasks) > 0
}

func (m *Model) routeKey(msg tea.KeyPressMsg) tea.Cmd {
	if m.sleeping {
		return nil
	}
	if m.mode == modeDetail {
		return m.detail.Update(msg)
	}
	if m.expanded {
		return m.panel.Update(msg)
	}
	return nil
}

// moveAnchor drags the anchor one step; only the panel is repositioned in
// response.
func (m *Model) moveAnchor(key string) {
	switch key {
	case "left":
		m.anchorRect.X -= 2
	case "right":
		m.anchorRect.X += 2
	case "up":
		m.anchorRect.Y--
	case "down":
		m.anchorRect.Y++
	}
	m.anchorRect = geometry.ClampToScreen(m.anchorRect, m.screen, screenMargin)
	m.placePanel()
}

// movePanel drags the panel one step; only the anchor is repositioned in
// response.
func (m *Model) movePanel(key string) {
	switch key {
	case "shift+left":
		m.panelRect.X -= 2
	case "shift+right":
		m.panelRect.X += 2
	case "shift+up":
		m.panelRect.Y--
	case "shift+down":
		m.panelRect.Y++
	}
	m.panelRect = geometry.ClampToScreen(m.panelRect, m.screen, paneGap)
	m.anchorRect = geometry.RepositionAnchor(m.panelRect,
		geometry.Size{Width: anchorWidth, Height: anchorHeight}, m.screen, paneGap)
}

func (m *Model) placePanel() {
	if m.screen.Width == 0 {
		return
	}
	p := geometry.PlacePanel(m.anchorRect,
		geometry.Size{Width: panelWidth, Height: panelHeight}, m.screen, paneGap)
	m.panelRect = geometry.Rect{X: p.X, Y: p.Y, Width: panelWidth, Height: panelHeight}
}

func (m *Model) shutdown() {
	if m.watchCancel != nil {
		m.watchCancel()
	}
	if m.authUnsub != nil {
		m.authUnsub()
	}
	if m.sleepStop != nil {
		m.sleepStop()
	}
	m.cancel()
}

// View composes the floating panes over an empty background.
func (m *Model) View() string {
	if m.screen.Width == 0 || m.screen.Height == 0 {
		return ""
	}

	m.anchor.SetAuth(m.authState, userName(m.user))
	m.anchor.SetExpanded(m.expanded && !m.sleeping)

	view := compose.At("", m.screen.Width, m.screen.Height, m.anchor.View(), m.anchorRect.X, m.anchorRect.Y)
	if m.expanded && !m.sleeping {
		pane := m.panel.View()
		if m.mode == modeDetail {
			pane = m.detail.View()
		}
		view = compose.At(view, m.screen.Width, m.screen.Height, pane, m.panelRect.X, m.panelRect.Y)
	}
	return view
}

// Run starts the program in the alternate screen.
func Run(svc *app.Service) error {
	p := tea.NewProgram(New(svc), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func userName(u *task.User) string {
	if u == nil {
		return ""
	}
	return u.Name
}

func removeTask(tasks []task.Task, id string) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func replaceTask(tasks []task.Task, updated task.Task) []task.Task {
	out := make([]task.Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		if out[i].ID == updated.ID {
			out[i] = updated
		}
	}
	return out
}
