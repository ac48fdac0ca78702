// Package tui is the terminal front-end. It draws every window as a box with
// its tab strip, turns mouse drags into drag sessions, and forwards key
// chords to the session controller.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pkt.systems/pslog"
	"pkt.systems/tabsession/core"
	"pkt.systems/tabsession/internal/eventbus"
	"pkt.systems/tabsession/internal/sessionprefs"
	"pkt.systems/tabsession/internal/strip"
	"pkt.systems/tabsession/schema"
	"pkt.systems/tabsession/surface"
)

// Options wires a Model to a running session.
type Options struct {
	Session core.Session
	Host    *surface.Host
	Bus     *eventbus.Bus
	// Renderer styles output; nil uses a renderer on stdout.
	Renderer *lipgloss.Renderer
	Logger   pslog.Logger
}

// Model is the Bubble Tea model of one front-end session.
type Model struct {
	ctx      context.Context
	session  core.Session
	host     *surface.Host
	prefs    *sessionprefs.Prefs
	events   <-chan schema.WindowEvent
	cancel   func()
	styles   styles
	keys     keyMap
	help     help.Model
	log      pslog.Logger
	maxLabel int

	width   int
	height  int
	windows []schema.WindowSnapshot
	drag    *dragState
	status  string
}

type dragState struct {
	session *core.DragSession
	tab     schema.TabID
	startX  int
	startY  int
	moved   bool
}

type windowEventMsg schema.WindowEvent

type resultMsg struct {
	status string
	err    error
	focus  schema.WindowID
}

// New builds a model. Call Close when the program exits.
func New(ctx context.Context, opts Options) *Model {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = lipgloss.NewRenderer(os.Stdout)
	}
	prefs := sessionprefs.New()
	m := &Model{
		ctx:      sessionprefs.WithContext(ctx, prefs),
		session:  opts.Session,
		host:     opts.Host,
		prefs:    prefs,
		cancel:   func() {},
		styles:   newStyles(renderer),
		keys:     newKeyMap(opts.Session.Shortcuts()),
		help:     newHelp(renderer),
		log:      logger,
		maxLabel: opts.Host.MaxLabelWidth(),
	}
	if opts.Bus != nil {
		m.events, m.cancel = opts.Bus.Subscribe(eventbus.AllWindows)
	}
	m.refresh()
	return m
}

// Close releases the event subscription and abandons any drag in progress.
func (m *Model) Close() {
	if m.drag != nil {
		m.drag.session.Cancel()
		m.drag = nil
	}
	m.cancel()
}

// Focused returns the window that receives key chords.
func (m *Model) Focused() schema.WindowID {
	return m.prefs.FocusedWindow()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return windowEventMsg(event)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case windowEventMsg:
		m.refresh()
		return m, m.waitForEvent()
	case resultMsg:
		if msg.focus != "" {
			m.prefs.SetFocusedWindow(msg.focus)
		}
		m.status = msg.status
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
			m.log.Debug("tui action failed", "err", msg.err)
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.focus):
		m.cycleFocus(1)
		return m, nil
	case key.Matches(msg, m.keys.focusBack):
		m.cycleFocus(-1)
		return m, nil
	case key.Matches(msg, m.keys.openWindow):
		return m, m.openWindowCmd()
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.cancelDrag):
		if m.drag != nil {
			m.drag.session.Cancel()
			m.drag = nil
			m.status = "drag cancelled"
		}
		return m, nil
	}
	chord := msg.String()
	if _, err := core.ParseChord(chord); err != nil {
		return m, nil
	}
	return m, m.shortcutCmd(chord)
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	regions := layout(m.windows, m.maxLabel)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		r, ok := regionAt(regions, msg.Y)
		if !ok {
			return m, nil
		}
		m.prefs.SetFocusedWindow(r.window.ID)
		if r.stripRow() != msg.Y {
			return m, nil
		}
		i := strip.HitTest(r.bounds, msg.X-stripOrigin)
		if i < 0 {
			return m, nil
		}
		tab := r.window.Tabs[i]
		session, err := m.session.BeginDrag(m.ctx, r.window.ID, tab.ID)
		if err != nil {
			m.status = "error: " + err.Error()
			return m, nil
		}
		if m.drag != nil {
			m.drag.session.Cancel()
		}
		m.drag = &dragState{session: session, tab: tab.ID, startX: msg.X, startY: msg.Y}
		return m, nil
	case tea.MouseActionMotion:
		if m.drag != nil && (msg.X != m.drag.startX || msg.Y != m.drag.startY) {
			if !m.drag.moved {
				m.status = "dragging"
			}
			m.drag.moved = true
		}
		return m, nil
	case tea.MouseActionRelease:
		drag := m.drag
		m.drag = nil
		if drag == nil {
			return m, nil
		}
		if !drag.moved && msg.X == drag.startX && msg.Y == drag.startY {
			drag.session.Cancel()
			return m, m.selectCmd(drag.session.Source(), drag.tab)
		}
		if r, ok := stripAt(regions, msg.Y); ok {
			return m, m.dropCmd(drag.session, r.window.ID, msg.X-stripOrigin)
		}
		return m, m.detachCmd(drag.session)
	}
	return m, nil
}

func (m *Model) cycleFocus(step int) {
	if len(m.windows) == 0 {
		return
	}
	current := -1
	for i, w := range m.windows {
		if w.ID == m.prefs.FocusedWindow() {
			current = i
		}
	}
	next := (current + step + len(m.windows)) % len(m.windows)
	m.prefs.SetFocusedWindow(m.windows[next].ID)
}

// refresh reloads the visible windows and keeps focus on an open window.
func (m *Model) refresh() {
	m.windows = m.host.Visible()
	focused := m.prefs.FocusedWindow()
	for _, w := range m.windows {
		if w.ID == focused {
			return
		}
	}
	if len(m.windows) == 0 {
		m.prefs.SetFocusedWindow("")
		return
	}
	m.prefs.SetFocusedWindow(m.windows[0].ID)
}

func (m *Model) openWindowCmd() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.session.OpenWindow(m.ctx, schema.OpenWindowRequest{})
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{status: "opened " + string(resp.Window.ID), focus: resp.Window.ID}
	}
}

func (m *Model) shortcutCmd(chord string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.session.HandleShortcut(m.ctx, schema.ShortcutRequest{Chord: chord})
		if err != nil {
			return resultMsg{err: err}
		}
		if !resp.Handled {
			return resultMsg{}
		}
		return resultMsg{status: string(resp.Action)}
	}
}

func (m *Model) selectCmd(window schema.WindowID, tab schema.TabID) tea.Cmd {
	return func() tea.Msg {
		_, err := m.session.SelectTab(m.ctx, schema.SelectTabRequest{WindowID: window, TabID: tab})
		return resultMsg{err: err, focus: window}
	}
}

func (m *Model) dropCmd(session *core.DragSession, target schema.WindowID, x int) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.session.Drop(m.ctx, session.Payload(), schema.DropRequest{WindowID: target, X: x})
		if err != nil {
			return resultMsg{err: err}
		}
		status := fmt.Sprintf("moved to %s at %d", target, resp.Index)
		if session.Source() == target {
			status = fmt.Sprintf("reordered to %d", resp.Index)
		}
		return resultMsg{status: status, focus: target}
	}
}

func (m *Model) detachCmd(session *core.DragSession) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.session.DropOutside(m.ctx, session.Payload())
		if err != nil {
			return resultMsg{err: err}
		}
		if !resp.Detached {
			return resultMsg{status: "only tab stays"}
		}
		return resultMsg{status: "detached to " + string(resp.Window.ID), focus: resp.Window.ID}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	regions := layout(m.windows, m.maxLabel)
	focused := m.prefs.FocusedWindow()
	var dragging schema.TabID
	if m.drag != nil {
		dragging = m.drag.tab
	}
	for _, r := range regions {
		b.WriteString(renderRegion(m.styles, r, m.maxLabel, m.width, r.window.ID == focused, dragging))
		b.WriteString("\n")
	}
	if len(regions) == 0 {
		b.WriteString("no windows\n")
	}
	if m.status != "" {
		b.WriteString(m.styles.status.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// NewProgram builds a program around a fresh model reading in and writing
// out. The caller must Close the model once the program returns.
func NewProgram(ctx context.Context, opts Options, in io.Reader, out io.Writer, programOpts ...tea.ProgramOption) (*tea.Program, *Model) {
	if opts.Renderer == nil && out != nil {
		opts.Renderer = lipgloss.NewRenderer(out)
	}
	m := New(ctx, opts)
	options := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen(), tea.WithMouseCellMotion()}
	if in != nil {
		options = append(options, tea.WithInput(in))
	}
	if out != nil {
		options = append(options, tea.WithOutput(out))
	}
	options = append(options, programOpts...)
	return tea.NewProgram(m, options...), m
}

// Run drives a model until the user quits or ctx ends.
func Run(ctx context.Context, opts Options, in io.Reader, out io.Writer, programOpts ...tea.ProgramOption) error {
	program, m := NewProgram(ctx, opts, in, out, programOpts...)
	defer m.Close()
	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
