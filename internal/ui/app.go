package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/marketdesk/internal/admin"
	"github.com/five82/marketdesk/internal/query"
	"github.com/five82/marketdesk/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewList View = iota
	ViewLogs
)

// Console is the page navigation surface the UI drives.
type Console interface {
	Pages() []admin.Page
	Active() *admin.Session
	Switch(name string) (*admin.Session, error)
	URL() string
	Theme() string
	SetTheme(name string)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Console   Console
	Logger    *slog.Logger
	LogFile   string
	PollTick  time.Duration
	ThemeName string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx      context.Context
	console  Console
	logger   *slog.Logger
	logFile  string
	pollTick time.Duration
	keys     keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool

	// Data state
	snapshot state.Snapshot

	// List state
	selectedRow int
	searching   bool
	searchInput textinput.Model
	modal       Modal
	flash       string
	flashErr    bool

	// Log state
	logViewport viewport.Model
	logState    logState

	// Help overlay
	showHelp bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" && opts.Console != nil {
		themeName = opts.Console.Theme()
	}

	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.Prompt = "/ "
	ti.CharLimit = 100

	m := Model{
		ctx:         ctx,
		console:     opts.Console,
		logger:      logger.With("component", "ui"),
		logFile:     opts.LogFile,
		pollTick:    pollTick,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewList,
		searchInput: ti,
	}
	m.initLogState()
	m.refreshSnapshot()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.pollTick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.initLogViewport()
		}
		m.ready = true
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case submitResultMsg:
		if msg.err == nil {
			if msg.created {
				m.setFlash("Record created", false)
			} else {
				m.setFlash("Record saved", false)
			}
		} else if !errors.Is(msg.err, admin.ErrValidation) {
			m.setFlash(msg.err.Error(), true)
		}
		return m.forwardToModal(msg)

	case deleteResultMsg:
		if msg.err != nil {
			m.setFlash(msg.err.Error(), true)
		} else {
			m.setFlash("Deleted "+msg.id, false)
		}
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

func (m Model) session() *admin.Session {
	if m.console == nil {
		return nil
	}
	return m.console.Active()
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

func (m Model) forwardToModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.modal == nil {
		return m, nil
	}
	next, cmd, closed := m.modal.Update(msg, m.keys)
	if closed {
		m.modal = nil
		m.refreshSnapshot()
	} else {
		m.modal = next
	}
	return m, cmd
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.modal != nil {
		return m.forwardToModal(msg)
	}
	if m.searching {
		return m.handleSearchInput(msg)
	}
	if m.currentView == ViewLogs && m.logState.searchActive {
		return m.handleLogSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.console != nil {
			m.console.SetTheme(m.theme.Name)
		}
		m.logState.contentVersion++
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		m.cyclePage(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		m.cyclePage(-1)
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		if m.currentView == ViewLogs {
			m.currentView = ViewList
			return m, nil
		}
		m.currentView = ViewLogs
		cmd := m.refreshLogs()
		return m, cmd
	}

	switch m.currentView {
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleListKey(msg)
	}
}

// cyclePage switches to the next or previous entity page.
func (m *Model) cyclePage(delta int) {
	if m.console == nil {
		return
	}
	pages := m.console.Pages()
	if len(pages) == 0 {
		return
	}
	current := 0
	if s := m.session(); s != nil {
		for i, p := range pages {
			if p.Name == s.Page.Name {
				current = i
				break
			}
		}
	}
	next := pages[(current+delta+len(pages))%len(pages)]
	if _, err := m.console.Switch(next.Name); err != nil {
		m.setFlash(err.Error(), true)
		return
	}
	m.selectedRow = 0
	m.flash = ""
	m.searchInput.SetValue(m.snapshotSearch())
	m.refreshSnapshot()
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	m.refreshSnapshot()

	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.currentView == ViewLogs && m.logState.follow {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// refreshSnapshot re-reads the active collection and keeps the selection
// in range.
func (m *Model) refreshSnapshot() {
	s := m.session()
	if s == nil {
		m.snapshot = state.Snapshot{}
		m.selectedRow = 0
		return
	}
	m.snapshot = s.State()
	if n := len(m.snapshot.Items); m.selectedRow >= n {
		m.selectedRow = max(n-1, 0)
	}
}

func (m Model) snapshotSearch() string {
	s := m.session()
	if s == nil {
		return ""
	}
	return s.State().Query.Value(query.KeySearch)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	switch m.currentView {
	case ViewLogs:
		b.WriteString(m.renderLogs())
	default:
		b.WriteString(m.renderList())
	}
	return b.String()
}

// Messages

type tickMsg time.Time

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the Bubble Tea program and blocks until it exits or ctx is
// cancelled.
func Run(opts Options) error {
	if opts.Console == nil {
		return fmt.Errorf("ui: console is required")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
