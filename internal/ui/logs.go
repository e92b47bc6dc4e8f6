package ui

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/marketdesk/internal/logtail"
)

// logState holds all log-related state.
type logState struct {
	entries     []logtail.Entry
	lines       []string // formatted entries passing the level filter
	levels      []slog.Level
	follow      bool
	minLevel    slog.Level
	lastRefresh time.Time
	loadErr     string

	// Search
	searchActive   bool
	searchQuery    string
	searchRegex    *regexp.Regexp
	searchInput    textinput.Model
	searchMatches  []int // Line indices that match
	searchMatchIdx int   // Current match index

	// Content caching - skip re-render when unchanged
	contentVersion uint64
	lastRendered   uint64
}

// logLinesMsg carries a fresh read of the log file.
type logLinesMsg struct {
	entries []logtail.Entry
	err     error
}

func (m *Model) initLogState() {
	ti := textinput.New()
	ti.Placeholder = "Search logs..."
	ti.CharLimit = 100

	m.logState = logState{
		follow:   true,
		minLevel: slog.LevelInfo,
	}
	m.logState.searchInput = ti
}

func (m *Model) initLogViewport() {
	m.logViewport = viewport.New(max(m.width-2, 1), max(m.height-5, 1))
	m.logViewport.Style = lipgloss.NewStyle()
}

// updateLogViewport updates the log viewport with current content.
func (m *Model) updateLogViewport() {
	if m.logViewport.Width == 0 {
		m.initLogViewport()
	}

	// header, command bar and status line plus the box borders
	m.logViewport.Width = max(m.width-2, 1)
	m.logViewport.Height = max(m.height-5, 1)
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	if m.logState.lastRendered == 0 || m.logState.contentVersion != m.logState.lastRendered {
		m.logViewport.SetContent(m.renderLogContent())
		m.logState.lastRendered = max(m.logState.contentVersion, 1)
	}

	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	bg := NewBgStyle(m.theme.Background)
	styles := m.theme.Styles().WithBackground(m.theme.Background)
	contentHeight := max(m.height-3, 3)

	title := "Console Log"
	if m.logState.minLevel != slog.LevelInfo {
		title = fmt.Sprintf("Console Log (%s+)", strings.ToLower(m.logState.minLevel.String()))
	}
	box := m.renderTitledBox(title, m.logViewport.View(), m.width, contentHeight, true)
	return box + "\n" + bg.FillLine(m.renderLogStatus(styles, bg), m.width)
}

// renderLogStatus renders the log status bar.
func (m Model) renderLogStatus(styles Styles, bg BgStyle) string {
	if m.logState.searchActive {
		return m.logState.searchInput.View()
	}

	if m.logState.searchRegex != nil && len(m.logState.searchMatches) > 0 {
		return bg.Render("/"+m.logState.searchQuery, styles.AccentText) +
			bg.Render(" - ", styles.FaintText) +
			bg.Render(fmt.Sprintf("%d/%d", m.logState.searchMatchIdx+1, len(m.logState.searchMatches)), styles.WarningText) +
			bg.Render(" - Press ", styles.FaintText) +
			bg.Render("n", styles.AccentText) +
			bg.Render(" for next, ", styles.FaintText) +
			bg.Render("N", styles.AccentText) +
			bg.Render(" for previous, ", styles.FaintText) +
			bg.Render("Esc", styles.AccentText) +
			bg.Render(" to clear", styles.FaintText)
	}
	if m.logState.searchRegex != nil {
		return bg.Render("Pattern not found: "+m.logState.searchQuery, styles.DangerText)
	}

	autoTail := "off"
	if m.logState.follow {
		autoTail = "on"
	}
	parts := []string{
		bg.Render(fmt.Sprintf("%d lines auto-tail %s", len(m.logState.lines), autoTail), styles.FaintText),
	}
	if m.logState.loadErr != "" {
		parts = append(parts, bg.Render(truncate(m.logState.loadErr, 60), styles.DangerText))
	}
	if m.logFile != "" {
		parts = append(parts, bg.Render(truncateMiddle(m.logFile, 50), styles.AccentText))
	}
	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return strings.Join(parts, sep)
}

// renderLogContent renders the colorized log lines.
func (m *Model) renderLogContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.logViewport.Width

	if m.logFile == "" {
		return bg.FillLine(bg.Render("No log file configured", styles.MutedText), width)
	}
	if len(m.logState.lines) == 0 {
		return bg.FillLine(bg.Render("No log entries", styles.MutedText), width)
	}

	matchSet := make(map[int]bool, len(m.logState.searchMatches))
	for _, idx := range m.logState.searchMatches {
		matchSet[idx] = true
	}
	activeMatchLine := -1
	if m.logState.searchMatchIdx < len(m.logState.searchMatches) {
		activeMatchLine = m.logState.searchMatches[m.logState.searchMatchIdx]
	}

	var b strings.Builder
	for i, line := range m.logState.lines {
		number := fmt.Sprintf("%4d │ ", i+1)
		var content string
		switch {
		case i == activeMatchLine:
			hl := NewBgStyle(m.theme.Warning)
			fg := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Background))
			content = hl.Render(number, fg) + hl.Render(line, fg)
		case matchSet[i]:
			content = bg.Render(number, styles.AccentText) + bg.Render(line, styles.AccentText)
		default:
			content = bg.Render(number, styles.FaintText) + bg.Render(line, m.levelStyle(m.logState.levels[i], styles))
		}
		b.WriteString(bg.FillLine(content, width))
		if i < len(m.logState.lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) levelStyle(level slog.Level, styles Styles) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return styles.DangerText
	case level >= slog.LevelWarn:
		return styles.WarningText
	case level < slog.LevelInfo:
		return styles.FaintText
	default:
		return styles.Text
	}
}

// nextLevel cycles the minimum level: debug, info, warn, error.
func nextLevel(l slog.Level) slog.Level {
	switch {
	case l < slog.LevelInfo:
		return slog.LevelInfo
	case l < slog.LevelWarn:
		return slog.LevelWarn
	case l < slog.LevelError:
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// handleLogsKey processes keyboard input for logs view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		m.updateLogViewport()
		if m.logState.follow {
			cmd := m.refreshLogs()
			return m, cmd
		}

	case key.Matches(msg, m.keys.CycleLevel):
		m.logState.minLevel = nextLevel(m.logState.minLevel)
		m.applyLogFilter()

	case key.Matches(msg, m.keys.Search):
		m.logState.searchActive = true
		m.logState.searchInput.SetValue("")
		cmd := m.logState.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.NextMatch):
		m.moveSearchMatch(1)

	case key.Matches(msg, m.keys.PrevMatch):
		m.moveSearchMatch(-1)

	case key.Matches(msg, m.keys.Escape):
		if m.logState.searchRegex != nil {
			m.clearLogSearch()
			m.updateLogViewport()
			return m, nil
		}
		m.currentView = ViewList

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true

	case key.Matches(msg, m.keys.Down):
		m.logViewport.LineDown(1)
		m.logState.follow = false

	case key.Matches(msg, m.keys.Up):
		m.logViewport.LineUp(1)
		m.logState.follow = false

	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.HalfViewDown()
		m.logState.follow = false

	case key.Matches(msg, m.keys.PageUp):
		m.logViewport.HalfViewUp()
		m.logState.follow = false
	}

	return m, nil
}

// handleLogSearchInput handles keyboard input during log search.
func (m Model) handleLogSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		pattern := m.logState.searchInput.Value()
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		if pattern == "" {
			return m, nil
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			m.logState.loadErr = "invalid pattern: " + err.Error()
			return m, nil
		}
		m.logState.searchRegex = re
		m.logState.searchQuery = pattern
		m.logState.searchMatchIdx = 0
		m.findSearchMatches()
		m.scrollToSearchMatch()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		m.logState.searchInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.logState.searchInput, cmd = m.logState.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) clearLogSearch() {
	m.logState.searchRegex = nil
	m.logState.searchQuery = ""
	m.logState.searchMatches = nil
	m.logState.searchMatchIdx = 0
	m.logState.contentVersion++
}

// findSearchMatches finds all lines matching the current search regex.
func (m *Model) findSearchMatches() {
	m.logState.searchMatches = nil
	if m.logState.searchRegex != nil {
		for i, line := range m.logState.lines {
			if m.logState.searchRegex.MatchString(line) {
				m.logState.searchMatches = append(m.logState.searchMatches, i)
			}
		}
	}
	if m.logState.searchMatchIdx >= len(m.logState.searchMatches) {
		m.logState.searchMatchIdx = 0
	}
	m.logState.contentVersion++
}

func (m *Model) moveSearchMatch(delta int) {
	n := len(m.logState.searchMatches)
	if n == 0 {
		return
	}
	m.logState.searchMatchIdx = (m.logState.searchMatchIdx + delta + n) % n
	m.logState.contentVersion++
	m.scrollToSearchMatch()
	m.updateLogViewport()
}

// scrollToSearchMatch centers the current match when possible.
func (m *Model) scrollToSearchMatch() {
	if m.logState.searchMatchIdx >= len(m.logState.searchMatches) {
		return
	}
	target := m.logState.searchMatches[m.logState.searchMatchIdx]
	m.logState.follow = false
	m.logViewport.SetYOffset(max(target-m.logViewport.Height/2, 0))
}

// refreshLogs reads the log file in the background.
func (m *Model) refreshLogs() tea.Cmd {
	if m.logFile == "" {
		return nil
	}
	if time.Since(m.logState.lastRefresh) < LogRefreshInterval && len(m.logState.entries) > 0 {
		return nil
	}
	m.logState.lastRefresh = time.Now()
	path := m.logFile
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogBufferLimit)
		if err != nil {
			return logLinesMsg{err: err}
		}
		return logLinesMsg{entries: logtail.ParseLines(lines)}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	if msg.err != nil {
		m.logState.loadErr = msg.err.Error()
		return
	}
	m.logState.loadErr = ""
	m.logState.entries = msg.entries
	m.applyLogFilter()
}

// applyLogFilter rebuilds the visible lines from the loaded entries.
func (m *Model) applyLogFilter() {
	kept := logtail.Filter{MinLevel: m.logState.minLevel}.Apply(m.logState.entries)
	m.logState.lines = make([]string, len(kept))
	m.logState.levels = make([]slog.Level, len(kept))
	for i, e := range kept {
		m.logState.lines[i] = logtail.Format(e)
		m.logState.levels[i] = e.Level
	}
	m.findSearchMatches()
	m.updateLogViewport()
}
