package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/marketdesk/internal/api"
)

// renderHeader renders the logo, page tabs and connection status.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("marketdesk", styles.Logo)}
	parts = append(parts, m.renderTabs(styles, bg, compact))

	snap := m.snapshot
	switch {
	case snap.IsOffline():
		last := "never"
		if !snap.LastUpdated.IsZero() {
			last = snap.LastUpdated.Format("15:04:05")
		}
		parts = append(parts,
			bg.Render("API "+classifyConnectionError(snap.LastError), styles.DangerText.Bold(true)),
			bg.Render("Retrying...", styles.WarningText.Bold(true)),
			bg.Render("last attempt "+last, styles.MutedText),
		)
	case snap.LastError != nil:
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(snap.LastError.Error(), maxErr), styles.DangerText))
	case snap.Loaded:
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	default:
		parts = append(parts, bg.Render("Connecting...", styles.WarningText.Bold(true)))
	}

	if ts := m.formatTimestamp(); ts != "" && m.width >= LayoutTimestampWidth {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(bg.Join(parts, sep))
}

// renderTabs lists the entity pages with the active one highlighted.
func (m Model) renderTabs(styles Styles, bg BgStyle, compact bool) string {
	if m.console == nil {
		return ""
	}
	active := ""
	if s := m.session(); s != nil {
		active = s.Page.Name
	}
	var tabs []string
	for _, p := range m.console.Pages() {
		name := p.Name
		if compact {
			name = truncate(name, 4)
		}
		if p.Name == active {
			tabs = append(tabs, bg.Render("["+name+"]", styles.AccentText.Bold(true)))
		} else {
			tabs = append(tabs, bg.Render(name, styles.MutedText))
		}
	}
	return bg.Join(tabs, " ")
}

// formatTimestamp shows when the collection last settled, relative when recent.
func (m Model) formatTimestamp() string {
	t := m.snapshot.LastUpdated
	if t.IsZero() {
		return ""
	}
	ago := time.Since(t)
	switch {
	case ago < 5*time.Second:
		return "updated just now"
	case ago < time.Minute:
		return fmt.Sprintf("updated %ds ago", int(ago.Seconds()))
	default:
		return "updated " + t.Format("15:04:05")
	}
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	var se *api.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("HTTP %d", se.Code)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"/", "Search"},
			{"n/N", "Next/Prev"},
			{"v", "Level " + strings.ToLower(m.logState.minLevel.String())},
			{"L", "List"},
			{"?", "More"},
		}
	default:
		commands = []cmd{
			{"/", "Search"},
			{"1-9", "Sort"},
			{"[/]", "Page"},
			{"F", "Filters"},
			{"c", "Columns"},
			{"n", "New"},
			{"e", "Edit"},
			{"Tab", "Next page"},
			{"L", "Log"},
			{"?", "More"},
		}
		if m.width < LayoutCompactWidth {
			commands = commands[:len(commands)-3]
			commands = append(commands, cmd{"?", "More"})
		}
	}

	colon := bg.Render(":", styles.FaintText)
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	if m.currentView == ViewLogs && m.logState.searchQuery != "" {
		segments = append(segments, bg.Render("/"+truncate(m.logState.searchQuery, 18), styles.AccentText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Width(m.width).
		Render(bg.Join(segments, "  "))
}
