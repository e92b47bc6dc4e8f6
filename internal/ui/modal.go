package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/marketdesk/internal/admin"
	"github.com/five82/marketdesk/internal/filter"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// renderModal centers content in a rounded box.
func renderModal(theme Theme, width, height, modalWidth int, content string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(modalWidth).
		Render(content)
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

func modalTitle(styles Styles, title string, rule int) string {
	return styles.Text.Bold(true).Render(title) + "\n" +
		styles.FaintText.Render(strings.Repeat("─", rule)) + "\n\n"
}

func fieldLabel(styles Styles, label string, focused bool, width int) string {
	label = fitCell(label+":", width)
	if focused {
		return styles.AccentText.Render(label)
	}
	return styles.MutedText.Render(label)
}

// nextOption cycles a select field through "" and its options.
func nextOption(f filter.Field, current string) string {
	if len(f.Options) == 0 {
		return ""
	}
	if current == "" {
		return f.Options[0].Value
	}
	for i, o := range f.Options {
		if o.Value == current {
			if i+1 < len(f.Options) {
				return f.Options[i+1].Value
			}
			return ""
		}
	}
	return ""
}

// --- Filter panel ---

type filterModal struct {
	session *admin.Session
	fields  []filter.Field
	inputs  []textinput.Model
	focus   int
	err     string
}

func newFilterModal(s *admin.Session) *filterModal {
	fields := s.Filters.Fields()
	m := &filterModal{session: s, fields: fields, inputs: make([]textinput.Model, len(fields))}
	for i, f := range fields {
		ti := textinput.New()
		ti.Placeholder = filterPlaceholder(f)
		ti.CharLimit = 64
		ti.Width = 30
		ti.SetValue(s.Filters.Value(f.Key))
		m.inputs[i] = ti
	}
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func filterPlaceholder(f filter.Field) string {
	switch {
	case f.Type == filter.Checkbox:
		return "space toggles"
	case f.Operator == filter.Range:
		return "2024-01-01..2024-03-31"
	case f.Operator == filter.In:
		vals := make([]string, len(f.Options))
		for i, o := range f.Options {
			vals[i] = o.Value
		}
		return strings.Join(vals, ",")
	case f.Type == filter.Select:
		return "space cycles options"
	default:
		return "contains..."
	}
}

// typed reports whether the field takes free text.
func typed(f filter.Field) bool {
	return f.Type != filter.Checkbox && !(f.Type == filter.Select && f.Operator != filter.In)
}

func (m *filterModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok || len(m.fields) == 0 {
		if ok && key.Matches(km, keys.Escape) {
			return m, nil, true
		}
		return m, nil, false
	}
	f := m.fields[m.focus]

	switch {
	case key.Matches(km, keys.Escape):
		return m, nil, true

	case key.Matches(km, keys.Confirm):
		if err := m.session.Filters.Apply(); err != nil {
			m.err = err.Error()
			return m, nil, false
		}
		return m, nil, true

	case key.Matches(km, keys.Clear):
		m.session.Filters.Clear()
		for i := range m.inputs {
			m.inputs[i].SetValue("")
		}
		m.err = ""
		return m, nil, false

	case key.Matches(km, keys.Tab):
		m.move(1)
		return m, nil, false

	case key.Matches(km, keys.ShiftTab):
		m.move(-1)
		return m, nil, false

	case !typed(f) && key.Matches(km, keys.Toggle):
		var err error
		if f.Type == filter.Checkbox {
			err = m.session.Filters.Toggle(f.Key)
		} else {
			err = m.session.Filters.OnInputChange(f.Key, nextOption(f, m.session.Filters.Value(f.Key)))
		}
		m.inputs[m.focus].SetValue(m.session.Filters.Value(f.Key))
		m.setErr(err)
		return m, nil, false
	}

	if !typed(f) {
		return m, nil, false
	}
	before := m.inputs[m.focus].Value()
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(km)
	if v := m.inputs[m.focus].Value(); v != before {
		m.setErr(m.session.Filters.OnInputChange(f.Key, v))
	}
	return m, cmd, false
}

func (m *filterModal) setErr(err error) {
	m.err = ""
	if err != nil {
		m.err = err.Error()
	}
}

func (m *filterModal) move(delta int) {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
}

func (m *filterModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(modalTitle(styles, "Filters · "+m.session.Page.Name, 46))

	for i, f := range m.fields {
		label := f.Label
		if f.LiveApply {
			label += " ⚡"
		}
		b.WriteString(fieldLabel(styles, label, i == m.focus, 16))
		if f.Type == filter.Checkbox {
			mark := "[ ]"
			if m.session.Filters.Value(f.Key) == "true" {
				mark = "[x]"
			}
			b.WriteString(styles.Text.Render(mark))
		} else {
			b.WriteString(m.inputs[i].View())
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.err != "" {
		b.WriteString(styles.DangerText.Render(truncate(m.err, 50)))
		b.WriteString("\n")
	}
	b.WriteString(styles.MutedText.Render("⚡ fields apply as you type."))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("Enter: Apply  •  Esc: Close  •  Ctrl+R: Clear"))
	return renderModal(theme, width, height, 56, b.String())
}

// --- Column picker ---

type columnsModal struct {
	session *admin.Session
	cursor  int
	err     string
}

func newColumnsModal(s *admin.Session) *columnsModal {
	return &columnsModal{session: s}
}

func (m *columnsModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil, false
	}
	cols := m.session.Table.Columns()
	switch {
	case key.Matches(km, keys.Escape), key.Matches(km, keys.Confirm):
		return m, nil, true
	case key.Matches(km, keys.Down), key.Matches(km, keys.Tab):
		if m.cursor < len(cols)-1 {
			m.cursor++
		}
	case key.Matches(km, keys.Up), key.Matches(km, keys.ShiftTab):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, keys.Toggle):
		m.err = ""
		if m.cursor < len(cols) && !m.session.Table.ToggleColumn(cols[m.cursor].ID) {
			m.err = "At least one column must stay visible"
		}
	}
	return m, nil, false
}

func (m *columnsModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(modalTitle(styles, "Columns · "+m.session.Page.Name, 30))
	for i, c := range m.session.Table.Columns() {
		mark := "[ ]"
		if c.Visible {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, c.Name)
		if i == m.cursor {
			b.WriteString(styles.Selected.Render(fitCell(line, 30)))
		} else {
			b.WriteString(styles.Text.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.err != "" {
		b.WriteString(styles.WarningText.Render(m.err))
		b.WriteString("\n")
	}
	b.WriteString(styles.FaintText.Render("Space: Toggle  •  Esc: Close"))
	return renderModal(theme, width, height, 36, b.String())
}

// --- Delete confirmation ---

type confirmModal struct {
	ctx     context.Context
	session *admin.Session
	id      string
	label   string
}

func (m *confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil, false
	}
	switch km.String() {
	case "y", "Y":
		return m, deleteCmd(m.ctx, m.session, m.id), true
	case "n", "N", "esc":
		return m, nil, true
	}
	return m, nil, false
}

func (m *confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(modalTitle(styles, "Delete record", 30))
	b.WriteString(styles.Text.Render(fmt.Sprintf("Delete %s %q?", m.id, truncate(m.label, 24))))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("y: Delete  •  n/Esc: Keep"))
	return renderModal(theme, width, height, 40, b.String())
}
