package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/marketdesk/internal/admin"
	"github.com/five82/marketdesk/internal/form"
)

// submitResultMsg reports the outcome of a create or update.
type submitResultMsg struct {
	created bool
	err     error
}

// deleteResultMsg reports the outcome of a delete.
type deleteResultMsg struct {
	id  string
	err error
}

func submitCmd(ctx context.Context, s *admin.Session) tea.Cmd {
	created := s.EditingID() == ""
	return func() tea.Msg {
		return submitResultMsg{created: created, err: s.Submit(ctx)}
	}
}

func deleteCmd(ctx context.Context, s *admin.Session, id string) tea.Cmd {
	return func() tea.Msg {
		return deleteResultMsg{id: id, err: s.Delete(ctx, id)}
	}
}

// formatValue renders a draft value for a text input.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = formatValue(p)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// cycled reports whether space steps through fixed choices instead of typing.
func cycled(f admin.FormField) bool {
	return f.Type == form.Bool || len(f.Options) > 0
}

func nextChoice(f admin.FormField, current string) string {
	if f.Type == form.Bool {
		return strconv.FormatBool(current != "true")
	}
	for i, o := range f.Options {
		if o == current {
			return f.Options[(i+1)%len(f.Options)]
		}
	}
	return f.Options[0]
}

// formModal edits the session's form draft.
type formModal struct {
	ctx     context.Context
	session *admin.Session
	fields  []admin.FormField
	inputs  []textinput.Model
	focus   int
	saving  bool
}

func newFormModal(ctx context.Context, s *admin.Session) *formModal {
	fields := s.Page.FormFields
	draft := s.Form.Draft()
	m := &formModal{ctx: ctx, session: s, fields: fields, inputs: make([]textinput.Model, len(fields))}
	for i, f := range fields {
		ti := textinput.New()
		ti.CharLimit = 120
		ti.Width = 32
		switch {
		case f.Type == form.Bool:
			ti.Placeholder = "true/false"
		case len(f.Options) > 0:
			ti.Placeholder = strings.Join(f.Options, "/")
		case f.Type == form.StringList:
			ti.Placeholder = "comma separated"
		}
		ti.SetValue(formatValue(draft[f.Name]))
		m.inputs[i] = ti
	}
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m *formModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case submitResultMsg:
		m.saving = false
		return m, nil, msg.err == nil
	case tea.KeyMsg:
		return m.handleKey(msg, keys)
	}
	return m, nil, false
}

func (m *formModal) handleKey(km tea.KeyMsg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch {
	case key.Matches(km, keys.Escape):
		m.session.Cancel()
		return m, nil, true
	case m.saving:
		return m, nil, false
	case key.Matches(km, keys.Confirm):
		m.saving = true
		return m, submitCmd(m.ctx, m.session), false
	case len(m.inputs) == 0:
		return m, nil, false
	case key.Matches(km, keys.Tab):
		m.move(1)
		return m, nil, false
	case key.Matches(km, keys.ShiftTab):
		m.move(-1)
		return m, nil, false
	}

	f := m.fields[m.focus]
	if cycled(f) {
		if key.Matches(km, keys.Toggle) {
			m.inputs[m.focus].SetValue(nextChoice(f, m.inputs[m.focus].Value()))
			m.change(f)
		}
		return m, nil, false
	}

	before := m.inputs[m.focus].Value()
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(km)
	if m.inputs[m.focus].Value() != before {
		m.change(f)
	}
	return m, cmd, false
}

// change pushes the focused input into the draft. Coercion failures are
// recorded as field errors by the form controller.
func (m *formModal) change(f admin.FormField) {
	_ = m.session.Form.OnChange(form.Event{Name: f.Name, Value: m.inputs[m.focus].Value(), Type: f.Type})
}

func (m *formModal) move(delta int) {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
}

func (m *formModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	title := "New " + strings.TrimSuffix(m.session.Page.Name, "s")
	if id := m.session.EditingID(); id != "" {
		title = "Edit " + id
	}

	var b strings.Builder
	b.WriteString(modalTitle(styles, title, 50))
	errs := m.session.Form.Errors()
	for i, f := range m.fields {
		b.WriteString(fieldLabel(styles, f.Label, i == m.focus, 12))
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
		if e := errs[f.Name]; e != "" {
			b.WriteString(strings.Repeat(" ", 12))
			b.WriteString(styles.DangerText.Render(truncate(e, 44)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.saving:
		b.WriteString(styles.InfoText.Render("Saving..."))
		b.WriteString("\n")
	case m.session.Form.ErrorMessage() != "":
		b.WriteString(styles.DangerText.Render(truncate(m.session.Form.ErrorMessage(), 54)))
		b.WriteString("\n")
	}
	b.WriteString(styles.FaintText.Render("Enter: Save  •  Esc: Cancel  •  Space: Cycle choices"))
	return renderModal(theme, width, height, 60, b.String())
}
