package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/marketdesk/internal/admin"
	"github.com/five82/marketdesk/internal/api"
	"github.com/five82/marketdesk/internal/filter"
	"github.com/five82/marketdesk/internal/query"
	"github.com/five82/marketdesk/internal/table"
)

const (
	defaultColumnWidth = 12
	defaultPageSize    = 20
	pageSizeStep       = 10
	maxPageSize        = 100
)

// handleListKey processes keyboard input for the list view.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session()
	if s == nil {
		return m, nil
	}
	items := m.snapshot.Items

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < len(items)-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = max(len(items)-1, 0)

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.searchInput.SetValue(m.snapshotSearch())
		m.searchInput.CursorEnd()
		cmd := m.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Sort):
		m.sortByIndex(msg.String())

	case key.Matches(msg, m.keys.ListNext):
		if !s.NextPage() {
			m.setFlash("Already on the last page", false)
		}
		m.selectedRow = 0
	case key.Matches(msg, m.keys.ListPrev):
		if !s.PrevPage() {
			m.setFlash("Already on the first page", false)
		}
		m.selectedRow = 0

	case key.Matches(msg, m.keys.Bigger):
		s.SetPageSize(min(m.pageSize()+pageSizeStep, maxPageSize))
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Smaller):
		s.SetPageSize(max(m.pageSize()-pageSizeStep, pageSizeStep))
		m.selectedRow = 0

	case key.Matches(msg, m.keys.Reload):
		s.Reload()

	case key.Matches(msg, m.keys.QuickFilter):
		m.cycleQuickFilter(s)
	case key.Matches(msg, m.keys.QuickToggle):
		m.toggleQuickFilter(s)
	case key.Matches(msg, m.keys.Filters):
		if len(s.Filters.Fields()) == 0 {
			m.setFlash("No filters on this page", false)
			break
		}
		m.modal = newFilterModal(s)
	case key.Matches(msg, m.keys.ClearFilters):
		s.Filters.Clear()
		m.setFlash("Filters cleared", false)

	case key.Matches(msg, m.keys.Columns):
		m.modal = newColumnsModal(s)

	case key.Matches(msg, m.keys.Create):
		s.New()
		m.modal = newFormModal(m.ctx, s)
	case key.Matches(msg, m.keys.Edit):
		if rec, ok := m.selectedRecord(); ok {
			s.Edit(m.selectedRow, rec)
			m.modal = newFormModal(m.ctx, s)
		}
	case key.Matches(msg, m.keys.Delete):
		if rec, ok := m.selectedRecord(); ok {
			m.modal = &confirmModal{ctx: m.ctx, session: s, id: rec.ID(), label: rec.String("name")}
		}

	case key.Matches(msg, m.keys.Escape):
		m.flash = ""
	}

	m.refreshSnapshot()
	return m, nil
}

// handleSearchInput forwards keystrokes to the search box; every change is
// sent to the collection and debounced there.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm), key.Matches(msg, m.keys.Escape):
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	}

	before := m.searchInput.Value()
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if v := m.searchInput.Value(); v != before {
		if s := m.session(); s != nil {
			s.Search(v)
			m.selectedRow = 0
		}
	}
	return m, cmd
}

func (m Model) selectedRecord() (api.Record, bool) {
	if m.selectedRow < 0 || m.selectedRow >= len(m.snapshot.Items) {
		return nil, false
	}
	return m.snapshot.Items[m.selectedRow], true
}

func (m Model) pageSize() int {
	if n, err := strconv.Atoi(m.snapshot.Query.Value(query.KeyPageSize)); err == nil && n > 0 {
		return n
	}
	if n := len(m.snapshot.Items); n > 0 {
		return n
	}
	return defaultPageSize
}

// sortByIndex sorts by the n-th visible column.
func (m *Model) sortByIndex(digit string) {
	s := m.session()
	n, err := strconv.Atoi(digit)
	if s == nil || err != nil {
		return
	}
	cols := s.Table.VisibleColumns()
	if n < 1 || n > len(cols) {
		return
	}
	if !s.Sort(cols[n-1].ID) {
		m.setFlash(cols[n-1].Name+" is not sortable", false)
	}
}

// cycleQuickFilter steps the first single-choice select filter through its
// options.
func (m *Model) cycleQuickFilter(s *admin.Session) {
	for _, f := range s.Filters.Fields() {
		if f.Type != filter.Select || f.Operator == filter.In {
			continue
		}
		next := nextOption(f, s.Filters.Value(f.Key))
		if err := s.Filters.OnInputChange(f.Key, next); err != nil {
			m.setFlash(err.Error(), true)
			return
		}
		if !f.LiveApply {
			if err := s.Filters.Apply(); err != nil {
				m.setFlash(err.Error(), true)
				return
			}
		}
		if next == "" {
			next = "any"
		}
		m.setFlash(f.Label+": "+next, false)
		m.selectedRow = 0
		return
	}
	m.setFlash("No quick filter on this page", false)
}

// toggleQuickFilter flips the first checkbox filter.
func (m *Model) toggleQuickFilter(s *admin.Session) {
	for _, f := range s.Filters.Fields() {
		if f.Type != filter.Checkbox {
			continue
		}
		if err := s.Filters.Toggle(f.Key); err != nil {
			m.setFlash(err.Error(), true)
			return
		}
		if !f.LiveApply {
			if err := s.Filters.Apply(); err != nil {
				m.setFlash(err.Error(), true)
				return
			}
		}
		state := "off"
		if s.Filters.Value(f.Key) == "true" {
			state = "on"
		}
		m.setFlash(f.Label+": "+state, false)
		m.selectedRow = 0
		return
	}
	m.setFlash("No checkbox filter on this page", false)
}

// renderList renders the address bar, the table box and the status line.
func (m Model) renderList() string {
	contentHeight := max(m.height-4, 3)
	s := m.session()
	title := "No page"
	if s != nil {
		title = s.Page.Name
		if n := len(s.Filters.Enabled()); n > 0 {
			title = fmt.Sprintf("%s (%d filters)", title, n)
		}
	}
	box := m.renderTitledBox(title, m.renderTable(s, m.width-2, contentHeight-2), m.width, contentHeight, true)
	return m.renderAddressBar() + "\n" + box + "\n" + m.renderListStatus()
}

// renderAddressBar shows the current location or the search box.
func (m Model) renderAddressBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Background)
	bg := NewBgStyle(m.theme.Background)
	if m.searching {
		return bg.FillLine(m.searchInput.View(), m.width)
	}
	url := ""
	if m.console != nil {
		url = m.console.URL()
	}
	line := bg.Render("⌂", styles.AccentText) + bg.Space() +
		bg.Render(truncateMiddle(url, m.width-4), styles.MutedText)
	return bg.FillLine(line, m.width)
}

// columnWidths distributes width over cols; the last column takes the rest.
func columnWidths(cols []table.Column, width int) []int {
	widths := make([]int, len(cols))
	used := 0
	for i, c := range cols {
		w := c.Width
		if w <= 0 {
			w = defaultColumnWidth
		}
		widths[i] = w
		used += w + 1
	}
	if len(widths) > 0 {
		widths[len(widths)-1] = max(widths[len(widths)-1]+width-used, 4)
	}
	return widths
}

// renderTable renders the header and the visible window of rows.
func (m Model) renderTable(s *admin.Session, width, height int) string {
	bgColor := m.theme.FocusBg
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()
	if s == nil {
		return bg.Render("No page mounted", styles.MutedText)
	}

	cols := s.Table.VisibleColumns()
	widths := columnWidths(cols, width)
	sortCol, sortDir := table.SortOf(m.snapshot.Query)

	var header []string
	for i, c := range cols {
		label := fmt.Sprintf("%d %s", i+1, c.Name)
		if c.ID == sortCol {
			switch sortDir {
			case table.Asc:
				label += " ▲"
			case table.Desc:
				label += " ▼"
			}
		}
		style := styles.MutedText.Bold(true)
		if c.Sortable == table.SortNone {
			style = styles.FaintText
		}
		header = append(header, bg.Render(fitCell(label, widths[i]), style))
	}

	lines := []string{strings.Join(header, bg.Space())}
	items := m.snapshot.Items
	rowsHeight := max(height-1, 1)

	switch {
	case len(items) == 0 && m.snapshot.LastError != nil:
		lines = append(lines, bg.Render(truncate(m.snapshot.LastError.Error(), width), styles.DangerText))
		return strings.Join(lines, "\n")
	case len(items) == 0 && !m.snapshot.Loaded:
		lines = append(lines, bg.Render("Loading...", styles.MutedText))
		return strings.Join(lines, "\n")
	case len(items) == 0:
		lines = append(lines, bg.Render("No records match", styles.MutedText))
		return strings.Join(lines, "\n")
	}

	offset := max(m.selectedRow-rowsHeight+1, 0)
	editRow := s.Table.EditIndex()
	for row := offset; row < len(items) && row < offset+rowsHeight; row++ {
		cells := s.Table.Cells(row, items[row])
		lines = append(lines, m.renderRow(cols, widths, cells, row == m.selectedRow, row == editRow))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(cols []table.Column, widths []int, cells []string, selected, editing bool) string {
	styles := m.theme.Styles()
	rowBg := m.theme.FocusBg
	switch {
	case selected:
		rowBg = m.theme.SelectionBg
	case editing:
		rowBg = m.theme.EditBg
	}
	bg := NewBgStyle(rowBg)

	parts := make([]string, len(cols))
	for i := range cols {
		value := ""
		if i < len(cells) {
			value = cells[i]
		}
		style := styles.Text
		switch {
		case selected:
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		case strings.HasSuffix(cols[i].ID, "status"):
			style = styles.StatusStyle(value)
		}
		parts[i] = bg.Render(fitCell(value, widths[i]), style)
	}
	return strings.Join(parts, bg.Space())
}

// renderListStatus renders the line under the table.
func (m Model) renderListStatus() string {
	styles := m.theme.Styles().WithBackground(m.theme.Background)
	bg := NewBgStyle(m.theme.Background)
	snap := m.snapshot

	page := 1
	if s := m.session(); s != nil {
		page = s.CurrentPage()
	}
	parts := []string{bg.Render(fmt.Sprintf("Page %d", page), styles.Text)}

	if n := len(snap.Items); n > 0 {
		first := (page-1)*m.pageSize() + 1
		rows := fmt.Sprintf("rows %d-%d", first, first+n-1)
		if snap.HasTotal {
			rows += fmt.Sprintf(" of %d", snap.Total)
		}
		parts = append(parts, bg.Render(rows, styles.MutedText))
	} else if snap.HasTotal {
		parts = append(parts, bg.Render(fmt.Sprintf("%d total", snap.Total), styles.MutedText))
	}

	if snap.Busy() {
		parts = append(parts, bg.Render(snap.Phase.String()+"...", styles.InfoText))
	}
	if snap.LastError != nil && len(snap.Items) > 0 {
		parts = append(parts, bg.Render("stale: "+truncate(snap.LastError.Error(), 40), styles.WarningText))
	}
	if m.flash != "" {
		style := styles.SuccessText
		if m.flashErr {
			style = styles.DangerText
		}
		parts = append(parts, bg.Render(truncate(m.flash, 60), style))
	}

	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return bg.FillLine(strings.Join(parts, sep), m.width)
}

// renderTitledBox renders content in a box with the title embedded in the top border.
// When focused is true, uses BorderFocus color and FocusBg background.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	var borderColorStr, bgColorStr string
	if focused {
		borderColorStr = m.theme.BorderFocus
		bgColorStr = m.theme.FocusBg
	} else {
		borderColorStr = m.theme.Border
		bgColorStr = m.theme.SurfaceAlt
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 0)
	title = truncate(title, max(innerWidth-4, 1))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColorStr))
	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)

	lines := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lines = append(lines,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(lines, "\n") + "\n" + bottomBorder
}
