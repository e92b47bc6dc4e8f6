// Package table derives header sort state, inline-edit rows and column
// visibility for a list page.
package table

import (
	"slices"
	"strings"
	"sync"

	"github.com/five82/marketdesk/internal/api"
	"github.com/five82/marketdesk/internal/collection"
	"github.com/five82/marketdesk/internal/query"
)

// Sortable declares whether the backend can order by a column.
type Sortable int

const (
	SortNone Sortable = iota
	SortBackend
)

// Direction is a column's sort direction.
type Direction int

const (
	Unsorted Direction = iota
	Asc
	Desc
)

func (d Direction) String() string {
	switch d {
	case Asc:
		return "asc"
	case Desc:
		return "desc"
	default:
		return ""
	}
}

// next cycles unsorted -> asc -> desc -> unsorted.
func (d Direction) next() Direction {
	switch d {
	case Unsorted:
		return Asc
	case Asc:
		return Desc
	default:
		return Unsorted
	}
}

// Column describes one table column.
type Column struct {
	ID       string
	Name     string
	Visible  bool
	Sortable Sortable
	Width    int
	// Render formats the cell; nil uses Record.String(ID).
	Render func(api.Record) string
	// EditRender formats the cell of the row being edited; nil falls back to
	// Render.
	EditRender func(api.Record) string
}

func (c Column) cell(rec api.Record, editing bool) string {
	if editing && c.EditRender != nil {
		return c.EditRender(rec)
	}
	if c.Render != nil {
		return c.Render(rec)
	}
	return rec.String(c.ID)
}

// SortOf parses the sort key of q into a column and direction.
func SortOf(q query.Query) (string, Direction) {
	raw := q.Value(query.KeySort)
	if raw == "" {
		return "", Unsorted
	}
	col, dir, _ := strings.Cut(raw, ":")
	switch strings.ToLower(dir) {
	case "desc":
		return col, Desc
	default:
		return col, Asc
	}
}

// SortValue formats a sort key value; Unsorted yields "".
func SortValue(column string, dir Direction) string {
	if column == "" || dir == Unsorted {
		return ""
	}
	return column + ":" + dir.String()
}

// Engine holds column definitions and per-table UI state.
type Engine struct {
	update collection.UpdateFunc

	mu                 sync.Mutex
	columns            []Column
	editRow            int
	onVisibilityChange func(hidden []string)
}

// New returns an engine over columns writing sort changes through update.
func New(columns []Column, update collection.UpdateFunc) *Engine {
	return &Engine{
		columns: slices.Clone(columns),
		update:  update,
		editRow: -1,
	}
}

// OnVisibilityChange registers fn to receive the hidden column IDs after
// every ToggleColumn.
func (e *Engine) OnVisibilityChange(fn func(hidden []string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onVisibilityChange = fn
}

// Columns returns every column, visible or not.
func (e *Engine) Columns() []Column {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.columns)
}

// HeaderClick advances the sort cycle for column id based on current and
// sends the resulting patch. It reports whether anything was sent.
func (e *Engine) HeaderClick(id string, current query.Query) bool {
	col, ok := e.column(id)
	if !ok || col.Sortable != SortBackend {
		return false
	}

	sorted, dir := SortOf(current)
	if sorted != id {
		dir = Unsorted
	}
	next := SortValue(id, dir.next())

	if e.update != nil {
		e.update(collection.Patch(query.Set(query.KeySort, next)))
	}
	return true
}

// BeginEdit marks row as the single row in edit mode.
func (e *Engine) BeginEdit(row int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if row < 0 {
		row = -1
	}
	e.editRow = row
}

// CancelEdit leaves edit mode.
func (e *Engine) CancelEdit() {
	e.BeginEdit(-1)
}

// EditIndex returns the row in edit mode, or -1.
func (e *Engine) EditIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editRow
}

// Cells renders the visible cells for row.
func (e *Engine) Cells(row int, rec api.Record) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	editing := row == e.editRow
	var cells []string
	for _, c := range e.columns {
		if c.Visible {
			cells = append(cells, c.cell(rec, editing))
		}
	}
	return cells
}

// VisibleColumns returns the visible columns in order.
func (e *Engine) VisibleColumns() []Column {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Column
	for _, c := range e.columns {
		if c.Visible {
			out = append(out, c)
		}
	}
	return out
}

// Hidden returns the IDs of hidden columns.
func (e *Engine) Hidden() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hiddenLocked()
}

// SetHidden hides exactly the given columns. Unknown IDs are ignored.
func (e *Engine) SetHidden(ids []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.columns {
		e.columns[i].Visible = !slices.Contains(ids, e.columns[i].ID)
	}
}

// ToggleColumn flips a column's visibility. The last visible column cannot
// be hidden.
func (e *Engine) ToggleColumn(id string) bool {
	e.mu.Lock()
	idx := slices.IndexFunc(e.columns, func(c Column) bool { return c.ID == id })
	if idx < 0 {
		e.mu.Unlock()
		return false
	}
	if e.columns[idx].Visible && e.visibleCountLocked() == 1 {
		e.mu.Unlock()
		return false
	}
	e.columns[idx].Visible = !e.columns[idx].Visible
	hidden := e.hiddenLocked()
	fn := e.onVisibilityChange
	e.mu.Unlock()

	if fn != nil {
		fn(hidden)
	}
	return true
}

func (e *Engine) column(id string) (Column, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

func (e *Engine) hiddenLocked() []string {
	hidden := []string{}
	for _, c := range e.columns {
		if !c.Visible {
			hidden = append(hidden, c.ID)
		}
	}
	return hidden
}

func (e *Engine) visibleCountLocked() int {
	n := 0
	for _, c := range e.columns {
		if c.Visible {
			n++
		}
	}
	return n
}
