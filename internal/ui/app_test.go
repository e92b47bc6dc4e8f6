package ui

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/marketdesk/internal/admin"
	"github.com/five82/marketdesk/internal/api"
	"github.com/five82/marketdesk/internal/mockapi"
	"github.com/five82/marketdesk/internal/query"
	"github.com/five82/marketdesk/internal/state"
	"github.com/five82/marketdesk/internal/urlstate"
)

// testConsole mounts one page at a time over the mock API.
type testConsole struct {
	client *api.Client
	ds     *mockapi.Dataset
	loc    *urlstate.MemoryLocation
	bridge *urlstate.Bridge
	active *admin.Session
	theme  string
}

func newTestConsole(t *testing.T, page string) *testConsole {
	t.Helper()
	ds := mockapi.DefaultDataset()
	server := httptest.NewServer(mockapi.NewHandler(ds, mockapi.Options{}))
	t.Cleanup(server.Close)

	client, err := api.NewClient(server.URL+"/api", api.Options{})
	require.NoError(t, err)

	loc := urlstate.NewMemoryLocation("", "")
	c := &testConsole{
		client: client,
		ds:     ds,
		loc:    loc,
		bridge: urlstate.NewBridge(loc, nil),
		theme:  "Nightfox",
	}
	_, err = c.Switch(page)
	require.NoError(t, err)
	t.Cleanup(func() {
		if c.active != nil {
			c.active.Close()
		}
	})
	return c
}

func (c *testConsole) Pages() []admin.Page     { return admin.Pages() }
func (c *testConsole) Active() *admin.Session  { return c.active }
func (c *testConsole) URL() string             { return c.bridge.URL() }
func (c *testConsole) Theme() string           { return c.theme }
func (c *testConsole) SetTheme(name string)    { c.theme = name }

func (c *testConsole) Switch(name string) (*admin.Session, error) {
	p, ok := admin.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}
	if c.active != nil {
		c.active.Close()
	}
	c.loc.Navigate(p.Resource, "")
	c.active = admin.Mount(p, admin.Deps{
		Backend:  c.client,
		Bridge:   c.bridge,
		Debounce: time.Millisecond,
	})
	return c.active, nil
}

func settled(t *testing.T, s *admin.Session) state.Snapshot {
	t.Helper()
	var snap state.Snapshot
	require.Eventually(t, func() bool {
		snap = s.State()
		return snap.Phase == state.PhaseSettled && snap.FetchVersion == snap.Version
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m, _ = send(t, m, keyMsg(k))
	}
	return m
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = press(t, m, string(r))
	}
	return m
}

func newTestModel(t *testing.T, c *testConsole) Model {
	t.Helper()
	settled(t, c.active)
	m := New(Options{Console: c, Context: context.Background()})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 160, Height: 40})
	return m
}

func TestModel_RendersList(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	view := m.View()
	assert.Contains(t, view, "marketdesk")
	assert.Contains(t, view, "[Buyers]")
	assert.Contains(t, view, "admin/buyers")
	assert.Contains(t, view, "b-1012")
	assert.Contains(t, view, "Created ▼")
	assert.Contains(t, view, "rows 1-12 of 12")
}

func TestModel_SearchIsSentAsYouType(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	m = press(t, m, "/")
	require.True(t, m.searching)
	m = typeText(t, m, "acme")
	m = press(t, m, "enter")
	assert.False(t, m.searching)

	require.Eventually(t, func() bool {
		snap := c.active.State()
		return snap.Loaded && snap.Query.Value(query.KeySearch) == "acme" &&
			len(snap.Items) == 1 && snap.Items[0].ID() == "b-1001"
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Contains(c.URL(), "q=acme")
	}, 2*time.Second, 5*time.Millisecond)
}

func TestModel_SortByColumnNumber(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	press(t, m, "2")
	require.Eventually(t, func() bool {
		return c.active.State().Query.Value(query.KeySort) == "name:asc"
	}, 2*time.Second, 5*time.Millisecond)

	m = press(t, m, "1")
	assert.Equal(t, "ID is not sortable", m.flash)
}

func TestModel_QuickFilterCyclesStatus(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	m = press(t, m, "f")
	assert.Equal(t, "Status: ACTIVE", m.flash)
	assert.Equal(t, "ACTIVE", c.active.Filters.Value("user_status"))

	snap := settled(t, c.active)
	assert.Equal(t, "ACTIVE", snap.Query.Value("f_user_status"))
	assert.Equal(t, 8, snap.Total)

	m = press(t, m, "x")
	assert.Equal(t, "Verified only: on", m.flash)
	snap = settled(t, c.active)
	assert.Equal(t, "true", snap.Query.Value("f_verified"))
}

func TestModel_FilterPanelAppliesDraft(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	m = press(t, m, "F")
	fm, ok := m.modal.(*filterModal)
	require.True(t, ok)

	// Status, Verified, Country
	m = press(t, m, "tab", "tab")
	require.Equal(t, 2, fm.focus)
	m = typeText(t, m, "NO")
	assert.Equal(t, "", settled(t, c.active).Query.Value("f_country"), "country applies on enter")

	m = press(t, m, "enter")
	assert.Nil(t, m.modal)
	snap := settled(t, c.active)
	assert.Equal(t, "NO", snap.Query.Value("f_country"))
	assert.Equal(t, 4, snap.Total)

	m = press(t, m, "X")
	assert.Equal(t, "Filters cleared", m.flash)
	assert.False(t, settled(t, c.active).Query.Has("f_country"))
}

func TestModel_ColumnPickerHidesColumn(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	m = press(t, m, "c")
	_, ok := m.modal.(*columnsModal)
	require.True(t, ok)

	m = press(t, m, " ")
	assert.Equal(t, []string{"id"}, c.active.Table.Hidden())

	m = press(t, m, "esc")
	assert.Nil(t, m.modal)
	assert.Equal(t, "name", c.active.Table.VisibleColumns()[0].ID)
}

func TestModel_CreateRecord(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	m = press(t, m, "n")
	_, ok := m.modal.(*formModal)
	require.True(t, ok)

	m = typeText(t, m, "Nordlys")
	m = press(t, m, "tab")
	m = typeText(t, m, "hi@nordlys.test")

	m, cmd := send(t, m, keyMsg("enter"))
	require.NotNil(t, cmd)
	m, _ = send(t, m, cmd())

	assert.Nil(t, m.modal)
	assert.Equal(t, "Record created", m.flash)
	resp, found := c.ds.List("admin/buyers", query.MustParse("q=nordlys"))
	require.True(t, found)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "PENDING_APPROVAL", resp.Items[0].String("user_status"))
}

func TestModel_InvalidFormStaysOpen(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	m = press(t, m, "n")
	m, cmd := send(t, m, keyMsg("enter"))
	require.NotNil(t, cmd)
	m, _ = send(t, m, cmd())

	require.NotNil(t, m.modal)
	assert.Empty(t, m.flash)
	assert.Contains(t, c.active.Form.Errors(), "name")
	assert.Contains(t, m.View(), "Fix the highlighted fields")

	m = press(t, m, "esc")
	assert.Nil(t, m.modal)
	assert.Empty(t, c.active.Form.Errors())
}

func TestModel_EditCyclesChoice(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	// b-1012 is first under the default sort
	m = press(t, m, "e")
	require.Equal(t, "b-1012", c.active.EditingID())
	assert.Equal(t, 0, c.active.Table.EditIndex())

	m = press(t, m, "tab", "tab", " ")
	assert.Equal(t, "BLOCKED", c.active.Form.Draft()["user_status"])

	m, cmd := send(t, m, keyMsg("enter"))
	m, _ = send(t, m, cmd())
	assert.Equal(t, "Record saved", m.flash)
	rec, ok := c.ds.Get("admin/buyers", "b-1012")
	require.True(t, ok)
	assert.Equal(t, "BLOCKED", rec.String("user_status"))
}

func TestModel_DeleteNeedsConfirmation(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	m = press(t, m, "D")
	require.NotNil(t, m.modal)
	m = press(t, m, "n")
	assert.Nil(t, m.modal)
	_, ok := c.ds.Get("admin/buyers", "b-1012")
	assert.True(t, ok)

	m = press(t, m, "D")
	m, cmd := send(t, m, keyMsg("y"))
	require.NotNil(t, cmd)
	m, _ = send(t, m, cmd())
	assert.Equal(t, "Deleted b-1012", m.flash)
	_, ok = c.ds.Get("admin/buyers", "b-1012")
	assert.False(t, ok)
}

func TestModel_PagingKeys(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	m = press(t, m, "-")
	snap := settled(t, c.active)
	assert.Equal(t, "10", snap.Query.Value(query.KeyPageSize))

	m.refreshSnapshot()
	m = press(t, m, "]")
	snap = settled(t, c.active)
	assert.Equal(t, "2", snap.Query.Value(query.KeyPage))
	assert.Len(t, snap.Items, 2)

	m.refreshSnapshot()
	m = press(t, m, "]")
	assert.Equal(t, "Already on the last page", m.flash)

	m = press(t, m, "[")
	assert.False(t, settled(t, c.active).Query.Has(query.KeyPage))
}

func TestModel_TabSwitchesPage(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	m = press(t, m, "tab")
	assert.Equal(t, "Sellers", c.active.Page.Name)
	settled(t, c.active)
	m, _ = send(t, m, tickMsg(time.Now()))
	assert.Contains(t, m.View(), "s-2001")

	press(t, m, "shift+tab")
	assert.Equal(t, "Buyers", c.active.Page.Name)
}

func TestModel_CycleThemePersists(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	m = press(t, m, "T")
	assert.Equal(t, "Kanagawa", m.theme.Name)
	assert.Equal(t, "Kanagawa", c.theme)
}

func TestModel_HelpOverlay(t *testing.T) {
	c := newTestConsole(t, "buyers")
	m := newTestModel(t, c)

	m = press(t, m, "?")
	assert.Contains(t, m.View(), "Keyboard Shortcuts")
	m = press(t, m, "j")
	assert.False(t, m.showHelp)
}

func TestModel_LogsView(t *testing.T) {
	c := newTestConsole(t, "buyers")
	path := filepath.Join(t.TempDir(), "marketdesk.log")
	lines := []string{
		`{"time":"2025-01-02T10:00:00Z","level":"DEBUG","msg":"tick","component":"ui"}`,
		`{"time":"2025-01-02T10:00:01Z","level":"INFO","msg":"fetch settled","component":"collection","resource":"admin/buyers"}`,
		`{"time":"2025-01-02T10:00:02Z","level":"WARN","msg":"fetch failed","component":"collection","error":"timeout"}`,
		`{"time":"2025-01-02T10:00:03Z","level":"ERROR","msg":"save failed","component":"admin"}`,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	settled(t, c.active)
	m := New(Options{Console: c, LogFile: path})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 160, Height: 40})

	m, cmd := send(t, m, keyMsg("L"))
	require.Equal(t, ViewLogs, m.currentView)
	require.NotNil(t, cmd)
	m, _ = send(t, m, cmd())
	assert.Len(t, m.logState.lines, 3, "debug hidden by default")

	m = press(t, m, "v")
	assert.Len(t, m.logState.lines, 2)

	m = press(t, m, "/")
	m = typeText(t, m, "failed")
	m = press(t, m, "enter")
	assert.Equal(t, []int{0, 1}, m.logState.searchMatches)
	m = press(t, m, "n")
	assert.Equal(t, 1, m.logState.searchMatchIdx)
	assert.Contains(t, m.View(), "2/2")

	m = press(t, m, "esc")
	assert.Nil(t, m.logState.searchRegex)
	m = press(t, m, "esc")
	assert.Equal(t, ViewList, m.currentView)
}

func TestRun_RequiresConsole(t *testing.T) {
	assert.Error(t, Run(Options{}))
}
