package app

import (
	"errors"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/five82/marketdesk/internal/admin"
	"github.com/five82/marketdesk/internal/api"
	"github.com/five82/marketdesk/internal/config"
	"github.com/five82/marketdesk/internal/logtail"
	"github.com/five82/marketdesk/internal/mockapi"
	"github.com/five82/marketdesk/internal/prefs"
	"github.com/five82/marketdesk/internal/query"
	"github.com/five82/marketdesk/internal/state"
)

func newTestWorkspace(t *testing.T, prefsPath string) *Workspace {
	t.Helper()
	server := httptest.NewServer(mockapi.NewHandler(mockapi.DefaultDataset(), mockapi.Options{}))
	t.Cleanup(server.Close)

	client, err := api.NewClient(server.URL+"/api", api.Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return NewWorkspace(WorkspaceOptions{Backend: client, PrefsPath: prefsPath})
}

func waitSettled(t *testing.T, s *admin.Session) state.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := s.State()
		if snap.Phase == state.PhaseSettled && snap.FetchVersion == snap.Version {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("session did not settle: phase %v", snap.Phase)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWorkspace_SwitchRestoresLocationPerPage(t *testing.T) {
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	w := newTestWorkspace(t, prefsPath)

	buyers, err := w.Switch("buyers")
	if err != nil {
		t.Fatalf("Switch(buyers): %v", err)
	}
	waitSettled(t, buyers)
	buyers.Search("acme")
	// Search is debounced; wait for it to land.
	deadline := time.Now().Add(2 * time.Second)
	for w.URL() != "admin/buyers?q=acme" {
		if time.Now().After(deadline) {
			t.Fatalf("URL = %q, want search published", w.URL())
		}
		time.Sleep(5 * time.Millisecond)
	}

	sellers, err := w.Switch("admin/sellers")
	if err != nil {
		t.Fatalf("Switch(sellers): %v", err)
	}
	waitSettled(t, sellers)
	if w.Active() != sellers {
		t.Fatalf("Active is not the sellers session")
	}
	if got := w.URL(); got != "admin/sellers" {
		t.Fatalf("URL = %q, want sellers with an empty query", got)
	}

	buyers, err = w.Switch("Buyers")
	if err != nil {
		t.Fatalf("Switch(Buyers): %v", err)
	}
	snap := waitSettled(t, buyers)
	if len(snap.Items) != 1 || snap.Items[0].ID() != "b-1001" {
		t.Fatalf("restored buyers page shows %d items", len(snap.Items))
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	saved, _ := prefs.Load(prefsPath)
	if saved.Locations["Buyers"] != "q=acme" {
		t.Fatalf("saved Locations = %v", saved.Locations)
	}
}

func TestWorkspace_HiddenColumnsSaved(t *testing.T) {
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	w := newTestWorkspace(t, prefsPath)
	t.Cleanup(func() { _ = w.Close() })

	s, err := w.Switch("products")
	if err != nil {
		t.Fatalf("Switch: %v", err)
	}
	if !s.Table.ToggleColumn("stock") {
		t.Fatalf("ToggleColumn(stock) refused")
	}

	saved, _ := prefs.Load(prefsPath)
	want := []string{"stock", "seller_id", "created_at"}
	if got := saved.HiddenFor("Products"); !slices.Equal(got, want) {
		t.Fatalf("saved hidden = %v", got)
	}

	// A fresh workspace starts with the saved visibility.
	w2 := newTestWorkspace(t, prefsPath)
	t.Cleanup(func() { _ = w2.Close() })
	s2, err := w2.Switch("products")
	if err != nil {
		t.Fatalf("Switch: %v", err)
	}
	if got := s2.Table.Hidden(); !slices.Equal(got, want) {
		t.Fatalf("Hidden = %v, want %v", got, want)
	}
}

func TestWorkspace_ThemeSaved(t *testing.T) {
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	w := newTestWorkspace(t, prefsPath)
	w.SetTheme("Slate")
	if w.Theme() != "Slate" {
		t.Fatalf("Theme = %q", w.Theme())
	}
	saved, _ := prefs.Load(prefsPath)
	if saved.Theme != "Slate" {
		t.Fatalf("saved Theme = %q", saved.Theme)
	}
}

func TestWorkspace_UnknownPage(t *testing.T) {
	w := newTestWorkspace(t, filepath.Join(t.TempDir(), "prefs.toml"))
	if _, err := w.Switch("warehouses"); !errors.Is(err, ErrUnknownPage) {
		t.Fatalf("Switch(warehouses) err = %v, want ErrUnknownPage", err)
	}
	if w.Active() != nil {
		t.Fatalf("Active should stay nil")
	}
	if w.current() != nil {
		t.Fatalf("current should be a nil interface")
	}
}

func TestWorkspace_OpenWritesParamsBeforeMount(t *testing.T) {
	w := newTestWorkspace(t, filepath.Join(t.TempDir(), "prefs.toml"))
	t.Cleanup(func() { _ = w.Close() })

	s, err := w.Open("buyers", query.Patch{query.Set("f_user_status", "PENDING_APPROVAL")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	snap := waitSettled(t, s)
	if got := w.URL(); got != "admin/buyers?f_user_status=PENDING_APPROVAL" {
		t.Fatalf("URL = %q", got)
	}
	if got := s.Filters.Value("user_status"); got != "PENDING_APPROVAL" {
		t.Fatalf("status filter = %q, want PENDING_APPROVAL", got)
	}
	if len(snap.Items) != 2 {
		t.Fatalf("got %d items, want the 2 pending buyers", len(snap.Items))
	}
	for _, rec := range snap.Items {
		if rec.String("user_status") != "PENDING_APPROVAL" {
			t.Fatalf("item %s has status %q", rec.ID(), rec.String("user_status"))
		}
	}
}

func TestWorkspace_OpenMergesParamsIntoSavedLocation(t *testing.T) {
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	var p prefs.Prefs
	p.SetLocation("Buyers", "q=acme&sort=name%3Aasc")
	if err := prefs.Save(prefsPath, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	w := newTestWorkspace(t, prefsPath)
	t.Cleanup(func() { _ = w.Close() })

	s, err := w.Open("buyers", query.Patch{query.Set("q", ""), query.Set("f_user_status", "ACTIVE")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	snap := waitSettled(t, s)
	if got := w.URL(); got != "admin/buyers?sort=name%3Aasc&f_user_status=ACTIVE" {
		t.Fatalf("URL = %q", got)
	}
	if snap.Query.Has("q") {
		t.Fatalf("saved search survived an empty param: %v", snap.Query)
	}
	if len(snap.Items) == 0 {
		t.Fatalf("no active buyers listed")
	}
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"f_user_status=ACTIVE", " q = lamp ", "page="})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	want := query.Patch{
		query.Set("f_user_status", "ACTIVE"),
		query.Set("q", "lamp"),
		query.Set("page", ""),
	}
	if !slices.Equal(got, want) {
		t.Fatalf("parseParams = %v, want %v", got, want)
	}

	for _, bad := range []string{"q", "=lamp", " =x"} {
		if _, err := parseParams([]string{bad}); err == nil {
			t.Fatalf("parseParams(%q) accepted", bad)
		}
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	err := applyOverrides(&cfg, Options{
		APIURL:      " http://api.test/ ",
		APIToken:    "tok",
		LogLevel:    "debug",
		MetricsAddr: ":9464",
		PageSize:    50,
	})
	if err != nil {
		t.Fatalf("applyOverrides: %v", err)
	}
	if cfg.APIURL != "http://api.test/" || cfg.APIToken != "tok" || cfg.MetricsAddr != ":9464" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.PageSize != 50 || cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("PageSize/LogLevel = %d/%v", cfg.PageSize, cfg.LogLevel)
	}

	before := config.Default()
	if err := applyOverrides(&before, Options{}); err != nil {
		t.Fatalf("applyOverrides(empty): %v", err)
	}
	if before.APIURL != config.Default().APIURL {
		t.Fatalf("empty options changed APIURL to %q", before.APIURL)
	}

	if err := applyOverrides(&cfg, Options{LogLevel: "chatty"}); err == nil {
		t.Fatalf("applyOverrides accepted an invalid level")
	}
}

func TestOpenLogger_WritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "md.log")
	logger, closeLog, err := openLogger(path, slog.LevelInfo)
	if err != nil {
		t.Fatalf("openLogger: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("hello", "component", "test")
	closeLog()

	lines, err := logtail.Read(path, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %v", len(lines), lines)
	}
	if e := logtail.Parse(lines[0]); e.Message != "hello" || e.Component != "test" {
		t.Fatalf("entry = %+v", e)
	}
}
