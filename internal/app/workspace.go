package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/five82/marketdesk/internal/admin"
	"github.com/five82/marketdesk/internal/collection"
	"github.com/five82/marketdesk/internal/prefs"
	"github.com/five82/marketdesk/internal/query"
	"github.com/five82/marketdesk/internal/urlstate"
)

// ErrUnknownPage is returned by Switch for a name no page answers to.
var ErrUnknownPage = errors.New("unknown page")

// WorkspaceOptions configure a Workspace.
type WorkspaceOptions struct {
	Backend   admin.Backend
	Logger    *slog.Logger
	Metrics   *collection.Metrics
	Debounce  time.Duration
	PageSize  int
	PrefsPath string
	// Pages defaults to admin.Pages().
	Pages []admin.Page
}

// Workspace owns the address bar and the mounted page. Only one page is
// mounted at a time; switching pages saves the outgoing page's query and
// restores the incoming one's.
type Workspace struct {
	opts   WorkspaceOptions
	logger *slog.Logger
	loc    *urlstate.MemoryLocation
	bridge *urlstate.Bridge

	mu     sync.Mutex
	prefs  prefs.Prefs
	active *admin.Session
}

// NewWorkspace loads preferences and prepares an empty address bar.
func NewWorkspace(opts WorkspaceOptions) *Workspace {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(opts.Pages) == 0 {
		opts.Pages = admin.Pages()
	}
	p, _ := prefs.Load(opts.PrefsPath)

	loc := urlstate.NewMemoryLocation("", "")
	return &Workspace{
		opts:   opts,
		logger: logger.With("component", "workspace"),
		loc:    loc,
		bridge: urlstate.NewBridge(loc, logger),
		prefs:  p,
	}
}

// Pages lists the pages in display order.
func (w *Workspace) Pages() []admin.Page {
	return w.opts.Pages
}

// Active returns the mounted session, or nil before the first Switch.
func (w *Workspace) Active() *admin.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Switch unmounts the current page and mounts the one named name (page
// name or resource path, case-insensitive).
func (w *Workspace) Switch(name string) (*admin.Session, error) {
	return w.Open(name, nil)
}

// Open is Switch with params written into the page's address bar before it
// mounts, so they seed the page's query. An empty value removes the key.
func (w *Workspace) Open(name string, params query.Patch) (*admin.Session, error) {
	page, ok := w.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPage, name)
	}

	w.mu.Lock()
	prev := w.active
	w.active = nil
	if prev != nil {
		w.prefs.SetLocation(prev.Page.Name, w.loc.RawQuery())
	}
	raw := w.prefs.Locations[page.Name]
	hidden := w.prefs.HiddenFor(page.Name)
	w.mu.Unlock()

	if prev != nil {
		prev.Close()
		_ = w.save()
	}

	w.loc.Navigate(page.Resource, raw)
	for _, t := range params {
		w.bridge.SetParam(t.Key, t.Value)
	}
	s := admin.Mount(page, admin.Deps{
		Backend:  w.opts.Backend,
		Bridge:   w.bridge,
		Logger:   w.opts.Logger,
		Metrics:  w.opts.Metrics,
		Debounce: w.opts.Debounce,
		PageSize: w.opts.PageSize,
		Hidden:   hidden,
		OnHidden: w.rememberHidden,
	})

	w.mu.Lock()
	w.active = s
	w.mu.Unlock()
	w.logger.Info("page mounted", "page", page.Name, "query", w.loc.RawQuery())
	return s, nil
}

// URL renders the address bar.
func (w *Workspace) URL() string {
	return w.bridge.URL()
}

// Theme returns the saved theme name.
func (w *Workspace) Theme() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.prefs.Theme
}

// SetTheme records and saves the theme.
func (w *Workspace) SetTheme(name string) {
	w.mu.Lock()
	w.prefs.Theme = name
	w.mu.Unlock()
	_ = w.save()
}

// Close unmounts the active page and saves preferences.
func (w *Workspace) Close() error {
	w.mu.Lock()
	s := w.active
	w.active = nil
	if s != nil {
		w.prefs.SetLocation(s.Page.Name, w.loc.RawQuery())
	}
	w.mu.Unlock()
	if s != nil {
		s.Close()
	}
	return w.save()
}

// current adapts Active for the poller without leaking a typed nil.
func (w *Workspace) current() refresher {
	if s := w.Active(); s != nil {
		return s
	}
	return nil
}

func (w *Workspace) rememberHidden(page string, hidden []string) {
	w.mu.Lock()
	w.prefs.SetHidden(page, hidden)
	w.mu.Unlock()
	_ = w.save()
}

func (w *Workspace) save() error {
	w.mu.Lock()
	p := w.prefs
	p.Hidden = maps.Clone(p.Hidden)
	p.Locations = maps.Clone(p.Locations)
	w.mu.Unlock()
	if err := prefs.Save(w.opts.PrefsPath, p); err != nil {
		w.logger.Warn("save prefs failed", "error", err)
		return err
	}
	return nil
}

func (w *Workspace) lookup(name string) (admin.Page, bool) {
	name = strings.TrimSpace(name)
	for _, p := range w.opts.Pages {
		if strings.EqualFold(p.Name, name) || strings.EqualFold(p.Resource, name) {
			return p, true
		}
	}
	return admin.Page{}, false
}
