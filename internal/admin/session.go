package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/five82/marketdesk/internal/api"
	"github.com/five82/marketdesk/internal/collection"
	"github.com/five82/marketdesk/internal/filter"
	"github.com/five82/marketdesk/internal/form"
	"github.com/five82/marketdesk/internal/query"
	"github.com/five82/marketdesk/internal/state"
	"github.com/five82/marketdesk/internal/table"
	"github.com/five82/marketdesk/internal/urlstate"
)

// Backend is the REST surface a session needs.
type Backend interface {
	api.Lister
	api.Mutator
}

// Deps carries the shared infrastructure for mounting a page.
type Deps struct {
	Backend  Backend
	Bridge   *urlstate.Bridge
	Logger   *slog.Logger
	Metrics  *collection.Metrics
	Debounce time.Duration
	// Timer overrides the debounce scheduler, for tests.
	Timer collection.TimerFunc
	// PageSize is applied when neither the location nor the page default
	// sets page_size. Zero leaves it to the backend.
	PageSize int
	// Hidden seeds column visibility; OnHidden persists changes.
	Hidden   []string
	OnHidden func(page string, hidden []string)
}

// Session is a mounted page: one synchroniser plus the controllers that
// write to it.
type Session struct {
	Page    Page
	Sync    *collection.Synchronizer
	Filters *filter.Controller
	Table   *table.Engine
	Form    *form.Controller

	backend Backend
	logger  *slog.Logger

	mu        sync.Mutex
	editingID string
}

// Mount composes the controllers for p and issues the initial fetch. The
// address-bar query seeds the collection when present; otherwise the page
// default applies.
func Mount(p Page, deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var binding *urlstate.Binding
	initial := p.DefaultQuery
	if deps.Bridge != nil {
		binding = deps.Bridge.Bind("")
		if seed := binding.Seed(); seed.Len() > 0 {
			initial = seed
		}
	}
	if deps.PageSize > 0 && !initial.Has(query.KeyPageSize) {
		initial = initial.With(query.KeyPageSize, strconv.Itoa(deps.PageSize))
	}

	opts := []collection.Option{
		collection.WithLogger(logger),
		collection.WithMetrics(deps.Metrics),
	}
	if deps.Debounce > 0 {
		opts = append(opts, collection.WithDebounce(deps.Debounce))
	}
	if deps.Timer != nil {
		opts = append(opts, collection.WithTimer(deps.Timer))
	}
	if binding != nil {
		opts = append(opts, collection.WithPublisher(binding))
	}

	syncer := collection.New(deps.Backend, p.Resource, initial, opts...)
	s := &Session{
		Page:    p,
		Sync:    syncer,
		Filters: filter.New(p.Filters, syncer.Update),
		Table:   table.New(p.Columns, syncer.Update),
		Form:    form.New(p.FormTemplate),
		backend: deps.Backend,
		logger:  logger.With("component", "admin", "page", p.Name),
	}
	s.Filters.FromQuery(initial)
	if deps.Hidden != nil {
		s.Table.SetHidden(deps.Hidden)
	}
	if deps.OnHidden != nil {
		s.Table.OnVisibilityChange(func(hidden []string) { deps.OnHidden(p.Name, hidden) })
	}

	syncer.Update(collection.Reload())
	return s
}

// State returns the current collection snapshot.
func (s *Session) State() state.Snapshot {
	return s.Sync.State()
}

// Search sets the free-text term. Consecutive calls are debounced.
func (s *Session) Search(text string) {
	s.Sync.Update(collection.Patch(query.Set(query.KeySearch, text)))
}

// CurrentPage returns the 1-based page number of the current query.
func (s *Session) CurrentPage() int {
	return pageOf(s.Sync.Query())
}

// NextPage advances one page. It does nothing when the last page is known
// to be showing.
func (s *Session) NextPage() bool {
	snap := s.Sync.State()
	if snap.HasTotal && snap.Loaded {
		size := pageSizeOf(s.Sync.Query(), len(snap.Items))
		if size > 0 && pageOf(s.Sync.Query())*size >= snap.Total {
			return false
		}
	}
	s.Sync.Update(collection.Transform(func(q query.Query) query.Query {
		return q.With(query.KeyPage, strconv.Itoa(pageOf(q)+1))
	}))
	return true
}

// PrevPage goes back one page; page 1 drops the key.
func (s *Session) PrevPage() bool {
	if s.CurrentPage() <= 1 {
		return false
	}
	s.Sync.Update(collection.Transform(func(q query.Query) query.Query {
		prev := pageOf(q) - 1
		if prev <= 1 {
			return q.Without(query.KeyPage)
		}
		return q.With(query.KeyPage, strconv.Itoa(prev))
	}))
	return true
}

// SetPageSize changes the page size and returns to the first page.
func (s *Session) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	s.Sync.Update(collection.Patch(
		query.Set(query.KeyPageSize, strconv.Itoa(n)),
		query.Unset(query.KeyPage),
	))
}

// Sort advances the sort cycle on column id.
func (s *Session) Sort(id string) bool {
	return s.Table.HeaderClick(id, s.Sync.Query())
}

// Reload refetches the current query.
func (s *Session) Reload() {
	s.Sync.Update(collection.Reload())
}

// New starts a create form.
func (s *Session) New() {
	s.mu.Lock()
	s.editingID = ""
	s.mu.Unlock()
	s.Form.Reset()
	s.Table.CancelEdit()
}

// Edit loads rec into the form and marks row as the inline edit row.
func (s *Session) Edit(row int, rec api.Record) {
	d := s.Page.FormTemplate.Clone()
	for _, f := range s.Page.FormFields {
		if v, ok := rec[f.Name]; ok {
			d[f.Name] = v
		}
	}
	s.Form.Reset()
	s.Form.SetDraft(d)

	s.mu.Lock()
	s.editingID = rec.ID()
	s.mu.Unlock()
	s.Table.BeginEdit(row)
}

// EditingID returns the record being edited, or "" for a create form.
func (s *Session) EditingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingID
}

// Cancel abandons the form.
func (s *Session) Cancel() {
	s.New()
}

// Submit validates the draft and creates or updates the record. Inputs that
// failed to convert block the save like validation errors do, and keep their
// own message. On success the form resets and the list reloads with its
// current query.
func (s *Session) Submit(ctx context.Context) error {
	draft := s.Form.Draft()
	errs := s.Form.InputErrors()
	for field, msg := range Validate(s.Page, draft) {
		if _, ok := errs[field]; !ok {
			errs[field] = msg
		}
	}
	if len(errs) > 0 {
		s.Form.SetErrors(errs)
		s.Form.SetErrorMessage("Fix the highlighted fields")
		return ErrValidation
	}
	s.Form.SetErrors(nil)

	body := api.Record{}
	for _, f := range s.Page.FormFields {
		if v, ok := draft[f.Name]; ok {
			body[f.Name] = v
		}
	}

	id := s.EditingID()
	var err error
	if id == "" {
		_, err = s.backend.Create(ctx, s.Page.Resource, body)
	} else {
		_, err = s.backend.Update(ctx, s.Page.Resource, id, body)
	}
	if err != nil {
		s.Form.SetErrorMessage(errorText(err))
		s.logger.Warn("save failed", "id", id, "error", err)
		return fmt.Errorf("save %s: %w", s.Page.Resource, err)
	}

	s.logger.Info("record saved", "id", id, "created", id == "")
	s.New()
	s.Reload()
	return nil
}

// Delete removes a record and reloads the list.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.backend.Delete(ctx, s.Page.Resource, id); err != nil {
		s.logger.Warn("delete failed", "id", id, "error", err)
		return fmt.Errorf("delete %s/%s: %w", s.Page.Resource, id, err)
	}
	s.logger.Info("record deleted", "id", id)
	s.Reload()
	return nil
}

// Close stops the synchroniser.
func (s *Session) Close() {
	s.Sync.Close()
}

func errorText(err error) string {
	var se *api.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}

func pageOf(q query.Query) int {
	n, err := strconv.Atoi(q.Value(query.KeyPage))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func pageSizeOf(q query.Query, fallback int) int {
	n, err := strconv.Atoi(q.Value(query.KeyPageSize))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
