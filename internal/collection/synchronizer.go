package collection

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/marketdesk/internal/api"
	"github.com/five82/marketdesk/internal/query"
	"github.com/five82/marketdesk/internal/state"
)

const defaultDebounce = 300 * time.Millisecond

// TimerFunc schedules f after d and returns a function that cancels it.
// time.AfterFunc satisfies it through the default adapter.
type TimerFunc func(d time.Duration, f func()) (stop func() bool)

// Publisher mirrors an authoritative query somewhere outside the
// synchroniser, typically the address bar. It is called with the
// synchroniser's lock held and must not call back into it.
type Publisher interface {
	Publish(q query.Query)
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithDebounce sets the quiet period applied to search-text updates. Zero
// disables debouncing.
func WithDebounce(d time.Duration) Option {
	return func(s *Synchronizer) { s.debounce = d }
}

// WithSearchKey overrides the query key treated as free-text search.
func WithSearchKey(key string) Option {
	return func(s *Synchronizer) { s.searchKey = key }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records fetch outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Synchronizer) { s.metrics = m }
}

// WithPublisher sets the single writer to the address bar.
func WithPublisher(p Publisher) Option {
	return func(s *Synchronizer) { s.publisher = p }
}

// WithTimer replaces the debounce scheduler.
func WithTimer(tf TimerFunc) Option {
	return func(s *Synchronizer) {
		if tf != nil {
			s.afterFunc = tf
		}
	}
}

// WithFetchTimeout bounds each list request.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Synchronizer) { s.fetchTimeout = d }
}

// Synchronizer owns one collection: its query, its fetch lifecycle and the
// rule that only the response for the current request version is applied.
type Synchronizer struct {
	fetcher      api.Lister
	resource     string
	store        *state.Store
	logger       *slog.Logger
	metrics      *Metrics
	publisher    Publisher
	debounce     time.Duration
	searchKey    string
	afterFunc    TimerFunc
	fetchTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	query     query.Query
	version   uint64
	stopTimer func() bool
	closed    bool

	subMu   sync.Mutex
	subs    map[int]func(state.Snapshot)
	nextSub int

	// notifyMu serialises subscriber delivery so snapshots arrive in order.
	notifyMu sync.Mutex
}

// New creates a synchroniser for resource seeded with initial. Nothing is
// fetched until the first Update; callers typically follow New with
// Update(Reload()).
func New(fetcher api.Lister, resource string, initial query.Query, opts ...Option) *Synchronizer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer{
		fetcher:   fetcher,
		resource:  resource,
		store:     state.NewStore(resource, initial),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		debounce:  defaultDebounce,
		searchKey: query.KeySearch,
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		ctx:    ctx,
		cancel: cancel,
		query:  initial,
		subs:   make(map[int]func(state.Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "collection", "resource", resource)
	return s
}

// Resource returns the backend list path.
func (s *Synchronizer) Resource() string {
	return s.resource
}

// State returns a copy of the collection state.
func (s *Synchronizer) State() state.Snapshot {
	return s.store.Snapshot()
}

// Query returns the current query, including a pending debounced change.
func (s *Synchronizer) Query() query.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Update applies u to the query, bumps the request version and fetches,
// either immediately or after the search debounce. It never blocks on the
// network and never returns fetch errors; those land on the snapshot.
func (s *Synchronizer) Update(u Update) {
	if u == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	prev := s.query
	next, reload := u.apply(prev)
	s.version++
	version := s.version
	s.query = next

	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}

	if !reload && s.isSearchOnly(prev, next) {
		s.store.Begin(next, version, state.PhasePendingDebounce)
		s.stopTimer = s.afterFunc(s.debounce, func() { s.fire(version) })
		s.mu.Unlock()
		s.logger.Debug("search debounced", "version", version, "query", next.Encode())
		s.notify()
		return
	}

	s.store.Begin(next, version, state.PhaseFetching)
	s.store.MarkFetching(version)
	s.mu.Unlock()

	s.notify()
	go s.fetch(version, next)
}

// Subscribe registers fn to receive a snapshot after every state change.
// Deliveries are serialised; fn must not call Update synchronously.
func (s *Synchronizer) Subscribe(fn func(state.Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Close abandons in-flight fetches and stops the debounce timer. Late
// responses are dropped.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
	s.mu.Unlock()

	s.cancel()

	s.subMu.Lock()
	s.subs = make(map[int]func(state.Snapshot))
	s.subMu.Unlock()
}

func (s *Synchronizer) isSearchOnly(prev, next query.Query) bool {
	if s.debounce <= 0 {
		return false
	}
	changed := query.Changed(prev, next)
	return len(changed) == 1 && changed[0] == s.searchKey
}

// fire runs when the debounce quiet period for version elapses.
func (s *Synchronizer) fire(version uint64) {
	s.mu.Lock()
	if s.closed || version != s.version {
		s.mu.Unlock()
		return
	}
	s.stopTimer = nil
	q := s.query
	s.store.MarkFetching(version)
	s.mu.Unlock()

	s.notify()
	go s.fetch(version, q)
}

func (s *Synchronizer) fetch(version uint64, q query.Query) {
	ctx := s.ctx
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	s.logger.Debug("fetch issued", "version", version, "query", q.Encode())
	start := time.Now()
	resp, err := s.fetcher.List(ctx, s.resource, q)
	took := time.Since(start)

	s.mu.Lock()
	if s.closed || version != s.version {
		current := s.version
		s.mu.Unlock()
		s.metrics.observe(s.resource, OutcomeStale, took)
		s.logger.Debug("stale response discarded", "version", version, "current", current)
		return
	}

	if err != nil {
		s.store.Update(version, nil, err)
		s.mu.Unlock()
		s.metrics.observe(s.resource, OutcomeFailed, took)
		s.logger.Warn("fetch failed", "version", version, "error", err)
		s.notify()
		return
	}

	s.store.Update(version, &resp, nil)
	if s.publisher != nil {
		s.publisher.Publish(q)
	}
	s.mu.Unlock()

	s.metrics.observe(s.resource, OutcomeApplied, took)
	s.logger.Debug("response applied", "version", version, "items", len(resp.Items))
	s.notify()
}

func (s *Synchronizer) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.subMu.Lock()
	subs := make([]func(state.Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	if len(subs) == 0 {
		return
	}

	snap := s.store.Snapshot()
	for _, fn := range subs {
		fn(snap)
	}
}
