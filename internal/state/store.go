package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/marketdesk/internal/api"
	"github.com/five82/marketdesk/internal/query"
)

// Phase is the synchroniser lifecycle position for a collection.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePendingDebounce
	PhaseFetching
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhasePendingDebounce:
		return "pending"
	case PhaseFetching:
		return "fetching"
	case PhaseSettled:
		return "settled"
	default:
		return "idle"
	}
}

// Snapshot represents the latest state of one collection available to the UI.
type Snapshot struct {
	Resource string
	Items    []api.Record
	Total    int
	HasTotal bool
	// Loaded is true once an authoritative response has been applied.
	Loaded bool
	Query  query.Query
	// Version is the current request version; FetchVersion is the version of
	// the fetch in flight (or last settled).
	Version      uint64
	FetchVersion uint64
	Phase        Phase

	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive fetch failures
}

// IsOffline returns true when the API has been unreachable for multiple fetches.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Busy reports whether a fetch is in flight or waiting on the debounce timer.
func (s Snapshot) Busy() bool {
	return s.Phase == PhaseFetching || s.Phase == PhasePendingDebounce
}

// Store coordinates concurrent access to a collection snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// NewStore returns a store seeded with the resource and initial query.
func NewStore(resource string, initial query.Query) *Store {
	return &Store{snapshot: Snapshot{Resource: resource, Query: initial}}
}

// Begin records a newly accepted query and request version. Items and Loaded
// are left untouched so the previous page stays visible.
func (s *Store) Begin(q query.Query, version uint64, phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Query = q
	s.snapshot.Version = version
	s.snapshot.Phase = phase
}

// MarkFetching records that the fetch for version is in flight.
func (s *Store) MarkFetching(version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.FetchVersion = version
	s.snapshot.Phase = PhaseFetching
}

// Update settles the fetch for version. When err is non-nil the previous data
// is kept but the error is recorded for visibility.
func (s *Store) Update(version uint64, resp *api.ListResponse, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.FetchVersion = version
	s.snapshot.Phase = PhaseSettled
	s.snapshot.LastUpdated = time.Now()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}

	if resp != nil {
		s.snapshot.Items = cloneItems(resp.Items)
		if resp.Total != nil {
			s.snapshot.Total = *resp.Total
			s.snapshot.HasTotal = true
		} else {
			s.snapshot.Total = len(resp.Items)
			s.snapshot.HasTotal = false
		}
	}
	s.snapshot.Loaded = true
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Items = cloneItems(s.snapshot.Items)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneItems(items []api.Record) []api.Record {
	if items == nil {
		return nil
	}
	dup := make([]api.Record, len(items))
	for i, it := range items {
		dup[i] = it.Clone()
	}
	return dup
}
