// Package state provides thread-safe state management for one synchronised
// collection.
//
// # Overview
//
// A Store holds the latest page of records for a resource together with the
// request bookkeeping the synchroniser needs. The synchroniser is the only
// writer; the UI and the background poller read snapshots on their own
// schedule.
//
//	Writer (collection.Synchronizer):   Readers (UI tick, poller):
//	┌──────────────────────────┐        ┌──────────────────────┐
//	│ Begin(q, version, phase) │        │                      │
//	│ MarkFetching(version)    │───────→│ store.Snapshot()     │
//	│ Update(version, resp, e) │ (mutex)│      ↓               │
//	└──────────────────────────┘        │ render / decide      │
//	                                    └──────────────────────┘
//
// # Lifecycle
//
// Each accepted query moves the snapshot through these phases:
//
//	idle → pending (debounce armed) → fetching → settled
//
// Begin records the new query and version but leaves Items untouched, so the
// previous page stays on screen while the next one loads. Update settles a
// fetch:
//
//	// Success: replace items and total, clear the error
//	store.Update(v, &resp, nil)
//	→ Items, Total, HasTotal from resp
//	→ Loaded = true, LastError = nil, ConsecutiveFailures = 0
//
//	// Failure: keep the old items, record the error
//	store.Update(v, nil, err)
//	→ Items unchanged
//	→ LastError = err, ConsecutiveFailures++
//
// A response without a total reports HasTotal = false and Total = len(Items).
//
// # Versions
//
// Version is the newest request the synchroniser accepted; FetchVersion is
// the request in flight or last settled. The synchroniser drops responses
// whose version is older than Version before they reach the store.
//
// # Copies
//
// Snapshot deep-copies the records, so callers may mutate what they get back.
// The zero Snapshot is valid and reports Loaded = false.
//
// # Health
//
// IsOffline reports two or more consecutive failures; the header shows the
// API as unreachable and the poller backs off. Busy reports a pending or
// in-flight fetch; the poller skips its reload while it is true.
package state
