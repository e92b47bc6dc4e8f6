// Package collection keeps one remote list in sync with its query.
//
// # Overview
//
// A Synchronizer owns the query of a single resource and the snapshot of the
// last applied response. Independent writers (search box, filters, sort
// headers, paging keys, the poller) send it Updates; it decides when to fetch
// and which response wins.
//
//	s := collection.New(client, "admin/buyers", seed,
//		collection.WithPublisher(binding),
//		collection.WithMetrics(metrics),
//	)
//	s.Update(collection.Patch(query.Set("q", "acme")))
//	snap := s.State()
//
// # Updates
//
//   - Patch merges terms into the current query; an empty value removes a key
//   - Transform replaces the query with a function of the current one
//   - Reload fetches again with the query unchanged
//
// Every accepted update takes a new version. Only the response for the
// current version is applied; older ones are dropped and counted as stale.
//
// # Debounce
//
// An update whose only changed key is the search key arms a quiet-period
// timer instead of fetching. Further search updates re-arm it. Any other
// update cancels the timer and fetches the merged query at once.
//
// # Snapshot
//
// Items and Loaded keep their previous values while a fetch is in flight
// and when it fails; the failure is recorded with a consecutive-failure
// count. Phase reports Idle, PendingDebounce, Fetching or Settled.
//
// # Publishing
//
// After a response is applied the Synchronizer hands the query to its
// Publisher, normally a urlstate.Binding, so the address bar always shows
// the query of the rows on screen.
//
// # Metrics
//
// NewMetrics registers marketdesk_collection_fetches_total{resource,outcome}
// (applied, stale, failed) and marketdesk_collection_fetch_seconds{resource}.
package collection
