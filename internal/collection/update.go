package collection

import "github.com/five82/marketdesk/internal/query"

// Update is a mutation request for a collection's query. It is one of
// Patch, Transform or Reload.
type Update interface {
	apply(prev query.Query) (next query.Query, reload bool)
}

// UpdateFunc is the write side of a collection handed to UI fragments.
type UpdateFunc func(Update)

type patchUpdate struct {
	patch query.Patch
}

func (u patchUpdate) apply(prev query.Query) (query.Query, bool) {
	return prev.Merge(u.patch), false
}

type transformUpdate struct {
	fn func(query.Query) query.Query
}

func (u transformUpdate) apply(prev query.Query) (query.Query, bool) {
	if u.fn == nil {
		return prev, false
	}
	return u.fn(prev), false
}

type reloadUpdate struct{}

func (reloadUpdate) apply(prev query.Query) (query.Query, bool) {
	return prev, true
}

// Patch merges the given terms into the current query. Terms with an empty
// value remove their key.
func Patch(terms ...query.Term) Update {
	return patchUpdate{patch: append(query.Patch(nil), terms...)}
}

// Transform replaces the current query with fn's result.
func Transform(fn func(query.Query) query.Query) Update {
	return transformUpdate{fn: fn}
}

// Reload re-issues the fetch with the current query unchanged.
func Reload() Update {
	return reloadUpdate{}
}

// Apply returns the query u produces from q without fetching. Reload
// returns q unchanged.
func Apply(q query.Query, u Update) query.Query {
	if u == nil {
		return q
	}
	next, _ := u.apply(q)
	return next
}
