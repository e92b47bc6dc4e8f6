package urlstate

import (
	"strings"
	"sync"
)

// Location is the console's address bar: a path plus a raw query string
// with history semantics.
type Location interface {
	RawQuery() string
	// Replace rewrites the current entry without adding history.
	Replace(raw string)
	// Push adds a new history entry.
	Push(raw string)
}

// MemoryLocation is an in-process Location with a history stack.
type MemoryLocation struct {
	mu       sync.Mutex
	path     string
	history  []string
	onChange func(path, raw string)
}

// NewMemoryLocation returns a location at path with the given raw query.
func NewMemoryLocation(path, raw string) *MemoryLocation {
	return &MemoryLocation{path: path, history: []string{strings.TrimPrefix(raw, "?")}}
}

// OnChange registers fn to run after every change of the current entry.
func (l *MemoryLocation) OnChange(fn func(path, raw string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// Path returns the location path.
func (l *MemoryLocation) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Navigate moves to a new path and query, pushing a history entry. The path
// is not tracked per entry; Back only restores the query.
func (l *MemoryLocation) Navigate(path, raw string) {
	l.mu.Lock()
	l.path = path
	l.history = append(l.history, strings.TrimPrefix(raw, "?"))
	fn := l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn(path, raw)
	}
}

func (l *MemoryLocation) RawQuery() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.history[len(l.history)-1]
}

func (l *MemoryLocation) Replace(raw string) {
	raw = strings.TrimPrefix(raw, "?")
	l.mu.Lock()
	l.history[len(l.history)-1] = raw
	path, fn := l.path, l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn(path, raw)
	}
}

func (l *MemoryLocation) Push(raw string) {
	raw = strings.TrimPrefix(raw, "?")
	l.mu.Lock()
	l.history = append(l.history, raw)
	path, fn := l.path, l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn(path, raw)
	}
}

// Back drops the current entry. It reports false when there is no earlier
// entry.
func (l *MemoryLocation) Back() bool {
	l.mu.Lock()
	if len(l.history) < 2 {
		l.mu.Unlock()
		return false
	}
	l.history = l.history[:len(l.history)-1]
	path, raw, fn := l.path, l.history[len(l.history)-1], l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn(path, raw)
	}
	return true
}

// Len returns the number of history entries.
func (l *MemoryLocation) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history)
}
