package urlstate

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/five82/marketdesk/internal/query"
)

// Bridge reads and writes query parameters on a Location.
type Bridge struct {
	loc    Location
	logger *slog.Logger
	mu     sync.Mutex
}

// NewBridge wraps loc. A nil logger discards.
func NewBridge(loc Location, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bridge{loc: loc, logger: logger.With("component", "urlstate")}
}

// Snapshot decodes the current address-bar query. Segments that do not
// decode, and keys without a value, are skipped.
func (b *Bridge) Snapshot() query.Query {
	var kv []string
	for _, seg := range splitSegments(b.loc.RawQuery()) {
		if seg.usable() {
			kv = append(kv, seg.key, seg.value)
		}
	}
	return query.Of(kv...)
}

// SetParam writes one parameter, replacing the current history entry. An
// empty value removes the key.
func (b *Bridge) SetParam(key, value string) {
	b.UpdateParam(key, func(string) string { return value })
}

// UpdateParam rewrites one parameter from its current value. Every other
// segment of the address bar is left as it was.
func (b *Bridge) UpdateParam(key string, fn func(current string) string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := ""
	for _, seg := range splitSegments(b.loc.RawQuery()) {
		if seg.key == key && seg.usable() {
			current = seg.value
		}
	}
	e := newEdit()
	e.set(key, fn(current))
	b.replace(e)
}

// replace applies e to the location. Callers hold b.mu.
func (b *Bridge) replace(e *edit) bool {
	raw := b.loc.RawQuery()
	next := rewrite(raw, e)
	if next == strings.TrimPrefix(raw, "?") {
		return false
	}
	b.loc.Replace(next)
	return true
}

// URL renders the location as path?query when the location has a path.
func (b *Bridge) URL() string {
	raw := b.loc.RawQuery()
	path := ""
	if p, ok := b.loc.(interface{ Path() string }); ok {
		path = p.Path()
	}
	if raw == "" {
		return path
	}
	return path + "?" + raw
}

// Bind returns a binding scoped to keys starting with prefix. An empty prefix
// binds the whole query.
func (b *Bridge) Bind(prefix string) *Binding {
	return &Binding{bridge: b, prefix: prefix, owned: make(map[string]struct{})}
}

// Binding mirrors one collection's query into the address bar. It owns the
// keys it has seeded or published and leaves every other key alone.
type Binding struct {
	bridge *Bridge
	prefix string

	mu    sync.Mutex
	owned map[string]struct{}
}

// Seed returns the address-bar terms under the binding's prefix with the
// prefix stripped, in address-bar order.
func (bd *Binding) Seed() query.Query {
	bd.mu.Lock()
	defer bd.mu.Unlock()

	var kv []string
	for _, seg := range splitSegments(bd.bridge.loc.RawQuery()) {
		if !seg.usable() {
			continue
		}
		key, ok := bd.strip(seg.key)
		if !ok {
			continue
		}
		bd.owned[seg.key] = struct{}{}
		kv = append(kv, key, seg.value)
	}
	return query.Of(kv...)
}

// Publish mirrors q into the address bar with Replace. Keys this binding
// owned that are absent from q are removed; existing keys keep their
// position and segments the binding does not own are copied unchanged.
func (bd *Binding) Publish(q query.Query) {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	b := bd.bridge
	b.mu.Lock()
	defer b.mu.Unlock()

	e := newEdit()
	want := make(map[string]struct{}, q.Len())
	for _, term := range q.Terms() {
		full := bd.prefix + term.Key
		want[full] = struct{}{}
		e.set(full, term.Value)
	}
	for key := range bd.owned {
		if _, ok := want[key]; !ok {
			e.set(key, "")
		}
	}
	bd.owned = want

	if b.replace(e) {
		b.logger.Debug("location updated", "prefix", bd.prefix, "query", b.loc.RawQuery())
	}
}

func (bd *Binding) strip(key string) (string, bool) {
	if bd.prefix == "" {
		return key, true
	}
	if !strings.HasPrefix(key, bd.prefix) || len(key) == len(bd.prefix) {
		return "", false
	}
	return strings.TrimPrefix(key, bd.prefix), true
}
