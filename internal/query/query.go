// Package query models the ordered key/value terms shared by the list
// synchronisation layer, the address bar and the REST wire format.
package query

import (
	"fmt"
	"net/url"
	"strings"
)

// Canonical keys understood by every list endpoint.
const (
	KeySearch   = "q"
	KeySort     = "sort"
	KeyPage     = "page"
	KeyPageSize = "page_size"
)

// Term is a single key/value pair.
type Term struct {
	Key   string
	Value string
}

// Query is an ordered set of terms with unique keys. The zero value is empty
// and ready to use. Query values are immutable; every mutator returns a copy.
type Query struct {
	terms []Term
}

// Of builds a query from alternating key/value arguments. A trailing key
// without a value is ignored, as are empty values.
func Of(kv ...string) Query {
	var q Query
	for i := 0; i+1 < len(kv); i += 2 {
		q = q.With(kv[i], kv[i+1])
	}
	return q
}

// Parse decodes a raw query string ("a=1&b=2", optionally prefixed with "?")
// preserving the order in which keys first appear. A repeated key keeps its
// first position and its last value. Terms with empty values are dropped.
func Parse(raw string) (Query, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "?")
	var q Query
	if raw == "" {
		return q, nil
	}
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return Query{}, fmt.Errorf("decode key %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return Query{}, fmt.Errorf("decode value for %q: %w", key, err)
		}
		if key == "" {
			continue
		}
		q = q.With(key, value)
	}
	return q, nil
}

// MustParse is Parse for literals in tests and static tables.
func MustParse(raw string) Query {
	q, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return q
}

// Encode serialises the query in term order.
func (q Query) Encode() string {
	if len(q.terms) == 0 {
		return ""
	}
	var b strings.Builder
	for i, t := range q.terms {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(t.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(t.Value))
	}
	return b.String()
}

// String implements fmt.Stringer.
func (q Query) String() string {
	return q.Encode()
}

// Len returns the number of terms.
func (q Query) Len() int {
	return len(q.terms)
}

// Get returns the value for key.
func (q Query) Get(key string) (string, bool) {
	if i := q.index(key); i >= 0 {
		return q.terms[i].Value, true
	}
	return "", false
}

// Value returns the value for key, or "" when absent.
func (q Query) Value(key string) string {
	v, _ := q.Get(key)
	return v
}

// Has reports whether key is present.
func (q Query) Has(key string) bool {
	return q.index(key) >= 0
}

// Keys returns the keys in order.
func (q Query) Keys() []string {
	keys := make([]string, len(q.terms))
	for i, t := range q.terms {
		keys[i] = t.Key
	}
	return keys
}

// Terms returns a copy of the terms in order.
func (q Query) Terms() []Term {
	return append([]Term(nil), q.terms...)
}

// Map returns the terms as a map.
func (q Query) Map() map[string]string {
	out := make(map[string]string, len(q.terms))
	for _, t := range q.terms {
		out[t.Key] = t.Value
	}
	return out
}

// Equal reports whether both queries hold the same terms in the same order.
func (q Query) Equal(other Query) bool {
	if len(q.terms) != len(other.terms) {
		return false
	}
	for i := range q.terms {
		if q.terms[i] != other.terms[i] {
			return false
		}
	}
	return true
}

// With returns a copy with key set to value. An existing key keeps its
// position; a new key is appended. An empty value removes the key.
func (q Query) With(key, value string) Query {
	if value == "" {
		return q.Without(key)
	}
	out := Query{terms: q.Terms()}
	if i := out.index(key); i >= 0 {
		out.terms[i].Value = value
		return out
	}
	out.terms = append(out.terms, Term{Key: key, Value: value})
	return out
}

// Without returns a copy with the given keys removed.
func (q Query) Without(keys ...string) Query {
	if len(keys) == 0 || len(q.terms) == 0 {
		return q
	}
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	out := Query{terms: make([]Term, 0, len(q.terms))}
	for _, t := range q.terms {
		if _, ok := drop[t.Key]; ok {
			continue
		}
		out.terms = append(out.terms, t)
	}
	return out
}

// Merge applies a patch in order.
func (q Query) Merge(p Patch) Query {
	out := q
	for _, t := range p {
		out = out.With(t.Key, t.Value)
	}
	return out
}

// Changed lists the keys whose values differ between a and b, in a's order
// followed by keys only present in b.
func Changed(a, b Query) []string {
	var keys []string
	for _, t := range a.terms {
		if v, ok := b.Get(t.Key); !ok || v != t.Value {
			keys = append(keys, t.Key)
		}
	}
	for _, t := range b.terms {
		if !a.Has(t.Key) {
			keys = append(keys, t.Key)
		}
	}
	return keys
}

func (q Query) index(key string) int {
	for i, t := range q.terms {
		if t.Key == key {
			return i
		}
	}
	return -1
}

// Patch is an ordered list of partial query changes. A term with an empty
// value removes its key.
type Patch []Term

// Set builds a patch term assigning value to key.
func Set(key, value string) Term {
	return Term{Key: key, Value: value}
}

// Unset builds a patch term removing key.
func Unset(key string) Term {
	return Term{Key: key}
}

// Keys returns the keys touched by the patch.
func (p Patch) Keys() []string {
	keys := make([]string, len(p))
	for i, t := range p {
		keys[i] = t.Key
	}
	return keys
}
