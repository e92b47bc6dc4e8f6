package urlstate

import (
	"net/url"
	"strings"
)

// segment is one "key=value" piece of a raw query string. raw is kept so
// segments this package does not own are written back untouched.
type segment struct {
	raw      string
	key      string
	value    string
	keyOK    bool // key decoded
	valueOK  bool // value decoded
	hasValue bool
}

func splitSegments(raw string) []segment {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "&")
	segs := make([]segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		k, v, hasValue := strings.Cut(part, "=")
		s := segment{raw: part, hasValue: hasValue}
		if key, err := url.QueryUnescape(k); err == nil && key != "" {
			s.key, s.keyOK = key, true
		}
		if value, err := url.QueryUnescape(v); err == nil {
			s.value, s.valueOK = value, true
		}
		segs = append(segs, s)
	}
	return segs
}

// usable reports whether the segment carries a decodable, non-empty value.
func (s segment) usable() bool {
	return s.keyOK && s.valueOK && s.value != ""
}

// edit is an ordered set of key writes; an empty value deletes the key.
type edit struct {
	keys   []string
	values map[string]string
}

func newEdit() *edit {
	return &edit{values: make(map[string]string)}
}

func (e *edit) set(key, value string) {
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

// rewrite applies e to raw. Segments whose decoded key is not in e are
// copied byte for byte. An edited key is written at the position of its
// first segment; its later duplicates are dropped. New keys are appended
// in edit order. A segment that already holds the wanted value keeps its
// original bytes.
func rewrite(raw string, e *edit) string {
	segs := splitSegments(raw)
	out := make([]string, 0, len(segs)+len(e.keys))
	written := make(map[string]bool, len(e.keys))

	for _, s := range segs {
		want, edited := e.values[s.key]
		if !s.keyOK || !edited {
			out = append(out, s.raw)
			continue
		}
		if written[s.key] || want == "" {
			continue
		}
		written[s.key] = true
		if s.valueOK && s.value == want {
			out = append(out, s.raw)
		} else {
			out = append(out, encodeTerm(s.key, want))
		}
	}
	for _, key := range e.keys {
		if want := e.values[key]; want != "" && !written[key] {
			out = append(out, encodeTerm(key, want))
		}
	}
	return strings.Join(out, "&")
}

func encodeTerm(key, value string) string {
	return url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
