package mockapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/five82/marketdesk/internal/api"
	"github.com/five82/marketdesk/internal/query"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Dataset is an in-memory set of resources keyed by list path
// ("admin/buyers").
type Dataset struct {
	mu        sync.RWMutex
	resources map[string][]api.Record
}

// DefaultDataset returns a fresh copy of the embedded marketplace fixtures.
func DefaultDataset() *Dataset {
	ds, err := ParseFixtures(bytes.NewReader(defaultFixtures))
	if err != nil {
		panic(fmt.Sprintf("mockapi: embedded fixtures: %v", err))
	}
	return ds
}

// LoadFixtures reads a YAML fixtures file.
func LoadFixtures(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()
	return ParseFixtures(f)
}

// ParseFixtures decodes YAML of the form {resource: [record, ...]}. Records
// are normalised through JSON so values have the types a client would see.
func ParseFixtures(r io.Reader) (*Dataset, error) {
	var raw map[string][]map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	ds := &Dataset{resources: make(map[string][]api.Record, len(raw))}
	for resource, rows := range raw {
		buf, err := json.Marshal(rows)
		if err != nil {
			return nil, fmt.Errorf("normalise %s: %w", resource, err)
		}
		var recs []api.Record
		if err := json.Unmarshal(buf, &recs); err != nil {
			return nil, fmt.Errorf("normalise %s: %w", resource, err)
		}
		for i, rec := range recs {
			if rec.ID() == "" {
				return nil, fmt.Errorf("%s[%d]: missing id", resource, i)
			}
		}
		ds.resources[strings.Trim(resource, "/")] = recs
	}
	return ds, nil
}

// Resources lists the resource paths in sorted order.
func (d *Dataset) Resources() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.resources))
	for k := range d.resources {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// List applies search, filters, sort and pagination from q.
func (d *Dataset) List(resource string, q query.Query) (api.ListResponse, bool) {
	d.mu.RLock()
	rows, ok := d.resources[resource]
	if !ok {
		d.mu.RUnlock()
		return api.ListResponse{}, false
	}
	matched := make([]api.Record, 0, len(rows))
	for _, rec := range rows {
		if matches(rec, q) {
			matched = append(matched, rec.Clone())
		}
	}
	d.mu.RUnlock()

	if col, desc := sortSpec(q); col != "" {
		slices.SortStableFunc(matched, func(a, b api.Record) int {
			c := compare(a[col], b[col])
			if desc {
				return -c
			}
			return c
		})
	}

	total := len(matched)
	size := intParam(q, query.KeyPageSize, defaultPageSize)
	size = min(max(size, 1), maxPageSize)
	page := max(intParam(q, query.KeyPage, 1), 1)
	start := min((page-1)*size, total)
	end := min(start+size, total)

	return api.ListResponse{Items: matched[start:end], Total: &total}, true
}

// Get returns one record.
func (d *Dataset) Get(resource, id string) (api.Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, rec := range d.resources[resource] {
		if rec.ID() == id {
			return rec.Clone(), true
		}
	}
	return nil, false
}

// Create appends rec, assigning an id when it has none.
func (d *Dataset) Create(resource string, rec api.Record) (api.Record, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.resources[resource]; !ok {
		return nil, false
	}
	rec = rec.Clone()
	if rec.ID() == "" {
		rec["id"] = uuid.NewString()
	}
	d.resources[resource] = append(d.resources[resource], rec)
	return rec.Clone(), true
}

// Update merges patch into the record with id. The id itself cannot change.
func (d *Dataset) Update(resource, id string, patch api.Record) (api.Record, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rec := range d.resources[resource] {
		if rec.ID() != id {
			continue
		}
		for k, v := range patch {
			if k == "id" {
				continue
			}
			rec[k] = v
		}
		return rec.Clone(), true
	}
	return nil, false
}

// Delete removes the record with id.
func (d *Dataset) Delete(resource, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	rows := d.resources[resource]
	idx := slices.IndexFunc(rows, func(r api.Record) bool { return r.ID() == id })
	if idx < 0 {
		return false
	}
	d.resources[resource] = slices.Delete(rows, idx, idx+1)
	return true
}

func matches(rec api.Record, q query.Query) bool {
	for _, t := range q.Terms() {
		switch t.Key {
		case query.KeySort, query.KeyPage, query.KeyPageSize:
			continue
		case query.KeySearch:
			if !searchMatch(rec, t.Value) {
				return false
			}
			continue
		}

		field := strings.TrimPrefix(t.Key, "f_")
		switch {
		case strings.HasSuffix(field, "_like"):
			name := strings.TrimSuffix(field, "_like")
			if !strings.Contains(strings.ToLower(rec.String(name)), strings.ToLower(t.Value)) {
				return false
			}
		case strings.HasSuffix(field, "_from"):
			if datePart(rec.String(strings.TrimSuffix(field, "_from"))) < t.Value {
				return false
			}
		case strings.HasSuffix(field, "_to"):
			if datePart(rec.String(strings.TrimSuffix(field, "_to"))) > t.Value {
				return false
			}
		default:
			if !valueIn(rec[field], strings.Split(t.Value, ",")) {
				return false
			}
		}
	}
	return true
}

func searchMatch(rec api.Record, text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return true
	}
	for key := range rec {
		if strings.Contains(strings.ToLower(rec.String(key)), text) {
			return true
		}
	}
	return false
}

// valueIn matches scalars against any wanted value and lists when any
// element is wanted.
func valueIn(v any, wanted []string) bool {
	if list, ok := v.([]any); ok {
		for _, el := range list {
			if valueIn(el, wanted) {
				return true
			}
		}
		return false
	}
	got := api.Record{"v": v}.String("v")
	for _, w := range wanted {
		if strings.EqualFold(got, strings.TrimSpace(w)) {
			return true
		}
	}
	return false
}

func datePart(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func sortSpec(q query.Query) (string, bool) {
	raw := q.Value(query.KeySort)
	if raw == "" {
		return "", false
	}
	col, dir, _ := strings.Cut(raw, ":")
	return col, strings.EqualFold(dir, "desc")
}

func compare(a, b any) int {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as := api.Record{"v": a}.String("v")
	bs := api.Record{"v": b}.String("v")
	return strings.Compare(strings.ToLower(as), strings.ToLower(bs))
}

func intParam(q query.Query, key string, def int) int {
	raw := q.Value(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
