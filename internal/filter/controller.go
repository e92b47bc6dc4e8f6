package filter

import (
	"fmt"
	"maps"
	"sync"

	"github.com/five82/marketdesk/internal/collection"
	"github.com/five82/marketdesk/internal/query"
)

// FilterState is the draft for one field.
type FilterState struct {
	Operator Operator
	Value    string
	Type     FieldType
}

// Controller holds the filter draft for a page and compiles it into
// collection patches.
type Controller struct {
	fields  []Field
	index   map[string]int
	update  collection.UpdateFunc
	initial map[string]FilterState

	mu   sync.Mutex
	data map[string]FilterState
}

// New returns a controller for fields writing through update.
func New(fields []Field, update collection.UpdateFunc) *Controller {
	c := &Controller{
		fields:  append([]Field(nil), fields...),
		index:   make(map[string]int, len(fields)),
		update:  update,
		initial: make(map[string]FilterState, len(fields)),
	}
	for i, f := range c.fields {
		c.index[f.Key] = i
		c.initial[f.Key] = FilterState{Operator: f.Operator, Type: f.Type}
	}
	c.data = maps.Clone(c.initial)
	return c
}

// Fields returns the field definitions in display order.
func (c *Controller) Fields() []Field {
	return append([]Field(nil), c.fields...)
}

// Data returns a copy of the draft.
func (c *Controller) Data() map[string]FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.data)
}

// Value returns the draft value for key.
func (c *Controller) Value(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key].Value
}

// Enabled lists the keys with a non-empty draft value, in field order.
func (c *Controller) Enabled() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []string
	for _, f := range c.fields {
		if c.data[f.Key].Value != "" {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// OnInputChange records value in the draft. Live fields are compiled and
// sent at once; a compile error leaves the draft updated and sends nothing.
func (c *Controller) OnInputChange(key, value string) error {
	c.mu.Lock()
	f, err := c.field(key)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	st := c.data[key]
	st.Value = value
	c.data[key] = st
	c.mu.Unlock()

	if !f.LiveApply {
		return nil
	}
	return c.send(f, value)
}

// Toggle flips a checkbox field.
func (c *Controller) Toggle(key string) error {
	c.mu.Lock()
	f, err := c.field(key)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if f.Type != Checkbox {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s is not a checkbox", ErrInvalidFilter, key)
	}
	st := c.data[key]
	if st.Value == "true" {
		st.Value = ""
	} else {
		st.Value = "true"
	}
	c.data[key] = st
	value := st.Value
	c.mu.Unlock()

	if !f.LiveApply {
		return nil
	}
	return c.send(f, value)
}

// Apply validates every field and sends the whole draft as one patch.
// Nothing is sent when any field is invalid.
func (c *Controller) Apply() error {
	c.mu.Lock()
	var patch query.Patch
	for _, f := range c.fields {
		terms, err := f.Compile(c.data[f.Key].Value)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		patch = append(patch, terms...)
	}
	c.mu.Unlock()

	c.sendPatch(patch)
	return nil
}

// Clear resets the draft to its initial shape and unsets every key a field
// can emit. Search, sort and pagination keys are left alone.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.data = maps.Clone(c.initial)
	var patch query.Patch
	for _, f := range c.fields {
		for _, k := range f.QueryKeys() {
			patch = append(patch, query.Unset(k))
		}
	}
	c.mu.Unlock()

	c.sendPatch(patch)
}

// SetData replaces draft values for known keys. Unknown keys are ignored.
func (c *Controller) SetData(data map[string]FilterState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, st := range data {
		if _, ok := c.index[key]; !ok {
			continue
		}
		cur := c.data[key]
		cur.Value = st.Value
		c.data[key] = cur
	}
}

// FromQuery seeds the draft from q, typically the address-bar seed.
func (c *Controller) FromQuery(q query.Query) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.fields {
		st := c.data[f.Key]
		st.Value = f.Decode(q)
		c.data[f.Key] = st
	}
}

func (c *Controller) field(key string) (Field, error) {
	i, ok := c.index[key]
	if !ok {
		return Field{}, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, key)
	}
	return c.fields[i], nil
}

func (c *Controller) send(f Field, value string) error {
	terms, err := f.Compile(value)
	if err != nil {
		return err
	}
	c.sendPatch(terms)
	return nil
}

func (c *Controller) sendPatch(terms query.Patch) {
	if c.update == nil || len(terms) == 0 {
		return
	}
	c.update(collection.Patch(terms...))
}
