// Package form holds an editable draft record with typed change events and
// per-field error messages. It does no validation or I/O of its own.
package form

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"
)

// ErrCoerce marks a raw input value that does not convert to its declared
// type.
var ErrCoerce = errors.New("cannot convert value")

// Draft is the record being edited.
type Draft map[string]any

// Clone deep-copies the draft, including nested maps and slices.
func (d Draft) Clone() Draft {
	if d == nil {
		return nil
	}
	out := make(Draft, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Draft:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// ValueType declares how a raw input value is converted.
type ValueType int

const (
	String ValueType = iota
	Int
	Float
	Bool
	StringList
)

func (t ValueType) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case StringList:
		return "list"
	default:
		return "string"
	}
}

// Event is one input change.
type Event struct {
	Name  string
	Value string
	Type  ValueType
}

// Coerce converts raw to t. An empty raw value converts to nil for numeric
// types so optional fields can be cleared.
func Coerce(raw string, t ValueType) (any, error) {
	switch t {
	case Int:
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a whole number", ErrCoerce, raw)
		}
		return n, nil
	case Float:
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrCoerce, raw)
		}
		return f, nil
	case Bool:
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not true or false", ErrCoerce, raw)
		}
		return b, nil
	case StringList:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return raw, nil
	}
}

// Controller owns one draft and its errors.
type Controller struct {
	template Draft

	mu       sync.Mutex
	draft    Draft
	errors   map[string]string
	invalid  map[string]string // inputs whose last change failed to convert
	errorMsg string
}

// New returns a controller whose draft is a deep copy of template.
func New(template Draft) *Controller {
	if template == nil {
		template = Draft{}
	}
	return &Controller{
		template: template.Clone(),
		draft:    template.Clone(),
		errors:   map[string]string{},
		invalid:  map[string]string{},
	}
}

// Draft returns a copy of the current draft.
func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// SetDraft replaces the draft with a copy of d, typically a record loaded
// for editing.
func (c *Controller) SetDraft(d Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d == nil {
		d = Draft{}
	}
	c.draft = d.Clone()
}

// Reset restores a fresh copy of the template and clears every error.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = c.template.Clone()
	c.errors = map[string]string{}
	c.invalid = map[string]string{}
	c.errorMsg = ""
}

// OnChange coerces ev.Value and stores it under ev.Name. A conversion
// failure records a field error, leaves the draft value untouched and is
// returned.
func (c *Controller) OnChange(ev Event) error {
	v, err := Coerce(ev.Value, ev.Type)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.errors[ev.Name] = err.Error()
		c.invalid[ev.Name] = err.Error()
		return fmt.Errorf("field %s: %w", ev.Name, err)
	}
	c.draft[ev.Name] = v
	delete(c.errors, ev.Name)
	delete(c.invalid, ev.Name)
	return nil
}

// InputErrors returns the fields whose latest input failed to convert. The
// draft still holds the previous value for each of them. SetErrors does not
// clear these; a successful OnChange or Reset does.
func (c *Controller) InputErrors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.invalid))
	maps.Copy(out, c.invalid)
	return out
}

// Errors returns a copy of the field errors.
func (c *Controller) Errors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.errors)
}

// SetErrors replaces the field errors.
func (c *Controller) SetErrors(errs map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = maps.Clone(errs)
	if c.errors == nil {
		c.errors = map[string]string{}
	}
}

// ErrorMessage returns the form-level error message.
func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorMsg
}

// SetErrorMessage sets the form-level error message.
func (c *Controller) SetErrorMessage(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorMsg = msg
}
