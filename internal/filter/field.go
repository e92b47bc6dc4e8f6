package filter

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/five82/marketdesk/internal/query"
)

// ErrInvalidFilter marks filter input that cannot be compiled into query
// terms.
var ErrInvalidFilter = errors.New("invalid filter")

// DateLayout is the wire format for date range bounds.
const DateLayout = "2006-01-02"

const rangeSep = ".."

// FieldType selects the input widget for a field.
type FieldType int

const (
	Text FieldType = iota
	Checkbox
	DateRange
	Select
)

func (t FieldType) String() string {
	switch t {
	case Checkbox:
		return "checkbox"
	case DateRange:
		return "date range"
	case Select:
		return "select"
	default:
		return "text"
	}
}

// Operator selects how a field value compiles into query terms.
type Operator int

const (
	Equals Operator = iota
	Contains
	Range
	In
)

func (o Operator) String() string {
	switch o {
	case Contains:
		return "contains"
	case Range:
		return "range"
	case In:
		return "in"
	default:
		return "equals"
	}
}

// Option is one allowed value of a select field.
type Option struct {
	Value string
	Label string
}

// Field describes one filter input.
type Field struct {
	Key      string
	Label    string
	Param    string // defaults to f_<Key>
	Type     FieldType
	Operator Operator
	// LiveApply sends the field's patch on every input change instead of
	// waiting for Apply.
	LiveApply bool
	Options   []Option
}

// ParamName returns the query key the field writes.
func (f Field) ParamName() string {
	if f.Param != "" {
		return f.Param
	}
	return "f_" + f.Key
}

// QueryKeys lists every query key the field can emit.
func (f Field) QueryKeys() []string {
	p := f.ParamName()
	if f.Type == Checkbox {
		return []string{p}
	}
	switch f.Operator {
	case Contains:
		return []string{p + "_like"}
	case Range:
		return []string{p + "_from", p + "_to"}
	default:
		return []string{p}
	}
}

// Compile turns a raw field value into patch terms. An empty value unsets
// every key of the field.
func (f Field) Compile(value string) ([]query.Term, error) {
	value = strings.TrimSpace(value)
	keys := f.QueryKeys()
	if value == "" {
		return unsetAll(keys), nil
	}

	if f.Type == Checkbox {
		switch value {
		case "true":
			return []query.Term{query.Set(keys[0], "true")}, nil
		case "false":
			return unsetAll(keys), nil
		default:
			return nil, fmt.Errorf("%w: %s: checkbox value %q", ErrInvalidFilter, f.Key, value)
		}
	}

	switch f.Operator {
	case Contains:
		return []query.Term{query.Set(keys[0], value)}, nil
	case Range:
		from, to, err := f.parseRange(value)
		if err != nil {
			return nil, err
		}
		return []query.Term{query.Set(keys[0], from), query.Set(keys[1], to)}, nil
	case In:
		var vals []string
		for _, v := range strings.Split(value, ",") {
			v = strings.TrimSpace(v)
			if v == "" || slices.Contains(vals, v) {
				continue
			}
			if err := f.checkOption(v); err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		if len(vals) == 0 {
			return unsetAll(keys), nil
		}
		return []query.Term{query.Set(keys[0], strings.Join(vals, ","))}, nil
	default:
		if err := f.checkOption(value); err != nil {
			return nil, err
		}
		return []query.Term{query.Set(keys[0], value)}, nil
	}
}

// Decode reads the field's raw value back out of q.
func (f Field) Decode(q query.Query) string {
	keys := f.QueryKeys()
	if f.Type == Checkbox {
		if q.Value(keys[0]) == "true" {
			return "true"
		}
		return ""
	}
	if f.Operator == Range {
		from, to := q.Value(keys[0]), q.Value(keys[1])
		switch {
		case from == "" && to == "":
			return ""
		case to == "":
			return from + rangeSep
		default:
			return from + rangeSep + to
		}
	}
	return q.Value(keys[0])
}

// parseRange accepts "from..to" with either side optional. A bare date is
// treated as the lower bound.
func (f Field) parseRange(value string) (string, string, error) {
	from, to, found := strings.Cut(value, rangeSep)
	if !found {
		from, to = value, ""
	}
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)

	var fromT, toT time.Time
	var err error
	if from != "" {
		if fromT, err = time.Parse(DateLayout, from); err != nil {
			return "", "", fmt.Errorf("%w: %s: bad start date %q", ErrInvalidFilter, f.Key, from)
		}
	}
	if to != "" {
		if toT, err = time.Parse(DateLayout, to); err != nil {
			return "", "", fmt.Errorf("%w: %s: bad end date %q", ErrInvalidFilter, f.Key, to)
		}
	}
	if from != "" && to != "" && fromT.After(toT) {
		return "", "", fmt.Errorf("%w: %s: start %s is after end %s", ErrInvalidFilter, f.Key, from, to)
	}
	return from, to, nil
}

func (f Field) checkOption(v string) error {
	if len(f.Options) == 0 {
		return nil
	}
	for _, o := range f.Options {
		if o.Value == v {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: %q is not an allowed option", ErrInvalidFilter, f.Key, v)
}

func unsetAll(keys []string) []query.Term {
	terms := make([]query.Term, len(keys))
	for i, k := range keys {
		terms[i] = query.Unset(k)
	}
	return terms
}
