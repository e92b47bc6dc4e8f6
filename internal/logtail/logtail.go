package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file is empty.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one decoded log record.
type Entry struct {
	Time      time.Time
	Level     slog.Level
	Message   string
	Component string
	// Attrs holds the remaining attributes, already formatted.
	Attrs []string
	// Raw is the undecoded line; set for every entry.
	Raw string
}

// Parse decodes a JSON line written by slog.JSONHandler. Lines that are not
// JSON objects come back as an info entry carrying the text as the message.
func Parse(line string) Entry {
	entry := Entry{Raw: line, Level: slog.LevelInfo}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		entry.Message = trimmed
		return entry
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		entry.Message = trimmed
		return entry
	}

	if v, ok := fields[slog.TimeKey].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			entry.Time = ts
		}
	}
	if v, ok := fields[slog.LevelKey].(string); ok {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err == nil {
			entry.Level = level
		}
	}
	if v, ok := fields[slog.MessageKey].(string); ok {
		entry.Message = v
	}
	if v, ok := fields["component"].(string); ok {
		entry.Component = v
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		switch k {
		case slog.TimeKey, slog.LevelKey, slog.MessageKey, "component":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		entry.Attrs = append(entry.Attrs, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return entry
}

// ParseLines decodes every line.
func ParseLines(lines []string) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, Parse(line))
	}
	return out
}

// Filter narrows entries. The zero Filter keeps info and above.
type Filter struct {
	MinLevel  slog.Level
	Component string
	// Text matches the message, the attributes or the component,
	// case-insensitively.
	Text string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if e.Level < f.MinLevel {
		return false
	}
	if f.Component != "" && !strings.EqualFold(e.Component, f.Component) {
		return false
	}
	if f.Text == "" {
		return true
	}
	needle := strings.ToLower(f.Text)
	if strings.Contains(strings.ToLower(e.Message), needle) ||
		strings.Contains(strings.ToLower(e.Component), needle) {
		return true
	}
	for _, a := range e.Attrs {
		if strings.Contains(strings.ToLower(a), needle) {
			return true
		}
	}
	return false
}

// Apply returns the entries that match.
func (f Filter) Apply(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Format renders e as a single plain line:
// "15:04:05 LEVEL [component] message k=v ...".
func Format(e Entry) string {
	if e.Time.IsZero() && e.Component == "" && len(e.Attrs) == 0 && e.Message == strings.TrimSpace(e.Raw) {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	b.WriteString(e.Level.String())
	if e.Component != "" {
		b.WriteString(" [")
		b.WriteString(e.Component)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)
	for _, a := range e.Attrs {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	return b.String()
}
