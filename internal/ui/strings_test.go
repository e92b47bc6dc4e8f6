package ui

import (
	"errors"
	"fmt"
	"testing"

	"github.com/five82/marketdesk/internal/api"
	"github.com/five82/marketdesk/internal/filter"
	"github.com/five82/marketdesk/internal/table"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"  short ", 10, "short"},
		{"exactly", 7, "exactly"},
		{"longer value", 8, "longe..."},
		{"abcdef", 3, "abc"},
		{"anything", 0, "anything"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.limit); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("  ", 10); got != "" {
		t.Fatalf("truncateMiddle blank = %q, want empty", got)
	}
	if got := truncateMiddle("abcd", 2); got != "ab" {
		t.Fatalf("truncateMiddle limit<=3 = %q, want ab", got)
	}
	if got := truncateMiddle("a/b/c/d/e", 7); got != "a/b…d/e" {
		t.Fatalf("truncateMiddle = %q, want a/b…d/e", got)
	}
}

func TestFitCell(t *testing.T) {
	if got := fitCell("ab", 4); got != "ab  " {
		t.Fatalf("fitCell pad = %q", got)
	}
	if got := fitCell("line\nbreak", 10); got != "line break" {
		t.Fatalf("fitCell newline = %q", got)
	}
	if got := fitCell("overflowing", 6); got != "ove..." {
		t.Fatalf("fitCell truncate = %q", got)
	}
	if got := fitCell("x", 0); got != "" {
		t.Fatalf("fitCell zero width = %q", got)
	}
}

func TestColumnWidths(t *testing.T) {
	cols := []table.Column{{ID: "id", Width: 8}, {ID: "name"}, {ID: "created_at", Width: 10}}
	got := columnWidths(cols, 50)
	// 8+1 + 12+1 + 10+1 = 33, the last column absorbs the other 17 cells
	want := []int{8, 12, 27}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("columnWidths = %v, want %v", got, want)
		}
	}
	if got := columnWidths(cols, 10); got[2] != 4 {
		t.Fatalf("narrow last column = %d, want 4", got[2])
	}
}

func TestNextOption(t *testing.T) {
	f := filter.Field{Key: "status", Type: filter.Select, Options: []filter.Option{{Value: "A"}, {Value: "B"}}}
	seq := []string{"", "A", "B", ""}
	for i := 0; i < len(seq)-1; i++ {
		if got := nextOption(f, seq[i]); got != seq[i+1] {
			t.Fatalf("nextOption(%q) = %q, want %q", seq[i], got, seq[i+1])
		}
	}
	if got := nextOption(f, "stale"); got != "" {
		t.Fatalf("nextOption(stale) = %q, want empty", got)
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{true, "true"},
		{42, "42"},
		{149.5, "149.5"},
		{89.0, "89"},
		{[]string{"home", "light"}, "home, light"},
		{[]any{"a", 2.0}, "a, 2"},
	}
	for _, tc := range cases {
		if got := formatValue(tc.in); got != tc.want {
			t.Fatalf("formatValue(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClassifyConnectionError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("dial tcp 127.0.0.1:8088: connect: connection refused"), "OFFLINE"},
		{errors.New("dial tcp: lookup api.invalid: no such host"), "HOST NOT FOUND"},
		{errors.New("context deadline exceeded"), "TIMEOUT"},
		{fmt.Errorf("list: %w", &api.StatusError{Code: 503}), "HTTP 503"},
		{errors.New("boom"), "ERROR"},
	}
	for _, tc := range cases {
		if got := classifyConnectionError(tc.err); got != tc.want {
			t.Fatalf("classifyConnectionError(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
