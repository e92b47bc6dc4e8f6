package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestStatusStyle(t *testing.T) {
	th := GetTheme("Nightfox")
	styles := th.Styles()

	got := styles.StatusStyle("  blocked ").GetForeground()
	if got != lipgloss.Color(th.StatusColors["BLOCKED"]) {
		t.Fatalf("StatusStyle(blocked) = %v, want %v", got, th.StatusColors["BLOCKED"])
	}
	got = styles.StatusStyle("unknown").GetForeground()
	if got != lipgloss.Color(th.Text) {
		t.Fatalf("StatusStyle(unknown) = %v, want %v", got, th.Text)
	}
}

func TestThemesCoverStatuses(t *testing.T) {
	statuses := []string{"ACTIVE", "BLOCKED", "PENDING_APPROVAL", "DRAFT", "ARCHIVED", "PUBLISHED", "HIDDEN", "FLAGGED"}
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		if th.Name != name {
			t.Fatalf("GetTheme(%q).Name = %q", name, th.Name)
		}
		for _, s := range statuses {
			if th.StatusColors[s] == "" {
				t.Fatalf("theme %s has no color for %s", name, s)
			}
		}
	}
}

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	if len(names) != 3 {
		t.Fatalf("ThemeNames() returned %d names, want 3", len(names))
	}
	if names[0] != "Nightfox" || names[1] != "Kanagawa" || names[2] != "Slate" {
		t.Fatalf("ThemeNames() = %v, want [Nightfox Kanagawa Slate]", names)
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Nightfox"); got != "Kanagawa" {
		t.Fatalf("NextTheme(Nightfox) = %q, want Kanagawa", got)
	}
	if got := NextTheme("Slate"); got != "Nightfox" {
		t.Fatalf("NextTheme(Slate) = %q, want Nightfox", got)
	}
	if got := NextTheme("unknown"); got != "Nightfox" {
		t.Fatalf("NextTheme(unknown) = %q, want Nightfox", got)
	}
}

func TestGetTheme_FallsBack(t *testing.T) {
	if got := GetTheme("Dracula").Name; got != "Nightfox" {
		t.Fatalf("GetTheme(Dracula).Name = %q, want Nightfox", got)
	}
}
