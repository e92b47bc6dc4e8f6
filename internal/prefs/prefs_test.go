package prefs

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
	if p.Hidden == nil || p.Locations == nil {
		t.Fatalf("maps should be initialised: %+v", p)
	}
	if got := p.HiddenFor("Buyers"); got != nil {
		t.Fatalf("HiddenFor = %v, want nil", got)
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "marketdesk")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	body := `theme = "Slate"

[hidden_columns]
Sellers = ["rating"]

[locations]
Buyers = "q=acme"
`
	if err := os.WriteFile(filepath.Join(dir, "prefs.toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != "Slate" {
		t.Fatalf("Theme = %q, want Slate", p.Theme)
	}
	if got := p.HiddenFor("Sellers"); !slices.Equal(got, []string{"rating"}) {
		t.Fatalf("HiddenFor(Sellers) = %v", got)
	}
	if p.Locations["Buyers"] != "q=acme" {
		t.Fatalf("Locations = %v", p.Locations)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	p := Prefs{Theme: "Kanagawa"}
	p.SetHidden("Products", []string{"stock", "tags"})
	p.SetHidden("Roles", []string{})
	p.SetLocation("Products", "sort=price%3Aasc")
	p.SetLocation("Roles", "")

	if err := Save(path, p); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Theme != "Kanagawa" {
		t.Fatalf("Theme = %q", loaded.Theme)
	}
	if got := loaded.HiddenFor("Products"); !slices.Equal(got, []string{"stock", "tags"}) {
		t.Fatalf("HiddenFor(Products) = %v", got)
	}
	if got, ok := loaded.Hidden["Roles"]; !ok || len(got) != 0 {
		t.Fatalf("Hidden[Roles] = %#v, %v; want stored empty list", got, ok)
	}
	if loaded.Locations["Products"] != "sort=price%3Aasc" {
		t.Fatalf("Locations = %v", loaded.Locations)
	}
	if _, ok := loaded.Locations["Roles"]; ok {
		t.Fatalf("empty location should not be stored")
	}
}

func TestHiddenFor_ReturnsCopy(t *testing.T) {
	var p Prefs
	p.SetHidden("Buyers", []string{"email"})
	got := p.HiddenFor("Buyers")
	got[0] = "changed"
	if p.HiddenFor("Buyers")[0] != "email" {
		t.Fatalf("HiddenFor leaked internal slice")
	}
}

func TestLoad_EmptyThemeFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte("theme = \"\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
}

func TestLoad_InvalidTOMLFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte("not valid toml {{{\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != defaultTheme || len(p.Hidden) != 0 {
		t.Fatalf("Load = %+v, want defaults", p)
	}
}
