// Package prefs persists console preferences in
// ~/.config/marketdesk/prefs.toml: the theme, hidden columns per page and
// the last address-bar query per page.
package prefs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences.
type Prefs struct {
	Theme     string              `toml:"theme"`
	Hidden    map[string][]string `toml:"hidden_columns,omitempty"`
	Locations map[string]string   `toml:"locations,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/marketdesk/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

func defaults() Prefs {
	return Prefs{
		Theme:     defaultTheme,
		Hidden:    map[string][]string{},
		Locations: map[string]string{},
	}
}

// Load reads preferences from path. Unreadable or malformed files yield
// the defaults rather than an error.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return defaults(), nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		// Missing and unreadable files both mean defaults.
		return defaults(), nil
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return defaults(), nil
	}

	var p Prefs
	if err := toml.Unmarshal(bytes, &p); err != nil {
		return defaults(), nil
	}

	if strings.TrimSpace(p.Theme) == "" {
		p.Theme = defaultTheme
	}
	if p.Hidden == nil {
		p.Hidden = map[string][]string{}
	}
	if p.Locations == nil {
		p.Locations = map[string]string{}
	}
	return p, nil
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// HiddenFor returns a copy of the hidden column ids stored for page, or nil
// when none were saved.
func (p Prefs) HiddenFor(page string) []string {
	hidden, ok := p.Hidden[page]
	if !ok {
		return nil
	}
	return slices.Clone(hidden)
}

// SetHidden records the hidden columns for page. An empty list is kept so
// that "everything visible" survives a restart.
func (p *Prefs) SetHidden(page string, hidden []string) {
	if p.Hidden == nil {
		p.Hidden = map[string][]string{}
	}
	p.Hidden[page] = slices.Clone(hidden)
}

// SetLocation records the last raw query for page. Empty removes it.
func (p *Prefs) SetLocation(page, raw string) {
	if p.Locations == nil {
		p.Locations = map[string]string{}
	}
	if raw == "" {
		delete(p.Locations, page)
		return
	}
	p.Locations[page] = raw
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
