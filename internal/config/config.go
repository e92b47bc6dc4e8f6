package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the console settings.
type Config struct {
	APIURL            string
	APIToken          string
	PageSize          int
	SearchDebounce    time.Duration
	RefreshInterval   time.Duration
	RequestsPerSecond float64
	LogFile           string
	LogLevel          slog.Level
	// MetricsAddr enables the Prometheus endpoint when non-empty.
	MetricsAddr string
}

const (
	defaultConfigPath     = "~/.config/marketdesk/config.toml"
	defaultLogFile        = "~/.local/share/marketdesk/marketdesk.log"
	defaultAPIURL         = "http://127.0.0.1:8088/api/"
	defaultPageSize       = 20
	defaultSearchDebounce = 300 * time.Millisecond
	defaultRefresh        = 30 * time.Second
	maxPageSize           = 200
)

// Default returns the built-in settings.
func Default() Config {
	return Config{
		APIURL:          defaultAPIURL,
		PageSize:        defaultPageSize,
		SearchDebounce:  defaultSearchDebounce,
		RefreshInterval: defaultRefresh,
		LogFile:         mustExpand(defaultLogFile),
		LogLevel:        slog.LevelInfo,
	}
}

// Load locates and parses the config file, falling back to defaults when it
// is missing. Empty or zero fields keep their defaults.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL            string  `toml:"api_url"`
		APIToken          string  `toml:"api_token"`
		PageSize          int     `toml:"page_size"`
		SearchDebounceMS  int     `toml:"search_debounce_ms"`
		RefreshSeconds    int     `toml:"refresh_seconds"`
		RequestsPerSecond float64 `toml:"requests_per_second"`
		LogFile           string  `toml:"log_file"`
		LogLevel          string  `toml:"log_level"`
		MetricsAddr       string  `toml:"metrics_addr"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	cfg.APIToken = strings.TrimSpace(raw.APIToken)
	if raw.PageSize > 0 {
		cfg.PageSize = min(raw.PageSize, maxPageSize)
	}
	if raw.SearchDebounceMS > 0 {
		cfg.SearchDebounce = time.Duration(raw.SearchDebounceMS) * time.Millisecond
	}
	if raw.RefreshSeconds < 0 {
		cfg.RefreshInterval = 0
	} else if raw.RefreshSeconds > 0 {
		cfg.RefreshInterval = time.Duration(raw.RefreshSeconds) * time.Second
	}
	if raw.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = raw.RequestsPerSecond
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		level, err := ParseLevel(v)
		if err != nil {
			return Config{}, err
		}
		cfg.LogLevel = level
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	return cfg, nil
}

// ParseLevel maps debug/info/warn/error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log_level %q: %w", s, err)
	}
	return level, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
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
