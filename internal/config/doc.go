// Package config loads the marketdesk console configuration.
//
// # Configuration Discovery
//
// Load follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/marketdesk/config.toml
//  3. If the file doesn't exist, use the defaults
//  4. Fields that are missing, empty or zero keep their defaults
//
// # TOML Format
//
//	api_url = "http://127.0.0.1:8088/api/"
//	api_token = ""
//	page_size = 20
//	search_debounce_ms = 300
//	refresh_seconds = 30      # negative disables auto-refresh
//	requests_per_second = 0   # 0 means unlimited
//	log_file = "~/.local/share/marketdesk/marketdesk.log"
//	log_level = "info"
//	metrics_addr = ""         # e.g. "127.0.0.1:9464"
//
// Tilde expansion is applied to the config path and log_file. Command-line
// flags override file values; see cmd/marketdesk.
//
// Missing config files are not an error, so the console runs against a
// local mock backend without any setup.
package config
