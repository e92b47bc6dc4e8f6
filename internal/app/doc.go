// Package app is the composition root of the marketdesk console.
//
// # Startup
//
// Run performs these steps:
//
//  1. Load ~/.config/marketdesk/config.toml and apply command-line overrides
//  2. Open the JSON log file (the terminal belongs to the TUI)
//  3. Create the REST client and a Prometheus registry
//  4. Build a Workspace and mount the first page
//  5. Start the auto-refresh poller and, when configured, the metrics server
//  6. Run the TUI and block until the user quits or the context is cancelled
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()        settings + overrides
//	       ├─────> api.NewClient()      REST transport
//	       ├─────> NewWorkspace()       address bar + prefs
//	       │         └─> admin.Mount()  synchroniser + controllers
//	       ├─────> StartPoller()        periodic Reload of the active page
//	       ├─────> serveMetrics()       /metrics (errgroup)
//	       └─────> ui.Run()             Bubble Tea program (errgroup)
//
// # Workspace
//
// One page is mounted at a time. Switching pages remembers the outgoing
// page's address-bar query in prefs and restores the incoming page's, so
// each page reopens with the filters, sort and paging it was left with.
// Column visibility changes are saved as they happen.
//
// # Polling Behavior
//
// The poller reloads the active page every refresh_seconds. It skips a
// round while a fetch is in flight, while a search is waiting on its
// debounce, or while a row is being edited. After failed fetches it
// retries sooner and backs off exponentially:
//
//	Failures  Delay
//	0         refresh interval
//	1         4s
//	2         8s
//	3         16s
//	4+        30s (max)
//
// # Shutdown
//
// Quitting the TUI cancels the shared context, which stops the poller and
// shuts the metrics server down. Deferred cleanup saves preferences and
// closes the log file.
package app
