// Package ui provides the terminal interface for the marketdesk admin console.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. The root Model reads the active page's
// collection snapshot on every tick and renders it; all writes go through
// the mounted admin.Session (search, sort, paging, filters, columns, forms),
// which funnels them into the collection synchroniser. The UI never talks to
// the API directly.
//
// # Package Structure
//
//   - app.go: Model, Console interface, message loop and Run
//   - list.go: entity table, address bar, list keys and status line
//   - header.go: logo, page tabs, connection status and command bar
//   - modal.go: filter panel, column picker and delete confirmation
//   - form_modal.go: create/edit form and the async submit/delete commands
//   - logs.go: console log viewer backed by logtail
//   - help.go, keys.go: key bindings and the help overlay
//   - theme.go, style_helpers.go, strings.go: colors and rendering helpers
//
// # Views
//
//   - List View: one entity page at a time; Tab cycles pages and each page
//     keeps its own address-bar location
//   - Logs View: the console's own JSON log file, filtered by level
//
// # Event Flow
//
//  1. Run() creates the Model around a Console (the app workspace)
//  2. A tick re-reads Console.Active().State() and clamps the selection
//  3. Keys call Session methods; the synchroniser debounces and fetches
//  4. Submit and delete run as commands; their result messages set a flash
//  5. Context cancellation ends the program cleanly
//
// # Key Bindings
//
//   - /: Search (debounced as you type)
//   - 1-9: Sort by the n-th visible column (asc, desc, off)
//   - [ / ]: Previous/next page of rows; + / -: page size
//   - f / x: Quick select filter / checkbox filter; F: filter panel; X: clear
//   - c: Column visibility
//   - n: New record; Enter/e: edit; D: delete
//   - Tab / Shift+Tab: Next/previous entity page
//   - L: Console log; Space: follow; v: level; n/N: matches
//   - T: Cycle theme; ?: help; q or Ctrl+C: quit
package ui
