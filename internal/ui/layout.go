package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutTimestampWidth is the minimum width to show the updated timestamp.
	LayoutTimestampWidth = 120
)

// Log display limits.
const (
	// LogBufferLimit is the maximum number of log lines to keep in memory.
	LogBufferLimit = 5000
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = 250 * time.Millisecond

	// LogRefreshInterval is the minimum time between log file reads while following.
	LogRefreshInterval = 2 * time.Second
)
