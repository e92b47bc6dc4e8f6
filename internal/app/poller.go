package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/five82/marketdesk/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	// retryBase is the first retry delay after a failed fetch.
	retryBase  = 2 * time.Second
	maxBackoff = 30 * time.Second
)

// refresher is the part of a mounted page the poller drives.
type refresher interface {
	State() state.Snapshot
	Reload()
	EditingID() string
}

// StartPoller launches a background goroutine that reloads the page
// returned by active at a fixed cadence. After failures it retries sooner
// and backs off exponentially. It returns immediately.
func StartPoller(ctx context.Context, active func() refresher, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			timer.Reset(poll(active(), interval, logger))
		}
	}()
}

// poll reloads r unless it is busy or being edited and returns the delay
// before the next poll.
func poll(r refresher, interval time.Duration, logger *slog.Logger) time.Duration {
	if r == nil {
		return interval
	}
	snap := r.State()
	delay := nextDelay(snap.ConsecutiveFailures, interval)
	switch {
	case snap.Busy():
	case r.EditingID() != "":
	default:
		if snap.ConsecutiveFailures > 0 {
			logger.Debug("retrying fetch", "query", snap.Query.Encode(), "failures", snap.ConsecutiveFailures, "next", delay)
		}
		r.Reload()
	}
	return delay
}

func nextDelay(failures int, interval time.Duration) time.Duration {
	if failures <= 0 {
		return interval
	}
	return calculateBackoff(failures, retryBase)
}

// calculateBackoff doubles base per failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
