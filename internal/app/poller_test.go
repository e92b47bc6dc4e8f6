package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/marketdesk/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

func TestNextDelay(t *testing.T) {
	if got := nextDelay(0, time.Minute); got != time.Minute {
		t.Errorf("nextDelay(0) = %v, want interval", got)
	}
	if got := nextDelay(1, time.Minute); got != 4*time.Second {
		t.Errorf("nextDelay(1) = %v, want 4s", got)
	}
	if got := nextDelay(9, time.Minute); got != maxBackoff {
		t.Errorf("nextDelay(9) = %v, want %v", got, maxBackoff)
	}
}

type fakeRefresher struct {
	mu      sync.Mutex
	snap    state.Snapshot
	editing string
	reloads atomic.Int32
}

func (f *fakeRefresher) State() state.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeRefresher) Reload() { f.reloads.Add(1) }

func (f *fakeRefresher) EditingID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editing
}

func TestPoll(t *testing.T) {
	tests := []struct {
		name       string
		snap       state.Snapshot
		editing    string
		wantReload bool
		wantDelay  time.Duration
	}{
		{"settled reloads", state.Snapshot{Phase: state.PhaseSettled}, "", true, time.Minute},
		{"fetching skips", state.Snapshot{Phase: state.PhaseFetching}, "", false, time.Minute},
		{"debouncing skips", state.Snapshot{Phase: state.PhasePendingDebounce}, "", false, time.Minute},
		{"editing skips", state.Snapshot{Phase: state.PhaseSettled}, "b-1001", false, time.Minute},
		{"failing backs off", state.Snapshot{Phase: state.PhaseSettled, ConsecutiveFailures: 2}, "", true, 8 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRefresher{snap: tt.snap, editing: tt.editing}
			got := poll(f, time.Minute, nil)
			if got != tt.wantDelay {
				t.Errorf("delay = %v, want %v", got, tt.wantDelay)
			}
			if reloaded := f.reloads.Load() == 1; reloaded != tt.wantReload {
				t.Errorf("reloaded = %v, want %v", reloaded, tt.wantReload)
			}
		})
	}
}

func TestPoll_NilRefresher(t *testing.T) {
	if got := poll(nil, time.Second, nil); got != time.Second {
		t.Errorf("poll(nil) = %v, want 1s", got)
	}
}

func TestStartPoller_ReloadsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeRefresher{snap: state.Snapshot{Phase: state.PhaseSettled}}

	StartPoller(ctx, func() refresher { return f }, 5*time.Millisecond, nil)

	deadline := time.Now().Add(2 * time.Second)
	for f.reloads.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("poller reloaded %d times, want at least 3", f.reloads.Load())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	time.Sleep(20 * time.Millisecond)
	n := f.reloads.Load()
	time.Sleep(30 * time.Millisecond)
	if f.reloads.Load() != n {
		t.Fatalf("poller kept reloading after cancel")
	}
}
