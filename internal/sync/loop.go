package sync

import (
	"context"
	"time"
)

// Start launches the background sync loop. While there are pending
// local changes, the connection is up, no overwrite is latched and
// review mode is off, an automatic sync fires shortly after each local
// change and retries on a fixed interval, so transient failures heal
// without user action. The loop dies with the context.
func (e *Engine) Start(ctx context.Context) {
	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.SyncInterval)
	defer ticker.Stop()
	defer e.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.kick:
			// A local change just happened; give rapid edits a moment
			// to settle before pushing.
			t := time.NewTimer(e.cfg.SyncDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			e.autoSync(ctx)
		case <-ticker.C:
			e.autoSync(ctx)
		}
	}
}

func (e *Engine) autoSync(ctx context.Context) {
	e.mu.Lock()
	eligible := e.state.PendingChanges > 0 &&
		!e.state.OverwriteBlocked &&
		!e.state.ReviewMode &&
		!e.inFlight
	e.mu.Unlock()
	if !eligible || !e.cfg.Probe() {
		return
	}
	e.SyncWithServer(ctx, nil, ModeAuto)
}
