package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"canvas/internal/domain"
)

const defaultRefreshInterval = 2 * time.Second

// refresher polls the remote store while the engine is idle, picking up
// changes made by other clients (another MCP session, the HTTP API) and
// emitting shapes:changed so listeners can redraw.
type refresher struct {
	app      *App
	interval time.Duration

	mu       sync.Mutex
	last     string // count + max updatedAt of the last refresh
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newRefresher(app *App, interval time.Duration) *refresher {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &refresher{app: app, interval: interval, stopCh: make(chan struct{})}
}

// Start begins the polling loop. Should be called once.
func (w *refresher) Start(ctx context.Context) {
	w.done = make(chan struct{})
	go w.pollLoop(ctx)
}

// Stop terminates the polling loop and waits for it to exit.
func (w *refresher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	if w.done != nil {
		<-w.done
	}
}

func (w *refresher) pollLoop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// check refreshes the cache once and reports whether the store changed
// since the previous successful check.
func (w *refresher) check(ctx context.Context) bool {
	refreshed, err := w.app.engine.Refresh(ctx)
	if err != nil {
		w.app.log.Warn("refresh failed", zap.Error(err))
		return false
	}
	if !refreshed {
		return false
	}

	shapes := w.app.engine.Cache().Snapshot()
	fp := fingerprint(shapes)

	w.mu.Lock()
	changed := w.last != "" && w.last != fp
	w.last = fp
	w.mu.Unlock()

	if changed {
		w.app.emitter.Emit(ctx, "shapes:changed", map[string]any{"shapes": len(shapes)})
	}
	return changed
}

func fingerprint(shapes []domain.Shape) string {
	var latest time.Time
	for _, s := range shapes {
		if s.UpdatedAt.After(latest) {
			latest = s.UpdatedAt
		}
	}
	return fmt.Sprintf("%d:%s", len(shapes), latest.Format(time.RFC3339Nano))
}
