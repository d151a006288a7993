package backup

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/planner/internal/changefeed"
	"github.com/dukerupert/planner/internal/store"
)

const DefaultAutosaveInterval = 2 * time.Second

// Autosaver keeps the snapshot under SnapshotKey current. Changes seen on
// the hub are coalesced and written at most once per interval, plus once
// more on shutdown if anything is still unsaved.
type Autosaver struct {
	stores   *store.Stores
	hub      *changefeed.Hub
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type AutosaveOption func(*Autosaver)

func WithAutosaveInterval(d time.Duration) AutosaveOption {
	return func(a *Autosaver) {
		if d > 0 {
			a.interval = d
		}
	}
}

func WithAutosaveLogger(l *slog.Logger) AutosaveOption {
	return func(a *Autosaver) { a.logger = l }
}

func NewAutosaver(stores *store.Stores, hub *changefeed.Hub, opts ...AutosaveOption) *Autosaver {
	a := &Autosaver{
		stores:   stores,
		hub:      hub,
		interval: DefaultAutosaveInterval,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run saves snapshots until ctx is cancelled. A failed save is logged and
// retried on the next tick.
func (a *Autosaver) Run(ctx context.Context) error {
	sub := a.hub.Subscribe(64)
	defer sub.Close()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			if pending || drain(sub.C) {
				saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				return a.save(saveCtx)
			}
			return nil
		case _, ok := <-sub.C:
			if !ok {
				return nil
			}
			pending = true
		case <-ticker.C:
			if !pending {
				continue
			}
			if err := a.save(ctx); err != nil {
				a.logger.Warn("autosave failed", "error", err)
				continue
			}
			pending = false
		}
	}
}

func (a *Autosaver) save(ctx context.Context) error {
	snap, err := Take(ctx, a.stores, a.now())
	if err != nil {
		return err
	}
	if err := Save(ctx, a.stores.KV, snap); err != nil {
		return err
	}
	a.logger.Debug("snapshot saved", "key", SnapshotKey, "events", len(snap.Events), "feedbacks", len(snap.Feedbacks))
	return nil
}

// drain empties c and reports whether anything was waiting.
func drain(c <-chan changefeed.Message) bool {
	got := false
	for {
		select {
		case _, ok := <-c:
			if !ok {
				return got
			}
			got = true
		default:
			return got
		}
	}
}
