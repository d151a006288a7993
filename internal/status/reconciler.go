package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/planner/internal/metrics"
	"github.com/dukerupert/planner/internal/model"
	"github.com/dukerupert/planner/internal/store"
)

const DefaultInterval = time.Second

// Reconciler periodically rewrites event statuses that have drifted from
// the clock.
type Reconciler struct {
	mu       sync.Mutex
	events   *store.EventRepository
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

type Option func(*Reconciler)

func WithInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

func NewReconciler(events *store.EventRepository, opts ...Option) *Reconciler {
	r := &Reconciler{
		events:   events,
		interval: DefaultInterval,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sweep recomputes every event's status and writes the collection back
// only when at least one status changed. It returns the number of events
// whose status changed.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	started := time.Now()
	now := r.now()

	b := r.events.Begin(ctx)
	defer b.Release()

	type change struct {
		id   int64
		next model.EventStatus
	}
	var changes []change
	for _, e := range b.Items() {
		if next, changed := Next(e, now); changed {
			changes = append(changes, change{id: e.ID, next: next})
		}
	}
	if len(changes) == 0 {
		metrics.Sweep("unchanged", time.Since(started))
		return 0, nil
	}

	for _, c := range changes {
		b.Update(c.id, func(e *model.Event) { e.Status = c.next })
	}
	if err := b.Commit(ctx); err != nil {
		metrics.Sweep("error", time.Since(started))
		return 0, err
	}

	for _, c := range changes {
		metrics.StatusChange(string(c.next))
	}
	metrics.Sweep("changed", time.Since(started))
	r.logger.Debug("reconciled event statuses", "changed", len(changes))
	return len(changes), nil
}

// Start runs an immediate sweep and then one per interval until ctx is
// cancelled or Stop is called. Start is a no-op while the loop is running.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel, r.done = cancel, done
	r.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.tick(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight sweep to finish. The
// reconciler can be started again afterwards.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (r *Reconciler) tick(ctx context.Context) {
	if _, err := r.Sweep(ctx); err != nil {
		r.logger.Error("status sweep failed", "error", err)
	}
}
