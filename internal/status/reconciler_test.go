package status

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/planner/internal/kv/kvtest"
	"github.com/dukerupert/planner/internal/model"
	"github.com/dukerupert/planner/internal/store"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func setupReconciler(t *testing.T, at time.Time) (*Reconciler, *store.Stores, *kvtest.Counting, *testClock) {
	t.Helper()
	clock := &testClock{t: at}
	counting := kvtest.NewCounting(nil)
	stores := store.New(counting, store.Options{Now: clock.Now})
	return NewReconciler(stores.Events, WithClock(clock.Now)), stores, counting, clock
}

func TestSweepLifecycleScenario(t *testing.T) {
	T := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	r, stores, counting, clock := setupReconciler(t, T)
	ctx := context.Background()

	ev, err := stores.Events.Create(ctx, model.Event{
		Name:      "Offsite",
		StartDate: ptr(T.Add(-day)),
		EndDate:   ptr(T.Add(day)),
		Status:    model.EventUpcoming,
	})
	require.NoError(t, err)
	assert.Equal(t, model.EventInProgress, ComputeStatus(ev.StartDate, ev.EndDate, T))

	changed, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	got, _ := stores.Events.GetByID(ctx, ev.ID)
	assert.Equal(t, model.EventInProgress, got.Status)

	clock.Set(T.Add(2 * day))
	changed, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	completed, _ := stores.Events.GetByID(ctx, ev.ID)
	assert.Equal(t, model.EventCompleted, completed.Status)
	assert.Equal(t, T.Add(2*day), completed.UpdatedAt)
	assert.True(t, completed.UpdatedAt.After(got.UpdatedAt))

	writes := counting.Writes(store.KeyEvents)
	clock.Set(T.Add(3 * day))
	changed, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
	assert.Equal(t, writes, counting.Writes(store.KeyEvents))
}

func TestSweepDiffBeforeWrite(t *testing.T) {
	T := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	r, stores, counting, _ := setupReconciler(t, T)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		start := T.Add(time.Duration(i-1) * 72 * time.Hour)
		end := start.Add(time.Hour)
		_, err := stores.Events.Create(ctx, model.Event{StartDate: &start, EndDate: &end})
		require.NoError(t, err)
	}

	_, err := r.Sweep(ctx)
	require.NoError(t, err)
	writes := counting.Writes(store.KeyEvents)

	for i := 0; i < 2; i++ {
		changed, err := r.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, changed)
	}
	assert.Equal(t, writes, counting.Writes(store.KeyEvents), "unchanged sweeps must not write")
}

func TestSweepEmptyCollectionDoesNotWrite(t *testing.T) {
	r, _, counting, _ := setupReconciler(t, time.Now())
	changed, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
	assert.Equal(t, 0, counting.Writes(store.KeyEvents))
}

func TestSweepLeavesCancelled(t *testing.T) {
	T := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	r, stores, counting, clock := setupReconciler(t, T)
	ctx := context.Background()

	ev, err := stores.Events.Create(ctx, model.Event{
		StartDate: ptr(T.Add(-time.Hour)),
		EndDate:   ptr(T.Add(time.Hour)),
		Status:    model.EventCancelled,
	})
	require.NoError(t, err)
	writes := counting.Writes(store.KeyEvents)

	for _, at := range []time.Time{T, T.Add(48 * time.Hour), T.Add(-48 * time.Hour)} {
		clock.Set(at)
		_, err := r.Sweep(ctx)
		require.NoError(t, err)
		got, _ := stores.Events.GetByID(ctx, ev.ID)
		assert.Equal(t, model.EventCancelled, got.Status)
	}
	assert.Equal(t, writes, counting.Writes(store.KeyEvents))
}

func TestSweepDoesNotClobberConcurrentWrites(t *testing.T) {
	T := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	r, stores, _, _ := setupReconciler(t, T)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 20; i++ {
		ev, err := stores.Events.Create(ctx, model.Event{StartDate: ptr(T.Add(-time.Hour))})
		require.NoError(t, err)
		ids = append(ids, ev.ID)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, _ = r.Sweep(ctx)
		}
	}()
	go func() {
		defer wg.Done()
		for _, id := range ids {
			_, err := stores.Events.Update(ctx, id, func(e *model.Event) { e.Name = "renamed" })
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	for _, e := range stores.Events.List(ctx) {
		assert.Equal(t, "renamed", e.Name)
		assert.Equal(t, model.EventInProgress, e.Status)
	}
}

func TestStartStop(t *testing.T) {
	T := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := &testClock{t: T}
	stores := store.New(kvtest.NewCounting(nil), store.Options{Now: clock.Now})
	r := NewReconciler(stores.Events, WithClock(clock.Now), WithInterval(5*time.Millisecond))
	ctx := context.Background()

	ev, err := stores.Events.Create(ctx, model.Event{EndDate: ptr(T.Add(time.Hour)), Status: model.EventUpcoming})
	require.NoError(t, err)

	r.Start(ctx)
	defer r.Stop()

	clock.Set(T.Add(2 * time.Hour))
	require.Eventually(t, func() bool {
		got, _ := stores.Events.GetByID(ctx, ev.ID)
		return got.Status == model.EventCompleted
	}, 2*time.Second, 5*time.Millisecond)

	r.Stop()
	// Stop is idempotent
	r.Stop()
}

func TestStartTwiceThenRestart(t *testing.T) {
	T := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := &testClock{t: T}
	stores := store.New(kvtest.NewCounting(nil), store.Options{Now: clock.Now})
	r := NewReconciler(stores.Events, WithClock(clock.Now), WithInterval(5*time.Millisecond))
	ctx := context.Background()

	ev, err := stores.Events.Create(ctx, model.Event{EndDate: ptr(T.Add(time.Hour)), Status: model.EventUpcoming})
	require.NoError(t, err)

	r.Start(ctx)
	r.Start(ctx)
	assert.NotPanics(t, r.Stop)
	assert.NotPanics(t, r.Stop)

	r.Start(ctx)
	defer r.Stop()
	clock.Set(T.Add(2 * time.Hour))
	require.Eventually(t, func() bool {
		got, _ := stores.Events.GetByID(ctx, ev.ID)
		return got.Status == model.EventCompleted
	}, 2*time.Second, 5*time.Millisecond)
}
