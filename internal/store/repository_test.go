package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/planner/internal/changefeed"
	"github.com/dukerupert/planner/internal/kv"
	"github.com/dukerupert/planner/internal/kv/kvtest"
	"github.com/dukerupert/planner/internal/model"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupStores(t *testing.T) (*Stores, *kvtest.Counting) {
	t.Helper()
	counting := kvtest.NewCounting(kv.NewMemory())
	return New(counting, Options{Now: func() time.Time { return fixedNow }}), counting
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()

	a, err := s.Tasks.Create(ctx, model.Task{Title: "Book venue"})
	require.NoError(t, err)
	b, err := s.Tasks.Create(ctx, model.Task{Title: "Order cake"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, fixedNow, a.CreatedAt)
	assert.Equal(t, fixedNow, a.UpdatedAt)
}

func TestCreateIDsNotReusedBelowMax(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		_, err := s.Tasks.Create(ctx, model.Task{Title: title})
		require.NoError(t, err)
	}
	require.NoError(t, s.Tasks.Delete(ctx, 2))

	d, err := s.Tasks.Create(ctx, model.Task{Title: "d"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), d.ID)
}

func TestCreateWithIDOverride(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()

	g, err := s.Guests.Create(ctx, model.Guest{Email: "a@example.com"}, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(40), g.ID)

	next, err := s.Guests.Create(ctx, model.Guest{Email: "b@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(41), next.ID)

	_, err = s.Guests.Create(ctx, model.Guest{Email: "c@example.com"}, 40)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Len(t, s.Guests.List(ctx), 2)
}

func TestGetByID(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()

	created, err := s.Expenses.Create(ctx, model.Expense{Name: "Hall", Amount: decimal.NewFromInt(500), Category: model.ExpenseVenue})
	require.NoError(t, err)

	got, ok := s.Expenses.GetByID(ctx, created.ID)
	require.True(t, ok)
	assert.Equal(t, "Hall", got.Name)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(500)))

	_, ok = s.Expenses.GetByID(ctx, 999)
	assert.False(t, ok)
}

func TestUpdate(t *testing.T) {
	s, counting := setupStores(t)
	ctx := context.Background()

	ev, err := s.Events.Create(ctx, model.Event{Name: "Launch", Status: model.EventUpcoming})
	require.NoError(t, err)

	ok, err := s.Events.Update(ctx, ev.ID, func(e *model.Event) {
		e.Name = "Launch party"
		e.ID = 99
	})
	require.NoError(t, err)
	require.True(t, ok)

	got, ok := s.Events.GetByID(ctx, ev.ID)
	require.True(t, ok)
	assert.Equal(t, "Launch party", got.Name)
	assert.Equal(t, ev.ID, got.ID, "update must not change the id")

	writes := counting.Writes(KeyEvents)
	ok, err = s.Events.Update(ctx, 42, func(e *model.Event) { e.Name = "nope" })
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, writes, counting.Writes(KeyEvents), "missing id must not write")
}

func TestPatchShallowMerge(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()

	ev, err := s.Events.Create(ctx, model.Event{
		Name:     "Gala",
		Location: "Hall A",
		Guests:   []int64{1, 2},
		Budget:   decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	ok, err := s.Events.Patch(ctx, ev.ID, []byte(`{"location":"Hall B","budget":2500.5,"id":77}`))
	require.NoError(t, err)
	require.True(t, ok)

	got, _ := s.Events.GetByID(ctx, ev.ID)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, "Gala", got.Name)
	assert.Equal(t, "Hall B", got.Location)
	assert.Equal(t, []int64{1, 2}, got.Guests)
	assert.True(t, got.Budget.Equal(decimal.RequireFromString("2500.5")))

	ok, err = s.Events.Patch(ctx, 500, []byte(`{"name":"x"}`))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Events.Patch(ctx, ev.ID, []byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	s, counting := setupStores(t)
	ctx := context.Background()

	require.NoError(t, s.Feedbacks.Delete(ctx, 12))
	assert.Equal(t, 0, counting.Writes(KeyFeedbacks))
}

func TestListDegradesToEmpty(t *testing.T) {
	ctx := context.Background()

	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, KeyEvents, []byte(`{not json`)))
	s := New(mem, Options{})
	assert.Empty(t, s.Events.List(ctx))

	broken := New(kvtest.Broken{}, Options{})
	assert.Empty(t, broken.Guests.List(ctx))
	_, ok := broken.Guests.GetByID(ctx, 1)
	assert.False(t, ok)

	_, err := broken.Guests.Create(ctx, model.Guest{Email: "x@example.com"})
	assert.ErrorIs(t, err, kvtest.ErrUnavailable)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestWriteAfterFailedReadKeepsData(t *testing.T) {
	ctx := context.Background()
	counting := kvtest.NewCounting(kv.NewMemory())
	flaky := kvtest.NewFlaky(counting)
	s := New(flaky, Options{})

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Events.Create(ctx, model.Event{Name: name})
		require.NoError(t, err)
	}
	writes := counting.Writes(KeyEvents)

	flaky.FailNextGets(1)
	_, err := s.Events.Create(ctx, model.Event{Name: "d"})
	require.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.Equal(t, writes, counting.Writes(KeyEvents), "a failed read must not be followed by a write")

	flaky.FailNextGets(1)
	ok, err := s.Events.Update(ctx, 1, func(e *model.Event) { e.Name = "x" })
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.False(t, ok)

	flaky.FailNextGets(1)
	assert.ErrorIs(t, s.Events.Delete(ctx, 2), model.ErrStoreUnavailable)

	flaky.FailNextGets(1)
	b := s.Events.Begin(ctx)
	require.NoError(t, b.Replace([]model.Event{{ID: 9, Name: "only"}}))
	assert.ErrorIs(t, b.Commit(ctx), model.ErrStoreUnavailable)
	b.Release()

	events := s.Events.List(ctx)
	require.Len(t, events, 3)
	assert.Equal(t, "a", events[0].Name)
	assert.Equal(t, int64(3), events[2].ID)
	assert.Equal(t, writes, counting.Writes(KeyEvents))

	next, err := s.Events.Create(ctx, model.Event{Name: "d"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), next.ID)
}

func TestWritesAreValidated(t *testing.T) {
	s, counting := setupStores(t)
	ctx := context.Background()

	start := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	_, err := s.Events.Create(ctx, model.Event{Name: "Gala", StartDate: &start, EndDate: ptrTime(start.Add(-time.Hour))})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, 0, counting.Writes(KeyEvents))

	ev, err := s.Events.Create(ctx, model.Event{Name: "Gala", StartDate: &start, EndDate: ptrTime(start.Add(time.Hour))})
	require.NoError(t, err)
	ok, err := s.Events.Update(ctx, ev.ID, func(e *model.Event) {
		e.Name = "Renamed"
		e.EndDate = ptrTime(start.Add(-time.Hour))
	})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.False(t, ok)
	got, _ := s.Events.GetByID(ctx, ev.ID)
	assert.Equal(t, "Gala", got.Name, "rejected update must leave the record unchanged")

	fb, err := s.Feedbacks.Create(ctx, model.Feedback{EventID: ev.ID, GuestID: 1, Rating: 4})
	require.NoError(t, err)
	_, err = s.Feedbacks.Patch(ctx, fb.ID, []byte(`{"rating":42}`))
	assert.ErrorIs(t, err, model.ErrValidation)
	gotFb, _ := s.Feedbacks.GetByID(ctx, fb.ID)
	assert.Equal(t, 4, gotFb.Rating)

	x, err := s.Expenses.Create(ctx, model.Expense{Name: "Hall", Amount: decimal.NewFromInt(500), Category: model.ExpenseVenue})
	require.NoError(t, err)
	for _, patch := range []string{`{"amount":-50}`, `{"category":"Bogus"}`} {
		_, err = s.Expenses.Patch(ctx, x.ID, []byte(patch))
		assert.ErrorIs(t, err, model.ErrValidation, patch)
	}
	gotX, _ := s.Expenses.GetByID(ctx, x.ID)
	assert.True(t, gotX.Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, model.ExpenseVenue, gotX.Category)

	_, err = s.Feedbacks.Create(ctx, model.Feedback{EventID: ev.ID, GuestID: 2, Rating: 0})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Len(t, s.Feedbacks.List(ctx), 1)
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func TestEmptyCollectionPersistsAsArray(t *testing.T) {
	s, counting := setupStores(t)
	ctx := context.Background()

	inv, err := s.Invitations.Create(ctx, model.Invitation{EventID: 1, GuestID: 1})
	require.NoError(t, err)
	require.NoError(t, s.Invitations.Delete(ctx, inv.ID))

	raw, err := counting.Get(ctx, KeyInvitations)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestBatchCommitOnlyWhenDirty(t *testing.T) {
	s, counting := setupStores(t)
	ctx := context.Background()

	b := s.Tasks.Begin(ctx)
	require.NoError(t, b.Commit(ctx))
	b.Release()
	assert.Equal(t, 0, counting.Writes(KeyTasks))

	b = s.Tasks.Begin(ctx)
	_, err := b.Insert(model.Task{EventID: 1, Title: "a"}, 0)
	require.NoError(t, err)
	_, err = b.Insert(model.Task{EventID: 2, Title: "b"}, 0)
	require.NoError(t, err)
	_, err = b.Insert(model.Task{EventID: 1, Title: "c"}, 0)
	require.NoError(t, err)
	require.NoError(t, b.Commit(ctx))
	require.NoError(t, b.Commit(ctx))
	b.Release()
	b.Release()
	assert.Equal(t, 1, counting.Writes(KeyTasks))

	b = s.Tasks.Begin(ctx)
	removed := b.DeleteWhere(func(t model.Task) bool { return t.EventID == 1 })
	require.NoError(t, b.Commit(ctx))
	b.Release()
	assert.ElementsMatch(t, []int64{1, 3}, removed)
	assert.Len(t, s.Tasks.List(ctx), 1)
}

func TestReleaseDiscardsUncommitted(t *testing.T) {
	s, counting := setupStores(t)
	ctx := context.Background()

	b := s.Guests.Begin(ctx)
	_, err := b.Insert(model.Guest{Email: "a@example.com"}, 0)
	require.NoError(t, err)
	b.Release()

	assert.Empty(t, s.Guests.List(ctx))
	assert.Equal(t, 0, counting.Writes(KeyGuests))
}

func TestWritesPublishChanges(t *testing.T) {
	hub := changefeed.NewHub(nil)
	sub := hub.Subscribe(8)
	defer sub.Close()

	s := New(kv.NewMemory(), Options{Hub: hub})
	ctx := context.Background()

	g, err := s.Guests.Create(ctx, model.Guest{Email: "a@example.com"})
	require.NoError(t, err)
	require.NoError(t, s.Guests.Delete(ctx, g.ID))

	first := <-sub.C
	second := <-sub.C
	assert.Equal(t, "guests_created", first.Type)
	assert.Equal(t, "guests_deleted", second.Type)
	assert.Equal(t, g.ID, second.ID)
}

func TestConcurrentCreatesKeepUniqueIDs(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()

	const n = 50
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := s.Feedbacks.Create(ctx, model.Feedback{Rating: 5})
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	seen := make(map[int64]bool)
	for _, f := range s.Feedbacks.List(ctx) {
		assert.False(t, seen[f.ID], "duplicate id %d", f.ID)
		seen[f.ID] = true
	}
	assert.Len(t, seen, n)
}

func TestBatchReplaceKeepsRecordsAsGiven(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()
	_, err := s.Tasks.Create(ctx, model.Task{Title: "old"})
	require.NoError(t, err)

	created := fixedNow.Add(-48 * time.Hour)
	b := s.Tasks.Begin(ctx)
	require.NoError(t, b.Replace([]model.Task{{ID: 9, Title: "restored", CreatedAt: created, UpdatedAt: created}}))
	require.NoError(t, b.Commit(ctx))
	b.Release()

	tasks := s.Tasks.List(ctx)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(9), tasks[0].ID)
	assert.Equal(t, created, tasks[0].UpdatedAt)

	b = s.Tasks.Begin(ctx)
	defer b.Release()
	err = b.Replace([]model.Task{{ID: 1}, {ID: 1}})
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, int64(9), b.Items()[0].ID)
}
