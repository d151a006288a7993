// Package store persists each entity collection as one JSON array under a
// well-known key of a kv.Store and serializes every read-modify-write of a
// collection through that collection's mutex.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/planner/internal/changefeed"
	"github.com/dukerupert/planner/internal/kv"
	"github.com/dukerupert/planner/internal/metrics"
	"github.com/dukerupert/planner/internal/model"
)

var (
	// ErrDuplicateID is returned when an explicit id override collides with an existing record.
	ErrDuplicateID = errors.New("store: duplicate id")
	// ErrInvalidPatch is returned when a JSON patch is not an object.
	ErrInvalidPatch = errors.New("store: patch must be a JSON object")
)

// Entity is satisfied by the pointer type of every persisted record.
type Entity[T any] interface {
	*T
	GetID() int64
	SetID(int64)
}

// stamper is implemented by records that carry CreatedAt/UpdatedAt.
type stamper interface {
	Stamp(now time.Time)
}

type Options struct {
	Logger *slog.Logger
	Hub    *changefeed.Hub
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Repository is CRUD over one named collection.
type Repository[T any, P Entity[T]] struct {
	mu     sync.Mutex
	kv     kv.Store
	key    string
	logger *slog.Logger
	hub    *changefeed.Hub
	now    func() time.Time
}

func NewRepository[T any, P Entity[T]](store kv.Store, key string, opts Options) *Repository[T, P] {
	opts = opts.withDefaults()
	return &Repository[T, P]{
		kv:     store,
		key:    key,
		logger: opts.Logger.With("collection", key),
		hub:    opts.Hub,
		now:    opts.Now,
	}
}

// Key returns the kv key the collection is stored under.
func (r *Repository[T, P]) Key() string {
	return r.key
}

// load reads the collection. A missing key or a corrupt document yields an
// empty collection. An unavailable store also yields an empty collection,
// but the read error is returned so writers can refuse to overwrite data
// they never saw.
func (r *Repository[T, P]) load(ctx context.Context) ([]T, error) {
	data, err := r.kv.Get(ctx, r.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Warn("store unavailable, using empty collection", "error", err)
		metrics.StoreReadFailure(r.key, "unavailable")
		return nil, fmt.Errorf("read %s: %w: %w", r.key, model.ErrStoreUnavailable, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		r.logger.Warn("corrupt collection, using empty collection", "error", err)
		metrics.StoreReadFailure(r.key, "corrupt")
		return nil, nil
	}
	return items, nil
}

func (r *Repository[T, P]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.key, err)
	}
	if err := r.kv.Set(ctx, r.key, data); err != nil {
		return fmt.Errorf("write %s: %w", r.key, err)
	}
	metrics.StoreWrite(r.key)
	return nil
}

// List returns every record. It never fails; see load.
func (r *Repository[T, P]) List(ctx context.Context) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, _ := r.load(ctx)
	return items
}

func (r *Repository[T, P]) GetByID(ctx context.Context, id int64) (T, bool) {
	b := r.Begin(ctx)
	defer b.Release()
	return b.Find(id)
}

// Create assigns the next id (or idOverride, for bulk seeders) and persists.
func (r *Repository[T, P]) Create(ctx context.Context, rec T, idOverride ...int64) (T, error) {
	b := r.Begin(ctx)
	defer b.Release()

	var override int64
	if len(idOverride) > 0 {
		override = idOverride[0]
	}
	created, err := b.Insert(rec, override)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := b.Commit(ctx); err != nil {
		var zero T
		return zero, err
	}
	return created, nil
}

// Update applies fn to the record with the given id. A missing id is a
// logged no-op and reports false.
func (r *Repository[T, P]) Update(ctx context.Context, id int64, fn func(P)) (bool, error) {
	b := r.Begin(ctx)
	defer b.Release()

	ok, err := b.Update(id, fn)
	if err != nil || !ok {
		if err == nil && b.loadErr != nil {
			return false, b.loadErr
		}
		if err == nil {
			r.logger.Info("update skipped, record not found", "id", id)
		}
		return false, err
	}
	return true, b.Commit(ctx)
}

// Patch shallow-merges the top-level keys of a JSON object into the record.
// The id key is ignored.
func (r *Repository[T, P]) Patch(ctx context.Context, id int64, patch []byte) (bool, error) {
	b := r.Begin(ctx)
	defer b.Release()

	ok, err := b.Patch(id, patch)
	if err != nil || !ok {
		if err == nil && b.loadErr != nil {
			return false, b.loadErr
		}
		if err == nil {
			r.logger.Info("patch skipped, record not found", "id", id)
		}
		return false, err
	}
	return true, b.Commit(ctx)
}

// Delete removes the record. Deleting an absent id is a logged no-op.
func (r *Repository[T, P]) Delete(ctx context.Context, id int64) error {
	b := r.Begin(ctx)
	defer b.Release()

	if !b.Delete(id) {
		if b.loadErr != nil {
			return b.loadErr
		}
		r.logger.Info("delete skipped, record not found", "id", id)
		return nil
	}
	return b.Commit(ctx)
}

// Begin locks the collection and loads it into a Batch. The caller must
// call Release; Commit may be called any number of times before that.
// If the store could not be read, the Batch starts empty and Commit fails.
func (r *Repository[T, P]) Begin(ctx context.Context) *Batch[T, P] {
	r.mu.Lock()
	items, err := r.load(ctx)
	return &Batch[T, P]{repo: r, items: items, loadErr: err}
}
