package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/planner/internal/changefeed"
)

// Batch is a locked, in-memory view of one collection. Mutations are kept
// in memory until Commit, which rewrites the whole collection only if
// something changed. A Batch is not safe for use by multiple goroutines.
type Batch[T any, P Entity[T]] struct {
	repo     *Repository[T, P]
	items    []T
	loadErr  error
	pending  []changefeed.Message
	released bool
}

// validator is implemented by records with per-record rules.
type validator interface {
	Validate() error
}

func validate[T any, P Entity[T]](p P) error {
	if v, ok := any(p).(validator); ok {
		return v.Validate()
	}
	return nil
}

// Items returns the loaded records. Callers must not modify the slice; use
// Update instead.
func (b *Batch[T, P]) Items() []T {
	return b.items
}

func (b *Batch[T, P]) index(id int64) int {
	for i := range b.items {
		if P(&b.items[i]).GetID() == id {
			return i
		}
	}
	return -1
}

func (b *Batch[T, P]) Find(id int64) (T, bool) {
	if i := b.index(id); i >= 0 {
		return b.items[i], true
	}
	var zero T
	return zero, false
}

// FindFunc returns the first record matching pred.
func (b *Batch[T, P]) FindFunc(pred func(T) bool) (T, bool) {
	for _, it := range b.items {
		if pred(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Filter returns the records matching pred.
func (b *Batch[T, P]) Filter(pred func(T) bool) []T {
	var out []T
	for _, it := range b.items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}

// NextID is max(existing ids)+1, or 1 for an empty collection.
func (b *Batch[T, P]) NextID() int64 {
	var max int64
	for i := range b.items {
		if id := P(&b.items[i]).GetID(); id > max {
			max = id
		}
	}
	return max + 1
}

// Insert appends rec with a fresh id, or with idOverride when it is positive.
func (b *Batch[T, P]) Insert(rec T, idOverride int64) (T, error) {
	id := b.NextID()
	if idOverride > 0 {
		if b.index(idOverride) >= 0 {
			var zero T
			return zero, fmt.Errorf("insert %s %d: %w", b.repo.key, idOverride, ErrDuplicateID)
		}
		id = idOverride
	}

	p := P(&rec)
	p.SetID(id)
	if err := validate[T](p); err != nil {
		var zero T
		return zero, fmt.Errorf("insert %s: %w", b.repo.key, err)
	}
	if s, ok := any(p).(stamper); ok {
		s.Stamp(b.repo.now())
	}
	b.items = append(b.items, rec)
	b.record(changefeed.ActionCreated, id)
	return rec, nil
}

// Update applies fn to a copy of the record and keeps the result if it is
// valid. The id cannot be changed by fn.
func (b *Batch[T, P]) Update(id int64, fn func(P)) (bool, error) {
	i := b.index(id)
	if i < 0 {
		return false, nil
	}
	next := b.items[i]
	p := P(&next)
	fn(p)
	p.SetID(id)
	if err := validate[T](p); err != nil {
		return false, fmt.Errorf("update %s %d: %w", b.repo.key, id, err)
	}
	if s, ok := any(p).(stamper); ok {
		s.Stamp(b.repo.now())
	}
	b.items[i] = next
	b.record(changefeed.ActionUpdated, id)
	return true, nil
}

// Patch shallow-merges a JSON object into the record.
func (b *Batch[T, P]) Patch(id int64, patch []byte) (bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil || fields == nil {
		return false, ErrInvalidPatch
	}
	i := b.index(id)
	if i < 0 {
		return false, nil
	}

	current, err := json.Marshal(b.items[i])
	if err != nil {
		return false, fmt.Errorf("encode %s %d: %w", b.repo.key, id, err)
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(current, &merged); err != nil {
		return false, fmt.Errorf("decode %s %d: %w", b.repo.key, id, err)
	}
	delete(fields, "id")
	for k, v := range fields {
		merged[k] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return false, fmt.Errorf("encode patch: %w", err)
	}
	var next T
	if err := json.Unmarshal(data, &next); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	p := P(&next)
	p.SetID(id)
	if err := validate[T](p); err != nil {
		return false, fmt.Errorf("patch %s %d: %w", b.repo.key, id, err)
	}
	if s, ok := any(p).(stamper); ok {
		s.Stamp(b.repo.now())
	}
	b.items[i] = next
	b.record(changefeed.ActionUpdated, id)
	return true, nil
}

func (b *Batch[T, P]) Delete(id int64) bool {
	i := b.index(id)
	if i < 0 {
		return false
	}
	b.items = append(b.items[:i:i], b.items[i+1:]...)
	b.record(changefeed.ActionDeleted, id)
	return true
}

// DeleteWhere removes every record matching pred and returns their ids.
func (b *Batch[T, P]) DeleteWhere(pred func(T) bool) []int64 {
	var removed []int64
	kept := b.items[:0:0]
	for _, it := range b.items {
		if pred(it) {
			id := P(&it).GetID()
			removed = append(removed, id)
			b.record(changefeed.ActionDeleted, id)
			continue
		}
		kept = append(kept, it)
	}
	b.items = kept
	return removed
}

// Replace swaps the whole collection for items, which are kept as given.
func (b *Batch[T, P]) Replace(items []T) error {
	seen := make(map[int64]bool, len(items))
	for i := range items {
		id := P(&items[i]).GetID()
		if seen[id] {
			return fmt.Errorf("replace %s %d: %w", b.repo.key, id, ErrDuplicateID)
		}
		seen[id] = true
	}
	for i := range b.items {
		if id := P(&b.items[i]).GetID(); !seen[id] {
			b.record(changefeed.ActionDeleted, id)
		}
	}
	b.items = append([]T(nil), items...)
	for i := range b.items {
		b.record(changefeed.ActionUpdated, P(&b.items[i]).GetID())
	}
	return nil
}

func (b *Batch[T, P]) record(action string, id int64) {
	b.pending = append(b.pending, changefeed.NewMessage(b.repo.key, action, id))
}

// Err returns the error from loading the collection, if the store could not
// be read. Such a Batch starts empty and refuses to commit.
func (b *Batch[T, P]) Err() error {
	return b.loadErr
}

// Dirty reports whether there are uncommitted changes.
func (b *Batch[T, P]) Dirty() bool {
	return len(b.pending) > 0
}

// Commit writes the collection if anything changed since Begin or the last
// Commit, then publishes the change notifications.
func (b *Batch[T, P]) Commit(ctx context.Context) error {
	if !b.Dirty() {
		return nil
	}
	if b.loadErr != nil {
		return fmt.Errorf("write %s: %w", b.repo.key, b.loadErr)
	}
	if err := b.repo.save(ctx, b.items); err != nil {
		return err
	}
	for _, msg := range b.pending {
		b.repo.hub.Publish(msg)
	}
	b.pending = nil
	return nil
}

// Release unlocks the collection. Uncommitted changes are discarded.
// Calling Release more than once is safe.
func (b *Batch[T, P]) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.Dirty() {
		b.repo.logger.Debug("batch released with uncommitted changes", "changes", len(b.pending))
	}
	b.pending = nil
	b.repo.mu.Unlock()
}
