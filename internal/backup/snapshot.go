// Package backup captures every planner collection in one document and
// persists it to the key-value store, to an encrypted file, or to
// S3-compatible storage.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dukerupert/planner/internal/kv"
	"github.com/dukerupert/planner/internal/model"
	"github.com/dukerupert/planner/internal/store"
)

// SnapshotKey is the key-value entry holding the latest snapshot.
const SnapshotKey = "event_planner_seed"

var ErrNoSnapshot = errors.New("no snapshot")

type Snapshot struct {
	Events      []model.Event      `json:"events"`
	Guests      []model.Guest      `json:"guests"`
	Tasks       []model.Task       `json:"tasks"`
	Expenses    []model.Expense    `json:"expenses"`
	Feedbacks   []model.Feedback   `json:"feedbacks"`
	Invitations []model.Invitation `json:"invitations"`
	GeneratedAt time.Time          `json:"generatedAt"`
}

// Take reads all collections. Each batch is held until every collection
// has been read, so the snapshot is consistent. It fails if any collection
// could not be read.
func Take(ctx context.Context, s *store.Stores, now time.Time) (Snapshot, error) {
	eb := s.Events.Begin(ctx)
	defer eb.Release()
	gb := s.Guests.Begin(ctx)
	defer gb.Release()
	tb := s.Tasks.Begin(ctx)
	defer tb.Release()
	xb := s.Expenses.Begin(ctx)
	defer xb.Release()
	fb := s.Feedbacks.Begin(ctx)
	defer fb.Release()
	ib := s.Invitations.Begin(ctx)
	defer ib.Release()

	if err := errors.Join(eb.Err(), gb.Err(), tb.Err(), xb.Err(), fb.Err(), ib.Err()); err != nil {
		return Snapshot{}, fmt.Errorf("take snapshot: %w", err)
	}
	return Snapshot{
		Events:      nonNil(eb.Items()),
		Guests:      nonNil(gb.Items()),
		Tasks:       nonNil(tb.Items()),
		Expenses:    nonNil(xb.Items()),
		Feedbacks:   nonNil(fb.Items()),
		Invitations: nonNil(ib.Items()),
		GeneratedAt: now.UTC(),
	}, nil
}

func nonNil[T any](items []T) []T {
	return append(make([]T, 0, len(items)), items...)
}

// Restore replaces every collection with the snapshot's contents.
func Restore(ctx context.Context, s *store.Stores, snap Snapshot) error {
	eb := s.Events.Begin(ctx)
	defer eb.Release()
	gb := s.Guests.Begin(ctx)
	defer gb.Release()
	tb := s.Tasks.Begin(ctx)
	defer tb.Release()
	xb := s.Expenses.Begin(ctx)
	defer xb.Release()
	fb := s.Feedbacks.Begin(ctx)
	defer fb.Release()
	ib := s.Invitations.Begin(ctx)
	defer ib.Release()

	steps := []struct {
		name    string
		replace func() error
		commit  func(context.Context) error
	}{
		{store.KeyEvents, func() error { return eb.Replace(snap.Events) }, eb.Commit},
		{store.KeyGuests, func() error { return gb.Replace(snap.Guests) }, gb.Commit},
		{store.KeyTasks, func() error { return tb.Replace(snap.Tasks) }, tb.Commit},
		{store.KeyExpenses, func() error { return xb.Replace(snap.Expenses) }, xb.Commit},
		{store.KeyFeedbacks, func() error { return fb.Replace(snap.Feedbacks) }, fb.Commit},
		{store.KeyInvitations, func() error { return ib.Replace(snap.Invitations) }, ib.Commit},
	}
	for _, st := range steps {
		if err := st.replace(); err != nil {
			return fmt.Errorf("restore %s: %w", st.name, err)
		}
	}
	for _, st := range steps {
		if err := st.commit(ctx); err != nil {
			return fmt.Errorf("restore %s: %w", st.name, err)
		}
	}
	return nil
}

func Save(ctx context.Context, kvs kv.Store, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := kvs.Set(ctx, SnapshotKey, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func Load(ctx context.Context, kvs kv.Store) (Snapshot, error) {
	data, err := kvs.Get(ctx, SnapshotKey)
	if errors.Is(err, kv.ErrNotFound) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Seal encodes and encrypts the snapshot with a fresh salt.
func Seal(snap Snapshot, passphrase string) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	return Encrypt(data, passphrase, salt)
}

func Open(data []byte, passphrase string) (Snapshot, error) {
	plain, err := Decrypt(data, passphrase)
	if err != nil {
		return Snapshot{}, err
	}
	return decode(plain)
}

func WriteEncrypted(path string, snap Snapshot, passphrase string) error {
	sealed, err := Seal(snap, passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, sealed, 0600); err != nil {
		return fmt.Errorf("write encrypted file: %w", err)
	}
	return nil
}

func ReadEncrypted(path, passphrase string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read encrypted file: %w", err)
	}
	return Open(data, passphrase)
}
