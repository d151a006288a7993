// Package kvtest provides kv.Store wrappers for tests.
package kvtest

import (
	"context"
	"errors"
	"sync"

	"github.com/dukerupert/planner/internal/kv"
)

// Counting wraps a Store and counts writes per key.
type Counting struct {
	kv.Store

	mu     sync.Mutex
	writes map[string]int
}

func NewCounting(inner kv.Store) *Counting {
	if inner == nil {
		inner = kv.NewMemory()
	}
	return &Counting{Store: inner, writes: make(map[string]int)}
}

func (c *Counting) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.writes[key]++
	c.mu.Unlock()
	return c.Store.Set(ctx, key, value)
}

// Writes returns how many times key has been written.
func (c *Counting) Writes(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[key]
}

// ErrUnavailable is returned by Broken for every call.
var ErrUnavailable = errors.New("kvtest: store unavailable")

// Broken fails every operation.
type Broken struct{}

func (Broken) Get(context.Context, string) ([]byte, error) { return nil, ErrUnavailable }
func (Broken) Set(context.Context, string, []byte) error   { return ErrUnavailable }
func (Broken) Remove(context.Context, string) error        { return ErrUnavailable }

// Flaky wraps a Store whose next Get calls fail with ErrUnavailable.
type Flaky struct {
	kv.Store

	mu       sync.Mutex
	failGets int
}

func NewFlaky(inner kv.Store) *Flaky {
	return &Flaky{Store: inner}
}

// FailNextGets makes the next n Get calls fail.
func (f *Flaky) FailNextGets(n int) {
	f.mu.Lock()
	f.failGets = n
	f.mu.Unlock()
}

func (f *Flaky) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failGets > 0
	if fail {
		f.failGets--
	}
	f.mu.Unlock()
	if fail {
		return nil, ErrUnavailable
	}
	return f.Store.Get(ctx, key)
}
