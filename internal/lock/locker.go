// Package lock serializes operations per ledger entity. Keys are always acquired
// in sorted order so two operations touching the same pair of entities cannot
// deadlock.
package lock

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Locker runs fn while holding every key.
type Locker interface {
	WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

func BudgetKey(areaID, period string) string { return fmt.Sprintf("budget:%s:%s", areaID, period) }
func PettyCashKey(period string) string      { return "pettycash:" + period }
func RequisitionKey(id string) string        { return "requisition:" + id }

// normalize sorts and de-duplicates keys.
func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ---------- in-process ----------

type entry struct {
	ch   chan struct{}
	refs int
}

// Local is a keyed mutex for single-instance deployments. Entries are dropped
// once nobody holds or waits on them.
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewLocal() *Local {
	return &Local{entries: make(map[string]*entry)}
}

func (l *Local) WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	keys = normalize(keys)
	held := make([]string, 0, len(keys))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
	}()

	for _, k := range keys {
		if err := l.lock(ctx, k); err != nil {
			return fmt.Errorf("acquire lock %s: %w", k, err)
		}
		held = append(held, k)
	}
	return fn(ctx)
}

func (l *Local) lock(ctx context.Context, key string) error {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.release(key, e)
		return ctx.Err()
	}
}

func (l *Local) unlock(key string) {
	l.mu.Lock()
	e := l.entries[key]
	l.mu.Unlock()
	<-e.ch
	l.release(key, e)
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
