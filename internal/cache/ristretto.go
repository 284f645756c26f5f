package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

var _ Cache[int] = (*RistrettoCache[int])(nil)

// RistrettoCache wraps a ristretto cache. Ristretto cannot enumerate its
// keys, so the keys it currently holds are tracked for prefix invalidation.
// Entries leave the tracked set when ristretto evicts, rejects, expires or
// drops them.
type RistrettoCache[T any] struct {
	c   *ristretto.Cache
	ttl time.Duration

	mu   sync.Mutex
	keys map[string]*ristrettoEntry[T]
}

// ristrettoEntry carries its key so exit callbacks, which only see hashed
// keys, can find the tracked entry.
type ristrettoEntry[T any] struct {
	key  string
	data T
}

func NewRistrettoCache[T any](maxItems int, ttl time.Duration) (*RistrettoCache[T], error) {
	r := &RistrettoCache[T]{ttl: ttl, keys: make(map[string]*ristrettoEntry[T])}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(maxItems) * 10, // number of keys to track frequency of
		MaxCost:     int64(maxItems),
		BufferItems: 64, // number of keys per Get buffer
		// Every entry costs 1, so MaxCost is an item count.
		IgnoreInternalCost: true,
		OnExit:             r.onExit,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	r.c = c
	return r, nil
}

// onExit runs for evicted, rejected, expired, replaced and deleted values.
// A replaced value is no longer the tracked entry and is ignored.
func (r *RistrettoCache[T]) onExit(val interface{}) {
	e, ok := val.(*ristrettoEntry[T])
	if !ok {
		return
	}
	r.forget(e)
}

func (r *RistrettoCache[T]) forget(e *ristrettoEntry[T]) {
	r.mu.Lock()
	if r.keys[e.key] == e {
		delete(r.keys, e.key)
	}
	r.mu.Unlock()
}

func (r *RistrettoCache[T]) Get(_ context.Context, key string) (T, bool) {
	var zero T
	v, ok := r.c.Get(key)
	if !ok {
		return zero, false
	}
	e, ok := v.(*ristrettoEntry[T])
	if !ok {
		return zero, false
	}
	return e.data, true
}

// Set stores data with unit cost. Writes are applied asynchronously by
// ristretto; Set waits for them so a following Get observes the value.
func (r *RistrettoCache[T]) Set(_ context.Context, key string, data T) {
	e := &ristrettoEntry[T]{key: key, data: data}
	r.mu.Lock()
	r.keys[key] = e
	r.mu.Unlock()

	if !r.c.SetWithTTL(key, e, 1, r.ttl) {
		// Dropped before reaching the policy; no callback will follow.
		r.forget(e)
		return
	}
	r.c.Wait()
}

func (r *RistrettoCache[T]) Delete(_ context.Context, key string) {
	r.mu.Lock()
	delete(r.keys, key)
	r.mu.Unlock()

	r.c.Del(key)
}

func (r *RistrettoCache[T]) DeletePrefix(_ context.Context, prefix string) {
	r.mu.Lock()
	var matched []string
	for key := range r.keys {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
			delete(r.keys, key)
		}
	}
	r.mu.Unlock()

	for _, key := range matched {
		r.c.Del(key)
	}
}

func (r *RistrettoCache[T]) tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

func (r *RistrettoCache[T]) Close() {
	r.c.Close()
}
