// Package ratelimit provides advisory admission control for outgoing calls:
// a keyed token bucket with lazy refill. Callers that are denied decide
// themselves whether to retry, drop or report backpressure.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidCost is returned when a cost falls outside [1, capacity].
var ErrInvalidCost = errors.New("ratelimit: invalid cost")

// Result is the outcome of a consumption attempt.
type Result struct {
	Granted bool
	// Remaining is the number of tokens left in the entry after the attempt.
	Remaining int
}

// Option configures a TokenBucket or Governor.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// TokenBucket keeps one entry per key. Entries are created full on first use
// and refilled on access: every elapsed interval adds one token, up to the
// capacity.
type TokenBucket[K comparable] struct {
	capacity int
	interval time.Duration
	now      func() time.Time

	// resetMu is held shared by consumers and exclusively by Reset, so no
	// entry is read while the table is being cleared.
	resetMu sync.RWMutex

	// mu guards the entries map itself; it is only held for lookup/insert.
	mu      sync.Mutex
	entries map[K]*entry
}

type entry struct {
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

// NewTokenBucket creates a bucket of the given capacity refilling one token
// per interval.
func NewTokenBucket[K comparable](capacity int, interval time.Duration, opts ...Option) (*TokenBucket[K], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("ratelimit: capacity must be positive, got %d", capacity)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("ratelimit: interval must be positive, got %s", interval)
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TokenBucket[K]{
		capacity: capacity,
		interval: interval,
		now:      o.now,
		entries:  make(map[K]*entry),
	}, nil
}

// Capacity returns the maximum number of tokens per key.
func (b *TokenBucket[K]) Capacity() int { return b.capacity }

// Interval returns the time needed to regain one token.
func (b *TokenBucket[K]) Interval() time.Duration { return b.interval }

// TryConsume is TryConsumeN with a cost of one.
func (b *TokenBucket[K]) TryConsume(key K) Result {
	// A cost of one is always within [1, capacity].
	res, _ := b.TryConsumeN(key, 1)
	return res
}

// TryConsumeN takes cost tokens from key's entry if enough are available.
// A denied attempt leaves the entry untouched apart from refill. A cost
// outside [1, capacity] fails with ErrInvalidCost before any state is
// touched.
func (b *TokenBucket[K]) TryConsumeN(key K, cost int) (Result, error) {
	if cost < 1 || cost > b.capacity {
		return Result{}, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidCost, cost, b.capacity)
	}

	b.resetMu.RLock()
	defer b.resetMu.RUnlock()

	e := b.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refill(b.now(), b.interval, b.capacity)
	if e.tokens < cost {
		return Result{Granted: false, Remaining: e.tokens}, nil
	}
	e.tokens -= cost
	return Result{Granted: true, Remaining: e.tokens}, nil
}

// Reset drops every entry. Keys start full again on next use.
func (b *TokenBucket[K]) Reset() {
	b.resetMu.Lock()
	defer b.resetMu.Unlock()

	b.mu.Lock()
	b.entries = make(map[K]*entry)
	b.mu.Unlock()
}

// Len returns the number of live entries.
func (b *TokenBucket[K]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Snapshot reports the tokens each key would have right now. It does not
// advance any entry's refill clock.
func (b *TokenBucket[K]) Snapshot() map[K]int {
	b.resetMu.RLock()
	defer b.resetMu.RUnlock()

	b.mu.Lock()
	entries := make(map[K]*entry, len(b.entries))
	for k, e := range b.entries {
		entries[k] = e
	}
	b.mu.Unlock()

	now := b.now()
	out := make(map[K]int, len(entries))
	for k, e := range entries {
		e.mu.Lock()
		view := entry{tokens: e.tokens, lastRefill: e.lastRefill}
		e.mu.Unlock()
		view.refill(now, b.interval, b.capacity)
		out[k] = view.tokens
	}
	return out
}

func (b *TokenBucket[K]) entry(key K) *entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		e = &entry{tokens: b.capacity, lastRefill: b.now()}
		b.entries[key] = e
	}
	return e
}

// refill adds one token per whole interval elapsed since the last refill,
// clamped to capacity. The remainder of a partial interval is dropped.
func (e *entry) refill(now time.Time, interval time.Duration, capacity int) {
	elapsed := now.Sub(e.lastRefill)
	if elapsed < interval {
		return
	}
	add := elapsed / interval
	if add >= time.Duration(capacity-e.tokens) {
		e.tokens = capacity
	} else {
		e.tokens += int(add)
	}
	e.lastRefill = now
}
