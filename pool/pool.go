// Package pool implements the Connection Pool component of spec.md §4.3: a
// keyed LRU cache with TTL and disposal hooks, single-flight factory
// coalescing, and async-but-awaitable disposal on Clear.
package pool

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCleared is returned by Acquire when called after Clear and before the
// pool has been explicitly re-enabled.
var ErrCleared = errors.New("pool: cleared")

// Disposer closes a value when it is evicted or expires. Disposal errors
// are logged and swallowed — they must never block the eviction that
// triggered them (spec.md §4.3).
type Disposer[V any] func(v V) error

// Factory constructs a new value for a key that is not currently pooled.
type Factory[V any] func(ctx context.Context) (V, error)

type entry[K comparable, V any] struct {
	key        K
	value      V
	createdAt  time.Time
	lastUsedAt time.Time
	elem       *list.Element
}

// Pool is a generic keyed LRU+TTL cache of live connections (or any other
// disposable resource).
type Pool[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	dispose  Disposer[V]
	log      *zap.Logger

	entries map[K]*entry[K, V]
	order   *list.List // front = most recently used

	inflight map[K]*inflightCall[V]

	cleared  bool
	disposeWG sync.WaitGroup

	now func() time.Time
}

type inflightCall[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Config configures a new Pool.
type Config[V any] struct {
	Capacity int           // default 10
	TTL      time.Duration // default 30 minutes
	Dispose  Disposer[V]
	Logger   *zap.Logger
}

// New creates a Pool with the given configuration, filling in the defaults
// from spec.md §4.3 (capacity 10, TTL 30 minutes) when zero-valued.
func New[K comparable, V any](cfg Config[V]) *Pool[K, V] {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 10
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pool[K, V]{
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		dispose:  cfg.Dispose,
		log:      cfg.Logger,
		entries:  make(map[K]*entry[K, V]),
		order:    list.New(),
		inflight: make(map[K]*inflightCall[V]),
		now:      time.Now,
	}
}

// Acquire returns a live value for key, constructing it via factory if
// absent or TTL-expired. Concurrent Acquire calls for the same key coalesce
// on the in-flight factory call (single-flight) — only one factory ever
// runs per key at a time, and acquires on other keys are never blocked by
// it.
func (p *Pool[K, V]) Acquire(ctx context.Context, key K, factory Factory[V]) (V, error) {
	var zero V

	p.mu.Lock()
	if p.cleared {
		p.mu.Unlock()
		return zero, ErrCleared
	}

	if e, ok := p.entries[key]; ok && !p.expired(e) {
		e.lastUsedAt = p.now()
		p.order.MoveToFront(e.elem)
		v := e.value
		p.mu.Unlock()
		return v, nil
	}

	if e, ok := p.entries[key]; ok && p.expired(e) {
		p.removeLocked(e)
		p.log.Debug("pool: entry expired", zap.Any("key", key))
	}

	if call, ok := p.inflight[key]; ok {
		p.mu.Unlock()
		<-call.done
		return call.value, call.err
	}

	call := &inflightCall[V]{done: make(chan struct{})}
	p.inflight[key] = call
	p.mu.Unlock()

	value, err := factory(ctx)

	p.mu.Lock()
	delete(p.inflight, key)
	call.value, call.err = value, err
	if err == nil {
		p.insertLocked(key, value)
	}
	p.mu.Unlock()
	close(call.done)

	return value, err
}

func (p *Pool[K, V]) expired(e *entry[K, V]) bool {
	return p.now().Sub(e.createdAt) > p.ttl
}

// insertLocked adds a freshly created value, evicting the LRU tail first if
// the pool is at capacity. Caller holds p.mu.
func (p *Pool[K, V]) insertLocked(key K, value V) {
	for len(p.entries) >= p.capacity {
		tail := p.order.Back()
		if tail == nil {
			break
		}
		p.removeLocked(tail.Value.(*entry[K, V]))
	}

	now := p.now()
	e := &entry[K, V]{key: key, value: value, createdAt: now, lastUsedAt: now}
	e.elem = p.order.PushFront(e)
	p.entries[key] = e
}

// removeLocked detaches an entry and disposes its value asynchronously.
// Caller holds p.mu.
func (p *Pool[K, V]) removeLocked(e *entry[K, V]) {
	delete(p.entries, e.key)
	p.order.Remove(e.elem)
	p.disposeAsync(e.value)
}

func (p *Pool[K, V]) disposeAsync(v V) {
	if p.dispose == nil {
		return
	}
	p.disposeWG.Add(1)
	go func() {
		defer p.disposeWG.Done()
		if err := p.dispose(v); err != nil {
			p.log.Warn("pool: disposal error", zap.Error(err))
		}
	}()
}

// Len returns the number of live entries currently pooled.
func (p *Pool[K, V]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Clear evicts everything, awaits all disposals, and rejects Acquire until
// Reopen is called.
func (p *Pool[K, V]) Clear() {
	p.mu.Lock()
	for _, e := range p.entries {
		p.disposeAsync(e.value)
	}
	p.entries = make(map[K]*entry[K, V])
	p.order = list.New()
	p.cleared = true
	p.mu.Unlock()

	p.disposeWG.Wait()
}

// Reopen permits Acquire again after Clear.
func (p *Pool[K, V]) Reopen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared = false
}
