package editbuffer

import (
	"sync"
	"time"
)

// Registry manages one buffer per editable field, keyed by an opaque string
// (typically "entityID/field"). Each buffer keeps its own timer and suppress
// state; fields never share a flush cycle.
type Registry[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	buffers map[string]*Buffer[T]
}

func NewRegistry[T any](delay time.Duration) *Registry[T] {
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	return &Registry[T]{
		delay:   delay,
		buffers: make(map[string]*Buffer[T]),
	}
}

// Buffer returns the buffer for key, creating and seeding it from the
// authoritative value on first use.
func (r *Registry[T]) Buffer(key string, initial T, flush func(T) error) *Buffer[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buffers[key]
	if !ok {
		b = New(key, initial, r.delay, flush)
		r.buffers[key] = b
	}
	return b
}

func (r *Registry[T]) get(key string) *Buffer[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buffers[key]
}

// Reconcile merges a committed value from the store with any pending local
// edit: with no buffer or an idle one, the committed value wins; while a
// write cycle is outstanding the local value wins.
func (r *Registry[T]) Reconcile(key string, committed T) T {
	b := r.get(key)
	if b == nil {
		return committed
	}
	b.Sync(committed)
	return b.Value()
}

// Close flushes and removes the buffer for key, if any. Called when the
// editing surface for that field goes away.
func (r *Registry[T]) Close(key string) error {
	r.mu.Lock()
	b, ok := r.buffers[key]
	delete(r.buffers, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return b.Close()
}

// Discard removes the buffer for key without flushing, dropping any
// pending edit. Used when the underlying entity is deleted.
func (r *Registry[T]) Discard(key string) {
	r.mu.Lock()
	b, ok := r.buffers[key]
	delete(r.buffers, key)
	r.mu.Unlock()

	if ok {
		b.Discard()
	}
}

// CloseAll flushes every pending edit, for shutdown. The first error is
// returned after all buffers have been closed.
func (r *Registry[T]) CloseAll() error {
	r.mu.Lock()
	buffers := make([]*Buffer[T], 0, len(r.buffers))
	for _, b := range r.buffers {
		buffers = append(buffers, b)
	}
	r.buffers = make(map[string]*Buffer[T])
	r.mu.Unlock()

	var firstErr error
	for _, b := range buffers {
		err := b.Close()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
