// Package editbuffer provides a debounced write-behind buffer for a single
// editable field. Rapid local edits coalesce into one flush per debounce
// window, and committed values arriving from the store are prevented from
// overwriting an edit that has not been flushed yet.
package editbuffer

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultFlushDelay is the debounce window for coalescing rapid edits,
// matching the 500-600ms save delay the editing surfaces expect.
const DefaultFlushDelay = 500 * time.Millisecond

type State int

const (
	StateIdle     State = iota // no edit pending, external syncs accepted
	StateDirty                 // timer armed, external syncs suppressed
	StateFlushing              // write in flight, still suppressed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDirty:
		return "dirty"
	case StateFlushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// Buffer holds the latest local value of one field and flushes it through
// the provided function after the debounce delay. Only the last value set
// before the timer fires is ever written; intermediate values are dropped.
type Buffer[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	name   string
	value  T
	state  State
	rearm  bool // a Set arrived while a flush was in flight
	closed bool
	timer  *time.Timer
	delay  time.Duration
	flush  func(T) error
}

// New creates a buffer seeded with the authoritative value. Seeding happens
// exactly once, here; later committed values go through Sync.
func New[T any](name string, initial T, delay time.Duration, flush func(T) error) *Buffer[T] {
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	b := &Buffer[T]{
		name:  name,
		value: initial,
		delay: delay,
		flush: flush,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Set records a local edit. The value is visible through Value immediately;
// the flush timer is armed, or reset if already armed.
func (b *Buffer[T]) Set(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.value = v
	switch b.state {
	case StateIdle:
		b.state = StateDirty
		b.timer = time.AfterFunc(b.delay, b.fire)
	case StateDirty:
		b.timer.Reset(b.delay)
	case StateFlushing:
		b.rearm = true
	}
}

// Sync offers a committed value from the store. It is applied only when no
// local write cycle is outstanding; otherwise it is rejected so the pending
// edit is not overwritten. Returns whether the value was applied.
func (b *Buffer[T]) Sync(v T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateIdle || b.closed {
		return false
	}
	b.value = v
	return true
}

// Value returns the current local copy.
func (b *Buffer[T]) Value() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

func (b *Buffer[T]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Buffer[T]) fire() {
	b.mu.Lock()
	if b.closed || b.state != StateDirty {
		b.mu.Unlock()
		return
	}
	b.state = StateFlushing
	v := b.value
	b.mu.Unlock()

	err := b.flush(v)

	b.mu.Lock()
	if err != nil {
		// Accepted risk: the local value still reflects user intent and the
		// next committed sync reconciles. No rollback, no retry here.
		slog.Error("edit buffer flush failed", "buffer", b.name, "error", err)
	}
	if b.rearm {
		b.rearm = false
		b.state = StateDirty
		if !b.closed {
			b.timer = time.AfterFunc(b.delay, b.fire)
		}
	} else {
		b.state = StateIdle
	}
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Discard closes the buffer without flushing. For when the underlying
// entity is deleted and a pending edit has nowhere to go.
func (b *Buffer[T]) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
	}
	for b.state == StateFlushing {
		b.cond.Wait()
	}
	b.state = StateIdle
}

// Close cancels the timer and flushes any pending edit synchronously before
// returning. Cancelling without flushing would silently drop up to one
// debounce window of edits when an editing surface is torn down.
func (b *Buffer[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
	}

	// Let an in-flight flush finish first; it may leave the buffer dirty
	// again if an edit arrived while it ran.
	for b.state == StateFlushing {
		b.cond.Wait()
	}

	if b.state != StateDirty {
		b.mu.Unlock()
		return nil
	}
	v := b.value
	b.state = StateIdle
	b.mu.Unlock()

	err := b.flush(v)
	if err != nil {
		slog.Error("edit buffer close flush failed", "buffer", b.name, "error", err)
	}
	return err
}
