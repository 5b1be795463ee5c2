package editbuffer

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// recorder collects flushed values behind a mutex.
type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) flush(v string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
	return nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func TestBuffer_CoalescesRapidEdits(t *testing.T) {
	rec := &recorder{}
	b := New("todo/steps", "X", 50*time.Millisecond, rec.flush)

	b.Set("XY")
	time.Sleep(10 * time.Millisecond)
	b.Set("XYZ")

	time.Sleep(120 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 flush, got %d: %v", len(got), got)
	}
	if got[0] != "XYZ" {
		t.Errorf("flushed %q, want %q (intermediate values must never be sent)", got[0], "XYZ")
	}
}

func TestBuffer_SetIsVisibleImmediately(t *testing.T) {
	rec := &recorder{}
	b := New("memo", "old", time.Second, rec.flush)

	b.Set("new")
	if got := b.Value(); got != "new" {
		t.Errorf("Value() = %q immediately after Set, want %q", got, "new")
	}
	if len(rec.snapshot()) != 0 {
		t.Error("flush must not run before the debounce delay")
	}
	b.Close()
}

func TestBuffer_SyncSuppressedWhileDirty(t *testing.T) {
	rec := &recorder{}
	b := New("memo", "start", 60*time.Millisecond, rec.flush)

	b.Set("local edit")
	if b.Sync("remote value") {
		t.Error("external sync must be rejected while a write cycle is outstanding")
	}
	if got := b.Value(); got != "local edit" {
		t.Errorf("displayed value = %q, want the local edit", got)
	}

	// After the flush completes the buffer accepts external values again.
	time.Sleep(120 * time.Millisecond)
	if !b.Sync("remote value") {
		t.Error("external sync should be accepted once idle")
	}
	if got := b.Value(); got != "remote value" {
		t.Errorf("after idle sync, value = %q, want %q", got, "remote value")
	}
}

func TestBuffer_SyncSuppressedWhileFlushing(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var flushed []string
	var mu sync.Mutex

	b := New("memo", "start", 20*time.Millisecond, func(v string) error {
		close(started)
		<-release
		mu.Lock()
		flushed = append(flushed, v)
		mu.Unlock()
		return nil
	})

	b.Set("edit")
	<-started

	if b.Sync("remote") {
		t.Error("external sync must be rejected while a flush is in flight")
	}
	close(release)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(flushed) != 1 || flushed[0] != "edit" {
		t.Errorf("flushed %v, want [edit]", flushed)
	}
}

func TestBuffer_EditDuringFlushIsNotLost(t *testing.T) {
	release := make(chan struct{})
	first := true
	rec := &recorder{}

	var b *Buffer[string]
	b = New("memo", "start", 20*time.Millisecond, func(v string) error {
		if first {
			first = false
			<-release
		}
		return rec.flush(v)
	})

	b.Set("one")
	time.Sleep(40 * time.Millisecond) // flush of "one" now blocked
	b.Set("two")
	close(release)

	time.Sleep(100 * time.Millisecond)
	got := rec.snapshot()
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("flushes = %v, want [one two]", got)
	}
}

func TestBuffer_CloseFlushesPendingEdit(t *testing.T) {
	rec := &recorder{}
	b := New("memo", "start", time.Hour, rec.flush)

	b.Set("about to navigate away")
	err := b.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := rec.snapshot()
	if len(got) != 1 || got[0] != "about to navigate away" {
		t.Errorf("Close must flush the pending edit, got %v", got)
	}

	// Closed buffers ignore further edits and never flush again.
	b.Set("late")
	time.Sleep(30 * time.Millisecond)
	if len(rec.snapshot()) != 1 {
		t.Error("no flushes expected after Close")
	}
}

func TestBuffer_CloseWithoutPendingEditDoesNotFlush(t *testing.T) {
	rec := &recorder{}
	b := New("memo", "start", 50*time.Millisecond, rec.flush)

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(rec.snapshot()) != 0 {
		t.Error("Close on an idle buffer must not flush")
	}
}

func TestBuffer_FlushErrorSettlesToIdle(t *testing.T) {
	b := New("memo", "start", 20*time.Millisecond, func(string) error {
		return errors.New("store unavailable")
	})

	b.Set("edit")
	time.Sleep(60 * time.Millisecond)

	if got := b.State(); got != StateIdle {
		t.Errorf("state after failed flush = %v, want idle", got)
	}
	// The local value stays; the next committed sync reconciles.
	if got := b.Value(); got != "edit" {
		t.Errorf("value after failed flush = %q, want the local edit", got)
	}
}

func TestRegistry_FieldsAreIndependent(t *testing.T) {
	stepsRec := &recorder{}
	memoRec := &recorder{}
	r := NewRegistry[string](40 * time.Millisecond)

	steps := r.Buffer("g1/steps", "", stepsRec.flush)
	memo := r.Buffer("g1/memo", "", memoRec.flush)

	steps.Set("step edit")
	// The memo buffer shares neither the timer nor the suppress flag.
	if !memo.Sync("remote memo") {
		t.Error("idle memo buffer must accept external sync while steps buffer is dirty")
	}

	time.Sleep(100 * time.Millisecond)
	if len(stepsRec.snapshot()) != 1 {
		t.Errorf("steps flushes = %v, want one", stepsRec.snapshot())
	}
	if len(memoRec.snapshot()) != 0 {
		t.Error("memo buffer must not flush, it was never edited")
	}
}

func TestRegistry_ReconcilePrefersPendingEdit(t *testing.T) {
	r := NewRegistry[string](time.Hour)
	b := r.Buffer("g1/memo", "committed", func(string) error { return nil })

	if got := r.Reconcile("g1/memo", "committed"); got != "committed" {
		t.Errorf("idle reconcile = %q, want committed value", got)
	}

	b.Set("pending edit")
	if got := r.Reconcile("g1/memo", "stale push"); got != "pending edit" {
		t.Errorf("dirty reconcile = %q, want the pending edit", got)
	}

	// Unknown keys pass the committed value through.
	if got := r.Reconcile("other", "as is"); got != "as is" {
		t.Errorf("reconcile without buffer = %q, want pass-through", got)
	}
	b.Close()
}

func TestRegistry_CloseAllFlushesEverything(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry[string](time.Hour)

	r.Buffer("a", "", rec.flush).Set("a edit")
	r.Buffer("b", "", rec.flush).Set("b edit")

	if err := r.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if got := rec.snapshot(); len(got) != 2 {
		t.Errorf("expected both pending edits flushed, got %v", got)
	}
}

func TestRegistry_DiscardDropsPendingEdit(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry[string](40 * time.Millisecond)

	r.Buffer("g1/steps", "", rec.flush).Set("doomed edit")
	r.Discard("g1/steps")

	time.Sleep(120 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("discarded buffer flushed anyway: %v", got)
	}

	// The key is free for reuse with a fresh seed.
	if got := r.Reconcile("g1/steps", "committed"); got != "committed" {
		t.Errorf("reconcile after discard = %q, want pass-through", got)
	}
}
