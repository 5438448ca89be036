package connectivity

import (
	"context"
	"sync"
	"testing"
	"time"
)

// scriptProber replays a fixed sequence of probe results, then keeps
// returning the last one.
type scriptProber struct {
	mu     sync.Mutex
	script []bool
	last   bool
	calls  int
}

func (p *scriptProber) Probe(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if len(p.script) > 0 {
		p.last = p.script[0]
		p.script = p.script[1:]
	}
	return p.last
}

func (p *scriptProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// receive reads the next emission or fails the test after a timeout.
func receive(t *testing.T, ch <-chan bool) bool {
	t.Helper()

	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("stream closed unexpectedly")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emission")
	}
	panic("unreachable")
}

func TestWatchEmitsCurrentStateImmediately(t *testing.T) {
	prober := &scriptProber{script: []bool{true}}
	// A huge interval proves the initial value is computed now, not on
	// the first underlying change.
	m := NewMonitor(prober, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if got := receive(t, m.Watch(ctx)); !got {
		t.Error("initial emission = false, want true")
	}
}

func TestWatchSuppressesConsecutiveDuplicates(t *testing.T) {
	prober := &scriptProber{script: []bool{true, true, false, false, true}}
	m := NewMonitor(prober, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := m.Watch(ctx)

	want := []bool{true, false, true}
	for i, expected := range want {
		if got := receive(t, updates); got != expected {
			t.Fatalf("emission %d = %v, want %v", i, got, expected)
		}
	}

	// The stream must stay quiet while the underlying value is stable.
	select {
	case v := <-updates:
		t.Fatalf("unexpected extra emission %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOnlineIsPointInTime(t *testing.T) {
	prober := &scriptProber{script: []bool{false, true}}
	m := NewMonitor(prober, time.Hour)

	ctx := context.Background()
	if m.Online(ctx) {
		t.Error("first check should be offline")
	}
	if !m.Online(ctx) {
		t.Error("second check should be online")
	}
	if prober.callCount() != 2 {
		t.Errorf("probe called %d times, want 2", prober.callCount())
	}
}

func TestPollStopsWhenLastWatcherLeaves(t *testing.T) {
	prober := &scriptProber{script: []bool{true}}
	m := NewMonitor(prober, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	updates := m.Watch(ctx)
	receive(t, updates)

	cancel()
	for range updates {
	}

	// Let any in-flight probe finish, then verify the loop is gone.
	time.Sleep(30 * time.Millisecond)
	settled := prober.callCount()
	time.Sleep(50 * time.Millisecond)

	if after := prober.callCount(); after != settled {
		t.Errorf("probe still running after last watcher left: %d -> %d", settled, after)
	}
}

func TestSecondWatcherGetsOwnReplay(t *testing.T) {
	prober := &scriptProber{script: []bool{true}}
	m := NewMonitor(prober, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := m.Watch(ctx)
	receive(t, first)

	second := m.Watch(ctx)
	if got := receive(t, second); !got {
		t.Error("second watcher should be replayed the current state")
	}
}
