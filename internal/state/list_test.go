package state

import (
	"context"
	"fmt"
	"io"
	"log"
	gosync "sync"
	"testing"
	"time"

	"github.com/railops/trainmaint/internal/model"
	"github.com/railops/trainmaint/tests/testutil"
)

// fakeSyncer runs a configurable sync function and counts calls.
type fakeSyncer struct {
	mu    gosync.Mutex
	fn    func(ctx context.Context) error
	calls int
}

func (f *fakeSyncer) Sync(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (f *fakeSyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeWatcher hands the machine a connectivity stream driven by the test.
type fakeWatcher struct {
	ch chan bool
}

func (w *fakeWatcher) Watch(ctx context.Context) <-chan bool {
	return w.ch
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// waitForKind drains the state container until a state of the wanted
// kind appears.
func waitForKind[T any](t *testing.T, ch <-chan UIState[T], want Kind) UIState[T] {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if s.Kind == want {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v state", want)
		}
	}
}

// Empty local cache at startup: the machine bootstraps a sync and ends
// in Success with the fetched tasks in display order.
func TestListMachineBootstrapsFromEmptyCache(t *testing.T) {
	s := testutil.NewTestStore(t)
	syncer := &fakeSyncer{fn: func(ctx context.Context) error {
		return s.ReplaceAll(ctx, []model.Task{
			{ID: "2", DueDate: "2026-02-01", PriorityLevel: model.PriorityLow},
			{ID: "3", DueDate: "2026-03-01", PriorityLevel: model.PriorityHigh},
			{ID: "1", DueDate: "2026-01-01", PriorityLevel: model.PriorityMedium},
		})
	}}
	watcher := &fakeWatcher{ch: make(chan bool)}

	m := NewListMachine(s, syncer, watcher, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	got := waitForKind(t, m.States(), KindSuccess)
	if len(got.Data) != 3 {
		t.Fatalf("success carries %d tasks, want 3", len(got.Data))
	}
	for i, want := range []string{"1", "2", "3"} {
		if got.Data[i].ID != want {
			t.Errorf("position %d: got id %s, want %s (due date ascending)", i, got.Data[i].ID, want)
		}
	}

	if n := syncer.callCount(); n != 1 {
		t.Errorf("bootstrap triggered %d syncs, want 1", n)
	}
}

// A failed sync transitions to Error while the cached tasks stay
// queryable and are carried on the Error state.
func TestListMachineSyncFailureKeepsCachedData(t *testing.T) {
	s := testutil.NewTestStore(t)
	seed := []model.Task{
		{ID: "a", DueDate: "2026-01-01"},
		{ID: "b", DueDate: "2026-02-01"},
	}
	if err := s.ReplaceAll(context.Background(), seed); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	syncer := &fakeSyncer{fn: func(ctx context.Context) error {
		return fmt.Errorf("fetching tasks: unexpected status 500")
	}}
	watcher := &fakeWatcher{ch: make(chan bool, 4)}

	m := NewListMachine(s, syncer, watcher, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitForKind(t, m.States(), KindSuccess)

	// Reconnect edge triggers the failing sync.
	watcher.ch <- false
	watcher.ch <- true

	got := waitForKind(t, m.States(), KindError)
	if got.Message == "" {
		t.Error("error state should carry a message")
	}
	if got.Cached == nil || len(*got.Cached) != 2 {
		t.Fatalf("error state should carry the 2 cached tasks, got %v", got.Cached)
	}

	tasks, err := s.GetTasks(context.Background())
	if err != nil {
		t.Fatalf("GetTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("cache was disturbed: %d tasks, want 2", len(tasks))
	}
}

// Syncs fire on false->true transitions only: the stream
// [false true true false true] carries exactly two edges.
func TestListMachineSyncsOnReconnectEdgesOnly(t *testing.T) {
	s := testutil.NewTestStore(t)
	if err := s.ReplaceAll(context.Background(), []model.Task{{ID: "x", DueDate: "2026-01-01"}}); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	syncer := &fakeSyncer{}
	watcher := &fakeWatcher{ch: make(chan bool)}

	m := NewListMachine(s, syncer, watcher, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitForKind(t, m.States(), KindSuccess)

	for _, online := range []bool{false, true, true, false, true} {
		watcher.ch <- online
		// Give the in-flight sync time to finish so the next edge is
		// not swallowed by the one-at-a-time guard.
		time.Sleep(20 * time.Millisecond)
	}

	if n := syncer.callCount(); n != 2 {
		t.Errorf("got %d sync attempts, want exactly 2 (one per reconnect edge)", n)
	}
}

// The offline flag tracks connectivity directly and independently of
// the data state.
func TestListMachineOfflineFlagIsIndependent(t *testing.T) {
	s := testutil.NewTestStore(t)
	if err := s.ReplaceAll(context.Background(), []model.Task{{ID: "x", DueDate: "2026-01-01"}}); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	syncer := &fakeSyncer{}
	watcher := &fakeWatcher{ch: make(chan bool, 1)}

	m := NewListMachine(s, syncer, watcher, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitForKind(t, m.States(), KindSuccess)

	watcher.ch <- false

	select {
	case offline := <-m.Offline():
		if !offline {
			t.Error("offline flag = false after losing connectivity")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for offline flag")
	}

	// Losing connectivity alone must not disturb the data state.
	select {
	case v := <-m.States():
		if v.Kind != KindSuccess {
			t.Errorf("state changed to %v on connectivity loss", v.Kind)
		}
	default:
	}
}

// While a sync is already in flight, reconnect edges are ignored.
func TestListMachineIgnoresEdgesDuringSync(t *testing.T) {
	s := testutil.NewTestStore(t)
	if err := s.ReplaceAll(context.Background(), []model.Task{{ID: "x", DueDate: "2026-01-01"}}); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	release := make(chan struct{})
	syncer := &fakeSyncer{fn: func(ctx context.Context) error {
		<-release
		return nil
	}}
	watcher := &fakeWatcher{ch: make(chan bool)}

	m := NewListMachine(s, syncer, watcher, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitForKind(t, m.States(), KindSuccess)

	// First edge starts a sync that blocks on release; the second edge
	// arrives while it is still running.
	for _, online := range []bool{false, true, false, true} {
		watcher.ch <- online
	}
	close(release)

	time.Sleep(50 * time.Millisecond)
	if n := syncer.callCount(); n != 1 {
		t.Errorf("got %d sync attempts, want 1 (edge during sync ignored)", n)
	}
}
