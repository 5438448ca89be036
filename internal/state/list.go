package state

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/railops/trainmaint/internal/model"
	"github.com/railops/trainmaint/internal/store"
)

// Syncer triggers one reconciliation of the local cache against the
// remote source.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Watcher produces a live reachability stream.
type Watcher interface {
	Watch(ctx context.Context) <-chan bool
}

// ListMachine drives the task-list screen. It combines the store's
// live query, the connectivity stream, and sync outcomes into a single
// UIState value, plus an independent offline flag.
type ListMachine struct {
	store   store.Store
	syncer  Syncer
	watcher Watcher
	logger  *log.Logger

	states  chan UIState[[]model.Task]
	offline chan bool
}

// NewListMachine creates a list machine with constructor-passed
// collaborators. If logger is nil, a default logger writing to stderr
// is used.
func NewListMachine(s store.Store, syncer Syncer, watcher Watcher, logger *log.Logger) *ListMachine {
	if logger == nil {
		logger = log.New(os.Stderr, "[tasklist] ", log.LstdFlags)
	}
	return &ListMachine{
		store:   s,
		syncer:  syncer,
		watcher: watcher,
		logger:  logger,
		states:  make(chan UIState[[]model.Task], 1),
		offline: make(chan bool, 1),
	}
}

// States returns the UI state container. It always holds the latest
// value; stale intermediate values are coalesced away.
func (m *ListMachine) States() <-chan UIState[[]model.Task] {
	return m.states
}

// Offline returns the independent offline flag, derived directly from
// the connectivity stream. It is not part of the UI state variant.
func (m *ListMachine) Offline() <-chan bool {
	return m.offline
}

// Run serializes all transitions on the calling goroutine until ctx
// ends. Store and connectivity subscriptions are released when it
// returns.
func (m *ListMachine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	snapshots := m.store.ObserveAll(ctx)
	reachability := m.watcher.Watch(ctx)
	syncDone := make(chan error, 1)

	var (
		loading   = true
		syncing   bool
		online    bool
		seenEdge  bool
		lastTasks []model.Task
		haveTasks bool
	)

	publish(m.states, Loading[[]model.Task]())

	for {
		select {
		case <-ctx.Done():
			return

		case snap, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			if snap.Err != nil {
				loading = false
				m.logger.Printf("local store failed: %v", snap.Err)
				publish(m.states, errorState("failed to load tasks", snap.Err, lastTasks, haveTasks))
				continue
			}
			if len(snap.Tasks) == 0 {
				// Empty local cache means first run: bootstrap a sync
				// and stay in Loading until data arrives or it fails.
				if !syncing {
					syncing = true
					go func() { syncDone <- m.syncer.Sync(ctx) }()
				}
				continue
			}
			loading = false
			lastTasks = snap.Tasks
			haveTasks = true
			publish(m.states, Success(snap.Tasks))

		case err := <-syncDone:
			syncing = false
			if err == nil {
				// The store emission carries the new data; no
				// transition happens here.
				continue
			}
			loading = false
			m.logger.Printf("sync failed: %v", err)
			publish(m.states, errorState("failed to sync tasks", err, lastTasks, haveTasks))

		case isOnline, ok := <-reachability:
			if !ok {
				reachability = nil
				continue
			}
			wasOnline, hadBaseline := online, seenEdge
			online, seenEdge = isOnline, true
			publish(m.offline, !isOnline)

			// React to the false->true transition only: the first
			// emission is a baseline, and staying online is not a
			// reason to refetch.
			if hadBaseline && !wasOnline && isOnline && !loading && !syncing {
				syncing = true
				go func() { syncDone <- m.syncer.Sync(ctx) }()
			}
		}
	}
}

// errorState builds the Error variant, carrying the last known list so
// the UI can keep showing cached data under the error banner.
func errorState(prefix string, err error, lastTasks []model.Task, haveTasks bool) UIState[[]model.Task] {
	var cached *[]model.Task
	if haveTasks {
		cached = &lastTasks
	}
	return Error(fmt.Sprintf("%s: %v", prefix, err), cached)
}

// publish replaces the container's value with the latest one. Older
// unconsumed values are dropped, never blocked on.
func publish[T any](container chan T, value T) {
	for {
		select {
		case container <- value:
			return
		default:
			select {
			case <-container:
			default:
			}
		}
	}
}
