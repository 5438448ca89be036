// Package sync reconciles the local task cache with the remote source.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/railops/trainmaint/internal/model"
	"github.com/railops/trainmaint/internal/remote"
	"github.com/railops/trainmaint/internal/store"
)

// ErrOffline is returned when a sync is requested without a usable
// internet path. No network call is attempted in that case.
var ErrOffline = errors.New("no connectivity")

// fetchTimeout is the maximum time allowed for a single fetch+replace
// sequence.
const fetchTimeout = 30 * time.Second

// syncKey coalesces concurrent Sync calls into one physical operation.
const syncKey = "sync"

// Fetcher retrieves the full task set from the remote source.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]model.Task, error)
}

// Checker answers a point-in-time connectivity check.
type Checker interface {
	Online(ctx context.Context) bool
}

// Coordinator orchestrates a full-replace sync: check connectivity,
// fetch the remote task set, and atomically replace the local cache.
// It is the only writer of task data.
type Coordinator struct {
	store   store.Store
	fetcher Fetcher
	checker Checker
	logger  *log.Logger
	group   singleflight.Group
}

// NewCoordinator creates a Coordinator with the given collaborators.
// If logger is nil, a default logger writing to stderr is used.
func NewCoordinator(s store.Store, f Fetcher, c Checker, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Coordinator{
		store:   s,
		fetcher: f,
		checker: c,
		logger:  logger,
	}
}

// Sync runs one fetch+replace sequence. Concurrent callers are
// coalesced: at most one physical operation is in flight and joiners
// share its outcome. A caller whose ctx ends stops waiting without
// cancelling the shared operation for the others.
//
// Failure kinds: ErrOffline, remote.TransportError,
// remote.EmptyPayloadError, store.StorageError. A local write failure
// after a successful fetch is propagated, not swallowed: the caller
// must not be told a sync succeeded when the cache was never updated.
func (c *Coordinator) Sync(ctx context.Context) error {
	done := make(chan error, 1)

	go func() {
		_, err, _ := c.group.Do(syncKey, func() (interface{}, error) {
			// The operation runs on its own deadline so that a caller
			// tearing down does not cancel it for coalesced joiners.
			opCtx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()
			return nil, c.syncOnce(opCtx)
		})
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// syncOnce performs the physical fetch+replace sequence and records the
// attempt in the journal.
func (c *Coordinator) syncOnce(ctx context.Context) error {
	started := time.Now()

	if !c.checker.Online(ctx) {
		err := fmt.Errorf("sync skipped: %w", ErrOffline)
		c.record(model.SyncOutcomeFailure, err.Error(), 0, started)
		return err
	}

	tasks, err := c.fetcher.FetchAll(ctx)
	if err != nil {
		c.logger.Printf("fetch failed: %v", err)
		c.record(model.SyncOutcomeFailure, err.Error(), 0, started)
		return fmt.Errorf("fetching tasks: %w", err)
	}

	// The remote is authoritative; an empty set is an anomaly and must
	// never wipe the local cache. The client already enforces this, but
	// the invariant belongs to the coordinator regardless of fetcher.
	if len(tasks) == 0 {
		err := fmt.Errorf("fetching tasks: %w", &remote.EmptyPayloadError{})
		c.record(model.SyncOutcomeFailure, err.Error(), 0, started)
		return err
	}

	if err := c.store.ReplaceAll(ctx, tasks); err != nil {
		c.logger.Printf("replace failed after successful fetch: %v", err)
		c.record(model.SyncOutcomeFailure, err.Error(), len(tasks), started)
		return fmt.Errorf("replacing local tasks: %w", err)
	}

	c.logger.Printf("replaced task set: %d tasks", len(tasks))
	c.record(model.SyncOutcomeSuccess, "", len(tasks), started)
	return nil
}

// record appends one attempt to the sync journal. The journal is
// diagnostic only; a journal write failure is logged and never changes
// the sync outcome.
func (c *Coordinator) record(outcome, message string, count int, started time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entry := model.SyncLogEntry{
		ID:         uuid.New().String(),
		Outcome:    outcome,
		Message:    message,
		TaskCount:  count,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err := c.store.AppendSyncLog(ctx, entry); err != nil {
		c.logger.Printf("journal write failed: %v", err)
	}
}

// IsOffline reports whether err is the no-connectivity failure kind.
func IsOffline(err error) bool {
	return errors.Is(err, ErrOffline)
}
