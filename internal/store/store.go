package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/railops/trainmaint/internal/model"
)

// StorageError indicates a local persistence failure. It is a distinct
// kind from network errors so callers can decide how to recover.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err (or any error in its chain) is a
// StorageError.
func IsStorageError(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}

// TaskSnapshot is one emission of a live task-list query. Err is non-nil
// only for the final emission before the stream closes.
type TaskSnapshot struct {
	Tasks []model.Task
	Err   error
}

// TaskLookup is one emission of a live single-task query. Task is nil
// when no record with the requested id exists.
type TaskLookup struct {
	Task *model.Task
	Err  error
}

// Store defines the persistence contract for the task cache and the
// sync journal. The sync coordinator is the only writer of task data;
// everything else reads.
type Store interface {
	// ReplaceAll atomically clears the task set and inserts the given
	// tasks in a single transaction. Concurrent observers never see a
	// half-replaced state.
	ReplaceAll(ctx context.Context, tasks []model.Task) error

	// GetTasks returns the current task set in display order: due date
	// ascending, ties broken by priority descending.
	GetTasks(ctx context.Context) ([]model.Task, error)

	// GetTaskByID returns the task with the given id, or nil if no such
	// record exists.
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)

	// ObserveAll emits the current ordered task set immediately, then a
	// fresh snapshot after every committed change. Emissions follow
	// commit order; intermediate states may be coalesced to the latest.
	// The channel closes when ctx ends or after an error emission.
	ObserveAll(ctx context.Context) <-chan TaskSnapshot

	// ObserveByID is ObserveAll scoped to a single id. Absence is a
	// valid emission (nil Task), including the initial one.
	ObserveByID(ctx context.Context, id string) <-chan TaskLookup

	// AppendSyncLog records one sync attempt in the journal.
	AppendSyncLog(ctx context.Context, entry model.SyncLogEntry) error

	// RecentSyncLog returns up to limit journal entries, newest first.
	RecentSyncLog(ctx context.Context, limit int) ([]model.SyncLogEntry, error)

	Close() error
}
