package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/railops/trainmaint/internal/model"
)

// displayOrder mirrors model.Less: due date ascending, priority
// descending, unknown priority labels lexical, id as the final tiebreak.
const displayOrder = `
	ORDER BY due_date ASC,
		CASE priority_level
			WHEN 'High' THEN 0
			WHEN 'Medium' THEN 1
			WHEN 'Low' THEN 2
			ELSE 3
		END ASC,
		priority_level ASC,
		id ASC`

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB

	mu      sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode so observers can read while a replace commits.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Wait out short lock contention instead of failing with SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:   db,
		subs: make(map[int]chan struct{}),
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// ReplaceAll clears the task set and inserts the given tasks in one
// transaction, then wakes every live observer.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, tasks []model.Task) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "replace", Err: fmt.Errorf("beginning transaction: %w", err)}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return &StorageError{Op: "replace", Err: fmt.Errorf("clearing tasks: %w", err)}
	}

	const query = `
		INSERT INTO tasks (
			id, train_id, task_type, priority_level,
			location, due_date, description
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return &StorageError{Op: "replace", Err: fmt.Errorf("preparing insert statement: %w", err)}
	}
	defer stmt.Close()

	for _, t := range tasks {
		_, err = stmt.ExecContext(ctx,
			t.ID, t.TrainID, t.TaskType, t.PriorityLevel,
			t.Location, t.DueDate, t.Description,
		)
		if err != nil {
			return &StorageError{Op: "replace", Err: fmt.Errorf("inserting task %s: %w", t.ID, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "replace", Err: fmt.Errorf("committing replace: %w", err)}
	}

	s.notifyAll()
	return nil
}

// GetTasks retrieves the full task set in display order.
func (s *SQLiteStore) GetTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	err := s.db.SelectContext(ctx, &tasks, "SELECT * FROM tasks"+displayOrder)
	if err != nil {
		return nil, &StorageError{Op: "query", Err: fmt.Errorf("querying tasks: %w", err)}
	}
	return tasks, nil
}

// GetTaskByID retrieves a single task by its ID, or nil if absent.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	var tasks []model.Task
	err := s.db.SelectContext(ctx, &tasks, "SELECT * FROM tasks WHERE id = ?", id)
	if err != nil {
		return nil, &StorageError{Op: "query", Err: fmt.Errorf("querying task %s: %w", id, err)}
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return &tasks[0], nil
}

// ObserveAll emits the current task set immediately, then an updated
// snapshot after every committed change.
func (s *SQLiteStore) ObserveAll(ctx context.Context) <-chan TaskSnapshot {
	out := make(chan TaskSnapshot, 1)
	id, signal := s.subscribe()

	go func() {
		defer close(out)
		defer s.unsubscribe(id)

		for {
			tasks, err := s.GetTasks(ctx)
			if err != nil {
				emit(ctx, out, TaskSnapshot{Err: err})
				return
			}
			if !emit(ctx, out, TaskSnapshot{Tasks: tasks}) {
				return
			}

			select {
			case <-signal:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// ObserveByID emits the task with the given id (nil when absent)
// immediately, then again after every committed change.
func (s *SQLiteStore) ObserveByID(ctx context.Context, id string) <-chan TaskLookup {
	out := make(chan TaskLookup, 1)
	subID, signal := s.subscribe()

	go func() {
		defer close(out)
		defer s.unsubscribe(subID)

		for {
			task, err := s.GetTaskByID(ctx, id)
			if err != nil {
				emit(ctx, out, TaskLookup{Err: err})
				return
			}
			if !emit(ctx, out, TaskLookup{Task: task}) {
				return
			}

			select {
			case <-signal:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// AppendSyncLog records one sync attempt in the journal.
func (s *SQLiteStore) AppendSyncLog(ctx context.Context, entry model.SyncLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_log (id, outcome, message, task_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Outcome, entry.Message, entry.TaskCount,
		entry.StartedAt.UTC(), entry.FinishedAt.UTC(),
	)
	if err != nil {
		return &StorageError{Op: "journal", Err: fmt.Errorf("appending sync log: %w", err)}
	}

	return nil
}

// RecentSyncLog returns up to limit journal entries, newest first.
func (s *SQLiteStore) RecentSyncLog(ctx context.Context, limit int) ([]model.SyncLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	var entries []model.SyncLogEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM sync_log ORDER BY started_at DESC, id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, &StorageError{Op: "journal", Err: fmt.Errorf("querying sync log: %w", err)}
	}

	return entries, nil
}

// subscribe registers a change-signal channel for a live observer.
// The channel is buffered so a commit during a snapshot query leaves a
// token behind and the observer re-queries instead of missing it.
func (s *SQLiteStore) subscribe() (int, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	signal := make(chan struct{}, 1)
	s.subs[id] = signal
	return id, signal
}

// unsubscribe releases a live observer's registration.
func (s *SQLiteStore) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

// notifyAll wakes every live observer after a commit. Sends are
// non-blocking: a pending token already covers the new commit.
func (s *SQLiteStore) notifyAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, signal := range s.subs {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
}

// emit delivers v unless ctx ends first. It reports whether the value
// was delivered; results are never pushed into a dead sink.
func emit[T any](ctx context.Context, out chan<- T, v T) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
