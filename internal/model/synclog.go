package model

import "time"

// Sync outcomes recorded in the journal.
const (
	SyncOutcomeSuccess = "success"
	SyncOutcomeFailure = "failure"
)

// SyncLogEntry is one recorded sync attempt. The journal is diagnostic
// only: writing it never affects the outcome of the sync itself.
type SyncLogEntry struct {
	ID         string    `json:"id" db:"id"`
	Outcome    string    `json:"outcome" db:"outcome"`
	Message    string    `json:"message" db:"message"`
	TaskCount  int       `json:"task_count" db:"task_count"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
}
