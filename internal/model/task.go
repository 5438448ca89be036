package model

import (
	"sort"
	"strings"
)

// Known priority labels, highest first. The set is open-ended: servers
// may introduce new labels, which sort after the known ones.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// Task is a single train maintenance work order. Tasks are immutable
// value records: they are written only by a full-replace sync and are
// never edited in place.
type Task struct {
	// ID is the server-assigned identifier, stable across syncs.
	// It is the sole identity key.
	ID string `json:"id" db:"id"`

	// TrainID identifies the physical asset the work applies to.
	TrainID string `json:"train_id" db:"train_id"`

	// TaskType is a short label, e.g. "Brake Inspection".
	TaskType string `json:"task_type" db:"task_type"`

	// PriorityLevel is one of the Priority* labels, treated as opaque
	// text except for display ordering.
	PriorityLevel string `json:"priority_level" db:"priority_level"`

	// Location is the depot or yard where the work happens.
	Location string `json:"location" db:"location"`

	// DueDate is an ISO-like date string (yyyy-MM-dd). Formatting for
	// display is the presentation layer's concern.
	DueDate string `json:"due_date" db:"due_date"`

	// Description is free text.
	Description string `json:"description" db:"description"`
}

// priorityRank maps a priority label to its display rank
// (lower = more urgent). Unknown labels rank below all known ones
// and fall back to lexical order among themselves.
func priorityRank(level string) int {
	switch level {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Less reports whether a should display before b: due date ascending,
// ties broken by priority descending (more urgent first).
func Less(a, b Task) bool {
	if a.DueDate != b.DueDate {
		return a.DueDate < b.DueDate
	}
	ra, rb := priorityRank(a.PriorityLevel), priorityRank(b.PriorityLevel)
	if ra != rb {
		return ra < rb
	}
	if ra == 3 {
		// Both unknown labels: lexical, so the order is still total.
		if c := strings.Compare(a.PriorityLevel, b.PriorityLevel); c != 0 {
			return c < 0
		}
	}
	return a.ID < b.ID
}

// SortTasks orders tasks in place for display.
func SortTasks(tasks []Task) {
	sort.Slice(tasks, func(i, j int) bool {
		return Less(tasks[i], tasks[j])
	})
}
