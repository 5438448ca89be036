package state

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/railops/trainmaint/internal/model"
	"github.com/railops/trainmaint/internal/store"
)

// DetailMachine drives the single-task screen. The task id is fixed
// for the machine's lifetime.
type DetailMachine struct {
	store  store.Store
	id     string
	logger *log.Logger

	states chan UIState[model.Task]
}

// NewDetailMachine creates a detail machine scoped to one task id.
// If logger is nil, a default logger writing to stderr is used.
func NewDetailMachine(s store.Store, id string, logger *log.Logger) *DetailMachine {
	if logger == nil {
		logger = log.New(os.Stderr, "[taskdetail] ", log.LstdFlags)
	}
	return &DetailMachine{
		store:  s,
		id:     id,
		logger: logger,
		states: make(chan UIState[model.Task], 1),
	}
}

// States returns the UI state container holding the latest value.
func (m *DetailMachine) States() <-chan UIState[model.Task] {
	return m.states
}

// Run serializes all transitions on the calling goroutine until ctx
// ends or a terminal error is reached. A malformed id fails immediately
// without touching the store; a confirmed-absent id is a terminal
// "task not found" error after the store's first emission.
func (m *DetailMachine) Run(ctx context.Context) {
	publish(m.states, Loading[model.Task]())

	if strings.TrimSpace(m.id) == "" {
		publish(m.states, Error[model.Task]("invalid task id", nil))
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var last *model.Task
	for lookup := range m.store.ObserveByID(ctx, m.id) {
		if lookup.Err != nil {
			m.logger.Printf("local store failed for task %s: %v", m.id, lookup.Err)
			publish(m.states, Error[model.Task]("failed to load task details", last))
			return
		}
		if lookup.Task == nil {
			// A confirmed absence is terminal: the record either never
			// existed or was dropped by a full-replace sync.
			publish(m.states, Error[model.Task]("task not found", last))
			return
		}
		last = lookup.Task
		publish(m.states, Success(*lookup.Task))
	}
}
