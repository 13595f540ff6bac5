// Package tasks implements an async task manager: a thread-safe
// in-memory map of task id to status/progress/result, backing
// long-running HTTP requests (campaign runs, validation sweeps).
package tasks

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/virtualpytest/core/internal/domain"
	"github.com/virtualpytest/core/internal/metrics"
)

// Manager is a thread-safe map of task id to domain.TaskRecord. All
// operations take a single lock around the map; returned records are
// copies, never references into the map.
type Manager struct {
	mu      sync.Mutex
	tasks   map[string]*domain.TaskRecord
	metrics *metrics.Recorder
}

// New returns an empty Manager.
func New(m *metrics.Recorder) *Manager {
	return &Manager{tasks: make(map[string]*domain.TaskRecord), metrics: m}
}

// CreateTask records a new task in status "started" and returns its id.
func (m *Manager) CreateTask(command string, params map[string]any) string {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[id] = &domain.TaskRecord{
		ID:        id,
		Command:   command,
		Params:    params,
		Status:    domain.TaskStarted,
		CreatedAt: time.Now(),
	}
	m.reportLocked()
	return id
}

// UpdateTaskProgress replaces the progress structure for task id
// atomically. Status is untouched: a task stays "started" until
// CompleteTask transitions it.
func (m *Manager) UpdateTaskProgress(id string, progress any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return
	}
	t.Progress = progress
	m.reportLocked()
}

// CompleteTask transitions task id to "completed" (err == nil) or
// "failed" (err != nil). It is idempotent: a second call is a no-op, so
// a cooperative cancellation (complete_task(id, error=...)) can race an
// in-flight worker's own completion without clobbering whichever result
// landed first ( round-trip law).
func (m *Manager) CompleteTask(id string, result any, completionErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return
	}
	if t.Status == domain.TaskCompleted || t.Status == domain.TaskFailed {
		return
	}
	now := time.Now()
	t.CompletedAt = &now
	if completionErr != nil {
		t.Status = domain.TaskFailed
		t.Error = completionErr.Error()
	} else {
		t.Status = domain.TaskCompleted
		t.Result = result
	}
	m.reportLocked()
}

// GetTask returns a copy of task id's record, or nil if unknown.
func (m *Manager) GetTask(id string) *domain.TaskRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// CleanupOldTasks removes tasks created more than maxAge ago. Intended
// to be called periodically by the server, not run as a
// background goroutine owned by this package.
func (m *Manager) CleanupOldTasks(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, t := range m.tasks {
		if t.CreatedAt.Before(cutoff) {
			delete(m.tasks, id)
			removed++
		}
	}
	m.reportLocked()
	return removed
}

func (m *Manager) reportLocked() {
	if m.metrics == nil {
		return
	}
	counts := map[domain.TaskStatus]int{}
	for _, t := range m.tasks {
		counts[t.Status]++
	}
	for _, s := range []domain.TaskStatus{domain.TaskStarted, domain.TaskRunning, domain.TaskCompleted, domain.TaskFailed} {
		m.metrics.SetTasksActive(string(s), counts[s])
	}
}
