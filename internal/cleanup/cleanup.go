// Package cleanup provides a priority-ordered registry of teardown
// callbacks. Registries are constructed and passed explicitly; the
// framework does not keep a process-wide singleton, so parallel workers
// tear down independently.
package cleanup

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Task is a named teardown callback. Higher priority runs first.
type Task struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// Registry collects Tasks and executes them best-effort.
type Registry struct {
	logger *zap.Logger

	mu    sync.Mutex
	tasks []Task
	seq   int
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{logger: logger.Named("cleanup")}
}

// Register adds a task. Registration order breaks priority ties, so two
// tasks at the same priority run in the order they were added.
func (r *Registry) Register(t Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, t)
}

// Len returns the number of pending tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// CleanupAll runs every registered task in descending priority order. A
// failing task is logged and never prevents the remaining tasks from
// running. The registry is cleared after the pass, so a second call is a
// no-op unless new tasks were registered. Returns the count of failures.
func (r *Registry) CleanupAll(ctx context.Context) int {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = nil
	r.mu.Unlock()

	// Stable sort keeps registration order within a priority band.
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority > tasks[j].Priority
	})

	failures := 0
	for _, t := range tasks {
		if t.Fn == nil {
			continue
		}
		if err := t.Fn(ctx); err != nil {
			failures++
			r.logger.Warn("Cleanup task failed, continuing",
				zap.String("task", t.Name),
				zap.Error(err),
			)
		} else {
			r.logger.Debug("Cleanup task completed", zap.String("task", t.Name))
		}
	}
	return failures
}
