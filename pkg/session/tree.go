package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"coact/pkg/types"
)

// TaskTree is the session's record of the root task and every delegation.
// The controller owns it; roles only see the individual task they were
// handed.
type TaskTree struct {
	mu       sync.Mutex
	root     *types.Task
	subtasks []*types.Task
}

// NewTaskTree creates the root task for a session.
func NewTaskTree(description string) *TaskTree {
	return &TaskTree{
		root: &types.Task{
			ID:           uuid.NewString(),
			Description:  description,
			AssignedRole: types.RoleUser,
			Status:       types.StatusActive,
			CreatedAt:    time.Now(),
		},
	}
}

// Root returns the root task.
func (t *TaskTree) Root() *types.Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root
}

// AddSubtask records a delegation under the root task.
func (t *TaskTree) AddSubtask(description string, role types.AgentRole) *types.Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	task := &types.Task{
		ID:           uuid.NewString(),
		Description:  description,
		AssignedRole: role,
		Status:       types.StatusDelegated,
		ParentID:     t.root.ID,
		CreatedAt:    time.Now(),
	}
	t.subtasks = append(t.subtasks, task)
	return task
}

// Finish moves a task to a terminal status. A task reaches a terminal
// status exactly once; a second transition is a programming error.
func (t *TaskTree) Finish(task *types.Task, status types.TaskStatus) error {
	if status != types.StatusCompleted && status != types.StatusFailed {
		return fmt.Errorf("status %q is not terminal", status)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if task.Status == types.StatusCompleted || task.Status == types.StatusFailed {
		return fmt.Errorf("task %s already reached terminal status %q", task.ID, task.Status)
	}
	task.Status = status
	return nil
}

// Snapshot returns copies of every task, root first, for diagnostics.
func (t *TaskTree) Snapshot() []types.Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.Task, 0, len(t.subtasks)+1)
	out = append(out, *t.root)
	for _, task := range t.subtasks {
		out = append(out, *task)
	}
	return out
}
