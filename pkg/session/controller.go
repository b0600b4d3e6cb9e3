// Package session drives one task from start to terminal outcome: a bounded
// loop of orchestrator planning, specialist execution and re-evaluation.
package session

import (
	"context"
	"encoding/base64"

	"go.uber.org/zap"

	"coact/pkg/computer"
	"coact/pkg/events"
	"coact/pkg/roles"
	"coact/pkg/statemonitor"
	"coact/pkg/types"
)

// IterationLimitReason is the failure reason reported when a session
// exhausts its iteration budget.
const IterationLimitReason = "iteration_limit"

// Outcome is the terminal result of a session. It always resolves: the
// controller absorbs every internal error kind into the state machine.
type Outcome struct {
	Status   types.TaskStatus `json:"status"` // completed or failed
	Summary  string           `json:"summary"`
	Reason   string           `json:"reason,omitempty"`
	TaskTree []types.Task     `json:"task_tree"`
}

// Controller owns the session: the task tree, the iteration budget and the
// computer-surface connection lifetime.
type Controller struct {
	surface       computer.Surface
	orchestrator  *roles.Orchestrator
	specialists   map[types.AgentRole]roles.Specialist
	bc            *events.Broadcaster
	status        *events.StatusBoard
	audit         *Audit
	maxIterations int
	log           *zap.Logger
}

// NewController wires a session controller. audit may be nil to disable the
// task history database.
func NewController(surface computer.Surface, orchestrator *roles.Orchestrator, specialists []roles.Specialist, bc *events.Broadcaster, status *events.StatusBoard, audit *Audit, maxIterations int, log *zap.Logger) *Controller {
	if maxIterations < 1 {
		maxIterations = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	byRole := make(map[types.AgentRole]roles.Specialist, len(specialists))
	for _, s := range specialists {
		byRole[s.Role()] = s
	}
	return &Controller{
		surface:       surface,
		orchestrator:  orchestrator,
		specialists:   byRole,
		bc:            bc,
		status:        status,
		audit:         audit,
		maxIterations: maxIterations,
		log:           log,
	}
}

// Run executes one task to a terminal outcome. Each iteration is one
// Planning -> Delegated -> Evaluating cycle; the loop is strictly
// sequential and bounded by the iteration budget.
func (c *Controller) Run(ctx context.Context, taskText string) Outcome {
	tree := NewTaskTree(taskText)
	root := tree.Root()

	c.publish(events.TaskStarted(root))
	c.audit.RecordTask(root)

	host, err := statemonitor.Snapshot()
	if err != nil {
		c.log.Warn("host snapshot failed", zap.Error(err))
	}
	auditID := c.audit.BeginSession(taskText, host)

	defer func() {
		if c.status != nil {
			c.status.Reset()
		}
		c.publish(events.UIReset())
		if err := c.surface.Close(); err != nil {
			c.log.Warn("failed to close computer surface", zap.Error(err))
		}
	}()

	c.orchestrator.StartTask(taskText)
	if c.status != nil {
		c.status.Set(types.RoleOrchestrator, types.RoleActive)
	}

	prevShot := ""
	for i := 1; i <= c.maxIterations; i++ {
		c.log.Info("session iteration", zap.Int("iteration", i), zap.Int("max", c.maxIterations))

		shot := c.capture(ctx, prevShot)
		prevShot = shot

		call, err := c.orchestrator.Plan(ctx, shot)
		if err != nil {
			c.log.Warn("planning failed", zap.Error(err))
			c.orchestrator.RecordOutcome("Planning step failed: %v", err)
			continue
		}

		if call.Kind == types.ActionComplete {
			return c.complete(tree, auditID, call.Summary)
		}
		if call.Kind != types.ActionDelegate {
			c.orchestrator.RecordOutcome("Planning produced no delegation; plan again.")
			continue
		}

		subtask := tree.AddSubtask(call.Subtask, call.TargetRole)
		c.audit.RecordTask(subtask)
		c.publish(events.TaskDelegated(subtask))

		specialist, ok := c.specialists[call.TargetRole]
		if !ok {
			c.log.Warn("no specialist for role", zap.String("role", string(call.TargetRole)))
			if err := tree.Finish(subtask, types.StatusFailed); err != nil {
				c.log.Warn("task transition rejected", zap.Error(err))
			}
			c.audit.RecordTask(subtask)
			c.orchestrator.RecordOutcome("No specialist available for role %s.", call.TargetRole)
			continue
		}

		result := specialist.Execute(ctx, subtask, shot)
		if err := tree.Finish(subtask, result.Status); err != nil {
			c.log.Warn("task transition rejected", zap.Error(err))
		}
		c.audit.RecordTask(subtask)
		c.publish(events.SubtaskCompleted(subtask.ID))

		evalShot := c.capture(ctx, prevShot)
		prevShot = evalShot

		verdict, err := c.orchestrator.Evaluate(ctx, result.Summary, evalShot)
		if err != nil {
			c.log.Warn("evaluation failed", zap.Error(err))
			c.orchestrator.RecordOutcome("Evaluation step failed: %v", err)
			continue
		}
		if verdict.Kind == types.ActionComplete {
			return c.complete(tree, auditID, verdict.Summary)
		}
		// Anything other than completion sends the loop back to planning;
		// a delegation emitted during evaluation is replanned next cycle.
		if verdict.Kind == types.ActionDelegate {
			c.orchestrator.RecordOutcome("Further work identified: %s", verdict.Subtask)
		}
	}

	c.log.Info("iteration budget exhausted", zap.Int("iterations", c.maxIterations))
	if err := tree.Finish(tree.Root(), types.StatusFailed); err != nil {
		c.log.Warn("task transition rejected", zap.Error(err))
	}
	c.audit.RecordTask(tree.Root())
	summary := "Task was not completed within the iteration budget."
	c.audit.EndSession(auditID, types.StatusFailed, summary)
	return Outcome{
		Status:   types.StatusFailed,
		Summary:  summary,
		Reason:   IterationLimitReason,
		TaskTree: tree.Snapshot(),
	}
}

func (c *Controller) complete(tree *TaskTree, auditID int64, summary string) Outcome {
	if err := tree.Finish(tree.Root(), types.StatusCompleted); err != nil {
		c.log.Warn("task transition rejected", zap.Error(err))
	}
	c.audit.RecordTask(tree.Root())
	c.publish(events.TaskCompleted(tree.Root()))
	c.audit.EndSession(auditID, types.StatusCompleted, summary)
	return Outcome{
		Status:   types.StatusCompleted,
		Summary:  summary,
		TaskTree: tree.Snapshot(),
	}
}

// capture takes a screenshot for the orchestrator and reports it to
// observers; the superseded screenshot is re-published as "previous". A
// capture failure yields an empty screenshot, the planning step proceeds on
// text alone.
func (c *Controller) capture(ctx context.Context, prevShot string) string {
	png, err := c.surface.CaptureScreen(ctx)
	if err != nil {
		c.log.Warn("screen capture failed", zap.Error(err))
		return ""
	}
	shot := base64.StdEncoding.EncodeToString(png)
	if prevShot != "" {
		c.publish(events.ScreenshotUpdate("previous", prevShot))
	}
	c.publish(events.ScreenshotUpdate("current", shot))
	return shot
}

func (c *Controller) publish(evt events.Event) {
	if c.bc != nil {
		c.bc.Publish(evt)
	}
}
