package roles

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coact/pkg/convo"
	"coact/pkg/events"
	"coact/pkg/llm"
	"coact/pkg/types"
)

// Orchestrator decision actions.
const (
	delegateToProgrammer  = "delegate_to_programmer"
	delegateToGUIOperator = "delegate_to_gui_operator"
	taskCompleted         = "task_completed"
)

// Orchestrator is the strategic policy: it decomposes the task and decides,
// turn by turn, to delegate or declare completion. It has no action
// capability of its own.
type Orchestrator struct {
	decider  llm.Decider
	convoMgr *convo.Manager
	status   *events.StatusBoard
	log      *zap.Logger

	cctx *convo.Context
}

// NewOrchestrator wires the orchestrator role.
func NewOrchestrator(decider llm.Decider, convoMgr *convo.Manager, status *events.StatusBoard, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		decider:  decider,
		convoMgr: convoMgr,
		status:   status,
		log:      log,
	}
}

// StartTask initializes the orchestrator's context for a new session.
func (o *Orchestrator) StartTask(task string) {
	o.cctx = o.convoMgr.NewContext(orchestratorPrompt, task)
}

// Plan decides the next subtask against the current screen: a Delegate call
// or Complete.
func (o *Orchestrator) Plan(ctx context.Context, screenshotB64 string) (types.ActionCall, error) {
	o.cctx.SetScreenshot(screenshotB64)
	return o.decide(ctx)
}

// Evaluate judges whether the task is satisfied after a specialist's run,
// given its summary and a fresh screenshot.
func (o *Orchestrator) Evaluate(ctx context.Context, specialistSummary, screenshotB64 string) (types.ActionCall, error) {
	o.cctx.AddOutcome("Sub-agent finished. Final message: %s\nEvaluate whether the subtask succeeded and decide the next action.", specialistSummary)
	o.cctx.SetScreenshot(screenshotB64)
	return o.decide(ctx)
}

// RecordOutcome adds a text note to the orchestrator's running context, used
// by the controller for delegation failures it absorbs.
func (o *Orchestrator) RecordOutcome(format string, args ...any) {
	o.cctx.AddOutcome(format, args...)
}

func (o *Orchestrator) decide(ctx context.Context) (types.ActionCall, error) {
	if o.status != nil {
		o.status.Set(types.RoleOrchestrator, types.RoleProcessing)
		defer o.status.Set(types.RoleOrchestrator, types.RoleActive)
	}

	decision, err := o.decider.Decide(ctx, o.cctx.Messages())
	if err != nil {
		return types.ActionCall{}, fmt.Errorf("orchestrator decision failed: %w", err)
	}

	switch decision.Action {
	case delegateToProgrammer:
		return delegation(decision, types.RoleProgrammer)
	case delegateToGUIOperator:
		return delegation(decision, types.RoleGUIOperator)
	case taskCompleted:
		return types.ActionCall{
			Kind:    types.ActionComplete,
			Summary: summaryFromDecisionParams(decision.Params, "Task completed."),
		}, nil
	default:
		return types.ActionCall{}, fmt.Errorf("orchestrator emitted unknown action %q", decision.Action)
	}
}

func delegation(decision llm.Decision, role types.AgentRole) (types.ActionCall, error) {
	subtask, _ := decision.Params["subtask"].(string)
	if subtask == "" {
		return types.ActionCall{}, fmt.Errorf("delegation to %s is missing a subtask description", role)
	}
	return types.ActionCall{
		Kind:       types.ActionDelegate,
		Subtask:    subtask,
		TargetRole: role,
	}, nil
}
