package roles

import (
	"context"

	"go.uber.org/zap"

	"coact/pkg/capability"
	"coact/pkg/convo"
	"coact/pkg/events"
	"coact/pkg/llm"
	"coact/pkg/types"
)

// Programmer executes subtasks through shell and filesystem capabilities.
type Programmer struct {
	proxy    *capability.Proxy
	decider  llm.Decider
	convoMgr *convo.Manager
	status   *events.StatusBoard
	maxSteps int
	log      *zap.Logger
}

// NewProgrammer wires the programmer role. maxSteps bounds decision steps
// per subtask.
func NewProgrammer(proxy *capability.Proxy, decider llm.Decider, convoMgr *convo.Manager, status *events.StatusBoard, maxSteps int, log *zap.Logger) *Programmer {
	if maxSteps < 1 {
		maxSteps = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Programmer{
		proxy:    proxy,
		decider:  decider,
		convoMgr: convoMgr,
		status:   status,
		maxSteps: maxSteps,
		log:      log,
	}
}

func (p *Programmer) Role() types.AgentRole { return types.RoleProgrammer }

// Execute runs the bounded decision loop for one subtask. Hitting the step
// bound yields a failed result with the accumulated summary, never an error.
func (p *Programmer) Execute(ctx context.Context, subtask *types.Task, screenshotB64 string) Result {
	if p.status != nil {
		p.status.Set(types.RoleProgrammer, types.RoleActive)
		defer p.status.Set(types.RoleProgrammer, types.RoleIdle)
	}

	cctx := p.convoMgr.NewContext(specialistPrompt(programmerPromptHeader, p.proxy.Actions()), subtask.Description)
	cctx.SetScreenshot(screenshotB64)

	for step := 0; step < p.maxSteps; step++ {
		if p.status != nil {
			p.status.Set(types.RoleProgrammer, types.RoleProcessing)
		}
		decision, err := p.decider.Decide(ctx, cctx.Messages())
		if p.status != nil {
			p.status.Set(types.RoleProgrammer, types.RoleActive)
		}
		if err != nil {
			p.log.Warn("programmer decision failed", zap.Error(err))
			cctx.AddOutcome("Decision step failed: %v", err)
			continue
		}

		if decision.Action == DoneAction {
			return Result{
				Summary:       summaryFromDecisionParams(decision.Params, joinOutcomes(cctx.Outcomes())),
				ScreenshotB64: screenshotB64,
				Status:        types.StatusCompleted,
			}
		}

		res, err := p.proxy.Invoke(ctx, decision.Action, decision.Params)
		if err != nil {
			// Structured failure text; the next decision adapts.
			cctx.AddOutcome("Action %s failed: %v", decision.Action, err)
			continue
		}
		cctx.AddOutcome("Action %s succeeded:\n%s", decision.Action, truncate(res.Output, 2000))
	}

	p.log.Info("programmer hit subtask step limit", zap.String("subtask", subtask.ID))
	return Result{
		Summary:       "Step limit reached. " + joinOutcomes(cctx.Outcomes()),
		ScreenshotB64: screenshotB64,
		Status:        types.StatusFailed,
	}
}
