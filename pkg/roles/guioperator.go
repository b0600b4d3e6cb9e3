package roles

import (
	"context"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"

	"coact/pkg/capability"
	"coact/pkg/convo"
	"coact/pkg/events"
	"coact/pkg/grounding"
	"coact/pkg/llm"
	"coact/pkg/ocr"
	"coact/pkg/types"
)

// ClickTargetAction asks the GUI operator to locate and click a described
// target. Text targets resolve through the current OCR pass; everything else
// falls through to the grounding model.
const ClickTargetAction = "click_target"

// recoveryKey is the keyboard-native escape hatch tried before re-running
// OCR when a target cannot be located confidently.
const recoveryKey = "escape"

// GUIOperator executes subtasks through pointer, keyboard and screen
// capabilities, grounded by OCR and the grounding model.
type GUIOperator struct {
	proxy    *capability.Proxy
	decider  llm.Decider
	convoMgr *convo.Manager
	ocrProc  *ocr.Processor
	grounder *grounding.Adapter
	status   *events.StatusBoard
	bc       *events.Broadcaster
	maxSteps int
	log      *zap.Logger
}

// NewGUIOperator wires the GUI operator role.
func NewGUIOperator(proxy *capability.Proxy, decider llm.Decider, convoMgr *convo.Manager, ocrProc *ocr.Processor, grounder *grounding.Adapter, status *events.StatusBoard, bc *events.Broadcaster, maxSteps int, log *zap.Logger) *GUIOperator {
	if maxSteps < 1 {
		maxSteps = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GUIOperator{
		proxy:    proxy,
		decider:  decider,
		convoMgr: convoMgr,
		ocrProc:  ocrProc,
		grounder: grounder,
		status:   status,
		bc:       bc,
		maxSteps: maxSteps,
		log:      log,
	}
}

func (g *GUIOperator) Role() types.AgentRole { return types.RoleGUIOperator }

// Execute runs the bounded decision loop for one subtask. Every step starts
// from a fresh screenshot and a fresh OCR pass; element ids never carry over.
func (g *GUIOperator) Execute(ctx context.Context, subtask *types.Task, screenshotB64 string) Result {
	if g.status != nil {
		g.status.Set(types.RoleGUIOperator, types.RoleActive)
		defer g.status.Set(types.RoleGUIOperator, types.RoleIdle)
	}

	cctx := g.convoMgr.NewContext(specialistPrompt(guiOperatorPromptHeader, append(g.proxy.Actions(), ClickTargetAction)), subtask.Description)
	cctx.SetScreenshot(screenshotB64)
	latestShot := screenshotB64

	for step := 0; step < g.maxSteps; step++ {
		pass, shot, err := g.refresh(ctx, cctx)
		if err != nil {
			cctx.AddOutcome("Screen refresh failed: %v", err)
		} else {
			latestShot = shot
		}

		if g.status != nil {
			g.status.Set(types.RoleGUIOperator, types.RoleProcessing)
		}
		decision, err := g.decider.Decide(ctx, cctx.Messages())
		if g.status != nil {
			g.status.Set(types.RoleGUIOperator, types.RoleActive)
		}
		if err != nil {
			g.log.Warn("gui operator decision failed", zap.Error(err))
			cctx.AddOutcome("Decision step failed: %v", err)
			continue
		}

		if decision.Action == DoneAction {
			return Result{
				Summary:       summaryFromDecisionParams(decision.Params, joinOutcomes(cctx.Outcomes())),
				ScreenshotB64: latestShot,
				Status:        types.StatusCompleted,
			}
		}

		switch decision.Action {
		case ClickTargetAction:
			desc, _ := decision.Params["description"].(string)
			if desc == "" {
				cctx.AddOutcome("click_target is missing a description")
				continue
			}
			g.locateAndClick(ctx, cctx, desc, pass, latestShot)

		case capability.ActionClickOCRText, capability.ActionRightClickOCRText, capability.ActionDoubleClickOCR:
			// Pin the id to the pass the decision was made against.
			decision.Params[capability.GenerationParam] = pass.Generation
			g.invoke(ctx, cctx, decision.Action, decision.Params)

		default:
			g.invoke(ctx, cctx, decision.Action, decision.Params)
		}
	}

	g.log.Info("gui operator hit subtask step limit", zap.String("subtask", subtask.ID))
	return Result{
		Summary:       "Step limit reached. " + joinOutcomes(cctx.Outcomes()),
		ScreenshotB64: latestShot,
		Status:        types.StatusFailed,
	}
}

// refresh captures a fresh screenshot, broadcasts it and runs a new OCR
// pass, updating the context with both.
func (g *GUIOperator) refresh(ctx context.Context, cctx *convo.Context) (ocr.Pass, string, error) {
	res, err := g.proxy.Invoke(ctx, capability.ActionScreenshot, map[string]any{})
	if err != nil {
		return ocr.Pass{}, "", err
	}
	shot := res.ScreenshotB64
	if g.bc != nil {
		g.bc.Publish(events.ScreenshotUpdate("guioperator_realtime", shot))
	}

	raw, err := base64.StdEncoding.DecodeString(shot)
	if err != nil {
		return ocr.Pass{}, shot, fmt.Errorf("invalid screenshot encoding: %w", err)
	}
	pass, err := g.ocrProc.Process(raw)
	if err != nil {
		return ocr.Pass{}, shot, err
	}

	cctx.SetScreenshot(shot)
	cctx.SetOCRBlock(pass.PromptBlock())
	return pass, shot, nil
}

// invoke runs one capability action and records the outcome either way.
func (g *GUIOperator) invoke(ctx context.Context, cctx *convo.Context, action string, params map[string]any) {
	res, err := g.proxy.Invoke(ctx, action, params)
	if err != nil {
		cctx.AddOutcome("Action %s failed: %v", action, err)
		return
	}
	cctx.AddOutcome("Action %s succeeded: %s", action, truncate(res.Output, 500))
}

// locateAndClick resolves a described target and clicks it. Order: OCR text
// match, then grounding model; a low-confidence grounding result triggers
// keyboard-native recovery and an OCR retry instead of a blind click.
func (g *GUIOperator) locateAndClick(ctx context.Context, cctx *convo.Context, desc string, pass ocr.Pass, shotB64 string) {
	if el, ok := pass.Match(desc); ok {
		g.invoke(ctx, cctx, capability.ActionClickOCRText, map[string]any{
			"ocr_id": el.ID,
			capability.GenerationParam: pass.Generation,
		})
		return
	}

	result, err := g.grounder.Ground(ctx, desc, shotB64)
	if err != nil {
		cctx.AddOutcome("Grounding for %q failed: %v", desc, err)
		return
	}
	if !g.grounder.LowConfidence(result) {
		g.invoke(ctx, cctx, capability.ActionLeftClick, map[string]any{
			"x": (*result.Coordinates)[0],
			"y": (*result.Coordinates)[1],
		})
		return
	}

	// Low confidence: keyboard-native recovery, then a fresh OCR pass,
	// before giving up on this step. No mouse click is issued on the
	// low-confidence coordinate.
	g.log.Info("low grounding confidence, applying fallback chain",
		zap.String("target", desc),
		zap.Float64("confidence", result.Confidence))
	g.invoke(ctx, cctx, capability.ActionPressKey, map[string]any{"key": recoveryKey})

	freshPass, _, err := g.refresh(ctx, cctx)
	if err != nil {
		cctx.AddOutcome("Recovery refresh failed: %v", err)
		return
	}
	if el, ok := freshPass.Match(desc); ok {
		g.invoke(ctx, cctx, capability.ActionClickOCRText, map[string]any{
			"ocr_id": el.ID,
			capability.GenerationParam: freshPass.Generation,
		})
		return
	}
	cctx.AddOutcome("Could not locate %q: grounding confidence %.2f is below threshold %.2f and no OCR match exists",
		desc, result.Confidence, g.grounder.Threshold())
}
