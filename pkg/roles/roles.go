// Package roles implements the decision policies: the orchestrator that
// plans and delegates, and the two specialists that act through their
// capability proxies.
package roles

import (
	"context"
	"strings"

	"coact/pkg/types"
)

// DoneAction is the explicit "subtask done" signal a specialist's decision
// step emits. Its "summary" parameter becomes the subtask summary.
const DoneAction = "done"

// Result is what a specialist returns to the session controller.
type Result struct {
	Summary       string
	ScreenshotB64 string
	Status        types.TaskStatus // StatusCompleted or StatusFailed
}

// Specialist executes one delegated subtask. The screenshot is the
// orchestrator's view of the screen at delegation time.
type Specialist interface {
	Role() types.AgentRole
	Execute(ctx context.Context, subtask *types.Task, screenshotB64 string) Result
}

func summaryFromDecisionParams(params map[string]any, fallback string) string {
	if s, ok := params["summary"].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}

func joinOutcomes(outcomes []string) string {
	if len(outcomes) == 0 {
		return "No actions were taken."
	}
	return strings.Join(outcomes, "\n")
}

// truncate keeps action outputs from flooding the decision context.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (truncated)"
}
