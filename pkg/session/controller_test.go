package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coact/pkg/computer"
	"coact/pkg/convo"
	"coact/pkg/events"
	"coact/pkg/llm"
	"coact/pkg/roles"
	"coact/pkg/types"
)

// scriptDecider replays a fixed decision sequence for the orchestrator; when
// repeat is set the last decision repeats forever.
type scriptDecider struct {
	decisions []llm.Decision
	repeat    bool
	i         int
}

func (s *scriptDecider) Decide(ctx context.Context, messages []types.Message) (llm.Decision, error) {
	idx := s.i
	if idx >= len(s.decisions) {
		if !s.repeat {
			return llm.Decision{}, context.Canceled
		}
		idx = len(s.decisions) - 1
	} else {
		s.i++
	}
	d := s.decisions[idx]
	if d.Params == nil {
		d.Params = map[string]any{}
	}
	return d, nil
}

// fakeSpecialist completes every subtask with a canned result.
type fakeSpecialist struct {
	role     types.AgentRole
	result   roles.Result
	subtasks []string
}

func (f *fakeSpecialist) Role() types.AgentRole { return f.role }

func (f *fakeSpecialist) Execute(ctx context.Context, subtask *types.Task, screenshotB64 string) roles.Result {
	f.subtasks = append(f.subtasks, subtask.Description)
	return f.result
}

func newTestOrchestrator(d llm.Decider) *roles.Orchestrator {
	return roles.NewOrchestrator(d, convo.NewManager(8000), nil, nil)
}

func drain(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for len(ch) > 0 {
		out = append(out, <-ch)
	}
	return out
}

func eventTypes(evts []events.Event) []string {
	out := make([]string, 0, len(evts))
	for _, e := range evts {
		out = append(out, e.Type)
	}
	return out
}

func TestRunSingleDelegationCompletes(t *testing.T) {
	bc := events.NewBroadcaster(nil)
	defer bc.Close()
	ch, cancel := bc.Subscribe(64)
	defer cancel()

	decider := &scriptDecider{decisions: []llm.Decision{
		{Action: "delegate_to_programmer", Params: map[string]any{"subtask": "Create /tmp/reports and list it"}},
		{Action: "task_completed", Params: map[string]any{"summary": "Directory created and verified."}},
	}}
	specialist := &fakeSpecialist{
		role:   types.RoleProgrammer,
		result: roles.Result{Summary: "Created and listed /tmp/reports.", Status: types.StatusCompleted},
	}
	surface := computer.NewFake()

	c := NewController(surface, newTestOrchestrator(decider),
		[]roles.Specialist{specialist}, bc, nil, nil, 5, nil)
	outcome := c.Run(context.Background(), "create a reports directory")

	assert.Equal(t, types.StatusCompleted, outcome.Status)
	assert.Equal(t, "Directory created and verified.", outcome.Summary)
	assert.Empty(t, outcome.Reason)
	assert.Equal(t, []string{"Create /tmp/reports and list it"}, specialist.subtasks)

	require.Len(t, outcome.TaskTree, 2)
	assert.Equal(t, types.StatusCompleted, outcome.TaskTree[0].Status)
	assert.Equal(t, types.StatusCompleted, outcome.TaskTree[1].Status)

	assert.True(t, surface.Closed, "surface must be released at session end")

	evts := drain(ch)
	kinds := eventTypes(evts)
	assert.Equal(t, events.TypeUserTaskStarted, kinds[0])
	assert.Equal(t, events.TypeUIReset, kinds[len(kinds)-1])

	// A shell-only task never consults the grounding model.
	assert.NotContains(t, kinds, events.TypeGroundingUpdate)

	delegated, completed := -1, -1
	for i, k := range kinds {
		if k == events.TypeTaskDelegated && delegated == -1 {
			delegated = i
		}
		if k == events.TypeSubtaskCompleted && completed == -1 {
			completed = i
		}
	}
	require.NotEqual(t, -1, delegated)
	require.NotEqual(t, -1, completed)
	assert.Less(t, delegated, completed)
}

func TestRunIterationLimit(t *testing.T) {
	// The orchestrator keeps finding more work; the budget cuts it off.
	decider := &scriptDecider{
		decisions: []llm.Decision{
			{Action: "delegate_to_programmer", Params: map[string]any{"subtask": "one more thing"}},
		},
		repeat: true,
	}
	specialist := &fakeSpecialist{
		role:   types.RoleProgrammer,
		result: roles.Result{Summary: "done for now", Status: types.StatusCompleted},
	}

	c := NewController(computer.NewFake(), newTestOrchestrator(decider),
		[]roles.Specialist{specialist}, nil, nil, nil, 2, nil)
	outcome := c.Run(context.Background(), "an endless task")

	assert.Equal(t, types.StatusFailed, outcome.Status)
	assert.Equal(t, IterationLimitReason, outcome.Reason)
	assert.Len(t, specialist.subtasks, 2)

	// The full tree is reported: the failed root plus every delegation.
	require.Len(t, outcome.TaskTree, 3)
	assert.Equal(t, types.StatusFailed, outcome.TaskTree[0].Status)
	assert.Equal(t, types.StatusCompleted, outcome.TaskTree[1].Status)
	assert.Equal(t, types.StatusCompleted, outcome.TaskTree[2].Status)
}

func TestRunFailedSubtaskRetries(t *testing.T) {
	decider := &scriptDecider{decisions: []llm.Decision{
		{Action: "delegate_to_gui_operator", Params: map[string]any{"subtask": "close the dialog"}},
		{Action: "delegate_to_gui_operator", Params: map[string]any{"subtask": "close the dialog with the keyboard"}},
		{Action: "task_completed", Params: map[string]any{"summary": "Dialog closed."}},
	}}
	// Fails the first subtask; the orchestrator plans a different approach.
	specialist := &fakeSpecialist{
		role:   types.RoleGUIOperator,
		result: roles.Result{Summary: "could not find the button", Status: types.StatusFailed},
	}

	c := NewController(computer.NewFake(), newTestOrchestrator(decider),
		[]roles.Specialist{specialist}, nil, nil, nil, 5, nil)
	outcome := c.Run(context.Background(), "close the popup")

	assert.Equal(t, types.StatusCompleted, outcome.Status)
	require.Len(t, outcome.TaskTree, 2)
	assert.Equal(t, types.StatusFailed, outcome.TaskTree[1].Status)
}

func TestRunNoSpecialistForRole(t *testing.T) {
	decider := &scriptDecider{decisions: []llm.Decision{
		{Action: "delegate_to_gui_operator", Params: map[string]any{"subtask": "click something"}},
		{Action: "task_completed", Params: map[string]any{"summary": "gave up on the click"}},
	}}

	// Only a programmer is registered.
	specialist := &fakeSpecialist{role: types.RoleProgrammer}
	c := NewController(computer.NewFake(), newTestOrchestrator(decider),
		[]roles.Specialist{specialist}, nil, nil, nil, 5, nil)
	outcome := c.Run(context.Background(), "a gui task")

	assert.Equal(t, types.StatusCompleted, outcome.Status)
	assert.Empty(t, specialist.subtasks)
	require.Len(t, outcome.TaskTree, 2)
	assert.Equal(t, types.StatusFailed, outcome.TaskTree[1].Status)
}

func TestRunImmediateCompletion(t *testing.T) {
	decider := &scriptDecider{decisions: []llm.Decision{
		{Action: "task_completed", Params: map[string]any{"summary": "Nothing to do."}},
	}}

	c := NewController(computer.NewFake(), newTestOrchestrator(decider),
		nil, nil, nil, nil, 5, nil)
	outcome := c.Run(context.Background(), "a no-op task")

	assert.Equal(t, types.StatusCompleted, outcome.Status)
	assert.Equal(t, "Nothing to do.", outcome.Summary)
	require.Len(t, outcome.TaskTree, 1)
	assert.Equal(t, types.StatusCompleted, outcome.TaskTree[0].Status)
}

func TestRunScreenshotEventsPerIteration(t *testing.T) {
	bc := events.NewBroadcaster(nil)
	defer bc.Close()
	ch, cancel := bc.Subscribe(64)
	defer cancel()

	decider := &scriptDecider{decisions: []llm.Decision{
		{Action: "task_completed", Params: map[string]any{"summary": "done"}},
	}}
	c := NewController(computer.NewFake(), newTestOrchestrator(decider),
		nil, bc, nil, nil, 5, nil)
	c.Run(context.Background(), "task")

	var current, previous int
	for _, evt := range drain(ch) {
		if evt.Type != events.TypeScreenshotUpdate {
			continue
		}
		switch evt.Data.(events.ScreenshotUpdateData).ScreenshotType {
		case "current":
			current++
		case "previous":
			previous++
		}
	}
	// One planning capture; no prior screenshot existed to re-publish.
	assert.Equal(t, 1, current)
	assert.Equal(t, 0, previous)
}
