package events

import (
	"time"

	"coact/pkg/types"
)

// Event is one observer-visible record. Data marshals to the wire shape
// {"type": ..., "data": ...}.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	TypeUserTaskStarted    = "user_task_started"
	TypeTaskDelegated      = "task_delegated"
	TypeSubtaskCompleted   = "subtask_completed"
	TypeTaskCompleted      = "task_completed"
	TypeAgentState         = "agent_state"
	TypeOCRUpdate          = "ocr_update"
	TypeGroundingUpdate    = "grounding_update"
	TypeFunctionCallUpdate = "function_call_update"
	TypeScreenshotUpdate   = "screenshot_update"
	TypeUIReset            = "ui_reset"
)

// TaskStarted announces the root task at session start.
func TaskStarted(task *types.Task) Event {
	return Event{Type: TypeUserTaskStarted, Data: map[string]any{"task": task}}
}

// TaskDelegatedData accompanies every Delegate decision.
type TaskDelegatedData struct {
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to"`
	ParentTask  string `json:"parent_task"`
}

func TaskDelegated(t *types.Task) Event {
	return Event{Type: TypeTaskDelegated, Data: TaskDelegatedData{
		TaskID:      t.ID,
		Description: t.Description,
		AssignedTo:  string(t.AssignedRole),
		ParentTask:  t.ParentID,
	}}
}

func SubtaskCompleted(taskID string) Event {
	return Event{Type: TypeSubtaskCompleted, Data: map[string]any{"task_id": taskID}}
}

func TaskCompleted(task *types.Task) Event {
	return Event{Type: TypeTaskCompleted, Data: map[string]any{"task": task}}
}

// AgentStateData is the status snapshot of every role instance.
type AgentStateData struct {
	Orchestrator   types.RoleStatus `json:"orchestrator"`
	Programmer     types.RoleStatus `json:"programmer"`
	GUIOperator    types.RoleStatus `json:"gui_operator"`
	GroundingModel types.RoleStatus `json:"grounding_model"`
}

func OCRUpdate(elements []types.OCRElement) Event {
	if elements == nil {
		elements = []types.OCRElement{}
	}
	return Event{Type: TypeOCRUpdate, Data: map[string]any{"ocr_results": elements}}
}

// GroundingUpdateData is published twice per grounding request: once with nil
// coordinates when the request starts and once with the final result.
type GroundingUpdateData struct {
	ModelName      string  `json:"model_name"`
	Instruction    string  `json:"instruction"`
	Coordinates    *[2]int `json:"coordinates"`
	Confidence     float64 `json:"confidence"`
	ProcessingTime float64 `json:"processing_time"`
}

func GroundingUpdate(r types.GroundingResult) Event {
	return Event{Type: TypeGroundingUpdate, Data: GroundingUpdateData{
		ModelName:      r.ModelName,
		Instruction:    r.Instruction,
		Coordinates:    r.Coordinates,
		Confidence:     r.Confidence,
		ProcessingTime: r.ProcessingTime.Seconds(),
	}}
}

// FunctionCallUpdateData is published before each capability invocation.
type FunctionCallUpdateData struct {
	AgentName    string         `json:"agent_name"`
	FunctionName string         `json:"function_name"`
	Parameters   map[string]any `json:"parameters"`
	Timestamp    time.Time      `json:"timestamp"`
}

func FunctionCall(agent types.AgentRole, name string, params map[string]any) Event {
	return Event{Type: TypeFunctionCallUpdate, Data: FunctionCallUpdateData{
		AgentName:    string(agent),
		FunctionName: name,
		Parameters:   params,
		Timestamp:    time.Now(),
	}}
}

// ScreenshotUpdateData carries a base64 PNG to observers. Types are
// "current", "previous" or "<agent>_realtime".
type ScreenshotUpdateData struct {
	ScreenshotType string    `json:"screenshot_type"`
	ScreenshotData string    `json:"screenshot_data"`
	Timestamp      time.Time `json:"timestamp"`
}

func ScreenshotUpdate(kind, b64 string) Event {
	return Event{Type: TypeScreenshotUpdate, Data: ScreenshotUpdateData{
		ScreenshotType: kind,
		ScreenshotData: b64,
		Timestamp:      time.Now(),
	}}
}

func UIReset() Event {
	return Event{Type: TypeUIReset}
}
