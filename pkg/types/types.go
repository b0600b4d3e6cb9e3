package types

import "time"

// AgentRole identifies who owns a task or a conversation.
type AgentRole string

const (
	RoleUser         AgentRole = "User"
	RoleOrchestrator AgentRole = "Orchestrator"
	RoleProgrammer   AgentRole = "Programmer"
	RoleGUIOperator  AgentRole = "GUIOperator"
)

// TaskStatus tracks the lifecycle of a task. A task transitions out of
// StatusActive exactly once and is immutable afterwards except for status.
type TaskStatus string

const (
	StatusActive    TaskStatus = "active"
	StatusDelegated TaskStatus = "delegated"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// RoleStatus is the externally observable state of a role instance.
type RoleStatus string

const (
	RoleIdle       RoleStatus = "idle"
	RoleActive     RoleStatus = "active"
	RoleProcessing RoleStatus = "processing"
	RoleError      RoleStatus = "error"
)

// Task is one node in the session's task tree. The session controller owns
// the tree; roles only read tasks and report outcomes.
type Task struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	AssignedRole AgentRole  `json:"assigned_role"`
	Status       TaskStatus `json:"status"`
	ParentID     string     `json:"parent_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ContentPart is one piece of a multimodal message: text, an image, or both.
// Images are base64 encoded PNG data.
type ContentPart struct {
	Text     string `json:"text,omitempty"`
	ImageB64 string `json:"image,omitempty"`
}

// Message is one entry in a role's conversation.
type Message struct {
	Role  string        `json:"role"` // system|user|assistant
	Parts []ContentPart `json:"parts"`
}

// ActionKind discriminates the closed ActionCall variant.
type ActionKind int

const (
	ActionDelegate ActionKind = iota
	ActionExecute
	ActionComplete
)

// ActionCall is the single unit of side effect a decision step may request.
// Exactly one of the field groups is meaningful, selected by Kind.
type ActionCall struct {
	Kind ActionKind

	// Delegate
	Subtask    string
	TargetRole AgentRole

	// Execute
	Name   string
	Params map[string]any

	// Complete
	Summary string
}

// ActionResult is what a capability invocation returns to the calling role.
type ActionResult struct {
	Output        string `json:"output,omitempty"`
	Stdout        string `json:"stdout,omitempty"`
	Stderr        string `json:"stderr,omitempty"`
	ExitCode      int    `json:"exit_code,omitempty"`
	ScreenshotB64 string `json:"screenshot,omitempty"`
}

// BBox is a screen-space bounding box.
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the pixel at the middle of the box, the point capability
// actions click when targeting the element.
func (b BBox) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// OCRElement is one detected text region. IDs are sequential within a single
// OCR pass and are never valid across passes.
type OCRElement struct {
	ID         int     `json:"id"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// GroundingResult is the outcome of a visual grounding request. Nil
// Coordinates means the request is still in progress when reported to
// observers; a finished result always carries coordinates or an error.
type GroundingResult struct {
	ModelName      string        `json:"model_name"`
	Instruction    string        `json:"instruction"`
	Coordinates    *[2]int       `json:"coordinates"`
	Confidence     float64       `json:"confidence"`
	ProcessingTime time.Duration `json:"processing_time"`
}
