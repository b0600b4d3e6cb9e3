package events

import (
	"sync"

	"coact/pkg/types"
)

// StatusBoard tracks the live status of every role instance and publishes an
// agent_state event on each change.
type StatusBoard struct {
	mu sync.Mutex
	bc *Broadcaster

	orchestrator   types.RoleStatus
	programmer     types.RoleStatus
	guiOperator    types.RoleStatus
	groundingModel types.RoleStatus
}

// NewStatusBoard starts with every role idle.
func NewStatusBoard(bc *Broadcaster) *StatusBoard {
	return &StatusBoard{
		bc:             bc,
		orchestrator:   types.RoleIdle,
		programmer:     types.RoleIdle,
		guiOperator:    types.RoleIdle,
		groundingModel: types.RoleIdle,
	}
}

// Set updates one role's status. The grounding model is addressed with the
// pseudo-role name "GroundingModel".
func (s *StatusBoard) Set(role types.AgentRole, status types.RoleStatus) {
	s.mu.Lock()
	switch role {
	case types.RoleOrchestrator:
		s.orchestrator = status
	case types.RoleProgrammer:
		s.programmer = status
	case types.RoleGUIOperator:
		s.guiOperator = status
	case GroundingModelRole:
		s.groundingModel = status
	}
	snapshot := AgentStateData{
		Orchestrator:   s.orchestrator,
		Programmer:     s.programmer,
		GUIOperator:    s.guiOperator,
		GroundingModel: s.groundingModel,
	}
	s.mu.Unlock()

	if s.bc != nil {
		s.bc.Publish(Event{Type: TypeAgentState, Data: snapshot})
	}
}

// Reset returns every role to idle and publishes the snapshot once.
func (s *StatusBoard) Reset() {
	s.mu.Lock()
	s.orchestrator = types.RoleIdle
	s.programmer = types.RoleIdle
	s.guiOperator = types.RoleIdle
	s.groundingModel = types.RoleIdle
	snapshot := AgentStateData{
		Orchestrator:   types.RoleIdle,
		Programmer:     types.RoleIdle,
		GUIOperator:    types.RoleIdle,
		GroundingModel: types.RoleIdle,
	}
	s.mu.Unlock()

	if s.bc != nil {
		s.bc.Publish(Event{Type: TypeAgentState, Data: snapshot})
	}
}

// GroundingModelRole addresses the grounding adapter on the status board. It
// is not a real agent role and never appears in the task tree.
const GroundingModelRole = types.AgentRole("GroundingModel")
