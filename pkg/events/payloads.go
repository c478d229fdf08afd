package events

import (
	"encoding/json"

	"github.com/emotionsim/emotionsim/pkg/models"
)

// ConnectedPayload is sent once per WebSocket connection after upgrade.
type ConnectedPayload struct {
	RunID        string `json:"run_id"`
	ConnectionID string `json:"connection_id"`
}

// StepStartedPayload opens a step on the stream.
type StepStartedPayload struct {
	RunID     string `json:"run_id"`
	StepIndex int    `json:"step_index"`
}

// StepCompletedPayload closes a step: everything the tick produced.
type StepCompletedPayload struct {
	RunID     string                  `json:"run_id"`
	StepIndex int                     `json:"step_index"`
	Actions   []models.ActionRecord   `json:"actions"`
	Messages  []*models.MessageRecord `json:"messages"`
	Metrics   models.StepMetrics      `json:"metrics"`
}

// MessagePayload mirrors a routed message.
type MessagePayload struct {
	MessageID   string             `json:"message_id"`
	FromAgentID string             `json:"from_agent_id"`
	ToTarget    string             `json:"to_target"`
	MessageType models.MessageType `json:"message_type"`
	Content     string             `json:"content"`
	StepIndex   int                `json:"step_index"`
}

// AgentActionPayload reports one executed action, successful or not.
type AgentActionPayload struct {
	AgentID    string `json:"agent_id"`
	ActionType string `json:"action_type"`
	Target     string `json:"target,omitempty"`
	Success    bool   `json:"success"`
	Detail     string `json:"detail,omitempty"`
	StepIndex  int    `json:"step_index"`
}

// AgentMovedPayload reports a completed hop.
type AgentMovedPayload struct {
	AgentID   string `json:"agent_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	StepIndex int    `json:"step_index"`
}

// MovementFailedPayload reports an unreachable target, at most once per
// (agent, target) per step.
type MovementFailedPayload struct {
	AgentID   string `json:"agent_id"`
	Target    string `json:"target"`
	Reason    string `json:"reason"`
	StepIndex int    `json:"step_index"`
}

// TravelPayload covers travel_started, agent_travelling and agent_rerouted.
// Path is only set on travel_started (the full planned route).
type TravelPayload struct {
	AgentID     string   `json:"agent_id"`
	Destination string   `json:"destination"`
	Path        []string `json:"path,omitempty"`
	Remaining   []string `json:"remaining,omitempty"`
	StepIndex   int      `json:"step_index"`
}

// LocationCreatedPayload reports a dynamically created location.
type LocationCreatedPayload struct {
	LocationID string `json:"location_id"`
	Origin     string `json:"origin"`
	Distance   int    `json:"distance"`
	StepIndex  int    `json:"step_index"`
}

// StateChangePayload reports one agent state field change.
type StateChangePayload struct {
	AgentID   string  `json:"agent_id"`
	Field     string  `json:"field"`
	Old       float64 `json:"old"`
	New       float64 `json:"new"`
	StepIndex int     `json:"step_index"`
}

// StreamTokenPayload carries one LLM output token. High frequency; for
// observers only, never authoritative.
type StreamTokenPayload struct {
	AgentID string `json:"agent_id"`
	Token   string `json:"token"`
}

// AgentErrorPayload reports an agent-local failure (timeout, parse error).
// The agent skips the tick; the run continues.
type AgentErrorPayload struct {
	AgentID   string `json:"agent_id"`
	Error     string `json:"error"`
	StepIndex int    `json:"step_index"`
}

// AgentInteractedPayload reports a free-form interact or help action.
type AgentInteractedPayload struct {
	AgentID   string `json:"agent_id"`
	Target    string `json:"target,omitempty"`
	Detail    string `json:"detail,omitempty"`
	StepIndex int    `json:"step_index"`
}

// ConversationPayload covers conversation_created and conversation_ended.
type ConversationPayload struct {
	ConversationID string   `json:"conversation_id"`
	LocationID     string   `json:"location_id,omitempty"`
	Participants   []string `json:"participants"`
	StepIndex      int      `json:"step_index"`
}

// TaskPayload covers task_proposed and task_accepted.
type TaskPayload struct {
	TaskID      string `json:"task_id"`
	AgentID     string `json:"agent_id"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	StepIndex   int    `json:"step_index"`
}

// VotePayload covers vote_called and vote_closed.
type VotePayload struct {
	VoteID    string   `json:"vote_id"`
	CalledBy  string   `json:"called_by"`
	Proposal  string   `json:"proposal"`
	Options   []string `json:"options,omitempty"`
	Result    string   `json:"result,omitempty"`
	StepIndex int      `json:"step_index"`
}

// RunStatusPayload reports the run's lifecycle state.
type RunStatusPayload struct {
	RunID       string           `json:"run_id"`
	Status      models.RunStatus `json:"status"`
	CurrentStep int              `json:"current_step"`
}

// RunCompletedPayload closes the stream of a completed run.
type RunCompletedPayload struct {
	RunID      string          `json:"run_id"`
	Steps      int             `json:"steps"`
	Metrics    map[string]any  `json:"metrics,omitempty"`
	Evaluation json.RawMessage `json:"evaluation,omitempty"`
}

// ErrorPayload reports a run-fatal error.
type ErrorPayload struct {
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}
