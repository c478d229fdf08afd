package models

// Action types an agent may emit. The executor rejects unknown types and
// role-restricted types used by the wrong role.
const (
	ActionMove              = "move"
	ActionTake              = "take"
	ActionDrop              = "drop"
	ActionUse               = "use"
	ActionInteract          = "interact"
	ActionSearch            = "search"
	ActionSpeak             = "speak"
	ActionWait              = "wait"
	ActionReflect           = "reflect"
	ActionHelp              = "help"
	ActionJoinConversation  = "join_conversation"
	ActionLeaveConversation = "leave_conversation"
	ActionProposeTask       = "propose_task"
	ActionAcceptTask        = "accept_task"
	ActionReportProgress    = "report_progress"
	ActionCallForVote       = "call_for_vote"
	ActionEnvironmentUpdate = "environment_update"
	ActionAffectAgent       = "affect_agent"
)

// AgentAction is one intended action from an agent response.
type AgentAction struct {
	Type       string         `json:"action_type"`
	Target     string         `json:"target,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// AgentMessage is the optional outgoing message of a response.
type AgentMessage struct {
	Content     string         `json:"content"`
	ToTarget    string         `json:"to_target,omitempty"`
	MessageType MessageType    `json:"message_type,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// AgentResponse is the structured output of one agent turn. The oracle is
// untrusted: every field is validated and clamped before application.
type AgentResponse struct {
	Actions      []AgentAction      `json:"actions,omitempty"`
	Message      *AgentMessage      `json:"message,omitempty"`
	StateChanges map[string]float64 `json:"state_changes,omitempty"`
	Reasoning    string             `json:"reasoning,omitempty"`
}
