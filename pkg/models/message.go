package models

import "time"

// MessageType selects the routing rule for a message.
type MessageType string

const (
	MessageDirect    MessageType = "direct"
	MessageRoom      MessageType = "room"
	MessageBroadcast MessageType = "broadcast"
)

// BroadcastTarget is the reserved to_target token for broadcast messages.
const BroadcastTarget = "broadcast"

// MessageRecord is one routed message. Seq is the per-run publish sequence;
// history ordering is (step_index, seq).
type MessageRecord struct {
	ID          string         `json:"id"`
	RunID       string         `json:"run_id"`
	FromAgentID string         `json:"from_agent_id"`
	ToTarget    string         `json:"to_target"`
	MessageType MessageType    `json:"message_type"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	StepIndex   int            `json:"step_index"`
	Seq         int            `json:"seq"`
	CreatedAt   time.Time      `json:"created_at"`
}
