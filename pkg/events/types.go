// Package events provides the typed event stream of a run: an in-process
// emitter with per-subscriber buffers, and a WebSocket connection manager
// that fans the stream out to external observers.
//
// Per-step ordering is fixed: step_started precedes every step-scoped event
// (stream_token, message, agent_action, movement events, agent_error,
// interleaved in emission order), and step_completed closes the step. The
// engine blocks on full subscriber buffers; events are never dropped.
package events

import "time"

// Event types carried in the envelope's "event" field.
const (
	EventConnected   = "connected"
	EventInitialized = "initialized"

	EventStepStarted   = "step_started"
	EventStepCompleted = "step_completed"

	EventMessage        = "message"
	EventAgentAction    = "agent_action"
	EventAgentMoved     = "agent_moved"
	EventMovementFailed = "movement_failed"
	EventAgentRerouted  = "agent_rerouted"
	EventTravelStarted  = "travel_started"
	EventAgentTravel    = "agent_travelling"
	EventLocationNew    = "location_created"
	EventStateChange    = "state_change"
	EventStreamToken    = "stream_token"
	EventAgentError     = "agent_error"
	EventAgentInteract  = "agent_interacted"

	EventConversationCreated = "conversation_created"
	EventConversationEnded   = "conversation_ended"
	EventTaskProposed        = "task_proposed"
	EventTaskAccepted        = "task_accepted"
	EventVoteCalled          = "vote_called"
	EventVoteClosed          = "vote_closed"

	EventRunStatus    = "run_status"
	EventRunCompleted = "run_completed"
	EventRunStopped   = "run_stopped"
	EventError        = "error"

	EventPing = "ping"
	EventPong = "pong"
)

// Event is the envelope delivered to every subscriber and serialized as-is
// onto the WebSocket stream.
type Event struct {
	Type      string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the JSON structure for client → server WebSocket
// messages. Supported types: "ping", "get_status".
type ClientMessage struct {
	Type string `json:"type"`
}
