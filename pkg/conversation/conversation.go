// Package conversation tracks co-located agent conversations: creation from
// location scans, round-robin turn allocation, idle pausing, and lifecycle.
// Conversations are context for agents, never gates: an agent may speak out
// of turn and the manager records it without veto.
package conversation

import (
	"slices"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a conversation.
type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusEnded  Status = "ended"
)

// idleTicksToPause is how many consecutive silent ticks pause a conversation.
const idleTicksToPause = 2

// Line is one transcript entry.
type Line struct {
	AgentID string `json:"agent_id"`
	Content string `json:"content"`
	Step    int    `json:"step"`
}

// Conversation groups co-located agents. Participant order is stable; the
// speaker rotates over it by index.
type Conversation struct {
	ID               string   `json:"id"`
	LocationID       string   `json:"location_id,omitempty"`
	Participants     []string `json:"participants"`
	SpeakerIndex     int      `json:"current_speaker_index"`
	TurnCounts       map[string]int
	MaxTurnsPerAgent int
	Status           Status `json:"status"`
	Transcript       []Line `json:"transcript,omitempty"`

	idleTicks     int
	spokeThisTick bool
}

// CurrentSpeaker returns the participant whose turn it is, or "" when the
// conversation cannot rotate.
func (c *Conversation) CurrentSpeaker() string {
	if len(c.Participants) == 0 || c.Status == StatusEnded {
		return ""
	}
	return c.Participants[c.SpeakerIndex%len(c.Participants)]
}

// Has reports whether the agent participates in this conversation.
func (c *Conversation) Has(agentID string) bool {
	return slices.Contains(c.Participants, agentID)
}

// RecentLines returns up to n most recent transcript lines, oldest first.
func (c *Conversation) RecentLines(n int) []Line {
	if n <= 0 || n > len(c.Transcript) {
		n = len(c.Transcript)
	}
	return c.Transcript[len(c.Transcript)-n:]
}

func (c *Conversation) remove(agentID string) {
	i := slices.Index(c.Participants, agentID)
	if i < 0 {
		return
	}
	c.Participants = slices.Delete(c.Participants, i, i+1)
	if i < c.SpeakerIndex {
		c.SpeakerIndex--
	}
	if len(c.Participants) > 0 {
		c.SpeakerIndex %= len(c.Participants)
	} else {
		c.SpeakerIndex = 0
	}
}

func newConversation(locationID string, participants []string, maxTurns int) *Conversation {
	return &Conversation{
		ID:               uuid.New().String(),
		LocationID:       locationID,
		Participants:     slices.Clone(participants),
		TurnCounts:       make(map[string]int),
		MaxTurnsPerAgent: maxTurns,
		Status:           StatusActive,
	}
}
