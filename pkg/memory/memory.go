// Package memory holds per-agent episodic and relationship memory. Episodic
// entries live in a bounded sliding window; relationships track trust and
// sentiment toward other agents across interactions.
package memory

import (
	"fmt"
	"time"
)

const (
	// DefaultWindow is the episodic sliding-window size.
	DefaultWindow = 50
	// maxNotes bounds per-relationship note history.
	maxNotes = 10
)

// Sentiment summarizes how the agent currently feels about another agent.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Relationship tracks one other agent from this agent's point of view.
type Relationship struct {
	AgentID          string    `json:"agent_id"`
	TrustLevel       float64   `json:"trust_level"` // 0..10
	Sentiment        Sentiment `json:"sentiment"`
	InteractionCount int       `json:"interaction_count"`
	Notes            []string  `json:"notes,omitempty"`
	FirstMetStep     int       `json:"first_met_step"`
	FirstMetLocation string    `json:"first_met_location,omitempty"`
	LastInteraction  time.Time `json:"last_interaction"`
}

// Memory is owned by a single agent and only mutated from its turn.
type Memory struct {
	window        int
	episodic      []string
	relationships map[string]*Relationship
	arrival       string
}

// New creates a memory with the given episodic window size; window <= 0
// falls back to DefaultWindow.
func New(window int) *Memory {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Memory{
		window:        window,
		relationships: make(map[string]*Relationship),
	}
}

// Remember appends an episodic entry, evicting the oldest past the window.
func (m *Memory) Remember(event string) {
	m.episodic = append(m.episodic, event)
	if len(m.episodic) > m.window {
		m.episodic = m.episodic[len(m.episodic)-m.window:]
	}
}

// Recent returns up to n most recent episodic entries, oldest first.
func (m *Memory) Recent(n int) []string {
	if n <= 0 || n > len(m.episodic) {
		n = len(m.episodic)
	}
	return m.episodic[len(m.episodic)-n:]
}

// RecordInteraction updates (or creates) the relationship with another
// agent. trustDelta is clamped so trust stays in [0,10]; first contact is
// stamped with the current step and location.
func (m *Memory) RecordInteraction(otherID string, trustDelta float64, note string, step int, location string) *Relationship {
	rel, ok := m.relationships[otherID]
	if !ok {
		rel = &Relationship{
			AgentID:          otherID,
			TrustLevel:       5,
			Sentiment:        SentimentNeutral,
			FirstMetStep:     step,
			FirstMetLocation: location,
		}
		m.relationships[otherID] = rel
		m.Remember(fmt.Sprintf("met %s at %s", otherID, location))
	}
	rel.InteractionCount++
	rel.TrustLevel = clamp(rel.TrustLevel+trustDelta, 0, 10)
	rel.LastInteraction = time.Now().UTC()
	if note != "" {
		rel.Notes = append(rel.Notes, note)
		if len(rel.Notes) > maxNotes {
			rel.Notes = rel.Notes[len(rel.Notes)-maxNotes:]
		}
	}
	switch {
	case rel.TrustLevel >= 6.5:
		rel.Sentiment = SentimentPositive
	case rel.TrustLevel <= 3.5:
		rel.Sentiment = SentimentNegative
	default:
		rel.Sentiment = SentimentNeutral
	}
	return rel
}

// Relationship returns the tracked relationship with otherID, or nil.
func (m *Memory) Relationship(otherID string) *Relationship {
	return m.relationships[otherID]
}

// Relationships returns all tracked relationships.
func (m *Memory) Relationships() map[string]*Relationship {
	return m.relationships
}

// SetArrival records the context string shown to the agent after moving.
func (m *Memory) SetArrival(ctx string) { m.arrival = ctx }

// Arrival returns and clears the pending arrival context.
func (m *Memory) Arrival() string {
	a := m.arrival
	m.arrival = ""
	return a
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
