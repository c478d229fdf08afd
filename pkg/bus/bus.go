// Package bus routes messages between agents: direct to one inbox, room to
// every agent at a location, broadcast to every active agent. History is an
// insertion-ordered log; inbox views are per-agent and clear on read.
package bus

import (
	"time"

	"github.com/google/uuid"

	"github.com/emotionsim/emotionsim/pkg/models"
)

// Roster resolves recipients at publish time. The engine implements it over
// the live agent set.
type Roster interface {
	// ActiveAgents returns the ids of all active agents in the run.
	ActiveAgents() []string
	// AgentsAt returns the ids of active agents at the given location.
	AgentsAt(locationID string) []string
}

// Filter narrows History queries. Zero values mean no constraint; ToStep is
// inclusive and only applied when positive.
type Filter struct {
	Agent    string // matches sender or direct recipient
	Room     string // matches room-typed messages to this location
	FromStep int
	ToStep   int
	Limit    int
}

// Bus is the per-run message log plus per-agent inboxes. Single-writer: only
// the engine publishes, from within the active agent's turn.
type Bus struct {
	runID   string
	roster  Roster
	seq     int
	history []*models.MessageRecord
	inboxes map[string][]*models.MessageRecord
}

// New creates an empty bus for a run.
func New(runID string, roster Roster) *Bus {
	return &Bus{
		runID:   runID,
		roster:  roster,
		inboxes: make(map[string][]*models.MessageRecord),
	}
}

// Publish assigns id/sequence/timestamp, appends to history, and delivers to
// the recipients implied by the message type. Delivery is synchronous: the
// message is in every recipient inbox when Publish returns. Returns the
// completed record.
func (b *Bus) Publish(from string, msg models.AgentMessage, stepIndex int) *models.MessageRecord {
	rec := &models.MessageRecord{
		ID:          uuid.New().String(),
		RunID:       b.runID,
		FromAgentID: from,
		ToTarget:    msg.ToTarget,
		MessageType: msg.MessageType,
		Content:     msg.Content,
		Metadata:    msg.Metadata,
		StepIndex:   stepIndex,
		Seq:         b.seq,
		CreatedAt:   time.Now().UTC(),
	}
	b.seq++
	b.history = append(b.history, rec)

	switch rec.MessageType {
	case models.MessageDirect:
		b.deliver(rec.ToTarget, rec)
	case models.MessageRoom:
		for _, id := range b.roster.AgentsAt(rec.ToTarget) {
			if id != from {
				b.deliver(id, rec)
			}
		}
	case models.MessageBroadcast:
		for _, id := range b.roster.ActiveAgents() {
			if id != from {
				b.deliver(id, rec)
			}
		}
	}
	return rec
}

func (b *Bus) deliver(agentID string, rec *models.MessageRecord) {
	b.inboxes[agentID] = append(b.inboxes[agentID], rec)
}

// Drain returns the agent's inbox in insertion order and clears it.
func (b *Bus) Drain(agentID string) []*models.MessageRecord {
	msgs := b.inboxes[agentID]
	delete(b.inboxes, agentID)
	return msgs
}

// Pending reports how many undelivered messages sit in the agent's inbox.
func (b *Bus) Pending(agentID string) int {
	return len(b.inboxes[agentID])
}

// History returns log entries matching the filter, ordered by
// (step_index, seq).
func (b *Bus) History(f Filter) []*models.MessageRecord {
	var out []*models.MessageRecord
	for _, rec := range b.history {
		if f.Agent != "" && rec.FromAgentID != f.Agent &&
			!(rec.MessageType == models.MessageDirect && rec.ToTarget == f.Agent) {
			continue
		}
		if f.Room != "" && !(rec.MessageType == models.MessageRoom && rec.ToTarget == f.Room) {
			continue
		}
		if rec.StepIndex < f.FromStep {
			continue
		}
		if f.ToStep > 0 && rec.StepIndex > f.ToStep {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// StepMessages returns all messages published during the given step.
func (b *Bus) StepMessages(stepIndex int) []*models.MessageRecord {
	return b.History(Filter{FromStep: stepIndex, ToStep: stepIndex})
}
