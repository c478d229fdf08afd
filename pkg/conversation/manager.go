package conversation

import "slices"

// Manager owns all conversations of a run. Single-writer: the engine calls
// it from the tick loop only.
type Manager struct {
	maxTurnsPerAgent int
	conversations    map[string]*Conversation
	// order keeps creation order so iteration is deterministic across
	// same-seed runs.
	order   []string
	byAgent map[string]string
}

// NewManager creates an empty manager. maxTurnsPerAgent caps how many turns
// any participant may take before the conversation ends; <= 0 disables the
// cap.
func NewManager(maxTurnsPerAgent int) *Manager {
	return &Manager{
		maxTurnsPerAgent: maxTurnsPerAgent,
		conversations:    make(map[string]*Conversation),
		byAgent:          make(map[string]string),
	}
}

// SyncReport lists lifecycle changes produced by a location scan.
type SyncReport struct {
	Created []*Conversation
	Ended   []*Conversation
}

// Sync scans agent locations at the start of a tick. agentOrder fixes group
// ordering (template order); locations maps active agent id → location id.
// Agents that moved away are removed from their conversation; conversations
// dropping below two participants end; co-located groups of two or more
// without a live conversation get one.
func (m *Manager) Sync(agentOrder []string, locations map[string]string) SyncReport {
	var report SyncReport

	// Drop participants that left the conversation's location or went inactive.
	for _, conv := range m.inOrder() {
		if conv.Status == StatusEnded || conv.LocationID == "" {
			continue
		}
		for _, id := range slices.Clone(conv.Participants) {
			if loc, ok := locations[id]; !ok || loc != conv.LocationID {
				conv.remove(id)
				delete(m.byAgent, id)
			}
		}
		if len(conv.Participants) < 2 {
			report.Ended = append(report.Ended, m.end(conv))
		}
	}

	// Group unengaged agents by location, preserving agent order.
	groups := make(map[string][]string)
	var groupOrder []string
	for _, id := range agentOrder {
		loc, ok := locations[id]
		if !ok {
			continue
		}
		if _, engaged := m.byAgent[id]; engaged {
			continue
		}
		if len(groups[loc]) == 0 {
			groupOrder = append(groupOrder, loc)
		}
		groups[loc] = append(groups[loc], id)
	}
	for _, loc := range groupOrder {
		members := groups[loc]
		if len(members) < 2 {
			continue
		}
		conv := newConversation(loc, members, m.maxTurnsPerAgent)
		m.conversations[conv.ID] = conv
		m.order = append(m.order, conv.ID)
		for _, id := range members {
			m.byAgent[id] = conv.ID
		}
		report.Created = append(report.Created, conv)
	}
	return report
}

// For returns the live conversation the agent participates in, or nil.
func (m *Manager) For(agentID string) *Conversation {
	id, ok := m.byAgent[agentID]
	if !ok {
		return nil
	}
	return m.conversations[id]
}

// Get returns a conversation by id, or nil.
func (m *Manager) Get(id string) *Conversation {
	return m.conversations[id]
}

// RecordMessage attributes a spoken line to the agent's conversation. A
// message from a participant resumes a paused conversation and counts a
// turn; exceeding the per-agent cap ends the conversation (returned true).
func (m *Manager) RecordMessage(agentID, content string, step int) (ended *Conversation) {
	conv := m.For(agentID)
	if conv == nil || conv.Status == StatusEnded {
		return nil
	}
	conv.Transcript = append(conv.Transcript, Line{AgentID: agentID, Content: content, Step: step})
	conv.TurnCounts[agentID]++
	conv.spokeThisTick = true
	conv.idleTicks = 0
	if conv.Status == StatusPaused {
		conv.Status = StatusActive
	}
	if conv.MaxTurnsPerAgent > 0 && conv.TurnCounts[agentID] > conv.MaxTurnsPerAgent {
		return m.end(conv)
	}
	return nil
}

// Join adds the agent to the live conversation at the location. Returns the
// conversation, or nil if none exists there.
func (m *Manager) Join(agentID, locationID string) *Conversation {
	if m.For(agentID) != nil {
		return m.For(agentID)
	}
	// Oldest live conversation at the location wins.
	for _, conv := range m.inOrder() {
		if conv.Status != StatusEnded && conv.LocationID == locationID {
			conv.Participants = append(conv.Participants, agentID)
			m.byAgent[agentID] = conv.ID
			return conv
		}
	}
	return nil
}

// Leave removes the agent from its conversation. Returns the conversation
// if it ended as a result.
func (m *Manager) Leave(agentID string) (ended *Conversation) {
	conv := m.For(agentID)
	if conv == nil {
		return nil
	}
	conv.remove(agentID)
	delete(m.byAgent, agentID)
	if len(conv.Participants) < 2 {
		return m.end(conv)
	}
	return nil
}

// EndOfTick advances every live conversation: the speaker index rotates
// whether or not the speaker spoke (no starvation), and conversations silent
// for two consecutive ticks pause.
func (m *Manager) EndOfTick() {
	for _, conv := range m.inOrder() {
		if conv.Status == StatusEnded || len(conv.Participants) == 0 {
			continue
		}
		conv.SpeakerIndex = (conv.SpeakerIndex + 1) % len(conv.Participants)
		if conv.spokeThisTick {
			conv.idleTicks = 0
		} else {
			conv.idleTicks++
			if conv.Status == StatusActive && conv.idleTicks >= idleTicksToPause {
				conv.Status = StatusPaused
			}
		}
		conv.spokeThisTick = false
	}
}

// Cleanup drops ended conversations from the registry.
func (m *Manager) Cleanup() {
	kept := m.order[:0]
	for _, id := range m.order {
		if m.conversations[id].Status == StatusEnded {
			delete(m.conversations, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
}

func (m *Manager) inOrder() []*Conversation {
	out := make([]*Conversation, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.conversations[id])
	}
	return out
}

func (m *Manager) end(conv *Conversation) *Conversation {
	conv.Status = StatusEnded
	for _, id := range conv.Participants {
		delete(m.byAgent, id)
	}
	return conv
}
