package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncCreatesConversationForCoLocatedAgents(t *testing.T) {
	m := NewManager(20)

	report := m.Sync([]string{"alice", "bob", "carol"}, map[string]string{
		"alice": "room1",
		"bob":   "room1",
		"carol": "room2",
	})

	require.Len(t, report.Created, 1)
	conv := report.Created[0]
	assert.Equal(t, "room1", conv.LocationID)
	assert.Equal(t, []string{"alice", "bob"}, conv.Participants)
	assert.Equal(t, StatusActive, conv.Status)
	assert.Same(t, conv, m.For("alice"))
	assert.Nil(t, m.For("carol"))

	// A second scan with unchanged locations creates nothing new.
	report = m.Sync([]string{"alice", "bob", "carol"}, map[string]string{
		"alice": "room1", "bob": "room1", "carol": "room2",
	})
	assert.Empty(t, report.Created)
}

func TestSyncEndsConversationWhenParticipantLeaves(t *testing.T) {
	m := NewManager(20)
	m.Sync([]string{"alice", "bob"}, map[string]string{"alice": "room1", "bob": "room1"})

	report := m.Sync([]string{"alice", "bob"}, map[string]string{"alice": "room1", "bob": "room2"})
	require.Len(t, report.Ended, 1)
	assert.Equal(t, StatusEnded, report.Ended[0].Status)
	assert.Nil(t, m.For("alice"))
}

func TestRoundRobinTurns(t *testing.T) {
	m := NewManager(20)
	report := m.Sync([]string{"a", "b", "c"}, map[string]string{"a": "r", "b": "r", "c": "r"})
	conv := report.Created[0]

	// Tick 1: a speaks.
	assert.Equal(t, "a", conv.CurrentSpeaker())
	m.RecordMessage("a", "hello", 1)
	m.EndOfTick()

	// Tick 2: b's turn; b stays silent, index advances anyway.
	assert.Equal(t, "b", conv.CurrentSpeaker())
	m.EndOfTick()

	// Tick 3: c's turn.
	assert.Equal(t, "c", conv.CurrentSpeaker())
	m.RecordMessage("c", "hi", 3)

	require.Len(t, conv.Transcript, 2)
	assert.Equal(t, "a", conv.Transcript[0].AgentID)
	assert.Equal(t, "c", conv.Transcript[1].AgentID)
}

func TestPauseAfterTwoIdleTicksAndResumeOnMessage(t *testing.T) {
	m := NewManager(20)
	report := m.Sync([]string{"a", "b"}, map[string]string{"a": "r", "b": "r"})
	conv := report.Created[0]

	m.EndOfTick()
	assert.Equal(t, StatusActive, conv.Status)
	m.EndOfTick()
	assert.Equal(t, StatusPaused, conv.Status)

	m.RecordMessage("a", "still here?", 3)
	assert.Equal(t, StatusActive, conv.Status)
}

func TestTurnCapEndsConversation(t *testing.T) {
	m := NewManager(2)
	report := m.Sync([]string{"a", "b"}, map[string]string{"a": "r", "b": "r"})
	conv := report.Created[0]

	assert.Nil(t, m.RecordMessage("a", "one", 1))
	assert.Nil(t, m.RecordMessage("a", "two", 2))
	ended := m.RecordMessage("a", "three", 3)
	require.NotNil(t, ended)
	assert.Equal(t, StatusEnded, conv.Status)
}

func TestJoinAndLeave(t *testing.T) {
	m := NewManager(20)
	m.Sync([]string{"a", "b"}, map[string]string{"a": "r", "b": "r"})

	conv := m.Join("c", "r")
	require.NotNil(t, conv)
	assert.Equal(t, []string{"a", "b", "c"}, conv.Participants)

	assert.Nil(t, m.Join("d", "elsewhere"))

	assert.Nil(t, m.Leave("c"))
	ended := m.Leave("a")
	require.NotNil(t, ended)
	assert.Equal(t, StatusEnded, ended.Status)

	m.Cleanup()
	assert.Nil(t, m.Get(conv.ID))
}

func TestSpeakerIndexStableAfterRemoval(t *testing.T) {
	m := NewManager(20)
	report := m.Sync([]string{"a", "b", "c"}, map[string]string{"a": "r", "b": "r", "c": "r"})
	conv := report.Created[0]

	m.EndOfTick() // speaker -> b
	assert.Equal(t, "b", conv.CurrentSpeaker())

	// a leaves; b keeps the turn.
	m.Sync([]string{"a", "b", "c"}, map[string]string{"a": "x", "b": "r", "c": "r"})
	assert.Equal(t, "b", conv.CurrentSpeaker())
}

func TestJoinPicksOldestConversationAtLocation(t *testing.T) {
	m := NewManager(20)

	first := m.Sync([]string{"alice", "bob"}, map[string]string{"alice": "room1", "bob": "room1"})
	require.Len(t, first.Created, 1)
	oldest := first.Created[0]

	// Two more agents arrive while alice and bob are engaged, forming a
	// second conversation at the same location.
	second := m.Sync([]string{"alice", "bob", "carol", "dave"}, map[string]string{
		"alice": "room1", "bob": "room1", "carol": "room1", "dave": "room1",
	})
	require.Len(t, second.Created, 1)
	require.NotEqual(t, oldest.ID, second.Created[0].ID)

	assert.Same(t, oldest, m.Join("eve", "room1"))
}

func TestSyncEndsInCreationOrder(t *testing.T) {
	m := NewManager(20)

	report := m.Sync([]string{"alice", "bob", "carol", "dave"}, map[string]string{
		"alice": "room1", "bob": "room1", "carol": "room2", "dave": "room2",
	})
	require.Len(t, report.Created, 2)
	firstID, secondID := report.Created[0].ID, report.Created[1].ID

	// Everyone scatters; both conversations end in one scan, oldest first.
	report = m.Sync([]string{"alice", "bob", "carol", "dave"}, map[string]string{
		"alice": "room1", "bob": "room3", "carol": "room2", "dave": "room4",
	})
	require.Len(t, report.Ended, 2)
	assert.Equal(t, firstID, report.Ended[0].ID)
	assert.Equal(t, secondID, report.Ended[1].ID)

	m.Cleanup()
	assert.Nil(t, m.Get(firstID))
	assert.Nil(t, m.Get(secondID))
}
