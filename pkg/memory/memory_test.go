package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpisodicWindow(t *testing.T) {
	m := New(5)
	for i := 0; i < 8; i++ {
		m.Remember(fmt.Sprintf("event %d", i))
	}

	recent := m.Recent(0)
	require.Len(t, recent, 5)
	assert.Equal(t, "event 3", recent[0])
	assert.Equal(t, "event 7", recent[4])

	assert.Len(t, m.Recent(2), 2)
	assert.Equal(t, "event 7", m.Recent(2)[1])
}

func TestRecordInteraction(t *testing.T) {
	m := New(0)

	rel := m.RecordInteraction("bob", 0, "shared supplies", 3, "shelter")
	assert.Equal(t, 3, rel.FirstMetStep)
	assert.Equal(t, "shelter", rel.FirstMetLocation)
	assert.Equal(t, 1, rel.InteractionCount)
	assert.Equal(t, SentimentNeutral, rel.Sentiment)
	assert.InDelta(t, 5.0, rel.TrustLevel, 0.001)

	// First contact lands in episodic memory.
	assert.Contains(t, m.Recent(0), "met bob at shelter")

	rel = m.RecordInteraction("bob", 2, "", 4, "shelter")
	assert.Equal(t, 2, rel.InteractionCount)
	assert.Equal(t, SentimentPositive, rel.Sentiment)
	assert.InDelta(t, 7.0, rel.TrustLevel, 0.001)

	// First-met fields are sticky.
	assert.Equal(t, 3, rel.FirstMetStep)
}

func TestTrustClamping(t *testing.T) {
	m := New(0)
	rel := m.RecordInteraction("eve", -20, "stole the rope", 1, "dock")
	assert.Zero(t, rel.TrustLevel)
	assert.Equal(t, SentimentNegative, rel.Sentiment)

	rel = m.RecordInteraction("eve", 50, "", 2, "dock")
	assert.InDelta(t, 10.0, rel.TrustLevel, 0.001)
}

func TestNotesBounded(t *testing.T) {
	m := New(0)
	for i := 0; i < 15; i++ {
		m.RecordInteraction("bob", 0, fmt.Sprintf("note %d", i), i, "room")
	}
	rel := m.Relationship("bob")
	require.NotNil(t, rel)
	assert.Len(t, rel.Notes, 10)
	assert.Equal(t, "note 14", rel.Notes[9])
}

func TestArrivalClearsOnRead(t *testing.T) {
	m := New(0)
	m.SetArrival("you arrive at the rooftop; water is rising below")
	assert.Equal(t, "you arrive at the rooftop; water is rising below", m.Arrival())
	assert.Empty(t, m.Arrival())
}
