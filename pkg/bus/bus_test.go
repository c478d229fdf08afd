package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emotionsim/emotionsim/pkg/models"
)

type fakeRoster struct {
	active    []string
	locations map[string]string
}

func (r *fakeRoster) ActiveAgents() []string { return r.active }

func (r *fakeRoster) AgentsAt(locationID string) []string {
	var out []string
	for _, id := range r.active {
		if r.locations[id] == locationID {
			out = append(out, id)
		}
	}
	return out
}

func newTestBus() (*Bus, *fakeRoster) {
	roster := &fakeRoster{
		active: []string{"alice", "bob", "carol"},
		locations: map[string]string{
			"alice": "room1",
			"bob":   "room1",
			"carol": "room2",
		},
	}
	return New("run1", roster), roster
}

func TestPublishDirect(t *testing.T) {
	b, _ := newTestBus()

	rec := b.Publish("alice", models.AgentMessage{
		Content:     "hi",
		ToTarget:    "bob",
		MessageType: models.MessageDirect,
	}, 1)

	require.NotEmpty(t, rec.ID)
	assert.Equal(t, "run1", rec.RunID)

	inbox := b.Drain("bob")
	require.Len(t, inbox, 1)
	assert.Equal(t, "hi", inbox[0].Content)
	assert.Empty(t, b.Drain("carol"))

	// Drain clears.
	assert.Empty(t, b.Drain("bob"))
}

func TestPublishRoom(t *testing.T) {
	b, _ := newTestBus()

	b.Publish("alice", models.AgentMessage{
		Content:     "anyone here?",
		ToTarget:    "room1",
		MessageType: models.MessageRoom,
	}, 1)

	assert.Len(t, b.Drain("bob"), 1)
	assert.Empty(t, b.Drain("carol"))
	// Sender does not receive their own room message.
	assert.Empty(t, b.Drain("alice"))
}

func TestPublishBroadcast(t *testing.T) {
	b, _ := newTestBus()

	b.Publish("alice", models.AgentMessage{
		Content:     "flood incoming",
		ToTarget:    models.BroadcastTarget,
		MessageType: models.MessageBroadcast,
	}, 2)

	assert.Len(t, b.Drain("bob"), 1)
	assert.Len(t, b.Drain("carol"), 1)
	assert.Empty(t, b.Drain("alice"))
}

func TestInboxOrdering(t *testing.T) {
	b, _ := newTestBus()

	for _, content := range []string{"first", "second", "third"} {
		b.Publish("alice", models.AgentMessage{
			Content:     content,
			ToTarget:    "bob",
			MessageType: models.MessageDirect,
		}, 1)
	}

	inbox := b.Drain("bob")
	require.Len(t, inbox, 3)
	assert.Equal(t, "first", inbox[0].Content)
	assert.Equal(t, "third", inbox[2].Content)
	assert.Less(t, inbox[0].Seq, inbox[1].Seq)
}

func TestHistoryFilters(t *testing.T) {
	b, _ := newTestBus()

	b.Publish("alice", models.AgentMessage{Content: "m1", ToTarget: "bob", MessageType: models.MessageDirect}, 1)
	b.Publish("bob", models.AgentMessage{Content: "m2", ToTarget: "room1", MessageType: models.MessageRoom}, 1)
	b.Publish("carol", models.AgentMessage{Content: "m3", ToTarget: models.BroadcastTarget, MessageType: models.MessageBroadcast}, 2)

	t.Run("by agent matches sender and direct recipient", func(t *testing.T) {
		msgs := b.History(Filter{Agent: "bob"})
		require.Len(t, msgs, 2)
		assert.Equal(t, "m1", msgs[0].Content)
		assert.Equal(t, "m2", msgs[1].Content)
	})

	t.Run("by room", func(t *testing.T) {
		msgs := b.History(Filter{Room: "room1"})
		require.Len(t, msgs, 1)
		assert.Equal(t, "m2", msgs[0].Content)
	})

	t.Run("by step range", func(t *testing.T) {
		msgs := b.History(Filter{FromStep: 2, ToStep: 2})
		require.Len(t, msgs, 1)
		assert.Equal(t, "m3", msgs[0].Content)
	})

	t.Run("limit", func(t *testing.T) {
		assert.Len(t, b.History(Filter{Limit: 2}), 2)
	})

	t.Run("step messages", func(t *testing.T) {
		assert.Len(t, b.StepMessages(1), 2)
		assert.Len(t, b.StepMessages(2), 1)
	})
}
