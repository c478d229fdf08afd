package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emotionsim/emotionsim/pkg/models"
)

func TestParseResponseJSON(t *testing.T) {
	resp, err := ParseResponse(`{
		"actions": [{"action_type": "move", "target": "roof"}],
		"message": {"content": "heading up", "to_target": "bob", "message_type": "direct"},
		"state_changes": {"stress": 1.5},
		"reasoning": "the water is rising"
	}`)
	require.NoError(t, err)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, models.ActionMove, resp.Actions[0].Type)
	assert.Equal(t, "roof", resp.Actions[0].Target)
	require.NotNil(t, resp.Message)
	assert.Equal(t, models.MessageDirect, resp.Message.MessageType)
	assert.InDelta(t, 1.5, resp.StateChanges["stress"], 0.001)
	assert.Equal(t, "the water is rising", resp.Reasoning)
}

func TestParseResponseCodeFence(t *testing.T) {
	resp, err := ParseResponse("```json\n{\"actions\":[{\"action_type\":\"wait\"}]}\n```")
	require.NoError(t, err)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, models.ActionWait, resp.Actions[0].Type)
}

func TestParseResponseSurroundingProse(t *testing.T) {
	resp, err := ParseResponse(`Sure, here is my turn:
{"message": {"content": "hello"}}
Hope that helps.`)
	require.NoError(t, err)
	require.NotNil(t, resp.Message)
	assert.Equal(t, "hello", resp.Message.Content)
	assert.Equal(t, models.MessageBroadcast, resp.Message.MessageType)
	assert.Equal(t, models.BroadcastTarget, resp.Message.ToTarget)
}

func TestParseResponsePlainTextBecomesBroadcast(t *testing.T) {
	resp, err := ParseResponse("Everyone get to the roof, now!")
	require.NoError(t, err)
	assert.Empty(t, resp.Actions)
	require.NotNil(t, resp.Message)
	assert.Equal(t, "Everyone get to the roof, now!", resp.Message.Content)
	assert.Equal(t, models.MessageBroadcast, resp.Message.MessageType)
}

func TestParseResponseEmpty(t *testing.T) {
	_, err := ParseResponse("   \n ")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestParseResponseClampsStateChanges(t *testing.T) {
	resp, err := ParseResponse(`{"state_changes": {"health": -9, "stress": 7}}`)
	require.NoError(t, err)
	assert.InDelta(t, -maxStateChangeDelta, resp.StateChanges["health"], 0.001)
	assert.InDelta(t, maxStateChangeDelta, resp.StateChanges["stress"], 0.001)
}

func TestParseResponseDefaultsDirectType(t *testing.T) {
	resp, err := ParseResponse(`{"message": {"content": "psst", "to_target": "carol"}}`)
	require.NoError(t, err)
	require.NotNil(t, resp.Message)
	assert.Equal(t, models.MessageDirect, resp.Message.MessageType)
}

func TestParseResponseEmptyMessageDropped(t *testing.T) {
	resp, err := ParseResponse(`{"message": {"content": "  "}, "actions": [{"action_type": "reflect"}]}`)
	require.NoError(t, err)
	assert.Nil(t, resp.Message)
	require.Len(t, resp.Actions, 1)
}
