package coop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoSuggestionBelowThreshold(t *testing.T) {
	d := NewLoopDetector()
	d.RecordAction("alice", "move", "roof")
	d.RecordAction("alice", "move", "roof")
	d.RecordAction("alice", "search", "")
	assert.Empty(t, d.Suggestion("alice"))
	assert.Empty(t, d.Suggestion("stranger"))
}

func TestRepeatedActionTriggersSuggestion(t *testing.T) {
	d := NewLoopDetector()
	d.RecordAction("alice", "move", "roof")
	d.RecordAction("alice", "wait", "")
	d.RecordAction("alice", "move", "roof")
	d.RecordAction("alice", "move", "roof")

	s := d.Suggestion("alice")
	assert.Contains(t, s, `"move roof"`)
	assert.Contains(t, s, "repeating")
}

func TestWindowSlides(t *testing.T) {
	d := NewLoopDetector()
	for i := 0; i < 3; i++ {
		d.RecordAction("alice", "move", "roof")
	}
	assert.NotEmpty(t, d.Suggestion("alice"))

	// Three fresh entries push two of the repeats out of the window.
	d.RecordAction("alice", "search", "")
	d.RecordAction("alice", "wait", "")
	d.RecordAction("alice", "take", "rope")
	assert.Empty(t, d.Suggestion("alice"))
}

func TestRepeatedTopicTriggersSuggestion(t *testing.T) {
	d := NewLoopDetector()
	d.RecordTopic("bob", "the rising water")
	d.RecordTopic("bob", "the rising water")
	d.RecordTopic("bob", "the rising water")

	s := d.Suggestion("bob")
	assert.Contains(t, s, "the rising water")

	d.RecordTopic("bob", "")
	assert.NotEmpty(t, d.Suggestion("bob"))
}

func TestActionWithoutTarget(t *testing.T) {
	d := NewLoopDetector()
	for i := 0; i < 3; i++ {
		d.RecordAction("alice", "wait", "")
	}
	assert.Contains(t, d.Suggestion("alice"), `"wait"`)
}
