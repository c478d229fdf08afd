package coop

import "fmt"

// loopWindow is how many recent entries the detector inspects per agent.
const loopWindow = 5

// loopThreshold is how many repeats within the window trigger a suggestion.
const loopThreshold = 3

// LoopDetector watches per-agent action and topic history for repetition.
// It only ever produces advisory context strings; agent output is never
// filtered or rewritten.
type LoopDetector struct {
	actions map[string][]actionKey
	topics  map[string][]string
}

type actionKey struct {
	actionType string
	target     string
}

// NewLoopDetector creates an empty detector.
func NewLoopDetector() *LoopDetector {
	return &LoopDetector{
		actions: make(map[string][]actionKey),
		topics:  make(map[string][]string),
	}
}

// RecordAction appends an (action_type, target) pair to the agent's window.
func (d *LoopDetector) RecordAction(agentID, actionType, target string) {
	d.actions[agentID] = push(d.actions[agentID], actionKey{actionType, target})
}

// RecordTopic appends a summarized conversation topic to the agent's window.
func (d *LoopDetector) RecordTopic(agentID, topic string) {
	if topic == "" {
		return
	}
	d.topics[agentID] = push(d.topics[agentID], topic)
}

// Suggestion returns an advisory string when the agent repeated the same
// action or topic at least three times in its last five entries, or "".
func (d *LoopDetector) Suggestion(agentID string) string {
	if key, n := dominant(d.actions[agentID]); n >= loopThreshold {
		what := key.actionType
		if key.target != "" {
			what = fmt.Sprintf("%s %s", key.actionType, key.target)
		}
		return fmt.Sprintf("You appear to be repeating %q; consider trying a different approach or location.", what)
	}
	if topic, n := dominant(d.topics[agentID]); n >= loopThreshold {
		return fmt.Sprintf("You keep returning to %q in conversation; consider changing the subject or acting on it.", topic)
	}
	return ""
}

func push[T comparable](window []T, v T) []T {
	window = append(window, v)
	if len(window) > loopWindow {
		window = window[len(window)-loopWindow:]
	}
	return window
}

func dominant[T comparable](window []T) (T, int) {
	counts := make(map[T]int, len(window))
	var best T
	bestN := 0
	for _, v := range window {
		counts[v]++
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best, bestN
}
