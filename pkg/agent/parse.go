package agent

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/emotionsim/emotionsim/pkg/models"
)

// ErrEmptyResponse is returned when the oracle produced no usable text.
var ErrEmptyResponse = errors.New("empty oracle response")

// maxStateChangeDelta bounds a single self-reported health/stress delta.
const maxStateChangeDelta = 3.0

// ParseResponse turns raw oracle text into a structured response. Code
// fences and surrounding prose are tolerated. Text with no JSON object in
// it falls back to a broadcast message so a chatty model still "speaks".
func ParseResponse(text string) (*models.AgentResponse, error) {
	trimmed := strings.TrimSpace(stripFences(text))
	if trimmed == "" {
		return nil, ErrEmptyResponse
	}

	if candidate, ok := extractObject(trimmed); ok {
		var resp models.AgentResponse
		if err := json.Unmarshal([]byte(candidate), &resp); err == nil {
			normalize(&resp)
			return &resp, nil
		}
	}

	// Not JSON: treat the whole text as something said out loud.
	return &models.AgentResponse{
		Message: &models.AgentMessage{
			Content:     trimmed,
			ToTarget:    models.BroadcastTarget,
			MessageType: models.MessageBroadcast,
		},
	}, nil
}

// RawObject extracts the outermost JSON object from oracle text, verbatim.
// Used for evaluator verdicts, which are stored as opaque JSON.
func RawObject(text string) (json.RawMessage, bool) {
	candidate, ok := extractObject(strings.TrimSpace(stripFences(text)))
	if !ok || !json.Valid([]byte(candidate)) {
		return nil, false
	}
	return json.RawMessage(candidate), true
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return s
}

// extractObject finds the outermost {...} span, allowing prose around it.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func normalize(resp *models.AgentResponse) {
	if resp.Message != nil {
		m := resp.Message
		if strings.TrimSpace(m.Content) == "" {
			resp.Message = nil
		} else {
			if m.MessageType == "" {
				if m.ToTarget == "" || m.ToTarget == models.BroadcastTarget {
					m.MessageType = models.MessageBroadcast
				} else {
					m.MessageType = models.MessageDirect
				}
			}
			if m.MessageType == models.MessageBroadcast {
				m.ToTarget = models.BroadcastTarget
			}
		}
	}

	for field, delta := range resp.StateChanges {
		if delta > maxStateChangeDelta {
			resp.StateChanges[field] = maxStateChangeDelta
		} else if delta < -maxStateChangeDelta {
			resp.StateChanges[field] = -maxStateChangeDelta
		}
	}
}
