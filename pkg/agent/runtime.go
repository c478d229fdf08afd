package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/emotionsim/emotionsim/pkg/llm"
	"github.com/emotionsim/emotionsim/pkg/models"
)

// Runtime drives one oracle call per agent turn. The oracle output is
// untrusted: everything it returns goes through ParseResponse before the
// engine acts on it.
type Runtime struct {
	oracle      llm.Oracle
	timeout     time.Duration
	temperature float64
	stream      bool
}

// NewRuntime wraps an oracle with the per-turn timeout and sampling
// settings from config.
func NewRuntime(oracle llm.Oracle, timeout time.Duration, temperature float64, stream bool) *Runtime {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runtime{oracle: oracle, timeout: timeout, temperature: temperature, stream: stream}
}

// Tick runs the agent's turn: build the prompt, call the oracle within the
// turn deadline, and parse the result. onToken receives streamed fragments
// when streaming is on; it may be nil.
func (r *Runtime) Tick(ctx context.Context, a *Agent, tc TurnContext, onToken llm.TokenFunc) (*models.AgentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := llm.Request{
		Agent:       a.ID,
		Model:       a.Model,
		System:      SystemPrompt(a),
		Prompt:      BuildContext(a, tc),
		Temperature: r.temperature,
		Stream:      r.stream,
	}
	text, err := r.oracle.Generate(ctx, req, onToken)
	if err != nil {
		return nil, fmt.Errorf("oracle call for %s: %w", a.ID, err)
	}

	resp, err := ParseResponse(text)
	if err != nil {
		return nil, fmt.Errorf("parse response for %s: %w", a.ID, err)
	}
	return resp, nil
}
