package llm

import (
	"context"
	"strings"
	"sync"
)

// ScriptedOracle replays canned responses per agent, in order. Deterministic
// and offline; the seed-test suite and engine tests run against it. When an
// agent's script is exhausted (or absent) the fallback response is returned.
type ScriptedOracle struct {
	mu       sync.Mutex
	scripts  map[string][]string
	fallback string
	calls    []Request
}

// NewScriptedOracle creates an oracle whose unscripted answer is an empty
// response object (no actions, no message).
func NewScriptedOracle() *ScriptedOracle {
	return &ScriptedOracle{
		scripts:  make(map[string][]string),
		fallback: "{}",
	}
}

// Script queues responses for the agent, consumed one per Generate call.
func (o *ScriptedOracle) Script(agent string, responses ...string) *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scripts[agent] = append(o.scripts[agent], responses...)
	return o
}

// SetFallback replaces the response used when an agent has no script left.
func (o *ScriptedOracle) SetFallback(response string) *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallback = response
	return o
}

// Generate pops the agent's next scripted response. With req.Stream set the
// response is re-emitted word by word through onToken first.
func (o *ScriptedOracle) Generate(ctx context.Context, req Request, onToken TokenFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	o.mu.Lock()
	o.calls = append(o.calls, req)
	response := o.fallback
	if queue := o.scripts[req.Agent]; len(queue) > 0 {
		response = queue[0]
		o.scripts[req.Agent] = queue[1:]
	}
	o.mu.Unlock()

	if req.Stream && onToken != nil {
		for i, word := range strings.Fields(response) {
			if i > 0 {
				onToken(" ")
			}
			onToken(word)
		}
	}
	return response, nil
}

// Calls returns every request seen so far, in order.
func (o *ScriptedOracle) Calls() []Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Request, len(o.calls))
	copy(out, o.calls)
	return out
}

// CallCount returns how many Generate calls the agent has made.
func (o *ScriptedOracle) CallCount(agent string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, c := range o.calls {
		if c.Agent == agent {
			n++
		}
	}
	return n
}
