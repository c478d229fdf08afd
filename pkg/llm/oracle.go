// Package llm abstracts the language-model backend behind the Oracle
// interface. The engine treats oracle output as untrusted text; parsing and
// validation happen in the agent runtime.
package llm

import "context"

// TokenFunc receives each streamed output token as it arrives. Tokens are
// for observers only; the returned text is authoritative.
type TokenFunc func(token string)

// Request is one generation call.
type Request struct {
	Agent       string  // requesting agent id, for scripted backends and logs
	Model       string  // model id from the agent template
	System      string  // system prompt
	Prompt      string  // assembled context
	Temperature float64 // sampling temperature
	Stream      bool    // forward tokens through TokenFunc
}

// Oracle produces text for agent turns. Implementations must honor ctx
// cancellation and deadlines.
type Oracle interface {
	Generate(ctx context.Context, req Request, onToken TokenFunc) (string, error)
}
