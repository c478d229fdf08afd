package world

// OutcomeKind classifies the result of a move resolution.
type OutcomeKind string

const (
	// OutcomeNoop: target equals current location. Success, no event.
	OutcomeNoop OutcomeKind = "noop"
	// OutcomeMoved: target adjacent, agent relocated in one hop.
	OutcomeMoved OutcomeKind = "moved"
	// OutcomeTravelling: multi-hop path, agent advanced to the first hop.
	OutcomeTravelling OutcomeKind = "travelling"
	// OutcomeCreated: target did not exist, was created adjacent to the
	// agent, and the agent relocated onto it.
	OutcomeCreated OutcomeKind = "created"
	// OutcomeFailed: no path within MaxSearchDepth.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome is the result of ResolveMove. Location is the agent's location
// after the call. For OutcomeTravelling, Path is the full node sequence and
// Remaining the hops still ahead of the agent. Suppressed marks a failure
// already reported for this (agent, target) pair this step: record the
// action as failed but emit nothing.
type Outcome struct {
	Kind       OutcomeKind
	Location   string
	Path       []string
	Remaining  []string
	Reason     string
	Suppressed bool
}

// ResolveMove resolves an agent's move intent from current to target.
// Missing targets are created on first reference; unreachable targets fail
// with at most one reportable failure per (agent, target) per step.
func (g *Graph) ResolveMove(agentID, current, target string) Outcome {
	if target == current {
		return Outcome{Kind: OutcomeNoop, Location: current}
	}

	if !g.Contains(target) {
		g.CreateLocation(target, current)
		return Outcome{Kind: OutcomeCreated, Location: target}
	}

	path := g.FindPath(current, target)
	if path == nil {
		key := failKey{agentID: agentID, target: target}
		if _, dup := g.failedMoves[key]; dup {
			return Outcome{Kind: OutcomeFailed, Location: current, Reason: "unreachable", Suppressed: true}
		}
		g.failedMoves[key] = struct{}{}
		return Outcome{Kind: OutcomeFailed, Location: current, Reason: "unreachable"}
	}

	if len(path) == 2 {
		return Outcome{Kind: OutcomeMoved, Location: target}
	}
	return Outcome{
		Kind:      OutcomeTravelling,
		Location:  path[1],
		Path:      path,
		Remaining: path[2:],
	}
}
