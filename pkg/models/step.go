package models

import "time"

// ActionRecord captures one executed (or failed) action within a step.
type ActionRecord struct {
	AgentID    string         `json:"agent_id"`
	ActionType string         `json:"action_type"`
	Target     string         `json:"target,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Success    bool           `json:"success"`
	Detail     string         `json:"detail,omitempty"`
}

// StepMetrics are averages over active agents at the end of a step.
type StepMetrics struct {
	AvgHealth    float64 `json:"avg_health"`
	AvgStress    float64 `json:"avg_stress"`
	ActiveAgents int     `json:"active_agents"`
	MessageCount int     `json:"message_count"`
}

// StepRecord is the durable snapshot of one tick. A step record and all
// messages produced in that step are written in a single transaction.
type StepRecord struct {
	RunID      string         `json:"run_id"`
	StepIndex  int            `json:"step_index"`
	WorldState *WorldState    `json:"world_state"`
	Actions    []ActionRecord `json:"actions"`
	Metrics    StepMetrics    `json:"metrics"`
	CreatedAt  time.Time      `json:"created_at"`
}
