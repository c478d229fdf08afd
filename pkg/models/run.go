package models

import (
	"encoding/json"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunPaused    RunStatus = "paused"
	RunCompleted RunStatus = "completed"
	RunStopped   RunStatus = "stopped"
	RunCancelled RunStatus = "cancelled"
	RunError     RunStatus = "error"
)

// Terminal reports whether no further ticks may execute in this status.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunStopped, RunCancelled, RunError:
		return true
	}
	return false
}

// CanTransition reports whether s → next is a legal status transition.
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch s {
	case RunPending:
		return next == RunRunning || next == RunCancelled
	case RunRunning:
		return next == RunPaused || next == RunCompleted || next == RunStopped || next == RunError
	case RunPaused:
		return next == RunRunning || next == RunStopped || next == RunError
	}
	return false
}

// Run is a single execution instance of a scenario.
type Run struct {
	ID          string          `json:"id"`
	ScenarioID  string          `json:"scenario_id"`
	Status      RunStatus       `json:"status"`
	CurrentStep int             `json:"current_step"`
	MaxSteps    int             `json:"max_steps"`
	Seed        *int64          `json:"seed,omitempty"`
	WorldState  *WorldState     `json:"world_state,omitempty"`
	Metrics     map[string]any  `json:"metrics,omitempty"`
	Evaluation  json.RawMessage `json:"evaluation,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// AgentState is the persisted/externally visible dynamic state of an agent
// instance bound to a run.
type AgentState struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	Role      AgentRole `json:"role"`
	Location  string    `json:"location"`
	Health    float64   `json:"health"`
	Stress    float64   `json:"stress"`
	Inventory []string  `json:"inventory,omitempty"`
	Active    bool      `json:"active"`
}
