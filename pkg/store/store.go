// Package store is the persistence boundary: scenarios, runs, agent states,
// step records, and messages. Two implementations exist: PostgresStore for
// production and MemoryStore for tests and ephemeral runs.
package store

import (
	"context"

	"github.com/emotionsim/emotionsim/pkg/models"
)

// RunFilter narrows ListRuns.
type RunFilter struct {
	ScenarioID string
	Limit      int
	Offset     int
}

// MessageFilter narrows ListMessages. AgentID matches sender or direct
// recipient when set.
type MessageFilter struct {
	AgentID string
	Limit   int
	Offset  int
}

// Page is a limit/offset pair with defaults applied by implementations.
type Page struct {
	Limit  int
	Offset int
}

// Store persists everything the engine must durably record. SaveStep is the
// one atomicity-critical operation: the step record, its messages, and the
// updated agent states land in a single transaction or not at all.
type Store interface {
	CreateScenario(ctx context.Context, s *models.Scenario) error
	GetScenario(ctx context.Context, id string) (*models.Scenario, error)
	ListScenarios(ctx context.Context, page Page) ([]*models.Scenario, error)

	CreateRun(ctx context.Context, r *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, f RunFilter) ([]*models.Run, error)
	UpdateRun(ctx context.Context, r *models.Run) error

	SaveAgents(ctx context.Context, runID string, agents []*models.AgentState) error
	ListAgents(ctx context.Context, runID string) ([]*models.AgentState, error)

	SaveStep(ctx context.Context, step *models.StepRecord, msgs []*models.MessageRecord, agents []*models.AgentState) error
	ListSteps(ctx context.Context, runID string, page Page) ([]*models.StepRecord, error)
	ListMessages(ctx context.Context, runID string, f MessageFilter) ([]*models.MessageRecord, error)

	// ResetRunningRuns moves runs left in running state (crashed process)
	// back to paused. Called once at startup; returns how many were reset.
	ResetRunningRuns(ctx context.Context) (int, error)
}
