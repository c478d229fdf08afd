package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emotionsim/emotionsim/pkg/models"
)

func seedRun(t *testing.T, s Store) *models.Run {
	t.Helper()
	ctx := context.Background()
	sc := &models.Scenario{
		ID:   "scen1",
		Name: "test scenario",
		World: models.WorldConfig{
			MaxSteps: 5,
			InitialState: models.WorldState{
				Locations: map[string]*models.Location{"room1": {ID: "room1"}},
			},
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateScenario(ctx, sc))

	run := &models.Run{
		ID:         "run1",
		ScenarioID: sc.ID,
		Status:     models.RunPending,
		MaxSteps:   5,
		WorldState: sc.World.InitialState.Clone(),
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, s.CreateRun(ctx, run))
	return run
}

func TestMemoryStoreScenarioAndRunCRUD(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	run := seedRun(t, s)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunPending, got.Status)

	got.Status = models.RunRunning
	require.NoError(t, s.UpdateRun(ctx, got))
	again, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunRunning, again.Status)

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.CreateRun(ctx, run), ErrAlreadyExists)

	runs, err := s.ListRuns(ctx, RunFilter{ScenarioID: "scen1"})
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	runs, err = s.ListRuns(ctx, RunFilter{ScenarioID: "other"})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestMemoryStoreSaveStepAtomicSemantics(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	run := seedRun(t, s)

	step := &models.StepRecord{
		RunID:      run.ID,
		StepIndex:  1,
		WorldState: run.WorldState,
		Actions:    []models.ActionRecord{{AgentID: "a1", ActionType: "wait", Success: true}},
		Metrics:    models.StepMetrics{AvgHealth: 9, AvgStress: 2, ActiveAgents: 1},
		CreatedAt:  time.Now().UTC(),
	}
	msgs := []*models.MessageRecord{{
		ID: "m1", RunID: run.ID, FromAgentID: "a1", ToTarget: "a2",
		MessageType: models.MessageDirect, Content: "hi", StepIndex: 1,
	}}
	agents := []*models.AgentState{{
		ID: "a1", RunID: run.ID, Name: "alice", Role: models.RoleHuman,
		Location: "room1", Health: 9, Stress: 2, Active: true,
	}}

	require.NoError(t, s.SaveStep(ctx, step, msgs, agents))

	steps, err := s.ListSteps(ctx, run.ID, Page{})
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, 1, steps[0].StepIndex)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStep)

	list, err := s.ListAgents(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Name)
}

func TestMemoryStoreSimulatedFailure(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	run := seedRun(t, s)

	s.FailSaveStep = 1
	step := &models.StepRecord{RunID: run.ID, StepIndex: 1, WorldState: run.WorldState}

	assert.Error(t, s.SaveStep(ctx, step, nil, nil))
	// Retry succeeds.
	assert.NoError(t, s.SaveStep(ctx, step, nil, nil))
}

func TestMemoryStoreMessageFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	run := seedRun(t, s)

	step := &models.StepRecord{RunID: run.ID, StepIndex: 1, WorldState: run.WorldState}
	msgs := []*models.MessageRecord{
		{ID: "m1", RunID: run.ID, FromAgentID: "alice", ToTarget: "bob", MessageType: models.MessageDirect, StepIndex: 1, Seq: 0},
		{ID: "m2", RunID: run.ID, FromAgentID: "bob", ToTarget: "broadcast", MessageType: models.MessageBroadcast, StepIndex: 1, Seq: 1},
		{ID: "m3", RunID: run.ID, FromAgentID: "carol", ToTarget: "room1", MessageType: models.MessageRoom, StepIndex: 1, Seq: 2},
	}
	require.NoError(t, s.SaveStep(ctx, step, msgs, nil))

	all, err := s.ListMessages(ctx, run.ID, MessageFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// bob sent m2 and received m1 directly.
	bobs, err := s.ListMessages(ctx, run.ID, MessageFilter{AgentID: "bob"})
	require.NoError(t, err)
	require.Len(t, bobs, 2)
	assert.Equal(t, "m1", bobs[0].ID)
	assert.Equal(t, "m2", bobs[1].ID)

	limited, err := s.ListMessages(ctx, run.ID, MessageFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "m2", limited[0].ID)
}

func TestMemoryStoreResetRunningRuns(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	run := seedRun(t, s)

	run.Status = models.RunRunning
	require.NoError(t, s.UpdateRun(ctx, run))

	n, err := s.ResetRunningRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunPaused, got.Status)
}
