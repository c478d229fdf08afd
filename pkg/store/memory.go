package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/emotionsim/emotionsim/pkg/models"
)

// MemoryStore is an in-process Store for tests and ephemeral runs. It keeps
// the same semantics as PostgresStore, including atomic SaveStep.
type MemoryStore struct {
	mu        sync.RWMutex
	scenarios map[string]*models.Scenario
	scenOrder []string
	runs      map[string]*models.Run
	runOrder  []string
	agents    map[string][]*models.AgentState
	steps     map[string][]*models.StepRecord
	messages  map[string][]*models.MessageRecord

	// FailSaveStep makes the next n SaveStep calls fail, for retry tests.
	FailSaveStep int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scenarios: make(map[string]*models.Scenario),
		runs:      make(map[string]*models.Run),
		agents:    make(map[string][]*models.AgentState),
		steps:     make(map[string][]*models.StepRecord),
		messages:  make(map[string][]*models.MessageRecord),
	}
}

func (s *MemoryStore) CreateScenario(_ context.Context, sc *models.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scenarios[sc.ID]; ok {
		return fmt.Errorf("scenario %s: %w", sc.ID, ErrAlreadyExists)
	}
	s.scenarios[sc.ID] = sc
	s.scenOrder = append(s.scenOrder, sc.ID)
	return nil
}

func (s *MemoryStore) GetScenario(_ context.Context, id string) (*models.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	return sc, nil
}

func (s *MemoryStore) ListScenarios(_ context.Context, page Page) ([]*models.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Scenario
	for _, id := range s.scenOrder {
		out = append(out, s.scenarios[id])
	}
	return paginate(out, page.Limit, page.Offset), nil
}

func (s *MemoryStore) CreateRun(_ context.Context, r *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("run %s: %w", r.ID, ErrAlreadyExists)
	}
	cp := *r
	s.runs[r.ID] = &cp
	s.runOrder = append(s.runOrder, r.ID)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, f RunFilter) ([]*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Run
	for _, id := range s.runOrder {
		r := s.runs[id]
		if f.ScenarioID != "" && r.ScenarioID != f.ScenarioID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return paginate(out, f.Limit, f.Offset), nil
}

func (s *MemoryStore) UpdateRun(_ context.Context, r *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.ID]; !ok {
		return fmt.Errorf("run %s: %w", r.ID, ErrNotFound)
	}
	cp := *r
	s.runs[r.ID] = &cp
	return nil
}

func (s *MemoryStore) SaveAgents(_ context.Context, runID string, agents []*models.AgentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[runID] = copyAgents(agents)
	return nil
}

func (s *MemoryStore) ListAgents(_ context.Context, runID string) ([]*models.AgentState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAgents(s.agents[runID]), nil
}

func (s *MemoryStore) SaveStep(_ context.Context, step *models.StepRecord, msgs []*models.MessageRecord, agents []*models.AgentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaveStep > 0 {
		s.FailSaveStep--
		return fmt.Errorf("simulated persistence failure")
	}
	if _, ok := s.runs[step.RunID]; !ok {
		return fmt.Errorf("run %s: %w", step.RunID, ErrNotFound)
	}
	cp := *step
	cp.WorldState = step.WorldState.Clone()
	s.steps[step.RunID] = append(s.steps[step.RunID], &cp)
	for _, m := range msgs {
		mc := *m
		s.messages[step.RunID] = append(s.messages[step.RunID], &mc)
	}
	if agents != nil {
		s.agents[step.RunID] = copyAgents(agents)
	}
	if r := s.runs[step.RunID]; r != nil {
		r.CurrentStep = step.StepIndex
	}
	return nil
}

func (s *MemoryStore) ListSteps(_ context.Context, runID string, page Page) ([]*models.StepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	steps := append([]*models.StepRecord(nil), s.steps[runID]...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].StepIndex < steps[j].StepIndex })
	return paginate(steps, page.Limit, page.Offset), nil
}

func (s *MemoryStore) ListMessages(_ context.Context, runID string, f MessageFilter) ([]*models.MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.MessageRecord
	for _, m := range s.messages[runID] {
		if f.AgentID != "" && m.FromAgentID != f.AgentID &&
			!(m.MessageType == models.MessageDirect && m.ToTarget == f.AgentID) {
			continue
		}
		out = append(out, m)
	}
	return paginate(out, f.Limit, f.Offset), nil
}

func (s *MemoryStore) ResetRunningRuns(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.runs {
		if r.Status == models.RunRunning {
			r.Status = models.RunPaused
			n++
		}
	}
	return n, nil
}

func copyAgents(agents []*models.AgentState) []*models.AgentState {
	out := make([]*models.AgentState, 0, len(agents))
	for _, a := range agents {
		cp := *a
		cp.Inventory = append([]string(nil), a.Inventory...)
		out = append(out, &cp)
	}
	return out
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
