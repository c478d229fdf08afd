package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/emotionsim/emotionsim/pkg/config"
	"github.com/emotionsim/emotionsim/pkg/events"
	"github.com/emotionsim/emotionsim/pkg/llm"
	"github.com/emotionsim/emotionsim/pkg/models"
	"github.com/emotionsim/emotionsim/pkg/store"
)

// ControlAction is one of the run control verbs.
type ControlAction string

const (
	ControlStart  ControlAction = "start"
	ControlPause  ControlAction = "pause"
	ControlResume ControlAction = "resume"
	ControlStop   ControlAction = "stop"
	ControlStep   ControlAction = "step"
)

// Manager owns every live engine in the process. Engines are created
// lazily on start; across runs there is no shared mutable state beyond the
// store.
type Manager struct {
	store  store.Store
	oracle llm.Oracle
	cfg    config.EngineConfig
	llmCfg config.LLMConfig
	logger *slog.Logger

	// baseCtx outlives individual control requests; engines run on it.
	baseCtx context.Context

	mu      sync.Mutex
	engines map[string]*Engine
}

// NewManager creates a manager. baseCtx bounds the lifetime of every run it
// starts; cancelling it stops all engines.
func NewManager(baseCtx context.Context, st store.Store, oracle llm.Oracle, cfg config.EngineConfig, llmCfg config.LLMConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:   st,
		oracle:  oracle,
		cfg:     cfg,
		llmCfg:  llmCfg,
		logger:  logger,
		baseCtx: baseCtx,
		engines: make(map[string]*Engine),
	}
}

// CreateRun allocates a pending run for the scenario.
func (m *Manager) CreateRun(ctx context.Context, scenarioID string, seed *int64, maxSteps *int) (*models.Run, error) {
	scenario, err := m.store.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", scenarioID, err)
	}
	if err := ValidateScenario(scenario); err != nil {
		return nil, err
	}

	run := NewRun(scenario, seed, maxSteps)
	if err := m.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	m.logger.Info("run created", "run_id", run.ID, "scenario_id", scenarioID, "max_steps", run.MaxSteps)
	return run, nil
}

// Control applies a control verb to a run. Invalid transitions surface as
// validation errors.
func (m *Manager) Control(ctx context.Context, runID string, action ControlAction) error {
	switch action {
	case ControlStart:
		return m.start(ctx, runID)
	case ControlPause:
		eng, err := m.engine(runID)
		if err != nil {
			return err
		}
		return eng.Pause(ctx)
	case ControlResume:
		eng, err := m.engine(runID)
		if err != nil {
			return err
		}
		return eng.Resume(ctx)
	case ControlStep:
		eng, err := m.engine(runID)
		if err != nil {
			return err
		}
		return eng.StepOnce(ctx)
	case ControlStop:
		return m.stop(ctx, runID)
	default:
		return store.NewValidationError("action", fmt.Sprintf("unknown control action %q", action))
	}
}

func (m *Manager) start(ctx context.Context, runID string) error {
	m.mu.Lock()
	if _, exists := m.engines[runID]; exists {
		m.mu.Unlock()
		return store.NewValidationError("status", "run is already started")
	}
	m.mu.Unlock()

	run, err := m.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}
	scenario, err := m.store.GetScenario(ctx, run.ScenarioID)
	if err != nil {
		return fmt.Errorf("load scenario %s: %w", run.ScenarioID, err)
	}

	eng, err := NewEngine(Params{
		Run:      run,
		Scenario: scenario,
		Store:    m.store,
		Oracle:   m.oracle,
		Config:   m.cfg,
		LLM:      m.llmCfg,
		Logger:   m.logger,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.engines[runID]; exists {
		m.mu.Unlock()
		return store.NewValidationError("status", "run is already started")
	}
	m.engines[runID] = eng
	m.mu.Unlock()

	if err := eng.Start(m.baseCtx); err != nil {
		m.mu.Lock()
		delete(m.engines, runID)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Manager) stop(ctx context.Context, runID string) error {
	m.mu.Lock()
	eng, ok := m.engines[runID]
	m.mu.Unlock()
	if ok {
		return eng.Stop(ctx)
	}

	// Never started in this process: cancel it in the store if pending.
	run, err := m.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}
	if run.Status != models.RunPending {
		return store.NewValidationError("status", fmt.Sprintf("cannot stop a %s run without a live engine", run.Status))
	}
	run.Status = models.RunCancelled
	return m.store.UpdateRun(ctx, run)
}

// Engine returns the live engine for a run, or nil.
func (m *Manager) Engine(runID string) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engines[runID]
}

func (m *Manager) engine(runID string) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	eng, ok := m.engines[runID]
	if !ok {
		return nil, store.NewValidationError("run_id", "run is not active in this process")
	}
	return eng, nil
}

// SubscribeRun implements events.StreamSource for the WebSocket layer.
func (m *Manager) SubscribeRun(runID, name string, buffer int) (*events.Sink, error) {
	eng := m.Engine(runID)
	if eng == nil {
		return nil, fmt.Errorf("run %s is not active", runID)
	}
	return eng.Emitter().Subscribe(name, buffer), nil
}

// RunStatus implements events.StreamSource. Falls back to the store for
// runs without a live engine.
func (m *Manager) RunStatus(runID string) (events.RunStatusPayload, error) {
	if eng := m.Engine(runID); eng != nil {
		return eng.StatusPayload(), nil
	}
	run, err := m.store.GetRun(context.Background(), runID)
	if err != nil {
		return events.RunStatusPayload{}, err
	}
	return events.RunStatusPayload{
		RunID:       run.ID,
		Status:      run.Status,
		CurrentStep: run.CurrentStep,
	}, nil
}

// AgentStates returns live agent state when an engine exists, otherwise the
// last persisted states.
func (m *Manager) AgentStates(ctx context.Context, runID string) ([]*models.AgentState, error) {
	if eng := m.Engine(runID); eng != nil {
		return eng.AgentStates(), nil
	}
	return m.store.ListAgents(ctx, runID)
}

// GetRun returns the live run snapshot when an engine exists, otherwise the
// persisted run.
func (m *Manager) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	if eng := m.Engine(runID); eng != nil {
		return eng.Snapshot(), nil
	}
	return m.store.GetRun(ctx, runID)
}

// Shutdown stops every live engine in parallel and waits for their loops to
// exit or ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, eng := range m.engines {
		engines = append(engines, eng)
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, eng := range engines {
		g.Go(func() error {
			if err := eng.Stop(ctx); err != nil {
				m.logger.Warn("failed to stop engine during shutdown", "error", err)
				return nil
			}
			// Cancelled-before-start engines have no loop to wait for.
			if eng.Status() == models.RunCancelled {
				return nil
			}
			select {
			case <-eng.Done():
			case <-ctx.Done():
			}
			return nil
		})
	}
	_ = g.Wait()
}

var _ events.StreamSource = (*Manager)(nil)
