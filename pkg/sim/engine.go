// Package sim contains the simulation engine: the per-run tick loop, the
// run lifecycle state machine, the action executor, and the run manager
// that owns every live engine in the process.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emotionsim/emotionsim/pkg/agent"
	"github.com/emotionsim/emotionsim/pkg/bus"
	"github.com/emotionsim/emotionsim/pkg/config"
	"github.com/emotionsim/emotionsim/pkg/conversation"
	"github.com/emotionsim/emotionsim/pkg/coop"
	"github.com/emotionsim/emotionsim/pkg/events"
	"github.com/emotionsim/emotionsim/pkg/llm"
	"github.com/emotionsim/emotionsim/pkg/models"
	"github.com/emotionsim/emotionsim/pkg/store"
	"github.com/emotionsim/emotionsim/pkg/world"
)

// persistTimeout bounds store writes that must complete even when the
// engine's context is already cancelled.
const persistTimeout = 5 * time.Second

// Params collects everything an engine needs.
type Params struct {
	Run      *models.Run
	Scenario *models.Scenario
	Store    store.Store
	Oracle   llm.Oracle
	Config   config.EngineConfig
	LLM      config.LLMConfig
	Logger   *slog.Logger
}

// Engine runs one simulation. The tick loop is a single goroutine; control
// commands flag their intent and take effect at the loop's suspension
// points. World state and agents are only ever touched from the loop.
type Engine struct {
	run      *models.Run
	scenario *models.Scenario
	store    store.Store
	oracle   llm.Oracle
	runtime  *agent.Runtime
	emitter  *events.Emitter
	cfg      config.EngineConfig
	logger   *slog.Logger

	rng    *rand.Rand
	graph  *world.Graph
	msgBus *bus.Bus
	convs  *conversation.Manager
	coord  *coop.Coordinator
	loops  *coop.LoopDetector

	agents []*agent.Agent
	byID   map[string]*agent.Agent

	// Per-tick accumulators, reset at tick start.
	stepActions []models.ActionRecord
	stepEvents  []string

	voteResults map[string]string
	tickDelay   time.Duration

	// mu guards the run record, control flags, and the published snapshot.
	mu            sync.Mutex
	resumeCh      chan struct{}
	stopCh        chan struct{} // closed once when stop is requested
	stopRequested bool
	singleStep    bool
	agentSnap     []*models.AgentState
	snapWorld     *models.WorldState

	done chan struct{}
}

// NewEngine validates the scenario, instantiates agents, and wires the
// run's world graph, bus, conversations, and coordinator. The run is not
// started.
func NewEngine(p Params) (*Engine, error) {
	if err := ValidateScenario(p.Scenario); err != nil {
		return nil, err
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}

	run := p.Run
	if run.WorldState == nil {
		run.WorldState = p.Scenario.World.InitialState.Clone()
	}

	var seed int64
	if run.Seed != nil {
		seed = *run.Seed
	} else {
		seed = time.Now().UnixNano()
		run.Seed = &seed
	}

	e := &Engine{
		run:      run,
		scenario: p.Scenario,
		store:    p.Store,
		oracle:   p.Oracle,
		runtime:  agent.NewRuntime(p.Oracle, p.Config.LLMTimeout, p.LLM.Temperature, p.LLM.Stream),
		emitter:  events.NewEmitter(p.Logger),
		cfg:      p.Config,
		logger:   p.Logger.With("run_id", run.ID),

		rng:   rand.New(rand.NewPCG(uint64(seed), uint64(seed))),
		convs: conversation.NewManager(p.Config.MaxTurnsPerAgent),
		loops: coop.NewLoopDetector(),
		byID:  make(map[string]*agent.Agent),

		voteResults: make(map[string]string),
		resumeCh:    make(chan struct{}),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
	e.graph = world.New(run.WorldState, e.rng)
	e.msgBus = bus.New(run.ID, e)

	var humanGoals [][]string
	for i, tpl := range p.Scenario.Agents {
		a := agent.NewFromTemplate(i, tpl, p.Config.MemoryWindow)
		e.agents = append(e.agents, a)
		e.byID[a.ID] = a
		if a.Role == models.RoleHuman {
			humanGoals = append(humanGoals, a.Goals)
		}
	}
	e.coord = coop.NewCoordinator(humanGoals)

	e.tickDelay = p.Config.DefaultTickDelay
	if p.Scenario.World.TickDelay > 0 {
		e.tickDelay = time.Duration(p.Scenario.World.TickDelay * float64(time.Second))
	}

	e.publishSnapshot()
	return e, nil
}

// Emitter exposes the run's event emitter for subscribers.
func (e *Engine) Emitter() *events.Emitter { return e.emitter }

// Done is closed when the tick loop has exited.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Status returns the current run status.
func (e *Engine) Status() models.RunStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run.Status
}

// Snapshot returns a copy of the run as of the last step boundary.
func (e *Engine) Snapshot() *models.Run {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := *e.run
	out.WorldState = e.snapWorld
	return &out
}

// AgentStates returns the agents as of the last step boundary.
func (e *Engine) AgentStates() []*models.AgentState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*models.AgentState, len(e.agentSnap))
	copy(out, e.agentSnap)
	return out
}

// ActiveAgents implements bus.Roster over the live agent set.
func (e *Engine) ActiveAgents() []string {
	var out []string
	for _, a := range e.agents {
		if a.Active {
			out = append(out, a.ID)
		}
	}
	return out
}

// AgentsAt implements bus.Roster.
func (e *Engine) AgentsAt(locationID string) []string {
	var out []string
	for _, a := range e.agents {
		if a.Active && a.Location == locationID {
			out = append(out, a.ID)
		}
	}
	return out
}

// Start transitions pending → running and launches the tick loop. ctx must
// outlive the run; cancelling it stops the engine.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if !e.run.Status.CanTransition(models.RunRunning) {
		status := e.run.Status
		e.mu.Unlock()
		return store.NewValidationError("status", fmt.Sprintf("cannot start a %s run", status))
	}
	now := time.Now().UTC()
	e.run.Status = models.RunRunning
	e.run.StartedAt = &now
	e.mu.Unlock()

	if err := e.persistRun(ctx); err != nil {
		return fmt.Errorf("persist run start: %w", err)
	}

	e.emit(events.EventInitialized, events.ConnectedPayload{RunID: e.run.ID})
	e.emitStatus()
	e.logger.Info("run started", "seed", *e.run.Seed, "max_steps", e.run.MaxSteps)

	go e.loop(ctx)
	return nil
}

// Pause flags the run paused. The in-flight tick completes first.
func (e *Engine) Pause(ctx context.Context) error {
	e.mu.Lock()
	if !e.run.Status.CanTransition(models.RunPaused) {
		status := e.run.Status
		e.mu.Unlock()
		return store.NewValidationError("status", fmt.Sprintf("cannot pause a %s run", status))
	}
	e.run.Status = models.RunPaused
	e.resumeCh = make(chan struct{})
	e.mu.Unlock()

	e.emitStatus()
	return e.persistRun(ctx)
}

// Resume wakes a paused run.
func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	if e.run.Status != models.RunPaused {
		status := e.run.Status
		e.mu.Unlock()
		return store.NewValidationError("status", fmt.Sprintf("cannot resume a %s run", status))
	}
	e.run.Status = models.RunRunning
	close(e.resumeCh)
	e.mu.Unlock()

	e.emitStatus()
	return e.persistRun(ctx)
}

// StepOnce executes exactly one tick from paused, then re-pauses.
func (e *Engine) StepOnce(ctx context.Context) error {
	e.mu.Lock()
	if e.run.Status != models.RunPaused {
		status := e.run.Status
		e.mu.Unlock()
		return store.NewValidationError("status", fmt.Sprintf("cannot step a %s run", status))
	}
	e.run.Status = models.RunRunning
	e.singleStep = true
	close(e.resumeCh)
	e.mu.Unlock()

	return e.persistRun(ctx)
}

// Stop requests termination. A running agent turn completes and its step is
// persisted before the loop exits.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	switch {
	case e.run.Status == models.RunPending:
		e.run.Status = models.RunCancelled
		e.mu.Unlock()
		e.emitStatus()
		return e.persistRun(ctx)
	case e.run.Status.Terminal():
		e.mu.Unlock()
		return nil
	}
	if !e.stopRequested {
		e.stopRequested = true
		close(e.stopCh)
	}
	if e.run.Status == models.RunPaused {
		e.run.Status = models.RunRunning
		close(e.resumeCh)
	}
	e.mu.Unlock()
	return nil
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)

	for {
		if ctx.Err() != nil || e.stopRequestedNow() {
			e.finalizeStopped()
			return
		}
		if !e.waitIfPaused(ctx) {
			e.finalizeStopped()
			return
		}
		if e.currentStep() >= e.run.MaxSteps {
			e.complete(ctx)
			return
		}

		if err := e.tick(ctx); err != nil {
			e.fail(err)
			return
		}

		if e.stopRequestedNow() {
			e.finalizeStopped()
			return
		}
		if e.currentStep() >= e.run.MaxSteps {
			e.complete(ctx)
			return
		}
		if e.repauseAfterSingleStep() {
			continue
		}
		if !e.sleep(ctx) {
			e.finalizeStopped()
			return
		}
	}
}

// waitIfPaused blocks while the run is paused. Returns false when the wait
// ended because of stop or context cancellation.
func (e *Engine) waitIfPaused(ctx context.Context) bool {
	for {
		e.mu.Lock()
		if e.run.Status != models.RunPaused {
			e.mu.Unlock()
			return true
		}
		resume := e.resumeCh
		e.mu.Unlock()

		select {
		case <-resume:
		case <-ctx.Done():
			return false
		}
		if e.stopRequestedNow() {
			return false
		}
	}
}

// sleep waits out the tick delay. The delay is a suspension point: a stop
// request or context cancellation cuts it short (returns false).
func (e *Engine) sleep(ctx context.Context) bool {
	if e.tickDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(e.tickDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-e.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) stopRequestedNow() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopRequested
}

func (e *Engine) currentStep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run.CurrentStep
}

func (e *Engine) repauseAfterSingleStep() bool {
	e.mu.Lock()
	if !e.singleStep {
		e.mu.Unlock()
		return false
	}
	e.singleStep = false
	e.run.Status = models.RunPaused
	e.resumeCh = make(chan struct{})
	e.mu.Unlock()

	e.emitStatus()
	if err := e.persistRun(context.Background()); err != nil {
		e.logger.Error("failed to persist pause after single step", "error", err)
	}
	return true
}

// tick executes one full simulation step.
func (e *Engine) tick(ctx context.Context) error {
	e.mu.Lock()
	e.run.CurrentStep++
	step := e.run.CurrentStep
	e.mu.Unlock()

	e.graph.BeginStep()
	e.stepActions = nil
	e.stepEvents = nil

	e.emit(events.EventStepStarted, events.StepStartedPayload{RunID: e.run.ID, StepIndex: step})

	e.advanceTravel(step)
	e.applyLocationEffects(step)
	e.syncConversations(step)

	interrupted := e.runPhase(ctx, step, models.RoleEnvironment, e.environmentOrder())
	if !interrupted {
		interrupted = e.runPhase(ctx, step, models.RoleHuman, e.humanPermutation())
	}
	if !interrupted {
		interrupted = e.runPhase(ctx, step, models.RoleDesigner, e.designerOrder())
	}

	for _, v := range e.coord.CloseExpiredVotes(step) {
		e.voteResults[v.Proposal] = v.Result
		e.emit(events.EventVoteClosed, events.VotePayload{
			VoteID: v.ID, CalledBy: v.CalledBy, Proposal: v.Proposal,
			Result: v.Result, StepIndex: step,
		})
	}

	e.convs.EndOfTick()
	e.convs.Cleanup()

	metrics := e.computeMetrics()
	messages := e.msgBus.StepMessages(step)

	if err := e.persistStep(ctx, step, metrics, messages); err != nil {
		return err
	}
	e.publishSnapshot()

	e.emit(events.EventStepCompleted, events.StepCompletedPayload{
		RunID:     e.run.ID,
		StepIndex: step,
		Actions:   e.stepActions,
		Messages:  messages,
		Metrics:   metrics,
	})
	e.logger.Debug("step completed", "step", step,
		"actions", len(e.stepActions), "messages", len(messages), "interrupted", interrupted)
	return nil
}

// runPhase runs the given agents sequentially, checking for stop between
// turns. Returns true when the phase was cut short by a stop request.
func (e *Engine) runPhase(ctx context.Context, step int, role models.AgentRole, order []*agent.Agent) bool {
	for _, a := range order {
		if a.Role != role || !a.Active {
			continue
		}
		e.runAgentTurn(ctx, a, step)
		if e.stopRequestedNow() {
			return true
		}
	}
	return false
}

func (e *Engine) environmentOrder() []*agent.Agent { return e.agents }
func (e *Engine) designerOrder() []*agent.Agent    { return e.agents }

// humanPermutation returns the agents with humans in a seeded random order.
func (e *Engine) humanPermutation() []*agent.Agent {
	var humans []*agent.Agent
	for _, a := range e.agents {
		if a.Role == models.RoleHuman {
			humans = append(humans, a)
		}
	}
	out := make([]*agent.Agent, len(humans))
	for i, j := range e.rng.Perm(len(humans)) {
		out[i] = humans[j]
	}
	return out
}

func (e *Engine) runAgentTurn(ctx context.Context, a *agent.Agent, step int) {
	if a.Role == models.RoleEvaluator {
		return
	}
	if a.Role == models.RoleHuman {
		p := agent.ResponseProbability(a.Persona, a.Stress, e.recentActivity(a))
		if e.rng.Float64() > p {
			return
		}
	}

	tc := e.buildTurnContext(a, step)
	onToken := func(token string) {
		e.emit(events.EventStreamToken, events.StreamTokenPayload{AgentID: a.ID, Token: token})
	}

	resp, err := e.runtime.Tick(ctx, a, tc, onToken)
	if err != nil {
		e.logger.Warn("agent turn failed", "agent", a.ID, "step", step, "error", err)
		e.emit(events.EventAgentError, events.AgentErrorPayload{
			AgentID: a.ID, Error: err.Error(), StepIndex: step,
		})
		return
	}
	e.applyResponse(a, resp, step)
}

// recentActivity reports whether anything is pulling the agent's attention:
// pending messages, events earlier this tick, or company at its location.
func (e *Engine) recentActivity(a *agent.Agent) bool {
	if e.msgBus.Pending(a.ID) > 0 || len(e.stepEvents) > 0 {
		return true
	}
	for _, other := range e.agents {
		if other.ID != a.ID && other.Active && other.Location == a.Location {
			return true
		}
	}
	return false
}

func (e *Engine) buildTurnContext(a *agent.Agent, step int) agent.TurnContext {
	inbox := e.msgBus.Drain(a.ID)
	if n := e.cfg.InboxWindow; n > 0 && len(inbox) > n {
		inbox = inbox[len(inbox)-n:]
	}

	var others []string
	for _, other := range e.agents {
		if other.ID != a.ID && other.Active && other.Location == a.Location && other.Role == models.RoleHuman {
			others = append(others, other.ID)
		}
	}

	stepEvents := make([]string, len(e.stepEvents))
	copy(stepEvents, e.stepEvents)

	return agent.TurnContext{
		Step:        step,
		World:       e.graph.State(),
		Inbox:       inbox,
		StepEvents:  stepEvents,
		CoLocated:   others,
		SharedGoals: e.coord.SharedGoals(),
		Tasks:       e.coord.Tasks(a.ID, step),
		OpenVotes:   e.coord.OpenVotes(step),
		Suggestion:  e.loops.Suggestion(a.ID),
		Conv:        e.convs.For(a.ID),
	}
}

// advanceTravel moves every travelling agent one hop, in template order.
func (e *Engine) advanceTravel(step int) {
	for _, a := range e.agents {
		if !a.Active || !a.Travelling() {
			continue
		}
		from := a.Location
		a.Location = a.TravelPath[0]
		a.TravelPath = a.TravelPath[1:]
		e.emit(events.EventAgentMoved, events.AgentMovedPayload{
			AgentID: a.ID, From: from, To: a.Location, StepIndex: step,
		})
		e.noteEvent("%s arrived at %s", a.Name, a.Location)
		if a.Travelling() {
			e.emit(events.EventAgentTravel, events.TravelPayload{
				AgentID:     a.ID,
				Destination: a.TravelTarget,
				Remaining:   a.TravelPath,
				StepIndex:   step,
			})
		} else {
			a.Memory.SetArrival(fmt.Sprintf("you just arrived at %s", a.Location))
			a.TravelTarget = ""
		}
	}
}

// applyLocationEffects applies per-tick health/stress drains declared on
// hazard-affected locations, scaled by the current hazard level.
func (e *Engine) applyLocationEffects(step int) {
	state := e.graph.State()
	for _, a := range e.agents {
		if !a.Active || a.Role != models.RoleHuman {
			continue
		}
		loc := state.Locations[a.Location]
		if loc == nil {
			continue
		}
		if loc.HealthPerTick != 0 && (!loc.HazardAffected || state.HazardLevel > 0) {
			e.applyStateDelta(a, "health", loc.HealthPerTick, step)
		}
		if loc.StressPerTick != 0 && (!loc.HazardAffected || state.HazardLevel > 0) {
			e.applyStateDelta(a, "stress", loc.StressPerTick, step)
		}
	}
}

func (e *Engine) syncConversations(step int) {
	locations := make(map[string]string)
	var order []string
	for _, a := range e.agents {
		if a.Active && a.Role == models.RoleHuman {
			locations[a.ID] = a.Location
			order = append(order, a.ID)
		}
	}
	report := e.convs.Sync(order, locations)
	for _, conv := range report.Created {
		e.emit(events.EventConversationCreated, events.ConversationPayload{
			ConversationID: conv.ID,
			LocationID:     conv.LocationID,
			Participants:   conv.Participants,
			StepIndex:      step,
		})
	}
	for _, conv := range report.Ended {
		e.emitConversationEnded(conv, step)
	}
}

func (e *Engine) emitConversationEnded(conv *conversation.Conversation, step int) {
	e.emit(events.EventConversationEnded, events.ConversationPayload{
		ConversationID: conv.ID,
		LocationID:     conv.LocationID,
		Participants:   conv.Participants,
		StepIndex:      step,
	})
}

func (e *Engine) computeMetrics() models.StepMetrics {
	var m models.StepMetrics
	for _, a := range e.agents {
		if !a.Active {
			continue
		}
		m.ActiveAgents++
		m.AvgHealth += a.Health
		m.AvgStress += a.Stress
	}
	if m.ActiveAgents > 0 {
		m.AvgHealth /= float64(m.ActiveAgents)
		m.AvgStress /= float64(m.ActiveAgents)
	}
	m.MessageCount = len(e.msgBus.StepMessages(e.currentStep()))
	return m
}

// persistStep writes the step record, its messages, and the agent states in
// one transaction, retrying once on failure.
func (e *Engine) persistStep(ctx context.Context, step int, metrics models.StepMetrics, messages []*models.MessageRecord) error {
	record := &models.StepRecord{
		RunID:      e.run.ID,
		StepIndex:  step,
		WorldState: e.graph.State().Clone(),
		Actions:    e.stepActions,
		Metrics:    metrics,
		CreatedAt:  time.Now().UTC(),
	}
	states := e.currentAgentStates()

	err := e.store.SaveStep(ctx, record, messages, states)
	if err == nil {
		return nil
	}
	e.logger.Warn("step persistence failed, retrying", "step", step, "error", err)
	if err = e.store.SaveStep(ctx, record, messages, states); err != nil {
		return fmt.Errorf("persist step %d: %w", step, err)
	}
	return nil
}

func (e *Engine) currentAgentStates() []*models.AgentState {
	out := make([]*models.AgentState, 0, len(e.agents))
	for _, a := range e.agents {
		out = append(out, a.State(e.run.ID))
	}
	return out
}

// publishSnapshot refreshes the copies served to the API between steps.
func (e *Engine) publishSnapshot() {
	states := e.currentAgentStates()
	cloned := e.graph.State().Clone()
	e.mu.Lock()
	e.agentSnap = states
	e.snapWorld = cloned
	e.mu.Unlock()
}

func (e *Engine) complete(ctx context.Context) {
	e.runEvaluators(ctx)

	e.mu.Lock()
	e.run.Status = models.RunCompleted
	now := time.Now().UTC()
	e.run.CompletedAt = &now
	metrics := e.finalMetricsLocked()
	e.run.Metrics = metrics
	steps := e.run.CurrentStep
	evaluation := e.run.Evaluation
	e.mu.Unlock()

	if err := e.persistRun(context.Background()); err != nil {
		e.logger.Error("failed to persist completed run", "error", err)
	}
	e.emit(events.EventRunCompleted, events.RunCompletedPayload{
		RunID:      e.run.ID,
		Steps:      steps,
		Metrics:    metrics,
		Evaluation: evaluation,
	})
	e.emitStatus()
	e.logger.Info("run completed", "steps", steps)
}

func (e *Engine) finalMetricsLocked() map[string]any {
	m := e.computeMetrics()
	out := map[string]any{
		"avg_health":    m.AvgHealth,
		"avg_stress":    m.AvgStress,
		"active_agents": m.ActiveAgents,
		"steps":         e.run.CurrentStep,
	}
	if len(e.voteResults) > 0 {
		out["votes"] = e.voteResults
	}
	return out
}

// runEvaluators runs each evaluator agent once against the terminal world
// and stores its verdict as opaque JSON.
func (e *Engine) runEvaluators(ctx context.Context) {
	for _, a := range e.agents {
		if a.Role != models.RoleEvaluator || !a.Active {
			continue
		}
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.LLMTimeout)
		text, err := e.oracle.Generate(callCtx, llm.Request{
			Agent:  a.ID,
			Model:  a.Model,
			System: agent.SystemPrompt(a),
			Prompt: e.buildEvaluatorPrompt(a),
		}, nil)
		cancel()
		if err != nil {
			e.logger.Warn("evaluator failed", "agent", a.ID, "error", err)
			continue
		}
		if raw, ok := agent.RawObject(text); ok {
			e.mu.Lock()
			e.run.Evaluation = raw
			e.mu.Unlock()
		} else {
			e.logger.Warn("evaluator produced no JSON verdict", "agent", a.ID)
		}
		return
	}
}

func (e *Engine) buildEvaluatorPrompt(a *agent.Agent) string {
	tc := e.buildTurnContext(a, e.currentStep())
	return agent.BuildContext(a, tc) +
		"\nThe simulation has ended. Produce your final verdict as a JSON object.\n"
}

func (e *Engine) finalizeStopped() {
	e.mu.Lock()
	if e.run.Status.Terminal() {
		e.mu.Unlock()
		return
	}
	e.run.Status = models.RunStopped
	now := time.Now().UTC()
	e.run.CompletedAt = &now
	steps := e.run.CurrentStep
	e.mu.Unlock()

	if err := e.persistRun(context.Background()); err != nil {
		e.logger.Error("failed to persist stopped run", "error", err)
	}
	e.emit(events.EventRunStopped, events.RunStatusPayload{
		RunID: e.run.ID, Status: models.RunStopped, CurrentStep: steps,
	})
	e.emitStatus()
	e.logger.Info("run stopped", "steps", steps)
}

func (e *Engine) fail(cause error) {
	e.logger.Error("run failed", "error", cause)
	e.mu.Lock()
	e.run.Status = models.RunError
	now := time.Now().UTC()
	e.run.CompletedAt = &now
	e.mu.Unlock()

	if err := e.persistRun(context.Background()); err != nil {
		e.logger.Error("failed to persist errored run", "error", err)
	}
	e.emit(events.EventError, events.ErrorPayload{RunID: e.run.ID, Message: cause.Error()})
	e.emitStatus()
}

func (e *Engine) persistRun(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	e.mu.Lock()
	run := *e.run
	run.WorldState = e.snapWorld
	e.mu.Unlock()

	return e.store.UpdateRun(ctx, &run)
}

func (e *Engine) emit(eventType string, data any) {
	e.emitter.Emit(eventType, data)
}

func (e *Engine) emitStatus() {
	e.mu.Lock()
	payload := events.RunStatusPayload{
		RunID:       e.run.ID,
		Status:      e.run.Status,
		CurrentStep: e.run.CurrentStep,
	}
	e.mu.Unlock()
	e.emit(events.EventRunStatus, payload)
}

// noteEvent appends a human-readable line to the tick's event log, visible
// to agents processed later in the same step.
func (e *Engine) noteEvent(format string, args ...any) {
	e.stepEvents = append(e.stepEvents, fmt.Sprintf(format, args...))
}

// StatusPayload builds the payload answering a get_status client request.
func (e *Engine) StatusPayload() events.RunStatusPayload {
	e.mu.Lock()
	defer e.mu.Unlock()
	return events.RunStatusPayload{
		RunID:       e.run.ID,
		Status:      e.run.Status,
		CurrentStep: e.run.CurrentStep,
	}
}

// ValidateScenario rejects scenarios the engine cannot run.
func ValidateScenario(s *models.Scenario) error {
	if s == nil {
		return store.NewValidationError("scenario", "scenario is required")
	}
	if s.Name == "" {
		return store.NewValidationError("name", "name is required")
	}
	if s.World.MaxSteps < 0 {
		return store.NewValidationError("world.max_steps", "max_steps cannot be negative")
	}
	if len(s.Agents) == 0 {
		return store.NewValidationError("agents", "at least one agent is required")
	}
	if len(s.World.InitialState.Locations) == 0 {
		return store.NewValidationError("world.initial_state.locations", "at least one location is required")
	}

	seen := make(map[string]struct{})
	for i, tpl := range s.Agents {
		field := fmt.Sprintf("agents[%d]", i)
		if tpl.Name == "" {
			return store.NewValidationError(field+".name", "name is required")
		}
		if _, dup := seen[tpl.Name]; dup {
			return store.NewValidationError(field+".name", fmt.Sprintf("duplicate agent name %q", tpl.Name))
		}
		seen[tpl.Name] = struct{}{}
		if !models.ValidRole(tpl.Role) {
			return store.NewValidationError(field+".role", fmt.Sprintf("unknown role %q", tpl.Role))
		}
		if tpl.Role == models.RoleHuman && tpl.Persona == nil {
			return store.NewValidationError(field+".persona", "human agents need a persona")
		}
		if _, ok := s.World.InitialState.Locations[tpl.Location]; !ok {
			return store.NewValidationError(field+".location", fmt.Sprintf("unknown location %q", tpl.Location))
		}
	}

	for id, loc := range s.World.InitialState.Locations {
		for _, nb := range loc.Nearby {
			if _, ok := s.World.InitialState.Locations[nb]; !ok {
				return store.NewValidationError(
					fmt.Sprintf("world.initial_state.locations[%s].nearby", id),
					fmt.Sprintf("unknown neighbor %q", nb))
			}
		}
	}
	return nil
}

// NewRun allocates a pending run for the scenario. seed and maxSteps
// override the scenario values when non-nil.
func NewRun(s *models.Scenario, seed *int64, maxSteps *int) *models.Run {
	run := &models.Run{
		ID:         uuid.New().String(),
		ScenarioID: s.ID,
		Status:     models.RunPending,
		MaxSteps:   s.World.MaxSteps,
		Seed:       seed,
		WorldState: s.World.InitialState.Clone(),
		CreatedAt:  time.Now().UTC(),
	}
	if maxSteps != nil {
		run.MaxSteps = *maxSteps
	}
	return run
}

var _ bus.Roster = (*Engine)(nil)
