package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/emotionsim/emotionsim/pkg/models"
)

const defaultPageLimit = 50

// PostgresStore implements Store over a PostgreSQL connection pool.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection pool (schema already migrated).
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type scenarioDefinition struct {
	World  models.WorldConfig     `json:"world"`
	Agents []models.AgentTemplate `json:"agents"`
}

func (s *PostgresStore) CreateScenario(ctx context.Context, sc *models.Scenario) error {
	def, err := json.Marshal(scenarioDefinition{World: sc.World, Agents: sc.Agents})
	if err != nil {
		return fmt.Errorf("marshal scenario definition: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scenarios (id, name, description, definition, created_at) VALUES ($1, $2, $3, $4, $5)`,
		sc.ID, sc.Name, sc.Description, def, sc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert scenario: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetScenario(ctx context.Context, id string) (*models.Scenario, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, definition, created_at FROM scenarios WHERE id = $1`, id)
	return scanScenario(row)
}

func (s *PostgresStore) ListScenarios(ctx context.Context, page Page) ([]*models.Scenario, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, definition, created_at FROM scenarios
		 ORDER BY created_at LIMIT $1 OFFSET $2`, limitOf(page.Limit), page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	var out []*models.Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScenario(row rowScanner) (*models.Scenario, error) {
	var sc models.Scenario
	var def []byte
	if err := row.Scan(&sc.ID, &sc.Name, &sc.Description, &def, &sc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("scenario: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan scenario: %w", err)
	}
	var d scenarioDefinition
	if err := json.Unmarshal(def, &d); err != nil {
		return nil, fmt.Errorf("unmarshal scenario definition: %w", err)
	}
	sc.World = d.World
	sc.Agents = d.Agents
	return &sc, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, r *models.Run) error {
	world, metrics, err := marshalRunJSON(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, scenario_id, status, current_step, max_steps, seed,
		                   world_state, metrics, evaluation, created_at, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.ScenarioID, r.Status, r.CurrentStep, r.MaxSteps, r.Seed,
		world, metrics, nullableJSON(r.Evaluation), r.CreatedAt, r.StartedAt, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scenario_id, status, current_step, max_steps, seed,
		        world_state, metrics, evaluation, created_at, started_at, completed_at
		 FROM runs WHERE id = $1`, id)
	return scanRun(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, f RunFilter) ([]*models.Run, error) {
	query := `SELECT id, scenario_id, status, current_step, max_steps, seed,
	                 world_state, metrics, evaluation, created_at, started_at, completed_at
	          FROM runs`
	args := []any{}
	if f.ScenarioID != "" {
		query += ` WHERE scenario_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, f.ScenarioID, limitOf(f.Limit), f.Offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limitOf(f.Limit), f.Offset)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*models.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(row rowScanner) (*models.Run, error) {
	var r models.Run
	var world, metrics, eval []byte
	err := row.Scan(&r.ID, &r.ScenarioID, &r.Status, &r.CurrentStep, &r.MaxSteps, &r.Seed,
		&world, &metrics, &eval, &r.CreatedAt, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if world != nil {
		if err := json.Unmarshal(world, &r.WorldState); err != nil {
			return nil, fmt.Errorf("unmarshal world state: %w", err)
		}
	}
	if metrics != nil {
		if err := json.Unmarshal(metrics, &r.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal metrics: %w", err)
		}
	}
	r.Evaluation = eval
	return &r, nil
}

func (s *PostgresStore) UpdateRun(ctx context.Context, r *models.Run) error {
	world, metrics, err := marshalRunJSON(r)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = $2, current_step = $3, world_state = $4, metrics = $5,
		                 evaluation = $6, started_at = $7, completed_at = $8
		 WHERE id = $1`,
		r.ID, r.Status, r.CurrentStep, world, metrics, nullableJSON(r.Evaluation), r.StartedAt, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) SaveAgents(ctx context.Context, runID string, agents []*models.AgentState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := upsertAgents(ctx, tx, runID, agents); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) ListAgents(ctx context.Context, runID string) ([]*models.AgentState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, name, role, location, health, stress, inventory, active
		 FROM run_agents WHERE run_id = $1 ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []*models.AgentState
	for rows.Next() {
		var a models.AgentState
		var inv []byte
		if err := rows.Scan(&a.ID, &a.RunID, &a.Name, &a.Role, &a.Location, &a.Health, &a.Stress, &inv, &a.Active); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		if inv != nil {
			if err := json.Unmarshal(inv, &a.Inventory); err != nil {
				return nil, fmt.Errorf("unmarshal inventory: %w", err)
			}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// SaveStep writes the step record, its messages, the updated agent states,
// and the run's step counter in one transaction.
func (s *PostgresStore) SaveStep(ctx context.Context, step *models.StepRecord, msgs []*models.MessageRecord, agents []*models.AgentState) error {
	world, err := json.Marshal(step.WorldState)
	if err != nil {
		return fmt.Errorf("marshal world state: %w", err)
	}
	actions, err := json.Marshal(step.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}
	metrics, err := json.Marshal(step.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO steps (run_id, step_index, world_state, actions, metrics, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		step.RunID, step.StepIndex, world, actions, metrics, step.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}

	for _, m := range msgs {
		meta, err := json.Marshal(m.Metadata)
		if err != nil {
			return fmt.Errorf("marshal message metadata: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (id, run_id, from_agent_id, to_target, message_type,
			                       content, metadata, step_index, seq, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			m.ID, m.RunID, m.FromAgentID, m.ToTarget, m.MessageType,
			m.Content, meta, m.StepIndex, m.Seq, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if err := upsertAgents(ctx, tx, step.RunID, agents); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE runs SET current_step = $2, world_state = $3 WHERE id = $1`,
		step.RunID, step.StepIndex, world)
	if err != nil {
		return fmt.Errorf("update run step: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit step: %w", err)
	}
	return nil
}

func upsertAgents(ctx context.Context, tx *sql.Tx, runID string, agents []*models.AgentState) error {
	for _, a := range agents {
		inv, err := json.Marshal(a.Inventory)
		if err != nil {
			return fmt.Errorf("marshal inventory: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_agents (id, run_id, name, role, location, health, stress, inventory, active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (run_id, id) DO UPDATE SET
			     location = EXCLUDED.location, health = EXCLUDED.health,
			     stress = EXCLUDED.stress, inventory = EXCLUDED.inventory,
			     active = EXCLUDED.active`,
			a.ID, runID, a.Name, a.Role, a.Location, a.Health, a.Stress, inv, a.Active)
		if err != nil {
			return fmt.Errorf("upsert agent %s: %w", a.ID, err)
		}
	}
	return nil
}

func (s *PostgresStore) ListSteps(ctx context.Context, runID string, page Page) ([]*models.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, step_index, world_state, actions, metrics, created_at
		 FROM steps WHERE run_id = $1 ORDER BY step_index LIMIT $2 OFFSET $3`,
		runID, limitOf(page.Limit), page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var out []*models.StepRecord
	for rows.Next() {
		var st models.StepRecord
		var world, actions, metrics []byte
		if err := rows.Scan(&st.RunID, &st.StepIndex, &world, &actions, &metrics, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if err := json.Unmarshal(world, &st.WorldState); err != nil {
			return nil, fmt.Errorf("unmarshal step world: %w", err)
		}
		if err := json.Unmarshal(actions, &st.Actions); err != nil {
			return nil, fmt.Errorf("unmarshal step actions: %w", err)
		}
		if err := json.Unmarshal(metrics, &st.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal step metrics: %w", err)
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListMessages(ctx context.Context, runID string, f MessageFilter) ([]*models.MessageRecord, error) {
	query := `SELECT id, run_id, from_agent_id, to_target, message_type, content,
	                 metadata, step_index, seq, created_at
	          FROM messages WHERE run_id = $1`
	args := []any{runID}
	if f.AgentID != "" {
		query += ` AND (from_agent_id = $2 OR (message_type = 'direct' AND to_target = $2))
		           ORDER BY step_index, seq LIMIT $3 OFFSET $4`
		args = append(args, f.AgentID, limitOf(f.Limit), f.Offset)
	} else {
		query += ` ORDER BY step_index, seq LIMIT $2 OFFSET $3`
		args = append(args, limitOf(f.Limit), f.Offset)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []*models.MessageRecord
	for rows.Next() {
		var m models.MessageRecord
		var meta []byte
		if err := rows.Scan(&m.ID, &m.RunID, &m.FromAgentID, &m.ToTarget, &m.MessageType,
			&m.Content, &meta, &m.StepIndex, &m.Seq, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if meta != nil {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal message metadata: %w", err)
			}
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ResetRunningRuns(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = $1 WHERE status = $2`,
		models.RunPaused, models.RunRunning)
	if err != nil {
		return 0, fmt.Errorf("reset running runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func marshalRunJSON(r *models.Run) (world, metrics []byte, err error) {
	if r.WorldState != nil {
		world, err = json.Marshal(r.WorldState)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal world state: %w", err)
		}
	}
	if r.Metrics != nil {
		metrics, err = json.Marshal(r.Metrics)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal metrics: %w", err)
		}
	}
	return world, metrics, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func limitOf(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	return limit
}

var _ Store = (*PostgresStore)(nil)
var _ Store = (*MemoryStore)(nil)
