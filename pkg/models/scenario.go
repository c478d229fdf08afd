package models

import "time"

// AgentRole identifies the behavior variant of an agent template.
type AgentRole string

const (
	RoleHuman       AgentRole = "human"
	RoleEnvironment AgentRole = "environment"
	RoleDesigner    AgentRole = "designer"
	RoleEvaluator   AgentRole = "evaluator"
)

// ValidRole reports whether r is one of the known agent roles.
func ValidRole(r AgentRole) bool {
	switch r {
	case RoleHuman, RoleEnvironment, RoleDesigner, RoleEvaluator:
		return true
	}
	return false
}

// Scenario is an immutable simulation template. Runs copy its world config
// at creation time; the scenario itself is never mutated by the engine.
type Scenario struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	World       WorldConfig     `json:"world"`
	Agents      []AgentTemplate `json:"agents"`
	CreatedAt   time.Time       `json:"created_at"`
}

// WorldConfig holds the initial world plus loop parameters.
type WorldConfig struct {
	InitialState WorldState     `json:"initial_state"`
	Dynamics     map[string]any `json:"dynamics,omitempty"`
	MaxSteps     int            `json:"max_steps"`
	TickDelay    float64        `json:"tick_delay_seconds"`
}

// AgentTemplate is the per-agent slice of a scenario.
type AgentTemplate struct {
	Name      string    `json:"name"`
	Role      AgentRole `json:"role"`
	Model     string    `json:"model"`
	Provider  string    `json:"provider,omitempty"`
	Persona   *Persona  `json:"persona,omitempty"`
	Goals     []string  `json:"goals,omitempty"`
	Location  string    `json:"location"`
	Health    float64   `json:"health"`
	Stress    float64   `json:"stress"`
	Inventory []string  `json:"inventory,omitempty"`
}

// WorldState is the mutable world of a run. Reserved keys from the scenario
// initial-state mapping are lifted into typed fields; everything else rides
// in Extra untouched.
type WorldState struct {
	HazardLevel int                  `json:"hazard_level"`
	TimeOfDay   string               `json:"time_of_day,omitempty"`
	Weather     string               `json:"weather,omitempty"`
	Locations   map[string]*Location `json:"locations"`
	Items       map[string]*Item     `json:"items,omitempty"`
	Extra       map[string]any       `json:"extra,omitempty"`
}

// Location is a node in the world graph. Items holds item ids; an item id
// appears either here or in exactly one agent inventory, never both.
type Location struct {
	ID             string   `json:"id"`
	Description    string   `json:"description,omitempty"`
	Nearby         []string `json:"nearby,omitempty"`
	Distance       int      `json:"distance"`
	Items          []string `json:"items,omitempty"`
	HiddenItems    []string `json:"hidden_items,omitempty"`
	HazardAffected bool     `json:"hazard_affected,omitempty"`
	HealthPerTick  float64  `json:"health_per_tick,omitempty"`
	StressPerTick  float64  `json:"stress_per_tick,omitempty"`
}

// Item lives in exactly one container at a time.
type Item struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// Clone returns a deep copy of the world state. Step records snapshot the
// world through this so later ticks cannot mutate persisted history.
func (w *WorldState) Clone() *WorldState {
	if w == nil {
		return nil
	}
	out := &WorldState{
		HazardLevel: w.HazardLevel,
		TimeOfDay:   w.TimeOfDay,
		Weather:     w.Weather,
	}
	if w.Locations != nil {
		out.Locations = make(map[string]*Location, len(w.Locations))
		for id, loc := range w.Locations {
			c := *loc
			c.Nearby = append([]string(nil), loc.Nearby...)
			c.Items = append([]string(nil), loc.Items...)
			c.HiddenItems = append([]string(nil), loc.HiddenItems...)
			out.Locations[id] = &c
		}
	}
	if w.Items != nil {
		out.Items = make(map[string]*Item, len(w.Items))
		for id, item := range w.Items {
			c := *item
			c.Properties = cloneMap(item.Properties)
			out.Items[id] = &c
		}
	}
	out.Extra = cloneMap(w.Extra)
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
