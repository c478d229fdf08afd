// Package agent implements the agent runtime: per-role prompt construction,
// context assembly, the oracle call, response parsing and validation, and
// the human response-probability model.
package agent

import (
	"github.com/emotionsim/emotionsim/pkg/memory"
	"github.com/emotionsim/emotionsim/pkg/models"
)

// Agent is one live agent instance bound to a run. The engine owns it and
// mutates it only from within the agent's turn.
type Agent struct {
	ID            string
	Name          string
	Role          models.AgentRole
	TemplateIndex int
	Model         string
	Provider      string
	Persona       *models.Persona
	Goals         []string

	Location  string
	Health    float64
	Stress    float64
	Inventory []string
	Active    bool

	// Travel plan: remaining hops toward TravelTarget, advanced one hop
	// per tick.
	TravelPath   []string
	TravelTarget string

	Memory *memory.Memory
}

// NewFromTemplate instantiates an agent from its scenario template. Agent
// ids are the template names; message targets address agents by name.
func NewFromTemplate(index int, tpl models.AgentTemplate, memoryWindow int) *Agent {
	health := tpl.Health
	if health == 0 {
		health = 10
	}
	return &Agent{
		ID:            tpl.Name,
		Name:          tpl.Name,
		Role:          tpl.Role,
		TemplateIndex: index,
		Model:         tpl.Model,
		Provider:      tpl.Provider,
		Persona:       tpl.Persona,
		Goals:         append([]string(nil), tpl.Goals...),
		Location:      tpl.Location,
		Health:        clamp(health, 0, 10),
		Stress:        clamp(tpl.Stress, 0, 10),
		Inventory:     append([]string(nil), tpl.Inventory...),
		Active:        true,
		Memory:        memory.New(memoryWindow),
	}
}

// State snapshots the agent for persistence and the API.
func (a *Agent) State(runID string) *models.AgentState {
	return &models.AgentState{
		ID:        a.ID,
		RunID:     runID,
		Name:      a.Name,
		Role:      a.Role,
		Location:  a.Location,
		Health:    a.Health,
		Stress:    a.Stress,
		Inventory: append([]string(nil), a.Inventory...),
		Active:    a.Active,
	}
}

// ApplyHealthDelta clamps health to [0,10]. Reaching zero deactivates the
// agent. Returns the old and new values.
func (a *Agent) ApplyHealthDelta(delta float64) (old, updated float64) {
	old = a.Health
	a.Health = clamp(a.Health+delta, 0, 10)
	if a.Health == 0 {
		a.Active = false
	}
	return old, a.Health
}

// ApplyStressDelta clamps stress to [0,10]. Returns the old and new values.
func (a *Agent) ApplyStressDelta(delta float64) (old, updated float64) {
	old = a.Stress
	a.Stress = clamp(a.Stress+delta, 0, 10)
	return old, a.Stress
}

// HasItem reports whether the item id is in the agent's inventory.
func (a *Agent) HasItem(itemID string) bool {
	for _, id := range a.Inventory {
		if id == itemID {
			return true
		}
	}
	return false
}

// RemoveItem takes the item out of the inventory, reporting success.
func (a *Agent) RemoveItem(itemID string) bool {
	for i, id := range a.Inventory {
		if id == itemID {
			a.Inventory = append(a.Inventory[:i], a.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

// Travelling reports whether the agent has hops left in its travel plan.
func (a *Agent) Travelling() bool { return len(a.TravelPath) > 0 }

// ClearTravel drops any pending travel plan.
func (a *Agent) ClearTravel() {
	a.TravelPath = nil
	a.TravelTarget = ""
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
