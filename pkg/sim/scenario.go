package sim

import (
	"time"

	"github.com/emotionsim/emotionsim/pkg/models"
)

// RisingFlood is the built-in demonstration scenario: a river town floods
// over twenty steps while three residents try to reach high ground.
func RisingFlood() *models.Scenario {
	return &models.Scenario{
		ID:          "rising-flood",
		Name:        "Rising Flood",
		Description: "A river town floods over the course of a day. The residents must find each other, gather supplies, and reach high ground.",
		World: models.WorldConfig{
			MaxSteps:  20,
			TickDelay: 1,
			InitialState: models.WorldState{
				HazardLevel: 1,
				TimeOfDay:   "morning",
				Weather:     "heavy rain",
				Locations: map[string]*models.Location{
					"main_street": {
						ID:             "main_street",
						Description:    "the town's main street, ankle-deep in water",
						Nearby:         []string{"general_store", "townhouse", "riverbank"},
						Distance:       1,
						HazardAffected: true,
						StressPerTick:  0.3,
					},
					"general_store": {
						ID:          "general_store",
						Description: "a small store with emergency supplies",
						Nearby:      []string{"main_street"},
						Distance:    1,
						Items:       []string{"rope", "first_aid_kit"},
						HiddenItems: []string{"flashlight"},
					},
					"townhouse": {
						ID:          "townhouse",
						Description: "a two-story house with a sturdy roof access",
						Nearby:      []string{"main_street", "rooftop"},
						Distance:    1,
					},
					"riverbank": {
						ID:             "riverbank",
						Description:    "the swollen riverbank, dangerous to linger at",
						Nearby:         []string{"main_street", "footbridge"},
						Distance:       1,
						HazardAffected: true,
						HealthPerTick:  -0.5,
						StressPerTick:  0.5,
					},
					"footbridge": {
						ID:             "footbridge",
						Description:    "a narrow footbridge over the river",
						Nearby:         []string{"riverbank", "hillside"},
						Distance:       2,
						HazardAffected: true,
						HealthPerTick:  -0.3,
					},
					"hillside": {
						ID:          "hillside",
						Description: "high ground overlooking the town, safe from the water",
						Nearby:      []string{"footbridge"},
						Distance:    2,
					},
					"rooftop": {
						ID:          "rooftop",
						Description: "the townhouse roof, dry but exposed",
						Nearby:      []string{"townhouse"},
						Distance:    1,
					},
				},
				Items: map[string]*models.Item{
					"rope": {
						ID: "rope", Name: "coil of rope",
						Description: "strong enough to secure a crossing",
					},
					"first_aid_kit": {
						ID: "first_aid_kit", Name: "first aid kit",
						Properties: map[string]any{"heal": 2.0, "consumable": true},
					},
					"flashlight": {
						ID: "flashlight", Name: "flashlight",
						Properties: map[string]any{"stress": -1.0},
					},
				},
			},
		},
		Agents: []models.AgentTemplate{
			{
				Name:     "river",
				Role:     models.RoleEnvironment,
				Location: "riverbank",
				Goals:    []string{"raise the water level gradually until step 15, then hold"},
			},
			{
				Name:     "marta",
				Role:     models.RoleHuman,
				Location: "general_store",
				Health:   10,
				Stress:   2,
				Goals:    []string{"get everyone to high ground", "bring the first aid kit"},
				Persona: &models.Persona{
					Age: 52, Occupation: "the store owner",
					Backstory: "Marta has run the general store for twenty years and knows everyone in town.",
					Traits: models.BigFive{
						Openness: 0.5, Conscientiousness: 0.8, Extraversion: 0.7,
						Agreeableness: 0.8, Neuroticism: 0.3,
					},
					Modifiers: models.BehavioralModifiers{
						RiskTolerance: 0.4, Empathy: 0.8, Leadership: 0.8,
						Adaptability: 0.6, StressResilience: 0.7,
					},
				},
			},
			{
				Name:     "dan",
				Role:     models.RoleHuman,
				Location: "townhouse",
				Health:   8,
				Stress:   4,
				Goals:    []string{"find his dog", "reach high ground"},
				Persona: &models.Persona{
					Age: 29, Occupation: "a delivery driver",
					Backstory: "Dan moved to town last year and his dog ran off when the sirens started.",
					Traits: models.BigFive{
						Openness: 0.6, Conscientiousness: 0.4, Extraversion: 0.4,
						Agreeableness: 0.6, Neuroticism: 0.7,
					},
					Modifiers: models.BehavioralModifiers{
						RiskTolerance: 0.7, Empathy: 0.6, Leadership: 0.3,
						Adaptability: 0.7, StressResilience: 0.3,
					},
				},
			},
			{
				Name:     "elena",
				Role:     models.RoleHuman,
				Location: "main_street",
				Health:   10,
				Stress:   3,
				Goals:    []string{"check on the riverbank houses", "reach high ground"},
				Persona: &models.Persona{
					Age: 41, Occupation: "a paramedic",
					Backstory: "Elena is off duty but cannot stop thinking like a first responder.",
					Traits: models.BigFive{
						Openness: 0.7, Conscientiousness: 0.9, Extraversion: 0.5,
						Agreeableness: 0.7, Neuroticism: 0.4,
					},
					Modifiers: models.BehavioralModifiers{
						RiskTolerance: 0.6, Empathy: 0.9, Leadership: 0.6,
						Adaptability: 0.8, StressResilience: 0.8,
					},
				},
			},
			{
				Name:     "chronicler",
				Role:     models.RoleEvaluator,
				Location: "hillside",
				Goals:    []string{"judge whether the residents reached safety together"},
			},
		},
		CreatedAt: time.Now().UTC(),
	}
}
