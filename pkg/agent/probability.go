package agent

import "github.com/emotionsim/emotionsim/pkg/models"

const (
	baseResponseChance = 0.35
	activityBonus      = 0.2
	minResponseChance  = 0.05
)

// ResponseProbability computes the chance a human agent acts this tick.
// Extraverts speak up more, recent activity around the agent pulls
// everyone in, and high stress suppresses neurotic agents. Controller
// roles always act; the engine never consults this for them.
func ResponseProbability(p *models.Persona, stress float64, recentActivity bool) float64 {
	pr := baseResponseChance
	if p != nil {
		pr += 0.5 * p.Traits.Extraversion
	}
	if recentActivity {
		pr += activityBonus
	}
	if stress > 6 && p != nil {
		pr -= 0.3 * p.Traits.Neuroticism * (stress - 6) / 4
	}
	if pr < minResponseChance {
		pr = minResponseChance
	}
	if pr > 1 {
		pr = 1
	}
	return pr
}
