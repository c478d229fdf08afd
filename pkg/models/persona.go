package models

import (
	"fmt"
	"strings"
)

// BigFive holds the five personality traits, each in [0.0, 1.0].
type BigFive struct {
	Openness          float64 `json:"openness"`
	Conscientiousness float64 `json:"conscientiousness"`
	Extraversion      float64 `json:"extraversion"`
	Agreeableness     float64 `json:"agreeableness"`
	Neuroticism       float64 `json:"neuroticism"`
}

// BehavioralModifiers tune decision tendencies, each in [0.0, 1.0].
type BehavioralModifiers struct {
	RiskTolerance    float64 `json:"risk_tolerance"`
	Empathy          float64 `json:"empathy"`
	Leadership       float64 `json:"leadership"`
	Adaptability     float64 `json:"adaptability"`
	StressResilience float64 `json:"stress_resilience"`
}

// Persona describes a human agent. Required for RoleHuman templates.
type Persona struct {
	Age        int                 `json:"age"`
	Sex        string              `json:"sex,omitempty"`
	Occupation string              `json:"occupation,omitempty"`
	Backstory  string              `json:"backstory,omitempty"`
	Traits     BigFive             `json:"traits"`
	Modifiers  BehavioralModifiers `json:"modifiers"`
}

// PromptDescription renders the persona as natural language for the system
// prompt. Traits only surface when they are pronounced enough to matter.
func (p *Persona) PromptDescription(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s", name)
	if p.Age > 0 {
		fmt.Fprintf(&b, ", %d years old", p.Age)
	}
	if p.Occupation != "" {
		fmt.Fprintf(&b, ", working as %s", p.Occupation)
	}
	b.WriteString(".")
	if p.Backstory != "" {
		b.WriteString(" " + p.Backstory)
	}

	var traits []string
	if p.Traits.Extraversion >= 0.7 {
		traits = append(traits, "outgoing and talkative")
	} else if p.Traits.Extraversion <= 0.3 {
		traits = append(traits, "reserved and quiet")
	}
	if p.Traits.Openness >= 0.7 {
		traits = append(traits, "curious and open to new ideas")
	}
	if p.Traits.Conscientiousness >= 0.7 {
		traits = append(traits, "organized and dependable")
	} else if p.Traits.Conscientiousness <= 0.3 {
		traits = append(traits, "impulsive")
	}
	if p.Traits.Agreeableness >= 0.7 {
		traits = append(traits, "cooperative and trusting")
	} else if p.Traits.Agreeableness <= 0.3 {
		traits = append(traits, "skeptical of others")
	}
	if p.Traits.Neuroticism >= 0.7 {
		traits = append(traits, "anxious under pressure")
	} else if p.Traits.Neuroticism <= 0.3 {
		traits = append(traits, "calm under pressure")
	}
	if len(traits) > 0 {
		b.WriteString(" You are " + strings.Join(traits, ", ") + ".")
	}

	if p.Modifiers.Leadership >= 0.7 {
		b.WriteString(" You naturally take charge in groups.")
	}
	if p.Modifiers.Empathy >= 0.7 {
		b.WriteString(" You notice and respond to how others feel.")
	}
	if p.Modifiers.RiskTolerance <= 0.3 {
		b.WriteString(" You avoid unnecessary risks.")
	} else if p.Modifiers.RiskTolerance >= 0.7 {
		b.WriteString(" You are willing to take bold risks.")
	}
	return b.String()
}
