package agent

import (
	"fmt"
	"strings"

	"github.com/emotionsim/emotionsim/pkg/models"
)

const responseFormat = `Respond with a single JSON object:
{
  "actions": [{"action_type": "...", "target": "...", "parameters": {}}],
  "message": {"content": "...", "to_target": "...", "message_type": "direct|room|broadcast"},
  "state_changes": {"health": 0.0, "stress": 0.0},
  "reasoning": "..."
}
All fields are optional. Omit "actions" to do nothing this turn. Omit
"message" to stay silent. Plain text outside JSON is treated as a
broadcast message.`

const humanActions = `Available actions: move, take, drop, use, interact, search, speak,
wait, reflect, help, join_conversation, leave_conversation, propose_task,
accept_task, report_progress, call_for_vote. To vote on an open vote, use
call_for_vote with parameters {"vote_id": "...", "option": "..."}.`

const environmentActions = `Available actions: environment_update (parameters name world state
fields to change, e.g. {"hazard_level": 5}), affect_agent (target an agent,
parameters {"health": -1} or {"stress": 1}), wait.`

// SystemPrompt renders the role preamble for an agent. Human prompts embed
// the persona; controller roles get their own framing.
func SystemPrompt(a *Agent) string {
	switch a.Role {
	case models.RoleEnvironment:
		return strings.Join([]string{
			fmt.Sprintf("You are %s, the environment controller of a simulated world.", a.Name),
			"You do not play a character. Each turn you may escalate or ease the",
			"hazard, alter locations, place or remove items, reveal hidden items,",
			"or directly affect agents. Keep changes gradual and consistent with",
			"the scenario dynamics.",
			environmentActions,
			responseFormat,
		}, "\n")
	case models.RoleDesigner:
		return strings.Join([]string{
			fmt.Sprintf("You are %s, the narrative director of a simulated world.", a.Name),
			"You observe the agents and steer the story: introduce complications,",
			"create pressure, and open opportunities. You act through the same",
			"environment controls but your goal is drama, not realism.",
			environmentActions,
			responseFormat,
		}, "\n")
	case models.RoleEvaluator:
		return strings.Join([]string{
			fmt.Sprintf("You are %s, a silent evaluator observing a simulation.", a.Name),
			"You take no actions and send no messages. Each turn, summarize how",
			"the agents are doing against the scenario goals in your reasoning",
			"field. At the final step, produce a structured verdict.",
			responseFormat,
		}, "\n")
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "You are %s, a person in a simulated world.\n", a.Name)
		if a.Persona != nil {
			b.WriteString(a.Persona.PromptDescription(a.Name))
			b.WriteString("\n")
		}
		b.WriteString("Act in character. You experience the world only through the\n")
		b.WriteString("context you are given. Speak naturally to the people around you.\n")
		b.WriteString(humanActions)
		b.WriteString("\n")
		b.WriteString(responseFormat)
		return b.String()
	}
}
