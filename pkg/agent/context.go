package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/emotionsim/emotionsim/pkg/conversation"
	"github.com/emotionsim/emotionsim/pkg/coop"
	"github.com/emotionsim/emotionsim/pkg/models"
)

// TurnContext carries everything the engine assembled for one agent turn.
type TurnContext struct {
	Step        int
	World       *models.WorldState
	Inbox       []*models.MessageRecord
	StepEvents  []string
	CoLocated   []string
	SharedGoals []string
	Tasks       []*coop.Task
	OpenVotes   []*coop.Vote
	Suggestion  string
	Conv        *conversation.Conversation
	ConvLines   int
}

// BuildContext renders the per-turn prompt. Section order is fixed so
// agents see a stable frame across ticks: goals, world, own state, inbox,
// events, cooperation, loop suggestion, conversation.
func BuildContext(a *Agent, tc TurnContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Step %d\n\n", tc.Step)

	if len(a.Goals) > 0 {
		b.WriteString("## Your goals\n")
		for _, g := range a.Goals {
			fmt.Fprintf(&b, "- %s\n", g)
		}
		b.WriteString("\n")
	}

	writeWorld(&b, a, tc)
	writeSelf(&b, a, tc)
	writeInbox(&b, a, tc)

	if len(tc.StepEvents) > 0 {
		b.WriteString("## Recent events\n")
		for _, ev := range tc.StepEvents {
			fmt.Fprintf(&b, "- %s\n", ev)
		}
		b.WriteString("\n")
	}

	writeCoop(&b, tc)

	if tc.Suggestion != "" {
		fmt.Fprintf(&b, "## Note\n%s\n\n", tc.Suggestion)
	}

	writeConversation(&b, a, tc)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeWorld(b *strings.Builder, a *Agent, tc TurnContext) {
	if tc.World == nil {
		return
	}
	b.WriteString("## World\n")
	fmt.Fprintf(b, "Hazard level: %d/10\n", tc.World.HazardLevel)
	if tc.World.TimeOfDay != "" {
		fmt.Fprintf(b, "Time: %s\n", tc.World.TimeOfDay)
	}
	if tc.World.Weather != "" {
		fmt.Fprintf(b, "Weather: %s\n", tc.World.Weather)
	}

	loc := tc.World.Locations[a.Location]
	if loc != nil {
		fmt.Fprintf(b, "You are at: %s", loc.ID)
		if loc.Description != "" {
			fmt.Fprintf(b, " (%s)", loc.Description)
		}
		b.WriteString("\n")
		if len(loc.Items) > 0 {
			fmt.Fprintf(b, "Items here: %s\n", strings.Join(loc.Items, ", "))
		}
		if len(loc.Nearby) > 0 {
			nearby := append([]string(nil), loc.Nearby...)
			sort.Strings(nearby)
			fmt.Fprintf(b, "Nearby: %s\n", strings.Join(nearby, ", "))
		}
	} else {
		fmt.Fprintf(b, "You are at: %s\n", a.Location)
	}
	if len(tc.CoLocated) > 0 {
		fmt.Fprintf(b, "Also here: %s\n", strings.Join(tc.CoLocated, ", "))
	}
	b.WriteString("\n")
}

func writeSelf(b *strings.Builder, a *Agent, tc TurnContext) {
	b.WriteString("## You\n")
	fmt.Fprintf(b, "Health: %.1f/10, Stress: %.1f/10\n", a.Health, a.Stress)
	if len(a.Inventory) > 0 {
		fmt.Fprintf(b, "Carrying: %s\n", strings.Join(a.Inventory, ", "))
	}
	if a.Travelling() {
		fmt.Fprintf(b, "Travelling to %s (%d hops remaining)\n", a.TravelTarget, len(a.TravelPath))
	}
	if a.Memory != nil {
		if recent := a.Memory.Recent(5); len(recent) > 0 {
			b.WriteString("You remember:\n")
			for _, m := range recent {
				fmt.Fprintf(b, "- %s\n", m)
			}
		}
		for _, other := range tc.CoLocated {
			if rel := a.Memory.Relationship(other); rel != nil {
				fmt.Fprintf(b, "Relationship with %s: %s (trust %.1f)\n", other, rel.Sentiment, rel.TrustLevel)
			}
		}
	}
	b.WriteString("\n")
}

func writeInbox(b *strings.Builder, a *Agent, tc TurnContext) {
	if len(tc.Inbox) == 0 {
		return
	}
	b.WriteString("## Messages for you\n")
	for _, m := range tc.Inbox {
		switch m.MessageType {
		case models.MessageDirect:
			fmt.Fprintf(b, "- %s (to you): %s\n", m.FromAgentID, m.Content)
		case models.MessageRoom:
			fmt.Fprintf(b, "- %s (in %s): %s\n", m.FromAgentID, m.ToTarget, m.Content)
		default:
			fmt.Fprintf(b, "- %s (to everyone): %s\n", m.FromAgentID, m.Content)
		}
	}
	b.WriteString("\n")
}

func writeCoop(b *strings.Builder, tc TurnContext) {
	if len(tc.SharedGoals) == 0 && len(tc.Tasks) == 0 && len(tc.OpenVotes) == 0 {
		return
	}
	b.WriteString("## Cooperation\n")
	if len(tc.SharedGoals) > 0 {
		fmt.Fprintf(b, "Shared goals: %s\n", strings.Join(tc.SharedGoals, "; "))
	}
	for _, task := range tc.Tasks {
		fmt.Fprintf(b, "Task %s [%s, priority %d]: %s", task.ID, task.Status, task.Priority, task.Description)
		if len(task.AssignedAgents) > 0 {
			fmt.Fprintf(b, " (assigned: %s)", strings.Join(task.AssignedAgents, ", "))
		}
		b.WriteString("\n")
	}
	for _, v := range tc.OpenVotes {
		fmt.Fprintf(b, "Open vote %s: %s (options: %s)\n", v.ID, v.Proposal, strings.Join(v.Options, ", "))
	}
	b.WriteString("\n")
}

func writeConversation(b *strings.Builder, a *Agent, tc TurnContext) {
	if tc.Conv == nil {
		return
	}
	lines := tc.ConvLines
	if lines <= 0 {
		lines = 10
	}
	recent := tc.Conv.RecentLines(lines)
	if len(recent) == 0 && tc.Conv.CurrentSpeaker() != a.ID {
		return
	}
	b.WriteString("## Conversation\n")
	for _, l := range recent {
		fmt.Fprintf(b, "%s: %s\n", l.AgentID, l.Content)
	}
	if tc.Conv.CurrentSpeaker() == a.ID {
		b.WriteString("It is your turn to speak.\n")
	}
	b.WriteString("\n")
}
