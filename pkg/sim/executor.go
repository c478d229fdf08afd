package sim

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/emotionsim/emotionsim/pkg/agent"
	"github.com/emotionsim/emotionsim/pkg/coop"
	"github.com/emotionsim/emotionsim/pkg/events"
	"github.com/emotionsim/emotionsim/pkg/models"
	"github.com/emotionsim/emotionsim/pkg/world"
)

// maxAffectDelta bounds a single affect_agent health/stress adjustment.
const maxAffectDelta = 3.0

// applyResponse executes a parsed agent response: actions in emitted order,
// then state changes, then the message. A failed action is recorded but
// never aborts the rest of the response.
func (e *Engine) applyResponse(a *agent.Agent, resp *models.AgentResponse, step int) {
	for _, act := range resp.Actions {
		e.executeAction(a, act, step)
		if !a.Active {
			break
		}
	}

	for field, delta := range resp.StateChanges {
		e.applyStateDelta(a, field, delta, step)
	}

	if resp.Message != nil && a.Active {
		e.publishMessage(a, *resp.Message, step)
	}
}

func (e *Engine) executeAction(a *agent.Agent, act models.AgentAction, step int) {
	e.loops.RecordAction(a.ID, act.Type, act.Target)

	rec := models.ActionRecord{
		AgentID:    a.ID,
		ActionType: act.Type,
		Target:     act.Target,
		Parameters: act.Parameters,
	}

	switch act.Type {
	case models.ActionMove:
		e.executeMove(a, act, &rec, step)
	case models.ActionTake:
		e.executeTake(a, act, &rec)
	case models.ActionDrop:
		e.executeDrop(a, act, &rec)
	case models.ActionUse:
		e.executeUse(a, act, &rec, step)
	case models.ActionInteract:
		e.executeInteract(a, act, &rec, step)
	case models.ActionSearch:
		e.executeSearch(a, &rec)
	case models.ActionSpeak:
		e.executeSpeak(a, act, &rec, step)
	case models.ActionWait, models.ActionReflect:
		rec.Success = true
	case models.ActionHelp:
		e.executeHelp(a, act, &rec, step)
	case models.ActionJoinConversation:
		e.executeJoin(a, &rec, step)
	case models.ActionLeaveConversation:
		e.executeLeave(a, &rec, step)
	case models.ActionProposeTask:
		e.executeProposeTask(a, act, &rec, step)
	case models.ActionAcceptTask:
		e.executeAcceptTask(a, act, &rec, step)
	case models.ActionReportProgress:
		e.executeReportProgress(a, act, &rec)
	case models.ActionCallForVote:
		e.executeCallForVote(a, act, &rec, step)
	case models.ActionEnvironmentUpdate:
		e.executeEnvironmentUpdate(a, act, &rec, step)
	case models.ActionAffectAgent:
		e.executeAffectAgent(a, act, &rec, step)
	default:
		rec.Detail = fmt.Sprintf("unknown action type %q", act.Type)
	}

	e.stepActions = append(e.stepActions, rec)

	// A same-location move is a silent no-op: recorded, not announced.
	if act.Type == models.ActionMove && rec.Success && rec.Target == a.Location && rec.Detail == "noop" {
		return
	}
	e.emit(events.EventAgentAction, events.AgentActionPayload{
		AgentID:    a.ID,
		ActionType: act.Type,
		Target:     act.Target,
		Success:    rec.Success,
		Detail:     rec.Detail,
		StepIndex:  step,
	})
}

func (e *Engine) executeMove(a *agent.Agent, act models.AgentAction, rec *models.ActionRecord, step int) {
	if act.Target == "" {
		rec.Detail = "move needs a target location"
		return
	}

	rerouted := a.Travelling() && act.Target != a.TravelTarget && act.Target != a.Location
	if a.Travelling() && act.Target != a.TravelTarget {
		a.ClearTravel()
	}

	from := a.Location
	out := e.graph.ResolveMove(a.ID, a.Location, act.Target)
	switch out.Kind {
	case world.OutcomeNoop:
		rec.Success = true
		rec.Detail = "noop"

	case world.OutcomeCreated:
		loc := e.graph.Location(act.Target)
		e.emit(events.EventLocationNew, events.LocationCreatedPayload{
			LocationID: act.Target,
			Origin:     from,
			Distance:   loc.Distance,
			StepIndex:  step,
		})
		a.Location = out.Location
		rec.Success = true
		e.emit(events.EventAgentMoved, events.AgentMovedPayload{
			AgentID: a.ID, From: from, To: a.Location, StepIndex: step,
		})
		e.noteEvent("%s discovered %s and moved there", a.Name, act.Target)

	case world.OutcomeMoved:
		a.Location = out.Location
		rec.Success = true
		e.emit(events.EventAgentMoved, events.AgentMovedPayload{
			AgentID: a.ID, From: from, To: a.Location, StepIndex: step,
		})
		e.noteEvent("%s moved to %s", a.Name, a.Location)

	case world.OutcomeTravelling:
		a.TravelPath = append([]string(nil), out.Remaining...)
		a.TravelTarget = act.Target
		rec.Success = true
		payload := events.TravelPayload{
			AgentID:     a.ID,
			Destination: act.Target,
			Path:        out.Path,
			Remaining:   out.Remaining,
			StepIndex:   step,
		}
		if rerouted {
			e.emit(events.EventAgentRerouted, payload)
		} else {
			e.emit(events.EventTravelStarted, payload)
		}
		a.Location = out.Location
		e.emit(events.EventAgentMoved, events.AgentMovedPayload{
			AgentID: a.ID, From: from, To: a.Location, StepIndex: step,
		})
		e.noteEvent("%s set out for %s", a.Name, act.Target)

	case world.OutcomeFailed:
		rec.Detail = out.Reason
		if !out.Suppressed {
			e.emit(events.EventMovementFailed, events.MovementFailedPayload{
				AgentID: a.ID, Target: act.Target, Reason: out.Reason, StepIndex: step,
			})
		}
	}
}

func (e *Engine) executeTake(a *agent.Agent, act models.AgentAction, rec *models.ActionRecord) {
	if act.Target == "" {
		rec.Detail = "take needs an item"
		return
	}
	if !e.graph.RemoveItem(a.Location, act.Target) {
		rec.Detail = fmt.Sprintf("no %s at %s", act.Target, a.Location)
		return
	}
	a.Inventory = append(a.Inventory, act.Target)
	rec.Success = true
	e.noteEvent("%s picked up %s", a.Name, act.Target)
}

func (e *Engine) executeDrop(a *agent.Agent, act models.AgentAction, rec *models.ActionRecord) {
	if !a.RemoveItem(act.Target) {
		rec.Detail = fmt.Sprintf("not carrying %s", act.Target)
		return
	}
	e.graph.AddItem(a.Location, act.Target)
	rec.Success = true
	e.noteEvent("%s dropped %s at %s", a.Name, act.Target, a.Location)
}

func (e *Engine) executeUse(a *agent.Agent, act models.AgentAction, rec *models.ActionRecord, step int) {
	if !a.HasItem(act.Target) {
		rec.Detail = fmt.Sprintf("not carrying %s", act.Target)
		return
	}
	rec.Success = true

	item := e.graph.Item(act.Target)
	if item == nil {
		return
	}
	if heal, ok := floatProp(item.Properties, "heal"); ok {
		e.applyStateDelta(a, "health", heal, step)
	}
	if calm, ok := floatProp(item.Properties, "stress"); ok {
		e.applyStateDelta(a, "stress", calm, step)
	}
	if consumable, _ := item.Properties["consumable"].(bool); consumable {
		a.RemoveItem(act.Target)
		delete(e.graph.State().Items, act.Target)
	}
	e.noteEvent("%s used %s", a.Name, act.Target)
}

func (e *Engine) executeInteract(a *agent.Agent, act models.AgentAction, rec *models.ActionRecord, step int) {
	if act.Target != "" {
		if _, ok := e.byID[act.Target]; !ok && e.graph.Item(act.Target) == nil && !e.graph.Contains(act.Target) {
			rec.Detail = fmt.Sprintf("no such target %s", act.Target)
			return
		}
	}
	rec.Success = true
	detail := paramString(act.Parameters, "description")
	e.emit(events.EventAgentInteract, events.AgentInteractedPayload{
		AgentID: a.ID, Target: act.Target, Detail: detail, StepIndex: step,
	})
	e.noteEvent("%s interacted with %s", a.Name, act.Target)
}

func (e *Engine) executeSearch(a *agent.Agent, rec *models.ActionRecord) {
	revealed := e.graph.RevealHidden(a.Location)
	rec.Success = true
	if len(revealed) > 0 {
		rec.Detail = "found " + strings.Join(revealed, ", ")
		e.noteEvent("%s searched %s and found %s", a.Name, a.Location, strings.Join(revealed, ", "))
	} else {
		rec.Detail = "found nothing"
	}
}

func (e *Engine) executeSpeak(a *agent.Agent, act models.AgentAction, rec *models.ActionRecord, step int) {
	content := paramString(act.Parameters, "content")
	if content == "" {
		rec.Detail = "speak needs content"
		return
	}
	msg := models.AgentMessage{Content: content, ToTarget: act.Target}
	if msg.ToTarget == "" || msg.ToTarget == models.BroadcastTarget {
		msg.ToTarget = models.BroadcastTarget
		msg.MessageType = models.MessageBroadcast
	} else if e.graph.Contains(msg.ToTarget) {
		msg.MessageType = models.MessageRoom
	} else {
		msg.MessageType = models.MessageDirect
	}
	e.publishMessage(a, msg, step)
	rec.Success = true
}

func (e *Engine) executeHelp(a *agent.Agent, act models.AgentAction, rec *models.ActionRecord, step int) {
	target, ok := e.byID[act.Target]
	if !ok || !target.Active {
		rec.Detail = fmt.Sprintf("no such agent %s", act.Target)
		return
	}
	if target.Location != a.Location {
		rec.Detail = fmt.Sprintf("%s is not here", act.Target)
		return
	}
	rec.Success = true
	e.applyStateDelta(target, "stress", -1, step)
	e.applyStateDelta(target, "health", 1, step)
	e.emit(events.EventAgentInteract, events.AgentInteractedPayload{
		AgentID: a.ID, Target: target.ID, Detail: "helped", StepIndex: step,
	})
	a.Memory.RecordInteraction(target.ID, 0.5, fmt.Sprintf("helped %s", target.Name), step, a.Location)
	target.Memory.RecordInteraction(a.ID, 0.5, fmt.Sprintf("%s helped me", a.Name), step, a.Location)
	e.noteEvent("%s helped %s", a.Name, target.Name)
}

func (e *Engine) executeJoin(a *agent.Agent, rec *models.ActionRecord, step int) {
	conv := e.convs.Join(a.ID, a.Location)
	if conv == nil {
		rec.Detail = "no conversation here"
		return
	}
	rec.Success = true
	rec.Detail = conv.ID
}

func (e *Engine) executeLeave(a *agent.Agent, rec *models.ActionRecord, step int) {
	conv := e.convs.For(a.ID)
	if conv == nil {
		rec.Detail = "not in a conversation"
		return
	}
	rec.Success = true
	if ended := e.convs.Leave(a.ID); ended != nil {
		e.emitConversationEnded(ended, step)
	}
}

func (e *Engine) executeProposeTask(a *agent.Agent, act models.AgentAction, rec *models.ActionRecord, step int) {
	description := paramString(act.Parameters, "description")
	if description == "" {
		description = act.Target
	}
	if description == "" {
		rec.Detail = "propose_task needs a description"
		return
	}
	priority := paramInt(act.Parameters, "priority", 5)
	task := e.coord.ProposeTask(a.ID, description, priority, paramStrings(act.Parameters, "required_skills"), step)
	rec.Success = true
	rec.Detail = task.ID
	e.emit(events.EventTaskProposed, events.TaskPayload{
		TaskID: task.ID, AgentID: a.ID, Description: description,
		Status: string(task.Status), StepIndex: step,
	})
	e.noteEvent("%s proposed a task: %s", a.Name, description)
}

func (e *Engine) executeAcceptTask(a *agent.Agent, act models.AgentAction, rec *models.ActionRecord, step int) {
	task, err := e.coord.AcceptTask(a.ID, act.Target)
	if err != nil {
		rec.Detail = err.Error()
		return
	}
	rec.Success = true
	e.emit(events.EventTaskAccepted, events.TaskPayload{
		TaskID: task.ID, AgentID: a.ID, Description: task.Description,
		Status: string(task.Status), Progress: task.Progress, StepIndex: step,
	})
	e.noteEvent("%s accepted task %q", a.Name, task.Description)
}

func (e *Engine) executeReportProgress(a *agent.Agent, act models.AgentAction, rec *models.ActionRecord) {
	progress := paramInt(act.Parameters, "progress", 0)
	status := coop.TaskStatus(paramString(act.Parameters, "status"))
	task, err := e.coord.ReportProgress(a.ID, act.Target, progress, status)
	if err != nil {
		rec.Detail = err.Error()
		return
	}
	rec.Success = true
	rec.Detail = fmt.Sprintf("progress %d%%", task.Progress)
}

func (e *Engine) executeCallForVote(a *agent.Agent, act models.AgentAction, rec *models.ActionRecord, step int) {
	// With a vote_id parameter this is a ballot on an open vote, not a new
	// vote call.
	if voteID := paramString(act.Parameters, "vote_id"); voteID != "" {
		option := paramString(act.Parameters, "option")
		open := false
		for _, v := range e.coord.OpenVotes(step) {
			if v.ID == voteID {
				open = true
				break
			}
		}
		if !open {
			rec.Detail = fmt.Sprintf("vote %s is not accepting ballots", voteID)
			return
		}
		if err := e.coord.CastBallot(a.ID, voteID, option); err != nil {
			rec.Detail = err.Error()
			return
		}
		rec.Success = true
		rec.Detail = fmt.Sprintf("voted %s", option)
		return
	}

	proposal := paramString(act.Parameters, "proposal")
	if proposal == "" {
		proposal = act.Target
	}
	options := paramStrings(act.Parameters, "options")
	if len(options) == 0 {
		options = []string{"yes", "no"}
	}
	vote, err := e.coord.CallForVote(a.ID, proposal, options, step)
	if err != nil {
		rec.Detail = err.Error()
		return
	}
	rec.Success = true
	rec.Detail = vote.ID
	e.emit(events.EventVoteCalled, events.VotePayload{
		VoteID: vote.ID, CalledBy: a.ID, Proposal: proposal,
		Options: options, StepIndex: step,
	})
	e.noteEvent("%s called a vote: %s", a.Name, proposal)
}

func (e *Engine) executeEnvironmentUpdate(a *agent.Agent, act models.AgentAction, rec *models.ActionRecord, step int) {
	if a.Role != models.RoleEnvironment && a.Role != models.RoleDesigner {
		rec.Detail = "insufficient permission"
		return
	}
	state := e.graph.State()
	var applied []string
	for key, value := range act.Parameters {
		switch key {
		case "hazard_level":
			level, ok := toFloat(value)
			if !ok {
				rec.Detail = "hazard_level must be a number"
				return
			}
			state.HazardLevel = clampInt(int(level), 0, 10)
			applied = append(applied, fmt.Sprintf("hazard_level=%d", state.HazardLevel))
			e.noteEvent("the hazard level is now %d", state.HazardLevel)
		case "weather":
			s, ok := value.(string)
			if !ok {
				rec.Detail = "weather must be a string"
				return
			}
			state.Weather = s
			applied = append(applied, "weather="+s)
			e.noteEvent("the weather turned to %s", s)
		case "time_of_day":
			s, ok := value.(string)
			if !ok {
				rec.Detail = "time_of_day must be a string"
				return
			}
			state.TimeOfDay = s
			applied = append(applied, "time_of_day="+s)
		default:
			if state.Extra == nil {
				state.Extra = make(map[string]any)
			}
			state.Extra[key] = value
			applied = append(applied, key)
		}
	}
	rec.Success = true
	rec.Detail = strings.Join(applied, ", ")
}

func (e *Engine) executeAffectAgent(a *agent.Agent, act models.AgentAction, rec *models.ActionRecord, step int) {
	if a.Role != models.RoleEnvironment && a.Role != models.RoleDesigner {
		rec.Detail = "insufficient permission"
		return
	}
	target, ok := e.byID[act.Target]
	if !ok {
		rec.Detail = fmt.Sprintf("no such agent %s", act.Target)
		return
	}
	rec.Success = true
	if delta, ok := floatProp(act.Parameters, "health"); ok {
		e.applyStateDelta(target, "health", boundDelta(delta), step)
	}
	if delta, ok := floatProp(act.Parameters, "stress"); ok {
		e.applyStateDelta(target, "stress", boundDelta(delta), step)
	}
}

// applyStateDelta mutates one agent state field, emitting state_change when
// the value actually moved.
func (e *Engine) applyStateDelta(a *agent.Agent, field string, delta float64, step int) {
	var old, updated float64
	switch field {
	case "health":
		old, updated = a.ApplyHealthDelta(delta)
	case "stress":
		old, updated = a.ApplyStressDelta(delta)
	default:
		return
	}
	if old == updated {
		return
	}
	e.emit(events.EventStateChange, events.StateChangePayload{
		AgentID: a.ID, Field: field, Old: old, New: updated, StepIndex: step,
	})
	if field == "health" && updated == 0 {
		e.noteEvent("%s collapsed", a.Name)
	}
}

// publishMessage routes an outgoing message and updates conversation and
// relationship state around it.
func (e *Engine) publishMessage(a *agent.Agent, msg models.AgentMessage, step int) {
	if msg.MessageType == "" {
		if msg.ToTarget == "" || msg.ToTarget == models.BroadcastTarget {
			msg.MessageType = models.MessageBroadcast
		} else if e.graph.Contains(msg.ToTarget) {
			msg.MessageType = models.MessageRoom
		} else {
			msg.MessageType = models.MessageDirect
		}
	}
	if msg.MessageType == models.MessageBroadcast {
		msg.ToTarget = models.BroadcastTarget
	}
	if msg.MessageType == models.MessageDirect {
		if _, ok := e.byID[msg.ToTarget]; !ok {
			e.logger.Warn("dropping message to unknown agent",
				"run_id", e.run.ID, "from", a.ID, "to", msg.ToTarget)
			return
		}
	}

	rec := e.msgBus.Publish(a.ID, msg, step)
	e.emit(events.EventMessage, events.MessagePayload{
		MessageID:   rec.ID,
		FromAgentID: rec.FromAgentID,
		ToTarget:    rec.ToTarget,
		MessageType: rec.MessageType,
		Content:     rec.Content,
		StepIndex:   step,
	})

	e.loops.RecordTopic(a.ID, summarizeTopic(rec.Content))

	if msg.MessageType == models.MessageDirect {
		if target, ok := e.byID[msg.ToTarget]; ok {
			a.Memory.RecordInteraction(target.ID, 0.1, "", step, a.Location)
			target.Memory.RecordInteraction(a.ID, 0.1, fmt.Sprintf("%s spoke to me", a.Name), step, target.Location)
		}
	}

	if ended := e.convs.RecordMessage(a.ID, rec.Content, step); ended != nil {
		e.emitConversationEnded(ended, step)
	}
}

// summarizeTopic reduces message content to a short comparable key for the
// loop detector.
func summarizeTopic(content string) string {
	words := strings.Fields(strings.ToLower(content))
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}

func paramString(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func paramInt(params map[string]any, key string, fallback int) int {
	if f, ok := toFloat(params[key]); ok {
		return int(f)
	}
	return fallback
}

func paramStrings(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func floatProp(props map[string]any, key string) (float64, bool) {
	if props == nil {
		return 0, false
	}
	return toFloat(props[key])
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func boundDelta(d float64) float64 {
	if d > maxAffectDelta {
		return maxAffectDelta
	}
	if d < -maxAffectDelta {
		return -maxAffectDelta
	}
	return d
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
