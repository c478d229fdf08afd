// Package coop coordinates shared work between agents: shared goals, a task
// table, one-tick votes, and the behavioral loop detector.
package coop

import (
	"fmt"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a shared task.
type TaskStatus string

const (
	TaskProposed   TaskStatus = "proposed"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Task is one unit of shared work.
type Task struct {
	ID             string     `json:"id"`
	Description    string     `json:"description"`
	ProposedBy     string     `json:"proposed_by"`
	Priority       int        `json:"priority"` // 1..10
	Status         TaskStatus `json:"status"`
	AssignedAgents []string   `json:"assigned_agents,omitempty"`
	RequiredSkills []string   `json:"required_skills,omitempty"`
	Progress       int        `json:"progress"` // 0..100
	CreatedStep    int        `json:"created_step"`
}

// Vote is an open or closed group decision. A vote stays open for exactly
// the tick after it was called, then closes with the majority option (ties
// resolved by option order).
type Vote struct {
	ID         string            `json:"id"`
	Proposal   string            `json:"proposal"`
	CalledBy   string            `json:"called_by"`
	Options    []string          `json:"options"`
	Ballots    map[string]string `json:"ballots"`
	OpenedStep int               `json:"opened_step"`
	Closed     bool              `json:"closed"`
	Result     string            `json:"result,omitempty"`
}

// Coordinator owns the shared-goal list, task table, and votes of one run.
// Single-writer: the engine calls it from within agent turns.
type Coordinator struct {
	sharedGoals []string
	tasks       map[string]*Task
	taskOrder   []string
	votes       map[string]*Vote
	voteOrder   []string
}

// NewCoordinator derives the initial shared-goal list from the agents'
// goals (duplicates removed, first occurrence wins).
func NewCoordinator(agentGoals [][]string) *Coordinator {
	c := &Coordinator{
		tasks: make(map[string]*Task),
		votes: make(map[string]*Vote),
	}
	seen := make(map[string]struct{})
	for _, goals := range agentGoals {
		for _, g := range goals {
			if _, dup := seen[g]; dup {
				continue
			}
			seen[g] = struct{}{}
			c.sharedGoals = append(c.sharedGoals, g)
		}
	}
	return c
}

// SharedGoals returns the current shared-goal list.
func (c *Coordinator) SharedGoals() []string { return c.sharedGoals }

// ProposeTask creates a task in proposed state. It becomes visible to other
// agents on the next tick.
func (c *Coordinator) ProposeTask(agentID, description string, priority int, requiredSkills []string, step int) *Task {
	if priority < 1 {
		priority = 1
	}
	if priority > 10 {
		priority = 10
	}
	t := &Task{
		ID:             uuid.New().String(),
		Description:    description,
		ProposedBy:     agentID,
		Priority:       priority,
		Status:         TaskProposed,
		RequiredSkills: requiredSkills,
		CreatedStep:    step,
	}
	c.tasks[t.ID] = t
	c.taskOrder = append(c.taskOrder, t.ID)
	c.sharedGoals = append(c.sharedGoals, description)
	return t
}

// AcceptTask assigns the agent to the task. The first assignee moves a
// proposed task to in_progress.
func (c *Coordinator) AcceptTask(agentID, taskID string) (*Task, error) {
	t, ok := c.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	for _, id := range t.AssignedAgents {
		if id == agentID {
			return t, nil
		}
	}
	t.AssignedAgents = append(t.AssignedAgents, agentID)
	if t.Status == TaskProposed {
		t.Status = TaskInProgress
	}
	return t, nil
}

// ReportProgress updates task progress in [0,100]. Progress 100 or an
// explicit completed status marks the task complete.
func (c *Coordinator) ReportProgress(agentID, taskID string, progress int, status TaskStatus) (*Task, error) {
	t, ok := c.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	t.Progress = progress
	if progress == 100 || status == TaskCompleted {
		t.Status = TaskCompleted
		t.Progress = 100
	} else if status == TaskInProgress {
		t.Status = TaskInProgress
	}
	return t, nil
}

// Tasks returns tasks visible at the given step, in creation order. A task
// proposed at step N is visible from step N+1; the proposer always sees
// their own task.
func (c *Coordinator) Tasks(agentID string, step int) []*Task {
	var out []*Task
	for _, id := range c.taskOrder {
		t := c.tasks[id]
		if t.CreatedStep < step || t.ProposedBy == agentID {
			out = append(out, t)
		}
	}
	return out
}

// Task returns the task with the given id, or nil.
func (c *Coordinator) Task(id string) *Task { return c.tasks[id] }

// CallForVote opens a vote. It accepts ballots during the next tick only.
func (c *Coordinator) CallForVote(agentID, proposal string, options []string, step int) (*Vote, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("vote needs at least one option")
	}
	v := &Vote{
		ID:         uuid.New().String(),
		Proposal:   proposal,
		CalledBy:   agentID,
		Options:    options,
		Ballots:    make(map[string]string),
		OpenedStep: step,
	}
	c.votes[v.ID] = v
	c.voteOrder = append(c.voteOrder, v.ID)
	return v, nil
}

// CastBallot records an agent's choice on an open vote. Unknown options are
// rejected; re-voting replaces the earlier ballot.
func (c *Coordinator) CastBallot(agentID, voteID, option string) error {
	v, ok := c.votes[voteID]
	if !ok {
		return fmt.Errorf("vote %s not found", voteID)
	}
	if v.Closed {
		return fmt.Errorf("vote %s is closed", voteID)
	}
	for _, o := range v.Options {
		if o == option {
			v.Ballots[agentID] = option
			return nil
		}
	}
	return fmt.Errorf("option %q not in vote %s", option, voteID)
}

// OpenVotes returns votes accepting ballots at the given step: those opened
// on the previous step.
func (c *Coordinator) OpenVotes(step int) []*Vote {
	var out []*Vote
	for _, id := range c.voteOrder {
		v := c.votes[id]
		if !v.Closed && v.OpenedStep == step-1 {
			out = append(out, v)
		}
	}
	return out
}

// CloseExpiredVotes closes every vote whose ballot tick has elapsed and
// records the majority option, ties resolved by option order. Called at the
// end of each tick, so a vote opened at step N closes at the end of step
// N+1, right after its ballots came in. Returns the votes closed by this
// call.
func (c *Coordinator) CloseExpiredVotes(step int) []*Vote {
	var closed []*Vote
	for _, id := range c.voteOrder {
		v := c.votes[id]
		if v.Closed || v.OpenedStep >= step {
			continue
		}
		counts := make(map[string]int)
		for _, opt := range v.Ballots {
			counts[opt]++
		}
		best := v.Options[0]
		for _, opt := range v.Options[1:] {
			if counts[opt] > counts[best] {
				best = opt
			}
		}
		v.Closed = true
		v.Result = best
		closed = append(closed, v)
	}
	return closed
}
