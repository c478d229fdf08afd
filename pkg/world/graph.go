// Package world implements the location graph and the movement resolver:
// BFS pathfinding with a bounded search depth, multi-hop travel plans,
// dynamic location creation, and per-step failed-movement suppression.
package world

import (
	"math/rand/v2"
	"slices"

	"github.com/emotionsim/emotionsim/pkg/models"
)

// MaxSearchDepth bounds BFS expansion. Targets farther than this many hops
// are treated as unreachable.
const MaxSearchDepth = 5

// Graph wraps the run's world state with movement logic. It is owned by the
// engine and only touched from within the active agent's turn.
type Graph struct {
	state *models.WorldState
	rng   *rand.Rand

	// failedMoves suppresses duplicate movement_failed events within a step.
	failedMoves map[failKey]struct{}
}

type failKey struct {
	agentID string
	target  string
}

// New wraps state. The RNG drives dynamic-location distances and must be the
// run's seeded RNG for reproducibility.
func New(state *models.WorldState, rng *rand.Rand) *Graph {
	if state.Locations == nil {
		state.Locations = make(map[string]*models.Location)
	}
	if state.Items == nil {
		state.Items = make(map[string]*models.Item)
	}
	return &Graph{
		state:       state,
		rng:         rng,
		failedMoves: make(map[failKey]struct{}),
	}
}

// State returns the underlying world state.
func (g *Graph) State() *models.WorldState { return g.state }

// BeginStep clears the per-step failed-movement cache.
func (g *Graph) BeginStep() {
	clear(g.failedMoves)
}

// Location returns the node with the given id, or nil.
func (g *Graph) Location(id string) *models.Location {
	return g.state.Locations[id]
}

// Contains reports whether id is a node in the graph.
func (g *Graph) Contains(id string) bool {
	_, ok := g.state.Locations[id]
	return ok
}

// FindPath runs BFS from start to goal over the nearby lists, expanding at
// most MaxSearchDepth hops. Neighbors are visited in adjacency-list order so
// the first shortest path found is stable across runs. Returns the node
// sequence including both endpoints, or nil if unreachable.
func (g *Graph) FindPath(start, goal string) []string {
	if start == goal {
		return []string{start}
	}
	if !g.Contains(start) || !g.Contains(goal) {
		return nil
	}

	type node struct {
		id    string
		depth int
	}
	parent := map[string]string{start: ""}
	queue := []node{{start, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= MaxSearchDepth {
			continue
		}
		loc := g.state.Locations[cur.id]
		if loc == nil {
			continue
		}
		for _, next := range loc.Nearby {
			if _, seen := parent[next]; seen {
				continue
			}
			if !g.Contains(next) {
				continue
			}
			parent[next] = cur.id
			if next == goal {
				return reconstruct(parent, start, goal)
			}
			queue = append(queue, node{next, cur.depth + 1})
		}
	}
	return nil
}

func reconstruct(parent map[string]string, start, goal string) []string {
	path := []string{goal}
	for at := parent[goal]; at != ""; at = parent[at] {
		path = append(path, at)
	}
	slices.Reverse(path)
	if path[0] != start {
		return nil
	}
	return path
}

// CreateLocation adds a new node adjacent to origin with a seeded distance
// in [1,3] and bidirectional adjacency. The caller emits location_created.
func (g *Graph) CreateLocation(id, origin string) *models.Location {
	loc := &models.Location{
		ID:       id,
		Distance: g.rng.IntN(3) + 1,
		Nearby:   []string{origin},
	}
	g.state.Locations[id] = loc
	if from := g.state.Locations[origin]; from != nil && !slices.Contains(from.Nearby, id) {
		from.Nearby = append(from.Nearby, id)
	}
	return loc
}

// RemoveItem takes an item id out of a location's item list. Reports
// whether the item was present.
func (g *Graph) RemoveItem(locationID, itemID string) bool {
	loc := g.state.Locations[locationID]
	if loc == nil {
		return false
	}
	i := slices.Index(loc.Items, itemID)
	if i < 0 {
		return false
	}
	loc.Items = slices.Delete(loc.Items, i, i+1)
	return true
}

// AddItem appends an item id to a location's item list.
func (g *Graph) AddItem(locationID, itemID string) bool {
	loc := g.state.Locations[locationID]
	if loc == nil {
		return false
	}
	loc.Items = append(loc.Items, itemID)
	return true
}

// RevealHidden moves all hidden items at the location into its visible item
// list and returns their ids.
func (g *Graph) RevealHidden(locationID string) []string {
	loc := g.state.Locations[locationID]
	if loc == nil || len(loc.HiddenItems) == 0 {
		return nil
	}
	revealed := loc.HiddenItems
	loc.Items = append(loc.Items, revealed...)
	loc.HiddenItems = nil
	return revealed
}

// Item returns the item with the given id, or nil.
func (g *Graph) Item(id string) *models.Item {
	return g.state.Items[id]
}
