// Package depgraph maintains the directed "relation A reads relation B"
// edges governing safe deletion. It is a derived index over the
// dependent_relations fields of stored objects: rebuilt at startup, mutated
// only inside the catalog manager's serialized transaction region, and never
// persisted on its own.
package depgraph

import (
	"sort"

	"github.com/streamhouse/streamhouse/pkg/types"
)

// Graph tracks forward edges (reader -> read relations) and the reverse
// index (relation -> readers). Not safe for concurrent use; all calls happen
// inside the catalog manager's critical section.
type Graph struct {
	readsFrom map[types.ObjectID]map[types.ObjectID]struct{}
	readBy    map[types.ObjectID]map[types.ObjectID]struct{}
}

func New() *Graph {
	return &Graph{
		readsFrom: make(map[types.ObjectID]map[types.ObjectID]struct{}),
		readBy:    make(map[types.ObjectID]map[types.ObjectID]struct{}),
	}
}

// AddEdges records that relation reads each of referenced.
func (g *Graph) AddEdges(relation types.ObjectID, referenced []types.ObjectID) {
	if len(referenced) == 0 {
		return
	}
	fwd := g.readsFrom[relation]
	if fwd == nil {
		fwd = make(map[types.ObjectID]struct{}, len(referenced))
		g.readsFrom[relation] = fwd
	}
	for _, ref := range referenced {
		fwd[ref] = struct{}{}
		rev := g.readBy[ref]
		if rev == nil {
			rev = make(map[types.ObjectID]struct{})
			g.readBy[ref] = rev
		}
		rev[relation] = struct{}{}
	}
}

// CanDrop reports whether relation has no live direct dependents. The check
// is intentionally direct-only: transitive staleness is discovered at read
// time, matching the system's drop semantics.
func (g *Graph) CanDrop(relation types.ObjectID) bool {
	return len(g.readBy[relation]) == 0
}

// Dependents returns the ids of relations that directly read relation, in
// ascending order so rejections are deterministic.
func (g *Graph) Dependents(relation types.ObjectID) []types.ObjectID {
	rev := g.readBy[relation]
	if len(rev) == 0 {
		return nil
	}
	out := make([]types.ObjectID, 0, len(rev))
	for id := range rev {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Remove discards all edges originating from relation. Edges pointing at
// relation from other readers are untouched; callers must have verified
// CanDrop first when dropping, or be replacing the edge set on alter.
func (g *Graph) Remove(relation types.ObjectID) {
	for ref := range g.readsFrom[relation] {
		delete(g.readBy[ref], relation)
		if len(g.readBy[ref]) == 0 {
			delete(g.readBy, ref)
		}
	}
	delete(g.readsFrom, relation)
}
