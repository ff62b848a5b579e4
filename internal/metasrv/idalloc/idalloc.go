// Package idalloc issues monotonically increasing, never-reused object
// identifiers. Counters are derived state: they are seeded from the highest
// id per kind observed at startup recovery and advanced in memory inside the
// catalog manager's serialized mutation path. On a failed commit the manager
// rolls the counters back, so the externally visible counter never advances
// without its object.
package idalloc

import "github.com/streamhouse/streamhouse/pkg/types"

// Allocator hands out object ids per id space. All relation kinds (table,
// source, sink, index, view) share one space, because dependent_relations
// sets hold bare relation ids that must be unambiguous across those kinds.
// Databases, schemas, and functions each get their own space. Not safe for
// concurrent use; all calls happen inside the catalog manager's critical
// section.
type Allocator struct {
	next map[string]types.ObjectID
}

// Savepoint captures the allocator state so a failed transaction can roll
// back its allocations.
type Savepoint map[string]types.ObjectID

// relationSpace is the shared id space of all relation kinds.
const relationSpace = "relation"

func spaceOf(kind types.ObjectKind) string {
	if kind.IsRelation() {
		return relationSpace
	}
	return string(kind)
}

func New() *Allocator {
	return &Allocator{next: make(map[string]types.ObjectID)}
}

// Seed raises the next id for kind so it stays above an id recovered from the
// store. Recovery calls this for every loaded object. Dropped objects leave
// gaps; ids are never reused and never required to be dense.
func (a *Allocator) Seed(kind types.ObjectKind, id types.ObjectID) {
	space := spaceOf(kind)
	if a.next[space] <= id {
		a.next[space] = id + 1
	}
}

// NextID returns a fresh id for kind's id space.
func (a *Allocator) NextID(kind types.ObjectKind) types.ObjectID {
	space := spaceOf(kind)
	if a.next[space] == 0 {
		a.next[space] = 1
	}
	id := a.next[space]
	a.next[space]++
	return id
}

// Mark captures the current counters.
func (a *Allocator) Mark() Savepoint {
	sp := make(Savepoint, len(a.next))
	for space, id := range a.next {
		sp[space] = id
	}
	return sp
}

// Rollback restores counters captured by Mark, discarding allocations made
// since. Only valid when the allocations being discarded were never
// committed.
func (a *Allocator) Rollback(sp Savepoint) {
	a.next = make(map[string]types.ObjectID, len(sp))
	for space, id := range sp {
		a.next[space] = id
	}
}
