package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streamhouse/streamhouse/pkg/types"
)

func TestCanDropWithDependents(t *testing.T) {
	g := New()
	table := types.ObjectID(1)
	view := types.ObjectID(2)

	assert.True(t, g.CanDrop(table))

	g.AddEdges(view, []types.ObjectID{table})
	assert.False(t, g.CanDrop(table))
	assert.Equal(t, []types.ObjectID{view}, g.Dependents(table))

	// Dropping the view frees the table.
	g.Remove(view)
	assert.True(t, g.CanDrop(table))
	assert.Nil(t, g.Dependents(table))
}

func TestDirectDependencyOnly(t *testing.T) {
	g := New()
	table := types.ObjectID(1)
	v1 := types.ObjectID(2)
	v2 := types.ObjectID(3)

	g.AddEdges(v1, []types.ObjectID{table})
	g.AddEdges(v2, []types.ObjectID{v1})

	// v1 has a transitive reader, but dropping it is only blocked by direct
	// dependents; v2 blocks v1, nothing blocks v2.
	assert.False(t, g.CanDrop(v1))
	assert.True(t, g.CanDrop(v2))

	g.Remove(v2)
	assert.True(t, g.CanDrop(v1))
}

func TestDependentsSorted(t *testing.T) {
	g := New()
	table := types.ObjectID(10)
	g.AddEdges(types.ObjectID(5), []types.ObjectID{table})
	g.AddEdges(types.ObjectID(2), []types.ObjectID{table})
	g.AddEdges(types.ObjectID(9), []types.ObjectID{table})
	assert.Equal(t, []types.ObjectID{2, 5, 9}, g.Dependents(table))
}

func TestRemoveIsIdempotent(t *testing.T) {
	g := New()
	g.AddEdges(2, []types.ObjectID{1})
	g.Remove(2)
	g.Remove(2)
	assert.True(t, g.CanDrop(1))
}
