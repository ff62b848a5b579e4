package idalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streamhouse/streamhouse/pkg/types"
)

func TestNextIDMonotonic(t *testing.T) {
	a := New()
	first := a.NextID(types.KindTable)
	second := a.NextID(types.KindTable)
	assert.Equal(t, types.ObjectID(1), first)
	assert.Equal(t, types.ObjectID(2), second)
}

func TestRelationKindsShareOneSpace(t *testing.T) {
	a := New()
	tableID := a.NextID(types.KindTable)
	sourceID := a.NextID(types.KindSource)
	viewID := a.NextID(types.KindView)
	assert.Equal(t, types.ObjectID(1), tableID)
	assert.Equal(t, types.ObjectID(2), sourceID)
	assert.Equal(t, types.ObjectID(3), viewID)

	// Non-relation kinds have spaces of their own.
	assert.Equal(t, types.ObjectID(1), a.NextID(types.KindDatabase))
	assert.Equal(t, types.ObjectID(1), a.NextID(types.KindFunction))
}

func TestSeedFromRecovery(t *testing.T) {
	a := New()
	a.Seed(types.KindTable, 7)
	a.Seed(types.KindView, 3)
	// Seeding either relation kind raises the shared relation counter.
	assert.Equal(t, types.ObjectID(8), a.NextID(types.KindSource))
}

func TestRollbackDiscardsUncommitted(t *testing.T) {
	a := New()
	a.NextID(types.KindTable)
	sp := a.Mark()
	a.NextID(types.KindTable)
	a.NextID(types.KindDatabase)
	a.Rollback(sp)
	assert.Equal(t, types.ObjectID(2), a.NextID(types.KindTable))
	assert.Equal(t, types.ObjectID(1), a.NextID(types.KindDatabase))
}
