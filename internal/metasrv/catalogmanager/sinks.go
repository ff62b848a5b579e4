package catalogmanager

import (
	"context"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/internal/metasrv/catcommon"
	"github.com/streamhouse/streamhouse/pkg/types"
)

// CreateSink creates a sink reading from the given live relations.
func (m *Manager) CreateSink(ctx context.Context, spec *SinkSpec) (*catalog.Sink, apperrors.Error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	db, sc, err := resolveSchema(snap, spec.Database, spec.Schema)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.GetSinkByName(sc.ID, spec.Name); ok {
		return nil, ErrNameConflict.Msg("sink " + spec.Name + " already exists in schema " + sc.Name)
	}
	if err := checkRelationsLive(snap, spec.DependentRelations); err != nil {
		return nil, err
	}

	var columns []catalog.ColumnDesc
	nextColumnID := types.ColumnID(0)
	for _, cs := range spec.Columns {
		if _, dup := columnIndexByName(columns, cs.Name); dup {
			return nil, ErrInvalidArgument.Msg("duplicate column name " + cs.Name)
		}
		columns = append(columns, catalog.ColumnDesc{
			ID:       allocate(&nextColumnID),
			Name:     cs.Name,
			DataType: cs.DataType,
		})
	}

	var primaryKey []catalog.ColumnOrder
	var streamKey []int
	seenPK := make(map[int]bool, len(spec.PrimaryKey))
	for _, name := range spec.PrimaryKey {
		idx, ok := columnIndexByName(columns, name)
		if !ok {
			return nil, ErrInvalidArgument.Msg("primary key column " + name + " is not declared")
		}
		if seenPK[idx] {
			return nil, ErrInvalidArgument.Msg("duplicate primary key column " + name)
		}
		seenPK[idx] = true
		primaryKey = append(primaryKey, catalog.ColumnOrder{ColumnIndex: idx, Direction: catalog.OrderAsc})
		streamKey = append(streamKey, idx)
	}

	distributionKey := append([]int(nil), streamKey...)
	if len(spec.DistributionKey) > 0 {
		distributionKey = nil
		seenDK := make(map[int]bool, len(spec.DistributionKey))
		for _, name := range spec.DistributionKey {
			idx, ok := columnIndexByName(columns, name)
			if !ok {
				return nil, ErrInvalidArgument.Msg("distribution key column " + name + " is not declared")
			}
			if seenDK[idx] {
				return nil, ErrInvalidArgument.Msg("duplicate distribution key column " + name)
			}
			seenDK[idx] = true
			distributionKey = append(distributionKey, idx)
		}
	}

	sp := m.alloc.Mark()
	sink := &catalog.Sink{
		ID:                 m.alloc.NextID(types.KindSink),
		SchemaID:           sc.ID,
		DatabaseID:         db.ID,
		Name:               spec.Name,
		Owner:              catcommon.PrincipalFromContext(ctx),
		Columns:            columns,
		PrimaryKey:         primaryKey,
		DistributionKey:    distributionKey,
		StreamKey:          streamKey,
		AppendOnly:         spec.AppendOnly,
		Properties:         spec.Properties,
		Definition:         spec.Definition,
		DependentRelations: spec.DependentRelations,
	}

	t := newTxn()
	if err := t.create(sink); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	if err := m.apply(ctx, t); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	return sink, nil
}

// DropSink drops a sink. Sinks are leaves of the dependency graph, so the
// drop only fails when the sink itself is unknown.
func (m *Manager) DropSink(ctx context.Context, id types.ObjectID) apperrors.Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	sink, ok := snap.GetSink(id)
	if !ok {
		return ErrNotFound.Msg("sink " + id.String() + " does not exist")
	}
	if !m.graph.CanDrop(sink.ID) {
		return m.dependencyError(snap, "sink", sink.Name, sink.ID)
	}

	t := newTxn()
	t.drop(types.KindSink, sink.ID)
	return m.apply(ctx, t)
}
