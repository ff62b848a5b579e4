package catalogmanager

import (
	"context"
	"strconv"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/internal/metasrv/catcommon"
	"github.com/streamhouse/streamhouse/pkg/types"
)

// CreateView creates a non-materialized view. User-declared column names,
// when present, must match the query's output arity exactly.
func (m *Manager) CreateView(ctx context.Context, spec *ViewSpec) (*catalog.View, apperrors.Error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	if len(spec.ColumnNames) > 0 && len(spec.ColumnNames) != len(spec.OutputColumns) {
		return nil, ErrInvalidArgument.Msg(
			"view " + spec.Name + " declares " + strconv.Itoa(len(spec.ColumnNames)) +
				" column names but the query returns " + strconv.Itoa(len(spec.OutputColumns)) + " columns")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	db, sc, err := resolveSchema(snap, spec.Database, spec.Schema)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.GetViewByName(sc.ID, spec.Name); ok {
		return nil, ErrNameConflict.Msg("view " + spec.Name + " already exists in schema " + sc.Name)
	}
	if err := checkRelationsLive(snap, spec.DependentRelations); err != nil {
		return nil, err
	}

	sp := m.alloc.Mark()
	view := &catalog.View{
		ID:                 m.alloc.NextID(types.KindView),
		SchemaID:           sc.ID,
		DatabaseID:         db.ID,
		Name:               spec.Name,
		Owner:              catcommon.PrincipalFromContext(ctx),
		SQL:                spec.SQL,
		ColumnNames:        spec.ColumnNames,
		DependentRelations: spec.DependentRelations,
	}

	t := newTxn()
	if err := t.create(view); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	if err := m.apply(ctx, t); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	return view, nil
}

// DropView drops a view when no other live object directly depends on it.
// The check is direct-only: a view that is only transitively depended upon
// can be dropped, and the staleness surfaces at read time.
func (m *Manager) DropView(ctx context.Context, id types.ObjectID) apperrors.Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	view, ok := snap.GetView(id)
	if !ok {
		return ErrNotFound.Msg("view " + id.String() + " does not exist")
	}
	if !m.graph.CanDrop(view.ID) {
		return m.dependencyError(snap, "view", view.Name, view.ID)
	}

	t := newTxn()
	t.drop(types.KindView, view.ID)
	return m.apply(ctx, t)
}
