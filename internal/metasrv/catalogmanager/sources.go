package catalogmanager

import (
	"context"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/internal/metasrv/catcommon"
	"github.com/streamhouse/streamhouse/pkg/types"
)

// CreateSource creates a standalone source. It never couples to a table;
// only CreateTable with connector properties produces a coupled pair.
func (m *Manager) CreateSource(ctx context.Context, spec *SourceSpec) (*catalog.Source, apperrors.Error) {
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
	if _, ok := snap.GetSourceByName(sc.ID, spec.Name); ok {
		return nil, ErrNameConflict.Msg("source " + spec.Name + " already exists in schema " + sc.Name)
	}

	var columns []catalog.ColumnDesc
	var rowIDIndex *int
	nextColumnID := types.ColumnID(0)
	if len(spec.PrimaryKey) == 0 {
		idx := 0
		rowIDIndex = &idx
		columns = append(columns, catalog.ColumnDesc{
			ID:       allocate(&nextColumnID),
			Name:     rowIDColumnName,
			DataType: "serial",
			IsHidden: true,
		})
	}
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

	var pkColumnIDs []types.ColumnID
	seen := make(map[int]bool, len(spec.PrimaryKey))
	for _, name := range spec.PrimaryKey {
		idx, ok := columnIndexByName(columns, name)
		if !ok {
			return nil, ErrInvalidArgument.Msg("primary key column " + name + " is not declared")
		}
		if seen[idx] {
			return nil, ErrInvalidArgument.Msg("duplicate primary key column " + name)
		}
		seen[idx] = true
		pkColumnIDs = append(pkColumnIDs, columns[idx].ID)
	}

	var watermarks []catalog.WatermarkDesc
	for _, wm := range spec.Watermarks {
		idx, ok := columnIndexByName(columns, wm.Column)
		if !ok {
			return nil, ErrInvalidArgument.Msg("watermark column " + wm.Column + " is not declared")
		}
		watermarks = append(watermarks, catalog.WatermarkDesc{ColumnIndex: idx, Expr: wm.Expr})
	}

	sp := m.alloc.Mark()
	source := &catalog.Source{
		ID:          m.alloc.NextID(types.KindSource),
		SchemaID:    sc.ID,
		DatabaseID:  db.ID,
		Name:        spec.Name,
		Owner:       catcommon.PrincipalFromContext(ctx),
		RowFormat:   spec.Format,
		RowIDIndex:  rowIDIndex,
		Columns:     columns,
		PKColumnIDs: pkColumnIDs,
		Properties:  spec.Properties,
		Watermarks:  watermarks,
	}

	t := newTxn()
	if err := t.create(source); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	if err := m.apply(ctx, t); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	return source, nil
}

// DropSource drops a standalone source. A source coupled to a table cannot
// be dropped on its own; dropping the table removes both.
func (m *Manager) DropSource(ctx context.Context, id types.ObjectID) apperrors.Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	source, ok := snap.GetSource(id)
	if !ok {
		return ErrNotFound.Msg("source " + id.String() + " does not exist")
	}
	if owner, coupled := snap.coupledTable(source.ID); coupled {
		return ErrInvalidArgument.Msg("source " + source.Name + " is associated with table " + owner.Name + "; drop the table instead")
	}
	if !m.graph.CanDrop(source.ID) {
		return m.dependencyError(snap, "source", source.Name, source.ID)
	}

	t := newTxn()
	t.drop(types.KindSource, source.ID)
	return m.apply(ctx, t)
}
