package catalogmanager

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/internal/metasrv/catcommon"
	"github.com/streamhouse/streamhouse/pkg/types"
)

// rowIDColumnName is the hidden column prepended when the user declares no
// primary key. Its column id is always 0 and it is always at index 0.
const rowIDColumnName = "_row_id"

// tableLayout is the computed physical shape of a new table.
type tableLayout struct {
	columns          []catalog.ColumnDesc
	primaryKey       []catalog.ColumnOrder
	distributionKey  []int
	streamKey        []int
	valueIndices     []int
	watermarkIndices []int
	rowIDIndex       *int
	version          *catalog.TableVersion
}

func columnIndexByName(columns []catalog.ColumnDesc, name string) (int, bool) {
	for i, c := range columns {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// buildTableLayout assigns column ids and resolves the key column names of a
// TableSpec into positional form. Without an explicit primary key a hidden
// row-id column is prepended and becomes the key.
func buildTableLayout(spec *TableSpec) (*tableLayout, apperrors.Error) {
	l := &tableLayout{}
	nextColumnID := types.ColumnID(0)

	if len(spec.PrimaryKey) == 0 {
		idx := 0
		l.rowIDIndex = &idx
		l.columns = append(l.columns, catalog.ColumnDesc{
			ID:       allocate(&nextColumnID),
			Name:     rowIDColumnName,
			DataType: "serial",
			IsHidden: true,
		})
	}

	for _, cs := range spec.Columns {
		if _, dup := columnIndexByName(l.columns, cs.Name); dup {
			return nil, ErrInvalidArgument.Msg("duplicate column name " + cs.Name)
		}
		l.columns = append(l.columns, catalog.ColumnDesc{
			ID:       allocate(&nextColumnID),
			Name:     cs.Name,
			DataType: cs.DataType,
		})
	}

	if l.rowIDIndex != nil {
		l.primaryKey = []catalog.ColumnOrder{{ColumnIndex: *l.rowIDIndex, Direction: catalog.OrderAsc}}
	} else {
		seen := make(map[int]bool, len(spec.PrimaryKey))
		for _, name := range spec.PrimaryKey {
			idx, ok := columnIndexByName(l.columns, name)
			if !ok {
				return nil, ErrInvalidArgument.Msg("primary key column " + name + " is not declared")
			}
			if seen[idx] {
				return nil, ErrInvalidArgument.Msg("duplicate primary key column " + name)
			}
			seen[idx] = true
			l.primaryKey = append(l.primaryKey, catalog.ColumnOrder{ColumnIndex: idx, Direction: catalog.OrderAsc})
		}
	}

	for _, entry := range l.primaryKey {
		l.streamKey = append(l.streamKey, entry.ColumnIndex)
	}

	if len(spec.DistributionKey) == 0 {
		l.distributionKey = append([]int(nil), l.streamKey...)
	} else {
		seen := make(map[int]bool, len(spec.DistributionKey))
		for _, name := range spec.DistributionKey {
			idx, ok := columnIndexByName(l.columns, name)
			if !ok {
				return nil, ErrInvalidArgument.Msg("distribution key column " + name + " is not declared")
			}
			if seen[idx] {
				return nil, ErrInvalidArgument.Msg("duplicate distribution key column " + name)
			}
			seen[idx] = true
			l.distributionKey = append(l.distributionKey, idx)
		}
	}

	for _, name := range spec.Watermarks {
		idx, ok := columnIndexByName(l.columns, name)
		if !ok {
			return nil, ErrInvalidArgument.Msg("watermark column " + name + " is not declared")
		}
		l.watermarkIndices = append(l.watermarkIndices, idx)
	}

	for i := range l.columns {
		l.valueIndices = append(l.valueIndices, i)
	}

	l.version = &catalog.TableVersion{Version: 1, NextColumnID: nextColumnID}
	return l, nil
}

func allocate(next *types.ColumnID) types.ColumnID {
	id := *next
	*next = id + 1
	return id
}

// buildAssociatedSource derives the hidden ingestion source coupled to a
// connector-backed table. It shares the table's name, columns, and key.
func buildAssociatedSource(spec *TableSpec, sourceID types.ObjectID, table *catalog.Table) *catalog.Source {
	format := catalog.RowFormat{Kind: "json"}
	if spec.Format != nil {
		format = *spec.Format
	}

	var pkColumnIDs []types.ColumnID
	for _, entry := range table.PrimaryKey {
		pkColumnIDs = append(pkColumnIDs, table.Columns[entry.ColumnIndex].ID)
	}

	var watermarks []catalog.WatermarkDesc
	for _, idx := range table.WatermarkIndices {
		watermarks = append(watermarks, catalog.WatermarkDesc{
			ColumnIndex: idx,
			Expr:        table.Columns[idx].Name,
		})
	}

	props := make(map[string]string, len(spec.Properties))
	for k, v := range spec.Properties {
		props[k] = v
	}

	return &catalog.Source{
		ID:          sourceID,
		SchemaID:    table.SchemaID,
		DatabaseID:  table.DatabaseID,
		Name:        table.Name,
		Owner:       table.Owner,
		RowFormat:   format,
		RowIDIndex:  table.RowIDIndex,
		Columns:     append([]catalog.ColumnDesc(nil), table.Columns...),
		PKColumnIDs: pkColumnIDs,
		Properties:  props,
		Watermarks:  watermarks,
	}
}

// CreateTable creates a table. When the spec carries connector properties,
// the implicit ingestion source is created in the same transaction and
// coupled via AssociatedSourceID; neither half becomes visible unless the
// commit lands whole.
func (m *Manager) CreateTable(ctx context.Context, spec *TableSpec) (*catalog.Table, apperrors.Error) {
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
	if _, ok := snap.GetTableByName(sc.ID, spec.Name); ok {
		return nil, ErrNameConflict.Msg("table " + spec.Name + " already exists in schema " + sc.Name)
	}
	coupled := len(spec.Properties) > 0
	if coupled {
		if _, ok := snap.GetSourceByName(sc.ID, spec.Name); ok {
			return nil, ErrNameConflict.Msg("source " + spec.Name + " already exists in schema " + sc.Name)
		}
	}
	if err := checkRelationsLive(snap, spec.DependentRelations); err != nil {
		return nil, err
	}

	layout, err := buildTableLayout(spec)
	if err != nil {
		return nil, err
	}

	sp := m.alloc.Mark()
	table := &catalog.Table{
		ID:                 m.alloc.NextID(types.KindTable),
		SchemaID:           sc.ID,
		DatabaseID:         db.ID,
		Name:               spec.Name,
		Owner:              catcommon.PrincipalFromContext(ctx),
		Columns:            layout.columns,
		PrimaryKey:         layout.primaryKey,
		DistributionKey:    layout.distributionKey,
		StreamKey:          layout.streamKey,
		AppendOnly:         spec.AppendOnly,
		RowIDIndex:         layout.rowIDIndex,
		ValueIndices:       layout.valueIndices,
		WatermarkIndices:   layout.watermarkIndices,
		Definition:         spec.Definition,
		Version:            layout.version,
		DependentRelations: spec.DependentRelations,
	}

	var source *catalog.Source
	if coupled {
		source = buildAssociatedSource(spec, m.alloc.NextID(types.KindSource), table)
		table.AssociatedSourceID = &source.ID
	}

	t := newTxn()
	if err := t.create(table); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	if source != nil {
		if err := t.create(source); err != nil {
			m.alloc.Rollback(sp)
			return nil, err
		}
	}
	if err := m.apply(ctx, t); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	return table, nil
}

// AlterTable applies one accepted schema change: renames and type changes
// first, then drops, then adds. Added columns draw fresh ids from the
// table's NextColumnID; dropped columns leave their id consumed forever.
func (m *Manager) AlterTable(ctx context.Context, id types.ObjectID, req *AlterTableRequest) (*catalog.Table, apperrors.Error) {
	if err := validateSpec(req); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	cur, ok := snap.GetTable(id)
	if !ok {
		return nil, ErrNotFound.Msg("table " + id.String() + " does not exist")
	}

	nextVersion, err := beginAlter(cur, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	columns := append([]catalog.ColumnDesc(nil), cur.Columns...)

	for _, rename := range req.RenameColumns {
		idx, ok := columnIndexByName(columns, rename.From)
		if !ok {
			return nil, ErrNotFound.Msg("column " + rename.From + " does not exist")
		}
		if columns[idx].IsHidden {
			return nil, ErrInvalidArgument.Msg("column " + rename.From + " is hidden")
		}
		if _, dup := columnIndexByName(columns, rename.To); dup {
			return nil, ErrNameConflict.Msg("column " + rename.To + " already exists")
		}
		columns[idx].Name = rename.To
	}

	for _, change := range req.ChangeTypes {
		idx, ok := columnIndexByName(columns, change.Name)
		if !ok {
			return nil, ErrNotFound.Msg("column " + change.Name + " does not exist")
		}
		columns[idx].DataType = change.DataType
	}

	protected := keyColumnNames(cur)
	for _, name := range req.DropColumns {
		idx, ok := columnIndexByName(columns, name)
		if !ok {
			return nil, ErrNotFound.Msg("column " + name + " does not exist")
		}
		if columns[idx].IsHidden {
			return nil, ErrInvalidArgument.Msg("column " + name + " is hidden")
		}
		if _, isKey := protected[columns[idx].ID]; isKey {
			return nil, ErrInvalidArgument.Msg("column " + name + " is part of a key and cannot be dropped")
		}
		columns = append(columns[:idx], columns[idx+1:]...)
	}

	for _, add := range req.AddColumns {
		if _, dup := columnIndexByName(columns, add.Name); dup {
			return nil, ErrNameConflict.Msg("column " + add.Name + " already exists")
		}
		columns = append(columns, catalog.ColumnDesc{
			ID:       allocateColumn(nextVersion),
			Name:     add.Name,
			DataType: add.DataType,
		})
	}

	next := *cur
	next.Columns = columns
	next.Version = nextVersion
	if err := remapPositions(cur, &next); err != nil {
		return nil, err
	}

	t := newTxn()
	if err := t.alter(&next); err != nil {
		return nil, err
	}
	if err := m.apply(ctx, t); err != nil {
		return nil, err
	}
	return &next, nil
}

// keyColumnNames returns the column ids referenced by the table's primary,
// distribution, or watermark positions; those columns cannot be dropped.
func keyColumnNames(t *catalog.Table) map[types.ColumnID]struct{} {
	out := make(map[types.ColumnID]struct{})
	for _, entry := range t.PrimaryKey {
		out[t.Columns[entry.ColumnIndex].ID] = struct{}{}
	}
	for _, idx := range t.DistributionKey {
		out[t.Columns[idx].ID] = struct{}{}
	}
	for _, idx := range t.WatermarkIndices {
		out[t.Columns[idx].ID] = struct{}{}
	}
	return out
}

// remapPositions rebuilds every position-based field of next after its
// column list changed, by following column ids from cur's positions.
func remapPositions(cur, next *catalog.Table) apperrors.Error {
	posByID := make(map[types.ColumnID]int, len(next.Columns))
	for i, c := range next.Columns {
		posByID[c.ID] = i
	}
	remap := func(oldIdx int) (int, apperrors.Error) {
		id := cur.Columns[oldIdx].ID
		idx, ok := posByID[id]
		if !ok {
			return 0, ErrInconsistent.Msg("key column id " + strconv.Itoa(id.Int()) + " vanished during alter")
		}
		return idx, nil
	}

	next.PrimaryKey = nil
	for _, entry := range cur.PrimaryKey {
		idx, err := remap(entry.ColumnIndex)
		if err != nil {
			return err
		}
		next.PrimaryKey = append(next.PrimaryKey, catalog.ColumnOrder{ColumnIndex: idx, Direction: entry.Direction})
	}
	next.DistributionKey = nil
	for _, old := range cur.DistributionKey {
		idx, err := remap(old)
		if err != nil {
			return err
		}
		next.DistributionKey = append(next.DistributionKey, idx)
	}
	next.StreamKey = nil
	for _, old := range cur.StreamKey {
		idx, err := remap(old)
		if err != nil {
			return err
		}
		next.StreamKey = append(next.StreamKey, idx)
	}
	next.WatermarkIndices = nil
	for _, old := range cur.WatermarkIndices {
		idx, err := remap(old)
		if err != nil {
			return err
		}
		next.WatermarkIndices = append(next.WatermarkIndices, idx)
	}
	if cur.RowIDIndex != nil {
		idx, err := remap(*cur.RowIDIndex)
		if err != nil {
			return err
		}
		next.RowIDIndex = &idx
	}
	if cur.VnodeColIndex != nil {
		idx, err := remap(*cur.VnodeColIndex)
		if err != nil {
			return err
		}
		next.VnodeColIndex = &idx
	}
	next.ValueIndices = nil
	for i := range next.Columns {
		next.ValueIndices = append(next.ValueIndices, i)
	}
	return nil
}

// DropTable drops a table. A coupled associated source is dropped in the
// same transaction; callers never issue a separate drop for it.
func (m *Manager) DropTable(ctx context.Context, id types.ObjectID) apperrors.Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	table, ok := snap.GetTable(id)
	if !ok {
		return ErrNotFound.Msg("table " + id.String() + " does not exist")
	}
	if !m.graph.CanDrop(table.ID) {
		return m.dependencyError(snap, "table", table.Name, table.ID)
	}

	t := newTxn()
	if table.AssociatedSourceID != nil {
		src, ok := snap.GetSource(*table.AssociatedSourceID)
		if !ok {
			log.Ctx(ctx).Error().
				Str("table", table.Name).
				Str("source_id", table.AssociatedSourceID.String()).
				Msg("associated source missing on drop")
			return ErrInconsistent.Msg("table " + table.Name + " references missing associated source")
		}
		if !m.graph.CanDrop(src.ID) {
			return m.dependencyError(snap, "source", src.Name, src.ID)
		}
		t.drop(types.KindSource, src.ID)
	}
	t.drop(types.KindTable, table.ID)
	return m.apply(ctx, t)
}

// dependencyError builds a DependencyViolation naming every direct dependent
// of the relation, so the caller can see exactly what blocks the drop.
func (m *Manager) dependencyError(snap *Snapshot, kind, name string, id types.ObjectID) apperrors.Error {
	err := ErrDependencyViolation.Msg("cannot drop " + kind + " " + name)
	for _, dep := range m.graph.Dependents(id) {
		err = err.Err(apperrors.New("relation " + snap.relationName(dep) + " depends on it"))
	}
	return err
}
