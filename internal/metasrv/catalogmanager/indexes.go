package catalogmanager

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/internal/metasrv/catcommon"
	"github.com/streamhouse/streamhouse/pkg/types"
)

// CreateIndex creates an index over a primary table. The index is backed by a
// hidden covering table holding every primary-table column with the indexed
// ones promoted to the key; both objects are created in one transaction. The
// backing table's name carries the internal prefix so listings skip it.
func (m *Manager) CreateIndex(ctx context.Context, spec *IndexSpec) (*catalog.Index, apperrors.Error) {
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
	if _, ok := snap.GetIndexByName(sc.ID, spec.Name); ok {
		return nil, ErrNameConflict.Msg("index " + spec.Name + " already exists in schema " + sc.Name)
	}
	backingName := internalTablePrefix + spec.Name
	if _, ok := snap.GetTableByName(sc.ID, backingName); ok {
		return nil, ErrNameConflict.Msg("index backing table " + backingName + " already exists in schema " + sc.Name)
	}
	primary, ok := snap.GetTableByName(sc.ID, spec.Table)
	if !ok {
		return nil, ErrNotFound.Msg("table " + spec.Database + "." + spec.Schema + "." + spec.Table + " does not exist")
	}

	items, originals, err := planIndexColumns(primary, spec.Columns)
	if err != nil {
		return nil, err
	}

	sp := m.alloc.Mark()
	owner := catcommon.PrincipalFromContext(ctx)
	backing := buildIndexBackingTable(m.alloc.NextID(types.KindTable), backingName, owner, primary, originals, len(items))
	index := &catalog.Index{
		ID:              m.alloc.NextID(types.KindIndex),
		SchemaID:        sc.ID,
		DatabaseID:      db.ID,
		Name:            spec.Name,
		Owner:           owner,
		PrimaryTableID:  primary.ID,
		IndexTableID:    backing.ID,
		IndexItems:      items,
		OriginalColumns: originals,
	}

	t := newTxn()
	if err := t.create(backing); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	if err := t.create(index); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	if err := m.apply(ctx, t); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	return index, nil
}

// planIndexColumns resolves the indexed column names against the primary
// table and computes the covering order: indexed columns first, then every
// remaining primary-table column.
func planIndexColumns(primary *catalog.Table, names []string) ([]catalog.IndexItem, []int, apperrors.Error) {
	var items []catalog.IndexItem
	indexed := make(map[int]struct{}, len(names))
	for _, name := range names {
		idx, ok := columnIndexByName(primary.Columns, name)
		if !ok {
			return nil, nil, ErrInvalidArgument.Msg("index column " + name + " is not a column of table " + primary.Name)
		}
		if _, dup := indexed[idx]; dup {
			return nil, nil, ErrInvalidArgument.Msg("index column " + name + " is listed twice")
		}
		indexed[idx] = struct{}{}
		items = append(items, catalog.IndexItem{ColumnIndex: idx})
	}

	originals := make([]int, 0, len(primary.Columns))
	for _, item := range items {
		originals = append(originals, item.ColumnIndex)
	}
	for i := range primary.Columns {
		if _, ok := indexed[i]; !ok {
			originals = append(originals, i)
		}
	}
	return items, originals, nil
}

// buildIndexBackingTable derives the hidden covering table. Column ids are
// assigned fresh in covering order; the indexed prefix becomes the primary,
// stream, and distribution key.
func buildIndexBackingTable(id types.ObjectID, name string, owner uuid.UUID, primary *catalog.Table, originals []int, keyLen int) *catalog.Table {
	columns := make([]catalog.ColumnDesc, 0, len(originals))
	nextColumnID := types.ColumnID(0)
	for _, orig := range originals {
		src := primary.Columns[orig]
		columns = append(columns, catalog.ColumnDesc{
			ID:       allocate(&nextColumnID),
			Name:     src.Name,
			DataType: src.DataType,
			IsHidden: src.IsHidden,
		})
	}

	var primaryKey []catalog.ColumnOrder
	var streamKey, distributionKey, valueIndices []int
	for i := 0; i < keyLen; i++ {
		primaryKey = append(primaryKey, catalog.ColumnOrder{ColumnIndex: i, Direction: catalog.OrderAsc})
		streamKey = append(streamKey, i)
		distributionKey = append(distributionKey, i)
	}
	for i := range columns {
		valueIndices = append(valueIndices, i)
	}

	return &catalog.Table{
		ID:              id,
		SchemaID:        primary.SchemaID,
		DatabaseID:      primary.DatabaseID,
		Name:            name,
		Owner:           owner,
		Columns:         columns,
		PrimaryKey:      primaryKey,
		DistributionKey: distributionKey,
		StreamKey:       streamKey,
		AppendOnly:      false,
		ValueIndices:    valueIndices,
		Version:         &catalog.TableVersion{Version: 1, NextColumnID: nextColumnID},
	}
}

// DropIndex drops an index together with its backing table in one
// transaction.
func (m *Manager) DropIndex(ctx context.Context, id types.ObjectID) apperrors.Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	index, ok := snap.GetIndex(id)
	if !ok {
		return ErrNotFound.Msg("index " + id.String() + " does not exist")
	}
	if !m.graph.CanDrop(index.ID) {
		return m.dependencyError(snap, "index", index.Name, index.ID)
	}

	t := newTxn()
	if _, ok := snap.GetTable(index.IndexTableID); ok {
		t.drop(types.KindTable, index.IndexTableID)
	} else {
		log.Ctx(ctx).Error().
			Str("index", index.Name).
			Str("index_table_id", index.IndexTableID.String()).
			Msg("index backing table missing on drop")
	}
	t.drop(types.KindIndex, index.ID)
	return m.apply(ctx, t)
}
