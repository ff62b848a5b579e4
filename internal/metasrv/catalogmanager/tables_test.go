package catalogmanager

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/pkg/types"
)

func connectorTableSpec(name string) *TableSpec {
	return &TableSpec{
		Database: "dev", Schema: "public", Name: name,
		Columns: []ColumnSpec{
			{Name: "id", DataType: "bigint"},
			{Name: "payload", DataType: "varchar"},
		},
		PrimaryKey: []string{"id"},
		Properties: map[string]string{"connector": "kafka", "topic": name},
		Definition: "create table " + name + " (id bigint primary key, payload varchar) with (connector = 'kafka')",
	}
}

func plainTableSpec(name string) *TableSpec {
	return &TableSpec{
		Database: "dev", Schema: "public", Name: name,
		Columns:    []ColumnSpec{{Name: "v", DataType: "int"}},
		Definition: "create table " + name + " (v int)",
	}
}

func TestConnectorTableCouplesSource(t *testing.T) {
	ctx := testContext()
	m, _ := newTestSchema(t)
	scID := mustSchemaID(t, m, "dev", "public")

	table, err := m.CreateTable(ctx, connectorTableSpec("events"))
	require.NoError(t, err)
	require.NotNil(t, table.AssociatedSourceID)

	snap := m.Snapshot()
	source, ok := snap.GetSourceByName(scID, "events")
	require.True(t, ok)
	assert.Equal(t, *table.AssociatedSourceID, source.ID)
	assert.Equal(t, table.Columns, source.Columns)
	assert.Equal(t, []types.ColumnID{table.Columns[0].ID}, source.PKColumnIDs)

	// The coupled source cannot be dropped on its own.
	err = m.DropSource(ctx, source.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	// Dropping the table removes both halves in one step.
	versionBefore := m.Snapshot().Version()
	require.NoError(t, m.DropTable(ctx, table.ID))
	snap = m.Snapshot()
	assert.Equal(t, versionBefore+1, snap.Version())
	_, ok = snap.GetTable(table.ID)
	assert.False(t, ok)
	_, ok = snap.GetSource(source.ID)
	assert.False(t, ok)
}

func TestTableAndSourceNamespacesAreSeparate(t *testing.T) {
	ctx := testContext()
	m, _ := newTestSchema(t)

	_, err := m.CreateTable(ctx, connectorTableSpec("events"))
	require.NoError(t, err)

	// The coupled source occupies "events" in the source namespace.
	_, err = m.CreateSource(ctx, &SourceSpec{
		Database: "dev", Schema: "public", Name: "events",
		Format:  catalog.RowFormat{Kind: "json"},
		Columns: []ColumnSpec{{Name: "v", DataType: "int"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNameConflict))

	// A standalone source and a plain table may share a name, each kind
	// resolving in its own namespace.
	_, err = m.CreateSource(ctx, &SourceSpec{
		Database: "dev", Schema: "public", Name: "shared",
		Format:  catalog.RowFormat{Kind: "json"},
		Columns: []ColumnSpec{{Name: "v", DataType: "int"}},
	})
	require.NoError(t, err)
	_, err = m.CreateTable(ctx, plainTableSpec("shared"))
	require.NoError(t, err)
}

func TestHiddenRowIDWhenNoPrimaryKey(t *testing.T) {
	ctx := testContext()
	m, _ := newTestSchema(t)

	table, err := m.CreateTable(ctx, plainTableSpec("t1"))
	require.NoError(t, err)

	require.NotNil(t, table.RowIDIndex)
	assert.Equal(t, 0, *table.RowIDIndex)
	assert.True(t, table.Columns[0].IsHidden)
	assert.Equal(t, types.ColumnID(0), table.Columns[0].ID)
	assert.Equal(t, []catalog.ColumnOrder{{ColumnIndex: 0, Direction: catalog.OrderAsc}}, table.PrimaryKey)
	require.NotNil(t, table.Version)
	assert.Equal(t, uint64(1), table.Version.Version)
	assert.Equal(t, types.ColumnID(2), table.Version.NextColumnID)
}

func TestCreateTableRejectsDuplicateKeyColumns(t *testing.T) {
	ctx := testContext()
	m, _ := newTestSchema(t)

	spec := connectorTableSpec("events")
	spec.PrimaryKey = []string{"id", "id"}
	_, err := m.CreateTable(ctx, spec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	spec = connectorTableSpec("events")
	spec.DistributionKey = []string{"payload", "payload"}
	_, err = m.CreateTable(ctx, spec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	// Nothing partial should remain after the rejections.
	scID := mustSchemaID(t, m, "dev", "public")
	_, ok := m.Snapshot().GetTableByName(scID, "events")
	assert.False(t, ok)
}

func TestAlterTableVersioning(t *testing.T) {
	ctx := testContext()
	m, _ := newTestSchema(t)

	table, err := m.CreateTable(ctx, connectorTableSpec("events"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), table.Version.Version)

	altered, err := m.AlterTable(ctx, table.ID, &AlterTableRequest{
		ExpectedVersion: 1,
		AddColumns:      []ColumnSpec{{Name: "ts", DataType: "timestamp"}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), altered.Version.Version)

	// New column id continues from the create-time counter.
	added := altered.Columns[len(altered.Columns)-1]
	assert.Equal(t, "ts", added.Name)
	assert.Equal(t, types.ColumnID(2), added.ID)
	assert.Equal(t, types.ColumnID(3), altered.Version.NextColumnID)

	// A racing ALTER against the old version loses deterministically.
	_, err = m.AlterTable(ctx, table.ID, &AlterTableRequest{
		ExpectedVersion: 1,
		AddColumns:      []ColumnSpec{{Name: "late", DataType: "int"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVersionConflict))
}

func TestAlterTableNeverReusesColumnIDs(t *testing.T) {
	ctx := testContext()
	m, _ := newTestSchema(t)

	table, err := m.CreateTable(ctx, connectorTableSpec("events"))
	require.NoError(t, err)

	dropped, err := m.AlterTable(ctx, table.ID, &AlterTableRequest{
		ExpectedVersion: 1,
		DropColumns:     []string{"payload"},
	})
	require.NoError(t, err)

	// The dropped column's id stays consumed: the next add gets a fresh one.
	readded, err := m.AlterTable(ctx, dropped.ID, &AlterTableRequest{
		ExpectedVersion: 2,
		AddColumns:      []ColumnSpec{{Name: "payload", DataType: "varchar"}},
	})
	require.NoError(t, err)
	back := readded.Columns[len(readded.Columns)-1]
	assert.Equal(t, "payload", back.Name)
	assert.Equal(t, types.ColumnID(2), back.ID)
}

func TestAlterTableRenameAndChangeTypeKeepID(t *testing.T) {
	ctx := testContext()
	m, _ := newTestSchema(t)

	table, err := m.CreateTable(ctx, connectorTableSpec("events"))
	require.NoError(t, err)
	payloadID := table.Columns[1].ID

	altered, err := m.AlterTable(ctx, table.ID, &AlterTableRequest{
		ExpectedVersion: 1,
		RenameColumns:   []RenameColumn{{From: "payload", To: "body"}},
		ChangeTypes:     []ChangeColumnType{{Name: "body", DataType: "jsonb"}},
	})
	require.NoError(t, err)

	idx, ok := columnIndexByName(altered.Columns, "body")
	require.True(t, ok)
	assert.Equal(t, payloadID, altered.Columns[idx].ID)
	assert.Equal(t, "jsonb", altered.Columns[idx].DataType)
}

func TestAlterTableProtectsKeyAndHiddenColumns(t *testing.T) {
	ctx := testContext()
	m, _ := newTestSchema(t)

	table, err := m.CreateTable(ctx, connectorTableSpec("events"))
	require.NoError(t, err)

	_, err = m.AlterTable(ctx, table.ID, &AlterTableRequest{
		ExpectedVersion: 1,
		DropColumns:     []string{"id"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	plain, err := m.CreateTable(ctx, plainTableSpec("noKey"))
	require.NoError(t, err)
	_, err = m.AlterTable(ctx, plain.ID, &AlterTableRequest{
		ExpectedVersion: 1,
		DropColumns:     []string{rowIDColumnName},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestAlterTableRemapsKeyPositions(t *testing.T) {
	ctx := testContext()
	m, _ := newTestSchema(t)

	table, err := m.CreateTable(ctx, &TableSpec{
		Database: "dev", Schema: "public", Name: "wide",
		Columns: []ColumnSpec{
			{Name: "a", DataType: "int"},
			{Name: "k", DataType: "bigint"},
			{Name: "b", DataType: "int"},
		},
		PrimaryKey: []string{"k"},
		Definition: "create table wide (a int, k bigint primary key, b int)",
	})
	require.NoError(t, err)
	require.Equal(t, []catalog.ColumnOrder{{ColumnIndex: 1, Direction: catalog.OrderAsc}}, table.PrimaryKey)

	altered, err := m.AlterTable(ctx, table.ID, &AlterTableRequest{
		ExpectedVersion: 1,
		DropColumns:     []string{"a"},
	})
	require.NoError(t, err)

	// "k" moved to position 0; every positional field follows it.
	assert.Equal(t, []catalog.ColumnOrder{{ColumnIndex: 0, Direction: catalog.OrderAsc}}, altered.PrimaryKey)
	assert.Equal(t, []int{0}, altered.DistributionKey)
	assert.Equal(t, []int{0}, altered.StreamKey)
	assert.Equal(t, []int{0, 1}, altered.ValueIndices)
}

func TestDropBlockedByDependents(t *testing.T) {
	ctx := testContext()
	m, _ := newTestSchema(t)

	base, err := m.CreateTable(ctx, plainTableSpec("base"))
	require.NoError(t, err)

	// A materialized view is modeled as a table reading from base.
	mv, err := m.CreateTable(ctx, &TableSpec{
		Database: "dev", Schema: "public", Name: "mv_base",
		Columns:            []ColumnSpec{{Name: "v", DataType: "int"}},
		Definition:         "create materialized view mv_base as select v from base",
		DependentRelations: []types.ObjectID{base.ID},
	})
	require.NoError(t, err)

	err = m.DropTable(ctx, base.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDependencyViolation))
	assert.Contains(t, err.ErrorAll(), "mv_base")

	require.NoError(t, m.DropTable(ctx, mv.ID))
	require.NoError(t, m.DropTable(ctx, base.ID))
}

func TestRelationIDsNeverReused(t *testing.T) {
	ctx := testContext()
	m, _ := newTestSchema(t)

	first, err := m.CreateTable(ctx, plainTableSpec("t1"))
	require.NoError(t, err)
	require.NoError(t, m.DropTable(ctx, first.ID))

	second, err := m.CreateTable(ctx, plainTableSpec("t1"))
	require.NoError(t, err)
	assert.Greater(t, uint32(second.ID), uint32(first.ID))
}

func TestCreateTableRejectsDeadDependency(t *testing.T) {
	ctx := testContext()
	m, _ := newTestSchema(t)

	base, err := m.CreateTable(ctx, plainTableSpec("base"))
	require.NoError(t, err)
	require.NoError(t, m.DropTable(ctx, base.ID))

	_, err = m.CreateTable(ctx, &TableSpec{
		Database: "dev", Schema: "public", Name: "mv",
		Columns:            []ColumnSpec{{Name: "v", DataType: "int"}},
		Definition:         "create materialized view mv as select v from base",
		DependentRelations: []types.ObjectID{base.ID},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}
