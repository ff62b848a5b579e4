package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/pkg/types"
)

func TestKeyRoundTrip(t *testing.T) {
	tests := []struct {
		kind types.ObjectKind
		id   types.ObjectID
	}{
		{types.KindDatabase, 1},
		{types.KindTable, 42},
		{types.KindSource, 4294967295},
	}
	for _, tt := range tests {
		kind, id, err := ParseKey(KeyFor(tt.kind, tt.id))
		require.NoError(t, err)
		assert.Equal(t, tt.kind, kind)
		assert.Equal(t, tt.id, id)
	}
}

func TestParseKeyRejectsGarbage(t *testing.T) {
	for _, key := range []string{
		"",
		"/other/table/0000000001",
		"/catalog/gadget/0000000001",
		"/catalog/table",
		"/catalog/table/notanumber",
	} {
		_, _, err := ParseKey(key)
		require.Error(t, err, "key %q", key)
		assert.True(t, errors.Is(err, ErrCorruptedKey))
	}
}

func TestObjectCodecRoundTrip(t *testing.T) {
	rowID := 0
	table := &catalog.Table{
		ID:       7,
		SchemaID: 2,
		Name:     "events",
		Columns: []catalog.ColumnDesc{
			{ID: 0, Name: "_row_id", DataType: "serial", IsHidden: true},
			{ID: 1, Name: "v", DataType: "int"},
		},
		PrimaryKey: []catalog.ColumnOrder{{ColumnIndex: 0, Direction: catalog.OrderAsc}},
		RowIDIndex: &rowID,
		Version:    &catalog.TableVersion{Version: 3, NextColumnID: 2},
	}

	w, err := WriteFor(table)
	require.NoError(t, err)
	assert.Equal(t, KeyFor(types.KindTable, 7), w.Key)

	obj, err := DecodeObject(types.KindTable, w.Value)
	require.NoError(t, err)
	got, ok := obj.(*catalog.Table)
	require.True(t, ok)
	assert.Equal(t, table, got)

	_, err = DecodeObject(types.KindTable, []byte("{broken"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptedValue))
}

func TestMemStoreCommitIsAtomic(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()

	require.NoError(t, st.Commit(ctx, []Write{
		Put("/catalog/database/0000000001", []byte(`{"id":1}`)),
		Put("/catalog/schema/0000000001", []byte(`{"id":1}`)),
	}))

	st.SetCommitHook(func([]Write) error { return errors.New("fsync failed") })
	err := st.Commit(ctx, []Write{
		Put("/catalog/table/0000000001", []byte(`{"id":1}`)),
		Del("/catalog/database/0000000001"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))

	// Nothing from the failed batch is visible.
	st.SetCommitHook(nil)
	data, lerr := st.LoadAll(ctx)
	require.NoError(t, lerr)
	assert.Len(t, data, 2)
	assert.Contains(t, data, "/catalog/database/0000000001")
	assert.NotContains(t, data, "/catalog/table/0000000001")
}

func TestMemStoreCloseRejectsFurtherUse(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()
	require.NoError(t, st.Close())

	err := st.Commit(ctx, []Write{Put("k", []byte("v"))})
	assert.True(t, errors.Is(err, ErrStoreClosed))
	_, err = st.LoadAll(ctx)
	assert.True(t, errors.Is(err, ErrStoreClosed))
}
