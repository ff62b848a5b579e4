package catalogmanager

import (
	"strconv"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/pkg/types"
)

// Schema evolution: each accepted ALTER advances the table version by
// exactly one and assigns new columns ids from the table's NextColumnID,
// which never decreases and never recycles the id of a dropped column.
// Renames and type changes keep the column id fixed.

// beginAlter checks the caller's expected version against the table and
// returns the next version descriptor. A mismatch is an optimistic
// concurrency conflict: the caller must refetch the table and retry.
func beginAlter(t *catalog.Table, expectedVersion uint64) (*catalog.TableVersion, apperrors.Error) {
	if t.Version == nil {
		return nil, ErrInconsistent.Msg("table " + t.Name + " has no version descriptor")
	}
	if t.Version.Version != expectedVersion {
		return nil, ErrVersionConflict.Msg(
			"table " + t.Name + " is at version " + strconv.FormatUint(t.Version.Version, 10) +
				", request expected " + strconv.FormatUint(expectedVersion, 10))
	}
	return &catalog.TableVersion{
		Version:      t.Version.Version + 1,
		NextColumnID: t.Version.NextColumnID,
	}, nil
}

// allocateColumn hands out the next column id for an ALTER that adds a
// column and advances the counter.
func allocateColumn(v *catalog.TableVersion) types.ColumnID {
	id := v.NextColumnID
	v.NextColumnID++
	return id
}
