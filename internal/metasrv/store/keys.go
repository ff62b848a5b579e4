package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
	"github.com/streamhouse/streamhouse/pkg/types"
)

// Keyspace layout: each object kind is stored under its own prefix, with the
// object id as the final path element.
//
//	/catalog/database/1
//	/catalog/table/42
//
// Decimal ids are zero-padded so lexicographic key order matches id order
// within a kind, which keeps per-kind range scans ordered.
const keyPrefix = "/catalog/"

// KeyFor derives the store key for an object of the given kind and id.
func KeyFor(kind types.ObjectKind, id types.ObjectID) string {
	return fmt.Sprintf("%s%s/%010d", keyPrefix, kind, id)
}

// ParseKey recovers the kind and id from a store key.
func ParseKey(key string) (types.ObjectKind, types.ObjectID, apperrors.Error) {
	rest, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return types.KindInvalid, 0, ErrCorruptedKey.Msg("bad key prefix: " + key)
	}
	kindStr, idStr, ok := strings.Cut(rest, "/")
	if !ok {
		return types.KindInvalid, 0, ErrCorruptedKey.Msg("bad key shape: " + key)
	}
	kind := types.ObjectKind(kindStr)
	if !kind.IsValid() {
		return types.KindInvalid, 0, ErrCorruptedKey.Msg("unknown kind in key: " + key)
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return types.KindInvalid, 0, ErrCorruptedKey.MsgErr("bad id in key: "+key, err)
	}
	return kind, types.ObjectID(id), nil
}
