package store

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodeObject serializes a catalog object to its store value.
func EncodeObject(obj catalog.Object) ([]byte, apperrors.Error) {
	value, err := json.Marshal(obj)
	if err != nil {
		return nil, ErrCorruptedValue.MsgErr("failed to encode "+string(obj.Kind()), err)
	}
	return value, nil
}

// DecodeObject deserializes a store value into the object type for the kind
// recovered from its key.
func DecodeObject(kind types.ObjectKind, value []byte) (catalog.Object, apperrors.Error) {
	var obj catalog.Object
	switch kind {
	case types.KindDatabase:
		obj = &catalog.Database{}
	case types.KindSchema:
		obj = &catalog.Schema{}
	case types.KindTable:
		obj = &catalog.Table{}
	case types.KindSource:
		obj = &catalog.Source{}
	case types.KindSink:
		obj = &catalog.Sink{}
	case types.KindIndex:
		obj = &catalog.Index{}
	case types.KindView:
		obj = &catalog.View{}
	case types.KindFunction:
		obj = &catalog.Function{}
	default:
		return nil, ErrCorruptedValue.Msg("unknown object kind: " + string(kind))
	}
	if err := json.Unmarshal(value, obj); err != nil {
		return nil, ErrCorruptedValue.MsgErr("failed to decode "+string(kind), err)
	}
	return obj, nil
}

// WriteFor builds the store write upserting an object.
func WriteFor(obj catalog.Object) (Write, apperrors.Error) {
	value, err := EncodeObject(obj)
	if err != nil {
		return Write{}, err
	}
	return Put(KeyFor(obj.Kind(), obj.GetID()), value), nil
}

// TombstoneFor builds the store write deleting an object.
func TombstoneFor(kind types.ObjectKind, id types.ObjectID) Write {
	return Del(KeyFor(kind, id))
}
