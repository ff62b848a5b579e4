package types

import "strconv"

// ObjectID identifies a catalog object. Ids are unique cluster-wide within
// their kind and are never reused, even after the object is dropped.
type ObjectID uint32

func (id ObjectID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ColumnID identifies a column within one table's lifetime. Ids are assigned
// from the table's TableVersion.NextColumnID and are never reassigned, so a
// dropped column's id stays consumed.
type ColumnID int32

func (id ColumnID) Int() int {
	return int(id)
}

// ObjectKind discriminates the catalog object kinds. The string values double
// as the keyspace prefix in the catalog store.
type ObjectKind string

const (
	KindDatabase ObjectKind = "database"
	KindSchema   ObjectKind = "schema"
	KindTable    ObjectKind = "table"
	KindSource   ObjectKind = "source"
	KindSink     ObjectKind = "sink"
	KindIndex    ObjectKind = "index"
	KindView     ObjectKind = "view"
	KindFunction ObjectKind = "function"
	KindInvalid  ObjectKind = "invalid"
)

// IsRelation reports whether objects of this kind may appear in another
// object's dependent relation set.
func (k ObjectKind) IsRelation() bool {
	switch k {
	case KindTable, KindSource, KindSink, KindIndex, KindView:
		return true
	}
	return false
}

func (k ObjectKind) IsValid() bool {
	switch k {
	case KindDatabase, KindSchema, KindTable, KindSource, KindSink,
		KindIndex, KindView, KindFunction:
		return true
	}
	return false
}
