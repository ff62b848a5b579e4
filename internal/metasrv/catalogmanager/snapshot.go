package catalogmanager

import (
	"sort"
	"strings"

	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/pkg/types"
)

// internalTablePrefix marks hidden backing tables (covering tables of
// indexes). They live in the table namespace but are filtered from ListTables.
const internalTablePrefix = "__index_"

// nameKey scopes a name: 0 for databases, the database id for schemas, the
// schema id for relations and functions.
type nameKey struct {
	scope types.ObjectID
	name  string
}

// Snapshot is an immutable view of the whole catalog at one catalog version.
// The manager swaps a freshly cloned snapshot in after each commit; readers
// resolve names and list objects against it without taking the writer's
// serialization point.
type Snapshot struct {
	version        uint64
	objects        map[types.ObjectKind]map[types.ObjectID]catalog.Object
	names          map[types.ObjectKind]map[nameKey]types.ObjectID
	indexesByTable map[types.ObjectID][]types.ObjectID
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		objects:        make(map[types.ObjectKind]map[types.ObjectID]catalog.Object),
		names:          make(map[types.ObjectKind]map[nameKey]types.ObjectID),
		indexesByTable: make(map[types.ObjectID][]types.ObjectID),
	}
}

func (s *Snapshot) clone() *Snapshot {
	c := newSnapshot()
	c.version = s.version
	for kind, byID := range s.objects {
		m := make(map[types.ObjectID]catalog.Object, len(byID))
		for id, obj := range byID {
			m[id] = obj
		}
		c.objects[kind] = m
	}
	for kind, byName := range s.names {
		m := make(map[nameKey]types.ObjectID, len(byName))
		for key, id := range byName {
			m[key] = id
		}
		c.names[kind] = m
	}
	for tableID, indexes := range s.indexesByTable {
		c.indexesByTable[tableID] = append([]types.ObjectID(nil), indexes...)
	}
	return c
}

// scopeOf returns the namespace an object's name is unique within.
func scopeOf(obj catalog.Object) types.ObjectID {
	switch o := obj.(type) {
	case *catalog.Database:
		return 0
	case *catalog.Schema:
		return o.DatabaseID
	case *catalog.Table:
		return o.SchemaID
	case *catalog.Source:
		return o.SchemaID
	case *catalog.Sink:
		return o.SchemaID
	case *catalog.Index:
		return o.SchemaID
	case *catalog.View:
		return o.SchemaID
	case *catalog.Function:
		return o.SchemaID
	}
	return 0
}

// nameOf returns the object's name in its namespace. Functions are keyed by
// signature so overloads with different argument types coexist.
func nameOf(obj catalog.Object) string {
	if fn, ok := obj.(*catalog.Function); ok {
		return functionKeyName(fn.Name, fn.ArgTypes)
	}
	return obj.GetName()
}

func functionKeyName(name string, argTypes []string) string {
	return name + "(" + strings.Join(argTypes, ",") + ")"
}

// put inserts or replaces an object, maintaining the name index and the
// indexes-by-table index. Only the manager calls this, on a private clone.
func (s *Snapshot) put(obj catalog.Object) {
	kind := obj.Kind()
	byID := s.objects[kind]
	if byID == nil {
		byID = make(map[types.ObjectID]catalog.Object)
		s.objects[kind] = byID
	}
	byName := s.names[kind]
	if byName == nil {
		byName = make(map[nameKey]types.ObjectID)
		s.names[kind] = byName
	}
	if prev, ok := byID[obj.GetID()]; ok {
		delete(byName, nameKey{scopeOf(prev), nameOf(prev)})
	}
	byID[obj.GetID()] = obj
	byName[nameKey{scopeOf(obj), nameOf(obj)}] = obj.GetID()

	if idx, ok := obj.(*catalog.Index); ok {
		s.unlinkIndex(idx.PrimaryTableID, idx.ID)
		s.indexesByTable[idx.PrimaryTableID] = append(s.indexesByTable[idx.PrimaryTableID], idx.ID)
	}
}

// remove deletes an object and its index entries. Only the manager calls
// this, on a private clone.
func (s *Snapshot) remove(kind types.ObjectKind, id types.ObjectID) {
	obj, ok := s.objects[kind][id]
	if !ok {
		return
	}
	delete(s.objects[kind], id)
	delete(s.names[kind], nameKey{scopeOf(obj), nameOf(obj)})
	if idx, ok := obj.(*catalog.Index); ok {
		s.unlinkIndex(idx.PrimaryTableID, idx.ID)
	}
}

func (s *Snapshot) unlinkIndex(tableID, indexID types.ObjectID) {
	indexes := s.indexesByTable[tableID]
	for i, id := range indexes {
		if id == indexID {
			s.indexesByTable[tableID] = append(indexes[:i], indexes[i+1:]...)
			break
		}
	}
	if len(s.indexesByTable[tableID]) == 0 {
		delete(s.indexesByTable, tableID)
	}
}

// Version returns the catalog version this snapshot reflects.
func (s *Snapshot) Version() uint64 {
	return s.version
}

func (s *Snapshot) get(kind types.ObjectKind, id types.ObjectID) (catalog.Object, bool) {
	obj, ok := s.objects[kind][id]
	return obj, ok
}

func (s *Snapshot) lookup(kind types.ObjectKind, scope types.ObjectID, name string) (catalog.Object, bool) {
	id, ok := s.names[kind][nameKey{scope, name}]
	if !ok {
		return nil, false
	}
	return s.get(kind, id)
}

// GetDatabase returns the database with the given id.
func (s *Snapshot) GetDatabase(id types.ObjectID) (*catalog.Database, bool) {
	obj, ok := s.get(types.KindDatabase, id)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Database), true
}

// GetDatabaseByName resolves a database name.
func (s *Snapshot) GetDatabaseByName(name string) (*catalog.Database, bool) {
	obj, ok := s.lookup(types.KindDatabase, 0, name)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Database), true
}

func (s *Snapshot) GetSchema(id types.ObjectID) (*catalog.Schema, bool) {
	obj, ok := s.get(types.KindSchema, id)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Schema), true
}

func (s *Snapshot) GetSchemaByName(databaseID types.ObjectID, name string) (*catalog.Schema, bool) {
	obj, ok := s.lookup(types.KindSchema, databaseID, name)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Schema), true
}

func (s *Snapshot) GetTable(id types.ObjectID) (*catalog.Table, bool) {
	obj, ok := s.get(types.KindTable, id)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Table), true
}

func (s *Snapshot) GetTableByName(schemaID types.ObjectID, name string) (*catalog.Table, bool) {
	obj, ok := s.lookup(types.KindTable, schemaID, name)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Table), true
}

func (s *Snapshot) GetSource(id types.ObjectID) (*catalog.Source, bool) {
	obj, ok := s.get(types.KindSource, id)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Source), true
}

func (s *Snapshot) GetSourceByName(schemaID types.ObjectID, name string) (*catalog.Source, bool) {
	obj, ok := s.lookup(types.KindSource, schemaID, name)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Source), true
}

func (s *Snapshot) GetSink(id types.ObjectID) (*catalog.Sink, bool) {
	obj, ok := s.get(types.KindSink, id)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Sink), true
}

func (s *Snapshot) GetSinkByName(schemaID types.ObjectID, name string) (*catalog.Sink, bool) {
	obj, ok := s.lookup(types.KindSink, schemaID, name)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Sink), true
}

func (s *Snapshot) GetIndex(id types.ObjectID) (*catalog.Index, bool) {
	obj, ok := s.get(types.KindIndex, id)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Index), true
}

func (s *Snapshot) GetIndexByName(schemaID types.ObjectID, name string) (*catalog.Index, bool) {
	obj, ok := s.lookup(types.KindIndex, schemaID, name)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Index), true
}

func (s *Snapshot) GetView(id types.ObjectID) (*catalog.View, bool) {
	obj, ok := s.get(types.KindView, id)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.View), true
}

func (s *Snapshot) GetViewByName(schemaID types.ObjectID, name string) (*catalog.View, bool) {
	obj, ok := s.lookup(types.KindView, schemaID, name)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.View), true
}

func (s *Snapshot) GetFunction(id types.ObjectID) (*catalog.Function, bool) {
	obj, ok := s.get(types.KindFunction, id)
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Function), true
}

// GetFunctionByNameArgs resolves a function by name and argument types.
func (s *Snapshot) GetFunctionByNameArgs(schemaID types.ObjectID, name string, argTypes []string) (*catalog.Function, bool) {
	obj, ok := s.lookup(types.KindFunction, schemaID, functionKeyName(name, argTypes))
	if !ok {
		return nil, false
	}
	return obj.(*catalog.Function), true
}

// ListDatabases returns all databases sorted by name.
func (s *Snapshot) ListDatabases() []*catalog.Database {
	out := make([]*catalog.Database, 0, len(s.objects[types.KindDatabase]))
	for _, obj := range s.objects[types.KindDatabase] {
		out = append(out, obj.(*catalog.Database))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListSchemas returns the schemas of a database sorted by name.
func (s *Snapshot) ListSchemas(databaseID types.ObjectID) []*catalog.Schema {
	var out []*catalog.Schema
	for _, obj := range s.objects[types.KindSchema] {
		sc := obj.(*catalog.Schema)
		if sc.DatabaseID == databaseID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListTables returns the user-visible tables of a schema sorted by name.
// Hidden backing tables of indexes are excluded.
func (s *Snapshot) ListTables(schemaID types.ObjectID) []*catalog.Table {
	var out []*catalog.Table
	for _, obj := range s.objects[types.KindTable] {
		t := obj.(*catalog.Table)
		if t.SchemaID == schemaID && !strings.HasPrefix(t.Name, internalTablePrefix) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListAllTables returns every table of a schema sorted by name, including
// hidden index backing tables. The full-catalog dump uses it so a subscriber
// resyncing from a snapshot sees the same object set the delta stream
// describes: every Index in the dump has its index_table_id present.
func (s *Snapshot) ListAllTables(schemaID types.ObjectID) []*catalog.Table {
	var out []*catalog.Table
	for _, obj := range s.objects[types.KindTable] {
		t := obj.(*catalog.Table)
		if t.SchemaID == schemaID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListSources returns the sources of a schema sorted by name, including the
// hidden sources backing connector-backed tables.
func (s *Snapshot) ListSources(schemaID types.ObjectID) []*catalog.Source {
	var out []*catalog.Source
	for _, obj := range s.objects[types.KindSource] {
		src := obj.(*catalog.Source)
		if src.SchemaID == schemaID {
			out = append(out, src)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Snapshot) ListSinks(schemaID types.ObjectID) []*catalog.Sink {
	var out []*catalog.Sink
	for _, obj := range s.objects[types.KindSink] {
		sink := obj.(*catalog.Sink)
		if sink.SchemaID == schemaID {
			out = append(out, sink)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Snapshot) ListIndexes(schemaID types.ObjectID) []*catalog.Index {
	var out []*catalog.Index
	for _, obj := range s.objects[types.KindIndex] {
		idx := obj.(*catalog.Index)
		if idx.SchemaID == schemaID {
			out = append(out, idx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Snapshot) ListViews(schemaID types.ObjectID) []*catalog.View {
	var out []*catalog.View
	for _, obj := range s.objects[types.KindView] {
		v := obj.(*catalog.View)
		if v.SchemaID == schemaID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Snapshot) ListFunctions(schemaID types.ObjectID) []*catalog.Function {
	var out []*catalog.Function
	for _, obj := range s.objects[types.KindFunction] {
		fn := obj.(*catalog.Function)
		if fn.SchemaID == schemaID {
			out = append(out, fn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IndexesByTable returns the indexes defined over a table.
func (s *Snapshot) IndexesByTable(tableID types.ObjectID) []*catalog.Index {
	ids := s.indexesByTable[tableID]
	out := make([]*catalog.Index, 0, len(ids))
	for _, id := range ids {
		if idx, ok := s.GetIndex(id); ok {
			out = append(out, idx)
		}
	}
	return out
}

// relationName resolves a relation id to its name for error detail; falls
// back to the numeric id when the relation is gone.
func (s *Snapshot) relationName(id types.ObjectID) string {
	for _, kind := range []types.ObjectKind{types.KindTable, types.KindSource, types.KindSink, types.KindIndex, types.KindView} {
		if obj, ok := s.objects[kind][id]; ok {
			return obj.GetName()
		}
	}
	return id.String()
}

// coupledTable returns the table whose AssociatedSourceID is the given
// source, if any.
func (s *Snapshot) coupledTable(sourceID types.ObjectID) (*catalog.Table, bool) {
	for _, obj := range s.objects[types.KindTable] {
		t := obj.(*catalog.Table)
		if t.AssociatedSourceID != nil && *t.AssociatedSourceID == sourceID {
			return t, true
		}
	}
	return nil, false
}

// relationExists reports whether a live relation with the given id exists
// under any relation kind.
func (s *Snapshot) relationExists(id types.ObjectID) bool {
	for _, kind := range []types.ObjectKind{types.KindTable, types.KindSource, types.KindSink, types.KindIndex, types.KindView} {
		if _, ok := s.objects[kind][id]; ok {
			return true
		}
	}
	return false
}

// schemaIsEmpty reports whether a schema contains no relations or functions.
func (s *Snapshot) schemaIsEmpty(schemaID types.ObjectID) bool {
	for _, kind := range []types.ObjectKind{types.KindTable, types.KindSource, types.KindSink, types.KindIndex, types.KindView, types.KindFunction} {
		for _, obj := range s.objects[kind] {
			if scopeOf(obj) == schemaID {
				return false
			}
		}
	}
	return true
}
