package catalog

import "github.com/streamhouse/streamhouse/pkg/types"

// Object is the interface every catalog object implements. The manager,
// store codec, dependency graph, and notifier handle objects through it.
type Object interface {
	GetID() types.ObjectID
	GetName() string
	Kind() types.ObjectKind

	// Dependencies returns the relation ids this object's definition reads
	// from. Empty for objects whose kind carries no dependent relations.
	Dependencies() []types.ObjectID
}

func (d *Database) GetID() types.ObjectID          { return d.ID }
func (d *Database) GetName() string                { return d.Name }
func (d *Database) Kind() types.ObjectKind         { return types.KindDatabase }
func (d *Database) Dependencies() []types.ObjectID { return nil }

func (s *Schema) GetID() types.ObjectID          { return s.ID }
func (s *Schema) GetName() string                { return s.Name }
func (s *Schema) Kind() types.ObjectKind         { return types.KindSchema }
func (s *Schema) Dependencies() []types.ObjectID { return nil }

func (t *Table) GetID() types.ObjectID          { return t.ID }
func (t *Table) GetName() string                { return t.Name }
func (t *Table) Kind() types.ObjectKind         { return types.KindTable }
func (t *Table) Dependencies() []types.ObjectID { return t.DependentRelations }

func (s *Source) GetID() types.ObjectID          { return s.ID }
func (s *Source) GetName() string                { return s.Name }
func (s *Source) Kind() types.ObjectKind         { return types.KindSource }
func (s *Source) Dependencies() []types.ObjectID { return nil }

func (s *Sink) GetID() types.ObjectID          { return s.ID }
func (s *Sink) GetName() string                { return s.Name }
func (s *Sink) Kind() types.ObjectKind         { return types.KindSink }
func (s *Sink) Dependencies() []types.ObjectID { return s.DependentRelations }

func (i *Index) GetID() types.ObjectID  { return i.ID }
func (i *Index) GetName() string        { return i.Name }
func (i *Index) Kind() types.ObjectKind { return types.KindIndex }

// Dependencies of an index is its primary table: the index reads from it, so
// the table may not be dropped while the index lives.
func (i *Index) Dependencies() []types.ObjectID { return []types.ObjectID{i.PrimaryTableID} }

func (v *View) GetID() types.ObjectID          { return v.ID }
func (v *View) GetName() string                { return v.Name }
func (v *View) Kind() types.ObjectKind         { return types.KindView }
func (v *View) Dependencies() []types.ObjectID { return v.DependentRelations }

func (f *Function) GetID() types.ObjectID          { return f.ID }
func (f *Function) GetName() string                { return f.Name }
func (f *Function) Kind() types.ObjectKind         { return types.KindFunction }
func (f *Function) Dependencies() []types.ObjectID { return nil }
