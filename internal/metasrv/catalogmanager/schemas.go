package catalogmanager

import (
	"context"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/internal/metasrv/catcommon"
	"github.com/streamhouse/streamhouse/pkg/types"
)

// CreateSchema creates a schema in an existing database.
func (m *Manager) CreateSchema(ctx context.Context, spec *SchemaSpec) (*catalog.Schema, apperrors.Error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	db, ok := snap.GetDatabaseByName(spec.Database)
	if !ok {
		return nil, ErrNotFound.Msg("database " + spec.Database + " does not exist")
	}
	if _, ok := snap.GetSchemaByName(db.ID, spec.Name); ok {
		return nil, ErrNameConflict.Msg("schema " + spec.Database + "." + spec.Name + " already exists")
	}

	sp := m.alloc.Mark()
	sc := &catalog.Schema{
		ID:         m.alloc.NextID(types.KindSchema),
		DatabaseID: db.ID,
		Name:       spec.Name,
		Owner:      catcommon.PrincipalFromContext(ctx),
	}

	t := newTxn()
	if err := t.create(sc); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	if err := m.apply(ctx, t); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	return sc, nil
}

// DropSchema drops an empty schema.
func (m *Manager) DropSchema(ctx context.Context, id types.ObjectID) apperrors.Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	sc, ok := snap.GetSchema(id)
	if !ok {
		return ErrNotFound.Msg("schema " + id.String() + " does not exist")
	}
	if !snap.schemaIsEmpty(sc.ID) {
		return ErrNotEmpty.Msg("schema " + sc.Name + " is not empty")
	}

	t := newTxn()
	t.drop(types.KindSchema, sc.ID)
	return m.apply(ctx, t)
}
