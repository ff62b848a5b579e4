package catalogmanager

import (
	"context"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/internal/metasrv/catcommon"
	"github.com/streamhouse/streamhouse/pkg/types"
)

// DefaultSchemaName is created implicitly with every database.
const DefaultSchemaName = "public"

// CreateDatabase creates a database together with its default schema in one
// transaction.
func (m *Manager) CreateDatabase(ctx context.Context, spec *DatabaseSpec) (*catalog.Database, apperrors.Error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	if _, ok := snap.GetDatabaseByName(spec.Name); ok {
		return nil, ErrNameConflict.Msg("database " + spec.Name + " already exists")
	}

	sp := m.alloc.Mark()
	db := &catalog.Database{
		ID:    m.alloc.NextID(types.KindDatabase),
		Name:  spec.Name,
		Owner: catcommon.PrincipalFromContext(ctx),
	}
	defaultSchema := &catalog.Schema{
		ID:         m.alloc.NextID(types.KindSchema),
		DatabaseID: db.ID,
		Name:       DefaultSchemaName,
		Owner:      db.Owner,
	}

	t := newTxn()
	if err := t.create(db); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	if err := t.create(defaultSchema); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	if err := m.apply(ctx, t); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	return db, nil
}

// DropDatabase drops a database and its schemas. Every schema must be empty;
// cascading drops of relations are not supported.
func (m *Manager) DropDatabase(ctx context.Context, id types.ObjectID) apperrors.Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	db, ok := snap.GetDatabase(id)
	if !ok {
		return ErrNotFound.Msg("database " + id.String() + " does not exist")
	}

	schemas := snap.ListSchemas(db.ID)
	for _, sc := range schemas {
		if !snap.schemaIsEmpty(sc.ID) {
			return ErrNotEmpty.Msg("schema " + db.Name + "." + sc.Name + " is not empty")
		}
	}

	t := newTxn()
	for _, sc := range schemas {
		t.drop(types.KindSchema, sc.ID)
	}
	t.drop(types.KindDatabase, db.ID)
	return m.apply(ctx, t)
}
