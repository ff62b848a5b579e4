package catalogmanager

import (
	"context"
	"strings"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/internal/metasrv/catcommon"
	"github.com/streamhouse/streamhouse/pkg/types"
)

// CreateFunction registers a user-defined function. Conflicts are checked on
// the full signature, so overloads differing only in argument types coexist.
func (m *Manager) CreateFunction(ctx context.Context, spec *FunctionSpec) (*catalog.Function, apperrors.Error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	db, sc, err := resolveSchema(snap, spec.Database, spec.Schema)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.GetFunctionByNameArgs(sc.ID, spec.Name, spec.ArgTypes); ok {
		return nil, ErrNameConflict.Msg(
			"function " + spec.Name + "(" + strings.Join(spec.ArgTypes, ", ") + ") already exists in schema " + sc.Name)
	}

	sp := m.alloc.Mark()
	fn := &catalog.Function{
		ID:         m.alloc.NextID(types.KindFunction),
		SchemaID:   sc.ID,
		DatabaseID: db.ID,
		Name:       spec.Name,
		Owner:      catcommon.PrincipalFromContext(ctx),
		ArgTypes:   spec.ArgTypes,
		ReturnType: spec.ReturnType,
		Language:   spec.Language,
		Link:       spec.Link,
	}

	t := newTxn()
	if err := t.create(fn); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	if err := m.apply(ctx, t); err != nil {
		m.alloc.Rollback(sp)
		return nil, err
	}
	return fn, nil
}

// DropFunction drops a function by id.
func (m *Manager) DropFunction(ctx context.Context, id types.ObjectID) apperrors.Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap.Load()

	fn, ok := snap.GetFunction(id)
	if !ok {
		return ErrNotFound.Msg("function " + id.String() + " does not exist")
	}

	t := newTxn()
	t.drop(types.KindFunction, fn.ID)
	return m.apply(ctx, t)
}
