// Package catalogmanager is the orchestrating state machine of the meta
// catalog: every create/alter/drop request flows through it. A request is
// validated against the current snapshot, has its identifiers allocated,
// is committed atomically to the catalog store, and produces exactly one
// versioned notification delta. All mutations serialize behind one mutex;
// reads resolve against an atomically-swapped immutable snapshot and never
// take the writer's lock.
package catalogmanager

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/internal/metasrv/depgraph"
	"github.com/streamhouse/streamhouse/internal/metasrv/idalloc"
	"github.com/streamhouse/streamhouse/internal/metasrv/notifier"
	"github.com/streamhouse/streamhouse/internal/metasrv/store"
	"github.com/streamhouse/streamhouse/pkg/types"
)

type Manager struct {
	store       store.Store
	alloc       *idalloc.Allocator
	graph       *depgraph.Graph
	broadcaster *notifier.Broadcaster

	// mu is the global DDL serialization point: it spans validation, id
	// allocation, durable commit, and version stamping.
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
}

// New recovers the catalog from the store and builds the derived state: the
// id counters, the dependency graph, and the first read snapshot. A table
// whose associated source is missing (or the reverse) is an invariant
// violation and fails recovery rather than being silently repaired.
func New(ctx context.Context, st store.Store, b *notifier.Broadcaster) (*Manager, apperrors.Error) {
	m := &Manager{
		store:       st,
		alloc:       idalloc.New(),
		graph:       depgraph.New(),
		broadcaster: b,
	}

	data, err := st.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	snap := newSnapshot()
	for key, value := range data {
		kind, _, err := store.ParseKey(key)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("key", key).Msg("aborting recovery, unreadable store key")
			return nil, err
		}
		obj, err := store.DecodeObject(kind, value)
		if err != nil {
			return nil, err
		}
		snap.put(obj)
		m.alloc.Seed(kind, obj.GetID())
		m.graph.AddEdges(obj.GetID(), obj.Dependencies())
	}

	if err := verifyCoupling(ctx, snap); err != nil {
		return nil, err
	}

	m.snap.Store(snap)
	log.Ctx(ctx).Info().Int("objects", len(data)).Msg("catalog recovered from store")
	return m, nil
}

// verifyCoupling checks invariant: a table with an associated source and
// that source exist or vanish together.
func verifyCoupling(ctx context.Context, snap *Snapshot) apperrors.Error {
	for _, obj := range snap.objects[types.KindTable] {
		t := obj.(*catalog.Table)
		if t.AssociatedSourceID == nil {
			continue
		}
		if _, ok := snap.GetSource(*t.AssociatedSourceID); !ok {
			log.Ctx(ctx).Error().
				Str("table", t.Name).
				Str("source_id", t.AssociatedSourceID.String()).
				Msg("table references a missing associated source")
			return ErrInconsistent.Msg("table " + t.Name + " references missing associated source " + t.AssociatedSourceID.String())
		}
	}
	return nil
}

// Snapshot returns the last committed catalog snapshot. Callers may hold it
// for as long as they like; it never mutates.
func (m *Manager) Snapshot() *Snapshot {
	return m.snap.Load()
}

// Broadcaster exposes the notification broadcaster for subscription wiring.
func (m *Manager) Broadcaster() *notifier.Broadcaster {
	return m.broadcaster
}

// objRef names an object for deletion.
type objRef struct {
	kind types.ObjectKind
	id   types.ObjectID
}

// txn accumulates one catalog transaction: the objects it upserts and
// deletes, the notification changes, and the dependency edge mutations to
// apply after a successful commit.
type txn struct {
	writes  []store.Write
	changes []notifier.Change
	puts    []catalog.Object
	removes []objRef

	edgeAdds    map[types.ObjectID][]types.ObjectID
	edgeRemoves []types.ObjectID
}

func newTxn() *txn {
	return &txn{edgeAdds: make(map[types.ObjectID][]types.ObjectID)}
}

func (t *txn) create(obj catalog.Object) apperrors.Error {
	w, err := store.WriteFor(obj)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, w)
	t.puts = append(t.puts, obj)
	t.changes = append(t.changes, notifier.Created(obj))
	if deps := obj.Dependencies(); len(deps) > 0 {
		t.edgeAdds[obj.GetID()] = deps
	}
	return nil
}

func (t *txn) alter(obj catalog.Object) apperrors.Error {
	w, err := store.WriteFor(obj)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, w)
	t.puts = append(t.puts, obj)
	t.changes = append(t.changes, notifier.Altered(obj))
	// Edge sets are replaced wholesale on alter.
	t.edgeRemoves = append(t.edgeRemoves, obj.GetID())
	if deps := obj.Dependencies(); len(deps) > 0 {
		t.edgeAdds[obj.GetID()] = deps
	}
	return nil
}

func (t *txn) drop(kind types.ObjectKind, id types.ObjectID) {
	t.writes = append(t.writes, store.TombstoneFor(kind, id))
	t.removes = append(t.removes, objRef{kind, id})
	t.changes = append(t.changes, notifier.Dropped(kind, id))
	t.edgeRemoves = append(t.edgeRemoves, id)
}

// apply commits the transaction. Called under m.mu. On store failure the
// whole transaction aborts with no partial visibility; the caller rolls back
// any id allocations it made. On success the dependency edges are updated,
// the delta is published with the next catalog version, and the new snapshot
// is swapped in for readers.
func (m *Manager) apply(ctx context.Context, t *txn) apperrors.Error {
	if err := m.store.Commit(ctx, t.writes); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("catalog commit aborted")
		return ErrStoreUnavailable.Err(err)
	}

	next := m.snap.Load().clone()
	for _, obj := range t.puts {
		next.put(obj)
	}
	for _, ref := range t.removes {
		next.remove(ref.kind, ref.id)
	}
	for _, id := range t.edgeRemoves {
		m.graph.Remove(id)
	}
	for id, refs := range t.edgeAdds {
		m.graph.AddEdges(id, refs)
	}

	next.version = m.broadcaster.Publish(ctx, t.changes...)
	m.snap.Store(next)
	return nil
}

// resolveSchema resolves a database/schema name pair against a snapshot.
func resolveSchema(snap *Snapshot, database, schema string) (*catalog.Database, *catalog.Schema, apperrors.Error) {
	db, ok := snap.GetDatabaseByName(database)
	if !ok {
		return nil, nil, ErrNotFound.Msg("database " + database + " does not exist")
	}
	sc, ok := snap.GetSchemaByName(db.ID, schema)
	if !ok {
		return nil, nil, ErrNotFound.Msg("schema " + database + "." + schema + " does not exist")
	}
	return db, sc, nil
}

// checkRelationsLive verifies every referenced relation id is live.
func checkRelationsLive(snap *Snapshot, refs []types.ObjectID) apperrors.Error {
	for _, id := range refs {
		if !snap.relationExists(id) {
			return ErrNotFound.Msg("dependent relation " + id.String() + " does not exist")
		}
	}
	return nil
}
