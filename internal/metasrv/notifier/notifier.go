// Package notifier converts committed catalog deltas into an ordered stream
// of versioned events fanned out to registered observers. Publication is
// decoupled from delivery: each subscriber has its own buffered queue, and a
// subscriber that falls behind is cut off and must resynchronize from a full
// catalog snapshot rather than block the writer.
package notifier

import (
	"context"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"

	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/pkg/types"
)

// DeltaOp discriminates the catalog change kinds.
type DeltaOp string

const (
	OpCreated DeltaOp = "created"
	OpAltered DeltaOp = "altered"
	OpDropped DeltaOp = "dropped"
)

// Change is one object mutation. Object is nil for OpDropped; ObjectID and
// Kind are always set.
type Change struct {
	Op       DeltaOp          `json:"op"`
	Kind     types.ObjectKind `json:"kind"`
	ObjectID types.ObjectID   `json:"object_id"`
	Object   catalog.Object   `json:"object,omitempty"`
}

// Created builds the change for a newly committed object.
func Created(obj catalog.Object) Change {
	return Change{Op: OpCreated, Kind: obj.Kind(), ObjectID: obj.GetID(), Object: obj}
}

// Altered builds the change for a mutated object.
func Altered(obj catalog.Object) Change {
	return Change{Op: OpAltered, Kind: obj.Kind(), ObjectID: obj.GetID(), Object: obj}
}

// Dropped builds the change for a deleted object.
func Dropped(kind types.ObjectKind, id types.ObjectID) Change {
	return Change{Op: OpDropped, Kind: kind, ObjectID: id}
}

// Delta is the set of changes committed by one catalog transaction, stamped
// with the global catalog version that committed it. A transaction that
// touches several objects (a table and its coupled source, a database and
// its default schema) still produces exactly one delta. Delivery is
// at-least-once: subscribers apply deltas idempotently in version order, all
// changes of a delta as a unit.
type Delta struct {
	Version uint64   `json:"version"`
	Changes []Change `json:"changes"`
}

// Subscription is one observer's ordered view of the delta stream. C is
// closed when the subscription is cancelled or the subscriber lagged past
// its buffer; in the lagged case Lagged reports true and the subscriber must
// resync from a snapshot and resubscribe from its version.
type Subscription struct {
	ID string
	C  <-chan Delta

	b      *Broadcaster
	ch     chan Delta
	done   chan struct{}
	lagged bool
	closed bool
}

// Broadcaster assigns global catalog versions and fans committed deltas out
// to subscribers. Publish is called inside the catalog manager's serialized
// commit path, which is what makes the version counter increment by exactly
// one per committed transaction.
type Broadcaster struct {
	mu      sync.Mutex
	version uint64
	deltas  []Delta
	subs    map[string]*Subscription
	bufSize int
}

const defaultBufSize = 128

func New() *Broadcaster {
	return NewWithBuffer(defaultBufSize)
}

func NewWithBuffer(bufSize int) *Broadcaster {
	if bufSize < 1 {
		bufSize = 1
	}
	return &Broadcaster{
		subs:    make(map[string]*Subscription),
		bufSize: bufSize,
	}
}

// CurrentVersion returns the version of the last committed delta.
func (b *Broadcaster) CurrentVersion() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Publish stamps the changes with the next catalog version, appends the
// delta to the ordered log, and fans it out. A subscriber whose queue is
// full is marked lagged and cut off; publication never blocks on delivery.
// Returns the assigned version.
func (b *Broadcaster) Publish(ctx context.Context, changes ...Change) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.version++
	delta := Delta{Version: b.version, Changes: changes}
	b.deltas = append(b.deltas, delta)

	for id, sub := range b.subs {
		select {
		case sub.ch <- delta:
		default:
			log.Ctx(ctx).Warn().Str("subscriber", id).Uint64("version", delta.Version).
				Msg("subscriber lagged, cutting off for resync")
			sub.lagged = true
			sub.closed = true
			close(sub.ch)
			close(sub.done)
			delete(b.subs, id)
		}
	}
	return delta.Version
}

// Subscribe replays every delta after fromVersion, then continues with live
// deltas in commit order with no gaps or reordering. The subscription ends
// when ctx is done, Close is called, or the subscriber lags.
func (b *Broadcaster) Subscribe(ctx context.Context, fromVersion uint64) *Subscription {
	b.mu.Lock()
	var missed []Delta
	for _, d := range b.deltas {
		if d.Version > fromVersion {
			missed = append(missed, d)
		}
	}
	// The queue holds the whole replay suffix up front so registration and
	// replay happen atomically with respect to concurrent publishes.
	ch := make(chan Delta, len(missed)+b.bufSize)
	for _, d := range missed {
		ch <- d
	}

	id, err := gonanoid.New()
	if err != nil {
		// crypto/rand failure; fall back to a version-derived id.
		id = "sub-" + types.ObjectID(b.version).String()
	}
	sub := &Subscription{ID: id, C: ch, b: b, ch: ch, done: make(chan struct{})}
	b.subs[id] = sub
	b.mu.Unlock()

	// The watcher must not outlive the subscription: with a non-cancelable
	// context it would otherwise block on ctx.Done forever.
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub
}

// Lagged reports whether the subscription was cut off for falling behind.
func (s *Subscription) Lagged() bool {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return s.lagged
}

// Close unregisters the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
	close(s.done)
	delete(s.b.subs, s.ID)
}
