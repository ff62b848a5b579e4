package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhouse/streamhouse/internal/metasrv/catalog"
	"github.com/streamhouse/streamhouse/pkg/types"
)

func publishN(b *Broadcaster, n int) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		b.Publish(ctx, Created(&catalog.Table{ID: types.ObjectID(i + 1), Name: "t"}))
	}
}

func TestPublishAssignsContiguousVersions(t *testing.T) {
	b := New()
	ctx := context.Background()
	v1 := b.Publish(ctx, Created(&catalog.Table{ID: 1, Name: "t1"}))
	v2 := b.Publish(ctx, Dropped(types.KindTable, 1))
	assert.Equal(t, uint64(1), v1)
	assert.Equal(t, uint64(2), v2)
	assert.Equal(t, uint64(2), b.CurrentVersion())
}

func TestMultiChangeTransactionIsOneDelta(t *testing.T) {
	b := New()
	table := &catalog.Table{ID: 1, Name: "s"}
	source := &catalog.Source{ID: 2, Name: "s"}
	v := b.Publish(context.Background(), Created(table), Created(source))
	assert.Equal(t, uint64(1), v)

	sub := b.Subscribe(context.Background(), 0)
	defer sub.Close()
	d := <-sub.C
	require.Len(t, d.Changes, 2)
	assert.Equal(t, types.KindTable, d.Changes[0].Kind)
	assert.Equal(t, types.KindSource, d.Changes[1].Kind)
}

func TestSubscribeReplaysMissedSuffix(t *testing.T) {
	b := New()
	publishN(b, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := b.Subscribe(ctx, 2)
	defer sub.Close()

	// Deltas 3, 4, 5 were missed and must arrive first, in order.
	for want := uint64(3); want <= 5; want++ {
		d := <-sub.C
		assert.Equal(t, want, d.Version)
	}

	// Live deltas continue the sequence with no gap.
	b.Publish(context.Background(), Created(&catalog.View{ID: 9, Name: "v"}))
	d := <-sub.C
	assert.Equal(t, uint64(6), d.Version)
	assert.Equal(t, types.KindView, d.Changes[0].Kind)
}

func TestResumeAfterDisconnect(t *testing.T) {
	b := New()
	publishN(b, 3)

	ctx := context.Background()
	sub := b.Subscribe(ctx, 0)
	var last uint64
	for i := 0; i < 2; i++ {
		d := <-sub.C
		last = d.Version
	}
	sub.Close()

	publishN(b, 2)

	// Resuming from the last applied version yields exactly the
	// commit-ordered suffix, no gaps, no reordering.
	resumed := b.Subscribe(ctx, last)
	defer resumed.Close()
	for want := last + 1; want <= 5; want++ {
		d := <-resumed.C
		assert.Equal(t, want, d.Version)
	}
}

func TestLaggedSubscriberIsCutOff(t *testing.T) {
	b := NewWithBuffer(2)
	ctx := context.Background()
	sub := b.Subscribe(ctx, 0)

	// Fill the buffer and one more; the overflow publish must not block and
	// must cut the subscriber off.
	publishN(b, 3)

	var received int
	for range sub.C {
		received++
	}
	assert.Equal(t, 2, received)
	assert.True(t, sub.Lagged())

	// The writer was never blocked: all versions were assigned.
	assert.Equal(t, uint64(3), b.CurrentVersion())
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	b := New()
	sub := b.Subscribe(context.Background(), 0)
	sub.Close()
	sub.Close()
	_, ok := <-sub.C
	require.False(t, ok)
}

func TestCloseReleasesContextWatcher(t *testing.T) {
	b := New()

	// Background contexts are never done, so the watcher must be released by
	// Close itself rather than by cancellation.
	sub := b.Subscribe(context.Background(), 0)
	sub.Close()
	select {
	case <-sub.done:
	case <-time.After(time.Second):
		t.Fatal("subscription done channel not closed after Close")
	}

	// A lag cutoff releases the watcher the same way.
	b2 := NewWithBuffer(1)
	lagging := b2.Subscribe(context.Background(), 0)
	publishN(b2, 2)
	select {
	case <-lagging.done:
	case <-time.After(time.Second):
		t.Fatal("subscription done channel not closed after lag cutoff")
	}
	assert.True(t, lagging.Lagged())
}
