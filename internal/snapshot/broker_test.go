package snapshot_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/planneredu/internal/snapshot"
)

func receive(t *testing.T, ch <-chan snapshot.Event) snapshot.Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return snapshot.Event{}
}

func assertNoEvent(t *testing.T, ch <-chan snapshot.Event) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("unexpected event: %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestFilter_Match(t *testing.T) {
	e := snapshot.NewEvent("u1", snapshot.CollectionLessons, snapshot.ActionCreated, "l1")

	assert.True(t, snapshot.Filter{UserID: "u1"}.Match(e))
	assert.True(t, snapshot.Filter{UserID: "u1", Collections: []snapshot.Collection{snapshot.CollectionLessons}}.Match(e))
	assert.False(t, snapshot.Filter{UserID: "u1", Collections: []snapshot.Collection{snapshot.CollectionComponents}}.Match(e))
	assert.False(t, snapshot.Filter{UserID: "u2"}.Match(e))
}

func TestMemoryBroker_DeliversOnlyMatchingEvents(t *testing.T) {
	b := snapshot.NewMemoryBroker(4)
	ctx := context.Background()

	mine, cancelMine := b.Subscribe(ctx, snapshot.Filter{UserID: "u1"})
	defer cancelMine()
	other, cancelOther := b.Subscribe(ctx, snapshot.Filter{UserID: "u2"})
	defer cancelOther()

	require.NoError(t, b.Publish(ctx, snapshot.NewEvent("u1", snapshot.CollectionComponents, snapshot.ActionUpdated, "c1")))

	got := receive(t, mine)
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, snapshot.ActionUpdated, got.Action)
	assertNoEvent(t, other)
}

func TestMemoryBroker_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := snapshot.NewMemoryBroker(1)
	ctx := context.Background()

	ch, cancel := b.Subscribe(ctx, snapshot.Filter{UserID: "u1"})
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = b.Publish(ctx, snapshot.NewEvent("u1", snapshot.CollectionLessons, snapshot.ActionCreated, "l"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	receive(t, ch)
	assert.Equal(t, int64(9), b.Dropped())
}

func TestMemoryBroker_CancelClosesChannel(t *testing.T) {
	b := snapshot.NewMemoryBroker(1)

	ch, cancel := b.Subscribe(context.Background(), snapshot.Filter{UserID: "u1"})
	require.Equal(t, 1, b.SubscriberCount())

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.SubscriberCount())
	assert.NoError(t, b.Publish(context.Background(), snapshot.NewEvent("u1", snapshot.CollectionLessons, snapshot.ActionDeleted, "l1")))
}

func TestMemoryBroker_ContextCancelUnsubscribes(t *testing.T) {
	b := snapshot.NewMemoryBroker(1)
	ctx, cancelCtx := context.WithCancel(context.Background())

	ch, cancel := b.Subscribe(ctx, snapshot.Filter{UserID: "u1"})
	defer cancel()

	cancelCtx()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestMemoryBroker_ConcurrentPublishAndCancel(t *testing.T) {
	b := snapshot.NewMemoryBroker(8)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		ch, cancel := b.Subscribe(ctx, snapshot.Filter{UserID: "u1"})
		go func() {
			defer wg.Done()
			for range ch {
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = b.Publish(ctx, snapshot.NewEvent("u1", snapshot.CollectionResources, snapshot.ActionCreated, "r"))
			}
			cancel()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, b.SubscriberCount())
}

func TestNopPublisher(t *testing.T) {
	var p snapshot.Publisher = snapshot.NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), snapshot.Event{}))
}
