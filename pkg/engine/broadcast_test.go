package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterFanOut(t *testing.T) {
	b := NewBroadcaster()
	a := b.Subscribe(4)
	c := b.Subscribe(4)

	b.Publish(Event{Type: EventDispatched, IndividualID: 7})
	b.Close()

	for _, ch := range []<-chan Event{a, c} {
		ev, ok := <-ch
		require.True(t, ok)
		assert.Equal(t, EventDispatched, ev.Type)
		assert.Equal(t, uint64(7), ev.IndividualID)
		_, ok = <-ch
		assert.False(t, ok, "channel must be closed after Close")
	}
}

func TestBroadcasterDropsOldestWhenFull(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe(2)

	for i := uint64(1); i <= 5; i++ {
		b.Publish(Event{IndividualID: i})
	}
	b.Close()

	var got []uint64
	for ev := range ch {
		got = append(got, ev.IndividualID)
	}
	assert.Equal(t, []uint64{4, 5}, got, "newest events survive, oldest are dropped")
}

func TestBroadcasterPublishNeverBlocks(t *testing.T) {
	b := NewBroadcaster()
	b.Subscribe(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(Event{IndividualID: uint64(i)})
		}
		close(done)
	}()
	<-done
	b.Close()
}

func TestBroadcasterSubscribeAfterClose(t *testing.T) {
	b := NewBroadcaster()
	b.Close()

	ch := b.Subscribe(1)
	_, ok := <-ch
	assert.False(t, ok)

	// Publishing and closing again are no-ops.
	b.Publish(Event{})
	b.Close()
}

func TestBroadcasterMinimumBuffer(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe(0)
	b.Publish(Event{IndividualID: 1})
	b.Close()

	ev, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, uint64(1), ev.IndividualID)
}
