package fatalerr

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDropsWhenFull(t *testing.T) {
	c := New()
	c.Publish(errors.New("first"))
	c.Publish(errors.New("second")) // dropped, queue already full

	select {
	case err := <-c.ch:
		assert.Equal(t, "first", err.Error())
	default:
		t.Fatal("expected the first error to be queued")
	}
}

func TestDrainDiscardsStaleError(t *testing.T) {
	c := New()
	c.Publish(errors.New("stale"))
	c.Drain()

	select {
	case <-c.ch:
		t.Fatal("expected the channel to be empty after Drain")
	default:
	}
}

// TestIdempotentFatalLatch verifies the "idempotent fatal latch" property:
// concurrently publishing k distinct errors results in exactly one latched
// value.
func TestIdempotentFatalLatch(t *testing.T) {
	c := New()
	tw := NewTripwire()

	var wg sync.WaitGroup
	done := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		done <- AwaitAndLatch(c, tw)
	}()

	// Only one of these will actually land in the capacity-1 channel; the
	// rest are dropped by Publish. AwaitAndLatch only ever reads one value.
	for i := 0; i < 8; i++ {
		c.Publish(errors.New("err"))
	}

	wg.Wait()
	latched := <-done

	require.True(t, tw.Tripped())
	assert.Equal(t, latched, tw.Err())
}

func TestTripwireUntrippedByDefault(t *testing.T) {
	tw := NewTripwire()
	assert.False(t, tw.Tripped())
	assert.Nil(t, tw.Err())
}

func TestAwaitAndLatchBlocksUntilPublish(t *testing.T) {
	c := New()
	tw := NewTripwire()

	result := make(chan error, 1)
	go func() { result <- AwaitAndLatch(c, tw) }()

	select {
	case <-result:
		t.Fatal("AwaitAndLatch returned before any error was published")
	case <-time.After(20 * time.Millisecond):
	}

	c.Publish(errors.New("boom"))

	select {
	case err := <-result:
		assert.EqualError(t, err, "boom")
	case <-time.After(time.Second):
		t.Fatal("AwaitAndLatch did not unblock after Publish")
	}
}
