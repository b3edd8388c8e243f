package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_BasicSendReceive(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 5; i++ {
		require.True(t, q.Send(i))
	}
	assert.Equal(t, 5, q.Len())

	for i := 0; i < 5; i++ {
		val, ok := q.TryReceive()
		require.True(t, ok)
		assert.Equal(t, i, val)
	}
	assert.Equal(t, 0, q.Len())

	_, ok := q.TryReceive()
	assert.False(t, ok)
}

func TestQueue_GrowAt70Percent(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 7; i++ {
		q.Send(i)
	}

	stats := q.Stats()
	assert.Equal(t, 20, stats.Capacity)
	assert.Equal(t, 1, stats.ResizeCount)

	for i := 0; i < 7; i++ {
		val, ok := q.TryReceive()
		require.True(t, ok)
		assert.Equal(t, i, val)
	}
}

func TestQueue_MultipleGrows(t *testing.T) {
	q := NewQueue[int](4)

	for i := 0; i < 100; i++ {
		require.True(t, q.Send(i))
	}

	stats := q.Stats()
	assert.Equal(t, 100, stats.Count)
	assert.GreaterOrEqual(t, stats.ResizeCount, 3)

	assert.Equal(t, 100, len(q.DrainTo(0)))
}

func TestQueue_WrapAroundThenGrow(t *testing.T) {
	q := NewQueue[int](10)

	// Move head forward so the ring wraps before it grows.
	for i := 0; i < 5; i++ {
		q.Send(i)
	}
	for i := 0; i < 5; i++ {
		q.TryReceive()
	}
	for i := 0; i < 20; i++ {
		q.Send(100 + i)
	}

	got := q.DrainTo(0)
	require.Len(t, got, 20)
	for i, v := range got {
		assert.Equal(t, 100+i, v)
	}
}

func TestQueue_BlockingReceive(t *testing.T) {
	q := NewQueue[int](10)
	received := make(chan int, 1)

	go func() {
		if val, ok := q.Receive(context.Background()); ok {
			received <- val
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Send(42)

	select {
	case val := <-received:
		assert.Equal(t, 42, val)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for receive")
	}
}

func TestQueue_ReceiveHonorsContext(t *testing.T) {
	q := NewQueue[int](10)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := q.Receive(ctx)
	assert.False(t, ok)
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue[int](10)
	q.Send(1)
	q.Send(2)
	q.Close()
	q.Close()

	assert.False(t, q.Send(3))

	val, ok := q.Receive(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, val)
	val, ok = q.Receive(context.Background())
	require.True(t, ok)
	assert.Equal(t, 2, val)

	_, ok = q.Receive(context.Background())
	assert.False(t, ok)
}

func TestQueue_CloseUnblocksReceive(t *testing.T) {
	q := NewQueue[int](10)
	done := make(chan bool, 1)

	go func() {
		_, ok := q.Receive(context.Background())
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Receive")
	}
}

func TestQueue_DrainTo(t *testing.T) {
	q := NewQueue[int](10)
	for i := 0; i < 5; i++ {
		q.Send(i)
	}

	assert.Equal(t, []int{0, 1, 2}, q.DrainTo(3))
	assert.Equal(t, []int{3, 4}, q.DrainTo(10))
	assert.Nil(t, q.DrainTo(10))
}

func TestQueue_ConcurrentSendReceive(t *testing.T) {
	q := NewQueue[int](4)
	const producers, perProducer = 4, 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Send(i)
			}
		}()
	}

	var mu sync.Mutex
	total := 0
	var consumers sync.WaitGroup
	for c := 0; c < 3; c++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				if _, ok := q.Receive(context.Background()); !ok {
					return
				}
				mu.Lock()
				total++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	q.Close()
	consumers.Wait()

	assert.Equal(t, producers*perProducer, total)
	stats := q.Stats()
	assert.Equal(t, int64(producers*perProducer), stats.TotalReceived)
	assert.Equal(t, int64(producers*perProducer), stats.TotalSent)
}

func TestNewQueue_MinCapacity(t *testing.T) {
	q := NewQueue[int](0)
	assert.Equal(t, 1, q.Stats().Capacity)
	assert.True(t, q.Send(1))
	assert.Equal(t, 1, q.Len())
}
