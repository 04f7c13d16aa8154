package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_FullThenPopFreesOneSlot(t *testing.T) {
	b := New[int](4)

	for i := 0; i < 4; i++ {
		require.True(t, b.TryPush(i), "push %d should succeed while not full", i)
	}
	assert.False(t, b.TryPush(99), "push into a full buffer must fail")

	v, ok := b.TryPop()
	require.True(t, ok)
	assert.Equal(t, 0, v)

	assert.True(t, b.TryPush(99), "push should succeed again after one pop")
}

func TestBuffer_EmptyPopFails(t *testing.T) {
	b := New[string](2)
	_, ok := b.TryPop()
	assert.False(t, ok)
	assert.True(t, b.IsEmpty())
}

func TestBuffer_CapacityIsNMinusOne(t *testing.T) {
	b := New[int](8)
	assert.Equal(t, 8, b.Capacity())
}

// TestBuffer_SPSCOrdering exercises the documented concurrency contract:
// one producer, one consumer, items come out in push order and no dropped
// push is ever observed by the consumer.
func TestBuffer_SPSCOrdering(t *testing.T) {
	const n = 200_000
	b := New[int](256)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !b.TryPush(i) {
				// real-time path would drop; the test retries to get full coverage
			}
		}
	}()

	got := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(got) < n {
			if v, ok := b.TryPop(); ok {
				got = append(got, v)
			}
		}
	}()

	wg.Wait()
	for i, v := range got {
		require.Equal(t, i, v, "items must be dequeued in the exact order pushed")
	}
}

func TestBuffer_Size(t *testing.T) {
	b := New[int](4)
	assert.Equal(t, 0, b.Size())
	b.TryPush(1)
	b.TryPush(2)
	assert.Equal(t, 2, b.Size())
	b.TryPop()
	assert.Equal(t, 1, b.Size())
}
