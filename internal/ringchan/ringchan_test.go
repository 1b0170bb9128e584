package ringchan_test

import (
	"sync"
	"testing"

	"github.com/srg/blehub/internal/ringchan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingOverwritesOldest(t *testing.T) {
	r := ringchan.New[int](3)
	for i := 0; i < 5; i++ {
		r.Push(i)
	}

	var got []int
	for {
		v, ok := r.Poll()
		if !ok {
			break
		}
		got = append(got, v)
	}

	assert.Equal(t, []int{2, 3, 4}, got)
	pushed, dropped, polled := r.Counters()
	assert.Equal(t, int64(5), pushed)
	assert.Equal(t, int64(2), dropped)
	assert.Equal(t, int64(3), polled)
}

func TestRingDrain(t *testing.T) {
	r := ringchan.New[string](4)
	r.Push("a")
	r.Push("b")

	assert.Equal(t, 2, r.Drain())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 4, r.Cap())
	_, ok := r.Poll()
	assert.False(t, ok)
}

func TestRingConcurrentProducers(t *testing.T) {
	// GOAL: Verify producers never block and the ring never exceeds capacity
	//
	// TEST SCENARIO: 8 goroutines push 1000 values each while the consumer polls → all pushes return

	r := ringchan.New[int](16)
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				r.Push(i)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	polled := 0
	for finished := false; !finished; {
		select {
		case <-done:
			finished = true
		default:
			if _, ok := r.Poll(); ok {
				polled++
			}
		}
		require.LessOrEqual(t, r.Len(), r.Cap())
	}

	pushed, dropped, _ := r.Counters()
	assert.Equal(t, int64(8000), pushed)
	assert.Equal(t, pushed, dropped+int64(polled)+int64(r.Len()))
}

func TestNewPanicsOnZeroCapacity(t *testing.T) {
	require.Panics(t, func() { ringchan.New[int](0) })
}
