package observe

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellSubscribeSeesCurrentThenLatest(t *testing.T) {
	c := NewCell(0.0)
	ch, cancel := c.Subscribe()
	defer cancel()

	assert.Equal(t, 0.0, <-ch)

	c.Set(0.25)
	c.Set(0.5)
	c.Set(0.75)

	assert.Equal(t, 0.75, <-ch)
	assert.Equal(t, 0.75, c.Get())
	select {
	case v := <-ch:
		t.Fatalf("unexpected queued value %v", v)
	default:
	}
}

func TestCellCancelStopsDelivery(t *testing.T) {
	c := NewCell("")
	ch, cancel := c.Subscribe()
	<-ch
	cancel()
	cancel()

	c.Set("after")
	v, ok := <-ch
	assert.False(t, ok, "cancel closes the channel")
	assert.Empty(t, v)
}

func TestCellCancelEndsRange(t *testing.T) {
	c := NewCell(0)
	ch, cancel := c.Subscribe()

	done := make(chan int)
	go func() {
		n := 0
		for range ch {
			n++
		}
		done <- n
	}()

	c.Set(1)
	cancel()
	select {
	case n := <-done:
		assert.GreaterOrEqual(t, n, 1)
	case <-time.After(time.Second):
		t.Fatal("range over a cancelled subscription did not end")
	}
}

func TestLogRingNewestFirst(t *testing.T) {
	r := NewLogRing(3)
	r.Add("a")
	r.Add("b")
	assert.Equal(t, []string{"b", "a"}, r.Entries())
}

func TestLogRingDropsOldest(t *testing.T) {
	r := NewLogRing(DefaultLogCapacity)
	for i := 0; i < DefaultLogCapacity+5; i++ {
		r.Add(fmt.Sprintf("entry-%d", i))
	}
	entries := r.Entries()
	require.Len(t, entries, DefaultLogCapacity)
	assert.Equal(t, fmt.Sprintf("entry-%d", DefaultLogCapacity+4), entries[0])
	assert.Equal(t, "entry-5", entries[len(entries)-1])
}
