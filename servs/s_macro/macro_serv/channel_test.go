package macro_serv

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelTryRecv(t *testing.T) {
	c := NewChannel[int](4)

	_, ok, closed := c.TryRecv()
	assert.False(t, ok)
	assert.False(t, closed)

	require.True(t, c.Send(7))
	v, ok, closed := c.TryRecv()
	assert.True(t, ok)
	assert.False(t, closed)
	assert.Equal(t, 7, v)
}

func TestChannelRecvTimeout(t *testing.T) {
	c := NewChannel[string](1)

	start := time.Now()
	_, ok, closed := c.RecvTimeout(20 * time.Millisecond)
	assert.False(t, ok)
	assert.False(t, closed)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	go func() {
		time.Sleep(5 * time.Millisecond)
		c.Send("late")
	}()
	v, ok, _ := c.RecvTimeout(time.Second)
	assert.True(t, ok)
	assert.Equal(t, "late", v)
}

func TestChannelCloseKeepsQueued(t *testing.T) {
	c := NewChannel[int](4)
	c.Send(1)
	c.Send(2)
	c.Close()
	c.Close()

	assert.False(t, c.Send(3), "send after close")
	assert.Equal(t, []int{1, 2}, c.Drain())

	_, ok, closed := c.TryRecv()
	assert.False(t, ok)
	assert.True(t, closed)

	_, ok, closed = c.RecvTimeout(time.Second)
	assert.False(t, ok)
	assert.True(t, closed)
}

func TestChannelCloseUnblocksSenders(t *testing.T) {
	c := NewChannel[int](1)
	c.Send(0)

	done := make(chan bool)
	go func() { done <- c.Send(1) }()

	time.Sleep(10 * time.Millisecond)
	c.Close()
	select {
	case sent := <-done:
		assert.False(t, sent)
	case <-time.After(time.Second):
		t.Fatal("sender still blocked")
	}
}

func TestChannelManyProducers(t *testing.T) {
	c := NewChannel[string](256)
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				c.Send(fmt.Sprintf("%d-%d", p, i))
			}
		}()
	}
	wg.Wait()
	assert.Len(t, c.Drain(), 200)
}

func TestRingBound(t *testing.T) {
	r := NewRing(500)
	for i := 0; i <= 500; i++ {
		r.Push(fmt.Sprintf("line-%d", i))
	}
	lines := r.Snapshot()
	require.Len(t, lines, 500)
	assert.Equal(t, "line-1", lines[0])
	assert.Equal(t, "line-500", lines[499])
	assert.Equal(t, 500, r.Cap())
}

func TestRingPartial(t *testing.T) {
	r := NewRing(3)
	assert.Empty(t, r.Snapshot())
	r.Push("a")
	r.Push("b")
	assert.Equal(t, []string{"a", "b"}, r.Snapshot())
	r.Push("c")
	r.Push("d")
	assert.Equal(t, []string{"b", "c", "d"}, r.Snapshot())
	assert.Equal(t, 3, r.Len())
}
