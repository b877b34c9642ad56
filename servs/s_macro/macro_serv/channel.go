package macro_serv

import (
	"sync"
	"time"
)

// Channel is a one-way queue between a worker and its single consumer.
// Any number of goroutines may Send; Close marks the end of the stream.
type Channel[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
	mu   sync.RWMutex
}

// NewChannel returns a channel that buffers up to size values.
func NewChannel[T any](size int) *Channel[T] {
	if size < 1 {
		size = 1
	}
	return &Channel[T]{
		ch:   make(chan T, size),
		done: make(chan struct{}),
	}
}

// Send blocks while the buffer is full. It returns false once the channel is closed.
func (c *Channel[T]) Send(v T) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.ch <- v:
		return true
	case <-c.done:
		return false
	}
}

// Close stops producers. Values already queued can still be received.
func (c *Channel[T]) Close() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		close(c.ch)
		c.mu.Unlock()
	})
}

// TryRecv returns immediately. closed is true once the channel is closed and drained.
func (c *Channel[T]) TryRecv() (v T, ok bool, closed bool) {
	select {
	case v, ok = <-c.ch:
		return v, ok, !ok
	default:
		return v, false, false
	}
}

// RecvTimeout waits up to d for a value.
func (c *Channel[T]) RecvTimeout(d time.Duration) (v T, ok bool, closed bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case v, ok = <-c.ch:
		return v, ok, !ok
	case <-t.C:
		return v, false, false
	}
}

// Drain returns everything queued right now without waiting.
func (c *Channel[T]) Drain() []T {
	var out []T
	for {
		v, ok, _ := c.TryRecv()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}
