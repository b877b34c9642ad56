package macro_serv

import (
	"sync"
	"sync/atomic"

	"github.com/nats-io/nuid"
)

// Subscriber is one live log viewer. The pump writes into its mailbox without
// blocking; the viewer goroutine is the only reader.
type Subscriber struct {
	ID string

	mailbox chan string
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

func newSubscriber(queue int) *Subscriber {
	if queue < 1 {
		queue = 1
	}
	return &Subscriber{
		ID:      nuid.Next(),
		mailbox: make(chan string, queue),
		done:    make(chan struct{}),
	}
}

// C delivers lines. It is never closed; watch Done instead.
func (s *Subscriber) C() <-chan string { return s.mailbox }

// Done is closed when the subscriber is removed from the pump.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Dropped counts lines lost to a full mailbox.
func (s *Subscriber) Dropped() uint64 { return s.dropped.Load() }

// deliver never blocks. A full mailbox loses this line only.
func (s *Subscriber) deliver(line string) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.mailbox <- line:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.done) })
}
