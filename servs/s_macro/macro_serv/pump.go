package macro_serv

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PumpOptions size the pump.
type PumpOptions struct {
	BufferSize   int           // ring buffer lines
	QueueSize    int           // per-subscriber mailbox
	PollInterval time.Duration // receive timeout between liveness checks
}

func (o *PumpOptions) applyDefaults() {
	if o.BufferSize <= 0 {
		o.BufferSize = 500
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1000
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
}

// LogPump moves worker output into the ring buffer and out to live viewers.
// It lives as long as the server; each run attaches its own log channel.
type LogPump struct {
	log  zerolog.Logger
	opts PumpOptions
	ring *Ring

	mu   sync.RWMutex
	subs map[string]*Subscriber

	wg      sync.WaitGroup
	closing chan struct{}
	once    sync.Once
}

func NewLogPump(log zerolog.Logger, opts PumpOptions) *LogPump {
	opts.applyDefaults()
	return &LogPump{
		log:     log,
		opts:    opts,
		ring:    NewRing(opts.BufferSize),
		subs:    make(map[string]*Subscriber),
		closing: make(chan struct{}),
	}
}

//---------------------
// Producers
//---------------------

// Attach starts draining src in the background. The goroutine ends when src is
// closed, when the pump is closed, or once alive reports false and src is empty.
func (p *LogPump) Attach(src *Channel[string], alive func() bool) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.drain(src, alive)
	}()
}

func (p *LogPump) drain(src *Channel[string], alive func() bool) {
	for {
		select {
		case <-p.closing:
			return
		default:
		}

		line, ok, closed := src.RecvTimeout(p.opts.PollInterval)
		switch {
		case closed:
			p.log.Debug().Msg("log channel closed")
			return
		case ok:
			p.Publish(line)
		case !alive():
			for _, rest := range src.Drain() {
				p.Publish(rest)
			}
			p.log.Debug().Msg("worker gone, log pump done")
			return
		}
	}
}

// Publish buffers a line and hands it to every subscriber without blocking.
func (p *LogPump) Publish(line string) {
	p.ring.Push(line)
	for _, s := range p.snapshot() {
		s.deliver(line)
	}
}

// snapshot copies the subscriber set so delivery never holds the lock.
func (p *LogPump) snapshot() []*Subscriber {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Subscriber, 0, len(p.subs))
	for _, s := range p.subs {
		out = append(out, s)
	}
	return out
}

//---------------------
// Consumers
//---------------------

// Lines returns the buffered history, oldest first.
func (p *LogPump) Lines() []string {
	return p.ring.Snapshot()
}

// Subscribe registers a live viewer. Call Unsubscribe when it disconnects.
func (p *LogPump) Subscribe() *Subscriber {
	s := newSubscriber(p.opts.QueueSize)
	p.mu.Lock()
	select {
	case <-p.closing:
		s.close()
	default:
		p.subs[s.ID] = s
	}
	p.mu.Unlock()
	return s
}

func (p *LogPump) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	p.mu.Lock()
	delete(p.subs, s.ID)
	p.mu.Unlock()
	s.close()
}

// Subscribers returns the number of live viewers.
func (p *LogPump) Subscribers() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

//---------------------
// Lifecycle
//---------------------

// Wait blocks until every attached drain goroutine has returned.
func (p *LogPump) Wait() {
	p.wg.Wait()
}

// Close stops the drain goroutines and releases all subscribers.
func (p *LogPump) Close() {
	p.once.Do(func() {
		close(p.closing)
		p.mu.Lock()
		for id, s := range p.subs {
			s.close()
			delete(p.subs, id)
		}
		p.mu.Unlock()
	})
	p.wg.Wait()
}
