package macro_serv

import "sync"

// Ring keeps the last N log lines, oldest evicted first.
type Ring struct {
	mu    sync.RWMutex
	lines []string
	start int
	size  int
}

func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{lines: make([]string, capacity)}
}

func (r *Ring) Push(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < len(r.lines) {
		r.lines[(r.start+r.size)%len(r.lines)] = line
		r.size++
		return
	}
	r.lines[r.start] = line
	r.start = (r.start + 1) % len(r.lines)
}

// Snapshot returns the buffered lines in emission order.
func (r *Ring) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.lines[(r.start+i)%len(r.lines)]
	}
	return out
}

func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *Ring) Cap() int {
	return len(r.lines)
}
