package client

import (
	"sync"
	"time"

	"noveldesk/internal/novel"
)

// debouncer collapses a burst of schedule calls into a single trailing fire.
// It is a small explicit state machine over {pending, timer}: schedule
// replaces both, flush fires whatever is pending right now, cancel drops it.
// The generation counter makes an already-expired timer harmless after a
// newer schedule, flush, or cancel has superseded it.
type debouncer struct {
	window time.Duration
	fire   func(*novel.DocumentTree)

	mu      sync.Mutex
	pending *novel.DocumentTree
	timer   *time.Timer
	gen     uint64
}

func newDebouncer(window time.Duration, fire func(*novel.DocumentTree)) *debouncer {
	return &debouncer{window: window, fire: fire}
}

func (d *debouncer) schedule(tree *novel.DocumentTree) {
	d.mu.Lock()
	d.pending = tree
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.expire(gen) })
	d.mu.Unlock()
}

func (d *debouncer) expire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	tree := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	d.fire(tree)
}

// flush fires the pending tree immediately, if there is one.
func (d *debouncer) flush() {
	d.mu.Lock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	tree := d.pending
	d.pending = nil
	d.mu.Unlock()
	if tree != nil {
		d.fire(tree)
	}
}

func (d *debouncer) cancel() {
	d.mu.Lock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	d.mu.Unlock()
}
