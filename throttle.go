package depthbook

import (
	"sync"
	"sync/atomic"
	"time"
)

// Throttle forwards at most one snapshot per interval. Policy is latest-wins:
// snapshots offered within the same interval replace each other and only the most
// recent one is forwarded when the interval elapses. Nothing is queued.
type Throttle struct {
	interval time.Duration
	forward  func(*BookSnapshot)
	pending  atomic.Pointer[BookSnapshot]

	mu        sync.Mutex // serializes forward against Stop
	isStarted bool
	isStopped bool
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewThrottle creates a throttle calling forward from its own goroutine.
// An interval <= 0 makes Offer forward synchronously.
func NewThrottle(interval time.Duration, forward func(*BookSnapshot)) *Throttle {
	return &Throttle{
		interval: interval,
		forward:  forward,
		done:     make(chan struct{}),
	}
}

// Offer makes snap the pending snapshot, replacing any snapshot not yet forwarded.
func (t *Throttle) Offer(snap *BookSnapshot) {
	if snap == nil {
		return
	}

	if t.interval <= 0 {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !t.isStopped {
			t.forward(snap)
		}
		return
	}

	t.pending.Store(snap)
}

// Start launches the ticking goroutine. Calling it more than once is a no-op.
func (t *Throttle) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isStarted || t.isStopped || t.interval <= 0 {
		return
	}
	t.isStarted = true

	t.wg.Add(1)
	go t.loop()
}

// Stop halts the throttle and discards anything pending. Once Stop returns,
// forward is never called again.
func (t *Throttle) Stop() {
	t.mu.Lock()
	if t.isStopped {
		t.mu.Unlock()
		return
	}
	t.isStopped = true
	close(t.done)
	t.pending.Store(nil)
	t.mu.Unlock()

	t.wg.Wait()
}

// Discard drops the pending snapshot without stopping the throttle.
// A forward already in progress completes before Discard returns.
func (t *Throttle) Discard() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending.Store(nil)
}

// flush forwards the pending snapshot immediately and reports whether there was one.
// Only the ticking goroutine calls it, which keeps forwarding to one snapshot per interval.
func (t *Throttle) flush() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isStopped {
		return false
	}

	snap := t.pending.Swap(nil)
	if snap == nil {
		return false
	}

	t.forward(snap)
	return true
}

func (t *Throttle) loop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.flush()
		}
	}
}
