package depthbook

import (
	"sync"

	"github.com/0x5487/depthbook/structure"
)

// Replay records forwarded snapshots into a bounded history and decides which
// snapshot is active: the live tail, or the frame under the cursor while paused.
//
// Record is called by a single producer; every other method may be called from any
// goroutine. A reader never observes a half-applied append.
type Replay struct {
	mu      sync.RWMutex
	history *structure.Ring[HistoryFrame]
	live    *BookSnapshot
	paused  bool
	cursor  int // CursorLive, or an index into history
}

// NewReplay creates a controller keeping at most capacity frames.
func NewReplay(capacity int) *Replay {
	if capacity <= 0 {
		capacity = MaxHistory
	}

	return &Replay{
		history: structure.NewRing[HistoryFrame](capacity),
		cursor:  CursorLive,
	}
}

// Record appends snap as the newest frame and makes it the live snapshot.
// While paused, the cursor is renumbered so it keeps pointing at the same frame;
// if that frame itself was evicted it is clamped to the oldest remaining one.
func (r *Replay) Record(snap *BookSnapshot) {
	if snap == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := r.history.Push(HistoryFrame{
		Timestamp: snap.Timestamp,
		Snapshot:  snap,
	})
	r.live = snap

	if !r.paused {
		return
	}

	if r.cursor == CursorLive {
		// paused before any frame existed: pin to the first one recorded
		r.cursor = r.history.Len() - 1
		return
	}

	if evicted && r.cursor > 0 {
		r.cursor--
	}
}

// Pause freezes the cursor at the most recent frame. Later records keep
// accumulating but do not move the cursor. Pausing twice is a no-op.
func (r *Replay) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		return
	}

	r.paused = true
	r.cursor = r.history.Len() - 1 // CursorLive when empty
}

// Resume returns to live mode.
func (r *Replay) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.paused = false
	r.cursor = CursorLive
}

// Scrub moves the cursor to index, clamped to [0, len-1], and enters paused mode.
// It is a no-op while the history is empty.
func (r *Replay) Scrub(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.history.Len()
	if n == 0 {
		return
	}

	if index < 0 {
		index = 0
	} else if index > n-1 {
		index = n - 1
	}

	r.paused = true
	r.cursor = index
}

// Reset clears the history and the live snapshot and returns to live mode.
func (r *Replay) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history.Clear()
	r.live = nil
	r.paused = false
	r.cursor = CursorLive
}

// Active returns the snapshot consumers should display. It is nil before the
// first snapshot arrives.
func (r *Replay) Active() *BookSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.paused && r.cursor != CursorLive {
		if frame, ok := r.history.At(r.cursor); ok {
			return frame.Snapshot
		}
	}
	return r.live
}

// Live returns the most recently recorded snapshot regardless of the cursor.
func (r *Replay) Live() *BookSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.live
}

// History returns a copy of the recorded frames, oldest first.
func (r *Replay) History() []HistoryFrame {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.history.Slice()
}

// Len returns the number of recorded frames.
func (r *Replay) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.history.Len()
}

// IsPaused reports whether the replay is pinned to a historical frame.
func (r *Replay) IsPaused() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.paused
}

// Cursor returns the pinned index, or CursorLive.
func (r *Replay) Cursor() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.cursor
}
