package depthbook

import "sync"

// PublishSnapshot is an interface for pushing throttled book snapshots to consumers.
//
// Snapshots are immutable and shared with the replay history, so implementations
// may keep references without copying. Publish is called from the throttle
// goroutine and must not block for long.
type PublishSnapshot interface {
	Publish(...*BookSnapshot)
}

// MemoryPublishSnapshot stores snapshots in memory, useful for testing.
// It keeps the published pointers as is: a BookSnapshot is never mutated after
// Apply returns, so a copy would only duplicate the level slices.
type MemoryPublishSnapshot struct {
	mu    sync.RWMutex
	Books []*BookSnapshot
}

// NewMemoryPublishSnapshot creates a new MemoryPublishSnapshot.
func NewMemoryPublishSnapshot() *MemoryPublishSnapshot {
	return &MemoryPublishSnapshot{
		Books: make([]*BookSnapshot, 0),
	}
}

// Publish appends snapshots to the in-memory slice.
func (m *MemoryPublishSnapshot) Publish(snaps ...*BookSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Books = append(m.Books, snaps...)
}

// Count returns the number of snapshots stored.
func (m *MemoryPublishSnapshot) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Books)
}

// Get returns the snapshot at the specified index.
func (m *MemoryPublishSnapshot) Get(index int) *BookSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.Books[index]
}

// Snapshots returns a copy of all snapshots stored.
func (m *MemoryPublishSnapshot) Snapshots() []*BookSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	books := make([]*BookSnapshot, len(m.Books))
	copy(books, m.Books)
	return books
}

// DiscardPublishSnapshot discards all snapshots, useful when consumers only poll Active.
type DiscardPublishSnapshot struct {
}

// NewDiscardPublishSnapshot creates a new DiscardPublishSnapshot.
func NewDiscardPublishSnapshot() *DiscardPublishSnapshot {
	return &DiscardPublishSnapshot{}
}

// Publish does nothing.
func (p *DiscardPublishSnapshot) Publish(...*BookSnapshot) {}

// ChannelPublishSnapshot delivers snapshots on a buffered channel.
// When the consumer falls behind the snapshot is dropped instead of blocking the throttle.
type ChannelPublishSnapshot struct {
	ch      chan *BookSnapshot
	mu      sync.Mutex
	dropped uint64
}

// NewChannelPublishSnapshot creates a channel sink with the given buffer size.
func NewChannelPublishSnapshot(size int) *ChannelPublishSnapshot {
	if size <= 0 {
		size = 1
	}
	return &ChannelPublishSnapshot{
		ch: make(chan *BookSnapshot, size),
	}
}

// Publish sends each snapshot without blocking.
func (c *ChannelPublishSnapshot) Publish(snaps ...*BookSnapshot) {
	for _, snap := range snaps {
		select {
		case c.ch <- snap:
		default:
			c.mu.Lock()
			c.dropped++
			c.mu.Unlock()
		}
	}
}

// C returns the receive side of the channel.
func (c *ChannelPublishSnapshot) C() <-chan *BookSnapshot {
	return c.ch
}

// Dropped returns how many snapshots were discarded because the buffer was full.
func (c *ChannelPublishSnapshot) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
