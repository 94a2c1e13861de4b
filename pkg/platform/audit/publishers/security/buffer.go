package security

import (
	"sync"

	audit "ingestgate/pkg/platform/audit"
)

// RingBuffer is a bounded FIFO of pending security events. When full, the
// oldest pending event is overwritten.
type RingBuffer struct {
	mu      sync.Mutex
	slots   []audit.SecurityEvent
	next    int // write cursor
	oldest  int // read cursor
	size    int
	dropped int64
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingBuffer{slots: make([]audit.SecurityEvent, capacity)}
}

// Push appends an event and reports whether an older event was overwritten.
func (b *RingBuffer) Push(event audit.SecurityEvent) (overwrote bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == len(b.slots) {
		b.oldest = (b.oldest + 1) % len(b.slots)
		b.size--
		b.dropped++
		overwrote = true
	}
	b.slots[b.next] = event
	b.next = (b.next + 1) % len(b.slots)
	b.size++
	return overwrote
}

// PopBatch removes and returns up to n events in arrival order.
func (b *RingBuffer) PopBatch(n int) []audit.SecurityEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 || n <= 0 {
		return nil
	}
	n = min(n, b.size)

	out := make([]audit.SecurityEvent, n)
	for i := range out {
		out[i] = b.slots[b.oldest]
		b.slots[b.oldest] = audit.SecurityEvent{}
		b.oldest = (b.oldest + 1) % len(b.slots)
	}
	b.size -= n
	return out
}

func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Dropped is the lifetime count of overwritten events.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
