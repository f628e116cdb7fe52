package mqtt

import "log"

// DefaultBufferSize is the number of unsent state events kept while the
// broker is unreachable.
const DefaultBufferSize = 100

// ringBuffer is a fixed-capacity FIFO of state events awaiting publish.
// Not safe for concurrent use; the caller must synchronize.
type ringBuffer struct {
	buf      []StateEvent
	capacity int
	head     int // next write position
	count    int
	overflow bool   // true if any event was dropped since last drain
	dropped  uint64 // total events dropped
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &ringBuffer{
		buf:      make([]StateEvent, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(ev StateEvent) {
	if r.count == r.capacity {
		if !r.overflow {
			log.Printf("mqtt: buffer full (%d events), dropping oldest", r.capacity)
			r.overflow = true
		}
		r.dropped++
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = ev
		r.head = (r.head + 1) % r.capacity
		return
	}
	r.buf[r.head] = ev
	r.head = (r.head + 1) % r.capacity
	r.count++
}

func (r *ringBuffer) drainAll() []StateEvent {
	if r.count == 0 {
		return nil
	}

	result := make([]StateEvent, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}
