package mqtt

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/button-led/internal/logic"
)

// DefaultRetryInterval is how often the bridge retries buffered events.
const DefaultRetryInterval = 5 * time.Second

// Bridge is an event channel listener that forwards input states to a
// Publisher. OnInput only buffers; Run does the (possibly slow) publishing
// on its own goroutine so the scheduler worker never waits on the network.
type Bridge struct {
	pub   Publisher
	now   func() time.Time
	retry time.Duration
	wake  chan struct{}

	mu  sync.Mutex
	buf *ringBuffer

	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewBridge creates a Bridge buffering up to capacity unsent events.
func NewBridge(pub Publisher, capacity int, now func() time.Time) *Bridge {
	if now == nil {
		now = time.Now
	}
	return &Bridge{
		pub:   pub,
		now:   now,
		retry: DefaultRetryInterval,
		wake:  make(chan struct{}, 1),
		buf:   newRingBuffer(capacity),
	}
}

// OnInput stamps and buffers state, then wakes Run.
func (b *Bridge) OnInput(state logic.InputState) {
	b.mu.Lock()
	b.buf.push(StateEvent{Timestamp: b.now(), State: state})
	b.mu.Unlock()
	b.Wake()
}

// Wake asks Run to flush now, e.g. after the broker connection is restored.
func (b *Bridge) Wake() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Flush publishes buffered events in order. On the first failure the
// unsent events go back to the front of the buffer. Returns the number sent.
func (b *Bridge) Flush() int {
	b.mu.Lock()
	events := b.buf.drainAll()
	b.mu.Unlock()

	for i, ev := range events {
		if err := b.pub.Publish(ev); err != nil {
			b.failed.Add(1)
			log.Printf("mqtt: publish %s: %v (%d buffered)", ev.State, err, len(events)-i)
			b.requeue(events[i:])
			return i
		}
		b.sent.Add(1)
		log.Printf("mqtt: published %s", ev.State)
	}
	return len(events)
}

// requeue puts unsent events back ahead of anything buffered meanwhile.
func (b *Bridge) requeue(unsent []StateEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	newer := b.buf.drainAll()
	for _, ev := range unsent {
		b.buf.push(ev)
	}
	for _, ev := range newer {
		b.buf.push(ev)
	}
}

// Run flushes on every wake and periodically while events are buffered,
// until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.retry)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.wake:
			b.Flush()
		case <-ticker.C:
			if b.Pending() > 0 {
				b.Flush()
			}
		}
	}
}

// Pending returns the number of buffered events.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.len()
}

// Dropped returns the number of events lost to buffer overflow.
func (b *Bridge) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.dropped
}

// Sent returns the number of events published.
func (b *Bridge) Sent() uint64 {
	return b.sent.Load()
}

// Failed returns the number of failed publish attempts.
func (b *Bridge) Failed() uint64 {
	return b.failed.Load()
}
