package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/button-led/internal/logic"
)

func fixedClock() func() time.Time {
	return func() time.Time { return t0 }
}

func TestBridgeOnInputOnlyBuffers(t *testing.T) {
	pub := NewFakePublisher()
	b := NewBridge(pub, 10, fixedClock())

	b.OnInput(logic.InputState{Active: true})
	if len(pub.Events) != 0 {
		t.Error("OnInput must not publish synchronously")
	}
	if b.Pending() != 1 {
		t.Errorf("expected 1 pending, got %d", b.Pending())
	}
}

func TestBridgeFlushPublishesInOrder(t *testing.T) {
	pub := NewFakePublisher()
	b := NewBridge(pub, 10, fixedClock())

	b.OnInput(logic.InputState{Active: true})
	b.OnInput(logic.InputState{Active: false})
	b.OnInput(logic.InputState{Active: true})

	if n := b.Flush(); n != 3 {
		t.Fatalf("expected 3 sent, got %d", n)
	}
	want := []bool{true, false, true}
	for i, w := range want {
		if pub.Events[i].State.Active != w {
			t.Errorf("event %d: got %v, want %v", i, pub.Events[i].State.Active, w)
		}
		if !pub.Events[i].Timestamp.Equal(t0) {
			t.Errorf("event %d: unexpected timestamp %v", i, pub.Events[i].Timestamp)
		}
	}
	if b.Sent() != 3 || b.Pending() != 0 {
		t.Errorf("unexpected counters: sent=%d pending=%d", b.Sent(), b.Pending())
	}
}

func TestBridgeFailureRequeuesInOrder(t *testing.T) {
	pub := NewFakePublisher()
	b := NewBridge(pub, 10, fixedClock())

	pub.SetPublishError(errors.New("broker unavailable"))
	b.OnInput(logic.InputState{Active: true})
	b.OnInput(logic.InputState{Active: false})

	if n := b.Flush(); n != 0 {
		t.Errorf("expected 0 sent, got %d", n)
	}
	if b.Pending() != 2 {
		t.Fatalf("expected 2 pending after failure, got %d", b.Pending())
	}
	if b.Failed() != 1 {
		t.Errorf("expected 1 failure, got %d", b.Failed())
	}

	// Newer event arrives while disconnected
	b.OnInput(logic.InputState{Active: true})

	pub.SetPublishError(nil)
	if n := b.Flush(); n != 3 {
		t.Fatalf("expected 3 sent after recovery, got %d", n)
	}
	want := []bool{true, false, true}
	for i, w := range want {
		if pub.Events[i].State.Active != w {
			t.Errorf("event %d: got %v, want %v", i, pub.Events[i].State.Active, w)
		}
	}
}

func TestBridgeOverflowDropsOldest(t *testing.T) {
	pub := NewFakePublisher()
	b := NewBridge(pub, 2, fixedClock())

	b.OnInput(logic.InputState{Active: true})
	b.OnInput(logic.InputState{Active: false})
	b.OnInput(logic.InputState{Active: false})

	if b.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", b.Dropped())
	}
	b.Flush()
	if len(pub.Events) != 2 || pub.Events[0].State.Active {
		t.Errorf("expected the two newest (inactive) events, got %+v", pub.Events)
	}
}

func TestBridgeRunFlushesOnWake(t *testing.T) {
	pub := NewFakePublisher()
	b := NewBridge(pub, 10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	b.OnInput(logic.InputState{Active: true})

	deadline := time.After(2 * time.Second)
	for b.Sent() < 1 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for bridge to publish")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned error: %v", err)
	}
	if got := pub.PublishedEvents(); len(got) != 1 || !got[0].State.Active {
		t.Errorf("unexpected published events: %+v", got)
	}
}
