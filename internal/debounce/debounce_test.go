package debounce

import (
	"testing"
	"time"

	"github.com/sweeney/button-led/internal/bus"
	"github.com/sweeney/button-led/internal/gpio"
	"github.com/sweeney/button-led/internal/logic"
	"github.com/sweeney/button-led/internal/sched"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type published struct {
	at    time.Duration
	state logic.InputState
}

func setupDebouncer(t *testing.T, input bool) (*Debouncer, *gpio.FakeDevice, *sched.Virtual, *[]published) {
	t.Helper()
	v := sched.NewVirtual(start)
	dev := gpio.NewFakeDevice(input)
	if err := dev.ConfigureInput(); err != nil {
		t.Fatalf("ConfigureInput: %v", err)
	}

	ch := bus.New()
	var got []published
	ch.Subscribe(bus.ListenerFunc(func(s logic.InputState) {
		got = append(got, published{at: v.Now().Sub(start), state: s})
	}))

	return New(dev, ch, v, 0), dev, v, &got
}

func TestDefaultWindow(t *testing.T) {
	d, _, _, _ := setupDebouncer(t, false)
	if d.Window() != 30*time.Millisecond {
		t.Errorf("expected 30ms window, got %v", d.Window())
	}
}

func TestSingleEdgeSettlesOnce(t *testing.T) {
	d, _, v, got := setupDebouncer(t, true)

	d.OnEdge()
	v.Advance(29 * time.Millisecond)
	if len(*got) != 0 {
		t.Fatalf("expected no publish before window, got %d", len(*got))
	}

	v.Advance(time.Second)
	if len(*got) != 1 {
		t.Fatalf("expected exactly 1 publish, got %d", len(*got))
	}
	if (*got)[0].at != 30*time.Millisecond {
		t.Errorf("settled at %v, want 30ms", (*got)[0].at)
	}
	if !(*got)[0].state.Active {
		t.Error("expected ACTIVE")
	}
}

// Edges at 0, 5 and 12ms collapse to one settle at 42ms reading the level at that instant.
func TestBurstCollapsesToOneSettle(t *testing.T) {
	d, dev, v, got := setupDebouncer(t, false)

	d.OnEdge()
	dev.SetInput(true)
	v.Advance(5 * time.Millisecond)
	d.OnEdge()
	dev.SetInput(false)
	v.Advance(7 * time.Millisecond)
	d.OnEdge()
	dev.SetInput(true)

	v.Advance(29 * time.Millisecond)
	if len(*got) != 0 {
		t.Fatalf("expected no publish at 41ms, got %d", len(*got))
	}

	v.Advance(time.Second)
	if len(*got) != 1 {
		t.Fatalf("expected exactly 1 publish, got %d", len(*got))
	}
	if (*got)[0].at != 42*time.Millisecond {
		t.Errorf("settled at %v, want 42ms", (*got)[0].at)
	}
	if !(*got)[0].state.Active {
		t.Error("expected the level at settle time (ACTIVE)")
	}
	if dev.Reads() != 1 {
		t.Errorf("expected 1 read, got %d", dev.Reads())
	}

	st := d.Stats()
	if st.Edges != 3 || st.Settles != 1 || st.ReadFailures != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestAnyBurstInsideWindowSettlesOnce(t *testing.T) {
	for gap := time.Millisecond; gap < 30*time.Millisecond; gap += 3 * time.Millisecond {
		d, _, v, got := setupDebouncer(t, true)

		var last time.Duration
		for i := 0; i < 5; i++ {
			d.OnEdge()
			last = v.Now().Sub(start)
			v.Advance(gap)
		}
		v.Advance(time.Second)

		if len(*got) != 1 {
			t.Fatalf("gap=%v: expected 1 publish, got %d", gap, len(*got))
		}
		if want := last + 30*time.Millisecond; (*got)[0].at != want {
			t.Errorf("gap=%v: settled at %v, want %v", gap, (*got)[0].at, want)
		}
	}
}

func TestSeparatedEdgesSettleEach(t *testing.T) {
	d, dev, v, got := setupDebouncer(t, true)

	d.OnEdge()
	v.Advance(100 * time.Millisecond)
	dev.SetInput(false)
	d.OnEdge()
	v.Advance(100 * time.Millisecond)

	if len(*got) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(*got))
	}
	if !(*got)[0].state.Active || (*got)[1].state.Active {
		t.Errorf("unexpected states: %+v", *got)
	}
}

func TestReadFailureDropsSettle(t *testing.T) {
	d, dev, v, got := setupDebouncer(t, true)
	dev.SetReadError(gpio.ErrIO)

	d.OnEdge()
	v.Advance(time.Second)
	if len(*got) != 0 {
		t.Fatalf("expected no publish on read failure, got %d", len(*got))
	}
	if dev.Reads() != 1 {
		t.Errorf("expected exactly 1 read (no retry), got %d", dev.Reads())
	}
	if d.Stats().ReadFailures != 1 {
		t.Errorf("expected 1 read failure, got %d", d.Stats().ReadFailures)
	}

	// Next edge recovers
	dev.SetReadError(nil)
	d.OnEdge()
	v.Advance(time.Second)
	if len(*got) != 1 {
		t.Errorf("expected publish after recovery, got %d", len(*got))
	}
}

func TestOnEdgeFromOtherGoroutine(t *testing.T) {
	v := sched.NewVirtual(start)
	dev := gpio.NewFakeDevice(true)
	dev.ConfigureInput()
	ch := bus.New()
	d := New(dev, ch, v, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			d.OnEdge()
		}
		close(done)
	}()
	<-done

	v.Advance(time.Second)
	if ch.Published() != 1 {
		t.Errorf("expected 1 publish, got %d", ch.Published())
	}
	if d.Stats().Edges != 100 {
		t.Errorf("expected 100 edges, got %d", d.Stats().Edges)
	}
}
