package logic

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/button-led/internal/gpio"
	"github.com/sweeney/button-led/internal/sched"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type step struct {
	at    time.Duration
	level bool
}

func setupController(t *testing.T) (*Controller, *gpio.FakeDevice, *sched.Virtual) {
	t.Helper()
	v := sched.NewVirtual(start)
	dev := gpio.NewFakeDevice(false)
	dev.Now = v.Now
	if err := dev.ConfigureOutput(); err != nil {
		t.Fatalf("ConfigureOutput: %v", err)
	}
	return NewController(dev, v), dev, v
}

func assertWrites(t *testing.T, dev *gpio.FakeDevice, want []step) {
	t.Helper()
	got := dev.Writes()
	if len(got) != len(want) {
		t.Fatalf("expected %d writes, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		at := got[i].At.Sub(start)
		if at != w.at || got[i].Level != w.level {
			t.Errorf("write %d: got %v@%v, want %v@%v", i, got[i].Level, at, w.level, w.at)
		}
	}
}

func TestNewControllerIdle(t *testing.T) {
	c, _, _ := setupController(t)
	st := c.State()
	if st.Mode != ModeIdle {
		t.Errorf("expected IDLE, got %s", st.Mode)
	}
	if st.Generation != 0 {
		t.Errorf("expected generation 0, got %d", st.Generation)
	}
}

func TestActiveBlinksThreeTimes(t *testing.T) {
	c, dev, v := setupController(t)

	c.OnInput(InputState{Active: true})
	if st := c.State(); st.Mode != ModeBlinking || st.Toggles != 0 {
		t.Errorf("expected BLINKING(0), got %+v", st)
	}

	v.Advance(499 * time.Millisecond)
	if c.State().Mode != ModeBlinking {
		t.Errorf("expected still BLINKING at 499ms, got %s", c.State().Mode)
	}

	v.Advance(1 * time.Millisecond)
	if c.State().Mode != ModeIdle {
		t.Errorf("expected IDLE at 500ms, got %s", c.State().Mode)
	}

	assertWrites(t, dev, []step{
		{0, true},
		{100 * time.Millisecond, false},
		{200 * time.Millisecond, true},
		{300 * time.Millisecond, false},
		{400 * time.Millisecond, true},
		{500 * time.Millisecond, false},
	})

	// Nothing further is scheduled once idle
	v.Advance(time.Second)
	if len(dev.Writes()) != 6 {
		t.Errorf("expected no writes after burst, got %d", len(dev.Writes()))
	}
	if dev.Output() {
		t.Error("expected output OFF after burst")
	}
}

func TestInactiveHoldsForHalfSecond(t *testing.T) {
	c, dev, v := setupController(t)

	c.OnInput(InputState{Active: false})
	if c.State().Mode != ModeHolding {
		t.Errorf("expected HOLDING, got %s", c.State().Mode)
	}

	v.Advance(499 * time.Millisecond)
	if !dev.Output() {
		t.Error("expected output ON during hold")
	}

	v.Advance(1 * time.Millisecond)
	if c.State().Mode != ModeIdle {
		t.Errorf("expected IDLE at 500ms, got %s", c.State().Mode)
	}

	assertWrites(t, dev, []step{
		{0, true},
		{500 * time.Millisecond, false},
	})
}

func TestInactiveSupersedesBlinking(t *testing.T) {
	c, dev, v := setupController(t)

	c.OnInput(InputState{Active: true})
	v.Advance(150 * time.Millisecond)
	c.OnInput(InputState{Active: false})
	v.Advance(time.Second)

	assertWrites(t, dev, []step{
		{0, true},
		{100 * time.Millisecond, false},
		{150 * time.Millisecond, true},
		{650 * time.Millisecond, false},
	})
	if c.State().Mode != ModeIdle {
		t.Errorf("expected IDLE, got %s", c.State().Mode)
	}
}

func TestActiveSupersedesHolding(t *testing.T) {
	c, dev, v := setupController(t)

	c.OnInput(InputState{Active: false})
	v.Advance(250 * time.Millisecond)
	c.OnInput(InputState{Active: true})
	v.Advance(time.Second)

	assertWrites(t, dev, []step{
		{0, true},
		{250 * time.Millisecond, true},
		{350 * time.Millisecond, false},
		{450 * time.Millisecond, true},
		{550 * time.Millisecond, false},
		{650 * time.Millisecond, true},
		{750 * time.Millisecond, false},
	})
}

func TestRepeatedActiveRestartsBurst(t *testing.T) {
	c, dev, v := setupController(t)

	c.OnInput(InputState{Active: true})
	v.Advance(250 * time.Millisecond)
	c.OnInput(InputState{Active: true})
	if st := c.State(); st.Toggles != 0 || st.Generation != 2 {
		t.Errorf("expected fresh burst at generation 2, got %+v", st)
	}
	v.Advance(time.Second)

	// 0: on, 100: off, 200: on, 250: on (restart), then five toggles from 250
	writes := dev.Writes()
	if len(writes) != 3+1+BlinkToggles {
		t.Fatalf("expected 9 writes, got %d", len(writes))
	}
	last := writes[len(writes)-1]
	if last.At.Sub(start) != 750*time.Millisecond || last.Level {
		t.Errorf("expected final OFF at 750ms, got %v@%v", last.Level, last.At.Sub(start))
	}
}

// Every interleaving of a second input against the first sequence must leave
// no write from the first generation after the second input.
func TestSupersedeNeverLeaksStaleWrites(t *testing.T) {
	for _, first := range []bool{true, false} {
		for _, second := range []bool{true, false} {
			for offset := time.Duration(0); offset <= 600*time.Millisecond; offset += 10 * time.Millisecond {
				c, dev, v := setupController(t)

				c.OnInput(InputState{Active: first})
				v.Advance(offset)
				before := len(dev.Writes())
				c.OnInput(InputState{Active: second})
				v.Advance(2 * time.Second)

				var want []step
				if second {
					want = []step{{0, true}}
					level := true
					for i := 1; i <= BlinkToggles; i++ {
						level = !level
						want = append(want, step{time.Duration(i) * BlinkPeriod, level})
					}
				} else {
					want = []step{{0, true}, {HoldDuration, false}}
				}

				got := dev.Writes()[before:]
				if len(got) != len(want) {
					t.Fatalf("first=%v second=%v offset=%v: expected %d writes, got %d", first, second, offset, len(want), len(got))
				}
				for i, w := range want {
					at := got[i].At.Sub(start) - offset
					if at != w.at || got[i].Level != w.level {
						t.Errorf("first=%v second=%v offset=%v write %d: got %v@+%v, want %v@+%v",
							first, second, offset, i, got[i].Level, at, w.level, w.at)
					}
				}
				if c.State().Mode != ModeIdle {
					t.Errorf("first=%v second=%v offset=%v: expected IDLE, got %s", first, second, offset, c.State().Mode)
				}
			}
		}
	}
}

func TestWriteFailureStillAdvances(t *testing.T) {
	c, dev, v := setupController(t)
	dev.SetWriteError(errors.New("simulated error"))

	c.OnInput(InputState{Active: true})
	v.Advance(500 * time.Millisecond)

	if c.State().Mode != ModeIdle {
		t.Errorf("expected IDLE despite write failures, got %s", c.State().Mode)
	}
	if len(dev.Writes()) != 6 {
		t.Errorf("expected 6 attempted writes, got %d", len(dev.Writes()))
	}

	dev.SetWriteError(errors.New("simulated error"))
	c.OnInput(InputState{Active: false})
	v.Advance(500 * time.Millisecond)
	if c.State().Mode != ModeIdle {
		t.Errorf("expected IDLE after failed release, got %s", c.State().Mode)
	}
}

func TestOnChangeReportsTransitions(t *testing.T) {
	c, _, v := setupController(t)

	var modes []Mode
	c.OnChange = func(st ControllerState) { modes = append(modes, st.Mode) }

	c.OnInput(InputState{Active: false})
	v.Advance(time.Second)

	want := []Mode{ModeHolding, ModeIdle}
	if len(modes) != len(want) {
		t.Fatalf("expected %v, got %v", want, modes)
	}
	for i := range want {
		if modes[i] != want[i] {
			t.Errorf("transition %d: got %s, want %s", i, modes[i], want[i])
		}
	}
}

func TestStaleFiringsCounted(t *testing.T) {
	c, _, v := setupController(t)

	// Firings captured under an older generation are dropped even if they
	// reach the controller.
	c.OnInput(InputState{Active: true})
	gen := c.State().Generation
	c.OnInput(InputState{Active: false})
	c.onToggle(gen)
	c.onRelease(gen)
	v.Advance(time.Second)

	if c.StaleFirings() != 2 {
		t.Errorf("expected 2 stale firings, got %d", c.StaleFirings())
	}
}

func TestInputStateString(t *testing.T) {
	if (InputState{Active: true}).String() != "ACTIVE" {
		t.Error("expected ACTIVE")
	}
	if (InputState{}).String() != "INACTIVE" {
		t.Error("expected INACTIVE")
	}
}
