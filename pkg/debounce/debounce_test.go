package debounce_test

import (
	"testing"
	"time"

	"github.com/glosspoint/glosspoint/pkg/debounce"
)

// fakeClock records scheduled callbacks and lets the test fire them.
type fakeClock struct {
	pending []*fakeTimer
}

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *fakeClock) afterFunc(_ time.Duration, fn func()) debounce.Timer {
	t := &fakeTimer{fn: fn}
	c.pending = append(c.pending, t)
	return t
}

// fire runs every timer that was not stopped.
func (c *fakeClock) fire() int {
	fired := 0
	for _, t := range c.pending {
		if !t.stopped {
			t.stopped = true
			t.fn()
			fired++
		}
	}
	return fired
}

func TestScheduleCoalescesBurst(t *testing.T) {
	clock := &fakeClock{}
	runs := 0
	d := debounce.New(300*time.Millisecond, func() { runs++ })
	d.SetAfterFunc(clock.afterFunc)

	for i := 0; i < 5; i++ {
		d.Schedule()
	}
	if fired := clock.fire(); fired != 1 {
		t.Fatalf("expected 1 live timer after burst, fired %d", fired)
	}
	if runs != 1 {
		t.Fatalf("expected exactly one run, got %d", runs)
	}
}

func TestScheduleAfterFireStartsFreshCycle(t *testing.T) {
	clock := &fakeClock{}
	runs := 0
	d := debounce.New(300*time.Millisecond, func() { runs++ })
	d.SetAfterFunc(clock.afterFunc)

	d.Schedule()
	clock.fire()
	d.Schedule()
	clock.fire()

	if runs != 2 {
		t.Fatalf("expected two runs across two cycles, got %d", runs)
	}
}

func TestStopCancelsPendingRun(t *testing.T) {
	clock := &fakeClock{}
	runs := 0
	d := debounce.New(300*time.Millisecond, func() { runs++ })
	d.SetAfterFunc(clock.afterFunc)

	d.Schedule()
	if !d.Pending() {
		t.Fatal("expected pending timer after schedule")
	}
	d.Stop()
	if d.Pending() {
		t.Fatal("expected no pending timer after stop")
	}
	clock.fire()
	if runs != 0 {
		t.Fatalf("expected no runs after stop, got %d", runs)
	}
}

func TestActionReadsStateAtFireTime(t *testing.T) {
	clock := &fakeClock{}
	state := "a"
	var seen string
	d := debounce.New(300*time.Millisecond, func() { seen = state })
	d.SetAfterFunc(clock.afterFunc)

	d.Schedule()
	state = "b"
	d.Schedule()
	state = "c"
	clock.fire()

	if seen != "c" {
		t.Fatalf("expected latest state %q at fire time, got %q", "c", seen)
	}
}
