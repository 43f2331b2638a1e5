package shift

import (
	"testing"
	"time"

	"github.com/threeworlds/loopshift/internal/core/sched"
)

func TestTimedSolidCycle_PhaseParity(t *testing.T) {
	for n := 0; n <= 7; n++ {
		s := sched.New()
		c := NewTimedSolidCycle(s, 2*time.Second, time.Second)
		c.Start()
		for i := 0; i < n; i++ {
			s.Advance(2 * time.Second)
		}
		if want := n%2 == 0; c.Phase() != want {
			t.Fatalf("after %d intervals phase = %v, want %v", n, c.Phase(), want)
		}
	}
}

func TestTimedSolidCycle_PreWarningCarriesUpcomingPhase(t *testing.T) {
	s := sched.New()
	c := NewTimedSolidCycle(s, 2*time.Second, 500*time.Millisecond)
	var warnings []bool
	var warnAt []time.Duration
	c.PreWarning.Subscribe(func(next bool) {
		warnings = append(warnings, next)
		warnAt = append(warnAt, s.Now())
	})
	c.Start()

	s.Advance(4 * time.Second)
	if len(warnings) != 2 {
		t.Fatalf("got %d warnings, want 2", len(warnings))
	}
	if warnings[0] != false || warnings[1] != true {
		t.Fatalf("warning payloads %v, want [false true]", warnings)
	}
	if warnAt[0] != 1500*time.Millisecond || warnAt[1] != 3500*time.Millisecond {
		t.Fatalf("warnings at %v", warnAt)
	}
}

func TestTimedSolidCycle_PreWarningDisabledOutsideWindow(t *testing.T) {
	for _, pw := range []time.Duration{0, 2 * time.Second, 3 * time.Second} {
		s := sched.New()
		c := NewTimedSolidCycle(s, 2*time.Second, pw)
		n := 0
		c.PreWarning.Subscribe(func(bool) { n++ })
		c.Start()
		s.Advance(10 * time.Second)
		if n != 0 {
			t.Fatalf("pre-warning %v fired %d times", pw, n)
		}
	}
}

func TestTimedSolidCycle_StartStopIdempotent(t *testing.T) {
	s := sched.New()
	c := NewTimedSolidCycle(s, time.Second, 0)
	c.Start()
	c.Start()
	if s.Len() != 1 {
		t.Fatalf("double start left %d timers", s.Len())
	}
	c.Stop()
	c.Stop()
	if s.Len() != 0 || c.Running() {
		t.Fatal("stop left timers behind")
	}
	flips := 0
	c.PhaseChanged.Subscribe(func(bool) { flips++ })
	s.Advance(5 * time.Second)
	if flips != 0 {
		t.Fatal("stopped cycle flipped")
	}
}

func TestTimedSolidCycle_ResetStartsFreshSolidPhase(t *testing.T) {
	s := sched.New()
	c := NewTimedSolidCycle(s, 2*time.Second, 0)
	c.Start()
	s.Advance(3 * time.Second) // one flip, 1s into the ghost phase
	if c.Phase() {
		t.Fatal("expected ghost phase")
	}
	var seen []bool
	c.PhaseChanged.Subscribe(func(p bool) { seen = append(seen, p) })
	c.Reset()
	if !c.Phase() || len(seen) != 1 || !seen[0] {
		t.Fatalf("reset phase = %v, notifications %v", c.Phase(), seen)
	}
	// The stale timer would have flipped at 4s; the fresh one flips at 5s.
	s.Advance(1500 * time.Millisecond)
	if !c.Phase() {
		t.Fatal("stale timer flipped the phase after reset")
	}
	s.Advance(500 * time.Millisecond)
	if c.Phase() {
		t.Fatal("fresh timer did not flip at the full interval")
	}
}

func TestTimedSolidCycle_ClampsInterval(t *testing.T) {
	c := NewTimedSolidCycle(sched.New(), 0, 0)
	if c.Interval() != MinCycleInterval {
		t.Fatalf("interval = %v", c.Interval())
	}
}
