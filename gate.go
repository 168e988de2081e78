package dispatchz

import "time"

// releaseGate tracks the count and time conditions controlling batch
// release. Both conditions latch: once satisfied they remain satisfied
// until the gate is rearmed after a release, so a condition reached while
// the dispatcher waits on a concurrency slot is never lost. The slot
// condition itself lives in the dispatcher's in-flight counter.
//
// The time condition counts from the moment the gate was last (re)armed,
// not from the first item of the batch.
type releaseGate struct {
	clock    Clock
	timer    Timer
	interval time.Duration
	minSize  int
	elapsed  bool
}

func newReleaseGate(minSize int, interval time.Duration, clock Clock) *releaseGate {
	g := &releaseGate{
		clock:    clock,
		interval: interval,
		minSize:  minSize,
	}
	if interval > 0 {
		g.timer = clock.NewTimer(interval)
	} else {
		// No time condition: permanently satisfied.
		g.elapsed = true
	}
	return g
}

// timerC returns the pending timer channel, or nil once the time condition
// is satisfied. A nil channel never selects, so the dispatcher's event loop
// simply stops seeing timer events while the latch holds.
func (g *releaseGate) timerC() <-chan time.Time {
	if g.timer == nil || g.elapsed {
		return nil
	}
	return g.timer.C()
}

// markElapsed latches the time condition. Called when the timer fires.
func (g *releaseGate) markElapsed() {
	g.elapsed = true
}

// ready reports whether the count and time conditions are both satisfied
// for the given number of accumulated items.
func (g *releaseGate) ready(count int) bool {
	return g.elapsed && count >= g.minSize
}

// rearm resets the time latch and arms a fresh interval timer. Called
// immediately after a batch is released. A new timer rather than Reset:
// a fired timer may no longer be registered with its clock, so resetting
// it is not guaranteed to schedule another fire. The count condition
// needs no explicit reset: the dispatcher swaps in an empty batch at
// release.
func (g *releaseGate) rearm() {
	if g.timer == nil {
		return
	}
	g.elapsed = false
	g.timer.Stop()
	g.timer = g.clock.NewTimer(g.interval)
}

func (g *releaseGate) stop() {
	if g.timer != nil {
		g.timer.Stop()
	}
}
