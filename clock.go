package lumen

import "time"

// Clock is the periodic time source injected into an Engine. Now returns the
// time elapsed since an arbitrary origin; it must never decrease.
type Clock interface {
	Now() time.Duration
}

// WallClock reads the monotonic wall clock.
type WallClock struct {
	origin time.Time
}

// NewWallClock returns a clock whose origin is the moment of the call.
func NewWallClock() *WallClock {
	return &WallClock{origin: time.Now()}
}

// Now returns the time elapsed since the clock was created.
func (c *WallClock) Now() time.Duration {
	return time.Since(c.origin)
}

// FrameClock advances by a fixed step each Tick. Hosts with a fixed update
// rate (Ebitengine's TPS) use it so animation time matches simulation time.
type FrameClock struct {
	now  time.Duration
	step time.Duration
}

// NewFrameClock returns a clock that advances 1/tps seconds per Tick.
// tps <= 0 defaults to 60.
func NewFrameClock(tps int) *FrameClock {
	if tps <= 0 {
		tps = 60
	}
	return &FrameClock{step: time.Second / time.Duration(tps)}
}

// Tick advances the clock by one frame.
func (c *FrameClock) Tick() {
	c.now += c.step
}

// Step returns the duration of one frame.
func (c *FrameClock) Step() time.Duration {
	return c.step
}

// Now returns the accumulated frame time.
func (c *FrameClock) Now() time.Duration {
	return c.now
}

// FakeClock is a manually driven clock for deterministic tests.
type FakeClock struct {
	now time.Duration
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Duration {
	return c.now
}

// Advance moves the clock forward by d. Negative values are ignored.
func (c *FakeClock) Advance(d time.Duration) {
	if d > 0 {
		c.now += d
	}
}

// Set moves the clock to t if t is not in the past.
func (c *FakeClock) Set(t time.Duration) {
	if t > c.now {
		c.now = t
	}
}
