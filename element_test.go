package lumen

import (
	"slices"
	"testing"
	"time"
)

func TestNewElementDefaults(t *testing.T) {
	el := NewElement("card", Rect{Width: 10, Height: 10})
	if el.Opacity != 1 || el.Scale != 1 || el.Color != ColorWhite {
		t.Errorf("defaults = %+v", el.State())
	}
	if !el.IsDirty() {
		t.Error("new element should be dirty so the first frame applies it")
	}
	other := NewElement("card", Rect{})
	if other.ID == el.ID {
		t.Error("IDs must be unique")
	}
}

func TestElementPropertyRoundTrip(t *testing.T) {
	el := NewElement("e", Rect{})
	for p := Property(0); p < propCount; p++ {
		el.SetProperty(p, float64(p)+0.5)
		if got := el.Property(p); got != float64(p)+0.5 {
			t.Errorf("%s = %v, want %v", p, got, float64(p)+0.5)
		}
		parsed, ok := ParseProperty(p.String())
		if !ok || parsed != p {
			t.Errorf("ParseProperty(%q) = %v, %v", p.String(), parsed, ok)
		}
	}
	if _, ok := ParseProperty("blur"); ok {
		t.Error("unknown property parsed")
	}
	if Property(200).String() != "unknown" {
		t.Error("out of range property should stringify as unknown")
	}
}

func TestElementSetPropertyDirtyOnlyOnChange(t *testing.T) {
	el := NewElement("e", Rect{})
	el.dirty = false
	el.SetProperty(PropOpacity, 1)
	if el.IsDirty() {
		t.Error("writing the current value marked dirty")
	}
	el.SetProperty(PropOpacity, 0.5)
	if !el.IsDirty() {
		t.Error("changing a value did not mark dirty")
	}
}

func TestElementWriteKeepsHighestPriorityPerFrame(t *testing.T) {
	el := NewElement("card", Rect{})
	steps := []struct {
		v        float64
		priority int
		frame    uint64
		want     float64
	}{
		{0.2, 5, 1, 0.2},
		{0.9, 0, 1, 0.2}, // lower priority, same frame
		{0.6, 5, 1, 0.6}, // equal priority, last write wins
		{0.9, 0, 2, 0.9}, // claims reset each frame
		{0.1, 0, 0, 0.1}, // frame 0 is never arbitrated
	}
	for i, s := range steps {
		el.write(PropOpacity, s.v, s.priority, s.frame)
		if el.Opacity != s.want {
			t.Errorf("step %d: opacity = %v, want %v", i, el.Opacity, s.want)
		}
	}
}

func TestElementClasses(t *testing.T) {
	el := NewElement("e", Rect{})
	el.dirty = false
	el.SetClass("open", false)
	if el.IsDirty() {
		t.Error("removing an absent class marked dirty")
	}
	el.SetClass("revealed", true)
	el.SetClass("open", true)
	el.SetClass("open", true)
	if got := el.Classes(); !slices.Equal(got, []string{"open", "revealed"}) {
		t.Errorf("Classes = %v", got)
	}
	el.SetClass("open", false)
	if el.HasClass("open") || !el.HasClass("revealed") {
		t.Errorf("Classes after removal = %v", el.Classes())
	}
}

func TestElementDisposeFreezes(t *testing.T) {
	el := NewElement("e", Rect{})
	el.SetClass("open", true)
	el.Dispose()
	el.Dispose()
	el.SetProperty(PropOpacity, 0)
	el.SetText("x")
	el.SetClass("y", true)
	if el.Opacity != 1 || el.Text != "" || el.HasClass("y") || el.HasClass("open") {
		t.Errorf("disposed element changed: %+v", el.State())
	}
	if !el.IsDisposed() {
		t.Error("IsDisposed = false")
	}
}

func TestFakeClock(t *testing.T) {
	var c FakeClock
	c.Advance(time.Second)
	c.Advance(-time.Hour)
	c.Set(500 * time.Millisecond)
	if c.Now() != time.Second {
		t.Errorf("Now = %v, want 1s", c.Now())
	}
	c.Set(3 * time.Second)
	if c.Now() != 3*time.Second {
		t.Errorf("Now = %v, want 3s", c.Now())
	}
}

func TestFrameClock(t *testing.T) {
	c := NewFrameClock(0)
	if c.Step() != time.Second/60 {
		t.Errorf("default step = %v", c.Step())
	}
	c = NewFrameClock(50)
	for i := 0; i < 50; i++ {
		c.Tick()
	}
	if c.Now() != time.Second {
		t.Errorf("50 ticks at 50 TPS = %v, want 1s", c.Now())
	}
}

func TestWallClockMonotonic(t *testing.T) {
	c := NewWallClock()
	a := c.Now()
	b := c.Now()
	if b < a {
		t.Errorf("wall clock went backward: %v then %v", a, b)
	}
}
