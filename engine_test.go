package lumen

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestEngine(buf *bytes.Buffer) (*Engine, *FakeClock) {
	clock := &FakeClock{}
	var logger *slog.Logger
	if buf != nil {
		logger = slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	e := NewEngine(Options{
		Clock:    clock,
		Viewport: Rect{Width: 1280, Height: 800},
		Logger:   logger,
	})
	e.Scroller().Duration = 0
	return e, clock
}

func TestRevealStaggersVisibleBatch(t *testing.T) {
	e, clock := newTestEngine(nil)

	fired := map[string]time.Duration{}
	for i, name := range []string{"c0", "c1", "c2", "c3", "c4", "below"} {
		y := float64(i%3) * 200
		if name == "below" {
			y = 2000
		}
		el := NewElement(name, Rect{X: float64(i) * 50, Y: y, Width: 40, Height: 100})
		e.Reveal(el, RevealOptions{
			Observe: ObserveOptions{Threshold: 0.15, RootMargin: Margin{Bottom: -40}},
			Group:   "cards",
			Run:     func(el *Element) { fired[el.Name] = e.Now() },
		})
	}

	for ms := 0; ms <= 600; ms += 10 {
		clock.Set(time.Duration(ms) * time.Millisecond)
		e.Update()
	}

	want := map[string]time.Duration{
		"c0": 0,
		"c1": 120 * time.Millisecond,
		"c2": 240 * time.Millisecond,
		"c3": 360 * time.Millisecond,
		"c4": 0,
	}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for name, d := range want {
		if fired[name] != d {
			t.Errorf("%s fired at %v, want %v", name, fired[name], d)
		}
	}

	// Scrolling the last card into view starts a new batch at position 0.
	e.InjectScroll(1500)
	clock.Advance(10 * time.Millisecond)
	at := clock.Now()
	e.Update()
	if fired["below"] != at {
		t.Errorf("below fired at %v, want %v", fired["below"], at)
	}
}

func TestRevealByRegistrationIsGroupLocal(t *testing.T) {
	e, clock := newTestEngine(nil)
	// Observations outside the group must not shift its positions.
	e.Observe(NewElement("stat", Rect{Width: 10, Height: 10}), ObserveOptions{}, func(Entry) {})
	e.SetStagger("cards", Stagger{Modulus: 4, Unit: 120 * time.Millisecond, ByRegistration: true})

	fired := map[string]time.Duration{}
	for i := range 6 {
		el := NewElement("c"+string(rune('0'+i)), Rect{X: float64(i) * 50, Width: 40, Height: 100})
		e.Reveal(el, RevealOptions{Group: "cards", Run: func(el *Element) { fired[el.Name] = e.Now() }})
	}
	for ms := 0; ms <= 400; ms += 10 {
		clock.Set(time.Duration(ms) * time.Millisecond)
		e.Update()
	}

	want := map[string]time.Duration{
		"c0": 0, "c1": 120 * time.Millisecond, "c2": 240 * time.Millisecond,
		"c3": 360 * time.Millisecond, "c4": 0, "c5": 120 * time.Millisecond,
	}
	for name, d := range want {
		if got, ok := fired[name]; !ok || got != d {
			t.Errorf("%s fired at %v (ok=%v), want %v", name, got, ok, d)
		}
	}
}

func TestRevealFiresOnceAcrossScrolls(t *testing.T) {
	e, clock := newTestEngine(nil)
	el := NewElement("card", Rect{Y: 100, Width: 100, Height: 100})
	runs := 0
	e.Reveal(el, RevealOptions{Group: "cards", Run: func(*Element) { runs++ }})

	for i := 0; i < 10; i++ {
		dy := 3000.0
		if i%2 == 1 {
			dy = -3000
		}
		e.InjectScroll(dy)
		clock.Advance(16 * time.Millisecond)
		e.Update()
	}
	if runs != 1 {
		t.Errorf("reveal ran %d times, want 1", runs)
	}
}

func TestSingleTimeSamplePerFrame(t *testing.T) {
	e, clock := newTestEngine(nil)
	var seen []time.Duration
	for i := 0; i < 3; i++ {
		e.After(0, func() {
			seen = append(seen, e.Now())
			clock.Advance(time.Second) // the clock moving mid-frame must not leak in
		})
	}
	clock.Set(50 * time.Millisecond)
	e.Update()
	if len(seen) != 3 {
		t.Fatalf("fired %d timers, want 3", len(seen))
	}
	for _, s := range seen {
		if s != 50*time.Millisecond {
			t.Errorf("timer saw %v, want 50ms", s)
		}
	}
}

func TestTimersFireInDueThenScheduleOrder(t *testing.T) {
	e, clock := newTestEngine(nil)
	var order []int
	e.After(20*time.Millisecond, func() { order = append(order, 3) })
	e.After(10*time.Millisecond, func() { order = append(order, 1) })
	e.After(10*time.Millisecond, func() { order = append(order, 2) })
	clock.Set(time.Second)
	e.Update()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v, want [1 2 3]", order)
	}
}

func TestCancelDuringFrameSkipsTimer(t *testing.T) {
	e, clock := newTestEngine(nil)
	var later TimerHandle
	ran := false
	e.After(0, func() { later.Cancel() })
	later = e.After(0, func() { ran = true })
	clock.Set(time.Millisecond)
	e.Update()
	if ran {
		t.Error("timer cancelled earlier in the same frame still ran")
	}
	if e.PendingTimers() != 0 {
		t.Errorf("PendingTimers = %d, want 0", e.PendingTimers())
	}
}

func TestPanicIsolation(t *testing.T) {
	var buf bytes.Buffer
	e, clock := newTestEngine(&buf)
	ran := false
	e.After(0, func() { panic("boom") })
	e.After(0, func() { ran = true })
	clock.Set(time.Millisecond)
	e.Update()
	if !ran {
		t.Error("callback after a panicking one did not run")
	}
	if !strings.Contains(buf.String(), "callback panicked") || !strings.Contains(buf.String(), "boom") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestDisposedTimerOwnerWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	e, clock := newTestEngine(&buf)
	el := NewElement("ghost", Rect{})
	ran := 0
	for i := 0; i < 3; i++ {
		e.AfterFor(el, 0, func() { ran++ })
	}
	el.Dispose()
	clock.Set(time.Millisecond)
	e.Update()
	if ran != 0 {
		t.Errorf("ran %d callbacks for a disposed owner", ran)
	}
	if n := strings.Count(buf.String(), "skipped operation on missing element"); n != 1 {
		t.Errorf("warned %d times, want 1:\n%s", n, buf.String())
	}
}

func TestApplierCalledOncePerDirtyElement(t *testing.T) {
	e, clock := newTestEngine(nil)
	calls := map[string]int{}
	var last VisualState
	e.SetApplier(ApplierFunc(func(el *Element, s VisualState) {
		calls[el.Name]++
		last = s
	}))
	a := NewElement("a", Rect{})
	b := NewElement("b", Rect{})
	e.Add(a, b, a)

	e.After(0, func() {
		a.SetProperty(PropOpacity, 0.2)
		a.SetProperty(PropOpacity, 0.4)
		a.SetClass("revealed", true)
	})
	clock.Set(time.Millisecond)
	e.Update()
	if calls["a"] != 1 || calls["b"] != 1 {
		t.Errorf("first frame calls = %v, want a:1 b:1", calls)
	}

	clock.Set(2 * time.Millisecond)
	e.Update()
	if calls["a"] != 1 || calls["b"] != 1 {
		t.Errorf("clean frame should not apply, calls = %v", calls)
	}

	a.SetProperty(PropOpacity, 0.9)
	clock.Set(3 * time.Millisecond)
	e.Update()
	if calls["a"] != 2 || last.Opacity != 0.9 || len(last.Classes) != 1 {
		t.Errorf("calls = %v last = %+v", calls, last)
	}
}

func TestUpdateClampsBackwardTime(t *testing.T) {
	e, _ := newTestEngine(nil)
	e.UpdateAt(time.Second)
	e.UpdateAt(500 * time.Millisecond)
	if e.Now() != time.Second {
		t.Errorf("Now = %v after a backward sample, want 1s", e.Now())
	}
	if e.Frames() != 2 {
		t.Errorf("Frames = %d, want 2", e.Frames())
	}
}

func TestScrollFlag(t *testing.T) {
	e, clock := newTestEngine(nil)
	header := NewElement("header", Rect{Width: 1280, Height: 80})
	header.Fixed = true
	e.AddScrollFlag(header, "scrolled", 50)

	step := func(dy float64) {
		e.InjectScroll(dy)
		clock.Advance(16 * time.Millisecond)
		e.Update()
	}
	step(50)
	if header.HasClass("scrolled") {
		t.Error("scrolled set at exactly the threshold")
	}
	step(1)
	if !header.HasClass("scrolled") {
		t.Error("scrolled not set past the threshold")
	}
	step(-51)
	if header.HasClass("scrolled") {
		t.Error("scrolled not cleared at the top")
	}
}

func TestFindAndElements(t *testing.T) {
	e, clock := newTestEngine(nil)
	a := NewElement("a", Rect{})
	b := NewElement("b", Rect{})
	e.Add(a, b)
	if e.Find("b") != b {
		t.Error("Find(b) mismatch")
	}
	b.Dispose()
	if e.Find("b") != nil {
		t.Error("Find returned a disposed element")
	}
	clock.Set(time.Millisecond)
	e.Update()
	if len(e.Elements()) != 1 {
		t.Errorf("Elements = %d after dispose, want 1", len(e.Elements()))
	}
}

func TestAddNilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil element")
		}
	}()
	e, _ := newTestEngine(nil)
	e.Add(nil)
}

func TestDebugModeLogsFrames(t *testing.T) {
	var buf bytes.Buffer
	e, clock := newTestEngine(&buf)
	e.SetDebugMode(true)
	e.After(0, func() {})
	clock.Set(time.Millisecond)
	e.Update()
	out := buf.String()
	if !strings.Contains(out, "msg=frame") || !strings.Contains(out, "timers=1") {
		t.Errorf("debug log missing frame stats: %s", out)
	}

	buf.Reset()
	e.SetDebugMode(false)
	e.Update()
	if buf.Len() != 0 {
		t.Errorf("logged with debug off: %s", buf.String())
	}
}
