package lumen

import (
	"errors"
	"math"
	"strconv"
	"testing"
	"time"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestLocalProgress(t *testing.T) {
	tests := []struct {
		pos, start, dur float64
		want            float64
	}{
		{0, 1, 2, 0},
		{1, 1, 2, 0},
		{2, 1, 2, 0.5},
		{3, 1, 2, 1},
		{10, 1, 2, 1},
		{0.5, 1, 0, 0},
		{1, 1, 0, 1},
	}
	for _, tt := range tests {
		if got := LocalProgress(tt.pos, tt.start, tt.dur); !approx(got, tt.want) {
			t.Errorf("LocalProgress(%v, %v, %v) = %v, want %v", tt.pos, tt.start, tt.dur, got, tt.want)
		}
	}
}

func TestTimelineSeekIsPureFunctionOfPosition(t *testing.T) {
	el := NewElement("hero", Rect{})
	tl := NewTimeline("hero", nil)
	tl.Add(
		TimelineEntry{Target: el, Property: PropOpacity, From: 0, To: 1, Start: 0, Duration: 1, Ease: "power2.out"},
		TimelineEntry{Target: el, Property: PropTranslateY, From: 100, To: 0, Start: 0.5, Duration: 1, Ease: "power4.out"},
	)

	tl.Seek(0.8)
	wantOpacity, wantY := el.Opacity, el.TranslateY

	// Reach 0.8 again from both directions and after a detour.
	for _, path := range [][]float64{{0, 0.8}, {1.5, 0.8}, {0.3, 1.2, 0.1, 0.8}} {
		for _, p := range path {
			tl.Seek(p)
		}
		if !approx(el.Opacity, wantOpacity) || !approx(el.TranslateY, wantY) {
			t.Errorf("path %v: state (%v, %v), want (%v, %v)", path, el.Opacity, el.TranslateY, wantOpacity, wantY)
		}
	}
}

func TestTimelineEndpoints(t *testing.T) {
	el := NewElement("title", Rect{})
	tl := NewTimeline("t", nil)
	tl.Add(TimelineEntry{Target: el, Property: PropScale, From: 0.8, To: 1, Start: 0.2, Duration: 0.5, Ease: "back.out"})

	tl.Seek(0)
	if el.Scale != 0.8 {
		t.Errorf("before start: scale = %v, want 0.8", el.Scale)
	}
	tl.Seek(tl.Length())
	if el.Scale != 1 {
		t.Errorf("at end: scale = %v, want exactly 1", el.Scale)
	}
	tl.Seek(5)
	if el.Scale != 1 {
		t.Errorf("past end: scale = %v, want exactly 1", el.Scale)
	}
	if !approx(tl.Length(), 0.7) {
		t.Errorf("Length = %v, want 0.7", tl.Length())
	}
}

func TestTimelineLaterEntryWinsOnceStarted(t *testing.T) {
	el := NewElement("card", Rect{})
	tl := NewTimeline("t", nil)
	tl.Add(
		TimelineEntry{Target: el, Property: PropOpacity, From: 0, To: 1, Start: 0, Duration: 1},
		TimelineEntry{Target: el, Property: PropOpacity, From: 1, To: 0.2, Start: 2, Duration: 1},
	)
	tests := []struct {
		pos  float64
		want float64
	}{
		{0.5, 0.5},
		{1.5, 1},   // second has not started
		{2.5, 0.6}, // second owns the property
		{3, 0.2},
	}
	for _, tt := range tests {
		tl.Seek(tt.pos)
		if !approx(el.Opacity, tt.want) {
			t.Errorf("Seek(%v): opacity = %v, want %v", tt.pos, el.Opacity, tt.want)
		}
	}
}

func TestTimelinePriorityOrdersWriters(t *testing.T) {
	el := NewElement("card", Rect{})
	tl := NewTimeline("t", nil)
	// Added first but higher priority, so it is applied last.
	tl.Add(TimelineEntry{Target: el, Property: PropScale, From: 2, To: 2, Start: 0, Duration: 1, Priority: 1})
	tl.Add(TimelineEntry{Target: el, Property: PropScale, From: 0, To: 1, Start: 0, Duration: 1})

	tl.Seek(0.5)
	if el.Scale != 2 {
		t.Errorf("scale = %v, want 2 from the higher-priority entry", el.Scale)
	}
	entries := tl.Entries()
	if entries[0].Priority != 0 || entries[1].Priority != 1 {
		t.Errorf("entries not in application order: %+v", entries)
	}
}

func TestTimelineLaterStartWinsOverInsertionOrder(t *testing.T) {
	el := NewElement("card", Rect{})
	tl := NewTimeline("t", nil)
	// Inserted second but placed earlier in time, like a "<" position.
	tl.Add(TimelineEntry{Target: el, Property: PropOpacity, From: 0, To: 1, Start: 1, Duration: 1})
	tl.Add(TimelineEntry{Target: el, Property: PropOpacity, From: 0, To: 0.3, Start: 0, Duration: 0.5})

	tl.Seek(0.25)
	if !approx(el.Opacity, 0.15) {
		t.Errorf("Seek(0.25): opacity = %v, want 0.15 from the early entry", el.Opacity)
	}
	tl.Seek(1.5)
	if !approx(el.Opacity, 0.5) {
		t.Errorf("Seek(1.5): opacity = %v, want 0.5 from the later-starting entry", el.Opacity)
	}
	entries := tl.Entries()
	if entries[0].Start != 0 || entries[1].Start != 1 {
		t.Errorf("entries not ordered by start: %+v", entries)
	}
}

func TestTimelineSampleDoesNotWrite(t *testing.T) {
	el := NewElement("card", Rect{})
	el.Opacity = 0.3
	el.dirty = false
	tl := NewTimeline("t", nil)
	tl.Add(TimelineEntry{Target: el, Property: PropOpacity, From: 0, To: 1, Duration: 1})
	samples := tl.Sample(0.5)
	if len(samples) != 1 || !approx(samples[0].Value, 0.5) {
		t.Fatalf("samples = %+v", samples)
	}
	if el.Opacity != 0.3 || el.IsDirty() {
		t.Error("Sample must not modify targets")
	}
}

func TestTimelineNegativeDurationJumps(t *testing.T) {
	el := NewElement("card", Rect{})
	tl := NewTimeline("t", nil)
	tl.Add(TimelineEntry{Target: el, Property: PropOpacity, From: 0, To: 1, Start: 1, Duration: -3})
	tl.Seek(0.99)
	if el.Opacity != 0 {
		t.Errorf("before start: opacity = %v, want 0", el.Opacity)
	}
	tl.Seek(1)
	if el.Opacity != 1 {
		t.Errorf("at start: opacity = %v, want 1", el.Opacity)
	}
}

func TestTimelineSkipsDisposedTargets(t *testing.T) {
	live := NewElement("live", Rect{})
	dead := NewElement("dead", Rect{})
	tl := NewTimeline("t", nil)
	var warned []string
	tl.warn = func(el *Element, op string) { warned = append(warned, el.Name) }
	tl.Add(
		TimelineEntry{Target: dead, Property: PropOpacity, From: 0, To: 1, Duration: 1},
		TimelineEntry{Target: live, Property: PropOpacity, From: 0, To: 1, Duration: 1},
	)
	dead.Dispose()
	tl.Seek(1)
	if live.Opacity != 1 {
		t.Errorf("live opacity = %v, want 1", live.Opacity)
	}
	if len(warned) != 1 || warned[0] != "dead" {
		t.Errorf("warned = %v, want [dead]", warned)
	}
}

func TestPlaybackRunsOnceAndCompletes(t *testing.T) {
	clock := &FakeClock{}
	e := NewEngine(Options{Clock: clock})
	el := NewElement("title", Rect{})
	tl := e.NewTimeline("intro")
	tl.Add(TimelineEntry{Target: el, Property: PropOpacity, From: 0, To: 1, Duration: 1})

	p := e.Play(tl)
	if el.Opacity != 0 {
		t.Errorf("Play should seek to 0 immediately, opacity = %v", el.Opacity)
	}
	completed := 0
	p.OnComplete = func() { completed++ }

	clock.Set(500 * time.Millisecond)
	e.Update()
	if !approx(el.Opacity, 0.5) {
		t.Errorf("mid opacity = %v, want 0.5", el.Opacity)
	}
	clock.Set(2 * time.Second)
	e.Update()
	e.Update()
	if el.Opacity != 1 || !p.Done() || completed != 1 {
		t.Errorf("end: opacity=%v done=%v completed=%d", el.Opacity, p.Done(), completed)
	}
}

func TestPlaybackCancel(t *testing.T) {
	clock := &FakeClock{}
	e := NewEngine(Options{Clock: clock})
	el := NewElement("title", Rect{})
	tl := e.NewTimeline("intro")
	tl.Add(TimelineEntry{Target: el, Property: PropOpacity, From: 0, To: 1, Duration: 1})
	p := e.Play(tl)

	clock.Set(250 * time.Millisecond)
	e.Update()
	at := el.Opacity
	p.Cancel()
	clock.Set(time.Second)
	e.Update()
	if el.Opacity != at {
		t.Errorf("opacity changed after Cancel: %v -> %v", at, el.Opacity)
	}
}

func TestScrubFollowsScrollBothWays(t *testing.T) {
	clock := &FakeClock{}
	e := NewEngine(Options{Clock: clock, Viewport: Rect{Width: 1000, Height: 800}})
	e.Scroller().Duration = 0
	el := NewElement("panel", Rect{})
	tl := e.NewTimeline("panel")
	tl.Add(TimelineEntry{Target: el, Property: PropTranslateX, From: 0, To: -300, Duration: 1})
	h := e.Scrub(tl, ScrollTrigger{Start: 1000, End: 2000})

	steps := []struct {
		dy   float64
		want float64
	}{
		{1500, -150},
		{500, -300},
		{-500, -150},
		{-1000, 0},
	}
	for _, s := range steps {
		e.InjectScroll(s.dy)
		clock.Advance(16 * time.Millisecond)
		e.Update()
		if !approx(el.TranslateX, s.want) {
			t.Errorf("after scroll %v: translateX = %v, want %v (progress %v)", s.dy, el.TranslateX, s.want, h.Progress())
		}
	}
}

func TestScrubOutranksLowerPriorityTween(t *testing.T) {
	clock := &FakeClock{}
	e := NewEngine(Options{Clock: clock, Viewport: Rect{Width: 1000, Height: 800}})
	el := NewElement("hero", Rect{})
	tl := e.NewTimeline("fade")
	tl.Add(TimelineEntry{Target: el, Property: PropOpacity, From: 0, To: 1, Duration: 1, Priority: 10})
	e.Scrub(tl, ScrollTrigger{Start: 1000, End: 2000})
	if el.Opacity != 0 {
		t.Fatalf("scrub should seek immediately, opacity = %v", el.Opacity)
	}

	e.Tween(TweenOpacity(el, 0.5, 0.1, nil))
	for i := 0; i < 20; i++ {
		clock.Advance(16 * time.Millisecond)
		e.Update()
		if el.Opacity != 0 {
			t.Fatalf("frame %d: opacity = %v, want 0 held by the scrub", i, el.Opacity)
		}
	}
}

func TestHigherPriorityTweenOutranksScrub(t *testing.T) {
	clock := &FakeClock{}
	e := NewEngine(Options{Clock: clock, Viewport: Rect{Width: 1000, Height: 800}})
	el := NewElement("hero", Rect{})
	tl := e.NewTimeline("fade")
	tl.Add(TimelineEntry{Target: el, Property: PropOpacity, From: 0, To: 1, Duration: 1})
	e.Scrub(tl, ScrollTrigger{Start: 1000, End: 2000})

	g := TweenOpacity(el, 1, 1, nil)
	g.Priority = 5
	e.Tween(g)
	for i := 0; i < 10; i++ {
		clock.Advance(16 * time.Millisecond)
		e.Update()
	}
	if el.Opacity <= 0 {
		t.Errorf("opacity = %v, want the higher priority tween to win", el.Opacity)
	}
}

func TestBuilderPositions(t *testing.T) {
	a := NewElement("a", Rect{})
	b := NewElement("b", Rect{})
	a.Opacity, b.Opacity = 0, 0

	tl, err := NewTimelineBuilder("hero", nil).
		To(TweenSpec{Targets: []*Element{a, b}, To: []PropValue{{PropOpacity, 1}}, Duration: 1.2, Ease: "power4.out", Stagger: 0.2}, "").
		To(TweenSpec{Targets: []*Element{a}, To: []PropValue{{PropOpacity, 0.5}}, Duration: 1, Ease: "power3.out"}, "-=1").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	entries := tl.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	starts := []float64{0, 0.2, 0.4}
	for i, en := range entries {
		if !approx(en.Start, starts[i]) {
			t.Errorf("entry %d start = %v, want %v", i, en.Start, starts[i])
		}
	}
	// The second tween on a chains from the first tween's To.
	if entries[2].From != 1 {
		t.Errorf("chained From = %v, want 1", entries[2].From)
	}
	if !approx(tl.Length(), 1.4) {
		t.Errorf("Length = %v, want 1.4", tl.Length())
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		pos  string
		want float64
	}{
		{"", 3},
		{"<", 1},
		{">", 2.5},
		{"+=0.5", 3.5},
		{"-=1", 2},
		{"-=10", 0},
		{"1.25", 1.25},
		{"-4", 0},
	}
	for _, tt := range tests {
		got, err := ParsePosition(tt.pos, 3, 1, 2.5)
		if err != nil {
			t.Errorf("ParsePosition(%q): %v", tt.pos, err)
			continue
		}
		if !approx(got, tt.want) {
			t.Errorf("ParsePosition(%q) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestParsePositionErrors(t *testing.T) {
	for _, pos := range []string{"soon", "+=x", "-="} {
		_, err := ParsePosition(pos, 0, 0, 0)
		if err == nil {
			t.Errorf("ParsePosition(%q) succeeded, want error", pos)
			continue
		}
		if !errors.Is(err, strconv.ErrSyntax) {
			t.Errorf("ParsePosition(%q) error %v does not wrap strconv.ErrSyntax", pos, err)
		}
	}

	_, err := NewTimelineBuilder("bad", nil).
		To(TweenSpec{}, "later").
		To(TweenSpec{}, "").
		Build()
	if err == nil {
		t.Error("Build should return the first position error")
	}
}
