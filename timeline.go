package lumen

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// TimelineEntry animates one property of one target between two values.
// Start and Duration are in the timeline's unit: seconds for played
// timelines, normalized progress for scrubbed ones.
type TimelineEntry struct {
	Target   *Element
	Property Property
	From, To float64
	Start    float64
	Duration float64
	// Ease is an easing id resolved through the timeline's EaseRegistry.
	Ease string
	// Priority orders writers of the same target property. Entries are
	// applied ascending by (Priority, Start, insertion order), so among
	// equal priorities the entry that starts later in time wins once it has
	// started. Played and scrubbed timelines also claim their properties
	// with the winning entry's priority against tweens in the same frame.
	Priority int
}

// End returns Start + Duration.
func (e TimelineEntry) End() float64 {
	return e.Start + e.Duration
}

type timelineEntry struct {
	TimelineEntry
	ease  EaseFunc
	index int
}

// Sample is the computed value of one target property at a position.
type Sample struct {
	Target   *Element
	Property Property
	Value    float64
	// Priority is that of the entry that produced Value.
	Priority int
}

type propKey struct {
	target *Element
	prop   Property
}

// Timeline is an ordered set of entries evaluated against a position.
// Evaluation is a pure function of the position: seeking to the same
// position always produces the same state, whichever direction it was
// reached from.
type Timeline struct {
	Name string

	entries []timelineEntry
	eases   *EaseRegistry
	length  float64

	sampleBuf []Sample
	keyIndex  map[propKey]int
	// warn reports a skipped write on a disposed target.
	warn func(el *Element, op string)
}

// NewTimeline creates an empty timeline resolving easings through eases.
// A nil registry uses the built-in curves.
func NewTimeline(name string, eases *EaseRegistry) *Timeline {
	if eases == nil {
		eases = NewEaseRegistry()
	}
	return &Timeline{Name: name, eases: eases, keyIndex: make(map[propKey]int)}
}

// Add appends entries. Negative durations are treated as 0 (the entry
// jumps to its end value at Start) and negative starts as 0.
func (t *Timeline) Add(entries ...TimelineEntry) {
	for _, e := range entries {
		if e.Duration < 0 {
			e.Duration = 0
		}
		if e.Start < 0 {
			e.Start = 0
		}
		t.entries = append(t.entries, timelineEntry{
			TimelineEntry: e,
			ease:          t.eases.Resolve(e.Ease),
			index:         len(t.entries),
		})
		if end := e.End(); end > t.length {
			t.length = end
		}
	}
	slices.SortStableFunc(t.entries, func(a, b timelineEntry) int {
		if a.Priority != b.Priority {
			if a.Priority < b.Priority {
				return -1
			}
			return 1
		}
		if a.Start != b.Start {
			if a.Start < b.Start {
				return -1
			}
			return 1
		}
		return a.index - b.index
	})
}

// Entries returns a copy of the entries in application order.
func (t *Timeline) Entries() []TimelineEntry {
	out := make([]TimelineEntry, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.TimelineEntry
	}
	return out
}

// Length returns the end of the last entry.
func (t *Timeline) Length() float64 {
	return t.length
}

// LocalProgress maps a timeline position to an entry's progress:
// clamp((pos - start) / duration, 0, 1). A zero duration is a step at start.
func LocalProgress(pos, start, duration float64) float64 {
	if duration <= 0 || pos >= start+duration {
		if pos >= start {
			return 1
		}
		return 0
	}
	return clamp01((pos - start) / duration)
}

// Sample computes the value of every animated target property at pos
// without touching the targets. For each target property the value comes
// from the last entry, in application order, that has started by pos; if
// none has started, from the first entry's From. The returned slice is
// reused by the next call.
func (t *Timeline) Sample(pos float64) []Sample {
	t.sampleBuf = t.sampleBuf[:0]
	clear(t.keyIndex)
	for i := range t.entries {
		e := &t.entries[i]
		key := propKey{e.Target, e.Property}
		idx, seen := t.keyIndex[key]
		if seen && pos < e.Start {
			continue
		}
		local := LocalProgress(pos, e.Start, e.Duration)
		var v float64
		switch {
		case local >= 1:
			v = e.To
		case local <= 0:
			v = e.From
		default:
			v = lerp(e.From, e.To, e.ease(local))
		}
		if !seen {
			t.keyIndex[key] = len(t.sampleBuf)
			t.sampleBuf = append(t.sampleBuf, Sample{Target: e.Target, Property: e.Property, Value: v, Priority: e.Priority})
			continue
		}
		t.sampleBuf[idx].Value = v
		t.sampleBuf[idx].Priority = e.Priority
	}
	return t.sampleBuf
}

// Seek applies the state at pos to the targets. Disposed targets are
// skipped.
func (t *Timeline) Seek(pos float64) {
	t.seek(pos, 0)
}

func (t *Timeline) seek(pos float64, frame uint64) {
	for _, s := range t.Sample(pos) {
		if s.Target == nil {
			continue
		}
		if s.Target.IsDisposed() {
			if t.warn != nil {
				t.warn(s.Target, "timeline seek")
			}
			continue
		}
		s.Target.write(s.Property, s.Value, s.Priority, frame)
	}
}

// SeekProgress applies the state at normalized progress p in [0, 1] of the
// timeline's length.
func (t *Timeline) SeekProgress(p float64) {
	t.Seek(clamp01(p) * t.length)
}

// --- Drivers ---

// Playback drives a timeline from engine time. It plays once from the
// frame it was started on and never reverses.
type Playback struct {
	tl        *Timeline
	start     time.Duration
	last      float64
	done      bool
	cancelled bool

	// OnComplete runs once when the playback reaches the end.
	OnComplete func()
}

// Cancel stops the playback. No further writes happen after Cancel.
func (p *Playback) Cancel() {
	p.cancelled = true
}

// Done reports whether the playback finished or was cancelled.
func (p *Playback) Done() bool {
	return p.done || p.cancelled
}

// Position returns the last position the timeline was seeked to.
func (p *Playback) Position() float64 {
	return p.last
}

func (p *Playback) advance(now time.Duration, frame uint64) (finished bool) {
	if p.Done() {
		return false
	}
	pos := (now - p.start).Seconds()
	if pos < p.last {
		pos = p.last
	}
	if pos >= p.tl.length {
		pos = p.tl.length
		p.done = true
	}
	p.last = pos
	p.tl.seek(pos, frame)
	return p.done
}

// ScrubHandle binds a timeline to a scroll trigger. The timeline state is
// reapplied every frame, even when the scroll offset has not moved, so a
// scrub keeps its properties against lower priority writers.
type ScrubHandle struct {
	tl        *Timeline
	trigger   ScrollTrigger
	last      float64
	cancelled bool
}

// Cancel unbinds the timeline from scroll.
func (h *ScrubHandle) Cancel() {
	h.cancelled = true
}

// Progress returns the last applied progress.
func (h *ScrubHandle) Progress() float64 {
	return h.last
}

func (h *ScrubHandle) advance(scrollY float64, frame uint64) {
	if h.cancelled {
		return
	}
	p := h.trigger.Progress(scrollY)
	h.last = p
	h.tl.seek(clamp01(p)*h.tl.length, frame)
}

// --- Builder ---

// PropValue is a property and its destination value.
type PropValue struct {
	Property Property
	Value    float64
}

// TweenSpec describes a tween added to a TimelineBuilder.
type TweenSpec struct {
	Targets  []*Element
	To       []PropValue
	Duration float64
	Ease     string
	// Stagger offsets the start of each successive target.
	Stagger  float64
	Priority int
}

// TimelineBuilder assembles a timeline from sequential tweens with
// relative positions. From values chain: a property's From is the To of the
// previous tween on the same target property, or the target's current value.
type TimelineBuilder struct {
	tl        *Timeline
	end       float64
	prevStart float64
	prevEnd   float64
	chain     map[propKey]float64
	err       error
}

// NewTimelineBuilder starts building a timeline.
func NewTimelineBuilder(name string, eases *EaseRegistry) *TimelineBuilder {
	return &TimelineBuilder{
		tl:    NewTimeline(name, eases),
		chain: make(map[propKey]float64),
	}
}

// To appends a tween at position. Position forms:
//
//	""      end of the timeline
//	"<"     start of the previous tween
//	">"     end of the previous tween
//	"+=0.5" end of the timeline plus 0.5
//	"-=1"   end of the timeline minus 1 (clamped at 0)
//	"2"     absolute position
func (b *TimelineBuilder) To(spec TweenSpec, position string) *TimelineBuilder {
	if b.err != nil {
		return b
	}
	start, err := ParsePosition(position, b.end, b.prevStart, b.prevEnd)
	if err != nil {
		b.err = err
		return b
	}
	dur := spec.Duration
	if dur < 0 {
		dur = 0
	}
	stagger := spec.Stagger
	if stagger < 0 {
		stagger = 0
	}
	tweenEnd := start
	for i, target := range spec.Targets {
		if target == nil {
			continue
		}
		s := start + float64(i)*stagger
		for _, pv := range spec.To {
			key := propKey{target, pv.Property}
			from, ok := b.chain[key]
			if !ok {
				from = target.Property(pv.Property)
			}
			b.tl.Add(TimelineEntry{
				Target:   target,
				Property: pv.Property,
				From:     from,
				To:       pv.Value,
				Start:    s,
				Duration: dur,
				Ease:     spec.Ease,
				Priority: spec.Priority,
			})
			b.chain[key] = pv.Value
		}
		if s+dur > tweenEnd {
			tweenEnd = s + dur
		}
	}
	b.prevStart = start
	b.prevEnd = tweenEnd
	if tweenEnd > b.end {
		b.end = tweenEnd
	}
	return b
}

// Build returns the timeline or the first position error.
func (b *TimelineBuilder) Build() (*Timeline, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tl, nil
}

// ParsePosition resolves a position string against the current timeline
// end and the previous tween's start and end.
func ParsePosition(pos string, end, prevStart, prevEnd float64) (float64, error) {
	pos = strings.TrimSpace(pos)
	switch {
	case pos == "":
		return end, nil
	case pos == "<":
		return prevStart, nil
	case pos == ">":
		return prevEnd, nil
	case strings.HasPrefix(pos, "+="), strings.HasPrefix(pos, "-="):
		v, err := strconv.ParseFloat(pos[2:], 64)
		if err != nil {
			return 0, fmt.Errorf("parse position %q: %w", pos, err)
		}
		if pos[0] == '-' {
			v = -v
		}
		return max(end+v, 0), nil
	}
	v, err := strconv.ParseFloat(pos, 64)
	if err != nil {
		return 0, fmt.Errorf("parse position %q: %w", pos, err)
	}
	return max(v, 0), nil
}
