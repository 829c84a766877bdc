package lumen

import (
	"slices"
	"time"
)

// Stagger spreads the callbacks of one visibility batch over time:
// delay(i) = (i mod Modulus) * Unit.
type Stagger struct {
	// Modulus wraps the position so long batches restart the cascade.
	// Values <= 0 disable wrapping.
	Modulus int
	// Unit is the delay step between consecutive positions.
	Unit time.Duration
	// ByRegistration keys the position on the element's registration order
	// instead of its index within the batch.
	ByRegistration bool
}

// DefaultStagger matches the catalog reveal: four columns, 120ms apart.
var DefaultStagger = Stagger{Modulus: 4, Unit: 120 * time.Millisecond}

// Delay returns the delay for the element at position i.
func (s Stagger) Delay(i int) time.Duration {
	if i < 0 {
		i = 0
	}
	if s.Modulus > 0 {
		i %= s.Modulus
	}
	if s.Unit <= 0 {
		return 0
	}
	return time.Duration(i) * s.Unit
}

func (s Stagger) position(e Entry) int {
	if s.ByRegistration {
		return e.Order
	}
	return e.Position
}

// StaggerPlan is one scheduled callback of a batch.
type StaggerPlan struct {
	Entry Entry
	Delay time.Duration
}

// Plan computes the delays for batch and returns them in firing order:
// non-decreasing delay, ties broken by registration order. Plan is pure.
func (s Stagger) Plan(batch []Entry) []StaggerPlan {
	plan := make([]StaggerPlan, len(batch))
	for i, e := range batch {
		plan[i] = StaggerPlan{Entry: e, Delay: s.Delay(s.position(e))}
	}
	slices.SortStableFunc(plan, func(a, b StaggerPlan) int {
		switch {
		case a.Delay < b.Delay:
			return -1
		case a.Delay > b.Delay:
			return 1
		case a.Entry.Order < b.Entry.Order:
			return -1
		case a.Entry.Order > b.Entry.Order:
			return 1
		}
		return 0
	})
	return plan
}

// Schedule starts one independent timer per element of batch. fn runs after
// the element's delay unless the element is disposed or the handle is
// cancelled first.
func (e *Engine) Schedule(s Stagger, batch []Entry, fn func(*Element)) []TimerHandle {
	plan := s.Plan(batch)
	handles := make([]TimerHandle, len(plan))
	for i, p := range plan {
		el := p.Entry.Element
		handles[i] = e.AfterFor(el, p.Delay, func() { fn(el) })
	}
	return handles
}

// Step is one stage of a fixed entrance sequence.
type Step struct {
	Element *Element
	Delay   time.Duration
	Run     func(*Element)
}

// Cascade schedules steps at their fixed delays from now, the way a page
// loader hands off to a header, then the gallery, then the footer.
// Steps with equal delays fire in slice order.
func (e *Engine) Cascade(steps []Step) []TimerHandle {
	handles := make([]TimerHandle, len(steps))
	for i, st := range steps {
		st := st
		if st.Run == nil {
			continue
		}
		handles[i] = e.AfterFor(st.Element, st.Delay, func() { st.Run(st.Element) })
	}
	return handles
}
