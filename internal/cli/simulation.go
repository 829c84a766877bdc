package cli

import (
	"math"
	"slices"
	"time"

	"github.com/phanxgames/lumen"
	"github.com/phanxgames/lumen/manifest"
)

// classChange is a class toggled on an element during a simulated run.
type classChange struct {
	At      time.Duration
	ScrollY float64
	Element string
	Class   string
	On      bool
}

// scrollPlan describes a scripted scroll down the page.
type scrollPlan struct {
	// Step is the scroll delta per wheel event.
	Step float64
	// Interval separates wheel events.
	Interval time.Duration
	// Settle keeps simulating after the last wheel event.
	Settle time.Duration
	// TPS is the simulated frame rate.
	TPS int
}

func (p scrollPlan) frame() time.Duration {
	if p.TPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(p.TPS)
}

// wheelEvents is the number of Step-sized scrolls needed to reach max.
func (p scrollPlan) wheelEvents(max float64) int {
	if p.Step <= 0 || max <= 0 {
		return 0
	}
	return int(math.Ceil(max / p.Step))
}

// simulate starts the page and scrolls it to the bottom on the fake clock,
// recording every class change in the order it happened.
func simulate(page *manifest.Page, clock *lumen.FakeClock, plan scrollPlan) []classChange {
	e := page.Engine
	names := page.ElementNames()
	seen := make(map[string][]string, len(names))
	for _, name := range names {
		seen[name] = page.Elements[name].Classes()
	}

	var changes []classChange
	record := func() {
		for _, name := range names {
			now := page.Elements[name].Classes()
			prev := seen[name]
			if slices.Equal(prev, now) {
				continue
			}
			for _, c := range now {
				if !slices.Contains(prev, c) {
					changes = append(changes, classChange{At: e.Now(), ScrollY: e.ScrollY(), Element: name, Class: c, On: true})
				}
			}
			for _, c := range prev {
				if !slices.Contains(now, c) {
					changes = append(changes, classChange{At: e.Now(), ScrollY: e.ScrollY(), Element: name, Class: c, On: false})
				}
			}
			seen[name] = now
		}
	}

	frame := plan.frame()
	step := func(d time.Duration) {
		for elapsed := time.Duration(0); elapsed < d; elapsed += frame {
			clock.Advance(frame)
			e.Update()
			record()
		}
	}

	page.Start()
	e.Update()
	record()
	for range plan.wheelEvents(e.Scroller().Max) {
		e.InjectScroll(plan.Step)
		step(plan.Interval)
	}
	step(plan.Settle)
	return changes
}
