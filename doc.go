// Package lumen is a scroll and intersection animation engine for landing
// pages, galleries and product catalogs.
//
// Lumen drives time-based and scroll-based visual transitions on a set of
// observed elements: reveal-once entrances, staggered batches, scrubbed
// timelines, counters, overlay toggles, pointer effects and particle
// backdrops. The core is pure and frame-driven; rendering is left to the
// host through an [Applier].
//
// # Quick start
//
//	clock := &lumen.FakeClock{} // or lumen.NewWallClock()
//	engine := lumen.NewEngine(lumen.Options{
//		Clock:    clock,
//		Viewport: lumen.Rect{Width: 1280, Height: 800},
//		Applier:  lumen.ApplierFunc(render),
//	})
//
//	card := lumen.NewElement("card", lumen.Rect{Y: 900, Width: 300, Height: 400})
//	card.Opacity = 0
//	engine.Reveal(card, lumen.RevealOptions{
//		Observe: lumen.ObserveOptions{Threshold: 0.15},
//		Group:   "cards",
//		Run: func(el *lumen.Element) {
//			engine.Tween(lumen.TweenEntrance(el, 0.7, engine.Eases().Resolve("smooth")))
//		},
//	})
//
// Call [Engine.Update] once per frame. Each frame samples the [Clock]
// once; every timer, stagger, tween, counter and timeline update in that
// frame uses the same sample.
//
// # Components
//
//   - [ObservationRegistry]: visibility tracking with threshold and root
//     margin, reveal-once unless repeatable.
//   - [Stagger]: delay(i) = (i mod K) * unit within a visibility batch.
//   - [Timeline]: entries evaluated as a pure function of position, driven
//     by [Engine.Play] (time) or [Engine.Scrub] (scroll).
//   - [ToggleGroup]: mutually exclusive overlays with Escape/backdrop close
//     and scroll lock.
//   - [Counter]: eased numeric display with cancellation.
//
// Tweens are built on [gween]. A window host for Ebitengine lives in
// lumen/ebitenhost; declarative pages are loaded by lumen/manifest.
//
// [gween]: https://github.com/tanema/gween
package lumen
