package lumen

import "time"

// frameStats holds per-frame counters. Timing is only populated when debug
// mode is on.
type frameStats struct {
	total   time.Duration
	timers  int
	batches int
	applied int
	panics  int
}

// debugLog reports the frame's stats at debug level.
func (e *Engine) debugLog(stats frameStats) {
	if !e.debug {
		return
	}
	e.log.Debug("frame",
		"frame", e.frames,
		"now", e.now,
		"total", stats.total,
		"timers", stats.timers,
		"batches", stats.batches,
		"applied", stats.applied,
		"panics", stats.panics,
		"pendingTimers", e.timers.len(),
		"tweens", len(e.tweens),
		"counters", len(e.counters),
		"observed", e.registry.Len(),
	)
}
