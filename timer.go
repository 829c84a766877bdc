package lumen

import (
	"slices"
	"time"
)

// timer is a one-shot callback due at an absolute engine time.
type timer struct {
	due       time.Duration
	seq       uint64
	owner     *Element // nil for timers not bound to an element
	fn        func()
	cancelled bool
	fired     bool
}

// TimerHandle cancels a pending timer. The zero value is a no-op handle.
type TimerHandle struct {
	t *timer
}

// Cancel stops the timer. Once Cancel returns the callback will not run,
// even if it is already due in the frame currently being processed.
func (h TimerHandle) Cancel() {
	if h.t != nil {
		h.t.cancelled = true
	}
}

// Active reports whether the timer is still waiting to fire.
func (h TimerHandle) Active() bool {
	return h.t != nil && !h.t.cancelled && !h.t.fired
}

// Due returns the absolute engine time the timer fires at.
func (h TimerHandle) Due() time.Duration {
	if h.t == nil {
		return 0
	}
	return h.t.due
}

// timerQueue holds pending timers. Timers fire ordered by due time, then by
// scheduling order.
type timerQueue struct {
	pending []*timer
	dueBuf  []*timer
	seq     uint64
}

func (q *timerQueue) add(due time.Duration, owner *Element, fn func()) *timer {
	q.seq++
	t := &timer{due: due, seq: q.seq, owner: owner, fn: fn}
	q.pending = append(q.pending, t)
	return t
}

// collect removes and returns every timer due at or before now, in firing
// order. The returned slice is reused by the next call.
func (q *timerQueue) collect(now time.Duration) []*timer {
	q.dueBuf = q.dueBuf[:0]
	keep := q.pending[:0]
	for _, t := range q.pending {
		switch {
		case t.cancelled:
		case t.due <= now:
			q.dueBuf = append(q.dueBuf, t)
		default:
			keep = append(keep, t)
		}
	}
	for i := len(keep); i < len(q.pending); i++ {
		q.pending[i] = nil
	}
	q.pending = keep
	slices.SortFunc(q.dueBuf, func(a, b *timer) int {
		if a.due != b.due {
			if a.due < b.due {
				return -1
			}
			return 1
		}
		if a.seq < b.seq {
			return -1
		}
		if a.seq > b.seq {
			return 1
		}
		return 0
	})
	return q.dueBuf
}

// len returns the number of timers still pending.
func (q *timerQueue) len() int {
	n := 0
	for _, t := range q.pending {
		if !t.cancelled {
			n++
		}
	}
	return n
}
