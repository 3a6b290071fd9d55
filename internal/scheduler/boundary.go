package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// boundary tracks one recurring fire point as an explicit watermark: `next`
// is the earliest instant the boundary may fire again. Correctness does not
// depend on polling frequency; duplicate ticks inside the same period cannot
// double-fire, and a long sleep over several periods collapses into a single
// catch-up fire.
type boundary struct {
	sched cron.Schedule
	next  time.Time
}

// newBoundary parses a standard 5-field cron spec and arms the watermark
// from `now`.
func newBoundary(spec string, now time.Time) (*boundary, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	return &boundary{sched: sched, next: sched.Next(now)}, nil
}

// due reports whether the boundary should fire at `now` and, if so, advances
// the watermark past `now` in one step.
func (b *boundary) due(now time.Time) bool {
	if now.Before(b.next) {
		return false
	}
	for !b.next.After(now) {
		b.next = b.sched.Next(b.next)
	}
	return true
}
