// Package status derives an event's lifecycle status from its dates and
// keeps the stored statuses in step with the clock.
package status

import (
	"time"

	"github.com/dukerupert/planner/internal/model"
)

// ComputeStatus derives the lifecycle status for an event with the given
// optional start and end. It never returns EventCancelled.
func ComputeStatus(start, end *time.Time, now time.Time) model.EventStatus {
	switch {
	case end != nil && now.After(*end):
		return model.EventCompleted
	case start != nil && now.Before(*start):
		return model.EventUpcoming
	case start != nil:
		// start <= now, and now <= end when end is set
		return model.EventInProgress
	default:
		return model.EventUpcoming
	}
}

// Next returns the status the event should hold at now, honoring the
// sticky Cancelled state. The bool reports whether it differs from the
// stored status.
func Next(e model.Event, now time.Time) (model.EventStatus, bool) {
	if e.Status == model.EventCancelled {
		return e.Status, false
	}
	s := ComputeStatus(e.StartDate, e.EndDate, now)
	return s, s != e.Status
}
