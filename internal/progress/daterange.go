package progress

import (
	"time"

	"github.com/noah-isme/lecture-progress-api/internal/models"
)

// EndOfDay returns the last instant of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// InRange reports whether at falls within r. The end bound covers its whole
// calendar day.
func InRange(at time.Time, r models.DateRange) bool {
	if r.Start != nil && at.Before(*r.Start) {
		return false
	}
	if r.End != nil && at.After(EndOfDay(*r.End)) {
		return false
	}
	return true
}

// FilterByDateRange keeps the events completed within r, preserving order. An
// empty range returns events unchanged.
func FilterByDateRange(events []models.CompletionEvent, r models.DateRange) []models.CompletionEvent {
	if r.IsZero() {
		return events
	}
	out := make([]models.CompletionEvent, 0, len(events))
	for _, event := range events {
		if InRange(event.CompletedAt, r) {
			out = append(out, event)
		}
	}
	return out
}
