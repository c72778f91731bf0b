// Package schedule provides the pure dose-timeline arithmetic for treatment
// medications: expected dose timestamps, next-dose selection, the due
// window, and intake matching. No I/O — everything is re-derivable from the
// stored treatment fields.
package schedule

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// DueWindow is the lookahead during which a dose is eligible for a
	// reminder. The scheduler must tick at least this often or doses are
	// silently skipped.
	DueWindow = 5 * time.Minute

	// IntakeTolerance is the match window around an expected dose within
	// which a logged intake counts as that dose having been taken.
	IntakeTolerance = 30 * time.Minute
)

// ErrInvalidScheduleParameters is returned when frequency or duration is not
// a positive value.
var ErrInvalidScheduleParameters = errors.New("invalid schedule parameters")

// --------------------------------------------------------------------------
// Timeline
// --------------------------------------------------------------------------

// Timeline is the dose schedule of one treatment medication: one dose every
// FrequencyHours starting at Start, for DurationDays days. The end of the
// treatment window (Start + DurationDays·24h) is exclusive, so the total
// dose count is always ceil(DurationDays·24 / FrequencyHours) — the same
// figure the stock-sufficiency check uses at treatment creation.
type Timeline struct {
	Start          time.Time
	FrequencyHours int
	DurationDays   int
}

// NewTimeline validates the schedule parameters and returns the timeline.
func NewTimeline(start time.Time, frequencyHours, durationDays int) (Timeline, error) {
	if frequencyHours <= 0 || durationDays <= 0 {
		return Timeline{}, fmt.Errorf("%w: frequency_hours=%d duration_days=%d",
			ErrInvalidScheduleParameters, frequencyHours, durationDays)
	}
	return Timeline{Start: start, FrequencyHours: frequencyHours, DurationDays: durationDays}, nil
}

// End returns the exclusive end of the treatment window.
func (t Timeline) End() time.Time {
	return t.Start.Add(time.Duration(t.DurationDays) * 24 * time.Hour)
}

// Count returns the total number of doses in the window.
func (t Timeline) Count() int {
	return int(math.Ceil(float64(t.DurationDays*24) / float64(t.FrequencyHours)))
}

// At returns the timestamp of dose k (0-based). k is not range-checked;
// callers iterating past Count get timestamps outside the window.
func (t Timeline) At(k int) time.Time {
	return t.Start.Add(time.Duration(k*t.FrequencyHours) * time.Hour)
}

// Doses returns the ordered (index, timestamp) sequence of all doses in the
// window. The sequence is lazy and restartable.
func (t Timeline) Doses() iter.Seq2[int, time.Time] {
	return func(yield func(int, time.Time) bool) {
		end := t.End()
		for k := 0; ; k++ {
			ts := t.At(k)
			if !ts.Before(end) {
				return
			}
			if !yield(k, ts) {
				return
			}
		}
	}
}

// --------------------------------------------------------------------------
// Due-dose selection
// --------------------------------------------------------------------------

// NextIndex returns the index of the next dose at or after now. Doses whose
// time has already passed are never revisited: after a scheduler outage the
// detector resumes with the upcoming dose rather than a backlog.
func (t Timeline) NextIndex(now time.Time) int {
	if now.Before(t.Start) {
		return 0
	}
	elapsed := now.Sub(t.Start)
	freq := time.Duration(t.FrequencyHours) * time.Hour
	return int(elapsed/freq) + 1
}

// DueDose returns the single dose inside the due window around now, or
// ok=false when none is. Candidates are the upcoming dose and the most
// recent one: a dose that passed moments ago (within DueWindow) is still
// due, anything older is treated as missed and never retroactively
// reported. Frequencies are whole hours, so at most one dose can sit in
// the window.
func (t Timeline) DueDose(now time.Time) (index int, ts time.Time, ok bool) {
	next := t.NextIndex(now)
	end := t.End()
	for _, k := range []int{next - 1, next} {
		if k < 0 {
			continue
		}
		doseAt := t.At(k)
		if !doseAt.Before(end) {
			continue
		}
		if InWindow(now, doseAt) {
			return k, doseAt, true
		}
	}
	return 0, time.Time{}, false
}

// InWindow reports whether a dose at ts is due now: within DueWindow on
// either side of now. A dose more than DueWindow in the past is missed,
// not due.
func InWindow(now, ts time.Time) bool {
	delta := ts.Sub(now)
	if delta < 0 {
		delta = -delta
	}
	return delta <= DueWindow
}

// TakenNear reports whether any of the given intake timestamps falls within
// IntakeTolerance of the expected dose time.
func TakenNear(doseAt time.Time, intakes []time.Time) bool {
	for _, taken := range intakes {
		d := taken.Sub(doseAt)
		if d < 0 {
			d = -d
		}
		if d <= IntakeTolerance {
			return true
		}
	}
	return false
}
