package schedule

import (
	"errors"
	"testing"
	"time"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func mustTimeline(t *testing.T, freq, days int) Timeline {
	t.Helper()
	tl, err := NewTimeline(start, freq, days)
	if err != nil {
		t.Fatalf("NewTimeline(%d, %d): %v", freq, days, err)
	}
	return tl
}

func TestNewTimelineInvalidParameters(t *testing.T) {
	cases := []struct {
		name string
		freq int
		days int
	}{
		{"zero frequency", 0, 2},
		{"negative frequency", -8, 2},
		{"zero duration", 8, 0},
		{"negative duration", 8, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTimeline(start, tc.freq, tc.days)
			if !errors.Is(err, ErrInvalidScheduleParameters) {
				t.Fatalf("got %v, want ErrInvalidScheduleParameters", err)
			}
		})
	}
}

func TestTimelineCount(t *testing.T) {
	cases := []struct {
		freq, days, want int
	}{
		{8, 2, 6},   // 48h/8h, divides exactly
		{7, 2, 7},   // ceil(48/7)
		{24, 1, 1},  // single daily dose
		{1, 1, 24},  // hourly
		{12, 7, 14}, // twice daily for a week
		{5, 1, 5},   // ceil(24/5)
	}
	for _, tc := range cases {
		tl := mustTimeline(t, tc.freq, tc.days)
		if got := tl.Count(); got != tc.want {
			t.Errorf("Count(freq=%d, days=%d) = %d, want %d", tc.freq, tc.days, got, tc.want)
		}
	}
}

// The treatment window end is exclusive: a dose landing exactly on
// start+duration is not scheduled, keeping Count equal to
// ceil(durationDays*24/frequencyHours) for every input.
func TestTimelineBoundary(t *testing.T) {
	tl := mustTimeline(t, 8, 2)

	var got []time.Time
	for _, ts := range tl.Doses() {
		got = append(got, ts)
	}

	want := []time.Time{
		start,
		start.Add(8 * time.Hour),
		start.Add(16 * time.Hour),
		start.Add(24 * time.Hour),
		start.Add(32 * time.Hour),
		start.Add(40 * time.Hour),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d doses, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("dose %d = %v, want %v", i, got[i], want[i])
		}
	}
	if last := got[len(got)-1]; !last.Before(tl.End()) {
		t.Errorf("last dose %v not before window end %v", last, tl.End())
	}
}

func TestDosesMatchesCountAndSpacing(t *testing.T) {
	for _, tc := range []struct{ freq, days int }{{8, 2}, {7, 2}, {6, 3}, {1, 1}, {48, 1}} {
		tl := mustTimeline(t, tc.freq, tc.days)
		n := 0
		prev := time.Time{}
		for k, ts := range tl.Doses() {
			if k != n {
				t.Fatalf("freq=%d days=%d: index %d, want %d", tc.freq, tc.days, k, n)
			}
			if n > 0 {
				if gap := ts.Sub(prev); gap != time.Duration(tc.freq)*time.Hour {
					t.Fatalf("freq=%d days=%d: gap %v at dose %d", tc.freq, tc.days, gap, k)
				}
			}
			prev = ts
			n++
		}
		if want := tl.Count(); n != want {
			t.Errorf("freq=%d days=%d: iterated %d doses, Count=%d", tc.freq, tc.days, n, want)
		}
	}
}

func TestDosesRestartable(t *testing.T) {
	tl := mustTimeline(t, 8, 2)
	seq := tl.Doses()

	first := 0
	for range seq {
		first++
		if first == 2 {
			break
		}
	}

	second := 0
	for range seq {
		second++
	}
	if second != tl.Count() {
		t.Errorf("second iteration yielded %d doses, want %d", second, tl.Count())
	}
}

func TestNextIndex(t *testing.T) {
	tl := mustTimeline(t, 8, 2)
	cases := []struct {
		now  time.Time
		want int
	}{
		{start.Add(-time.Hour), 0},
		{start, 1}, // dose 0 is exactly now; next is 1
		{start.Add(3 * time.Hour), 1},
		{start.Add(8 * time.Hour), 2},
		{start.Add(9 * time.Hour), 2},
		{start.Add(23 * time.Hour), 3},
	}
	for _, tc := range cases {
		if got := tl.NextIndex(tc.now); got != tc.want {
			t.Errorf("NextIndex(%v) = %d, want %d", tc.now, got, tc.want)
		}
	}
}

func TestDueWindowBoundary(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		dose time.Time
		due  bool
	}{
		{"five minutes ahead", now.Add(5 * time.Minute), true},
		{"just past lookahead", now.Add(5*time.Minute + time.Second), false},
		{"one second ago", now.Add(-time.Second), true},
		{"just past the window", now.Add(-5*time.Minute - time.Second), false},
		{"exactly now", now, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InWindow(now, tc.dose); got != tc.due {
				t.Errorf("InWindow(%v, %v) = %v, want %v", now, tc.dose, got, tc.due)
			}
		})
	}
}

func TestDueDose(t *testing.T) {
	tl := mustTimeline(t, 8, 2)

	// Two minutes before the 08:00 dose.
	now := start.Add(8*time.Hour - 2*time.Minute)
	k, ts, ok := tl.DueDose(now)
	if !ok || k != 1 || !ts.Equal(start.Add(8*time.Hour)) {
		t.Fatalf("DueDose(%v) = (%d, %v, %v), want dose 1 at 08:00", now, k, ts, ok)
	}

	// Two minutes after the 08:00 dose: still due.
	now = start.Add(8*time.Hour + 2*time.Minute)
	k, ts, ok = tl.DueDose(now)
	if !ok || k != 1 {
		t.Fatalf("DueDose(%v) = (%d, %v, %v), want dose 1", now, k, ts, ok)
	}

	// Mid-interval: nothing due.
	now = start.Add(4 * time.Hour)
	if _, _, ok = tl.DueDose(now); ok {
		t.Fatalf("DueDose(%v): unexpected due dose", now)
	}

	// Past the final dose (40:00): the 48:00 boundary dose does not exist.
	now = start.Add(48*time.Hour - 2*time.Minute)
	if _, _, ok = tl.DueDose(now); ok {
		t.Fatalf("DueDose(%v): dose beyond treatment window reported due", now)
	}
}

func TestTakenNear(t *testing.T) {
	doseAt := start.Add(8 * time.Hour)
	cases := []struct {
		name    string
		intakes []time.Time
		want    bool
	}{
		{"exact", []time.Time{doseAt}, true},
		{"29 minutes late", []time.Time{doseAt.Add(29 * time.Minute)}, true},
		{"30 minutes early", []time.Time{doseAt.Add(-30 * time.Minute)}, true},
		{"31 minutes late", []time.Time{doseAt.Add(31 * time.Minute)}, false},
		{"none", nil, false},
		{"one of several", []time.Time{doseAt.Add(-4 * time.Hour), doseAt.Add(10 * time.Minute)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TakenNear(doseAt, tc.intakes); got != tc.want {
				t.Errorf("TakenNear = %v, want %v", got, tc.want)
			}
		})
	}
}
