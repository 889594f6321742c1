// Package streak derives streak and consistency statistics from check-in
// history. Everything here is a pure function over a snapshot of records.
package streak

import (
	"math"
	"slices"
	"time"

	"habitLoopAPI/internal/daykey"
)

type Entry struct {
	Day       time.Time
	Completed bool
}

// completedDays returns the distinct completed day keys, newest first.
func completedDays(entries []Entry) []time.Time {
	days := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		if e.Completed {
			days = append(days, daykey.Normalize(e.Day))
		}
	}
	slices.SortFunc(days, func(a, b time.Time) int { return b.Compare(a) })
	return slices.CompactFunc(days, time.Time.Equal)
}

// Current counts consecutive completed days ending today. A day without a
// completed entry, today included, ends the streak, so a habit that was
// done yesterday but not yet today has a current streak of 0.
func Current(entries []Entry, today time.Time) int {
	today = daykey.Normalize(today)
	days := slices.DeleteFunc(completedDays(entries), func(d time.Time) bool { return d.After(today) })

	streak := 0
	for i, d := range days {
		if !d.Equal(daykey.AddDays(today, -i)) {
			break
		}
		streak++
	}
	return streak
}

// Longest returns the longest run of consecutive completed days anywhere in
// the history.
func Longest(entries []Entry) int {
	days := completedDays(entries)
	if len(days) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(daykey.AddDays(days[i-1], -1)) {
			run++
			longest = max(longest, run)
		} else {
			run = 1
		}
	}
	return longest
}

// Consistency returns round(100 * completed / totalDays). It does not look at
// dates; callers narrow entries to the window first (see Window). A zero
// window scores 0. The score is clamped to 100, so more completed entries
// than totalDays (10 over a 7-day window) still score 100.
func Consistency(entries []Entry, totalDays int) int {
	if totalDays == 0 {
		return 0
	}
	completed := 0
	for _, e := range entries {
		if e.Completed {
			completed++
		}
	}
	return min(int(math.Round(float64(completed)/float64(totalDays)*100)), 100)
}

// Window keeps the entries that fall within the days-long window ending today.
func Window(entries []Entry, today time.Time, days int) []Entry {
	if days <= 0 {
		return nil
	}
	end := daykey.Normalize(today)
	start := daykey.AddDays(end, -(days - 1))

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		d := daykey.Normalize(e.Day)
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out
}
