// Package daykey collapses timestamps to calendar-day keys.
//
// Every day key in the service is midnight UTC. Check-ins are stored under
// it and streaks are compared against it, so the write and read paths can
// never disagree about which day a timestamp belongs to.
package daykey

import "time"

const Layout = "2006-01-02"

// Normalize returns t's calendar day as midnight UTC.
func Normalize(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func Today(now time.Time) time.Time {
	return Normalize(now)
}

// AddDays steps whole calendar days, so it is safe across DST changes in
// any zone the caller may have started from.
func AddDays(day time.Time, n int) time.Time {
	return Normalize(day).AddDate(0, 0, n)
}

func Format(day time.Time) string {
	return Normalize(day).Format(Layout)
}

func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Normalize(t), nil
}

// Between returns every day key from from to to, both inclusive. It returns
// nil when to is before from.
func Between(from, to time.Time) []time.Time {
	from, to = Normalize(from), Normalize(to)
	if to.Before(from) {
		return nil
	}
	days := make([]time.Time, 0, DaysInclusive(from, to))
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func DaysInclusive(from, to time.Time) int {
	from, to = Normalize(from), Normalize(to)
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}
