package streak

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"habitLoopAPI/internal/daykey"
)

var today = time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return daykey.AddDays(today, -n)
}

func completed(offsets ...int) []Entry {
	entries := make([]Entry, 0, len(offsets))
	for _, o := range offsets {
		entries = append(entries, Entry{Day: daysAgo(o), Completed: true})
	}
	return entries
}

func TestCurrent(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		want    int
	}{
		{name: "empty history", entries: nil, want: 0},
		{name: "today only", entries: completed(0), want: 1},
		{name: "three days then gap", entries: completed(0, 1, 2, 4, 5), want: 3},
		{name: "yesterday but not today", entries: completed(1, 2, 3), want: 0},
		{
			name: "today present but not completed",
			entries: append(completed(1, 2), Entry{Day: today, Completed: false}),
			want:    0,
		},
		{
			name:    "uncompleted entry breaks run",
			entries: append(completed(0, 1, 3), Entry{Day: daysAgo(2), Completed: false}),
			want:    2,
		},
		{name: "duplicates are counted once", entries: completed(0, 0, 1, 1, 1, 2), want: 3},
		{name: "future entries are ignored", entries: completed(-1, 0, 1), want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Current(tt.entries, today))
		})
	}
}

func TestCurrent_TimeOfDayIsIgnored(t *testing.T) {
	entries := []Entry{
		{Day: today.Add(23 * time.Hour), Completed: true},
		{Day: daysAgo(1).Add(90 * time.Minute), Completed: true},
	}
	assert.Equal(t, 2, Current(entries, today.Add(6*time.Hour)))
}

func TestCurrent_OrderIndependent(t *testing.T) {
	entries := completed(0, 1, 2, 3, 5, 6, 9)
	want := Current(entries, today)
	assert.Equal(t, 4, want)

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]Entry(nil), entries...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Current(shuffled, today))
	}
}

func TestCurrent_DoesNotMutateInput(t *testing.T) {
	entries := completed(2, 0, 1)
	Current(entries, today)
	assert.Equal(t, completed(2, 0, 1), entries)
}

func TestLongest(t *testing.T) {
	assert.Equal(t, 0, Longest(nil))
	assert.Equal(t, 1, Longest(completed(10)))
	assert.Equal(t, 4, Longest(completed(0, 1, 7, 8, 9, 10, 20)))
	assert.Equal(t, 3, Longest(completed(5, 5, 6, 7)))
}

func TestConsistency(t *testing.T) {
	assert.Equal(t, 0, Consistency(completed(0, 1, 2), 0))
	assert.Equal(t, 0, Consistency(nil, 7))
	assert.Equal(t, 71, Consistency(completed(0, 1, 2, 3, 4), 7))
	assert.Equal(t, 100, Consistency(completed(0, 1, 2, 3, 4, 5, 6), 7))
	assert.Equal(t, 100, Consistency(completed(0, 1, 2, 3, 4, 5, 6, 7, 8, 9), 7), "clamped")

	mixed := append(completed(0, 1), Entry{Day: daysAgo(2), Completed: false})
	assert.Equal(t, 67, Consistency(mixed, 3))
}

func TestWindow(t *testing.T) {
	entries := completed(-1, 0, 3, 6, 7, 30)
	got := Window(entries, today, 7)

	assert.Len(t, got, 3)
	for _, e := range got {
		assert.False(t, e.Day.Before(daysAgo(6)))
		assert.False(t, e.Day.After(today))
	}
	assert.Nil(t, Window(entries, today, 0))
}
