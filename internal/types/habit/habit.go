package habit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"habitLoopAPI/internal/types/checkin"
)

type Frequency string

const (
	FrequencyDaily  Frequency = "DAILY"
	FrequencyWeekly Frequency = "WEEKLY"
)

func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case FrequencyDaily, FrequencyWeekly:
		return f, nil
	}
	return "", fmt.Errorf("invalid frequency %q: expected DAILY or WEEKLY", s)
}

func (f *Frequency) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseFrequency(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

type Habit struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Title        string    `json:"title" db:"title"`
	Description  *string   `json:"description,omitempty" db:"description"`
	Frequency    Frequency `json:"frequency" db:"frequency"`
	ReminderTime *string   `json:"reminder_time,omitempty" db:"reminder_time"`
	Category     *string   `json:"category,omitempty" db:"category"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// GroupRef is the slice of a group shown next to a habit.
type GroupRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// HabitView is a habit with its recent history and derived stats.
type HabitView struct {
	Habit
	Checkins          []*checkin.CheckIn `json:"checkins"`
	Groups            []GroupRef         `json:"groups"`
	CurrentStreak     int                `json:"current_streak"`
	CheckedInToday    bool               `json:"checked_in_today"`
	WeeklyConsistency int                `json:"weekly_consistency"`
}

type CalendarDay struct {
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
	IsToday   bool   `json:"is_today"`
}

type Stats struct {
	HabitID        uuid.UUID     `json:"habit_id"`
	WindowDays     int           `json:"window_days"`
	CurrentStreak  int           `json:"current_streak"`
	LongestStreak  int           `json:"longest_streak"`
	CompletedDays  int           `json:"completed_days"`
	Consistency    int           `json:"consistency"`
	CheckedInToday bool          `json:"checked_in_today"`
	Calendar       []CalendarDay `json:"calendar"`
}
