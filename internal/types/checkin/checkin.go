package checkin

import (
	"time"

	"github.com/google/uuid"

	"habitLoopAPI/internal/streak"
)

type CheckIn struct {
	ID        uuid.UUID `json:"id" db:"id"`
	HabitID   uuid.UUID `json:"habit_id" db:"habit_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Date      time.Time `json:"date" db:"date"`
	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func Entries(checkins []*CheckIn) []streak.Entry {
	entries := make([]streak.Entry, len(checkins))
	for i, c := range checkins {
		entries[i] = streak.Entry{Day: c.Date, Completed: c.Completed}
	}
	return entries
}
