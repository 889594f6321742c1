package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"habitLoopAPI/internal/daykey"
	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/streak"
	"habitLoopAPI/internal/types/checkin"
	"habitLoopAPI/internal/types/habit"
)

// fullHistory is the zero lower bound: streaks are derived from every
// check-in a habit has.
var fullHistory time.Time

// CheckinNotifier is told about every check-in that created a record.
type CheckinNotifier interface {
	NotifyCheckIn(ctx context.Context, actorClerkID string, h *habit.Habit, currentStreak int)
}

type checkinStore interface {
	store.UserStore
	store.HabitStore
	store.CheckinStore
}

// CheckinService toggles the completion of a habit for the current day.
type CheckinService struct {
	store    checkinStore
	notifier CheckinNotifier
	now      Clock
}

func NewCheckinService(s checkinStore, notifier CheckinNotifier) *CheckinService {
	return &CheckinService{store: s, notifier: notifier, now: systemClock}
}

func (s *CheckinService) SetClock(c Clock) {
	s.now = c
}

// CheckIn marks today completed for a habit the caller owns. Repeating it on
// the same day updates the existing record.
func (s *CheckinService) CheckIn(ctx context.Context, clerkID string, habitID uuid.UUID) (*checkin.CheckIn, error) {
	h, err := findActiveHabit(ctx, s.store, clerkID, habitID)
	if err != nil {
		return nil, err
	}

	today := daykey.Today(s.now())
	c, err := s.store.Upsert(ctx, h.ID, h.UserID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to check in: %w", err)
	}
	checkinsTotal.WithLabelValues("checkin").Inc()

	// An insert stamps both timestamps with the same value; an update does not.
	if s.notifier != nil && c.CreatedAt.Equal(c.UpdatedAt) {
		s.notifyOnce(ctx, clerkID, h, today)
	}
	return c, nil
}

// Undo removes today's record. Undoing an uncompleted day is a no-op.
func (s *CheckinService) Undo(ctx context.Context, clerkID string, habitID uuid.UUID) error {
	h, err := findActiveHabit(ctx, s.store, clerkID, habitID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, h.ID, daykey.Today(s.now()), h.UserID); err != nil {
		return fmt.Errorf("failed to undo check-in: %w", err)
	}
	checkinsTotal.WithLabelValues("undo").Inc()
	return nil
}

// notifyOnce tells the group about the first check-in of a habit per day.
// Undoing and redoing it stays silent.
func (s *CheckinService) notifyOnce(ctx context.Context, clerkID string, h *habit.Habit, today time.Time) {
	first, err := s.store.MarkNotified(ctx, h.ID, today)
	if err != nil {
		slog.Warn("failed to record check-in notification", "habit_id", h.ID, "error", err)
		return
	}
	if !first {
		return
	}

	history, err := s.store.ListCheckins(ctx, h.ID, fullHistory, 0)
	if err != nil {
		slog.Warn("failed to load streak for notification", "habit_id", h.ID, "error", err)
		return
	}
	s.notifier.NotifyCheckIn(ctx, clerkID, h, streak.Current(checkin.Entries(history), today))
}
