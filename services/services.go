package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/types/habit"
)

var (
	checkinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_checkins_total",
			Help: "Total number of check-ins recorded and undone",
		},
		[]string{"action"},
	)
	pushNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_notifications_total",
			Help: "Push notification jobs by outcome",
		},
		[]string{"result"},
	)
)

// Collectors returns the domain metrics for registration next to the HTTP
// ones.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{checkinsTotal, pushNotificationsTotal}
}

// Clock returns the current time. Services take one so tests can pin "today".
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }

// resolveUser maps an authenticated Clerk ID to the internal user ID. A
// token for a user the webhook never created is treated as unauthorized.
func resolveUser(ctx context.Context, users store.UserStore, clerkID string) (uuid.UUID, error) {
	if clerkID == "" {
		return uuid.Nil, apperr.ErrUnauthorized
	}
	userID, err := users.UserIDByClerkID(ctx, clerkID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("user not registered: %w", apperr.ErrUnauthorized)
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}

// notFoundAs replaces a store miss with a client-facing NotFound for what.
func notFoundAs(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(what)
	}
	return err
}

type habitFinder interface {
	store.UserStore
	FindOwnedHabit(ctx context.Context, habitID, ownerID uuid.UUID) (*habit.Habit, error)
}

// findActiveHabit returns the caller's habit. Habits owned by someone else
// and deactivated habits are both reported as not found.
func findActiveHabit(ctx context.Context, s habitFinder, clerkID string, habitID uuid.UUID) (*habit.Habit, error) {
	ownerID, err := resolveUser(ctx, s, clerkID)
	if err != nil {
		return nil, err
	}
	h, err := s.FindOwnedHabit(ctx, habitID, ownerID)
	if err != nil {
		return nil, notFoundAs(err, "habit")
	}
	if !h.IsActive {
		return nil, apperr.NotFound("habit")
	}
	return h, nil
}
