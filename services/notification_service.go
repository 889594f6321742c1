package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/types/habit"
	"habitLoopAPI/internal/types/notification"
)

var devicePlatforms = map[string]bool{"": true, "android": true, "ios": true, "web": true}

type notificationStore interface {
	store.UserStore
	store.GroupStore
	store.DeviceStore
}

type NotificationService struct {
	store      notificationStore
	dispatcher *NotificationDispatcher
}

func NewNotificationService(s notificationStore, dispatcher *NotificationDispatcher) *NotificationService {
	return &NotificationService{store: s, dispatcher: dispatcher}
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req notification.RegisterDeviceRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return apperr.Validation("token", "is required")
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if !devicePlatforms[platform] {
		return apperr.Validation("platform", "must be android, ios or web")
	}

	userID, err := resolveUser(ctx, s.store, clerkID)
	if err != nil {
		return err
	}

	if err := s.store.UpsertDeviceToken(ctx, &notification.DeviceToken{
		UserID:   userID,
		Token:    token,
		Platform: platform,
	}); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

// NotifyCheckIn queues a push to everyone who can see h through a group.
// Failures are logged and never reach the caller.
func (s *NotificationService) NotifyCheckIn(ctx context.Context, actorClerkID string, h *habit.Habit, currentStreak int) {
	audience, err := s.store.HabitAudience(ctx, h.ID, h.UserID)
	if err != nil {
		slog.Warn("failed to load check-in audience", "habit_id", h.ID, "error", err)
		return
	}
	if len(audience) == 0 {
		return
	}

	tokens, err := s.store.ListDeviceTokens(ctx, audience)
	if err != nil {
		slog.Warn("failed to load device tokens", "habit_id", h.ID, "error", err)
		return
	}

	actor, err := s.store.GetUserByClerkID(ctx, actorClerkID)
	if err != nil {
		slog.Warn("failed to load check-in actor", "clerk_id", actorClerkID, "error", err)
		return
	}

	s.dispatcher.Dispatch(&PushJob{
		Tokens: tokens,
		Push: &notification.Push{
			Type:  notification.TypeFriendCheckedIn,
			Title: fmt.Sprintf("%s checked in", actor.Username),
			Body:  fmt.Sprintf("%s · %d day streak", h.Title, currentStreak),
			Data: map[string]any{
				"habit_id": h.ID.String(),
				"user_id":  h.UserID.String(),
				"streak":   currentStreak,
			},
		},
	})
}

// Nudge pushes a reminder from one group member to another.
func (s *NotificationService) Nudge(ctx context.Context, clerkID string, groupID, targetID uuid.UUID) error {
	senderID, err := resolveUser(ctx, s.store, clerkID)
	if err != nil {
		return err
	}
	if senderID == targetID {
		return apperr.Validation("userId", "cannot nudge yourself")
	}

	for _, id := range []uuid.UUID{senderID, targetID} {
		if _, err := s.store.GetMembership(ctx, groupID, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.Forbidden("both users must belong to the group")
			}
			return fmt.Errorf("failed to check membership: %w", err)
		}
	}

	sender, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return fmt.Errorf("failed to load sender: %w", err)
	}
	tokens, err := s.store.ListDeviceTokens(ctx, []uuid.UUID{targetID})
	if err != nil {
		return fmt.Errorf("failed to load device tokens: %w", err)
	}

	s.dispatcher.Dispatch(&PushJob{
		Tokens: tokens,
		Push: &notification.Push{
			Type:  notification.TypeNudge,
			Title: fmt.Sprintf("%s nudged you", sender.Username),
			Body:  "Don't break your streak. Check in today!",
			Data: map[string]any{
				"group_id": groupID.String(),
				"user_id":  senderID.String(),
			},
		},
	})
	return nil
}
