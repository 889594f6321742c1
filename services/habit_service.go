package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/daykey"
	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/streak"
	"habitLoopAPI/internal/types/checkin"
	"habitLoopAPI/internal/types/habit"
)

const (
	maxHabitTitleLen = 100

	listCheckinLimit   = 30
	consistencyWindow  = 7
	defaultStatsWindow = 30
	maxStatsWindow     = 365
)

var reminderTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type habitStore interface {
	store.UserStore
	store.HabitStore
	store.CheckinStore
}

type HabitService struct {
	store habitStore
	now   Clock
}

func NewHabitService(s habitStore) *HabitService {
	return &HabitService{store: s, now: systemClock}
}

func (s *HabitService) SetClock(c Clock) {
	s.now = c
}

func (s *HabitService) CreateHabit(ctx context.Context, clerkID string, req *habit.CreateHabitRequest) (*habit.Habit, error) {
	title, err := validateTitle(req.Title)
	if err != nil {
		return nil, err
	}
	if err := validateFrequency(req.Frequency); err != nil {
		return nil, err
	}
	if err := validateReminderTime(req.ReminderTime); err != nil {
		return nil, err
	}

	ownerID, err := resolveUser(ctx, s.store, clerkID)
	if err != nil {
		return nil, err
	}

	h := &habit.Habit{
		UserID:       ownerID,
		Title:        title,
		Description:  req.Description,
		Frequency:    req.Frequency,
		ReminderTime: req.ReminderTime,
		Category:     req.Category,
	}
	if err := s.store.CreateHabit(ctx, h); err != nil {
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}
	return h, nil
}

// ListHabits returns the caller's active habits, newest first, each with its
// recent check-ins and derived stats.
func (s *HabitService) ListHabits(ctx context.Context, clerkID string) ([]*habit.HabitView, error) {
	ownerID, err := resolveUser(ctx, s.store, clerkID)
	if err != nil {
		return nil, err
	}

	habits, err := s.store.ListActiveHabits(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	if len(habits) == 0 {
		return []*habit.HabitView{}, nil
	}

	ids := make([]uuid.UUID, len(habits))
	for i, h := range habits {
		ids[i] = h.ID
	}

	today := daykey.Today(s.now())
	history, err := s.store.ListCheckinsForHabits(ctx, ids, fullHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to load check-ins: %w", err)
	}
	groups, err := s.store.HabitGroups(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load habit groups: %w", err)
	}

	views := make([]*habit.HabitView, len(habits))
	for i, h := range habits {
		views[i] = buildHabitView(h, history[h.ID], groups[h.ID], today)
	}
	return views, nil
}

func (s *HabitService) GetHabit(ctx context.Context, clerkID string, habitID uuid.UUID) (*habit.HabitView, error) {
	h, err := findActiveHabit(ctx, s.store, clerkID, habitID)
	if err != nil {
		return nil, err
	}

	today := daykey.Today(s.now())
	history, err := s.store.ListCheckins(ctx, h.ID, fullHistory, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load check-ins: %w", err)
	}
	groups, err := s.store.HabitGroups(ctx, []uuid.UUID{h.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to load habit groups: %w", err)
	}
	return buildHabitView(h, history, groups[h.ID], today), nil
}

func (s *HabitService) UpdateHabit(ctx context.Context, clerkID string, habitID uuid.UUID, req *habit.UpdateHabitRequest) (*habit.Habit, error) {
	h, err := findActiveHabit(ctx, s.store, clerkID, habitID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title, err := validateTitle(*req.Title)
		if err != nil {
			return nil, err
		}
		h.Title = title
	}
	if req.Frequency != nil {
		if err := validateFrequency(*req.Frequency); err != nil {
			return nil, err
		}
		h.Frequency = *req.Frequency
	}
	switch {
	case req.ReminderTime == nil:
	case *req.ReminderTime == "":
		h.ReminderTime = nil
	default:
		if err := validateReminderTime(req.ReminderTime); err != nil {
			return nil, err
		}
		h.ReminderTime = req.ReminderTime
	}
	if req.Description != nil {
		h.Description = req.Description
	}
	if req.Category != nil {
		h.Category = req.Category
	}

	if err := s.store.UpdateHabit(ctx, h); err != nil {
		return nil, notFoundAs(err, "habit")
	}
	return h, nil
}

// DeactivateHabit hides a habit from listings and check-ins. Its history is
// kept and deactivating twice is not an error.
func (s *HabitService) DeactivateHabit(ctx context.Context, clerkID string, habitID uuid.UUID) error {
	ownerID, err := resolveUser(ctx, s.store, clerkID)
	if err != nil {
		return err
	}
	if err := s.store.SetHabitActive(ctx, habitID, ownerID, false); err != nil {
		return notFoundAs(err, "habit")
	}
	return nil
}

// HabitStats summarizes the last days days of a habit. Zero selects the
// default window.
func (s *HabitService) HabitStats(ctx context.Context, clerkID string, habitID uuid.UUID, days int) (*habit.Stats, error) {
	if days == 0 {
		days = defaultStatsWindow
	}
	if days < 1 || days > maxStatsWindow {
		return nil, apperr.Validation("days", "must be between 1 and %d", maxStatsWindow)
	}

	h, err := findActiveHabit(ctx, s.store, clerkID, habitID)
	if err != nil {
		return nil, err
	}

	today := daykey.Today(s.now())
	history, err := s.store.ListCheckins(ctx, h.ID, fullHistory, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load check-ins: %w", err)
	}

	entries := checkin.Entries(history)
	window := streak.Window(entries, today, days)

	completed := make(map[string]bool, len(window))
	for _, e := range window {
		if e.Completed {
			completed[daykey.Format(e.Day)] = true
		}
	}

	calendar := make([]habit.CalendarDay, 0, days)
	for _, d := range daykey.Between(daykey.AddDays(today, -(days-1)), today) {
		key := daykey.Format(d)
		calendar = append(calendar, habit.CalendarDay{
			Date:      key,
			Completed: completed[key],
			IsToday:   d.Equal(today),
		})
	}

	return &habit.Stats{
		HabitID:        h.ID,
		WindowDays:     days,
		CurrentStreak:  streak.Current(entries, today),
		LongestStreak:  streak.Longest(entries),
		CompletedDays:  len(completed),
		Consistency:    streak.Consistency(window, days),
		CheckedInToday: completed[daykey.Format(today)],
		Calendar:       calendar,
	}, nil
}

// buildHabitView derives the list view from the habit's full history, newest
// first.
func buildHabitView(h *habit.Habit, history []*checkin.CheckIn, groups []habit.GroupRef, today time.Time) *habit.HabitView {
	entries := checkin.Entries(history)

	recent := history
	if len(recent) > listCheckinLimit {
		recent = recent[:listCheckinLimit]
	}
	if recent == nil {
		recent = []*checkin.CheckIn{}
	}
	if groups == nil {
		groups = []habit.GroupRef{}
	}

	checkedInToday := false
	for _, c := range history {
		if c.Completed && c.Date.Equal(today) {
			checkedInToday = true
			break
		}
	}

	return &habit.HabitView{
		Habit:             *h,
		Checkins:          recent,
		Groups:            groups,
		CurrentStreak:     streak.Current(entries, today),
		CheckedInToday:    checkedInToday,
		WeeklyConsistency: streak.Consistency(streak.Window(entries, today, consistencyWindow), consistencyWindow),
	}
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.Validation("title", "is required")
	}
	if utf8.RuneCountInString(title) > maxHabitTitleLen {
		return "", apperr.Validation("title", "must be at most %d characters", maxHabitTitleLen)
	}
	return title, nil
}

func validateFrequency(f habit.Frequency) error {
	if _, err := habit.ParseFrequency(string(f)); err != nil {
		return apperr.Validation("frequency", "must be DAILY or WEEKLY")
	}
	return nil
}

func validateReminderTime(t *string) error {
	if t != nil && !reminderTimePattern.MatchString(*t) {
		return apperr.Validation("reminderTime", "must be HH:MM in 24-hour time")
	}
	return nil
}
