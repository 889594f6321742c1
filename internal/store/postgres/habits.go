package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/types/habit"
)

const habitColumns = `id, user_id, title, description, frequency, reminder_time, category, is_active, created_at`

func scanHabit(row interface{ Scan(...any) error }) (*habit.Habit, error) {
	h := &habit.Habit{}
	err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.Title,
		&h.Description,
		&h.Frequency,
		&h.ReminderTime,
		&h.Category,
		&h.IsActive,
		&h.CreatedAt,
	)
	return h, err
}

func (s *Store) CreateHabit(ctx context.Context, h *habit.Habit) error {
	h.ID = uuid.New()
	h.CreatedAt = time.Now().UTC()
	h.IsActive = true

	query := `
	INSERT INTO habits (id, user_id, title, description, frequency, reminder_time, category, is_active, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.Exec(ctx, query,
		h.ID, h.UserID, h.Title, h.Description, h.Frequency, h.ReminderTime, h.Category, h.IsActive, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}
	return nil
}

func (s *Store) FindOwnedHabit(ctx context.Context, habitID, ownerID uuid.UUID) (*habit.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1 AND user_id = $2`

	h, err := scanHabit(s.db.QueryRow(ctx, query, habitID, ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to find habit: %w", notFound(err))
	}
	return h, nil
}

func (s *Store) ListActiveHabits(ctx context.Context, ownerID uuid.UUID) ([]*habit.Habit, error) {
	query := `
	SELECT ` + habitColumns + `
	FROM habits
	WHERE user_id = $1 AND is_active = TRUE
	ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	habits := []*habit.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (s *Store) UpdateHabit(ctx context.Context, h *habit.Habit) error {
	query := `
	UPDATE habits
	SET title = $3, description = $4, frequency = $5, reminder_time = $6, category = $7
	WHERE id = $1 AND user_id = $2
	`
	tag, err := s.db.Exec(ctx, query, h.ID, h.UserID, h.Title, h.Description, h.Frequency, h.ReminderTime, h.Category)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetHabitActive(ctx context.Context, habitID, ownerID uuid.UUID, active bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE habits SET is_active = $3 WHERE id = $1 AND user_id = $2`,
		habitID, ownerID, active,
	)
	if err != nil {
		return fmt.Errorf("failed to update habit state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) HabitGroups(ctx context.Context, habitIDs []uuid.UUID) (map[uuid.UUID][]habit.GroupRef, error) {
	out := make(map[uuid.UUID][]habit.GroupRef, len(habitIDs))
	if len(habitIDs) == 0 {
		return out, nil
	}

	query := `
	SELECT gh.habit_id, g.id, g.name
	FROM group_habits gh
	JOIN groups g ON g.id = gh.group_id
	WHERE gh.habit_id = ANY($1)
	ORDER BY g.name
	`
	rows, err := s.db.Query(ctx, query, habitIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load habit groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var habitID uuid.UUID
		var ref habit.GroupRef
		if err := rows.Scan(&habitID, &ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("failed to scan habit group: %w", err)
		}
		out[habitID] = append(out[habitID], ref)
	}
	return out, rows.Err()
}
