package sqlite

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
	var frequency, createdAt string
	err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.Title,
		&h.Description,
		&frequency,
		&h.ReminderTime,
		&h.Category,
		&h.IsActive,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	h.Frequency = habit.Frequency(frequency)
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Store) CreateHabit(ctx context.Context, h *habit.Habit) error {
	h.ID = uuid.New()
	h.CreatedAt = time.Now().UTC()
	h.IsActive = true

	query := `
	INSERT INTO habits (id, user_id, title, description, frequency, reminder_time, category, is_active, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		h.ID.String(), h.UserID.String(), h.Title, h.Description, string(h.Frequency),
		h.ReminderTime, h.Category, h.IsActive, formatTime(h.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}
	return nil
}

func (s *Store) FindOwnedHabit(ctx context.Context, habitID, ownerID uuid.UUID) (*habit.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = ? AND user_id = ?`

	h, err := scanHabit(s.db.QueryRowContext(ctx, query, habitID.String(), ownerID.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to find habit: %w", notFound(err))
	}
	return h, nil
}

func (s *Store) ListActiveHabits(ctx context.Context, ownerID uuid.UUID) ([]*habit.Habit, error) {
	query := `
	SELECT ` + habitColumns + `
	FROM habits
	WHERE user_id = ? AND is_active = 1
	ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID.String())
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
	SET title = ?, description = ?, frequency = ?, reminder_time = ?, category = ?
	WHERE id = ? AND user_id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		h.Title, h.Description, string(h.Frequency), h.ReminderTime, h.Category, h.ID.String(), h.UserID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetHabitActive(ctx context.Context, habitID, ownerID uuid.UUID, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE habits SET is_active = ? WHERE id = ? AND user_id = ?`,
		active, habitID.String(), ownerID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update habit state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
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
	WHERE gh.habit_id IN (` + placeholders(len(habitIDs)) + `)
	ORDER BY g.name
	`
	rows, err := s.db.QueryContext(ctx, query, uuidArgs(habitIDs)...)
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
