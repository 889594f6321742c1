package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"habitLoopAPI/internal/daykey"
	"habitLoopAPI/internal/types/checkin"
)

const checkinColumns = `id, habit_id, user_id, date, completed, created_at, updated_at`

func scanCheckin(row interface{ Scan(...any) error }) (*checkin.CheckIn, error) {
	c := &checkin.CheckIn{}
	err := row.Scan(
		&c.ID,
		&c.HabitID,
		&c.UserID,
		&c.Date,
		&c.Completed,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	c.Date = daykey.Normalize(c.Date)
	return c, err
}

func (s *Store) Upsert(ctx context.Context, habitID, ownerID uuid.UUID, day time.Time) (*checkin.CheckIn, error) {
	query := `
	INSERT INTO habit_checkins (id, habit_id, user_id, date, completed, created_at, updated_at)
	VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
	ON CONFLICT (habit_id, date)
	DO UPDATE SET
		completed = TRUE,
		updated_at = NOW()
	RETURNING ` + checkinColumns

	c, err := scanCheckin(s.db.QueryRow(ctx, query, uuid.New(), habitID, ownerID, daykey.Normalize(day)))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert check-in: %w", err)
	}
	return c, nil
}

func (s *Store) Delete(ctx context.Context, habitID uuid.UUID, day time.Time, ownerID uuid.UUID) error {
	query := `
	DELETE FROM habit_checkins
	WHERE habit_id = $1 AND user_id = $2 AND date = $3
	`
	if _, err := s.db.Exec(ctx, query, habitID, ownerID, daykey.Normalize(day)); err != nil {
		return fmt.Errorf("failed to delete check-in: %w", err)
	}
	return nil
}

func (s *Store) ListCheckins(ctx context.Context, habitID uuid.UUID, since time.Time, limit int) ([]*checkin.CheckIn, error) {
	var b strings.Builder
	args := []any{habitID}

	b.WriteString(`SELECT ` + checkinColumns + ` FROM habit_checkins WHERE habit_id = $1`)
	if !since.IsZero() {
		args = append(args, daykey.Normalize(since))
		fmt.Fprintf(&b, ` AND date >= $%d`, len(args))
	}
	b.WriteString(` ORDER BY date DESC`)
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}

	rows, err := s.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	defer rows.Close()

	checkins := []*checkin.CheckIn{}
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		checkins = append(checkins, c)
	}
	return checkins, rows.Err()
}

func (s *Store) ListCheckinsForHabits(ctx context.Context, habitIDs []uuid.UUID, since time.Time) (map[uuid.UUID][]*checkin.CheckIn, error) {
	out := make(map[uuid.UUID][]*checkin.CheckIn, len(habitIDs))
	if len(habitIDs) == 0 {
		return out, nil
	}

	var b strings.Builder
	args := []any{habitIDs}

	b.WriteString(`SELECT ` + checkinColumns + ` FROM habit_checkins WHERE habit_id = ANY($1)`)
	if !since.IsZero() {
		args = append(args, daykey.Normalize(since))
		fmt.Fprintf(&b, ` AND date >= $%d`, len(args))
	}
	b.WriteString(` ORDER BY date DESC`)

	rows, err := s.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		out[c.HabitID] = append(out[c.HabitID], c)
	}
	return out, rows.Err()
}

func (s *Store) MarkNotified(ctx context.Context, habitID uuid.UUID, day time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
	INSERT INTO checkin_notifications (habit_id, date)
	VALUES ($1, $2)
	ON CONFLICT (habit_id, date) DO NOTHING
	`, habitID, daykey.Normalize(day))
	if err != nil {
		return false, fmt.Errorf("failed to mark check-in notified: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
