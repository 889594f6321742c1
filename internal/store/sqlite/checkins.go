package sqlite

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
	var date, createdAt, updatedAt string
	err := row.Scan(
		&c.ID,
		&c.HabitID,
		&c.UserID,
		&date,
		&c.Completed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.Date, err = daykey.Parse(date); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) Upsert(ctx context.Context, habitID, ownerID uuid.UUID, day time.Time) (*checkin.CheckIn, error) {
	ts := now()
	query := `
	INSERT INTO habit_checkins (id, habit_id, user_id, date, completed, created_at, updated_at)
	VALUES (?, ?, ?, ?, 1, ?, ?)
	ON CONFLICT (habit_id, date)
	DO UPDATE SET
		completed = 1,
		updated_at = excluded.updated_at
	RETURNING ` + checkinColumns

	c, err := scanCheckin(s.db.QueryRowContext(ctx, query,
		uuid.New().String(), habitID.String(), ownerID.String(), daykey.Format(day), ts, ts,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert check-in: %w", err)
	}
	return c, nil
}

func (s *Store) Delete(ctx context.Context, habitID uuid.UUID, day time.Time, ownerID uuid.UUID) error {
	query := `
	DELETE FROM habit_checkins
	WHERE habit_id = ? AND user_id = ? AND date = ?
	`
	if _, err := s.db.ExecContext(ctx, query, habitID.String(), ownerID.String(), daykey.Format(day)); err != nil {
		return fmt.Errorf("failed to delete check-in: %w", err)
	}
	return nil
}

func (s *Store) ListCheckins(ctx context.Context, habitID uuid.UUID, since time.Time, limit int) ([]*checkin.CheckIn, error) {
	var b strings.Builder
	args := []any{habitID.String()}

	b.WriteString(`SELECT ` + checkinColumns + ` FROM habit_checkins WHERE habit_id = ?`)
	if !since.IsZero() {
		b.WriteString(` AND date >= ?`)
		args = append(args, daykey.Format(since))
	}
	b.WriteString(` ORDER BY date DESC`)
	if limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
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
	args := uuidArgs(habitIDs)

	b.WriteString(`SELECT ` + checkinColumns + ` FROM habit_checkins WHERE habit_id IN (` + placeholders(len(habitIDs)) + `)`)
	if !since.IsZero() {
		b.WriteString(` AND date >= ?`)
		args = append(args, daykey.Format(since))
	}
	b.WriteString(` ORDER BY date DESC`)

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
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
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO checkin_notifications (habit_id, date, notified_at)
	VALUES (?, ?, ?)
	ON CONFLICT (habit_id, date) DO NOTHING
	`, habitID.String(), daykey.Format(day), now())
	if err != nil {
		return false, fmt.Errorf("failed to mark check-in notified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark check-in notified: %w", err)
	}
	return n == 1, nil
}
