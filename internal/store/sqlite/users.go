package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/types/user"
)

const userColumns = `id, clerk_id, email, username, first_name, last_name, image_url, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*user.User, error) {
	u := &user.User{}
	var createdAt, updatedAt string
	err := row.Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	ts := now()
	query := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRowContext(
		ctx,
		query,
		uuid.New().String(),
		req.ClerkID,
		req.Email,
		req.Username,
		req.FirstName,
		req.LastName,
		req.ImageURL,
		ts,
		ts,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("user already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE clerk_id = ?`, clerkID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", notFound(err))
	}
	return u, nil
}

func (s *Store) UserIDByClerkID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE clerk_id = ?`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user lookup: %w", notFound(err))
	}
	return userID, nil
}

func (s *Store) UpdateUserByClerkID(ctx context.Context, clerkID string, req *user.UpdateUserRequest) (*user.User, error) {
	query := `
	UPDATE users SET
		email = COALESCE(?, email),
		username = COALESCE(?, username),
		first_name = COALESCE(?, first_name),
		last_name = COALESCE(?, last_name),
		image_url = COALESCE(?, image_url),
		updated_at = ?
	WHERE clerk_id = ?
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRowContext(ctx, query,
		req.Email, req.Username, req.FirstName, req.LastName, req.ImageURL, now(), clerkID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", notFound(err))
	}
	return u, nil
}

// DeleteUserByClerkID removes the user and everything they own. Groups they
// belonged to go through the same succession rule as leaving.
func (s *Store) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE clerk_id = ?`, clerkID).Scan(&userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", notFound(err))
	}

	rows, err := tx.QueryContext(ctx, `SELECT group_id FROM group_members WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to list user groups: %w", err)
	}
	var groupIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan group id: %w", err)
		}
		groupIDs = append(groupIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to list user groups: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	for _, groupID := range groupIDs {
		if err := promoteOrDelete(ctx, tx, groupID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user deletion: %w", err)
	}
	return nil
}
