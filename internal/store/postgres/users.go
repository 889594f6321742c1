package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/types/user"
)

const userColumns = `id, clerk_id, email, username, first_name, last_name, image_url, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	now := time.Now().UTC()
	query := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(
		ctx,
		query,
		uuid.New(),
		req.ClerkID,
		req.Email,
		req.Username,
		req.FirstName,
		req.LastName,
		req.ImageURL,
		now,
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
	query := `SELECT ` + userColumns + ` FROM users WHERE clerk_id = $1`

	u, err := scanUser(s.db.QueryRow(ctx, query, clerkID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", notFound(err))
	}
	return u, nil
}

func (s *Store) UserIDByClerkID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user lookup: %w", notFound(err))
	}
	return userID, nil
}

func (s *Store) UpdateUserByClerkID(ctx context.Context, clerkID string, req *user.UpdateUserRequest) (*user.User, error) {
	query := `
	UPDATE users SET
		email = COALESCE($2, email),
		username = COALESCE($3, username),
		first_name = COALESCE($4, first_name),
		last_name = COALESCE($5, last_name),
		image_url = COALESCE($6, image_url),
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, query, clerkID, req.Email, req.Username, req.FirstName, req.LastName, req.ImageURL))
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", notFound(err))
	}
	return u, nil
}

// DeleteUserByClerkID removes the user and everything they own. Groups they
// belonged to go through the same succession rule as leaving.
func (s *Store) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", notFound(err))
	}

	// Lock the user's groups in a stable order before the cascade removes
	// their memberships.
	rows, err := tx.Query(ctx, `
	SELECT g.id FROM groups g
	JOIN group_members gm ON gm.group_id = g.id
	WHERE gm.user_id = $1
	ORDER BY g.id
	FOR UPDATE OF g
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to lock user groups: %w", err)
	}
	groupIDs, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return fmt.Errorf("failed to lock user groups: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	for _, groupID := range groupIDs {
		if err := promoteOrDelete(ctx, tx, groupID); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user deletion: %w", err)
	}
	return nil
}
