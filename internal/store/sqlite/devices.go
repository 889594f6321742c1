package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"habitLoopAPI/internal/types/notification"
)

func (s *Store) UpsertDeviceToken(ctx context.Context, token *notification.DeviceToken) error {
	query := `
	INSERT INTO device_tokens (user_id, token, platform, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (user_id, token)
	DO UPDATE SET
		platform = excluded.platform,
		updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, token.UserID.String(), token.Token, token.Platform, now()); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *Store) ListDeviceTokens(ctx context.Context, userIDs []uuid.UUID) ([]notification.DeviceToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT user_id, token, platform, updated_at
	FROM device_tokens
	WHERE user_id IN (`+placeholders(len(userIDs))+`)
	`, uuidArgs(userIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		var updatedAt string
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
