package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"habitLoopAPI/internal/types/notification"
)

func (s *Store) UpsertDeviceToken(ctx context.Context, token *notification.DeviceToken) error {
	query := `
	INSERT INTO device_tokens (user_id, token, platform, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (user_id, token)
	DO UPDATE SET
		platform = $3,
		updated_at = NOW()
	`
	if _, err := s.db.Exec(ctx, query, token.UserID, token.Token, token.Platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *Store) ListDeviceTokens(ctx context.Context, userIDs []uuid.UUID) ([]notification.DeviceToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
	SELECT user_id, token, platform, updated_at
	FROM device_tokens
	WHERE user_id = ANY($1)
	`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
