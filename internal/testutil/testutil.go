// Package testutil holds fixtures shared by handler, service and store tests.
package testutil

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/store/sqlite"
	"habitLoopAPI/internal/types/user"
)

// JWTSecret is the HS256 key test servers are configured with.
const JWTSecret = "test-secret-key-for-testing-only"

// SetupTestDB opens a fresh sqlite database under t.TempDir. It is closed
// when the test ends.
func SetupTestDB(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "habitloop.db"))
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { s.Close() })
	return s
}

// CreateTestUser inserts a user whose username and email derive from clerkID.
func CreateTestUser(t *testing.T, s store.UserStore, clerkID string) *user.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), &user.CreateUserRequest{
		ClerkID:   clerkID,
		Email:     clerkID + "@example.com",
		Username:  clerkID,
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err, "failed to create test user")
	return u
}

// GenerateTestJWT signs a token for clerkID with JWTSecret.
func GenerateTestJWT(clerkID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": clerkID,
		"iss": "https://clerk.test",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"sid": "sess_test123",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// AuthRequest sets a bearer token for clerkID on req.
func AuthRequest(t *testing.T, req *http.Request, clerkID string) *http.Request {
	t.Helper()

	token, err := GenerateTestJWT(clerkID)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// SignClerkWebhook sets the svix headers a Clerk delivery of body would carry.
// secret uses the "whsec_<base64>" form Clerk hands out.
func SignClerkWebhook(t *testing.T, req *http.Request, secret string, body []byte) {
	t.Helper()

	key, err := base64.StdEncoding.DecodeString(secret[len("whsec_"):])
	require.NoError(t, err)

	id := "msg_test"
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.%s", id, ts, body)

	req.Header.Set("svix-id", id)
	req.Header.Set("svix-timestamp", ts)
	req.Header.Set("svix-signature", "v1,"+base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

// ClerkWebhookPayload builds a Clerk user event for clerkID.
func ClerkWebhookPayload(eventType, clerkID string) []byte {
	switch eventType {
	case "user.created":
		return fmt.Appendf(nil, `{
			"data": {
				"id": %q,
				"first_name": "Test",
				"last_name": "User",
				"email_addresses": [{
					"id": "email_123",
					"email_address": "test.user@example.com",
					"verification": {"status": "verified"}
				}],
				"primary_email_address_id": "email_123",
				"username": "testuser",
				"image_url": "https://example.com/image.jpg"
			},
			"object": "event",
			"type": %q
		}`, clerkID, eventType)
	case "user.updated":
		return fmt.Appendf(nil, `{
			"data": {
				"id": %q,
				"first_name": "Updated",
				"last_name": "User",
				"email_addresses": [{
					"id": "email_123",
					"email_address": "test.user@example.com",
					"verification": {"status": "verified"}
				}],
				"primary_email_address_id": "email_123",
				"username": "updateduser",
				"image_url": "https://example.com/new-image.jpg"
			},
			"object": "event",
			"type": %q
		}`, clerkID, eventType)
	default:
		return fmt.Appendf(nil, `{
			"data": {"id": %q, "deleted": true},
			"object": "event",
			"type": %q
		}`, clerkID, eventType)
	}
}
