package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/testutil"
)

func (ts *testServer) webhook(t *testing.T, body []byte, sign func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sign != nil {
		sign(req)
	}

	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func signed(t *testing.T, body []byte) func(*http.Request) {
	return func(req *http.Request) {
		testutil.SignClerkWebhook(t, req, webhookSecret, body)
	}
}

func TestClerkWebhookUserLifecycle(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()

	created := testutil.ClerkWebhookPayload("user.created", "user_webhook")
	rr := ts.webhook(t, created, signed(t, created))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"success": true}`, rr.Body.String())

	u, err := ts.store.GetUserByClerkID(ctx, "user_webhook")
	require.NoError(t, err)
	assert.Equal(t, "testuser", u.Username)
	assert.Equal(t, "test.user@example.com", u.Email)
	require.NotNil(t, u.ImageURL)

	// Clerk may redeliver the same event.
	rr = ts.webhook(t, created, signed(t, created))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	updated := testutil.ClerkWebhookPayload("user.updated", "user_webhook")
	rr = ts.webhook(t, updated, signed(t, updated))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	u, err = ts.store.GetUserByClerkID(ctx, "user_webhook")
	require.NoError(t, err)
	assert.Equal(t, "updateduser", u.Username)
	assert.Equal(t, "Updated", u.FirstName)

	deleted := testutil.ClerkWebhookPayload("user.deleted", "user_webhook")
	rr = ts.webhook(t, deleted, signed(t, deleted))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	_, err = ts.store.GetUserByClerkID(ctx, "user_webhook")
	assert.ErrorIs(t, err, store.ErrNotFound)

	rr = ts.webhook(t, deleted, signed(t, deleted))
	assert.Equal(t, http.StatusOK, rr.Code, "deleting an unknown user is not an error")
}

func TestClerkWebhookUpdateCreatesMissingUser(t *testing.T) {
	ts := setupServer(t)

	updated := testutil.ClerkWebhookPayload("user.updated", "user_late")
	rr := ts.webhook(t, updated, signed(t, updated))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	u, err := ts.store.GetUserByClerkID(context.Background(), "user_late")
	require.NoError(t, err)
	assert.Equal(t, "updateduser", u.Username)
}

func TestClerkWebhookRejectsBadSignatures(t *testing.T) {
	ts := setupServer(t)
	body := testutil.ClerkWebhookPayload("user.created", "user_forged")

	tests := []struct {
		name string
		sign func(*http.Request)
	}{
		{"no headers", nil},
		{"tampered body", signed(t, []byte(`{"type":"user.created"}`))},
		{"wrong signature", func(req *http.Request) {
			testutil.SignClerkWebhook(t, req, webhookSecret, body)
			req.Header.Set("svix-signature", "v1,bm90LWEtc2lnbmF0dXJl")
		}},
		{"stale timestamp", func(req *http.Request) {
			testutil.SignClerkWebhook(t, req, webhookSecret, body)
			req.Header.Set("svix-timestamp", strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.webhook(t, body, tt.sign)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}

	_, err := ts.store.GetUserByClerkID(context.Background(), "user_forged")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestClerkWebhookAcceptsAnyValidCandidate(t *testing.T) {
	ts := setupServer(t)
	body := testutil.ClerkWebhookPayload("user.created", "user_rotated")

	rr := ts.webhook(t, body, func(req *http.Request) {
		testutil.SignClerkWebhook(t, req, webhookSecret, body)
		req.Header.Set("svix-signature", "v1,b2xkLWtleQ== "+req.Header.Get("svix-signature"))
	})
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestClerkWebhookIgnoresOtherEvents(t *testing.T) {
	ts := setupServer(t)
	body := []byte(`{"object": "event", "type": "session.created", "data": {"id": "sess_1"}}`)

	rr := ts.webhook(t, body, signed(t, body))
	assert.Equal(t, http.StatusOK, rr.Code)
}
