package handlers

import (
	"cmp"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/types/clerk"
	"habitLoopAPI/internal/types/user"
	"habitLoopAPI/services"
)

const webhookTolerance = 5 * time.Minute

var (
	errMissingSignature = errors.New("missing webhook signature headers")
	errStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
	errBadSignature     = errors.New("no matching webhook signature")
)

type WebhookHandler struct {
	userService *services.UserService
	secret      string
	now         func() time.Time
}

// NewWebhookHandler verifies Clerk deliveries with secret, given in the
// "whsec_<base64>" form. An empty secret disables verification.
func NewWebhookHandler(userService *services.UserService, secret string) *WebhookHandler {
	return &WebhookHandler{
		userService: userService,
		secret:      secret,
		now:         time.Now,
	}
}

// POST /webhooks/clerk
func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Error reading body")
		return
	}

	if err := h.verifySignature(r.Header, body); err != nil {
		slog.Warn("rejected clerk webhook", "error", err)
		respondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event clerk.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondWithError(w, http.StatusBadRequest, "Error parsing webhook")
		return
	}

	slog.Info("received clerk webhook", "type", event.Type)

	switch event.Type {
	case "user.created":
		err = h.handleUserCreated(ctx, event.Data)
	case "user.updated":
		err = h.handleUserUpdated(ctx, event.Data)
	case "user.deleted":
		err = h.handleUserDeleted(ctx, event.Data)
	default:
		slog.Debug("ignoring clerk webhook", "type", event.Type)
	}
	if err != nil {
		slog.Error("failed to process clerk webhook", "type", event.Type, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Error processing webhook")
		return
	}

	respondWithSuccess(w)
}

func (h *WebhookHandler) handleUserCreated(ctx context.Context, data json.RawMessage) error {
	req, err := createUserRequest(data)
	if err != nil {
		return err
	}

	u, err := h.userService.SyncUser(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("created user", "clerk_id", u.ClerkID, "user_id", u.ID)
	return nil
}

// handleUserUpdated creates the user when the creation event was missed.
func (h *WebhookHandler) handleUserUpdated(ctx context.Context, data json.RawMessage) error {
	req, err := createUserRequest(data)
	if err != nil {
		return err
	}

	update := &user.UpdateUserRequest{
		Email:     &req.Email,
		FirstName: &req.FirstName,
		LastName:  &req.LastName,
		ImageURL:  req.ImageURL,
	}
	if req.Username != "" {
		update.Username = &req.Username
	}

	_, err = h.userService.UpdateUserByClerkID(ctx, req.ClerkID, update)
	if errors.Is(err, apperr.ErrNotFound) {
		_, err = h.userService.SyncUser(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	slog.Info("updated user", "clerk_id", req.ClerkID)
	return nil
}

func (h *WebhookHandler) handleUserDeleted(ctx context.Context, data json.RawMessage) error {
	var userData clerk.UserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	err := h.userService.DeleteUserByClerkID(ctx, userData.ID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("deleted user", "clerk_id", userData.ID)
	return nil
}

func createUserRequest(data json.RawMessage) (*user.CreateUserRequest, error) {
	var userData clerk.UserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	req := &user.CreateUserRequest{
		ClerkID:   userData.ID,
		Email:     userData.PrimaryEmail(),
		Username:  userData.Username,
		FirstName: userData.FirstName,
		LastName:  userData.LastName,
	}
	if img := cmp.Or(userData.ImageURL, userData.ProfileImageURL); img != "" {
		req.ImageURL = &img
	}
	return req, nil
}

// verifySignature checks the svix headers Clerk signs deliveries with: an
// HMAC-SHA256 over "id.timestamp.body", base64 encoded, with possibly several
// space separated "v1,<sig>" candidates.
func (h *WebhookHandler) verifySignature(header http.Header, body []byte) error {
	if h.secret == "" {
		slog.Warn("CLERK_WEBHOOK_SECRET not set, skipping signature verification")
		return nil
	}

	id := header.Get("svix-id")
	ts := header.Get("svix-timestamp")
	signatures := header.Get("svix-signature")
	if id == "" || ts == "" || signatures == "" {
		return errMissingSignature
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid webhook timestamp: %w", err)
	}
	if d := h.now().Sub(time.Unix(sec, 0)); d > webhookTolerance || d < -webhookTolerance {
		return errStaleTimestamp
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(h.secret, "whsec_"))
	if err != nil {
		return fmt.Errorf("invalid webhook secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.%s", id, ts, body)
	expected := mac.Sum(nil)

	for _, candidate := range strings.Fields(signatures) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return errBadSignature
}
