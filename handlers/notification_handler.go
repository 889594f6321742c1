package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"habitLoopAPI/internal/types/group"
	"habitLoopAPI/internal/types/notification"
	"habitLoopAPI/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// POST /api/v1/notifications/register-device
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := requireClerkID(ctx, w)
	if !ok {
		return
	}

	var req notification.RegisterDeviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.notificationService.RegisterDevice(ctx, clerkID, req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithSuccess(w)
}

// POST /api/v1/groups/{groupId}/nudge
func (h *NotificationHandler) Nudge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := requireClerkID(ctx, w)
	if !ok {
		return
	}
	groupID, ok := pathUUID(w, r, "groupId")
	if !ok {
		return
	}

	var req group.NudgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == uuid.Nil {
		respondWithError(w, http.StatusBadRequest, "userId is required")
		return
	}

	if err := h.notificationService.Nudge(ctx, clerkID, groupID, req.UserID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithSuccess(w)
}
