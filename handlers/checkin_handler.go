package handlers

import (
	"context"
	"net/http"

	"habitLoopAPI/services"
)

type CheckinHandler struct {
	checkinService *services.CheckinService
}

func NewCheckinHandler(checkinService *services.CheckinService) *CheckinHandler {
	return &CheckinHandler{
		checkinService: checkinService,
	}
}

// POST /api/v1/habits/{habitId}/checkin
func (h *CheckinHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := requireClerkID(ctx, w)
	if !ok {
		return
	}
	habitID, ok := pathUUID(w, r, "habitId")
	if !ok {
		return
	}

	c, err := h.checkinService.CheckIn(ctx, clerkID, habitID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"checkin": c})
}

// DELETE /api/v1/habits/{habitId}/checkin
func (h *CheckinHandler) Undo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := requireClerkID(ctx, w)
	if !ok {
		return
	}
	habitID, ok := pathUUID(w, r, "habitId")
	if !ok {
		return
	}

	if err := h.checkinService.Undo(ctx, clerkID, habitID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithSuccess(w)
}
