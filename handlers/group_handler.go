package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"habitLoopAPI/internal/types/group"
	"habitLoopAPI/services"
)

type GroupHandler struct {
	groupService *services.GroupService
}

func NewGroupHandler(groupService *services.GroupService) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
	}
}

// GET /api/v1/groups
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := requireClerkID(ctx, w)
	if !ok {
		return
	}

	groups, err := h.groupService.ListGroups(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// POST /api/v1/groups
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := requireClerkID(ctx, w)
	if !ok {
		return
	}

	var req group.CreateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.groupService.CreateGroup(ctx, clerkID, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{"group": created})
}

// GET /api/v1/groups/{groupId}
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
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

	view, err := h.groupService.GetGroup(ctx, clerkID, groupID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"group": view})
}

// POST /api/v1/groups/{groupId}/join
func (h *GroupHandler) JoinGroup(w http.ResponseWriter, r *http.Request) {
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

	// The body is optional for public groups.
	var req group.JoinGroupRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.groupService.JoinGroup(ctx, clerkID, groupID, req.InviteCode)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"group": view})
}

// POST /api/v1/groups/join
func (h *GroupHandler) JoinByInviteCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := requireClerkID(ctx, w)
	if !ok {
		return
	}

	var req group.JoinGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.groupService.JoinByInviteCode(ctx, clerkID, req.InviteCode)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"group": view})
}

// DELETE /api/v1/groups/{groupId}/members/me
func (h *GroupHandler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
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

	if err := h.groupService.LeaveGroup(ctx, clerkID, groupID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithSuccess(w)
}

// POST /api/v1/groups/{groupId}/habits
func (h *GroupHandler) ShareHabit(w http.ResponseWriter, r *http.Request) {
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

	var req group.ShareHabitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.HabitID == uuid.Nil {
		respondWithError(w, http.StatusBadRequest, "habitId is required")
		return
	}

	if err := h.groupService.ShareHabit(ctx, clerkID, groupID, req.HabitID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithSuccess(w)
}

// DELETE /api/v1/groups/{groupId}/habits/{habitId}
func (h *GroupHandler) UnshareHabit(w http.ResponseWriter, r *http.Request) {
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
	habitID, ok := pathUUID(w, r, "habitId")
	if !ok {
		return
	}

	if err := h.groupService.UnshareHabit(ctx, clerkID, groupID, habitID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithSuccess(w)
}

// GET /api/v1/groups/{groupId}/leaderboard
func (h *GroupHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
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

	board, err := h.groupService.Leaderboard(ctx, clerkID, groupID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"leaderboard": board})
}

// GET /api/v1/groups/{groupId}/invite-qr
func (h *GroupHandler) InviteQRCode(w http.ResponseWriter, r *http.Request) {
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

	qr, err := h.groupService.InviteQRCode(ctx, clerkID, groupID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"invite": qr})
}
