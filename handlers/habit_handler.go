package handlers

import (
	"context"
	"net/http"
	"strconv"

	"habitLoopAPI/internal/types/habit"
	"habitLoopAPI/services"
)

type HabitHandler struct {
	habitService *services.HabitService
}

func NewHabitHandler(habitService *services.HabitService) *HabitHandler {
	return &HabitHandler{
		habitService: habitService,
	}
}

// GET /api/v1/habits
func (h *HabitHandler) ListHabits(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := requireClerkID(ctx, w)
	if !ok {
		return
	}

	habits, err := h.habitService.ListHabits(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"habits": habits})
}

// POST /api/v1/habits
func (h *HabitHandler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := requireClerkID(ctx, w)
	if !ok {
		return
	}

	var req habit.CreateHabitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.habitService.CreateHabit(ctx, clerkID, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{"habit": created})
}

// GET /api/v1/habits/{habitId}
func (h *HabitHandler) GetHabit(w http.ResponseWriter, r *http.Request) {
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

	view, err := h.habitService.GetHabit(ctx, clerkID, habitID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"habit": view})
}

// PUT /api/v1/habits/{habitId}
func (h *HabitHandler) UpdateHabit(w http.ResponseWriter, r *http.Request) {
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

	var req habit.UpdateHabitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.habitService.UpdateHabit(ctx, clerkID, habitID, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"habit": updated})
}

// DELETE /api/v1/habits/{habitId}
func (h *HabitHandler) DeactivateHabit(w http.ResponseWriter, r *http.Request) {
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

	if err := h.habitService.DeactivateHabit(ctx, clerkID, habitID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithSuccess(w)
}

// GET /api/v1/habits/{habitId}/stats?days=N
func (h *HabitHandler) GetStats(w http.ResponseWriter, r *http.Request) {
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

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Query parameter 'days' must be a number")
			return
		}
		days = n
	}

	stats, err := h.habitService.HabitStats(ctx, clerkID, habitID, days)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"stats": stats})
}
