package handlers

import (
	"context"
	"net/http"

	"poopyPalsAPI/internal/types/reminder"
	"poopyPalsAPI/services"
)

type ReminderHandler struct {
	reminderService *services.ReminderService
}

func NewReminderHandler(reminderService *services.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminderService: reminderService}
}

// GET /api/v1/reminders
func (h *ReminderHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	reminders, err := h.reminderService.ListReminders(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, reminders)
}

// POST /api/v1/reminders
func (h *ReminderHandler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	var req reminder.CreateReminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rem, err := h.reminderService.CreateReminder(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, rem)
}

// PUT /api/v1/reminders/{id}
func (h *ReminderHandler) UpdateReminder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req reminder.UpdateReminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rem, err := h.reminderService.UpdateReminder(ctx, userID, id, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rem)
}

// DELETE /api/v1/reminders/{id}
func (h *ReminderHandler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.reminderService.DeleteReminder(ctx, userID, id); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Reminder deleted"})
}
