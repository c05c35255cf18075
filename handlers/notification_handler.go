package handlers

import (
	"context"
	"net/http"
	"time"

	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/services"
)

const scheduleTimeout = 15 * time.Second

type NotificationHandler struct {
	notificationService *services.NotificationService
	scheduler           *services.NotificationScheduler
}

func NewNotificationHandler(notificationService *services.NotificationService, scheduler *services.NotificationScheduler) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		scheduler:           scheduler,
	}
}

// GET /api/v1/notifications - Get user's notifications
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	page, pageSize := pagination(r)
	unreadOnly := r.URL.Query().Get("unread_only") == "true"

	response, err := h.notificationService.GetNotifications(ctx, userID, page, pageSize, unreadOnly)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, response)
}

// GET /api/v1/notifications/unread-count - Get unread count
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	count, err := h.notificationService.GetUnreadCount(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, notification.UnreadCountResponse{Count: count})
}

// PUT /api/v1/notifications/{id}/read - Mark notification as read
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}
	notificationID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.notificationService.MarkAsRead(ctx, userID, notificationID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// PUT /api/v1/notifications/read-all - Mark all as read
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllAsRead(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// DELETE /api/v1/notifications/{id} - Delete notification
func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}
	notificationID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.notificationService.DeleteNotification(ctx, userID, notificationID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}

// GET /api/v1/notifications/preferences - Get notification preferences
func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	prefs, err := h.notificationService.GetPreferences(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, prefs)
}

// PUT /api/v1/notifications/preferences - Update notification preferences
func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	var req notification.UpdatePreferencesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	prefs, err := h.notificationService.UpdatePreferences(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, prefs)
}

// POST /api/v1/notifications/register-device - Register device token for push notifications
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	var req notification.RegisterDeviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.notificationService.RegisterDevice(ctx, userID, &req); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Device registered successfully"})
}

// POST /api/v1/notifications/schedule - Run the scheduler for the caller
func (h *NotificationHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), scheduleTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	created, err := h.scheduler.ScheduleNotifications(ctx, userID)
	if err != nil && len(created) == 0 {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, notification.ScheduleResponse{Created: created})
}
