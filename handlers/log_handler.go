package handlers

import (
	"context"
	"net/http"

	"poopyPalsAPI/internal/types/poop"
	"poopyPalsAPI/services"
)

type LogHandler struct {
	logService *services.LogService
}

func NewLogHandler(logService *services.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

// POST /api/v1/logs
func (h *LogHandler) CreateLog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	var req poop.CreateLogRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.logService.CreateLog(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, entry)
}

// GET /api/v1/logs
func (h *LogHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	page, pageSize := pagination(r)
	resp, err := h.logService.ListLogs(ctx, userID, page, pageSize)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/logs/{id}
func (h *LogHandler) GetLog(w http.ResponseWriter, r *http.Request) {
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

	entry, err := h.logService.GetLog(ctx, userID, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entry)
}
