package handlers

import (
	"context"
	"net/http"

	"poopyPalsAPI/internal/types/challenge"
	"poopyPalsAPI/services"
)

type ChallengeHandler struct {
	challengeService   *services.ChallengeService
	achievementService *services.AchievementService
}

func NewChallengeHandler(challengeService *services.ChallengeService, achievementService *services.AchievementService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService:   challengeService,
		achievementService: achievementService,
	}
}

// GET /api/v1/challenges
func (h *ChallengeHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	challenges, err := h.challengeService.ListChallenges(ctx)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, challenges)
}

// GET /api/v1/challenges/me
func (h *ChallengeHandler) ListUserChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	resp, err := h.challengeService.ListUserChallenges(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// POST /api/v1/challenges/assign
func (h *ChallengeHandler) AssignChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	assigned, err := h.challengeService.AssignChallenges(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, challenge.AssignResponse{Assigned: assigned})
}

// POST /api/v1/challenges/evaluate
func (h *ChallengeHandler) EvaluateChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	completed, err := h.challengeService.UpdateChallengeProgress(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, challenge.EvaluateResponse{Completed: completed})
}

// GET /api/v1/achievements
func (h *ChallengeHandler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := requireUser(w, ctx)
	if !ok {
		return
	}

	achievements, err := h.achievementService.ListAchievements(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, achievements)
}
