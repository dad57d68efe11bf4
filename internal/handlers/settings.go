package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/streakdhq/streakd/internal/database"
	"github.com/streakdhq/streakd/internal/queue"
	"github.com/streakdhq/streakd/internal/request"
	"github.com/streakdhq/streakd/internal/validation"
)

// SettingsHandler serves per-user streak settings.
type SettingsHandler struct {
	settings database.StreakSettingsStore
	jobQueue queue.JobQueue
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings database.StreakSettingsStore, jobQueue queue.JobQueue) *SettingsHandler {
	return &SettingsHandler{settings: settings, jobQueue: jobQueue}
}

// RegisterRoutes registers settings routes on the given router.
// The router should already have the /settings prefix.
func (h *SettingsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/streak-threshold", h.GetThreshold).Methods("GET")
	r.HandleFunc("/streak-threshold", h.PutThreshold).Methods("PUT")
}

// ThresholdResponse carries the user's streak threshold.
type ThresholdResponse struct {
	StreakThreshold int `json:"streak_threshold"`
}

// GetThreshold returns the user's streak threshold, defaulted if unset.
func (h *SettingsHandler) GetThreshold(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	settings, err := h.settings.GetByUserID(r.Context(), userID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve settings")
		return
	}

	respondJSON(w, http.StatusOK, ThresholdResponse{StreakThreshold: settings.StreakThreshold})
}

// PutThresholdRequest is the update payload.
type PutThresholdRequest struct {
	StreakThreshold int `json:"streak_threshold" validate:"required,streak_threshold"`
}

// PutThreshold stores a new streak threshold and enqueues a recompute so the
// whole streak history is reclassified under the new rule.
func (h *SettingsHandler) PutThreshold(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req PutThresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "streak_threshold must be between 1 and 100")
		return
	}

	settings, err := h.settings.GetByUserID(r.Context(), userID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve settings")
		return
	}
	settings.StreakThreshold = req.StreakThreshold
	if err := h.settings.Upsert(r.Context(), settings); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save settings")
		return
	}

	// A threshold change reclassifies history, so the streak must be rebuilt.
	if h.jobQueue != nil {
		job := queue.NewJob(queue.JobTypeStreakRecompute, userID, "")
		if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
			respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Settings saved but recompute could not be scheduled")
			return
		}
	}

	respondJSON(w, http.StatusOK, ThresholdResponse{StreakThreshold: req.StreakThreshold})
}
