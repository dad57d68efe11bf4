package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/streakdhq/streakd/internal/database"
	"github.com/streakdhq/streakd/internal/date"
	"github.com/streakdhq/streakd/internal/queue"
	"github.com/streakdhq/streakd/internal/request"
	"github.com/streakdhq/streakd/internal/validation"
)

// StreakHandler serves streak state and accepts refresh requests.
type StreakHandler struct {
	streakData database.StreakDataStore
	jobQueue   queue.JobQueue
	loc        *time.Location
}

// NewStreakHandler creates a new streak handler. loc nil means UTC.
func NewStreakHandler(streakData database.StreakDataStore, jobQueue queue.JobQueue, loc *time.Location) *StreakHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &StreakHandler{streakData: streakData, jobQueue: jobQueue, loc: loc}
}

// RegisterRoutes registers streak routes on the given router.
// The router should already have the /streak prefix.
func (h *StreakHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetStreak).Methods("GET")
	r.HandleFunc("/refresh", h.RequestRefresh).Methods("POST")
}

// GetStreak returns the user's streak summary, creating the zeroed default
// on first access.
func (h *StreakHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	data, err := h.streakData.GetByUserIDOrCreate(r.Context(), userID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve streak data")
		return
	}

	respondJSON(w, http.StatusOK, data)
}

// RefreshRequest optionally names the day to re-aggregate. Empty means today.
type RefreshRequest struct {
	Date string `json:"date,omitempty"`
}

// RefreshResponse reports the accepted refresh job.
type RefreshResponse struct {
	JobID string `json:"job_id"`
	Day   string `json:"day"`
}

// RequestRefresh enqueues a streak refresh job for the given day. The
// refresh itself runs asynchronously; the response only confirms enqueueing.
func (h *StreakHandler) RequestRefresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	day := date.Today(h.loc)
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if req.Date != "" {
		if err := validation.ValidateCalendarDay(req.Date); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		day = date.Day(req.Date)
	}

	job := queue.NewJob(queue.JobTypeStreakRefresh, userID, day)
	if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to enqueue refresh job")
		return
	}

	respondJSON(w, http.StatusAccepted, RefreshResponse{
		JobID: job.ID.String(),
		Day:   day.String(),
	})
}
