package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/streakdhq/streakd/internal/database"
	"github.com/streakdhq/streakd/internal/date"
	"github.com/streakdhq/streakd/internal/models"
	"github.com/streakdhq/streakd/internal/request"
	"github.com/streakdhq/streakd/internal/validation"
)

// StatsHandler serves per-day aggregates.
type StatsHandler struct {
	dailyStats database.DailyStatsStore
	loc        *time.Location
}

// NewStatsHandler creates a new stats handler. loc nil means UTC.
func NewStatsHandler(dailyStats database.DailyStatsStore, loc *time.Location) *StatsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsHandler{dailyStats: dailyStats, loc: loc}
}

// RegisterRoutes registers stats routes on the given router.
// The router should already have the /stats prefix.
func (h *StatsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/daily", h.GetDaily).Methods("GET")
	r.HandleFunc("/daily/history", h.GetHistory).Methods("GET")
}

// GetDaily returns one day's stats for the authenticated user. The date
// query parameter defaults to today; a day with no stored record returns
// a zeroed aggregate rather than a 404.
func (h *StatsHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	day := date.Today(h.loc)
	if d := r.URL.Query().Get("date"); d != "" {
		if err := validation.ValidateCalendarDay(d); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		day = date.Day(d)
	}

	stats, err := h.dailyStats.GetByUserAndDay(r.Context(), userID, day)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve daily stats")
		return
	}
	if stats == nil {
		stats = &models.DailyStats{
			UserID:       userID,
			Day:          day,
			TasksDetails: []models.TaskDayDetail{},
		}
	}

	respondJSON(w, http.StatusOK, stats)
}

// HistoryResponse wraps the full per-day history for a user.
type HistoryResponse struct {
	Days  []*models.DailyStats `json:"days"`
	Total int                  `json:"total"`
}

// GetHistory returns every stored daily aggregate for the user, oldest first.
func (h *StatsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserIDFromContext(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	days, err := h.dailyStats.GetAllByUser(r.Context(), userID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve daily stats history")
		return
	}
	if days == nil {
		days = []*models.DailyStats{}
	}

	respondJSON(w, http.StatusOK, HistoryResponse{Days: days, Total: len(days)})
}
