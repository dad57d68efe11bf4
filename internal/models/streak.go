package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/streakdhq/streakd/internal/date"
)

// DefaultStreakThreshold is the completion-percentage cutoff used when a user
// has no explicit setting.
const DefaultStreakThreshold = 50

// StreakRun is a closed maximal run of consecutive streak days.
type StreakRun struct {
	StartDate date.Day `json:"start_date"`
	EndDate   date.Day `json:"end_date"`
	Length    int      `json:"length"`
}

// StreakData is the per-user streak summary. One record per user, fully
// replaced on every reconstruction.
//
// Invariants: LongestStreak >= CurrentStreak; StreakHistory never contains
// the run that is still current.
type StreakData struct {
	UserID          uuid.UUID   `json:"user_id"`
	CurrentStreak   int         `json:"current_streak"`
	LongestStreak   int         `json:"longest_streak"`
	TotalDaysActive int         `json:"total_days_active"`
	LastActiveDate  date.Day    `json:"last_active_date,omitempty"`
	StreakThreshold int         `json:"streak_threshold"`
	StreakHistory   []StreakRun `json:"streak_history"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// NewStreakData returns the zeroed default created on first access.
func NewStreakData(userID uuid.UUID) *StreakData {
	return &StreakData{
		UserID:          userID,
		StreakThreshold: DefaultStreakThreshold,
		StreakHistory:   []StreakRun{},
	}
}
