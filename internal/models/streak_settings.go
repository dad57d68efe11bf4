package models

import (
	"time"

	"github.com/google/uuid"
)

// StreakSettings holds per-user tuning for streak classification.
type StreakSettings struct {
	UserID          uuid.UUID `json:"user_id"`
	StreakThreshold int       `json:"streak_threshold"`
	RescanPaused    bool      `json:"rescan_paused"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewStreakSettings returns defaults for a user with no stored settings.
func NewStreakSettings(userID uuid.UUID) *StreakSettings {
	return &StreakSettings{
		UserID:          userID,
		StreakThreshold: DefaultStreakThreshold,
	}
}
