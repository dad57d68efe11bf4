package models

import (
	"time"

	"github.com/google/uuid"
)

// FocusSession represents a timed focus block, optionally tied to a task.
type FocusSession struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	TaskID          *uuid.UUID `json:"task_id,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	PomodoroCount   int        `json:"pomodoro_count"`
}
