package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/streakdhq/streakd/internal/date"
)

// TaskDayDetail is the per-task breakdown inside a DailyStats record. Focus
// time and pomodoros count only the task's own sessions within the day.
type TaskDayDetail struct {
	TaskID           uuid.UUID  `json:"task_id"`
	Title            string     `json:"title"`
	Completed        bool       `json:"completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	FocusTimeMinutes int        `json:"focus_time_minutes"`
	PomodoroCount    int        `json:"pomodoro_count"`
}

// DailyStats is the per-day summary for one user, keyed by (user, day).
// It is always created or overwritten whole; the aggregator never patches
// an existing record.
type DailyStats struct {
	UserID               uuid.UUID       `json:"user_id"`
	Day                  date.Day        `json:"day"`
	TasksAssigned        int             `json:"tasks_assigned"`
	TasksCompleted       int             `json:"tasks_completed"`
	CompletionPercentage int             `json:"completion_percentage"`
	FocusTimeMinutes     int             `json:"focus_time_minutes"`
	FocusSessions        int             `json:"focus_sessions"`
	PomodoroCount        int             `json:"pomodoro_count"`
	StreakDay            bool            `json:"streak_day"`
	TasksDetails         []TaskDayDetail `json:"tasks_details"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
