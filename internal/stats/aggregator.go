package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/streakdhq/streakd/internal/date"
	"github.com/streakdhq/streakd/internal/models"
)

// ComputeDailyStats aggregates a user's raw task and focus-session records
// into the DailyStats summary for one calendar day.
//
// A task is relevant to the day when any of its creation, completion, or
// last-modified timestamps falls inside the day window and the task is not
// hidden. A relevant task counts as completed only when it is completed AND
// its completion timestamp falls inside the same window, so completing a task
// yesterday and editing it today does not inflate today's percentage. Focus
// sessions belong to the day their start time falls in.
//
// The function is pure: no clock reads, no store access. Callers filter at
// the source if they can; the same filters are re-applied here so the result
// is correct over an unfiltered listing too.
func ComputeDailyStats(userID uuid.UUID, day date.Day, loc *time.Location, tasks []*models.Task, sessions []*models.FocusSession) (*models.DailyStats, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if !day.Valid() {
		return nil, fmt.Errorf("invalid calendar day %q", day)
	}
	if loc == nil {
		loc = time.UTC
	}

	out := &models.DailyStats{
		UserID:       userID,
		Day:          day,
		TasksDetails: []models.TaskDayDetail{},
	}

	// Per-task focus rollups for the detail rows.
	focusByTask := make(map[uuid.UUID]struct{ minutes, pomodoros int })
	for _, s := range sessions {
		if s == nil || !day.Contains(s.StartedAt, loc) {
			continue
		}
		out.FocusSessions++
		out.FocusTimeMinutes += s.DurationMinutes
		out.PomodoroCount += s.PomodoroCount
		if s.TaskID != nil {
			agg := focusByTask[*s.TaskID]
			agg.minutes += s.DurationMinutes
			agg.pomodoros += s.PomodoroCount
			focusByTask[*s.TaskID] = agg
		}
	}

	for _, task := range tasks {
		if task == nil || task.Hidden || !taskRelevantToDay(task, day, loc) {
			continue
		}
		out.TasksAssigned++

		completedOnDay := task.Completed && task.CompletedAt != nil && day.Contains(*task.CompletedAt, loc)
		if completedOnDay {
			out.TasksCompleted++
		}

		detail := models.TaskDayDetail{
			TaskID:    task.ID,
			Title:     task.Title,
			Completed: completedOnDay,
		}
		if completedOnDay {
			detail.CompletedAt = task.CompletedAt
		}
		if agg, ok := focusByTask[task.ID]; ok {
			detail.FocusTimeMinutes = agg.minutes
			detail.PomodoroCount = agg.pomodoros
		}
		out.TasksDetails = append(out.TasksDetails, detail)
	}

	if out.TasksAssigned > 0 {
		out.CompletionPercentage = int(math.Round(float64(out.TasksCompleted) / float64(out.TasksAssigned) * 100))
	}

	if out.TasksCompleted > out.TasksAssigned {
		// Fresh output must never violate this; the filters above make it
		// unreachable, but fail loudly instead of persisting bad data.
		return nil, fmt.Errorf("aggregation produced completed=%d > assigned=%d for user %s day %s",
			out.TasksCompleted, out.TasksAssigned, userID, day)
	}

	return out, nil
}

// taskRelevantToDay applies the relevance window: created, completed, or last
// modified within the day.
func taskRelevantToDay(task *models.Task, day date.Day, loc *time.Location) bool {
	if day.Contains(task.CreatedAt, loc) || day.Contains(task.LastModified, loc) {
		return true
	}
	return task.CompletedAt != nil && day.Contains(*task.CompletedAt, loc)
}
