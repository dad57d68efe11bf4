package streak

import "github.com/streakdhq/streakd/internal/models"

// IsStreakDay decides whether a day's stats qualify it for a streak.
//
// A day qualifies when its completion percentage meets the threshold, or when
// no tasks were assigned but focus time was logged. The fallback clause keeps
// pure focus-session days counting without dividing by zero.
func IsStreakDay(stats *models.DailyStats, threshold int) bool {
	if stats == nil {
		return false
	}
	if threshold <= 0 {
		threshold = models.DefaultStreakThreshold
	}
	if stats.CompletionPercentage >= threshold {
		return true
	}
	return stats.TasksAssigned == 0 && stats.FocusTimeMinutes > 0
}
