package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streakdhq/streakd/internal/date"
	"github.com/streakdhq/streakd/internal/models"
)

// DailyStatsRepository handles daily stats storage, keyed by (user_id, day).
// Records are always written whole; there is no partial update path.
type DailyStatsRepository struct {
	db *DB
}

// NewDailyStatsRepository creates a new daily stats repository
func NewDailyStatsRepository(db *DB) *DailyStatsRepository {
	return &DailyStatsRepository{db: db}
}

// Upsert fully replaces the record for (user, day).
func (r *DailyStatsRepository) Upsert(ctx context.Context, stats *models.DailyStats) error {
	query := `
		INSERT INTO daily_stats (user_id, day, tasks_assigned, tasks_completed, completion_percentage,
			focus_time_minutes, focus_sessions, pomodoro_count, streak_day, tasks_details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (user_id, day) DO UPDATE
		SET tasks_assigned = EXCLUDED.tasks_assigned,
		    tasks_completed = EXCLUDED.tasks_completed,
		    completion_percentage = EXCLUDED.completion_percentage,
		    focus_time_minutes = EXCLUDED.focus_time_minutes,
		    focus_sessions = EXCLUDED.focus_sessions,
		    pomodoro_count = EXCLUDED.pomodoro_count,
		    streak_day = EXCLUDED.streak_day,
		    tasks_details = EXCLUDED.tasks_details,
		    updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	detailsJSON, err := json.Marshal(stats.TasksDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal tasks_details: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query,
		stats.UserID,
		stats.Day.String(),
		stats.TasksAssigned,
		stats.TasksCompleted,
		stats.CompletionPercentage,
		stats.FocusTimeMinutes,
		stats.FocusSessions,
		stats.PomodoroCount,
		stats.StreakDay,
		detailsJSON,
		time.Now(),
	).Scan(&stats.CreatedAt, &stats.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert daily stats: %w", err)
	}

	return nil
}

// GetByUserAndDay retrieves the record for (user, day), or nil if absent.
func (r *DailyStatsRepository) GetByUserAndDay(ctx context.Context, userID uuid.UUID, day date.Day) (*models.DailyStats, error) {
	query := `
		SELECT user_id, day, tasks_assigned, tasks_completed, completion_percentage,
		       focus_time_minutes, focus_sessions, pomodoro_count, streak_day, tasks_details, created_at, updated_at
		FROM daily_stats
		WHERE user_id = $1 AND day = $2
	`

	stats, err := scanDailyStats(r.db.QueryRowContext(ctx, query, userID, day.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}

	return stats, nil
}

// GetAllByUser retrieves the complete daily stats history for a user.
// Ordering is incidental; the reconstructor sorts its input.
func (r *DailyStatsRepository) GetAllByUser(ctx context.Context, userID uuid.UUID) ([]*models.DailyStats, error) {
	query := `
		SELECT user_id, day, tasks_assigned, tasks_completed, completion_percentage,
		       focus_time_minutes, focus_sessions, pomodoro_count, streak_day, tasks_details, created_at, updated_at
		FROM daily_stats
		WHERE user_id = $1
		ORDER BY day ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var all []*models.DailyStats
	for rows.Next() {
		stats, err := scanDailyStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		all = append(all, stats)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily stats: %w", err)
	}

	return all, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDailyStats(row rowScanner) (*models.DailyStats, error) {
	stats := &models.DailyStats{}
	var day string
	var detailsJSON []byte

	err := row.Scan(
		&stats.UserID,
		&day,
		&stats.TasksAssigned,
		&stats.TasksCompleted,
		&stats.CompletionPercentage,
		&stats.FocusTimeMinutes,
		&stats.FocusSessions,
		&stats.PomodoroCount,
		&stats.StreakDay,
		&detailsJSON,
		&stats.CreatedAt,
		&stats.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	stats.Day = date.Day(day)

	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &stats.TasksDetails); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tasks_details: %w", err)
		}
	} else {
		stats.TasksDetails = []models.TaskDayDetail{}
	}

	return stats, nil
}
