package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/streakdhq/streakd/internal/models"
)

// FocusSessionRepository reads focus-session records from the session source.
type FocusSessionRepository struct {
	db *DB
}

// NewFocusSessionRepository creates a new focus session repository
func NewFocusSessionRepository(db *DB) *FocusSessionRepository {
	return &FocusSessionRepository{db: db}
}

// GetByUserID retrieves all focus sessions for a user. The aggregator filters
// by day window; session histories are small enough to list whole.
func (r *FocusSessionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.FocusSession, error) {
	query := `
		SELECT id, user_id, task_id, started_at, ended_at, duration_minutes, pomodoro_count
		FROM focus_sessions
		WHERE user_id = $1
		ORDER BY started_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query focus sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.FocusSession
	for rows.Next() {
		session := &models.FocusSession{}
		var taskID uuid.NullUUID
		var endedAt sql.NullTime

		err := rows.Scan(
			&session.ID,
			&session.UserID,
			&taskID,
			&session.StartedAt,
			&endedAt,
			&session.DurationMinutes,
			&session.PomodoroCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan focus session: %w", err)
		}

		if taskID.Valid {
			session.TaskID = &taskID.UUID
		}
		if endedAt.Valid {
			session.EndedAt = &endedAt.Time
		}

		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating focus sessions: %w", err)
	}

	return sessions, nil
}
