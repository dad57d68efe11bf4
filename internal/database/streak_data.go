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

// StreakDataRepository handles the per-user streak singleton. The record is
// always replaced whole by reconstruction; there is no incremental path.
type StreakDataRepository struct {
	db *DB
}

// NewStreakDataRepository creates a new streak data repository
func NewStreakDataRepository(db *DB) *StreakDataRepository {
	return &StreakDataRepository{db: db}
}

// GetByUserID retrieves streak data for a user.
func (r *StreakDataRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.StreakData, error) {
	data := &models.StreakData{}
	var lastActiveDate sql.NullString
	var historyJSON []byte

	query := `
		SELECT user_id, current_streak, longest_streak, total_days_active, last_active_date,
		       streak_threshold, streak_history, created_at, updated_at
		FROM streak_data
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&data.UserID,
		&data.CurrentStreak,
		&data.LongestStreak,
		&data.TotalDaysActive,
		&lastActiveDate,
		&data.StreakThreshold,
		&historyJSON,
		&data.CreatedAt,
		&data.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("streak data not found for user %s", userID)
		}
		return nil, fmt.Errorf("failed to get streak data: %w", err)
	}

	if lastActiveDate.Valid {
		data.LastActiveDate = date.Day(lastActiveDate.String)
	}

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &data.StreakHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal streak_history: %w", err)
		}
	}
	if data.StreakHistory == nil {
		data.StreakHistory = []models.StreakRun{}
	}

	return data, nil
}

// GetByUserIDOrCreate retrieves streak data or creates the zeroed default.
func (r *StreakDataRepository) GetByUserIDOrCreate(ctx context.Context, userID uuid.UUID) (*models.StreakData, error) {
	data, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return data, nil
	}

	data = models.NewStreakData(userID)

	// Upsert handles the race where another writer created the record
	// between the read above and this write.
	if err := r.Upsert(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to create streak data: %w", err)
	}

	return r.GetByUserID(ctx, userID)
}

// Upsert fully replaces the streak record for the user.
func (r *StreakDataRepository) Upsert(ctx context.Context, data *models.StreakData) error {
	query := `
		INSERT INTO streak_data (user_id, current_streak, longest_streak, total_days_active,
			last_active_date, streak_threshold, streak_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (user_id) DO UPDATE
		SET current_streak = EXCLUDED.current_streak,
		    longest_streak = EXCLUDED.longest_streak,
		    total_days_active = EXCLUDED.total_days_active,
		    last_active_date = EXCLUDED.last_active_date,
		    streak_threshold = EXCLUDED.streak_threshold,
		    streak_history = EXCLUDED.streak_history,
		    updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	historyJSON, err := json.Marshal(data.StreakHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal streak_history: %w", err)
	}

	var lastActiveDate sql.NullString
	if !data.LastActiveDate.IsZero() {
		lastActiveDate = sql.NullString{String: data.LastActiveDate.String(), Valid: true}
	}

	err = r.db.QueryRowContext(ctx, query,
		data.UserID,
		data.CurrentStreak,
		data.LongestStreak,
		data.TotalDaysActive,
		lastActiveDate,
		data.StreakThreshold,
		historyJSON,
		time.Now(),
	).Scan(&data.CreatedAt, &data.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert streak data: %w", err)
	}

	return nil
}
