package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streakdhq/streakd/internal/models"
)

// StreakSettingsRepository handles per-user streak tuning.
type StreakSettingsRepository struct {
	db *DB
}

// NewStreakSettingsRepository creates a new streak settings repository
func NewStreakSettingsRepository(db *DB) *StreakSettingsRepository {
	return &StreakSettingsRepository{db: db}
}

// GetByUserID retrieves settings for a user, returning defaults if none are
// stored. Defaults are not persisted on read.
func (r *StreakSettingsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.StreakSettings, error) {
	settings := &models.StreakSettings{}

	query := `
		SELECT user_id, streak_threshold, rescan_paused, created_at, updated_at
		FROM streak_settings
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&settings.UserID,
		&settings.StreakThreshold,
		&settings.RescanPaused,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return models.NewStreakSettings(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streak settings: %w", err)
	}

	return settings, nil
}

// Upsert creates or replaces settings for the user.
func (r *StreakSettingsRepository) Upsert(ctx context.Context, settings *models.StreakSettings) error {
	query := `
		INSERT INTO streak_settings (user_id, streak_threshold, rescan_paused, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET streak_threshold = EXCLUDED.streak_threshold,
		    rescan_paused = EXCLUDED.rescan_paused,
		    updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		settings.UserID,
		settings.StreakThreshold,
		settings.RescanPaused,
		time.Now(),
	).Scan(&settings.CreatedAt, &settings.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert streak settings: %w", err)
	}

	return nil
}

// GetActiveUserIDs returns users with any daily stats history whose rescan is
// not paused; used to schedule periodic recompute jobs.
func (r *StreakSettingsRepository) GetActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT ds.user_id
		FROM daily_stats ds
		LEFT JOIN streak_settings ss ON ss.user_id = ds.user_id
		WHERE ss.rescan_paused IS NOT TRUE
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active users: %w", err)
	}

	return ids, nil
}
