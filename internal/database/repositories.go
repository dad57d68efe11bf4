package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/streakdhq/streakd/internal/date"
	"github.com/streakdhq/streakd/internal/models"
)

// TaskSource lists task records for aggregation.
// This interface enables better testability by allowing mock implementations
type TaskSource interface {
	GetRelevantToDay(ctx context.Context, userID uuid.UUID, day date.Day, loc *time.Location) ([]*models.Task, error)
}

// FocusSessionSource lists focus-session records for aggregation.
type FocusSessionSource interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.FocusSession, error)
}

// DailyStatsStore is the per-user-per-day aggregate store.
type DailyStatsStore interface {
	Upsert(ctx context.Context, stats *models.DailyStats) error
	GetByUserAndDay(ctx context.Context, userID uuid.UUID, day date.Day) (*models.DailyStats, error)
	GetAllByUser(ctx context.Context, userID uuid.UUID) ([]*models.DailyStats, error)
}

// StreakDataStore is the per-user streak singleton store.
type StreakDataStore interface {
	GetByUserIDOrCreate(ctx context.Context, userID uuid.UUID) (*models.StreakData, error)
	Upsert(ctx context.Context, data *models.StreakData) error
}

// StreakSettingsStore is the per-user settings store.
type StreakSettingsStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.StreakSettings, error)
	Upsert(ctx context.Context, settings *models.StreakSettings) error
	GetActiveUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TaskSource          = (*TaskRepository)(nil)
	_ FocusSessionSource  = (*FocusSessionRepository)(nil)
	_ DailyStatsStore     = (*DailyStatsRepository)(nil)
	_ StreakDataStore     = (*StreakDataRepository)(nil)
	_ StreakSettingsStore = (*StreakSettingsRepository)(nil)
)
