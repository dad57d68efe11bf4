package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streakdhq/streakd/internal/database"
	logpkg "github.com/streakdhq/streakd/internal/logger"
	"github.com/streakdhq/streakd/internal/queue"
)

// Rescanner schedules periodic streak recompute jobs. Recomputes are the
// self-heal path: they re-run the reconstruction over stored history so that
// streaks broken by an inactive day are detected without any user action.
type Rescanner struct {
	jobQueue queue.JobQueue
	settings database.StreakSettingsStore
	loc      *time.Location
	logger   *zap.Logger
}

// NewRescanner creates a new rescanner. loc nil means UTC.
func NewRescanner(jobQueue queue.JobQueue, settings database.StreakSettingsStore, loc *time.Location, logger *zap.Logger) *Rescanner {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rescanner{
		jobQueue: jobQueue,
		settings: settings,
		loc:      loc,
		logger:   logger,
	}
}

// ScheduleRecomputeJobs creates recompute jobs for eligible users at the
// next morning and evening slots (08:00 and 20:00 local time).
func (r *Rescanner) ScheduleRecomputeJobs(ctx context.Context) error {
	now := time.Now().In(r.loc)
	nextMorning := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, r.loc)
	nextEvening := time.Date(now.Year(), now.Month(), now.Day(), 20, 0, 0, 0, r.loc)

	if now.After(nextMorning) {
		nextMorning = nextMorning.Add(24 * time.Hour)
	}
	if now.After(nextEvening) {
		nextEvening = nextEvening.Add(24 * time.Hour)
	}

	userIDs, err := r.settings.GetActiveUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get active users: %w", err)
	}

	for _, userID := range userIDs {
		if err := r.createRecomputeJob(ctx, userID, nextMorning); err != nil {
			r.logger.Warn("failed_to_schedule_morning_recompute",
				zap.String("user_id", logpkg.SanitizeUserID(userID.String())),
				zap.Error(err),
			)
			continue
		}
		if err := r.createRecomputeJob(ctx, userID, nextEvening); err != nil {
			r.logger.Warn("failed_to_schedule_evening_recompute",
				zap.String("user_id", logpkg.SanitizeUserID(userID.String())),
				zap.Error(err),
			)
		}
	}

	r.logger.Info("scheduled_recompute_jobs",
		zap.Int("user_count", len(userIDs)),
		zap.Time("next_morning", nextMorning),
		zap.Time("next_evening", nextEvening),
	)
	return nil
}

func (r *Rescanner) createRecomputeJob(ctx context.Context, userID uuid.UUID, notBefore time.Time) error {
	job := queue.NewJob(queue.JobTypeStreakRecompute, userID, "")
	job.NotBefore = &notBefore

	// Stale recompute jobs are worthless; let the DLQ GC collect them.
	notAfter := notBefore.Add(24 * time.Hour)
	job.NotAfter = &notAfter

	if err := r.jobQueue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue recompute job: %w", err)
	}
	return nil
}

// Run schedules recompute jobs immediately and then once per interval until
// the context is cancelled.
func (r *Rescanner) Run(ctx context.Context, interval time.Duration) {
	if err := r.ScheduleRecomputeJobs(ctx); err != nil {
		r.logger.Error("recompute_scheduling_failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.ScheduleRecomputeJobs(ctx); err != nil {
				r.logger.Error("recompute_scheduling_failed", zap.Error(err))
			}
		}
	}
}
