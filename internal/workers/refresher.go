package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streakdhq/streakd/internal/database"
	"github.com/streakdhq/streakd/internal/date"
	logpkg "github.com/streakdhq/streakd/internal/logger"
	"github.com/streakdhq/streakd/internal/models"
	"github.com/streakdhq/streakd/internal/queue"
	"github.com/streakdhq/streakd/internal/stats"
	"github.com/streakdhq/streakd/internal/streak"
)

// storeAttempts is the total number of attempts per store call, including
// the first one.
const storeAttempts = 3

// RefreshGuard is a best-effort single-flight gate keyed by (user, day).
// A nil guard means every job is processed.
type RefreshGuard interface {
	TryAcquire(ctx context.Context, userID uuid.UUID, day date.Day) bool
	Release(ctx context.Context, userID uuid.UUID, day date.Day)
}

// Refresher processes streak refresh and recompute jobs. A refresh
// re-aggregates one day for one user and then reconstructs the whole streak
// from stored history; a recompute skips the aggregation step.
type Refresher struct {
	taskSource    database.TaskSource
	sessionSource database.FocusSessionSource
	dailyStats    database.DailyStatsStore
	streakData    database.StreakDataStore
	settings      database.StreakSettingsStore
	jobQueue      queue.JobQueue // for re-enqueueing failed jobs with a delay
	guard         RefreshGuard
	loc           *time.Location
	logger        *zap.Logger
}

// NewRefresher creates a refresher. jobQueue and guard may be nil; loc nil
// means UTC.
func NewRefresher(
	taskSource database.TaskSource,
	sessionSource database.FocusSessionSource,
	dailyStats database.DailyStatsStore,
	streakData database.StreakDataStore,
	settings database.StreakSettingsStore,
	jobQueue queue.JobQueue,
	guard RefreshGuard,
	loc *time.Location,
	logger *zap.Logger,
) *Refresher {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		taskSource:    taskSource,
		sessionSource: sessionSource,
		dailyStats:    dailyStats,
		streakData:    streakData,
		settings:      settings,
		jobQueue:      jobQueue,
		guard:         guard,
		loc:           loc,
		logger:        logger,
	}
}

// RefreshUserStreak recomputes one day's stats for a user and then rebuilds
// the streak from the full stored history. The reconstruction step always
// runs, even when the day aggregates to zero activity, so that a day
// dropping below the threshold can break a streak.
func (r *Refresher) RefreshUserStreak(ctx context.Context, userID uuid.UUID, day date.Day) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user_id is required for streak refresh")
	}
	if !day.Valid() {
		return fmt.Errorf("invalid day %q for streak refresh", day)
	}

	threshold, err := r.loadThreshold(ctx, userID)
	if err != nil {
		return err
	}

	taskRows, err := r.loadTasks(ctx, userID, day)
	if err != nil {
		return err
	}
	sessionRows, err := r.loadSessions(ctx, userID)
	if err != nil {
		return err
	}

	daily, err := stats.ComputeDailyStats(userID, day, r.loc, taskRows, sessionRows)
	if err != nil {
		return fmt.Errorf("failed to aggregate daily stats: %w", err)
	}
	daily.StreakDay = streak.IsStreakDay(daily, threshold)

	if err := r.withStoreRetry(ctx, func() error {
		return r.dailyStats.Upsert(ctx, daily)
	}); err != nil {
		return fmt.Errorf("store unavailable upserting daily stats: %w", err)
	}

	if err := r.reconstruct(ctx, userID, threshold); err != nil {
		return err
	}

	r.logger.Info("refreshed_user_streak",
		zap.String("user_id", logpkg.SanitizeUserID(userID.String())),
		zap.String("day", day.String()),
		zap.Int("tasks_assigned", daily.TasksAssigned),
		zap.Int("tasks_completed", daily.TasksCompleted),
		zap.Bool("streak_day", daily.StreakDay),
	)
	return nil
}

// RecomputeUserStreak rebuilds the streak from stored history without
// re-aggregating any day. Used by the periodic rescan.
func (r *Refresher) RecomputeUserStreak(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user_id is required for streak recompute")
	}
	threshold, err := r.loadThreshold(ctx, userID)
	if err != nil {
		return err
	}
	if err := r.reconstruct(ctx, userID, threshold); err != nil {
		return err
	}
	r.logger.Info("recomputed_user_streak",
		zap.String("user_id", logpkg.SanitizeUserID(userID.String())),
	)
	return nil
}

func (r *Refresher) reconstruct(ctx context.Context, userID uuid.UUID, threshold int) error {
	rows, err := r.loadHistory(ctx, userID)
	if err != nil {
		return err
	}

	records := streak.HistoryFromStats(rows, threshold)
	data, err := streak.Reconstruct(userID, records, date.Today(r.loc), threshold)
	if err != nil {
		return fmt.Errorf("failed to reconstruct streak: %w", err)
	}

	if err := r.withStoreRetry(ctx, func() error {
		return r.streakData.Upsert(ctx, data)
	}); err != nil {
		return fmt.Errorf("store unavailable upserting streak data: %w", err)
	}
	return nil
}

func (r *Refresher) loadThreshold(ctx context.Context, userID uuid.UUID) (int, error) {
	var threshold int
	if err := r.withStoreRetry(ctx, func() error {
		settings, err := r.settings.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		threshold = settings.StreakThreshold
		return nil
	}); err != nil {
		return 0, fmt.Errorf("store unavailable loading streak settings: %w", err)
	}
	return threshold, nil
}

// withStoreRetry runs op with bounded exponential backoff. Context
// cancellation aborts between attempts.
func (r *Refresher) withStoreRetry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, storeAttempts-1), ctx))
}

// ProcessJob processes a job based on its type.
func (r *Refresher) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.IsExpired() {
		r.logger.Info("dropping_expired_job",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
		)
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack expired job: %w", ackErr)
		}
		return nil
	}
	if !job.ShouldProcess() {
		// Not ready yet; ack and let the delayed re-enqueue path handle it.
		r.logger.Debug("job_not_ready",
			zap.String("job_id", job.ID.String()),
			zap.Timep("not_before", job.NotBefore),
		)
		if ackErr := msg.Ack(); ackErr != nil {
			r.logger.Warn("failed_to_ack_deferred_job", zap.Error(ackErr))
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeStreakRefresh:
		if r.guard != nil && !r.guard.TryAcquire(ctx, job.UserID, job.Day) {
			r.logger.Debug("streak_refresh_deduped",
				zap.String("user_id", logpkg.SanitizeUserID(job.UserID.String())),
				zap.String("day", job.Day.String()),
			)
			if ackErr := msg.Ack(); ackErr != nil {
				return fmt.Errorf("failed to ack deduped job: %w", ackErr)
			}
			return nil
		}
		if err := r.RefreshUserStreak(ctx, job.UserID, job.Day); err != nil {
			if r.guard != nil {
				// Release the claim so a retry is not suppressed.
				r.guard.Release(ctx, job.UserID, job.Day)
			}
			return r.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack refresh job: %w", ackErr)
		}
		return nil

	case queue.JobTypeStreakRecompute:
		if err := r.RecomputeUserStreak(ctx, job.UserID); err != nil {
			return r.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack recompute job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // unknown job type, send to DLQ
			r.logger.Warn("failed_to_nack_unknown_job", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError re-enqueues a failed job with a delay while it has retries
// left, and dead-letters it once they are exhausted.
func (r *Refresher) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	r.logger.Warn("job_processing_failed",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.String("user_id", logpkg.SanitizeUserID(job.UserID.String())),
		zap.Int("retry_count", job.RetryCount),
		zap.String("error", logpkg.SanitizeError(err)),
	)

	if job.CanRetry() && r.jobQueue != nil {
		notBefore := time.Now().Add(retryDelay(job.RetryCount))
		delayedJob := &queue.Job{
			ID:         job.ID,
			Type:       job.Type,
			UserID:     job.UserID,
			Day:        job.Day,
			NotBefore:  &notBefore,
			NotAfter:   job.NotAfter,
			Metadata:   job.Metadata,
			CreatedAt:  job.CreatedAt,
			RetryCount: job.RetryCount + 1,
			MaxRetries: job.MaxRetries,
		}

		if ackErr := msg.Ack(); ackErr != nil {
			r.logger.Warn("failed_to_ack_before_reenqueue", zap.Error(ackErr))
		}
		if enqueueErr := r.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
			return fmt.Errorf("failed to re-enqueue job %s: %w", job.ID, enqueueErr)
		}
		r.logger.Info("reenqueued_failed_job",
			zap.String("job_id", job.ID.String()),
			zap.Time("not_before", notBefore),
			zap.Int("retry_count", job.RetryCount+1),
		)
		return nil
	}

	if nackErr := msg.Nack(false); nackErr != nil { // retries exhausted, send to DLQ
		r.logger.Warn("failed_to_nack_exhausted_job", zap.Error(nackErr))
	}
	return fmt.Errorf("job %s failed after %d retries: %w", job.ID, job.RetryCount, err)
}

// retryDelay doubles per attempt: 5s, 10s, 20s, capped at 5 minutes.
func retryDelay(retryCount int) time.Duration {
	delay := 5 * time.Second << uint(retryCount)
	if delay > 5*time.Minute {
		delay = 5 * time.Minute
	}
	return delay
}

func (r *Refresher) loadTasks(ctx context.Context, userID uuid.UUID, day date.Day) ([]*models.Task, error) {
	var tasks []*models.Task
	if err := r.withStoreRetry(ctx, func() error {
		var err error
		tasks, err = r.taskSource.GetRelevantToDay(ctx, userID, day, r.loc)
		return err
	}); err != nil {
		return nil, fmt.Errorf("store unavailable loading tasks: %w", err)
	}
	return tasks, nil
}

func (r *Refresher) loadSessions(ctx context.Context, userID uuid.UUID) ([]*models.FocusSession, error) {
	var sessions []*models.FocusSession
	if err := r.withStoreRetry(ctx, func() error {
		var err error
		sessions, err = r.sessionSource.GetByUserID(ctx, userID)
		return err
	}); err != nil {
		return nil, fmt.Errorf("store unavailable loading focus sessions: %w", err)
	}
	return sessions, nil
}

func (r *Refresher) loadHistory(ctx context.Context, userID uuid.UUID) ([]*models.DailyStats, error) {
	var rows []*models.DailyStats
	if err := r.withStoreRetry(ctx, func() error {
		var err error
		rows, err = r.dailyStats.GetAllByUser(ctx, userID)
		return err
	}); err != nil {
		return nil, fmt.Errorf("store unavailable loading daily stats history: %w", err)
	}
	return rows, nil
}
