package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/streakdhq/streakd/internal/database"
	"github.com/streakdhq/streakd/internal/date"
	"github.com/streakdhq/streakd/internal/models"
	"github.com/streakdhq/streakd/internal/queue"
)

// fakeStores is an in-memory backing store shared by the fake repositories.
type fakeStores struct {
	mu       sync.Mutex
	tasks    []*models.Task
	sessions []*models.FocusSession
	daily    map[date.Day]*models.DailyStats
	streak   *models.StreakData
	settings *models.StreakSettings

	// failures maps an operation name to the number of times it should
	// fail before succeeding. Negative means fail forever.
	failures map[string]int

	upsertDailyCalls  int
	upsertStreakCalls int
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		daily:    make(map[date.Day]*models.DailyStats),
		failures: make(map[string]int),
	}
}

func (f *fakeStores) fail(op string) error {
	n, ok := f.failures[op]
	if !ok || n == 0 {
		return nil
	}
	if n > 0 {
		f.failures[op] = n - 1
	}
	return fmt.Errorf("%s: connection refused", op)
}

type fakeTaskSource struct{ s *fakeStores }

func (r *fakeTaskSource) GetRelevantToDay(ctx context.Context, userID uuid.UUID, day date.Day, loc *time.Location) ([]*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("get_tasks"); err != nil {
		return nil, err
	}
	return r.s.tasks, nil
}

type fakeSessionSource struct{ s *fakeStores }

func (r *fakeSessionSource) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.FocusSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("get_sessions"); err != nil {
		return nil, err
	}
	return r.s.sessions, nil
}

type fakeDailyStatsStore struct{ s *fakeStores }

func (r *fakeDailyStatsStore) Upsert(ctx context.Context, stats *models.DailyStats) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.upsertDailyCalls++
	if err := r.s.fail("upsert_daily"); err != nil {
		return err
	}
	cp := *stats
	r.s.daily[stats.Day] = &cp
	return nil
}

func (r *fakeDailyStatsStore) GetByUserAndDay(ctx context.Context, userID uuid.UUID, day date.Day) (*models.DailyStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.daily[day], nil
}

func (r *fakeDailyStatsStore) GetAllByUser(ctx context.Context, userID uuid.UUID) ([]*models.DailyStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("get_history"); err != nil {
		return nil, err
	}
	out := make([]*models.DailyStats, 0, len(r.s.daily))
	for _, st := range r.s.daily {
		cp := *st
		out = append(out, &cp)
	}
	return out, nil
}

type fakeStreakDataStore struct{ s *fakeStores }

func (r *fakeStreakDataStore) GetByUserIDOrCreate(ctx context.Context, userID uuid.UUID) (*models.StreakData, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.streak == nil {
		return models.NewStreakData(userID), nil
	}
	cp := *r.s.streak
	return &cp, nil
}

func (r *fakeStreakDataStore) Upsert(ctx context.Context, data *models.StreakData) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.upsertStreakCalls++
	if err := r.s.fail("upsert_streak"); err != nil {
		return err
	}
	cp := *data
	r.s.streak = &cp
	return nil
}

type fakeSettingsStore struct{ s *fakeStores }

func (r *fakeSettingsStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.StreakSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("get_settings"); err != nil {
		return nil, err
	}
	if r.s.settings == nil {
		return models.NewStreakSettings(userID), nil
	}
	cp := *r.s.settings
	return &cp, nil
}

func (r *fakeSettingsStore) Upsert(ctx context.Context, settings *models.StreakSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *settings
	r.s.settings = &cp
	return nil
}

func (r *fakeSettingsStore) GetActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("get_active_users"); err != nil {
		return nil, err
	}
	if r.s.settings == nil {
		return nil, nil
	}
	return []uuid.UUID{r.s.settings.UserID}, nil
}

var (
	_ database.TaskSource          = (*fakeTaskSource)(nil)
	_ database.FocusSessionSource  = (*fakeSessionSource)(nil)
	_ database.DailyStatsStore     = (*fakeDailyStatsStore)(nil)
	_ database.StreakDataStore     = (*fakeStreakDataStore)(nil)
	_ database.StreakSettingsStore = (*fakeSettingsStore)(nil)
)

// mockMessage implements queue.MessageInterface for ProcessJob tests.
type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error { m.acked = true; return nil }
func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}
func (m *mockMessage) GetJob() *queue.Job { return m.job }

// mockJobQueue records enqueued jobs.
type mockJobQueue struct {
	mu       sync.Mutex
	enqueued []*queue.Job
	err      error
}

func (q *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func (q *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}
func (q *mockJobQueue) Close() error                        { return nil }
func (q *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

func newTestRefresher(s *fakeStores, jq queue.JobQueue, guard RefreshGuard) *Refresher {
	return NewRefresher(
		&fakeTaskSource{s},
		&fakeSessionSource{s},
		&fakeDailyStatsStore{s},
		&fakeStreakDataStore{s},
		&fakeSettingsStore{s},
		jq, guard, time.UTC, nil,
	)
}

func dayTask(userID uuid.UUID, day date.Day, completed bool) *models.Task {
	start, _, _ := day.Window(time.UTC)
	created := start.Add(9 * time.Hour)
	t := &models.Task{
		ID:           uuid.New(),
		UserID:       userID,
		Title:        "task",
		CreatedAt:    created,
		LastModified: created,
	}
	if completed {
		done := created.Add(time.Hour)
		t.Completed = true
		t.CompletedAt = &done
	}
	return t
}

func TestRefresher_RefreshUserStreak_FullPipeline(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	today := date.Today(time.UTC)
	yesterday := today.Prev()

	s := newFakeStores()
	s.tasks = []*models.Task{
		dayTask(userID, today, true),
		dayTask(userID, today, true),
		dayTask(userID, today, false),
	}
	// Yesterday already qualifies, so today extends the run to 2.
	s.daily[yesterday] = &models.DailyStats{
		UserID: userID, Day: yesterday,
		TasksAssigned: 1, TasksCompleted: 1, CompletionPercentage: 100,
		StreakDay: true,
	}

	r := newTestRefresher(s, nil, nil)
	if err := r.RefreshUserStreak(context.Background(), userID, today); err != nil {
		t.Fatalf("RefreshUserStreak failed: %v", err)
	}

	daily := s.daily[today]
	if daily == nil {
		t.Fatal("expected daily stats upserted for today")
	}
	if daily.TasksAssigned != 3 || daily.TasksCompleted != 2 {
		t.Errorf("expected 3 assigned / 2 completed, got %d/%d", daily.TasksAssigned, daily.TasksCompleted)
	}
	if daily.CompletionPercentage != 67 {
		t.Errorf("expected 67%%, got %d%%", daily.CompletionPercentage)
	}
	if !daily.StreakDay {
		t.Error("expected today to classify as a streak day at the default threshold")
	}

	if s.streak == nil {
		t.Fatal("expected streak data upserted")
	}
	if s.streak.CurrentStreak != 2 {
		t.Errorf("expected current streak 2, got %d", s.streak.CurrentStreak)
	}
	if s.streak.LongestStreak != 2 {
		t.Errorf("expected longest streak 2, got %d", s.streak.LongestStreak)
	}
	if s.streak.LastActiveDate != today {
		t.Errorf("expected last active %s, got %s", today, s.streak.LastActiveDate)
	}
}

func TestRefresher_RefreshUserStreak_ReconstructionAlwaysRuns(t *testing.T) {
	t.Parallel()

	// A day with no activity still rewrites the streak record: that is how
	// a streak broken by an empty day gets detected.
	userID := uuid.New()
	today := date.Today(time.UTC)
	twoAgo := today.Prev().Prev()

	s := newFakeStores()
	s.daily[twoAgo] = &models.DailyStats{
		UserID: userID, Day: twoAgo,
		TasksAssigned: 1, TasksCompleted: 1, CompletionPercentage: 100,
		StreakDay: true,
	}
	s.streak = &models.StreakData{UserID: userID, CurrentStreak: 1, LongestStreak: 1, TotalDaysActive: 1}

	r := newTestRefresher(s, nil, nil)
	if err := r.RefreshUserStreak(context.Background(), userID, today); err != nil {
		t.Fatalf("RefreshUserStreak failed: %v", err)
	}

	if s.streak.CurrentStreak != 0 {
		t.Errorf("expected broken streak (current 0), got %d", s.streak.CurrentStreak)
	}
	if s.streak.LongestStreak != 1 {
		t.Errorf("expected longest streak preserved at 1, got %d", s.streak.LongestStreak)
	}
	if len(s.streak.StreakHistory) != 1 {
		t.Fatalf("expected the closed run in history, got %d runs", len(s.streak.StreakHistory))
	}
}

func TestRefresher_RefreshUserStreak_CustomThreshold(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	today := date.Today(time.UTC)

	s := newFakeStores()
	s.settings = &models.StreakSettings{UserID: userID, StreakThreshold: 80}
	s.tasks = []*models.Task{
		dayTask(userID, today, true),
		dayTask(userID, today, false),
	}

	r := newTestRefresher(s, nil, nil)
	if err := r.RefreshUserStreak(context.Background(), userID, today); err != nil {
		t.Fatalf("RefreshUserStreak failed: %v", err)
	}

	if s.daily[today].StreakDay {
		t.Error("50%% completion should not qualify at threshold 80")
	}
	if s.streak.CurrentStreak != 0 {
		t.Errorf("expected current streak 0, got %d", s.streak.CurrentStreak)
	}
}

func TestRefresher_RefreshUserStreak_RetriesTransientStoreFailure(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	today := date.Today(time.UTC)

	s := newFakeStores()
	s.tasks = []*models.Task{dayTask(userID, today, true)}
	s.failures["upsert_daily"] = 2 // fail twice, succeed on third attempt

	r := newTestRefresher(s, nil, nil)
	if err := r.RefreshUserStreak(context.Background(), userID, today); err != nil {
		t.Fatalf("expected retries to absorb transient failures, got: %v", err)
	}
	if s.upsertDailyCalls != 3 {
		t.Errorf("expected 3 upsert attempts, got %d", s.upsertDailyCalls)
	}
	if s.streak == nil || s.streak.CurrentStreak != 1 {
		t.Error("expected pipeline to complete after retry")
	}
}

func TestRefresher_RefreshUserStreak_StoreExhaustion(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	today := date.Today(time.UTC)

	s := newFakeStores()
	s.failures["upsert_streak"] = -1 // fail forever

	r := newTestRefresher(s, nil, nil)
	err := r.RefreshUserStreak(context.Background(), userID, today)
	if err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
	if got := s.upsertStreakCalls; got != storeAttempts {
		t.Errorf("expected %d attempts, got %d", storeAttempts, got)
	}
}

func TestRefresher_RefreshUserStreak_InputValidation(t *testing.T) {
	t.Parallel()

	s := newFakeStores()
	r := newTestRefresher(s, nil, nil)

	if err := r.RefreshUserStreak(context.Background(), uuid.Nil, date.Today(time.UTC)); err == nil {
		t.Error("expected error for nil user ID")
	}
	if err := r.RefreshUserStreak(context.Background(), uuid.New(), date.Day("not-a-day")); err == nil {
		t.Error("expected error for invalid day")
	}
	if s.upsertDailyCalls != 0 || s.upsertStreakCalls != 0 {
		t.Error("invalid input must not reach the stores")
	}
}

func TestRefresher_RecomputeUserStreak(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	today := date.Today(time.UTC)

	s := newFakeStores()
	s.daily[today.Prev()] = &models.DailyStats{
		UserID: userID, Day: today.Prev(),
		TasksAssigned: 2, TasksCompleted: 2, CompletionPercentage: 100,
		StreakDay: true,
	}
	s.daily[today] = &models.DailyStats{
		UserID: userID, Day: today,
		TasksAssigned: 0, FocusTimeMinutes: 25,
		StreakDay: true,
	}

	r := newTestRefresher(s, nil, nil)
	if err := r.RecomputeUserStreak(context.Background(), userID); err != nil {
		t.Fatalf("RecomputeUserStreak failed: %v", err)
	}

	if s.upsertDailyCalls != 0 {
		t.Error("recompute must not rewrite daily stats")
	}
	if s.streak == nil || s.streak.CurrentStreak != 2 {
		t.Fatalf("expected current streak 2, got %+v", s.streak)
	}
	if s.streak.TotalDaysActive != 2 {
		t.Errorf("expected 2 total active days, got %d", s.streak.TotalDaysActive)
	}
}

func TestRefresher_RecomputeUserStreak_ThresholdChangeReclassifiesHistory(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	today := date.Today(time.UTC)

	// Two days written while the threshold was 50: both qualified at 60%.
	s := newFakeStores()
	for _, day := range []date.Day{today.Prev(), today} {
		s.daily[day] = &models.DailyStats{
			UserID: userID, Day: day,
			TasksAssigned: 5, TasksCompleted: 3, CompletionPercentage: 60,
			StreakDay: true,
		}
	}

	r := newTestRefresher(s, nil, nil)
	if err := r.RecomputeUserStreak(context.Background(), userID); err != nil {
		t.Fatalf("RecomputeUserStreak failed: %v", err)
	}
	if s.streak.CurrentStreak != 2 {
		t.Fatalf("expected current streak 2 at threshold 50, got %d", s.streak.CurrentStreak)
	}

	// The user raises their threshold to 80; the next recompute must judge
	// the same history under the new rule, stored flags notwithstanding.
	s.mu.Lock()
	s.settings = &models.StreakSettings{UserID: userID, StreakThreshold: 80}
	s.mu.Unlock()

	if err := r.RecomputeUserStreak(context.Background(), userID); err != nil {
		t.Fatalf("RecomputeUserStreak failed after threshold change: %v", err)
	}
	if s.streak.CurrentStreak != 0 {
		t.Errorf("expected 60%% days to stop qualifying at threshold 80, got current streak %d", s.streak.CurrentStreak)
	}
	if s.streak.TotalDaysActive != 0 {
		t.Errorf("expected 0 active days at threshold 80, got %d", s.streak.TotalDaysActive)
	}
	if s.streak.StreakThreshold != 80 {
		t.Errorf("expected streak data to carry threshold 80, got %d", s.streak.StreakThreshold)
	}
}

func TestRefresher_ProcessJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	today := date.Today(time.UTC)

	t.Run("refresh success acks", func(t *testing.T) {
		t.Parallel()
		s := newFakeStores()
		r := newTestRefresher(s, nil, nil)
		msg := &mockMessage{job: queue.NewJob(queue.JobTypeStreakRefresh, userID, today)}

		if err := r.ProcessJob(context.Background(), msg); err != nil {
			t.Fatalf("ProcessJob failed: %v", err)
		}
		if !msg.acked {
			t.Error("expected ack on success")
		}
		if s.streak == nil {
			t.Error("expected streak data written")
		}
	})

	t.Run("recompute success acks", func(t *testing.T) {
		t.Parallel()
		s := newFakeStores()
		r := newTestRefresher(s, nil, nil)
		msg := &mockMessage{job: queue.NewJob(queue.JobTypeStreakRecompute, userID, "")}

		if err := r.ProcessJob(context.Background(), msg); err != nil {
			t.Fatalf("ProcessJob failed: %v", err)
		}
		if !msg.acked {
			t.Error("expected ack on success")
		}
	})

	t.Run("failure with retries left re-enqueues with delay", func(t *testing.T) {
		t.Parallel()
		s := newFakeStores()
		s.failures["upsert_streak"] = -1
		jq := &mockJobQueue{}
		r := newTestRefresher(s, jq, nil)
		msg := &mockMessage{job: queue.NewJob(queue.JobTypeStreakRefresh, userID, today)}

		if err := r.ProcessJob(context.Background(), msg); err != nil {
			t.Fatalf("expected nil error when job is re-enqueued, got: %v", err)
		}
		if !msg.acked {
			t.Error("expected original message acked before re-enqueue")
		}
		if len(jq.enqueued) != 1 {
			t.Fatalf("expected 1 re-enqueued job, got %d", len(jq.enqueued))
		}
		re := jq.enqueued[0]
		if re.RetryCount != 1 {
			t.Errorf("expected retry count 1, got %d", re.RetryCount)
		}
		if re.NotBefore == nil || !re.NotBefore.After(time.Now()) {
			t.Error("expected NotBefore set in the future")
		}
		if re.Day != today {
			t.Errorf("expected day carried over, got %s", re.Day)
		}
	})

	t.Run("failure with retries exhausted nacks to DLQ", func(t *testing.T) {
		t.Parallel()
		s := newFakeStores()
		s.failures["upsert_streak"] = -1
		jq := &mockJobQueue{}
		r := newTestRefresher(s, jq, nil)
		job := queue.NewJob(queue.JobTypeStreakRefresh, userID, today)
		job.RetryCount = job.MaxRetries
		msg := &mockMessage{job: job}

		if err := r.ProcessJob(context.Background(), msg); err == nil {
			t.Fatal("expected error for exhausted job")
		}
		if !msg.nacked || msg.requeue {
			t.Error("expected nack without requeue")
		}
		if len(jq.enqueued) != 0 {
			t.Error("exhausted job must not be re-enqueued")
		}
	})

	t.Run("expired job dropped with ack", func(t *testing.T) {
		t.Parallel()
		s := newFakeStores()
		r := newTestRefresher(s, nil, nil)
		job := queue.NewJob(queue.JobTypeStreakRefresh, userID, today)
		past := time.Now().Add(-time.Hour)
		job.NotAfter = &past
		msg := &mockMessage{job: job}

		if err := r.ProcessJob(context.Background(), msg); err != nil {
			t.Fatalf("ProcessJob failed: %v", err)
		}
		if !msg.acked {
			t.Error("expected expired job acked")
		}
		if s.upsertDailyCalls != 0 {
			t.Error("expired job must not be processed")
		}
	})

	t.Run("unknown job type nacks to DLQ", func(t *testing.T) {
		t.Parallel()
		s := newFakeStores()
		r := newTestRefresher(s, nil, nil)
		msg := &mockMessage{job: queue.NewJob(queue.JobType("mystery"), userID, today)}

		if err := r.ProcessJob(context.Background(), msg); err == nil {
			t.Fatal("expected error for unknown job type")
		}
		if !msg.nacked || msg.requeue {
			t.Error("expected nack without requeue")
		}
	})
}

// fakeGuard is a RefreshGuard with scripted admission.
type fakeGuard struct {
	mu       sync.Mutex
	admit    bool
	acquires int
	releases int
}

func (g *fakeGuard) TryAcquire(ctx context.Context, userID uuid.UUID, day date.Day) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.acquires++
	return g.admit
}

func (g *fakeGuard) Release(ctx context.Context, userID uuid.UUID, day date.Day) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releases++
}

func TestRefresher_ProcessJob_Dedupe(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	today := date.Today(time.UTC)

	t.Run("held slot skips processing", func(t *testing.T) {
		t.Parallel()
		s := newFakeStores()
		guard := &fakeGuard{admit: false}
		r := newTestRefresher(s, nil, guard)
		msg := &mockMessage{job: queue.NewJob(queue.JobTypeStreakRefresh, userID, today)}

		if err := r.ProcessJob(context.Background(), msg); err != nil {
			t.Fatalf("ProcessJob failed: %v", err)
		}
		if !msg.acked {
			t.Error("expected deduped job acked")
		}
		if s.upsertDailyCalls != 0 {
			t.Error("deduped job must not be processed")
		}
	})

	t.Run("guard released on failure so retry can run", func(t *testing.T) {
		t.Parallel()
		s := newFakeStores()
		s.failures["upsert_streak"] = -1
		guard := &fakeGuard{admit: true}
		r := newTestRefresher(s, &mockJobQueue{}, guard)
		msg := &mockMessage{job: queue.NewJob(queue.JobTypeStreakRefresh, userID, today)}

		if err := r.ProcessJob(context.Background(), msg); err != nil {
			t.Fatalf("expected re-enqueue path, got: %v", err)
		}
		if guard.releases != 1 {
			t.Errorf("expected guard released once, got %d", guard.releases)
		}
	})
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{10, 5 * time.Minute},
	}
	for _, tt := range tests {
		if got := retryDelay(tt.retryCount); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.retryCount, got, tt.want)
		}
	}
}
