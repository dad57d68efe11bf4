package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/google/uuid"

	"github.com/streakdhq/streakd/internal/date"
	"github.com/streakdhq/streakd/internal/models"
	"github.com/streakdhq/streakd/internal/queue"
	"github.com/streakdhq/streakd/internal/request"
)

// authedRequest builds a request with the user ID already in context, as the
// user-context middleware would leave it.
func authedRequest(method, target string, body io.Reader, userID uuid.UUID) *http.Request {
	r := httptest.NewRequest(method, target, body)
	return r.WithContext(request.WithUserID(r.Context(), userID))
}

type fakeDailyStatsStore struct {
	mu    sync.Mutex
	byDay map[date.Day]*models.DailyStats
	err   error
}

func newFakeDailyStatsStore() *fakeDailyStatsStore {
	return &fakeDailyStatsStore{byDay: make(map[date.Day]*models.DailyStats)}
}

func (f *fakeDailyStatsStore) Upsert(ctx context.Context, stats *models.DailyStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.byDay[stats.Day] = stats
	return nil
}

func (f *fakeDailyStatsStore) GetByUserAndDay(ctx context.Context, userID uuid.UUID, day date.Day) (*models.DailyStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.byDay[day], nil
}

func (f *fakeDailyStatsStore) GetAllByUser(ctx context.Context, userID uuid.UUID) ([]*models.DailyStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.DailyStats
	for _, st := range f.byDay {
		out = append(out, st)
	}
	return out, nil
}

type fakeStreakDataStore struct {
	mu   sync.Mutex
	data *models.StreakData
	err  error
}

func (f *fakeStreakDataStore) GetByUserIDOrCreate(ctx context.Context, userID uuid.UUID) (*models.StreakData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.data == nil {
		f.data = models.NewStreakData(userID)
	}
	return f.data, nil
}

func (f *fakeStreakDataStore) Upsert(ctx context.Context, data *models.StreakData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.data = data
	return nil
}

type fakeSettingsStore struct {
	mu       sync.Mutex
	settings *models.StreakSettings
	err      error
}

func (f *fakeSettingsStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.StreakSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.settings == nil {
		return models.NewStreakSettings(userID), nil
	}
	cp := *f.settings
	return &cp, nil
}

func (f *fakeSettingsStore) Upsert(ctx context.Context, settings *models.StreakSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *settings
	f.settings = &cp
	return nil
}

func (f *fakeSettingsStore) GetActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

type fakeJobQueue struct {
	mu       sync.Mutex
	enqueued []*queue.Job
	err      error
}

func (q *fakeJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func (q *fakeJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}
func (q *fakeJobQueue) Close() error                          { return nil }
func (q *fakeJobQueue) HealthCheck(ctx context.Context) error { return nil }
