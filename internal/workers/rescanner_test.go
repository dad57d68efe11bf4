package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/streakdhq/streakd/internal/models"
	"github.com/streakdhq/streakd/internal/queue"
)

func TestRescanner_ScheduleRecomputeJobs(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	s := newFakeStores()
	s.settings = &models.StreakSettings{UserID: userID, StreakThreshold: 50}
	jq := &mockJobQueue{}

	r := NewRescanner(jq, &fakeSettingsStore{s}, time.UTC, nil)
	if err := r.ScheduleRecomputeJobs(context.Background()); err != nil {
		t.Fatalf("ScheduleRecomputeJobs failed: %v", err)
	}

	// One morning and one evening job per active user.
	if len(jq.enqueued) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jq.enqueued))
	}
	now := time.Now()
	for _, job := range jq.enqueued {
		if job.Type != queue.JobTypeStreakRecompute {
			t.Errorf("expected recompute job, got %s", job.Type)
		}
		if job.UserID != userID {
			t.Errorf("expected user %s, got %s", userID, job.UserID)
		}
		if job.Day != "" {
			t.Errorf("recompute jobs carry no day, got %q", job.Day)
		}
		if job.NotBefore == nil || job.NotBefore.Before(now) {
			t.Error("expected NotBefore in the future")
		}
		if job.NotAfter == nil {
			t.Error("expected NotAfter set for DLQ garbage collection")
		} else if got := job.NotAfter.Sub(*job.NotBefore); got != 24*time.Hour {
			t.Errorf("expected 24h expiry window, got %v", got)
		}
	}

	hours := map[int]bool{}
	for _, job := range jq.enqueued {
		hours[job.NotBefore.In(time.UTC).Hour()] = true
	}
	if !hours[8] || !hours[20] {
		t.Errorf("expected 08:00 and 20:00 slots, got %v", hours)
	}
}

func TestRescanner_ScheduleRecomputeJobs_NoActiveUsers(t *testing.T) {
	t.Parallel()

	s := newFakeStores()
	jq := &mockJobQueue{}
	r := NewRescanner(jq, &fakeSettingsStore{s}, time.UTC, nil)

	if err := r.ScheduleRecomputeJobs(context.Background()); err != nil {
		t.Fatalf("ScheduleRecomputeJobs failed: %v", err)
	}
	if len(jq.enqueued) != 0 {
		t.Errorf("expected no jobs, got %d", len(jq.enqueued))
	}
}

func TestRescanner_ScheduleRecomputeJobs_StoreError(t *testing.T) {
	t.Parallel()

	s := newFakeStores()
	s.failures["get_active_users"] = -1
	r := NewRescanner(&mockJobQueue{}, &fakeSettingsStore{s}, time.UTC, nil)

	if err := r.ScheduleRecomputeJobs(context.Background()); err == nil {
		t.Fatal("expected error when active-user lookup fails")
	}
}

func TestRescanner_ScheduleRecomputeJobs_EnqueueErrorContinues(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	s := newFakeStores()
	s.settings = &models.StreakSettings{UserID: userID, StreakThreshold: 50}
	jq := &mockJobQueue{err: errors.New("broker down")}

	r := NewRescanner(jq, &fakeSettingsStore{s}, time.UTC, nil)
	if err := r.ScheduleRecomputeJobs(context.Background()); err != nil {
		t.Fatalf("enqueue failures are logged, not fatal: %v", err)
	}
}
