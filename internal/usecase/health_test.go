package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/manisense/constellation-push-dispatcher/internal/domain/entity"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultThresholds() service.HealthThresholds {
	return service.HealthThresholds{
		PendingAgeWarnSeconds: 300,
		FailedWarnCount:       20,
		QueuedWarnCount:       100,
	}
}

func TestReportHealthy(t *testing.T) {
	repo := &fakeOutboxRepo{
		counts: map[entity.JobStatus]int64{
			entity.StatusQueued: 3,
			entity.StatusSent:   1000,
			entity.StatusFailed: 20, // at the threshold, not over it
		},
	}
	h := NewHealthReporter(repo, defaultThresholds(), testLogger())

	report, err := h.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, service.HealthStatusHealthy, report.Status)
	assert.Empty(t, report.Alerts)
	assert.NotNil(t, report.Alerts)
	assert.Equal(t, int64(3), report.Queue.Queued)
	assert.Equal(t, int64(20), report.Queue.Failed)
	assert.Equal(t, int64(1000), report.Queue.Sent)
	assert.Equal(t, int64(0), report.OldestPendingAgeSeconds)
	assert.Equal(t, int64(300), report.Thresholds.PendingAgeWarnSeconds)
}

func TestReportDegradedOnFailedCount(t *testing.T) {
	repo := &fakeOutboxRepo{
		counts: map[entity.JobStatus]int64{entity.StatusFailed: 21},
	}
	h := NewHealthReporter(repo, defaultThresholds(), testLogger())

	report, err := h.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, service.HealthStatusDegraded, report.Status)
	assert.Equal(t, []string{service.AlertFailedCount}, report.Alerts)
}

func TestReportDegradedOnQueuedCount(t *testing.T) {
	repo := &fakeOutboxRepo{
		counts: map[entity.JobStatus]int64{entity.StatusQueued: 101},
	}
	h := NewHealthReporter(repo, defaultThresholds(), testLogger())

	report, err := h.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, service.HealthStatusDegraded, report.Status)
	assert.Equal(t, []string{service.AlertQueuedCount}, report.Alerts)
}

func TestReportDegradedOnPendingAge(t *testing.T) {
	oldest := time.Now().UTC().Add(-10 * time.Minute)
	repo := &fakeOutboxRepo{
		counts: map[entity.JobStatus]int64{entity.StatusQueued: 1},
		oldest: &oldest,
	}
	h := NewHealthReporter(repo, defaultThresholds(), testLogger())

	report, err := h.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, service.HealthStatusDegraded, report.Status)
	assert.Equal(t, []string{service.AlertPendingAge}, report.Alerts)
	assert.InDelta(t, 600, report.OldestPendingAgeSeconds, 5)
}

func TestReportMultipleAlerts(t *testing.T) {
	oldest := time.Now().UTC().Add(-time.Hour)
	repo := &fakeOutboxRepo{
		counts: map[entity.JobStatus]int64{
			entity.StatusQueued: 500,
			entity.StatusFailed: 50,
		},
		oldest: &oldest,
	}
	h := NewHealthReporter(repo, defaultThresholds(), testLogger())

	report, err := h.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, service.HealthStatusDegraded, report.Status)
	assert.ElementsMatch(t, []string{
		service.AlertPendingAge,
		service.AlertFailedCount,
		service.AlertQueuedCount,
	}, report.Alerts)
}

func TestReportPinnedClock(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	oldest := now.Add(-90 * time.Second)
	repo := &fakeOutboxRepo{
		counts: map[entity.JobStatus]int64{entity.StatusProcessing: 1},
		oldest: &oldest,
	}
	h := NewHealthReporter(repo, defaultThresholds(), testLogger())
	h.now = func() time.Time { return now }

	report, err := h.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now, report.At)
	assert.Equal(t, int64(90), report.OldestPendingAgeSeconds)
	assert.Equal(t, service.HealthStatusHealthy, report.Status)
}
