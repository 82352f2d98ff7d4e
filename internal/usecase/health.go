package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/manisense/constellation-push-dispatcher/internal/domain/entity"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/repository"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/service"
	"github.com/sirupsen/logrus"
)

// HealthReporter computes a read-only queue verdict. Threshold breaches are
// data for the caller, never errors.
type HealthReporter struct {
	jobs       repository.OutboxRepository
	thresholds service.HealthThresholds
	now        func() time.Time
	log        *logrus.Logger
}

var _ service.HealthService = (*HealthReporter)(nil)

func NewHealthReporter(jobs repository.OutboxRepository, thresholds service.HealthThresholds, log *logrus.Logger) *HealthReporter {
	if thresholds.PendingAgeWarnSeconds <= 0 {
		thresholds.PendingAgeWarnSeconds = 300
	}
	if thresholds.FailedWarnCount <= 0 {
		thresholds.FailedWarnCount = 20
	}
	if thresholds.QueuedWarnCount <= 0 {
		thresholds.QueuedWarnCount = 100
	}
	return &HealthReporter{
		jobs:       jobs,
		thresholds: thresholds,
		now:        time.Now,
		log:        log,
	}
}

func (h *HealthReporter) Report(ctx context.Context) (service.HealthReport, error) {
	counts, err := h.jobs.CountByStatus(ctx)
	if err != nil {
		return service.HealthReport{}, fmt.Errorf("count by status: %w", err)
	}

	oldest, err := h.jobs.OldestPendingCreatedAt(ctx)
	if err != nil {
		return service.HealthReport{}, fmt.Errorf("oldest pending: %w", err)
	}

	now := h.now().UTC()
	var oldestAge int64
	if oldest != nil {
		if age := int64(now.Sub(*oldest).Seconds()); age > 0 {
			oldestAge = age
		}
	}

	report := service.HealthReport{
		At: now,
		Queue: service.QueueCounts{
			Queued:     counts[entity.StatusQueued],
			Processing: counts[entity.StatusProcessing],
			Failed:     counts[entity.StatusFailed],
			Sent:       counts[entity.StatusSent],
			Discarded:  counts[entity.StatusDiscarded],
		},
		OldestPendingAgeSeconds: oldestAge,
		Thresholds:              h.thresholds,
		Alerts:                  []string{},
	}

	if report.OldestPendingAgeSeconds > h.thresholds.PendingAgeWarnSeconds {
		report.Alerts = append(report.Alerts, service.AlertPendingAge)
	}
	if report.Queue.Failed > h.thresholds.FailedWarnCount {
		report.Alerts = append(report.Alerts, service.AlertFailedCount)
	}
	if report.Queue.Queued > h.thresholds.QueuedWarnCount {
		report.Alerts = append(report.Alerts, service.AlertQueuedCount)
	}

	report.Status = service.HealthStatusHealthy
	if len(report.Alerts) > 0 {
		report.Status = service.HealthStatusDegraded
		h.log.WithFields(logrus.Fields{
			"alerts":             report.Alerts,
			"queued":             report.Queue.Queued,
			"failed":             report.Queue.Failed,
			"oldest_pending_age": report.OldestPendingAgeSeconds,
		}).Warn("health: queue degraded")
	}

	return report, nil
}
