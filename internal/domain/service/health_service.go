package service

import (
	"context"
	"time"
)

const (
	HealthStatusHealthy  = "healthy"
	HealthStatusDegraded = "degraded"
)

// Alert names emitted when a health threshold is exceeded.
const (
	AlertPendingAge  = "pending_age_exceeds_threshold"
	AlertFailedCount = "failed_count_exceeds_threshold"
	AlertQueuedCount = "queued_count_exceeds_threshold"
)

type QueueCounts struct {
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Failed     int64 `json:"failed"`
	Sent       int64 `json:"sent"`
	Discarded  int64 `json:"discarded"`
}

type HealthThresholds struct {
	PendingAgeWarnSeconds int64 `json:"pending_age_warn_seconds"`
	FailedWarnCount       int64 `json:"failed_warn_count"`
	QueuedWarnCount       int64 `json:"queued_warn_count"`
}

// HealthReport carries everything an external monitor needs to alert and
// self-explain without a second query.
type HealthReport struct {
	At                      time.Time        `json:"at"`
	Status                  string           `json:"status"`
	Queue                   QueueCounts      `json:"queue"`
	OldestPendingAgeSeconds int64            `json:"oldest_pending_age_seconds"`
	Thresholds              HealthThresholds `json:"thresholds"`
	Alerts                  []string         `json:"alerts"`
}

type HealthService interface {
	Report(ctx context.Context) (HealthReport, error)
}
