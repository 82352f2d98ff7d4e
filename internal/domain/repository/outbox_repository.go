package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/entity"
)

// OutboxRepository is the durable contract between event producers and the
// dispatcher. ClaimBatch must never return the same row to two concurrent
// callers until it is completed or its lease expires.
type OutboxRepository interface {
	Enqueue(ctx context.Context, job *entity.OutboxJob) error

	// ClaimBatch atomically moves up to limit eligible jobs (queued, or
	// failed past their retry delay, or processing past the lease) into
	// processing and returns them with SubscriptionIDs resolved.
	ClaimBatch(ctx context.Context, limit int) ([]entity.OutboxJob, error)

	// CompleteJob records one delivery attempt. success moves the job to
	// sent; discard moves it to discarded; otherwise it becomes failed and
	// reclaimable after retryDelay. Attempts is always incremented and
	// deliveryErr always recorded. Completing a terminal job returns
	// ErrJobFinalized without touching the row.
	CompleteJob(ctx context.Context, id uuid.UUID, success bool, deliveryErr string, retryDelay time.Duration, discard bool) error

	CountByStatus(ctx context.Context) (map[entity.JobStatus]int64, error)

	// OldestPendingCreatedAt returns the oldest created_at among queued,
	// processing and failed jobs, or nil when none exist.
	OldestPendingCreatedAt(ctx context.Context) (*time.Time, error)
}
