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

const (
	DefaultBatchSize = 20
	MinBatchSize     = 1
	MaxBatchSize     = 100
)

// Deliverer performs one synchronous provider call for one job.
type Deliverer interface {
	Deliver(ctx context.Context, job entity.OutboxJob) error
}

// Dispatcher drains one claimed batch per Run. It holds no cross-run state;
// safety against concurrent runs is carried entirely by the store's claim.
type Dispatcher struct {
	jobs        repository.OutboxRepository
	deliverer   Deliverer
	retryDelay  time.Duration
	maxAttempts int
	log         *logrus.Logger
}

var _ service.DispatchService = (*Dispatcher)(nil)

func NewDispatcher(jobs repository.OutboxRepository, deliverer Deliverer, retryDelay time.Duration, maxAttempts int, log *logrus.Logger) *Dispatcher {
	if retryDelay <= 0 {
		retryDelay = time.Minute
	}
	return &Dispatcher{
		jobs:        jobs,
		deliverer:   deliverer,
		retryDelay:  retryDelay,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Run claims up to batchSize jobs and processes them strictly sequentially.
// Store errors abort the run: partial bookkeeping on a store that is already
// misbehaving would leave job states unexplainable. Delivery errors never
// abort; they fold into a failed (or discarded) completion per job.
func (d *Dispatcher) Run(ctx context.Context, batchSize int) (service.DispatchSummary, error) {
	size := clampBatchSize(batchSize)

	jobs, err := d.jobs.ClaimBatch(ctx, size)
	if err != nil {
		return service.DispatchSummary{}, fmt.Errorf("claim batch: %w", err)
	}

	summary := service.DispatchSummary{Claimed: len(jobs)}
	for _, job := range jobs {
		entry := d.log.WithFields(logrus.Fields{
			"job_id":     job.ID,
			"event_type": job.EventType,
			"attempts":   job.Attempts,
		})

		if len(job.SubscriptionIDs) == 0 {
			if err := d.jobs.CompleteJob(ctx, job.ID, false, "no_active_subscription_ids", 0, true); err != nil {
				return service.DispatchSummary{}, fmt.Errorf("complete job %s: %w", job.ID, err)
			}
			summary.Discarded++
			entry.Info("dispatch: discarded, recipient has no active subscriptions")
			continue
		}

		if deliverErr := d.deliverer.Deliver(ctx, job); deliverErr != nil {
			discard := d.maxAttempts > 0 && job.Attempts+1 >= d.maxAttempts
			if err := d.jobs.CompleteJob(ctx, job.ID, false, deliverErr.Error(), d.retryDelay, discard); err != nil {
				return service.DispatchSummary{}, fmt.Errorf("complete job %s: %w", job.ID, err)
			}
			if discard {
				summary.Discarded++
				entry.WithError(deliverErr).Warn("dispatch: max attempts reached, discarded")
			} else {
				summary.Failed++
				entry.WithError(deliverErr).Warn("dispatch: delivery failed, retry scheduled")
			}
			continue
		}

		if err := d.jobs.CompleteJob(ctx, job.ID, true, "", 0, false); err != nil {
			return service.DispatchSummary{}, fmt.Errorf("complete job %s: %w", job.ID, err)
		}
		summary.Sent++
		entry.Info("dispatch: sent")
	}

	return summary, nil
}

func clampBatchSize(size int) int {
	if size == 0 {
		return DefaultBatchSize
	}
	if size < MinBatchSize {
		return MinBatchSize
	}
	if size > MaxBatchSize {
		return MaxBatchSize
	}
	return size
}
