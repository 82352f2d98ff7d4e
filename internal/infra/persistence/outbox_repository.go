package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/entity"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// eligibleCond selects jobs a claim may take: queued rows, failed rows whose
// retry delay has elapsed, and processing rows whose lease has expired.
const eligibleCond = `status = ?
 OR (status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?))
 OR (status = ? AND updated_at <= ?)`

type OutboxRepository struct {
	db          *DB
	lockTimeout time.Duration
}

var _ repository.OutboxRepository = (*OutboxRepository)(nil)

func NewOutboxRepository(db *DB, lockTimeout time.Duration) *OutboxRepository {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Minute
	}
	return &OutboxRepository{db: db, lockTimeout: lockTimeout}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, job *entity.OutboxJob) error {
	return r.db.Write(ctx).Create(job).Error
}

// ClaimBatch flips up to limit eligible jobs to processing inside one
// transaction and returns them with the recipients' active subscription ids
// attached. Under postgres the id selection takes row locks with SKIP
// LOCKED, so overlapping claimers never receive the same row.
func (r *OutboxRepository) ClaimBatch(ctx context.Context, limit int) ([]entity.OutboxJob, error) {
	if limit <= 0 {
		limit = 20
	}

	var jobs []entity.OutboxJob
	err := r.db.WithTx(ctx, func(txCtx context.Context) error {
		tx := r.db.Write(txCtx)
		now := time.Now().UTC()
		staleBefore := now.Add(-r.lockTimeout)

		query := tx.Model(&entity.OutboxJob{}).
			Where(eligibleCond,
				entity.StatusQueued,
				entity.StatusFailed, now,
				entity.StatusProcessing, staleBefore).
			Order("created_at ASC").
			Limit(limit)
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var ids []uuid.UUID
		if err := query.Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		res := tx.Model(&entity.OutboxJob{}).
			Where("id IN ?", ids).
			Where(eligibleCond,
				entity.StatusQueued,
				entity.StatusFailed, now,
				entity.StatusProcessing, staleBefore).
			Updates(map[string]any{
				"status":     entity.StatusProcessing,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		return tx.
			Where("id IN ? AND status = ?", ids, entity.StatusProcessing).
			Order("created_at ASC").
			Find(&jobs).Error
	})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	if err := r.resolveSubscriptions(ctx, jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *OutboxRepository) resolveSubscriptions(ctx context.Context, jobs []entity.OutboxJob) error {
	userIDs := make([]uuid.UUID, 0, len(jobs))
	seen := make(map[uuid.UUID]bool, len(jobs))
	for _, job := range jobs {
		if !seen[job.RecipientUserID] {
			seen[job.RecipientUserID] = true
			userIDs = append(userIDs, job.RecipientUserID)
		}
	}

	var subs []entity.PushSubscription
	if err := r.db.Read(ctx).
		Where("user_id IN ? AND revoked_at IS NULL", userIDs).
		Order("created_at ASC").
		Find(&subs).Error; err != nil {
		return err
	}

	byUser := make(map[uuid.UUID][]string, len(userIDs))
	for _, sub := range subs {
		byUser[sub.UserID] = append(byUser[sub.UserID], sub.SubscriptionID)
	}
	for i := range jobs {
		jobs[i].SubscriptionIDs = byUser[jobs[i].RecipientUserID]
	}
	return nil
}

// CompleteJob records a delivery attempt outcome. The status guard keeps
// terminal rows immutable: a second completion on a sent or discarded job
// affects zero rows and surfaces as ErrJobFinalized.
func (r *OutboxRepository) CompleteJob(ctx context.Context, id uuid.UUID, success bool, deliveryErr string, retryDelay time.Duration, discard bool) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": deliveryErr,
		"updated_at": now,
	}
	switch {
	case success:
		updates["status"] = entity.StatusSent
		updates["next_attempt_at"] = nil
	case discard:
		updates["status"] = entity.StatusDiscarded
		updates["next_attempt_at"] = nil
	default:
		updates["status"] = entity.StatusFailed
		updates["next_attempt_at"] = now.Add(retryDelay)
	}

	res := r.db.Write(ctx).Model(&entity.OutboxJob{}).
		Where("id = ? AND status NOT IN ?", id, []entity.JobStatus{entity.StatusSent, entity.StatusDiscarded}).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrJobFinalized
	}
	return nil
}

func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[entity.JobStatus]int64, error) {
	var rows []struct {
		Status entity.JobStatus
		Total  int64
	}
	if err := r.db.Read(ctx).Model(&entity.OutboxJob{}).
		Select("status, count(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[entity.JobStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *OutboxRepository) OldestPendingCreatedAt(ctx context.Context) (*time.Time, error) {
	var row struct {
		Oldest *time.Time
	}
	err := r.db.Read(ctx).Model(&entity.OutboxJob{}).
		Select("min(created_at) AS oldest").
		Where("status IN ?", []entity.JobStatus{entity.StatusQueued, entity.StatusProcessing, entity.StatusFailed}).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.Oldest, nil
}
