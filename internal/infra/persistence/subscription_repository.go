package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/entity"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/repository"
)

type SubscriptionRepository struct {
	db *DB
}

var _ repository.SubscriptionRepository = (*SubscriptionRepository)(nil)

func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Register(ctx context.Context, sub *entity.PushSubscription) error {
	return r.db.Write(ctx).Create(sub).Error
}

func (r *SubscriptionRepository) Revoke(ctx context.Context, subscriptionID string) error {
	res := r.db.Write(ctx).Model(&entity.PushSubscription{}).
		Where("subscription_id = ? AND revoked_at IS NULL", subscriptionID).
		Updates(map[string]any{
			"revoked_at": time.Now().UTC(),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepository) ActiveIDsForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var ids []string
	err := r.db.Read(ctx).Model(&entity.PushSubscription{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Order("created_at ASC").
		Pluck("subscription_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
