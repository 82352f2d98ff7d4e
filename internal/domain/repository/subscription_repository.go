package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/entity"
)

type SubscriptionRepository interface {
	Register(ctx context.Context, sub *entity.PushSubscription) error
	Revoke(ctx context.Context, subscriptionID string) error
	ActiveIDsForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
}
