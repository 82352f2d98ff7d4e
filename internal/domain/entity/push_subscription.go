package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PushSubscription maps a user's device to a provider subscription id.
// Revoked rows are kept so delivery history stays explainable.
type PushSubscription struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	SubscriptionID string     `gorm:"not null;uniqueIndex"`
	Platform       string     `gorm:"not null;default:''"`
	RevokedAt      *time.Time `gorm:""`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

func (PushSubscription) TableName() string {
	return "push_subscriptions"
}

func (s *PushSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *PushSubscription) Active() bool {
	return s.RevokedAt == nil
}
