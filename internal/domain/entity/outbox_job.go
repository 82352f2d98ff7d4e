package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus is the lifecycle state of an outbox job.
// queued -> processing -> {sent | failed | discarded}; failed rows become
// reclaimable once their retry delay elapses.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusSent       JobStatus = "sent"
	StatusFailed     JobStatus = "failed"
	StatusDiscarded  JobStatus = "discarded"
)

// IsValid reports whether the status is part of the job lifecycle.
func (s JobStatus) IsValid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusSent, StatusFailed, StatusDiscarded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition may alter the job.
func (s JobStatus) IsTerminal() bool {
	return s == StatusSent || s == StatusDiscarded
}

// EventType identifies the application event a job notifies about.
type EventType string

const (
	EventMessageNew     EventType = "message_new"
	EventCallRinging    EventType = "call_ringing"
	EventRitualReminder EventType = "ritual_reminder"
	EventPartnerJoined  EventType = "partner_joined"
	EventSystem         EventType = "system"
)

func (e EventType) IsValid() bool {
	switch e {
	case EventMessageNew, EventCallRinging, EventRitualReminder, EventPartnerJoined, EventSystem:
		return true
	default:
		return false
	}
}

// OutboxJob is one notification obligation. Terminal rows are kept for
// audit and health history, never deleted.
type OutboxJob struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey"`
	ConstellationID uuid.UUID         `gorm:"type:uuid;not null;index"`
	RecipientUserID uuid.UUID         `gorm:"type:uuid;not null"`
	ActorUserID     *uuid.UUID        `gorm:"type:uuid"`
	EventType       EventType         `gorm:"not null"`
	Payload         datatypes.JSONMap `gorm:"type:jsonb"`
	Status          JobStatus         `gorm:"not null;default:'queued';index:idx_outbox_jobs_claim,priority:1"`
	Attempts        int               `gorm:"not null;default:0"`
	LastError       string            `gorm:"not null;default:''"`
	NextAttemptAt   *time.Time        `gorm:"index:idx_outbox_jobs_claim,priority:2"`
	CreatedAt       time.Time         `gorm:"not null"`
	UpdatedAt       time.Time         `gorm:"not null"`

	// SubscriptionIDs is resolved by the store at claim time from the
	// recipient's active push subscriptions. Not a column.
	SubscriptionIDs []string `gorm:"-"`
}

func (OutboxJob) TableName() string {
	return "outbox_jobs"
}

func (j *OutboxJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = StatusQueued
	}
	return nil
}
