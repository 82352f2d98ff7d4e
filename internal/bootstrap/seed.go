package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
	"github.com/manisense/constellation-push-dispatcher/internal/config"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/entity"
	"github.com/manisense/constellation-push-dispatcher/internal/infra/persistence"
	"gorm.io/datatypes"
)

var seedEventTypes = []entity.EventType{
	entity.EventMessageNew,
	entity.EventCallRinging,
	entity.EventRitualReminder,
	entity.EventPartnerJoined,
	entity.EventSystem,
}

// Seed fills the store with fake constellations: each one gets a recipient
// with an active subscription and count queued jobs spread across the event
// types. Intended for local runs against an empty database.
func Seed(ctx context.Context, cfg config.Config, count, batchSize int) error {
	if count <= 0 {
		count = 10
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	log, err := BuildLogger(cfg)
	if err != nil {
		return err
	}

	conn, err := persistence.New(ctx, persistence.Config{
		WriteDSN:          cfg.Database.WriteDSN,
		ReadDSN:           cfg.Database.ReadDSN,
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	pingCtx := ctx
	if cfg.Database.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
		defer cancel()
	}
	if err := conn.Ping(pingCtx); err != nil {
		return err
	}

	baseTime := time.Now().UTC()
	jobs := make([]entity.OutboxJob, 0, batchSize)
	subs := make([]entity.PushSubscription, 0, batchSize)
	flush := func() error {
		if len(subs) > 0 {
			if err := conn.Write(ctx).CreateInBatches(&subs, batchSize).Error; err != nil {
				return err
			}
			subs = subs[:0]
		}
		if len(jobs) > 0 {
			if err := conn.Write(ctx).CreateInBatches(&jobs, batchSize).Error; err != nil {
				return err
			}
			jobs = jobs[:0]
		}
		return nil
	}

	for i := 0; i < count; i++ {
		constellationID := uuid.New()
		recipientID := uuid.New()
		actorID := uuid.New()
		seedTime := baseTime.Add(time.Duration(i) * time.Microsecond)

		subs = append(subs, entity.PushSubscription{
			UserID:         recipientID,
			SubscriptionID: fmt.Sprintf("seed-%s", uuid.NewString()),
			Platform:       "android",
			CreatedAt:      seedTime,
			UpdatedAt:      seedTime,
		})

		eventType := seedEventTypes[i%len(seedEventTypes)]
		jobs = append(jobs, entity.OutboxJob{
			ConstellationID: constellationID,
			RecipientUserID: recipientID,
			ActorUserID:     &actorID,
			EventType:       eventType,
			Payload:         seedPayload(eventType),
			Status:          entity.StatusQueued,
			CreatedAt:       seedTime,
			UpdatedAt:       seedTime,
		})

		if len(jobs) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	log.Infof("seed: created %d subscriptions and %d queued jobs", count, count)
	return nil
}

func seedPayload(eventType entity.EventType) datatypes.JSONMap {
	switch eventType {
	case entity.EventMessageNew:
		return datatypes.JSONMap{"preview_text": faker.Sentence()}
	case entity.EventCallRinging:
		return datatypes.JSONMap{"call_type": "video"}
	case entity.EventRitualReminder:
		return datatypes.JSONMap{"ritual_title": faker.Word()}
	case entity.EventSystem:
		return datatypes.JSONMap{"message": faker.Sentence()}
	default:
		return datatypes.JSONMap{}
	}
}
