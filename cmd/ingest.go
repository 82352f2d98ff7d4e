/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/manisense/constellation-push-dispatcher/internal/bootstrap"
	"github.com/manisense/constellation-push-dispatcher/internal/config"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/entity"
	"github.com/manisense/constellation-push-dispatcher/internal/infra/messaging"
	"github.com/manisense/constellation-push-dispatcher/internal/infra/persistence"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Consume application events from JetStream into the outbox",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
		log, err := bootstrap.BuildLogger(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "log error:", err)
			os.Exit(1)
		}

		client, err := messaging.NewNATS(cmd.Context(), cfg.NATS)
		if err != nil {
			fmt.Fprintln(os.Stderr, "nats error:", err)
			os.Exit(1)
		}
		if client == nil {
			fmt.Fprintln(os.Stderr, "nats error: nats url is required")
			os.Exit(1)
		}
		defer client.Close()

		js := client.JetStream()
		if js == nil {
			fmt.Fprintln(os.Stderr, "nats error: jetstream not initialized")
			os.Exit(1)
		}

		db, err := persistence.New(cmd.Context(), persistence.Config{
			WriteDSN:          cfg.Database.WriteDSN,
			ReadDSN:           cfg.Database.ReadDSN,
			MaxConns:          cfg.Database.MaxConns,
			MinConns:          cfg.Database.MinConns,
			MaxConnLifetime:   cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
			HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "db error:", err)
			os.Exit(1)
		}
		defer db.Close()
		outboxRepo := persistence.NewOutboxRepository(db, cfg.Outbox.LockTimeout)

		if err := ensureConsumer(cmd.Context(), cfg, js); err != nil {
			fmt.Fprintln(os.Stderr, "consumer config error:", err)
			os.Exit(1)
		}

		log.Infof("ingest: listening on %s (durable=%s)", cfg.NATS.EventsSubject, cfg.NATS.ConsumerDurable)
		sub, err := js.PullSubscribe(
			cfg.NATS.EventsSubject,
			cfg.NATS.ConsumerDurable,
			nats.Bind(cfg.NATS.Stream, cfg.NATS.ConsumerDurable),
		)
		if err != nil {
			fmt.Fprintln(os.Stderr, "subscribe error:", err)
			os.Exit(1)
		}

		for {
			select {
			case <-cmd.Context().Done():
				return
			default:
			}

			msgs, err := sub.Fetch(50, nats.MaxWait(2*time.Second))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				log.WithError(err).Warn("ingest: fetch failed")
				continue
			}
			for _, msg := range msgs {
				job, err := decodeEvent(msg.Data)
				if err != nil {
					log.WithError(err).Warn("ingest: bad event payload")
					handleIngestError(cmd.Context(), cfg, client, msg, log)
					continue
				}
				if err := outboxRepo.Enqueue(cmd.Context(), job); err != nil {
					log.WithError(err).Warn("ingest: enqueue failed")
					handleIngestError(cmd.Context(), cfg, client, msg, log)
					continue
				}
				log.Infof("ingest: enqueued %s for %s", job.EventType, job.RecipientUserID)
				_ = msg.Ack()
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

type inboundEvent struct {
	ConstellationID uuid.UUID      `json:"constellation_id"`
	RecipientUserID uuid.UUID      `json:"recipient_user_id"`
	ActorUserID     *uuid.UUID     `json:"actor_user_id"`
	EventType       string         `json:"event_type"`
	Payload         map[string]any `json:"payload"`
}

// decodeEvent turns an application event into a queued outbox row. Events
// outside the closed type set are poison and follow the DLQ path.
func decodeEvent(data []byte) (*entity.OutboxJob, error) {
	var evt inboundEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	if evt.ConstellationID == uuid.Nil || evt.RecipientUserID == uuid.Nil {
		return nil, errors.New("constellation_id and recipient_user_id are required")
	}
	eventType := entity.EventType(evt.EventType)
	if !eventType.IsValid() {
		return nil, fmt.Errorf("unknown event type %q", evt.EventType)
	}
	return &entity.OutboxJob{
		ConstellationID: evt.ConstellationID,
		RecipientUserID: evt.RecipientUserID,
		ActorUserID:     evt.ActorUserID,
		EventType:       eventType,
		Payload:         evt.Payload,
		Status:          entity.StatusQueued,
	}, nil
}

func ensureConsumer(ctx context.Context, cfg config.Config, js nats.JetStreamContext) error {
	if cfg.NATS.Stream == "" {
		return errors.New("nats stream is required")
	}
	if cfg.NATS.ConsumerDurable == "" {
		return errors.New("nats consumer durable is required")
	}
	if cfg.NATS.EventsSubject == "" {
		return errors.New("nats events subject is required")
	}

	info, err := js.ConsumerInfo(cfg.NATS.Stream, cfg.NATS.ConsumerDurable, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrConsumerNotFound) {
		return err
	}

	backoff := cfg.NATS.ConsumerBackoff
	maxDeliver := cfg.NATS.ConsumerMaxDeliver
	if maxDeliver <= 0 {
		maxDeliver = -1
	}

	if info != nil {
		if info.Config.MaxDeliver != maxDeliver || !sameBackoff(info.Config.BackOff, backoff) {
			if err := js.DeleteConsumer(cfg.NATS.Stream, cfg.NATS.ConsumerDurable, nats.Context(ctx)); err != nil {
				return err
			}
			info = nil
		}
	}

	if info == nil {
		consumerCfg := &nats.ConsumerConfig{
			Durable:       cfg.NATS.ConsumerDurable,
			AckPolicy:     nats.AckExplicitPolicy,
			AckWait:       cfg.NATS.AckWait,
			MaxAckPending: cfg.NATS.MaxAckPending,
			MaxDeliver:    maxDeliver,
			FilterSubject: cfg.NATS.EventsSubject,
		}
		if len(backoff) > 0 {
			consumerCfg.BackOff = backoff
		}
		if _, err := js.AddConsumer(cfg.NATS.Stream, consumerCfg, nats.Context(ctx)); err != nil {
			return err
		}
	}
	return nil
}

func sameBackoff(a, b []time.Duration) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func handleIngestError(ctx context.Context, cfg config.Config, client *messaging.NATSClient, msg *nats.Msg, log *logrus.Logger) {
	md, err := msg.Metadata()
	if err != nil {
		log.WithError(err).Warn("ingest: metadata missing")
		_ = msg.Nak()
		return
	}
	maxDeliver := cfg.NATS.ConsumerMaxDeliver
	if maxDeliver <= 0 {
		maxDeliver = 10
	}
	if int(md.NumDelivered) >= maxDeliver {
		if cfg.NATS.DLQSubject != "" {
			if err := client.Publish(ctx, cfg.NATS.DLQSubject, msg.Data, fmt.Sprintf("dlq-%d", md.Sequence.Stream)); err != nil {
				log.WithError(err).Warn("ingest: dlq publish failed")
				_ = msg.Nak()
				return
			}
		} else {
			log.Warn("ingest: dlq subject not configured")
		}
		_ = msg.Ack()
		return
	}
	delay := backoffForAttempt(cfg.NATS.ConsumerBackoff, md.NumDelivered)
	if delay > 0 {
		_ = msg.NakWithDelay(delay)
		return
	}
	_ = msg.Nak()
}

func backoffForAttempt(backoff []time.Duration, delivered uint64) time.Duration {
	if len(backoff) == 0 {
		return 0
	}
	idx := int(delivered) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(backoff) {
		idx = len(backoff) - 1
	}
	return backoff[idx]
}
