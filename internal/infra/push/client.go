// Package push wraps the HTTP call to the push-notification provider.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manisense/constellation-push-dispatcher/internal/domain/entity"
	"github.com/manisense/constellation-push-dispatcher/internal/notify"
)

// ErrNoActiveSubscriptions is a local classification, not a provider
// failure: a job without subscription ids is discarded, never retried.
var ErrNoActiveSubscriptions = errors.New("no_active_subscription_ids")

const maxErrorBodyLen = 256

type Config struct {
	URL     string
	APIKey  string
	AppID   string
	Timeout time.Duration
}

// Client delivers notifications through the provider's REST API. Construct
// once per process and share across runs; it holds no per-run state.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("push: api key is required")
	}
	if cfg.AppID == "" {
		return nil, errors.New("push: app id is required")
	}
	if cfg.URL == "" {
		cfg.URL = "https://onesignal.com/api/v1/notifications"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type providerRequest struct {
	AppID                  string            `json:"app_id"`
	IncludeSubscriptionIDs []string          `json:"include_subscription_ids"`
	Headings               map[string]string `json:"headings"`
	Contents               map[string]string `json:"contents"`
	Data                   map[string]any    `json:"data"`
}

// Deliver sends one provider request addressed to all of the job's
// subscription ids. Fan-out to the recipient's devices is the provider's
// concern. No retries happen here; retry policy lives with the caller.
func (c *Client) Deliver(ctx context.Context, job entity.OutboxJob) error {
	if len(job.SubscriptionIDs) == 0 {
		return ErrNoActiveSubscriptions
	}

	copyText := notify.Build(job.EventType, job.Payload)
	reqBody := providerRequest{
		AppID:                  c.cfg.AppID,
		IncludeSubscriptionIDs: job.SubscriptionIDs,
		Headings:               map[string]string{"en": copyText.Title},
		Contents:               map[string]string{"en": copyText.Body},
		Data: map[string]any{
			"event_type":       string(job.EventType),
			"job_id":           job.ID.String(),
			"constellation_id": job.ConstellationID.String(),
			"payload":          map[string]any(job.Payload),
		},
	}
	if job.ActorUserID != nil {
		reqBody.Data["actor_user_id"] = job.ActorUserID.String()
	}

	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return errors.New("timeout")
		}
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%d:%s", resp.StatusCode, notify.Truncate(string(body), maxErrorBodyLen))
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
