// Package collector delivers standardized events to the first-party
// collector. Delivery is at-most-once: any non-202 response or network
// failure is logged and the event is lost, never retried, never
// surfaced to the host page.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/vantara/tagfusion/internal/event"
	"github.com/vantara/tagfusion/internal/utils"
)

// TrackRequest is the collector wire format for one event.
type TrackRequest struct {
	APIKey     string           `json:"apiKey"`
	EventName  string           `json:"eventName"`
	Properties event.Properties `json:"properties"`
	SessionID  string           `json:"sessionId"`
	Timestamp  time.Time        `json:"timestamp"`
	PixelID    string           `json:"pixel_id,omitempty"`
	EventID    string           `json:"event_id,omitempty"`
}

// Client posts events to the collector endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     utils.Logger
}

// Options configures a collector client.
type Options struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	// RatePerSecond caps delivery; events past the cap are dropped, not
	// queued, to keep delivery fire-and-forget. Zero means 25/s.
	RatePerSecond float64
	Burst         int
	Logger        utils.Logger
}

// NewClient creates a collector client.
func NewClient(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, utils.NewError(utils.ErrCodeInvalidConfig, "collector endpoint is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 25
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewLogger()
	}

	return &Client{
		endpoint:   opts.Endpoint,
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		logger:     opts.Logger.WithField("component", "collector"),
	}, nil
}

// Deliver posts one event. The only success status is 202 Accepted.
// Errors are returned for accounting but callers treat delivery as
// fire-and-forget.
func (c *Client) Deliver(ctx context.Context, payload *event.Payload, pixelID, eventID string) error {
	if !c.limiter.Allow() {
		c.logger.Warnf("delivery rate exceeded, dropping event %s", payload.EventName)
		return utils.NewError(utils.ErrCodeDeliveryFailed, "delivery rate exceeded")
	}

	body, err := json.Marshal(TrackRequest{
		APIKey:     c.apiKey,
		EventName:  payload.EventName,
		Properties: payload.Properties,
		SessionID:  payload.SessionID,
		Timestamp:  payload.Timestamp,
		PixelID:    pixelID,
		EventID:    eventID,
	})
	if err != nil {
		return utils.NewError(utils.ErrCodeDeliveryFailed, "failed to encode event").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return utils.NewError(utils.ErrCodeDeliveryFailed, "failed to build delivery request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warnf("event %s delivery failed: %v", payload.EventName, err)
		return utils.NewError(utils.ErrCodeDeliveryFailed, "event delivery failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		c.logger.Warnf("event %s dropped: collector returned HTTP %d", payload.EventName, resp.StatusCode)
		return utils.NewErrorf(utils.ErrCodeDeliveryFailed, "collector returned HTTP %d", resp.StatusCode)
	}
	return nil
}
