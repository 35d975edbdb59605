// internal/config/remote.go
package config

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/vantara/tagfusion/internal/utils"
)

// Client fetches the operator configuration from the configuration
// service. The payload is fetched once and cached for the lifetime of
// the client, which matches the lifetime of a page load.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     utils.Logger

	mu     sync.Mutex
	cached *RemoteConfig
}

// ClientOptions configures the remote configuration client.
type ClientOptions struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Logger   utils.Logger
}

// NewClient creates a configuration client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, utils.NewError(utils.ErrCodeInvalidConfig, "configuration endpoint is required")
	}
	if opts.APIKey == "" {
		return nil, utils.NewError(utils.ErrCodeInvalidConfig, "API key is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewLogger()
	}

	return &Client{
		endpoint:   opts.Endpoint,
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     opts.Logger.WithField("component", "config"),
	}, nil
}

// Fetch returns the remote configuration, fetching it on first call and
// serving the cached copy afterwards. A fetch failure is reported as
// CONFIG_UNAVAILABLE; callers disable the pipeline for the page.
func (c *Client) Fetch(ctx context.Context) (*RemoteConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil {
		return c.cached, nil
	}

	cfg, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.cached = cfg
	return cfg, nil
}

// Invalidate drops the cached payload so the next Fetch hits the service.
// Used only by tooling; the runtime never refreshes mid-page.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}

func (c *Client) fetch(ctx context.Context) (*RemoteConfig, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, utils.NewErrorf(utils.ErrCodeInvalidConfig, "invalid endpoint %q", c.endpoint).WithCause(err)
	}
	q := u.Query()
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, utils.NewError(utils.ErrCodeConfigUnavailable, "failed to build config request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.NewError(utils.ErrCodeConfigUnavailable, "configuration fetch failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewErrorf(utils.ErrCodeConfigUnavailable, "configuration fetch returned HTTP %d", resp.StatusCode)
	}

	var cfg RemoteConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, utils.NewError(utils.ErrCodeConfigUnavailable, "failed to decode configuration payload").WithCause(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, utils.NewError(utils.ErrCodeInvalidConfig, "configuration payload invalid").WithCause(err)
	}

	c.logger.Infof("configuration loaded: website=%s mappings=%d pixels=%d triggers=%d",
		cfg.WebsiteID, len(cfg.DataMappings), len(cfg.Pixels), len(cfg.EventTriggers))
	return &cfg, nil
}
