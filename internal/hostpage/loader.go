// internal/hostpage/loader.go
package hostpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultUserAgent = "TagFusion/1.0"

// Loader obtains a Page for a URL.
type Loader interface {
	Load(ctx context.Context, url string) (*Page, error)
}

// HTTPLoader fetches a page over plain HTTP and parses the returned body.
// Suitable for server-rendered pages; JS-heavy pages need RenderLoader.
type HTTPLoader struct {
	client    *http.Client
	userAgent string
}

// HTTPLoaderOptions configures an HTTPLoader.
type HTTPLoaderOptions struct {
	Timeout   time.Duration
	UserAgent string
}

// NewHTTPLoader creates an HTTP page loader.
func NewHTTPLoader(opts HTTPLoaderOptions) *HTTPLoader {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	return &HTTPLoader{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: opts.UserAgent,
	}
}

// Load fetches the URL and parses the body into a Page.
func (l *HTTPLoader) Load(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("page fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("page fetch failed: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read page body: %w", err)
	}

	return FromHTML(string(body), url)
}
