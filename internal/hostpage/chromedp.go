// internal/hostpage/chromedp.go
package hostpage

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// RenderLoader loads pages through a headless Chrome instance so that
// client-rendered markup and the live data layer are visible to the
// runtime. The data layer is read from a configurable window expression
// in addition to the embedded script block.
type RenderLoader struct {
	config RenderConfig
}

// RenderConfig configures the headless render loader.
type RenderConfig struct {
	Headless      bool
	Timeout       time.Duration
	UserAgent     string
	SettleDelay   time.Duration
	DataLayerExpr string
}

// DefaultRenderConfig returns the default render configuration.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Headless:      true,
		Timeout:       45 * time.Second,
		UserAgent:     defaultUserAgent,
		SettleDelay:   500 * time.Millisecond,
		DataLayerExpr: "window.__tfData || null",
	}
}

// NewRenderLoader creates a headless-browser page loader.
func NewRenderLoader(config RenderConfig) *RenderLoader {
	if config.Timeout <= 0 {
		config.Timeout = 45 * time.Second
	}
	if config.DataLayerExpr == "" {
		config.DataLayerExpr = "window.__tfData || null"
	}
	return &RenderLoader{config: config}
}

// Load navigates to the URL, waits for the view to settle, and captures
// the rendered document plus the live data layer.
func (l *RenderLoader) Load(ctx context.Context, url string) (*Page, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	}
	if l.config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if l.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.config.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, l.config.Timeout)
	defer cancelTimeout()

	var html string
	var dataLayer map[string]interface{}

	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.Sleep(l.config.SettleDelay),
		chromedp.OuterHTML("html", &html),
		chromedp.Evaluate(l.config.DataLayerExpr, &dataLayer),
	}

	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return nil, fmt.Errorf("page render failed: %w", err)
	}

	page, err := FromHTML(html, url)
	if err != nil {
		return nil, err
	}
	if dataLayer != nil {
		page.SetDataLayer(dataLayer)
	}
	return page, nil
}
