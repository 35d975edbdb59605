// Package pixels decides which third-party conversion pixels load on
// the current page and forwards standardized events to them. The loaded
// set is idempotent: it only grows during a page lifetime, and a pixel
// id is never loaded twice.
package pixels

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vantara/tagfusion/internal/config"
	"github.com/vantara/tagfusion/internal/event"
	"github.com/vantara/tagfusion/internal/utils"
)

// ActivationEngine evaluates activation rules and owns the loaded set.
type ActivationEngine struct {
	runtime Runtime
	logger  utils.Logger

	mu     sync.Mutex
	loaded map[string]config.PixelConfig
}

// NewActivationEngine creates a pixel activation engine.
func NewActivationEngine(runtime Runtime, logger utils.Logger) *ActivationEngine {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &ActivationEngine{
		runtime: runtime,
		logger:  logger.WithField("component", "pixels"),
		loaded:  make(map[string]config.PixelConfig),
	}
}

// Evaluate loads every pixel whose activation rules match the current
// URL and that is not already loaded. A load failure for one pixel never
// blocks the others. Returns the ids loaded by this call and the number
// of load failures, for the caller's accounting.
func (e *ActivationEngine) Evaluate(ctx context.Context, pixelConfigs []config.PixelConfig, pageURL string) ([]string, int) {
	var loadedNow []string
	failed := 0

	for _, pixel := range pixelConfigs {
		if !RulesMatch(pixel.ActivationRules, pageURL) {
			continue
		}

		e.mu.Lock()
		_, already := e.loaded[pixel.ID]
		e.mu.Unlock()
		if already {
			continue
		}

		if err := e.runtime.Load(ctx, pixel); err != nil {
			e.logger.Warnf("pixel %s failed to load: %v", pixel.ID, err)
			failed++
			continue
		}

		e.mu.Lock()
		e.loaded[pixel.ID] = pixel
		e.mu.Unlock()
		loadedNow = append(loadedNow, pixel.ID)
		e.logger.Infof("pixel %s loaded for %s", pixel.ID, pageURL)
	}

	return loadedNow, failed
}

// Emit forwards the event to every loaded pixel with a fresh idempotency
// token per pixel. Only the ecommerce sub-object of the payload crosses
// the privacy boundary; track failures are logged and isolated.
func (e *ActivationEngine) Emit(ctx context.Context, payload *event.Payload) {
	now := time.Now()

	for _, id := range e.LoadedPixels() {
		opts := TrackOptions{EventID: EventID(id, now)}
		if err := e.runtime.Track(ctx, id, payload.EventName, payload.Properties.Ecommerce, opts); err != nil {
			e.logger.Warnf("pixel %s track failed: %v", id, err)
		}
	}
}

// EmitTo forwards the event to a single pixel when it is loaded.
// Returns false when the pixel is not loaded on this page.
func (e *ActivationEngine) EmitTo(ctx context.Context, pixelID string, payload *event.Payload) bool {
	e.mu.Lock()
	_, ok := e.loaded[pixelID]
	e.mu.Unlock()
	if !ok {
		return false
	}

	opts := TrackOptions{EventID: EventID(pixelID, time.Now())}
	if err := e.runtime.Track(ctx, pixelID, payload.EventName, payload.Properties.Ecommerce, opts); err != nil {
		e.logger.Warnf("pixel %s track failed: %v", pixelID, err)
	}
	return true
}

// LoadedPixels returns the loaded pixel ids in stable order.
func (e *ActivationEngine) LoadedPixels() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.loaded))
	for id := range e.loaded {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RulesMatch reports whether a pixel's activation rules are satisfied by
// the URL. Rules combine with logical OR; a pixel with no rules is
// always on. Unknown rule types never match.
func RulesMatch(rules []config.ActivationRule, pageURL string) bool {
	if len(rules) == 0 {
		return true
	}
	for _, rule := range rules {
		if rule.Type == config.RuleURLContains && strings.Contains(pageURL, rule.Value) {
			return true
		}
	}
	return false
}
