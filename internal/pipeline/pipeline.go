// Package pipeline orchestrates the full collection, fusion and emission
// cycle: one-shot on page readiness, re-invoked on detected navigation,
// and on every trigger fire. One Pipeline instance exists per page load;
// all shared mutable state is confined to it.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vantara/tagfusion/internal/collector"
	"github.com/vantara/tagfusion/internal/config"
	"github.com/vantara/tagfusion/internal/conversion"
	"github.com/vantara/tagfusion/internal/event"
	"github.com/vantara/tagfusion/internal/extract"
	"github.com/vantara/tagfusion/internal/fusion"
	"github.com/vantara/tagfusion/internal/hostpage"
	"github.com/vantara/tagfusion/internal/identity"
	"github.com/vantara/tagfusion/internal/monitoring"
	"github.com/vantara/tagfusion/internal/pixels"
	"github.com/vantara/tagfusion/internal/platform"
	"github.com/vantara/tagfusion/internal/security"
	"github.com/vantara/tagfusion/internal/triggers"
	"github.com/vantara/tagfusion/internal/utils"
)

// PageViewEvent is the event name for collection cycles started by page
// readiness or navigation.
const PageViewEvent = "page_view"

// Options wires the pipeline's collaborators.
type Options struct {
	Page         *hostpage.Page
	ConfigClient *config.Client
	Collector    *collector.Client
	PixelRuntime pixels.Runtime
	Identity     *identity.Manager
	Metrics      *monitoring.Metrics
	Logger       utils.Logger

	// SettleDelay is waited after a detected navigation before the new
	// view is collected.
	SettleDelay time.Duration
	// PollInterval drives single-page-app navigation detection.
	PollInterval time.Duration
}

// Pipeline is the per-page orchestrator.
type Pipeline struct {
	page      *hostpage.Page
	cfgClient *config.Client
	collector *collector.Client
	identity  *identity.Manager
	metrics   *monitoring.Metrics
	logger    utils.Logger

	mappings  *extract.ManualMappingCollector
	platform  *platform.PlatformDataAdapter
	fallback  *platform.FallbackHeuristicExtractor
	fusion    *fusion.DataFusionEngine
	validator *fusion.QualityValidator
	converter *conversion.Adapter
	pixelEng  *pixels.ActivationEngine

	settleDelay time.Duration
	poller      *Poller

	// set by Start; nil until the configuration fetch succeeds
	remote  *config.RemoteConfig
	gate    *security.Gate
	matcher *triggers.Matcher

	// lastSeenURL is read by the poller goroutine and written by every
	// collection cycle, so it takes its own lock.
	urlMu       sync.Mutex
	lastSeenURL string

	diag diagState
}

// New assembles a pipeline. Nothing runs until Start.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	p := &Pipeline{
		page:        opts.Page,
		cfgClient:   opts.ConfigClient,
		collector:   opts.Collector,
		identity:    opts.Identity,
		metrics:     metrics,
		logger:      logger.WithField("component", "pipeline"),
		mappings:    extract.NewManualMappingCollector(logger),
		platform:    platform.NewPlatformDataAdapter(logger),
		fallback:    platform.NewFallbackHeuristicExtractor(),
		fusion:      fusion.NewDataFusionEngine(logger),
		validator:   fusion.NewQualityValidator(),
		converter:   conversion.NewAdapter(logger),
		pixelEng:    pixels.NewActivationEngine(opts.PixelRuntime, logger),
		settleDelay: opts.SettleDelay,
	}
	p.poller = NewPoller(opts.PollInterval, p.pollNavigation)
	return p
}

// Start fetches the configuration, runs the page-ready cycle and begins
// navigation watching. A configuration fetch failure disables the
// pipeline for the page: no tracking occurs and the error is returned
// for the embedding layer's log only.
func (p *Pipeline) Start(ctx context.Context) error {
	remote, err := p.cfgClient.Fetch(ctx)
	if err != nil {
		p.logger.Errorf("configuration unavailable, pipeline disabled: %v", err)
		return err
	}
	p.remote = remote
	p.gate = security.NewGate(remote, p.logger)
	p.matcher = triggers.NewMatcher(remote.EventTriggers, p.logger)
	p.setSeenURL(p.page.URL())

	p.runCycle(ctx)
	p.poller.Start(ctx)
	return nil
}

// Stop halts navigation watching. In-flight deliveries are abandoned.
func (p *Pipeline) Stop() {
	p.poller.Stop()
}

// HandleNavigation is the back/forward navigation hook: the embedding
// layer calls it when the host URL changes outside the poller's view.
func (p *Pipeline) HandleNavigation(ctx context.Context, newURL string) {
	if p.remote == nil {
		return
	}
	p.page.SetURL(newURL)
	p.settleAndRun(ctx)
}

// HandleClick evaluates click triggers against the clicked element and
// fires every match. Fan-out is intentional: each matching trigger
// independently synthesizes a standardized event.
func (p *Pipeline) HandleClick(ctx context.Context, target *goquery.Selection) {
	if p.remote == nil || !p.remote.PlanFeatures.TriggersEnabled {
		return
	}
	for _, t := range p.matcher.MatchClick(target) {
		p.fireTrigger(ctx, t, "click")
	}
}

// pollNavigation compares the page URL against the last seen one and
// re-runs the cycle after the settle delay when it changed.
func (p *Pipeline) pollNavigation(ctx context.Context) {
	current := p.page.URL()
	seen := p.seenURL()
	if current == seen {
		return
	}
	p.logger.Debugf("navigation detected: %s -> %s", seen, current)
	p.setSeenURL(current)
	p.settleAndRun(ctx)
}

func (p *Pipeline) seenURL() string {
	p.urlMu.Lock()
	defer p.urlMu.Unlock()
	return p.lastSeenURL
}

func (p *Pipeline) setSeenURL(u string) {
	p.urlMu.Lock()
	defer p.urlMu.Unlock()
	p.lastSeenURL = u
}

func (p *Pipeline) settleAndRun(ctx context.Context) {
	if p.settleDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.settleDelay):
		}
	}
	p.runCycle(ctx)
}

// runCycle executes one full collection, fusion and emission pass.
func (p *Pipeline) runCycle(ctx context.Context) {
	start := time.Now()
	p.metrics.CollectionRuns.Inc()
	p.setSeenURL(p.page.URL())

	record, report := p.collectAndFuse()
	p.diag.recordRun(record, report)

	id := p.identity.Identity()
	if err := p.gate.CheckIdentity(id); err != nil {
		p.metrics.EventsRejected.WithLabelValues("blacklist").Inc()
		return
	}

	if p.remote.PlanFeatures.PixelsEnabled {
		loaded, failed := p.pixelEng.Evaluate(ctx, p.activePixels(), p.page.URL())
		p.metrics.PixelsLoaded.Add(float64(len(loaded)))
		p.metrics.PixelLoadErrors.Add(float64(failed))
	}

	p.emit(ctx, PageViewEvent, record, report, id, "", "")

	if p.remote.PlanFeatures.TriggersEnabled {
		for _, t := range p.matcher.MatchURL(p.page.URL()) {
			p.fireTrigger(ctx, t, "url")
		}
	}

	p.metrics.FusionDuration.Observe(time.Since(start).Seconds())
}

// collectAndFuse runs the three collectors and merges their records.
func (p *Pipeline) collectAndFuse() (*fusion.CanonicalRecord, fusion.QualityReport) {
	manual := p.mappings.Collect(p.page, p.remote.DataMappings)
	platformData := p.platform.Collect(p.page)
	fallbackData := p.fallback.Collect(p.page)

	record := p.fusion.Merge([]fusion.SourceRecord{
		fusion.NewSourceRecord(fusion.SourceManual, fusion.PriorityManual, manual.Data),
		fusion.NewSourceRecord(fusion.SourcePlatform, fusion.PriorityPlatform, platformData),
		fusion.NewSourceRecord(fusion.SourceFallback, fusion.PriorityFallback, fallbackData),
	})

	validation := p.validator.Validate(record, fusion.DefaultSchema())
	for _, w := range validation.Warnings {
		p.logger.Debugf("schema warning: %s", w)
	}

	report := p.validator.Score(record)
	if report.Score < fusion.WarnThreshold {
		p.logger.Warnf("data quality score %d below threshold: %v", report.Score, report.Issues)
	}
	return record, report
}

// fireTrigger synthesizes a standardized event for one matched trigger
// and advances its fire lifecycle.
func (p *Pipeline) fireTrigger(ctx context.Context, t triggers.Trigger, kind string) {
	meta := t.Meta()

	record, report := p.diag.lastRecord()
	if record == nil {
		record, report = p.collectAndFuse()
	}

	id := p.identity.Identity()
	if err := p.gate.CheckIdentity(id); err != nil {
		p.metrics.EventsRejected.WithLabelValues("blacklist").Inc()
		return
	}

	eventID := pixels.EventID(meta.PixelID, time.Now())
	if !p.emit(ctx, meta.EventName, record, report, id, meta.PixelID, eventID) {
		return
	}

	p.matcher.MarkFired(t)
	p.metrics.TriggerFires.WithLabelValues(kind).Inc()
	p.logger.Infof("trigger %s fired (%s), count=%d", meta.ID, meta.EventName, meta.FireCount)
}

// emit builds the immutable payload and sends it through the emission
// path: security gate, pixel forwarding, first-party delivery. Returns
// false when the gate suppressed the event; callers that track a fire
// lifecycle only advance it on true.
func (p *Pipeline) emit(ctx context.Context, eventName string, record *fusion.CanonicalRecord, report fusion.QualityReport, id identity.Identity, pixelID, eventID string) bool {
	if err := p.gate.CheckEvent(eventName); err != nil {
		p.metrics.EventsRejected.WithLabelValues("filter").Inc()
		return false
	}

	payload := p.buildPayload(eventName, record, report, id)

	if p.remote.PlanFeatures.PixelsEnabled {
		if pixelID != "" {
			p.pixelEng.EmitTo(ctx, pixelID, payload)
		} else {
			p.pixelEng.Emit(ctx, payload)
		}
	}

	p.metrics.EventsEmitted.WithLabelValues(eventName).Inc()

	// Fire and forget: delivery failures are logged by the client and
	// counted here; the event is lost, never retried.
	go func() {
		if err := p.collector.Deliver(context.Background(), payload, pixelID, eventID); err != nil {
			p.metrics.DeliveryFailures.Inc()
		}
	}()
	return true
}

// buildPayload assembles the standardized event payload.
func (p *Pipeline) buildPayload(eventName string, record *fusion.CanonicalRecord, report fusion.QualityReport, id identity.Identity) *event.Payload {
	props := event.Properties{
		Context: event.Context{
			URL:   p.page.URL(),
			Title: p.page.Title(),
		},
		User: event.User{
			UserID:    id.UserID,
			SessionID: id.SessionID,
		},
		Ecommerce:  ecommerceBlock(record),
		Provenance: record.Provenance,
	}

	if prepared, ready := p.converter.Prepare(eventName, record); ready {
		props.Conversion = prepared
	}

	return &event.Payload{
		EventName:  eventName,
		Properties: props,
		SessionID:  id.SessionID,
		Timestamp:  time.Now(),
		Quality: event.Quality{
			Score:  report.Score,
			Issues: report.Issues,
		},
	}
}

// activePixels applies the plan's pixel cap.
func (p *Pipeline) activePixels() []config.PixelConfig {
	pixelsCfg := p.remote.Pixels
	if max := p.remote.PlanFeatures.MaxPixels; max > 0 && len(pixelsCfg) > max {
		pixelsCfg = pixelsCfg[:max]
	}
	return pixelsCfg
}

// ecommerceBlock projects the canonical fields that may cross the pixel
// privacy boundary. Personal fields never appear here.
func ecommerceBlock(record *fusion.CanonicalRecord) map[string]interface{} {
	block := make(map[string]interface{})
	for _, field := range []string{
		platform.FieldProductID,
		platform.FieldProductName,
		platform.FieldProductCategory,
		platform.FieldProductPrice,
		platform.FieldCurrency,
		platform.FieldOrderID,
	} {
		if v := record.Field(field); v != nil {
			block[field] = v
		}
	}
	return block
}
