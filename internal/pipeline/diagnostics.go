// internal/pipeline/diagnostics.go
package pipeline

import (
	"sync"
	"time"

	"github.com/vantara/tagfusion/internal/fusion"
)

// Diagnostics is a point-in-time snapshot of the orchestrator's state,
// returned on request instead of being attached to any global object.
// The embedding layer decides whether to expose it.
type Diagnostics struct {
	ConfigLoaded bool                   `json:"config_loaded"`
	WebsiteID    string                 `json:"website_id,omitempty"`
	CurrentURL   string                 `json:"current_url"`
	LastRunAt    time.Time              `json:"last_run_at,omitempty"`
	RunCount     int                    `json:"run_count"`
	LastScore    int                    `json:"last_score"`
	LastIssues   []string               `json:"last_issues,omitempty"`
	FusedFields  map[string]interface{} `json:"fused_fields,omitempty"`
	Provenance   map[string]string      `json:"provenance,omitempty"`
	LoadedPixels []string               `json:"loaded_pixels"`
	TriggerCount int                    `json:"trigger_count"`
	PollerActive bool                   `json:"poller_active"`
}

// diagState accumulates per-page run state behind a lock; the poller
// goroutine and the embedding layer both touch it.
type diagState struct {
	mu       sync.Mutex
	runCount int
	lastRun  time.Time
	record   *fusion.CanonicalRecord
	report   fusion.QualityReport
}

func (d *diagState) recordRun(record *fusion.CanonicalRecord, report fusion.QualityReport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.runCount++
	d.lastRun = time.Now()
	d.record = record
	d.report = report
}

// lastRecord returns the most recent fused record, if any. Trigger fires
// between collection cycles reuse it rather than re-scraping the page.
func (d *diagState) lastRecord() (*fusion.CanonicalRecord, fusion.QualityReport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record, d.report
}

// Diagnostics returns the current snapshot.
func (p *Pipeline) Diagnostics() Diagnostics {
	p.diag.mu.Lock()
	defer p.diag.mu.Unlock()

	diag := Diagnostics{
		ConfigLoaded: p.remote != nil,
		CurrentURL:   p.page.URL(),
		LastRunAt:    p.diag.lastRun,
		RunCount:     p.diag.runCount,
		LoadedPixels: p.pixelEng.LoadedPixels(),
		PollerActive: p.poller.Running(),
	}
	if p.remote != nil {
		diag.WebsiteID = p.remote.WebsiteID
		diag.TriggerCount = len(p.matcher.Triggers())
	}
	if p.diag.record != nil {
		diag.LastScore = p.diag.report.Score
		diag.LastIssues = p.diag.report.Issues
		diag.FusedFields = p.diag.record.Fields
		diag.Provenance = p.diag.record.Provenance
	}
	return diag
}
