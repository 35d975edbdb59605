// internal/extract/collector.go
package extract

import (
	"strings"
	"time"

	"github.com/andybalholm/cascadia"

	"github.com/vantara/tagfusion/internal/config"
	"github.com/vantara/tagfusion/internal/hostpage"
	"github.com/vantara/tagfusion/internal/utils"
)

// Diagnostic records a per-mapping failure or warning. Collection is
// total over the mapping list: a diagnostic never aborts the batch.
type Diagnostic struct {
	VariableName string          `json:"variable_name"`
	Selector     string          `json:"selector"`
	Code         utils.ErrorCode `json:"code"`
	Message      string          `json:"message"`
	Severity     string          `json:"severity"`
}

// CollectionStats aggregates the outcome of one collection pass.
type CollectionStats struct {
	Total       int     `json:"total"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	Skipped     int     `json:"skipped"`
	SuccessRate float64 `json:"success_rate"`
}

// CollectionResult is the output of applying every mapping to a page.
type CollectionResult struct {
	Data        map[string]interface{} `json:"data"`
	Diagnostics []Diagnostic           `json:"diagnostics,omitempty"`
	Stats       CollectionStats        `json:"stats"`
	CollectedAt time.Time              `json:"collected_at"`
}

// SelectorTestResult is the outcome of a single-selector dry run, used
// by operator tooling to verify a mapping before saving it.
type SelectorTestResult struct {
	Selector string `json:"selector"`
	Valid    bool   `json:"valid"`
	Matches  int    `json:"matches"`
	Sample   string `json:"sample,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ManualMappingCollector applies operator-declared selector mappings to
// a page, producing the highest-trust source record of the pipeline.
type ManualMappingCollector struct {
	extractor *FieldExtractor
	logger    utils.Logger
}

// NewManualMappingCollector creates a mapping collector.
func NewManualMappingCollector(logger utils.Logger) *ManualMappingCollector {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &ManualMappingCollector{
		extractor: NewFieldExtractor(logger),
		logger:    logger.WithField("component", "mappings"),
	}
}

// Collect resolves each mapping's selector to the first matching node
// and extracts its typed value. Mappings scoped to another page context
// are skipped. Failures are recorded as diagnostics; the batch always
// runs to completion.
func (c *ManualMappingCollector) Collect(page *hostpage.Page, mappings []config.DataMapping) *CollectionResult {
	result := &CollectionResult{
		Data:        make(map[string]interface{}),
		CollectedAt: time.Now(),
	}
	result.Stats.Total = len(mappings)

	pageURL := page.URL()
	for _, m := range mappings {
		if m.PageContext != "" && !strings.Contains(pageURL, m.PageContext) {
			result.Stats.Skipped++
			continue
		}

		if _, err := cascadia.Parse(m.Selector); err != nil {
			result.Stats.Failed++
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				VariableName: m.VariableName,
				Selector:     m.Selector,
				Code:         utils.ErrCodeSelectorInvalid,
				Message:      err.Error(),
				Severity:     utils.SeverityWarning.String(),
			})
			continue
		}

		sel := page.Find(m.Selector)
		if sel.Length() == 0 {
			result.Stats.Failed++
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				VariableName: m.VariableName,
				Selector:     m.Selector,
				Code:         utils.ErrCodeSelectorNotFound,
				Message:      "no matching element on page",
				Severity:     utils.SeverityWarning.String(),
			})
			continue
		}

		value := c.extractor.Extract(sel.First(), m.DataType, m.Attribute)
		if value == nil {
			result.Stats.Failed++
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				VariableName: m.VariableName,
				Selector:     m.Selector,
				Code:         utils.ErrCodeExtractionFailed,
				Message:      "extracted value empty or failed type coercion",
				Severity:     utils.SeverityWarning.String(),
			})
			continue
		}

		result.Data[m.VariableName] = value
		result.Stats.Succeeded++
	}

	attempted := result.Stats.Total - result.Stats.Skipped
	if attempted > 0 {
		result.Stats.SuccessRate = float64(result.Stats.Succeeded) / float64(attempted)
	}

	c.logger.Debugf("mapping collection: %d/%d succeeded, %d skipped",
		result.Stats.Succeeded, attempted, result.Stats.Skipped)
	return result
}

// TestSelector performs a dry run of a single selector against a page
// without recording anything, for configuration tooling.
func (c *ManualMappingCollector) TestSelector(page *hostpage.Page, selector string) SelectorTestResult {
	result := SelectorTestResult{Selector: selector}

	if strings.TrimSpace(selector) == "" {
		result.Error = "selector cannot be empty"
		return result
	}
	if _, err := cascadia.Parse(selector); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Valid = true

	sel := page.Find(selector)
	result.Matches = sel.Length()
	if result.Matches > 0 {
		sample := strings.TrimSpace(sel.First().Text())
		if len(sample) > 120 {
			sample = sample[:120]
		}
		result.Sample = sample
	}
	return result
}
