// internal/platform/fallback.go
package platform

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vantara/tagfusion/internal/hostpage"
)

// priceNodeSelector guesses at a price-bearing element when no mapping
// or platform data exists. Best effort only.
const priceNodeSelector = `[class*="price"], [id*="price"], [itemprop="price"], .amount`

var priceValuePattern = regexp.MustCompile(`\d[\d,]*\.?\d*`)

// FallbackHeuristicExtractor is the lowest-trust source: it runs as a
// baseline on every page and never fails the pipeline.
type FallbackHeuristicExtractor struct{}

// NewFallbackHeuristicExtractor creates a fallback extractor.
func NewFallbackHeuristicExtractor() *FallbackHeuristicExtractor {
	return &FallbackHeuristicExtractor{}
}

// Collect produces generic best-effort fields: the page title as product
// name and the first price-looking node as product price.
func (f *FallbackHeuristicExtractor) Collect(page *hostpage.Page) map[string]interface{} {
	out := make(map[string]interface{})

	if title := page.Title(); title != "" {
		out[FieldProductName] = title
	}

	if price, ok := guessPrice(page); ok {
		out[FieldProductPrice] = price
	}

	return out
}

// guessPrice scans candidate nodes for the first parseable money value.
func guessPrice(page *hostpage.Page) (float64, bool) {
	var price float64
	found := false

	page.Find(priceNodeSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		match := priceValuePattern.FindString(text)
		if match == "" {
			return true
		}
		cleaned := strings.ReplaceAll(match, ",", "")
		v, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return true
		}
		price = v
		found = true
		return false
	})

	return price, found
}
