// Package hostpage provides the host page abstraction the tag runtime
// operates on: a parsed document, the current URL and the host-declared
// data layer. The runtime never reads ambient global state; a Page is
// constructed by the embedding layer and injected into the pipeline.
package hostpage

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// DataLayerSelector locates the host-declared data layer embedded in the
// page as a JSON script block.
const DataLayerSelector = `script#tf-data-layer`

// Page is a snapshot of the host page at a point in time.
type Page struct {
	doc       *goquery.Document
	dataLayer map[string]interface{}

	mu  sync.RWMutex
	url string
}

// FromHTML parses raw HTML into a Page. The data layer, if present as a
// JSON script block, is decoded eagerly; a malformed block is ignored.
func FromHTML(html, pageURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	p := &Page{
		doc: doc,
		url: pageURL,
	}

	if raw := doc.Find(DataLayerSelector).First().Text(); raw != "" {
		var layer map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &layer); err == nil {
			p.dataLayer = layer
		}
	}

	return p, nil
}

// Document returns the parsed document.
func (p *Page) Document() *goquery.Document {
	return p.doc
}

// URL returns the current page URL. SPA navigation updates it without
// replacing the Page.
func (p *Page) URL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.url
}

// SetURL records a navigation to a new URL.
func (p *Page) SetURL(u string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = u
}

// Title returns the document title, trimmed.
func (p *Page) Title() string {
	return strings.TrimSpace(p.doc.Find("title").First().Text())
}

// Find returns the selection matching a CSS selector. Invalid selectors
// yield an empty selection, matching goquery semantics.
func (p *Page) Find(selector string) *goquery.Selection {
	return p.doc.Find(selector)
}

// DataLayer returns the host-declared data object, or nil when the page
// carries none.
func (p *Page) DataLayer() map[string]interface{} {
	return p.dataLayer
}

// SetDataLayer overrides the data layer, used by loaders that obtain it
// from the live page rather than an embedded script block.
func (p *Page) SetDataLayer(layer map[string]interface{}) {
	p.dataLayer = layer
}
