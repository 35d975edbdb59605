// internal/triggers/matcher_test.go
package triggers

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/vantara/tagfusion/internal/config"
	"github.com/vantara/tagfusion/internal/utils"
)

func testLogger() utils.Logger {
	return utils.NewLoggerWithLevel(utils.ErrorLevel)
}

func urlWire(id, pattern, matchType string, priority int) config.EventTriggerWire {
	return config.EventTriggerWire{
		ID:           id,
		PixelID:      "px-1",
		WebsiteID:    "site-1",
		EventName:    "add_to_cart",
		TriggerType:  "url_match",
		URLPattern:   pattern,
		URLMatchType: matchType,
		Enabled:      true,
		Priority:     priority,
	}
}

func clickWire(id, selector, text string) config.EventTriggerWire {
	return config.EventTriggerWire{
		ID:          id,
		PixelID:     "px-1",
		WebsiteID:   "site-1",
		EventName:   "begin_checkout",
		TriggerType: "click_element",
		Selector:    selector,
		ElementText: text,
		Enabled:     true,
	}
}

func TestMatchURL_FanOutOrdered(t *testing.T) {
	m := NewMatcher([]config.EventTriggerWire{
		urlWire("t-low", "/cart", "contains", 5),
		urlWire("t-high", "/cart/view", "contains", 10),
		urlWire("t-miss", "/checkout", "contains", 99),
	}, testLogger())

	matched := m.MatchURL("https://shop.example.com/cart/view")
	if len(matched) != 2 {
		t.Fatalf("expected both matching triggers to fire, got %d", len(matched))
	}
	if matched[0].Meta().ID != "t-high" || matched[1].Meta().ID != "t-low" {
		t.Fatalf("expected priority-descending order, got %s then %s",
			matched[0].Meta().ID, matched[1].Meta().ID)
	}
}

func TestMatchURL_TieBreaksByCreationOrder(t *testing.T) {
	m := NewMatcher([]config.EventTriggerWire{
		urlWire("t-first", "/cart", "contains", 7),
		urlWire("t-second", "/cart/", "contains", 7),
	}, testLogger())

	matched := m.MatchURL("https://shop.example.com/cart/")
	if len(matched) != 2 || matched[0].Meta().ID != "t-first" {
		t.Fatalf("equal priority should keep creation order, got %v", ids(matched))
	}
}

func TestMatchURL_MatchTypes(t *testing.T) {
	tests := []struct {
		name      string
		pattern   string
		matchType string
		url       string
		want      bool
	}{
		{"equals hit", "https://x/cart", "equals", "https://x/cart", true},
		{"equals miss", "https://x/cart", "equals", "https://x/cart/", false},
		{"starts_with", "https://x/", "starts_with", "https://x/cart", true},
		{"ends_with", "/thanks", "ends_with", "https://x/order/thanks", true},
		{"regex hit", `/order/\d+`, "regex", "https://x/order/42", true},
		{"regex miss", `/order/\d+`, "regex", "https://x/order/abc", false},
		{"broken regex is non-match", `/order/(`, "regex", "https://x/order/42", false},
		{"default contains", "order", "", "https://x/order/42", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher([]config.EventTriggerWire{
				urlWire("t-1", tt.pattern, tt.matchType, 1),
			}, testLogger())
			got := len(m.MatchURL(tt.url)) > 0
			if got != tt.want {
				t.Fatalf("match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchClick(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><button class="buy-now" id="buy">Buy now</button></body></html>`))
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	target := doc.Find("#buy")

	m := NewMatcher([]config.EventTriggerWire{
		clickWire("t-selector", ".buy-now", ""),
		clickWire("t-text", "button", "Buy now"),
		clickWire("t-wrong-text", ".buy-now2", "Subscribe"),
	}, testLogger())

	matched := m.MatchClick(target)
	if len(matched) != 2 {
		t.Fatalf("expected selector and text triggers to match, got %v", ids(matched))
	}

	if got := m.MatchClick(nil); got != nil {
		t.Fatalf("nil target must match nothing, got %v", ids(got))
	}
}

func TestMarkFired(t *testing.T) {
	m := NewMatcher([]config.EventTriggerWire{
		urlWire("t-1", "/cart", "contains", 1),
	}, testLogger())

	trigger := m.MatchURL("https://x/cart")[0]
	if trigger.Meta().FireCount != 0 || trigger.Meta().LastFired != nil {
		t.Fatalf("fresh trigger should have zero lifecycle state: %+v", trigger.Meta())
	}

	m.MarkFired(trigger)
	m.MarkFired(trigger)
	if trigger.Meta().FireCount != 2 {
		t.Fatalf("expected fire count 2, got %d", trigger.Meta().FireCount)
	}
	if trigger.Meta().LastFired == nil {
		t.Fatal("lastFired should be set after firing")
	}
}

func TestSetEnabled_SuspendsWithoutReset(t *testing.T) {
	m := NewMatcher([]config.EventTriggerWire{
		urlWire("t-1", "/cart", "contains", 1),
	}, testLogger())

	trigger := m.MatchURL("https://x/cart")[0]
	m.MarkFired(trigger)

	m.SetEnabled([]string{"t-1"}, false)
	if got := m.MatchURL("https://x/cart"); len(got) != 0 {
		t.Fatal("disabled trigger must not match")
	}

	m.SetEnabled([]string{"t-1"}, true)
	matched := m.MatchURL("https://x/cart")
	if len(matched) != 1 {
		t.Fatal("re-enabled trigger should match again")
	}
	if matched[0].Meta().FireCount != 1 {
		t.Fatalf("disable must not reset counters, got %d", matched[0].Meta().FireCount)
	}
}

func TestNewMatcher_DropsInvalidAndDuplicates(t *testing.T) {
	noEvent := urlWire("t-no-event", "/cart", "contains", 1)
	noEvent.EventName = ""
	noPattern := urlWire("t-no-pattern", "", "contains", 1)
	badMatch := urlWire("t-bad-match", "/cart", "fuzzy", 1)
	unknownKind := urlWire("t-unknown", "/cart", "contains", 1)
	unknownKind.TriggerType = "scroll_depth"

	m := NewMatcher([]config.EventTriggerWire{
		noEvent,
		noPattern,
		badMatch,
		unknownKind,
		urlWire("t-ok", "/cart", "contains", 1),
		urlWire("t-dup", "/cart", "contains", 2), // same pixel, site, kind, pattern
	}, testLogger())

	triggers := m.Triggers()
	if len(triggers) != 1 || triggers[0].Meta().ID != "t-ok" {
		t.Fatalf("expected only the valid unique trigger to survive, got %v", ids(triggers))
	}
}

func TestNewMatcher_DisabledDuplicateAllowed(t *testing.T) {
	dup := urlWire("t-disabled", "/cart", "contains", 1)
	dup.Enabled = false

	m := NewMatcher([]config.EventTriggerWire{
		urlWire("t-active", "/cart", "contains", 1),
		dup,
	}, testLogger())

	if len(m.Triggers()) != 2 {
		t.Fatalf("uniqueness applies to active triggers only, got %v", ids(m.Triggers()))
	}
}

func ids(triggers []Trigger) []string {
	out := make([]string, len(triggers))
	for i, t := range triggers {
		out[i] = t.Meta().ID
	}
	return out
}
