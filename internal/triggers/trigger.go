// Package triggers evaluates operator-declared event triggers against
// navigation and click context. Triggers arrive from the configuration
// service in a loose wire form and are decoded into a tagged union
// (URLTrigger | ClickTrigger) so invalid field combinations cannot be
// represented past the decode boundary.
package triggers

import (
	"fmt"
	"strings"
	"time"

	"github.com/vantara/tagfusion/internal/config"
)

// MatchType declares how a URL trigger compares the current URL against
// its pattern.
type MatchType string

const (
	MatchContains   MatchType = "contains"
	MatchEquals     MatchType = "equals"
	MatchStartsWith MatchType = "starts_with"
	MatchEndsWith   MatchType = "ends_with"
	MatchRegex      MatchType = "regex"
)

// Valid reports whether the match type is a declared enum value.
func (t MatchType) Valid() bool {
	switch t {
	case MatchContains, MatchEquals, MatchStartsWith, MatchEndsWith, MatchRegex:
		return true
	}
	return false
}

// Meta carries the fields common to both trigger kinds. FireCount and
// LastFired are mutated only by the matcher at fire time; the runtime
// never deletes a trigger.
type Meta struct {
	ID        string
	PixelID   string
	WebsiteID string
	EventName string
	Enabled   bool
	Priority  int
	FireCount int
	LastFired *time.Time
	CreatedBy string

	// creation order within the config payload, used as the fan-out
	// tie-break after priority.
	creationIndex int
}

// Trigger is the tagged union of the two trigger kinds.
type Trigger interface {
	Meta() *Meta
	kind() string
}

// URLTrigger fires when the current URL matches its pattern.
type URLTrigger struct {
	meta    Meta
	Pattern string
	Match   MatchType
}

func (t *URLTrigger) Meta() *Meta  { return &t.meta }
func (t *URLTrigger) kind() string { return "url_match" }

// ClickTrigger fires when a click lands on an element matching its
// selector (and, when declared, its expected text).
type ClickTrigger struct {
	meta        Meta
	Selector    string
	ElementText string
}

func (t *ClickTrigger) Meta() *Meta  { return &t.meta }
func (t *ClickTrigger) kind() string { return "click_element" }

// FromWire decodes a wire trigger into the tagged union. Exactly one of
// the field groups {urlPattern, urlMatchType} or {selector} must be
// populated, determined by triggerType; the unused group is discarded.
func FromWire(w config.EventTriggerWire, creationIndex int) (Trigger, error) {
	meta := Meta{
		ID:            w.ID,
		PixelID:       w.PixelID,
		WebsiteID:     w.WebsiteID,
		EventName:     w.EventName,
		Enabled:       w.Enabled,
		Priority:      w.Priority,
		FireCount:     w.FireCount,
		CreatedBy:     w.CreatedBy,
		creationIndex: creationIndex,
	}
	if meta.EventName == "" {
		return nil, fmt.Errorf("trigger %s: event name cannot be empty", w.ID)
	}

	switch w.TriggerType {
	case "url_match":
		if strings.TrimSpace(w.URLPattern) == "" {
			return nil, fmt.Errorf("trigger %s: url_match requires a URL pattern", w.ID)
		}
		match := MatchType(w.URLMatchType)
		if match == "" {
			match = MatchContains
		}
		if !match.Valid() {
			return nil, fmt.Errorf("trigger %s: invalid URL match type %q", w.ID, w.URLMatchType)
		}
		return &URLTrigger{meta: meta, Pattern: w.URLPattern, Match: match}, nil

	case "click_element":
		if strings.TrimSpace(w.Selector) == "" {
			return nil, fmt.Errorf("trigger %s: click_element requires a selector", w.ID)
		}
		return &ClickTrigger{meta: meta, Selector: w.Selector, ElementText: w.ElementText}, nil

	default:
		return nil, fmt.Errorf("trigger %s: unknown trigger type %q", w.ID, w.TriggerType)
	}
}

// uniquenessKey identifies a trigger for the active-row uniqueness
// constraint: per (pixel, website, kind, pattern-or-selector).
func uniquenessKey(t Trigger) string {
	m := t.Meta()
	switch v := t.(type) {
	case *URLTrigger:
		return strings.Join([]string{m.PixelID, m.WebsiteID, v.kind(), v.Pattern}, "|")
	case *ClickTrigger:
		return strings.Join([]string{m.PixelID, m.WebsiteID, v.kind(), v.Selector}, "|")
	default:
		return m.ID
	}
}
