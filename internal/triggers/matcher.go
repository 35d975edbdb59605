// internal/triggers/matcher.go
package triggers

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vantara/tagfusion/internal/config"
	"github.com/vantara/tagfusion/internal/utils"
)

// Matcher owns the decoded trigger set for a page and evaluates it
// against navigation and click context. Matching is a fan-out: every
// enabled trigger that matches a context fires, ordered by priority
// descending then creation order ascending.
type Matcher struct {
	logger utils.Logger

	mu       sync.Mutex
	triggers []Trigger
}

// NewMatcher decodes the wire triggers and builds a matcher. Triggers
// that fail decoding or violate the active-row uniqueness constraint
// are dropped with a warning; the rest of the set still loads.
func NewMatcher(wire []config.EventTriggerWire, logger utils.Logger) *Matcher {
	if logger == nil {
		logger = utils.NewLogger()
	}
	m := &Matcher{logger: logger.WithField("component", "triggers")}

	seen := make(map[string]struct{})
	for i, w := range wire {
		trigger, err := FromWire(w, i)
		if err != nil {
			m.logger.Warnf("dropping trigger: %v", err)
			continue
		}
		if trigger.Meta().Enabled {
			key := uniquenessKey(trigger)
			if _, dup := seen[key]; dup {
				m.logger.Warnf("dropping trigger %s: duplicate active trigger for %s", w.ID, key)
				continue
			}
			seen[key] = struct{}{}
		}
		m.triggers = append(m.triggers, trigger)
	}

	return m
}

// MatchURL returns every enabled URL trigger matching the current URL,
// in firing order. All matches fire; this is intentional fan-out, not
// first-match-wins.
func (m *Matcher) MatchURL(pageURL string) []Trigger {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []Trigger
	for _, t := range m.triggers {
		urlTrigger, ok := t.(*URLTrigger)
		if !ok || !t.Meta().Enabled {
			continue
		}
		if urlMatches(pageURL, urlTrigger.Pattern, urlTrigger.Match) {
			matched = append(matched, t)
		}
	}
	orderMatches(matched)
	return matched
}

// MatchClick returns every enabled click trigger matching the clicked
// element, in firing order.
func (m *Matcher) MatchClick(target *goquery.Selection) []Trigger {
	if target == nil || target.Length() == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []Trigger
	for _, t := range m.triggers {
		clickTrigger, ok := t.(*ClickTrigger)
		if !ok || !t.Meta().Enabled {
			continue
		}
		if !selectionMatches(target, clickTrigger.Selector) {
			continue
		}
		if clickTrigger.ElementText != "" {
			text := strings.TrimSpace(target.Text())
			if !strings.Contains(text, clickTrigger.ElementText) {
				continue
			}
		}
		matched = append(matched, t)
	}
	orderMatches(matched)
	return matched
}

// MarkFired advances the trigger's fire lifecycle: fireCount and
// lastFired update monotonically on each successful fire.
func (m *Matcher) MarkFired(t Trigger) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta := t.Meta()
	meta.FireCount++
	now := time.Now()
	meta.LastFired = &now
}

// SetEnabled toggles triggers in bulk. Disabling suspends matching
// without resetting counters.
func (m *Matcher) SetEnabled(ids []string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for _, t := range m.triggers {
		if _, ok := want[t.Meta().ID]; ok {
			t.Meta().Enabled = enabled
		}
	}
}

// Triggers returns the decoded trigger set, for diagnostics.
func (m *Matcher) Triggers() []Trigger {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Trigger, len(m.triggers))
	copy(out, m.triggers)
	return out
}

// orderMatches sorts by priority descending, then creation order
// ascending.
func orderMatches(matched []Trigger) {
	sort.SliceStable(matched, func(i, j int) bool {
		pi, pj := matched[i].Meta().Priority, matched[j].Meta().Priority
		if pi != pj {
			return pi > pj
		}
		return matched[i].Meta().creationIndex < matched[j].Meta().creationIndex
	})
}

// urlMatches applies the declared match type. A regex that fails to
// compile is a non-match, never a panic.
func urlMatches(pageURL, pattern string, match MatchType) bool {
	switch match {
	case MatchContains:
		return strings.Contains(pageURL, pattern)
	case MatchEquals:
		return pageURL == pattern
	case MatchStartsWith:
		return strings.HasPrefix(pageURL, pattern)
	case MatchEndsWith:
		return strings.HasSuffix(pageURL, pattern)
	case MatchRegex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(pageURL)
	default:
		return false
	}
}

// selectionMatches guards goquery's Is against selector syntax panics
// from hand-entered selectors.
func selectionMatches(sel *goquery.Selection, selector string) (matched bool) {
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()
	return sel.Is(selector)
}
