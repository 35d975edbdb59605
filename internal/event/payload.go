// Package event defines the standardized event payload emitted to the
// first-party collector and forwarded (in reduced form) to pixel
// runtimes. A payload is immutable once built: one instance per fired
// event.
package event

import (
	"time"

	"github.com/vantara/tagfusion/internal/conversion"
)

// Context describes where the event happened.
type Context struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

// User carries the pseudonymous identity attached to the event.
type User struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Quality annotates the payload with the fused record's score.
type Quality struct {
	Score  int      `json:"score"`
	Issues []string `json:"issues,omitempty"`
}

// Properties groups the payload's sub-objects. Ecommerce is the only
// block forwarded to pixel runtimes; everything else stays first-party.
type Properties struct {
	Context    Context                `json:"context"`
	User       User                   `json:"user"`
	Conversion *conversion.Payload    `json:"conversion,omitempty"`
	Ecommerce  map[string]interface{} `json:"ecommerce,omitempty"`
	Custom     map[string]interface{} `json:"custom,omitempty"`
	Provenance map[string]string      `json:"provenance,omitempty"`
}

// Payload is one standardized event.
type Payload struct {
	EventName  string     `json:"event_name"`
	Properties Properties `json:"properties"`
	SessionID  string     `json:"session_id"`
	Timestamp  time.Time  `json:"timestamp"`
	Quality    Quality    `json:"quality"`
}
