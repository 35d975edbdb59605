// internal/config/types.go
package config

import (
	"fmt"
	"strings"
)

// FieldType declares how an extracted value is coerced.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldEmail  FieldType = "email"
)

// Valid reports whether the field type is one of the declared enum values.
func (t FieldType) Valid() bool {
	switch t {
	case FieldString, FieldNumber, FieldEmail:
		return true
	}
	return false
}

// DataMapping is an operator-declared selector-to-field mapping. Mappings
// are created in the configuration dashboard and consumed read-only here.
type DataMapping struct {
	ID           string    `json:"id"`
	WebsiteID    string    `json:"websiteId"`
	VariableName string    `json:"variableName"`
	Selector     string    `json:"selector"`
	PageContext  string    `json:"pageContext,omitempty"`
	DataType     FieldType `json:"dataType"`
	Attribute    string    `json:"attribute,omitempty"`
}

// ActivationRule is a pixel-level load condition. A pixel activates when
// any rule matches, or unconditionally when it declares no rules.
type ActivationRule struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// RuleURLContains is the only activation rule type currently defined.
const RuleURLContains = "url_contains"

// PixelConfig describes a third-party conversion pixel.
type PixelConfig struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Platform        string           `json:"platform,omitempty"`
	ScriptURL       string           `json:"scriptUrl,omitempty"`
	ActivationRules []ActivationRule `json:"activationRules,omitempty"`
}

// EventFilter suppresses events by name before emission.
type EventFilter struct {
	EventName string `json:"eventName"`
	Action    string `json:"action"` // "allow" or "deny"
}

// PlanFeatures gates optional runtime capabilities per subscription plan.
type PlanFeatures struct {
	TriggersEnabled bool `json:"triggersEnabled"`
	PixelsEnabled   bool `json:"pixelsEnabled"`
	MaxPixels       int  `json:"maxPixels,omitempty"`
}

// EventTriggerWire is the wire form of an operator-declared trigger as
// delivered by the configuration service. The runtime converts it into a
// tagged union (see internal/triggers) so that invalid field combinations
// are unrepresentable past the decode boundary.
type EventTriggerWire struct {
	ID           string `json:"id"`
	PixelID      string `json:"pixelId"`
	WebsiteID    string `json:"websiteId"`
	EventName    string `json:"eventName"`
	TriggerType  string `json:"triggerType"` // "url_match" or "click_element"
	URLPattern   string `json:"urlPattern,omitempty"`
	URLMatchType string `json:"urlMatchType,omitempty"`
	Selector     string `json:"selector,omitempty"`
	ElementText  string `json:"elementText,omitempty"`
	Enabled      bool   `json:"enabled"`
	Priority     int    `json:"priority"`
	FireCount    int    `json:"fireCount"`
	CreatedBy    string `json:"createdBy,omitempty"`
}

// RemoteConfig is the full configuration payload fetched once per page
// load and cached for the page lifetime.
type RemoteConfig struct {
	WebsiteID     string             `json:"websiteId"`
	DataMappings  []DataMapping      `json:"dataMappings"`
	Pixels        []PixelConfig      `json:"pixels"`
	EventFilters  []EventFilter      `json:"eventFilters"`
	Blacklist     []string           `json:"blacklist"`
	PlanFeatures  PlanFeatures       `json:"planFeatures"`
	EventTriggers []EventTriggerWire `json:"eventTriggers"`
}

// Validate checks the remote payload for entries the runtime cannot use.
func (rc *RemoteConfig) Validate() error {
	if rc.WebsiteID == "" {
		return fmt.Errorf("remote config missing websiteId")
	}
	for i, m := range rc.DataMappings {
		if strings.TrimSpace(m.VariableName) == "" {
			return fmt.Errorf("data mapping %d: variable name cannot be empty", i)
		}
		if strings.TrimSpace(m.Selector) == "" {
			return fmt.Errorf("data mapping %q: selector cannot be empty", m.VariableName)
		}
		if !m.DataType.Valid() {
			return fmt.Errorf("data mapping %q: invalid data type %q", m.VariableName, m.DataType)
		}
	}
	for i, p := range rc.Pixels {
		if p.ID == "" {
			return fmt.Errorf("pixel %d: id cannot be empty", i)
		}
	}
	return nil
}
