// internal/fusion/quality.go
package fusion

import (
	"fmt"

	"golang.org/x/text/currency"

	"github.com/vantara/tagfusion/internal/config"
	"github.com/vantara/tagfusion/internal/extract"
	"github.com/vantara/tagfusion/internal/platform"
)

// Scoring constants. A score below WarnThreshold is a warning-level
// signal only and never blocks emission.
const (
	ScoreMax      = 100
	WarnThreshold = 70

	missingEssentialPenalty = 20
	invalidEmailPenalty     = 15
	invalidCurrencyPenalty  = 10
	multiSourceBonus        = 5
	multiSourceMinimum      = 5
)

// FieldSpec declares the expected shape of one canonical field.
type FieldSpec struct {
	Required bool             `json:"required"`
	Type     config.FieldType `json:"type"`
}

// Schema maps canonical field names to their expected shape.
type Schema map[string]FieldSpec

// DefaultSchema covers the canonical ecommerce field set.
func DefaultSchema() Schema {
	return Schema{
		platform.FieldProductID:       {Type: config.FieldString},
		platform.FieldProductName:     {Required: true, Type: config.FieldString},
		platform.FieldProductCategory: {Type: config.FieldString},
		platform.FieldProductPrice:    {Type: config.FieldNumber},
		platform.FieldCurrency:        {Type: config.FieldString},
		platform.FieldOrderID:         {Type: config.FieldString},
		platform.FieldEmail:           {Type: config.FieldEmail},
		platform.FieldUserName:        {Type: config.FieldString},
	}
}

// ValidationResult lists conformance problems without mutating the record.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// QualityReport is the outcome of scoring a canonical record.
type QualityReport struct {
	Score  int      `json:"score"`
	Issues []string `json:"issues,omitempty"`
}

// QualityValidator checks schema conformance and scores completeness.
type QualityValidator struct{}

// NewQualityValidator creates a quality validator.
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{}
}

// Validate checks required-field presence and type conformance against
// the schema. The record is never mutated.
func (v *QualityValidator) Validate(record *CanonicalRecord, schema Schema) ValidationResult {
	result := ValidationResult{Valid: true}

	for name, spec := range schema {
		value, present := record.Fields[name]
		if !present {
			if spec.Required {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("required field %q is missing", name))
			}
			continue
		}
		if !conformsTo(value, spec.Type) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("field %q does not conform to type %s", name, spec.Type))
		}
	}

	return result
}

// Score rates completeness on a 0-100 scale. It penalizes absent
// ecommerce essentials and email values that fail re-validation, and
// rewards records fused from many distinct sources.
func (v *QualityValidator) Score(record *CanonicalRecord) QualityReport {
	report := QualityReport{Score: ScoreMax}

	essentials := []string{
		platform.FieldProductName,
		platform.FieldProductPrice,
		platform.FieldCurrency,
	}
	for _, name := range essentials {
		if _, present := record.Fields[name]; !present {
			report.Score -= missingEssentialPenalty
			report.Issues = append(report.Issues, fmt.Sprintf("missing %s", name))
		}
	}

	if email, ok := record.StringField(platform.FieldEmail); ok {
		if !extract.IsValidEmail(email) {
			report.Score -= invalidEmailPenalty
			report.Issues = append(report.Issues, "email failed re-validation")
		}
	}

	if code, ok := record.StringField(platform.FieldCurrency); ok {
		if _, err := currency.ParseISO(code); err != nil {
			report.Score -= invalidCurrencyPenalty
			report.Issues = append(report.Issues, fmt.Sprintf("unrecognized currency code %q", code))
		}
	}

	if record.SourceCount() > multiSourceMinimum {
		report.Score += multiSourceBonus
	}

	if report.Score < 0 {
		report.Score = 0
	}
	if report.Score > ScoreMax {
		report.Score = ScoreMax
	}
	return report
}

// conformsTo reports whether a fused value matches the declared type.
// Numbers arrive as float64 from JSON sources and from coercion.
func conformsTo(value interface{}, t config.FieldType) bool {
	switch t {
	case config.FieldNumber:
		switch value.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case config.FieldEmail:
		s, ok := value.(string)
		return ok && extract.IsValidEmail(s)
	default:
		_, ok := value.(string)
		return ok
	}
}
