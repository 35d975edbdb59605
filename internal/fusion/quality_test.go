// internal/fusion/quality_test.go
package fusion

import (
	"testing"

	"github.com/vantara/tagfusion/internal/platform"
)

func recordWith(fields map[string]interface{}) *CanonicalRecord {
	record := &CanonicalRecord{
		Fields:     fields,
		Provenance: make(map[string]string),
	}
	for k := range fields {
		record.Provenance[k] = SourceManual
	}
	return record
}

func TestScore_MissingPriceOnly(t *testing.T) {
	record := recordWith(map[string]interface{}{
		platform.FieldProductName: "Blue Widget",
		platform.FieldCurrency:    "USD",
	})

	report := NewQualityValidator().Score(record)
	if report.Score != 80 {
		t.Fatalf("expected score 80 for missing price, got %d (issues: %v)", report.Score, report.Issues)
	}
}

func TestScore_AlwaysInRange(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]interface{}
	}{
		{"empty record", map[string]interface{}{}},
		{"everything invalid", map[string]interface{}{
			platform.FieldEmail:    "not-an-email",
			platform.FieldCurrency: "??",
		}},
		{"complete record", map[string]interface{}{
			platform.FieldProductName:  "Widget",
			platform.FieldProductPrice: 10.0,
			platform.FieldCurrency:     "USD",
			platform.FieldEmail:        "a@b.com",
		}},
	}

	v := NewQualityValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := v.Score(recordWith(tt.fields))
			if report.Score < 0 || report.Score > ScoreMax {
				t.Fatalf("score out of range: %d", report.Score)
			}
		})
	}
}

func TestScore_InvalidEmailPenalty(t *testing.T) {
	complete := recordWith(map[string]interface{}{
		platform.FieldProductName:  "Widget",
		platform.FieldProductPrice: 10.0,
		platform.FieldCurrency:     "USD",
	})
	withBadEmail := recordWith(map[string]interface{}{
		platform.FieldProductName:  "Widget",
		platform.FieldProductPrice: 10.0,
		platform.FieldCurrency:     "USD",
		platform.FieldEmail:        "broken@",
	})

	v := NewQualityValidator()
	base := v.Score(complete).Score
	penalized := v.Score(withBadEmail).Score
	if penalized != base-15 {
		t.Fatalf("expected 15-point email penalty, base=%d got=%d", base, penalized)
	}
}

func TestScore_MultiSourceBonus(t *testing.T) {
	record := &CanonicalRecord{
		Fields: map[string]interface{}{
			platform.FieldProductName:  "Widget",
			platform.FieldProductPrice: 10.0,
			platform.FieldCurrency:     "USD",
			platform.FieldProductID:    "sku",
			platform.FieldOrderID:      "o-1",
			platform.FieldUserName:     "pat",
		},
		Provenance: map[string]string{
			platform.FieldProductName:  "src-1",
			platform.FieldProductPrice: "src-2",
			platform.FieldCurrency:     "src-3",
			platform.FieldProductID:    "src-4",
			platform.FieldOrderID:      "src-5",
			platform.FieldUserName:     "src-6",
		},
	}

	report := NewQualityValidator().Score(record)
	if report.Score != ScoreMax {
		t.Fatalf("expected bonus clamped at %d, got %d", ScoreMax, report.Score)
	}

	// Dropping one essential shows the bonus is actually applied.
	delete(record.Fields, platform.FieldProductPrice)
	report = NewQualityValidator().Score(record)
	if report.Score != ScoreMax-missingEssentialPenalty+multiSourceBonus {
		t.Fatalf("expected penalty offset by bonus, got %d", report.Score)
	}
}

func TestValidate_RequiredAndTypes(t *testing.T) {
	v := NewQualityValidator()
	schema := DefaultSchema()

	missing := recordWith(map[string]interface{}{})
	result := v.Validate(missing, schema)
	if result.Valid {
		t.Fatal("record without required product_name should be invalid")
	}

	wrongType := recordWith(map[string]interface{}{
		platform.FieldProductName:  "Widget",
		platform.FieldProductPrice: "not-a-number",
	})
	result = v.Validate(wrongType, schema)
	if !result.Valid {
		t.Fatalf("type mismatch is a warning, not an error: %+v", result)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a type-conformance warning")
	}
}
