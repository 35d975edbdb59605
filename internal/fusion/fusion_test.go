// internal/fusion/fusion_test.go
package fusion

import (
	"reflect"
	"testing"

	"github.com/vantara/tagfusion/internal/utils"
)

func newTestEngine() *DataFusionEngine {
	return NewDataFusionEngine(utils.NewLoggerWithLevel(utils.ErrorLevel))
}

func TestMerge_HighestPriorityWins(t *testing.T) {
	sources := []SourceRecord{
		NewSourceRecord(SourceManual, PriorityManual, map[string]interface{}{
			"product_price": 10.0,
		}),
		NewSourceRecord(SourcePlatform, PriorityPlatform, map[string]interface{}{
			"product_price": 12.0,
			"currency":      "USD",
		}),
	}

	record := newTestEngine().Merge(sources)

	if record.Fields["product_price"] != 10.0 {
		t.Fatalf("expected manual mapping value 10, got %v", record.Fields["product_price"])
	}
	if record.Provenance["product_price"] != SourceManual {
		t.Fatalf("expected manual provenance, got %s", record.Provenance["product_price"])
	}
	if record.Fields["currency"] != "USD" {
		t.Fatalf("lower-priority exclusive field should survive, got %v", record.Fields["currency"])
	}
	if record.Provenance["currency"] != SourcePlatform {
		t.Fatalf("expected platform provenance for currency, got %s", record.Provenance["currency"])
	}
}

func TestMerge_InputOrderIrrelevantForDistinctPriorities(t *testing.T) {
	manual := NewSourceRecord(SourceManual, PriorityManual, map[string]interface{}{"f": "high"})
	fallback := NewSourceRecord(SourceFallback, PriorityFallback, map[string]interface{}{"f": "low"})

	a := newTestEngine().Merge([]SourceRecord{fallback, manual})
	b := newTestEngine().Merge([]SourceRecord{manual, fallback})

	if a.Fields["f"] != "high" || b.Fields["f"] != "high" {
		t.Fatalf("priority must decide regardless of input order: %v / %v", a.Fields["f"], b.Fields["f"])
	}
}

func TestMerge_NilNeverSuppresses(t *testing.T) {
	sources := []SourceRecord{
		NewSourceRecord(SourceManual, PriorityManual, map[string]interface{}{
			"email": nil,
		}),
		NewSourceRecord(SourcePlatform, PriorityPlatform, map[string]interface{}{
			"email": "buyer@shop.com",
		}),
	}

	record := newTestEngine().Merge(sources)

	if record.Fields["email"] != "buyer@shop.com" {
		t.Fatalf("explicit nil must not suppress a real value, got %v", record.Fields["email"])
	}
	if record.Provenance["email"] != SourcePlatform {
		t.Fatalf("provenance should name the supplying source, got %s", record.Provenance["email"])
	}
}

func TestMerge_TieKeepsFirstApplied(t *testing.T) {
	sources := []SourceRecord{
		NewSourceRecord("a", 50, map[string]interface{}{"f": "from-a"}),
		NewSourceRecord("b", 50, map[string]interface{}{"f": "from-b"}),
	}

	record := newTestEngine().Merge(sources)

	if record.Fields["f"] != "from-a" {
		t.Fatalf("equal priority should keep first-applied source, got %v", record.Fields["f"])
	}
}

func TestMerge_Deterministic(t *testing.T) {
	sources := []SourceRecord{
		NewSourceRecord(SourceManual, PriorityManual, map[string]interface{}{"a": 1.0, "b": "x"}),
		NewSourceRecord(SourcePlatform, PriorityPlatform, map[string]interface{}{"b": "y", "c": true}),
		NewSourceRecord(SourceFallback, PriorityFallback, map[string]interface{}{"a": 2.0, "d": "only"}),
	}

	first := newTestEngine().Merge(sources)
	for i := 0; i < 20; i++ {
		again := newTestEngine().Merge(sources)
		if !reflect.DeepEqual(first.Fields, again.Fields) {
			t.Fatalf("merge not deterministic: %v vs %v", first.Fields, again.Fields)
		}
		if !reflect.DeepEqual(first.Provenance, again.Provenance) {
			t.Fatalf("provenance not deterministic: %v vs %v", first.Provenance, again.Provenance)
		}
	}
}

func TestMerge_EmptySources(t *testing.T) {
	record := newTestEngine().Merge(nil)
	if len(record.Fields) != 0 || len(record.Provenance) != 0 {
		t.Fatalf("empty merge should yield empty record, got %+v", record)
	}
}

func TestSourceCount(t *testing.T) {
	record := newTestEngine().Merge([]SourceRecord{
		NewSourceRecord("a", 3, map[string]interface{}{"x": 1}),
		NewSourceRecord("b", 2, map[string]interface{}{"y": 2}),
		NewSourceRecord("c", 1, map[string]interface{}{"z": 3}),
	})
	if got := record.SourceCount(); got != 3 {
		t.Fatalf("expected 3 distinct sources, got %d", got)
	}
}
