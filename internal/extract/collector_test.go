// internal/extract/collector_test.go
package extract

import (
	"testing"

	"github.com/vantara/tagfusion/internal/config"
	"github.com/vantara/tagfusion/internal/utils"
)

const productHTML = `<html>
<head><title>Widget Shop</title></head>
<body>
	<h1 class="product-title">Blue Widget</h1>
	<span class="price">$49.90</span>
	<input id="customer-email" value="buyer@shop.com">
</body>
</html>`

func newTestCollector() *ManualMappingCollector {
	return NewManualMappingCollector(utils.NewLoggerWithLevel(utils.ErrorLevel))
}

func TestManualMappingCollector_Collect(t *testing.T) {
	page := mustPage(t, productHTML)
	mappings := []config.DataMapping{
		{VariableName: "product_name", Selector: ".product-title", DataType: config.FieldString},
		{VariableName: "product_price", Selector: ".price", DataType: config.FieldNumber},
		{VariableName: "email", Selector: "#customer-email", DataType: config.FieldEmail},
	}

	result := newTestCollector().Collect(page, mappings)

	if result.Stats.Succeeded != 3 {
		t.Fatalf("expected 3 successes, got %d (diagnostics: %v)", result.Stats.Succeeded, result.Diagnostics)
	}
	if result.Data["product_name"] != "Blue Widget" {
		t.Fatalf("unexpected product_name: %v", result.Data["product_name"])
	}
	if result.Data["product_price"] != 49.90 {
		t.Fatalf("unexpected product_price: %v", result.Data["product_price"])
	}
	if result.Data["email"] != "buyer@shop.com" {
		t.Fatalf("unexpected email: %v", result.Data["email"])
	}
	if result.Stats.SuccessRate != 1.0 {
		t.Fatalf("expected success rate 1.0, got %f", result.Stats.SuccessRate)
	}
}

func TestManualMappingCollector_TotalOverFailures(t *testing.T) {
	page := mustPage(t, productHTML)
	mappings := []config.DataMapping{
		{VariableName: "bad_selector", Selector: "div[", DataType: config.FieldString},
		{VariableName: "missing", Selector: ".does-not-exist", DataType: config.FieldString},
		{VariableName: "product_name", Selector: ".product-title", DataType: config.FieldString},
	}

	result := newTestCollector().Collect(page, mappings)

	if result.Stats.Succeeded != 1 || result.Stats.Failed != 2 {
		t.Fatalf("expected 1 success and 2 failures, got %+v", result.Stats)
	}
	if len(result.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(result.Diagnostics))
	}

	codes := map[utils.ErrorCode]bool{}
	for _, d := range result.Diagnostics {
		codes[d.Code] = true
	}
	if !codes[utils.ErrCodeSelectorInvalid] || !codes[utils.ErrCodeSelectorNotFound] {
		t.Fatalf("expected selector-invalid and selector-not-found diagnostics, got %v", result.Diagnostics)
	}
}

func TestManualMappingCollector_PageContextSkip(t *testing.T) {
	page := mustPage(t, productHTML) // URL is /product/1
	mappings := []config.DataMapping{
		{VariableName: "order_id", Selector: ".order", PageContext: "/checkout", DataType: config.FieldString},
		{VariableName: "product_name", Selector: ".product-title", PageContext: "/product", DataType: config.FieldString},
	}

	result := newTestCollector().Collect(page, mappings)

	if result.Stats.Skipped != 1 {
		t.Fatalf("expected 1 skipped, got %d", result.Stats.Skipped)
	}
	if _, ok := result.Data["order_id"]; ok {
		t.Fatal("checkout-scoped mapping should not run on product page")
	}
	if result.Data["product_name"] != "Blue Widget" {
		t.Fatalf("product-scoped mapping should run, got %v", result.Data)
	}
}

func TestManualMappingCollector_TestSelector(t *testing.T) {
	page := mustPage(t, productHTML)
	c := newTestCollector()

	result := c.TestSelector(page, ".product-title")
	if !result.Valid || result.Matches != 1 || result.Sample != "Blue Widget" {
		t.Fatalf("unexpected dry-run result: %+v", result)
	}

	result = c.TestSelector(page, "div[")
	if result.Valid || result.Error == "" {
		t.Fatalf("invalid selector should report an error, got %+v", result)
	}

	result = c.TestSelector(page, ".nope")
	if !result.Valid || result.Matches != 0 {
		t.Fatalf("valid selector with no matches expected, got %+v", result)
	}
}
