// Package platform normalizes the host-declared data layer and provides
// the last-resort heuristic extractor. Both produce the same canonical
// field shape as the mapping collector so the fusion engine can merge
// them uniformly.
package platform

import (
	"github.com/vantara/tagfusion/internal/hostpage"
	"github.com/vantara/tagfusion/internal/utils"
)

// Canonical field names shared by all source records.
const (
	FieldProductID       = "product_id"
	FieldProductName     = "product_name"
	FieldProductCategory = "product_category"
	FieldProductPrice    = "product_price"
	FieldCurrency        = "currency"
	FieldOrderID         = "order_id"
	FieldEmail           = "email"
	FieldUserName        = "user_name"
)

// PlatformDataAdapter reads the host-declared data layer and renames its
// platform-specific keys into the canonical field set. Unknown platforms
// pass through only the generic ecommerce sub-object unchanged.
type PlatformDataAdapter struct {
	logger utils.Logger
}

// NewPlatformDataAdapter creates a platform data adapter.
func NewPlatformDataAdapter(logger utils.Logger) *PlatformDataAdapter {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &PlatformDataAdapter{logger: logger.WithField("component", "platform")}
}

// Collect normalizes the page's data layer. A page without a data layer
// yields an empty map, never an error.
func (a *PlatformDataAdapter) Collect(page *hostpage.Page) map[string]interface{} {
	layer := page.DataLayer()
	if layer == nil {
		return map[string]interface{}{}
	}

	platform, _ := layer["platform"].(string)
	switch platform {
	case "shopify":
		return a.normalizeShopify(layer)
	case "woocommerce":
		return a.normalizeWooCommerce(layer)
	case "magento":
		return a.normalizeMagento(layer)
	default:
		if platform != "" {
			a.logger.Debugf("unknown platform %q, passing through ecommerce block only", platform)
		}
		return passthroughEcommerce(layer)
	}
}

func (a *PlatformDataAdapter) normalizeShopify(layer map[string]interface{}) map[string]interface{} {
	out := passthroughEcommerce(layer)

	if product := subObject(layer, "product"); product != nil {
		renameInto(out, product, map[string]string{
			"id":    FieldProductID,
			"title": FieldProductName,
			"type":  FieldProductCategory,
			"price": FieldProductPrice,
		})
	}
	if cart := subObject(layer, "cart"); cart != nil {
		renameInto(out, cart, map[string]string{"currency": FieldCurrency})
	}
	if checkout := subObject(layer, "checkout"); checkout != nil {
		renameInto(out, checkout, map[string]string{
			"order_id": FieldOrderID,
			"currency": FieldCurrency,
		})
	}
	flattenCustomer(out, layer, "customer")
	return out
}

func (a *PlatformDataAdapter) normalizeWooCommerce(layer map[string]interface{}) map[string]interface{} {
	out := passthroughEcommerce(layer)

	if product := subObject(layer, "product"); product != nil {
		renameInto(out, product, map[string]string{
			"id":       FieldProductID,
			"name":     FieldProductName,
			"category": FieldProductCategory,
			"price":    FieldProductPrice,
		})
	}
	if order := subObject(layer, "order"); order != nil {
		renameInto(out, order, map[string]string{
			"id":       FieldOrderID,
			"currency": FieldCurrency,
		})
	}
	flattenCustomer(out, layer, "customer")
	return out
}

func (a *PlatformDataAdapter) normalizeMagento(layer map[string]interface{}) map[string]interface{} {
	out := passthroughEcommerce(layer)

	if product := subObject(layer, "product"); product != nil {
		renameInto(out, product, map[string]string{
			"sku":            FieldProductID,
			"name":           FieldProductName,
			"category_name":  FieldProductCategory,
			"price_incl_tax": FieldProductPrice,
		})
	}
	if quote := subObject(layer, "quote"); quote != nil {
		renameInto(out, quote, map[string]string{
			"entity_id":      FieldOrderID,
			"quote_currency": FieldCurrency,
		})
	}
	flattenCustomer(out, layer, "customer")
	return out
}

// passthroughEcommerce copies the generic ecommerce sub-object verbatim.
func passthroughEcommerce(layer map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	if eco := subObject(layer, "ecommerce"); eco != nil {
		for k, v := range eco {
			if v != nil {
				out[k] = v
			}
		}
	}
	return out
}

// flattenCustomer lifts the nested user sub-object into canonical fields.
func flattenCustomer(out, layer map[string]interface{}, key string) {
	customer := subObject(layer, key)
	if customer == nil {
		return
	}
	renameInto(out, customer, map[string]string{
		"email":      FieldEmail,
		"name":       FieldUserName,
		"first_name": FieldUserName,
	})
}

func subObject(layer map[string]interface{}, key string) map[string]interface{} {
	if v, ok := layer[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// renameInto copies non-nil source values under their canonical names,
// never overwriting a field already set. Numeric strings stay strings;
// the fusion engine treats values opaquely.
func renameInto(out, src map[string]interface{}, names map[string]string) {
	for from, to := range names {
		v, ok := src[from]
		if !ok || v == nil {
			continue
		}
		if _, exists := out[to]; exists {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		out[to] = v
	}
}

// CanonicalFields lists the canonical field names for diagnostics output.
func CanonicalFields() []string {
	return []string{
		FieldProductID, FieldProductName, FieldProductCategory,
		FieldProductPrice, FieldCurrency, FieldOrderID,
		FieldEmail, FieldUserName,
	}
}
