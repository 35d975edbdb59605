// Package extract implements typed value extraction from host page nodes
// and the operator-declared mapping collector built on top of it.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/vantara/tagfusion/internal/config"
	"github.com/vantara/tagfusion/internal/utils"
)

// MaxStringLength is the ceiling applied to extracted string values.
// Longer values are truncated with a logged warning.
const MaxStringLength = 1000

var (
	markupPattern     = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	nonNumericPattern = regexp.MustCompile(`[^0-9.\-]`)
	emailPattern      = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
)

// FieldExtractor pulls a typed value out of a single page node. It never
// returns an error to the caller: any coercion failure resolves to nil.
type FieldExtractor struct {
	logger utils.Logger
}

// NewFieldExtractor creates a field extractor.
func NewFieldExtractor(logger utils.Logger) *FieldExtractor {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &FieldExtractor{logger: logger.WithField("component", "extract")}
}

// Extract reads the node's current value and coerces it to the declared
// type. The attribute is consulted only when the node has no visible
// text. A nil result means the value was absent or failed coercion.
func (fe *FieldExtractor) Extract(sel *goquery.Selection, dataType config.FieldType, attribute string) interface{} {
	if sel == nil || sel.Length() == 0 {
		return nil
	}

	raw := rawValue(sel, attribute)
	if raw == "" {
		return nil
	}

	switch dataType {
	case config.FieldString:
		return fe.coerceString(raw)
	case config.FieldNumber:
		return coerceNumber(raw)
	case config.FieldEmail:
		return CoerceEmail(raw)
	default:
		fe.logger.Warnf("unknown data type %q, treating as string", dataType)
		return fe.coerceString(raw)
	}
}

// rawValue reads the current value of a node. Form controls report their
// control value; everything else reports visible text with the declared
// attribute as fallback.
func rawValue(sel *goquery.Selection, attribute string) string {
	node := sel.First()

	if name := goquery.NodeName(node); name == "input" || name == "textarea" || name == "select" {
		if name == "select" {
			if v, ok := node.Find("option[selected]").First().Attr("value"); ok {
				return v
			}
			return strings.TrimSpace(node.Find("option").First().Text())
		}
		if name == "textarea" {
			return strings.TrimSpace(node.Text())
		}
		v, _ := node.Attr("value")
		return v
	}

	if text := strings.TrimSpace(node.Text()); text != "" {
		return text
	}
	if attribute != "" {
		if v, ok := node.Attr(attribute); ok {
			return v
		}
	}
	return ""
}

// coerceString strips markup, collapses whitespace and enforces the
// length ceiling. Values empty after cleaning resolve to nil.
func (fe *FieldExtractor) coerceString(raw string) interface{} {
	cleaned := markupPattern.ReplaceAllString(raw, "")
	cleaned = strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return nil
	}
	if len(cleaned) > MaxStringLength {
		// Back off to a rune boundary so the cut never splits a
		// multi-byte character.
		limit := MaxStringLength
		for limit > 0 && !utf8.RuneStart(cleaned[limit]) {
			limit--
		}
		fe.logger.Warnf("string value truncated from %d to %d bytes", len(cleaned), limit)
		cleaned = cleaned[:limit]
	}
	return cleaned
}

// coerceNumber strips everything but digits, sign and decimal point
// (thousands separators included) before parsing. NaN resolves to nil.
func coerceNumber(raw string) interface{} {
	cleaned := nonNumericPattern.ReplaceAllString(raw, "")
	if cleaned == "" {
		return nil
	}
	// A trailing group like "1.299.99" can survive European-style
	// thousands separators; keep only the last decimal point.
	if strings.Count(cleaned, ".") > 1 {
		last := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:last], ".", "") + cleaned[last:]
	}
	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return val
}

// CoerceEmail lower-cases, trims and validates an address. Invalid
// addresses resolve to nil. Exported for re-validation by the quality
// scorer.
func CoerceEmail(raw string) interface{} {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(cleaned) {
		return nil
	}
	return cleaned
}

// IsValidEmail reports whether a value is a well-formed address after
// normalization.
func IsValidEmail(value string) bool {
	return CoerceEmail(value) != nil
}
