// Package conversion projects the canonical record into the parameter
// vocabulary of the third-party conversions API. Personal fields are
// one-way hashed before they leave this package; raw values never
// appear in its output.
package conversion

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vantara/tagfusion/internal/fusion"
	"github.com/vantara/tagfusion/internal/platform"
	"github.com/vantara/tagfusion/internal/utils"
)

// Payload carries the fixed external parameter set of the conversions
// API. Field tags match the API's wire names.
type Payload struct {
	ContentID       string  `json:"content_ids,omitempty"`
	ContentName     string  `json:"content_name,omitempty"`
	ContentCategory string  `json:"content_category,omitempty"`
	Value           float64 `json:"value,omitempty"`
	Currency        string  `json:"currency,omitempty"`
	OrderID         string  `json:"order_id,omitempty"`
	Em              string  `json:"em,omitempty"` // hashed, never raw

	EventName  string    `json:"event_name"`
	PreparedAt time.Time `json:"prepared_at"`
}

// Adapter builds conversion payloads from canonical records.
type Adapter struct {
	logger utils.Logger
}

// NewAdapter creates a conversion adapter.
func NewAdapter(logger utils.Logger) *Adapter {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Adapter{logger: logger.WithField("component", "conversion")}
}

// Prepare projects the canonical record for the given event. The second
// return value reports readiness: when projection cannot produce a
// usable payload the event simply carries no conversion block, it is
// never aborted.
func (a *Adapter) Prepare(eventName string, record *fusion.CanonicalRecord) (*Payload, bool) {
	if record == nil || len(record.Fields) == 0 {
		return nil, false
	}

	p := &Payload{
		EventName:  eventName,
		PreparedAt: time.Now(),
	}

	p.ContentID = stringValue(record, platform.FieldProductID)
	p.ContentName = stringValue(record, platform.FieldProductName)
	p.ContentCategory = stringValue(record, platform.FieldProductCategory)
	p.OrderID = stringValue(record, platform.FieldOrderID)
	p.Currency = strings.ToUpper(stringValue(record, platform.FieldCurrency))

	if v, ok := numberValue(record, platform.FieldProductPrice); ok {
		p.Value = v
	}

	if email, ok := record.StringField(platform.FieldEmail); ok && email != "" {
		p.Em = HashPersonal(email)
	}

	if p.ContentName == "" && p.ContentID == "" && p.Value == 0 {
		a.logger.Debug("conversion payload empty, marking not ready")
		return nil, false
	}
	return p, true
}

// HashPersonal produces the deterministic one-way digest required for
// personal fields: trim, lower-case, sha256, hex.
func HashPersonal(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func stringValue(record *fusion.CanonicalRecord, field string) string {
	switch v := record.Field(field).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func numberValue(record *fusion.CanonicalRecord, field string) (float64, bool) {
	switch v := record.Field(field).(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
