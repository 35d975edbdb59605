// Package fusion merges independently collected source records into a
// single canonical record with per-field provenance, and scores the
// result. Merge order is the central invariant of the runtime: a field's
// value always comes from the highest-priority source that supplied a
// non-nil value for it.
package fusion

import (
	"sort"
	"time"

	"github.com/vantara/tagfusion/internal/utils"
)

// Well-known source names and their trust priorities. Operator-declared
// mappings outrank platform data, which outranks heuristics.
const (
	SourceManual   = "manual_mapping"
	SourcePlatform = "platform_data"
	SourceFallback = "fallback"

	PriorityManual   = 100
	PriorityPlatform = 50
	PriorityFallback = 10
)

// SourceRecord is one collector's view of the page. Records are built
// independently and never mutated after creation.
type SourceRecord struct {
	Data       map[string]interface{} `json:"data"`
	Priority   int                    `json:"priority"`
	SourceName string                 `json:"source_name"`
}

// NewSourceRecord creates a source record.
func NewSourceRecord(name string, priority int, data map[string]interface{}) SourceRecord {
	if data == nil {
		data = map[string]interface{}{}
	}
	return SourceRecord{Data: data, Priority: priority, SourceName: name}
}

// CanonicalRecord is the fused, provenance-tagged data object for the
// current page or event.
type CanonicalRecord struct {
	Fields      map[string]interface{} `json:"fields"`
	Provenance  map[string]string      `json:"provenance"`
	CollectedAt time.Time              `json:"collected_at"`
}

// Field returns a fused field value, or nil when absent.
func (r *CanonicalRecord) Field(name string) interface{} {
	return r.Fields[name]
}

// StringField returns a fused field as a string when it is one.
func (r *CanonicalRecord) StringField(name string) (string, bool) {
	s, ok := r.Fields[name].(string)
	return s, ok
}

// SourceCount returns the number of distinct sources that contributed
// at least one field.
func (r *CanonicalRecord) SourceCount() int {
	seen := make(map[string]struct{}, len(r.Provenance))
	for _, src := range r.Provenance {
		seen[src] = struct{}{}
	}
	return len(seen)
}

// DataFusionEngine merges source records by descending trust priority.
type DataFusionEngine struct {
	logger utils.Logger
}

// NewDataFusionEngine creates a fusion engine.
func NewDataFusionEngine(logger utils.Logger) *DataFusionEngine {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &DataFusionEngine{logger: logger.WithField("component", "fusion")}
}

// Merge fuses the source records into one canonical record.
//
// Algorithm: stable-sort sources by priority descending, then scan in
// that order. A field is written when it is not yet set or when its
// current holder has strictly lower priority; ties therefore keep the
// first-applied source. Nil values are never written, so a high-priority
// explicit nil cannot suppress a lower-priority real value. For a fixed
// input ordering and priority set the output is deterministic.
func (e *DataFusionEngine) Merge(sources []SourceRecord) *CanonicalRecord {
	ordered := make([]SourceRecord, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	record := &CanonicalRecord{
		Fields:      make(map[string]interface{}),
		Provenance:  make(map[string]string),
		CollectedAt: time.Now(),
	}
	fieldPriority := make(map[string]int)

	for _, src := range ordered {
		for field, value := range src.Data {
			if value == nil {
				continue
			}
			current, set := fieldPriority[field]
			if set && current >= src.Priority {
				continue
			}
			record.Fields[field] = value
			record.Provenance[field] = src.SourceName
			fieldPriority[field] = src.Priority
		}
	}

	e.logger.Debugf("fused %d fields from %d sources", len(record.Fields), len(sources))
	return record
}
