// Package resource defines the inventory and audit types shared by the
// reconciliation engine and its providers.
package resource

import "time"

// Unknown is the terminal provenance value written when no human-attributable
// event exists in the lookback window.
const Unknown = "Unknown"

// DateLayout is the created-date tag format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// Resource is a single inventory item. The engine only reads it and
// conditionally rewrites its tag map.
type Resource struct {
	ID     string
	Type   string
	Name   string
	Region string
	Tags   map[string]string

	// Version is the optimistic-concurrency token presented on write.
	Version string
}

// Tag returns the value of key and whether it is set.
func (r Resource) Tag(key string) (string, bool) {
	if r.Tags == nil {
		return "", false
	}
	v, ok := r.Tags[key]
	return v, ok
}

// AuditEvent is one entry from the activity stream, scoped to a resource.
// Caller and Timestamp are nil when the source omitted them.
type AuditEvent struct {
	Caller        *string
	Timestamp     *time.Time
	OperationName string
}

// CallerString returns the caller or an empty string.
func (e AuditEvent) CallerString() string {
	if e.Caller == nil {
		return ""
	}
	return *e.Caller
}

// ProvenanceRecord is the creator and creation date derived for a resource.
// Either field may hold Unknown.
type ProvenanceRecord struct {
	Creator     string `json:"creator" yaml:"creator"`
	CreatedDate string `json:"created_date" yaml:"created_date"`
}

// UnknownRecord is the record written when the window holds no qualifying event.
func UnknownRecord() ProvenanceRecord {
	return ProvenanceRecord{Creator: Unknown, CreatedDate: Unknown}
}

// RecordFromEvent derives a record from a qualifying event. A nil timestamp
// keeps the caller and leaves the date Unknown.
func RecordFromEvent(e AuditEvent) ProvenanceRecord {
	rec := ProvenanceRecord{Creator: Unknown, CreatedDate: Unknown}
	if e.Caller != nil {
		rec.Creator = *e.Caller
	}
	if e.Timestamp != nil {
		rec.CreatedDate = e.Timestamp.UTC().Format(DateLayout)
	}
	return rec
}

// IsUnknown reports whether no creator could be attributed.
func (p ProvenanceRecord) IsUnknown() bool {
	return p.Creator == Unknown
}
