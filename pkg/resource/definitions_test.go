package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordFromEvent(t *testing.T) {
	caller := "alice@example.com"
	ts := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))

	tests := []struct {
		name  string
		event AuditEvent
		want  ProvenanceRecord
	}{
		{
			name:  "caller and timestamp",
			event: AuditEvent{Caller: &caller, Timestamp: &ts},
			want:  ProvenanceRecord{Creator: caller, CreatedDate: "2024-03-10"},
		},
		{
			name:  "nil timestamp keeps caller",
			event: AuditEvent{Caller: &caller},
			want:  ProvenanceRecord{Creator: caller, CreatedDate: Unknown},
		},
		{
			name:  "nothing known",
			event: AuditEvent{},
			want:  UnknownRecord(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecordFromEvent(tt.event))
		})
	}
}

func TestResourceTag(t *testing.T) {
	var r Resource
	_, ok := r.Tag("CreatedBy")
	assert.False(t, ok, "nil tag map has no keys")

	r.Tags = map[string]string{"CreatedBy": Unknown}
	v, ok := r.Tag("CreatedBy")
	assert.True(t, ok)
	assert.Equal(t, Unknown, v)
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "ALREADY_TAGGED", AlreadyTagged.String())
	assert.Equal(t, "RESOLVED", Resolved.String())
	assert.Equal(t, "FAILED", Failed.String())
	assert.Equal(t, "EXCLUDED", Excluded.String())
}
