package aws

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/DrSkyle/provtag/pkg/engine/provenance"
	"github.com/DrSkyle/provtag/pkg/resource"
)

// MockInventory is an in-memory inventory with the same conditional-write
// contract as TaggingInventory. Used by --mock runs and tests.
type MockInventory struct {
	mu    sync.Mutex
	order []resource.Resource
	tags  map[string]map[string]string

	// Latency simulates a provider round trip on every call.
	Latency time.Duration

	// ListErr, when set, is returned after ListErrAfter resources were listed.
	ListErr      error
	ListErrAfter int

	// WriteErr fails writes to the given resource IDs.
	WriteErr map[string]error

	writes int
}

func NewMockInventory(resources ...resource.Resource) *MockInventory {
	m := &MockInventory{
		tags:     make(map[string]map[string]string),
		WriteErr: make(map[string]error),
	}
	for _, r := range resources {
		m.Add(r)
	}
	return m
}

// Add appends r to the listing order.
func (m *MockInventory) Add(r resource.Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tags := maps.Clone(r.Tags)
	if tags == nil {
		tags = map[string]string{}
	}
	r.Tags = nil
	m.order = append(m.order, r)
	m.tags[r.ID] = tags
}

func (m *MockInventory) ListResources(ctx context.Context, fn func(resource.Resource) error) error {
	m.mu.Lock()
	snapshot := make([]resource.Resource, len(m.order))
	for i, r := range m.order {
		tags := maps.Clone(m.tags[r.ID])
		r.Tags = tags
		r.Version = TagFingerprint(tags)
		snapshot[i] = r
	}
	m.mu.Unlock()

	for i, r := range snapshot {
		if m.ListErr != nil && i >= m.ListErrAfter {
			return m.ListErr
		}
		if err := m.sleep(ctx); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	if m.ListErr != nil && len(snapshot) <= m.ListErrAfter {
		return m.ListErr
	}
	return nil
}

// UpdateResourceTags replaces the tag set of id when its version still
// matches. A rejected write leaves the stored tags untouched.
func (m *MockInventory) UpdateResourceTags(ctx context.Context, id, expectedVersion string, tags map[string]string) error {
	if err := m.sleep(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", provenance.ErrWriteFailed, id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.WriteErr[id]; err != nil {
		return fmt.Errorf("%w: %s: %w", provenance.ErrWriteFailed, id, err)
	}
	current, ok := m.tags[id]
	if !ok {
		return fmt.Errorf("%w: %s no longer exists", provenance.ErrWriteFailed, id)
	}
	if TagFingerprint(current) != expectedVersion {
		return fmt.Errorf("%w: %s changed since listing", provenance.ErrWriteConflict, id)
	}

	m.tags[id] = maps.Clone(tags)
	m.writes++
	return nil
}

// SetTag changes a tag out of band, as a concurrent writer would.
func (m *MockInventory) SetTag(id, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tags[id]; ok {
		t[key] = value
	}
}

// Tags returns a copy of the stored tags for id.
func (m *MockInventory) Tags(id string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.tags[id])
}

// Writes counts successful updates.
func (m *MockInventory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MockInventory) sleep(ctx context.Context) error {
	if m.Latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.Latency):
		return nil
	}
}

// MockEventSource serves canned audit events per resource and counts queries.
type MockEventSource struct {
	mu     sync.Mutex
	events map[string][]resource.AuditEvent
	errs   map[string]error
	delays map[string]time.Duration
	calls  int

	Latency time.Duration
}

func NewMockEventSource() *MockEventSource {
	return &MockEventSource{
		events: make(map[string][]resource.AuditEvent),
		errs:   make(map[string]error),
		delays: make(map[string]time.Duration),
	}
}

// AddEvent records an event against id.
func (m *MockEventSource) AddEvent(id string, ev resource.AuditEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[id] = append(m.events[id], ev)
}

// FailFor makes every query for id return err.
func (m *MockEventSource) FailFor(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[id] = err
}

// SlowFor adds d to the latency of every query for id.
func (m *MockEventSource) SlowFor(id string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[id] = d
}

// QueryEvents returns the events for q.ResourceID inside [q.Start, q.End].
// Events without a timestamp are always returned.
func (m *MockEventSource) QueryEvents(ctx context.Context, q provenance.EventQuery) ([]resource.AuditEvent, error) {
	m.mu.Lock()
	m.calls++
	err := m.errs[q.ResourceID]
	all := m.events[q.ResourceID]
	latency := m.Latency + m.delays[q.ResourceID]
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(latency):
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}

	var out []resource.AuditEvent
	for _, ev := range all {
		if ev.Timestamp != nil && (ev.Timestamp.Before(q.Start) || ev.Timestamp.After(q.End)) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Calls is the number of queries served so far.
func (m *MockEventSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SeedMockData builds a small account for --mock runs: a mix of tagged,
// human-created, automation-only, aged-out, and failing resources.
func SeedMockData(now time.Time) (*MockInventory, *MockEventSource) {
	const acct = "arn:aws:ec2:us-east-1:123456789012:"
	day := 24 * time.Hour
	at := func(d time.Duration) *time.Time { t := now.Add(-d); return &t }
	who := func(s string) *string { return &s }

	inv := NewMockInventory(
		resource.Resource{ID: acct + "instance/i-0mock1234567890", Type: "ec2:instance", Name: "web-frontend", Region: "us-east-1",
			Tags: map[string]string{"Name": "web-frontend", "Lifetime": "permanent"}},
		resource.Resource{ID: acct + "volume/vol-0mock1234567890", Type: "ec2:volume", Name: "vol-0mock1234567890", Region: "us-east-1"},
		resource.Resource{ID: "arn:aws:s3:::mock-bucket-iceberg", Type: "s3", Name: "mock-bucket-iceberg",
			Tags: map[string]string{"CreatedBy": "ops@example.com", "CreatedDate": "2023-11-02"}},
		resource.Resource{ID: "arn:aws:rds:us-east-1:123456789012:db:legacy-postgres", Type: "rds:db", Name: "legacy-postgres", Region: "us-east-1",
			Tags: map[string]string{"Lifetime": "90d"}},
		resource.Resource{ID: "arn:aws:eks:us-east-1:123456789012:cluster/legacy-dev-cluster", Type: "eks:cluster", Name: "legacy-dev-cluster", Region: "us-east-1"},
		resource.Resource{ID: acct + "snapshot/snap-0mockChild", Type: "ec2:snapshot", Name: "snap-0mockChild", Region: "us-east-1"},
	)
	inv.Latency = 150 * time.Millisecond

	src := NewMockEventSource()
	src.Latency = 200 * time.Millisecond
	src.AddEvent(acct+"instance/i-0mock1234567890", resource.AuditEvent{Caller: who("AutoScaling"), Timestamp: at(40 * day), OperationName: "RunInstances"})
	src.AddEvent(acct+"instance/i-0mock1234567890", resource.AuditEvent{Caller: who("dana@example.com"), Timestamp: at(39 * day), OperationName: "CreateTags"})
	src.AddEvent(acct+"volume/vol-0mock1234567890", resource.AuditEvent{Caller: who("terraform-ci"), Timestamp: at(10 * day), OperationName: "CreateVolume"})
	src.AddEvent("arn:aws:rds:us-east-1:123456789012:db:legacy-postgres", resource.AuditEvent{Caller: who("lee@example.com"), Timestamp: at(400 * day), OperationName: "CreateDBInstance"})
	src.AddEvent("arn:aws:eks:us-east-1:123456789012:cluster/legacy-dev-cluster", resource.AuditEvent{Caller: who("sam@example.com"), OperationName: "CreateCluster"})
	src.FailFor(acct+"snapshot/snap-0mockChild", fmt.Errorf("ThrottlingException: rate exceeded"))

	return inv, src
}
