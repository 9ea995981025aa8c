package provenance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/DrSkyle/provtag/pkg/resource"
)

// DefaultWindow matches standard-tier audit retention. Anything older is
// unrecoverable and degrades to Unknown.
const DefaultWindow = 60 * 24 * time.Hour

// Miner searches a trailing window of the audit log for the earliest
// human-attributable event on a resource.
type Miner struct {
	Source  EventSource
	Window  time.Duration
	Timeout time.Duration
	Gate    Gate
	Now     func() time.Time
}

// NewMiner returns a miner over src with the default window.
func NewMiner(src EventSource) *Miner {
	return &Miner{
		Source: src,
		Window: DefaultWindow,
		Gate:   OpenGate,
		Now:    time.Now,
	}
}

// FindEarliestHumanEvent returns the earliest event whose caller passes
// IsHumanCaller, or nil when none does. A failed query is returned as an
// ErrAuditQuery error and is never reported as "no event".
func (m *Miner) FindEarliestHumanEvent(ctx context.Context, resourceID string) (*resource.AuditEvent, error) {
	end := m.Now()
	q := EventQuery{
		ResourceID: resourceID,
		Start:      end.Add(-m.Window),
		End:        end,
		Fields:     DefaultFields,
	}

	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	if err := m.Gate.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAuditQuery, resourceID, err)
	}
	events, err := m.Source.QueryEvents(ctx, q)
	m.Gate.Observe(err)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAuditQuery, resourceID, err)
	}

	OrderEvents(events)
	for i := range events {
		if IsHumanCaller(events[i]) {
			ev := events[i]
			return &ev, nil
		}
	}
	return nil, nil
}

// OrderEvents sorts events ascending by timestamp. Events without a
// timestamp are kept and sort last, in their original relative order.
func OrderEvents(events []resource.AuditEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Timestamp, events[j].Timestamp
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})
}
