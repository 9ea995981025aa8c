package provenance

import (
	"context"
	"time"

	"github.com/DrSkyle/provtag/pkg/resource"
)

// DefaultFields are the event attributes the miner needs from a query.
var DefaultFields = []string{"caller", "timestamp", "operationName"}

// EventQuery scopes an audit lookup to one resource and one time window.
type EventQuery struct {
	ResourceID string
	Start      time.Time
	End        time.Time
	Fields     []string
}

// EventSource is the external audit/activity log.
type EventSource interface {
	QueryEvents(ctx context.Context, q EventQuery) ([]resource.AuditEvent, error)
}

// Gate paces calls to a shared external API.
// Observe receives the result of each gated call.
type Gate interface {
	Wait(ctx context.Context) error
	Observe(err error)
}

type openGate struct{}

func (openGate) Wait(ctx context.Context) error { return ctx.Err() }
func (openGate) Observe(error)                  {}

// OpenGate never delays a call.
var OpenGate Gate = openGate{}
