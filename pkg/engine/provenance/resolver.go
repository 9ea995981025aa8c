package provenance

import (
	"context"

	"github.com/DrSkyle/provtag/pkg/resource"
)

// Reserved tag keys.
const (
	DefaultCreatorKey     = "CreatedBy"
	DefaultCreatedDateKey = "CreatedDate"
)

// EventMiner finds the earliest human event for a resource.
type EventMiner interface {
	FindEarliestHumanEvent(ctx context.Context, resourceID string) (*resource.AuditEvent, error)
}

// Resolver decides whether a resource needs provenance and derives it.
// It has no side effects on the inventory.
type Resolver struct {
	Miner      EventMiner
	CreatorKey string
}

// NewResolver returns a resolver keyed on the default creator tag.
func NewResolver(m EventMiner) *Resolver {
	return &Resolver{Miner: m, CreatorKey: DefaultCreatorKey}
}

// Resolve returns AlreadyTagged when the creator key is present (without
// querying), Resolved with a record (possibly Unknown) otherwise, or Failed
// when the audit query itself failed.
func (r *Resolver) Resolve(ctx context.Context, res resource.Resource) resource.Outcome {
	out := resource.Outcome{Resource: res}

	if _, ok := res.Tag(r.CreatorKey); ok {
		out.Kind = resource.AlreadyTagged
		return out
	}

	ev, err := r.Miner.FindEarliestHumanEvent(ctx, res.ID)
	if err != nil {
		out.Kind = resource.Failed
		out.Stage = resource.StageResolve
		out.Err = err
		return out
	}

	out.Kind = resource.Resolved
	if ev == nil {
		out.Record = resource.UnknownRecord()
	} else {
		out.Record = resource.RecordFromEvent(*ev)
	}
	return out
}
