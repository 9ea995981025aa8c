package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DrSkyle/provtag/pkg/engine/provenance"
	"github.com/DrSkyle/provtag/pkg/resource"
)

// reconcileOne runs the two phases for one resource: resolve without side
// effects, then write both reserved keys in a single conditional update.
// It never returns an error; failures are carried in the outcome.
func (e *Engine) reconcileOne(ctx context.Context, resolver *provenance.Resolver, r resource.Resource) resource.Outcome {
	ctx, span := e.Tracer.Start(ctx, "Reconcile.Resource", trace.WithAttributes(
		attribute.String("resource.id", r.ID),
		attribute.String("resource.kind", r.Type),
	))
	defer span.End()

	ok, err := e.selector.Match(r)
	if err != nil {
		e.Logger.Debug("Filter evaluation failed, excluding resource", "id", r.ID, "error", err)
	}
	if !ok {
		span.SetAttributes(attribute.String("outcome", resource.Excluded.String()))
		return resource.Outcome{Resource: r, Kind: resource.Excluded}
	}

	out := resolver.Resolve(ctx, r)
	span.SetAttributes(attribute.String("outcome", out.Kind.String()))

	switch out.Kind {
	case resource.AlreadyTagged:
		e.Logger.Debug("Already tagged", "id", r.ID)
		return out
	case resource.Failed:
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, string(out.Stage))
		e.Logger.Warn("Provenance resolution failed", "id", r.ID, "error", out.Err)
		return out
	}

	tags := make(map[string]string, len(r.Tags)+2)
	maps.Copy(tags, r.Tags)
	tags[e.config.CreatorKey] = out.Record.Creator
	tags[e.config.CreatedDateKey] = out.Record.CreatedDate

	if e.config.DryRun {
		out.DryRun = true
		out.Resource.Tags = tags
		e.Logger.Info("Dry run: would tag resource",
			"id", r.ID, "creator", out.Record.Creator, "created_date", out.Record.CreatedDate)
		return out
	}

	if err := e.write(ctx, r, tags); err != nil {
		out.Kind = resource.Failed
		out.Stage = resource.StageWrite
		out.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, string(out.Stage))
		e.Logger.Warn("Tag write failed", "id", r.ID, "conflict", errors.Is(err, provenance.ErrWriteConflict), "error", err)
		return out
	}

	out.Resource.Tags = tags
	e.Logger.Info("Tagged resource",
		"id", r.ID, "creator", out.Record.Creator, "created_date", out.Record.CreatedDate)
	return out
}

func (e *Engine) write(ctx context.Context, r resource.Resource, tags map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, e.config.CallTimeout)
	defer cancel()

	err := e.inventory.UpdateResourceTags(ctx, r.ID, r.Version, tags)
	if err == nil || errors.Is(err, provenance.ErrWriteConflict) || errors.Is(err, provenance.ErrWriteFailed) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", provenance.ErrWriteFailed, r.ID, err)
}
