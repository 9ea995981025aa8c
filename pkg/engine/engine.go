package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/DrSkyle/provtag/pkg/config"
	"github.com/DrSkyle/provtag/pkg/engine/policy"
	"github.com/DrSkyle/provtag/pkg/engine/provenance"
	"github.com/DrSkyle/provtag/pkg/engine/report"
	"github.com/DrSkyle/provtag/pkg/resource"
	"github.com/DrSkyle/provtag/pkg/telemetry"
	"github.com/DrSkyle/provtag/pkg/version"
)

// ErrPartialResult indicates the run completed but some resources failed.
var ErrPartialResult = errors.New("reconciliation completed with partial results")

// Inventory lists resources and conditionally rewrites their tags.
type Inventory interface {
	// ListResources calls fn for each resource, one page at a time.
	ListResources(ctx context.Context, fn func(resource.Resource) error) error
	// UpdateResourceTags replaces the tag set of id if its version still
	// equals expectedVersion. A mismatch returns provenance.ErrWriteConflict.
	UpdateResourceTags(ctx context.Context, id, expectedVersion string, tags map[string]string) error
}

// Session is the run's credential capability.
type Session interface {
	VerifyIdentity(ctx context.Context) (string, error)
}

// Observer receives every outcome as it completes. With more than one
// worker it is called concurrently.
type Observer func(resource.Outcome)

// Config holds engine settings.
type Config struct {
	Region         string
	CreatorKey     string
	CreatedDateKey string
	Window         time.Duration
	CallTimeout    time.Duration
	MaxConcurrency int
	// Filter is a CEL expression; empty selects every resource.
	Filter string
	DryRun bool

	// StrictMode turns any per-resource failure into ErrPartialResult.
	StrictMode bool

	// Telemetry config.
	OtelEndpoint  string
	SkipTelemetry bool

	Logger *slog.Logger
}

// DefaultConfig mirrors config.Default.
func DefaultConfig() Config {
	return ConfigFrom(config.Default())
}

// ConfigFrom maps loaded settings onto the engine.
func ConfigFrom(c config.Config) Config {
	return Config{
		Region:         c.Region,
		CreatorKey:     c.Tags.CreatorKey,
		CreatedDateKey: c.Tags.CreatedDateKey,
		Window:         c.Window(),
		CallTimeout:    c.CallTimeout,
		MaxConcurrency: c.Workers,
		Filter:         c.Filter,
		DryRun:         c.DryRun,
		StrictMode:     c.StrictMode,
		OtelEndpoint:   c.OtelEndpoint,
	}
}

// Engine is the reconciliation driver.
type Engine struct {
	Logger *slog.Logger
	Tracer trace.Tracer

	config Config

	inventory Inventory
	source    provenance.EventSource
	session   Session
	gate      provenance.Gate
	observer  Observer
	selector  *policy.Selector
	now       func() time.Time

	shutdown func(context.Context) error
}

// Option defines a functional configuration override.
type Option func(*Engine)

// New initializes the Engine.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: redactSensitiveData,
	})
	e := &Engine{
		Logger: slog.New(handler),
		Tracer: otel.Tracer("provtag/engine"),
		config: DefaultConfig(),
		gate:   provenance.OpenGate,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	slog.SetDefault(e.Logger)

	if !e.config.SkipTelemetry {
		shutdown, err := telemetry.Init(ctx, telemetry.RunAttributes{
			Service:  version.AppName,
			Version:  version.Current,
			Region:   e.config.Region,
			DryRun:   e.config.DryRun,
			Workers:  e.config.MaxConcurrency,
			Endpoint: e.config.OtelEndpoint,
		})
		if err != nil {
			e.Logger.Warn("Telemetry failed", "error", err)
		} else {
			e.shutdown = shutdown
		}
	}

	sel, err := policy.NewSelector(e.config.Filter)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	e.selector = sel

	return e, nil
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Logger = l
		}
	}
}

// WithConfig sets raw config. Zero-valued fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		d := e.config
		if cfg.CreatorKey == "" {
			cfg.CreatorKey = d.CreatorKey
		}
		if cfg.CreatedDateKey == "" {
			cfg.CreatedDateKey = d.CreatedDateKey
		}
		if cfg.Window <= 0 {
			cfg.Window = d.Window
		}
		if cfg.CallTimeout <= 0 {
			cfg.CallTimeout = d.CallTimeout
		}
		if cfg.MaxConcurrency <= 0 {
			cfg.MaxConcurrency = d.MaxConcurrency
		}
		e.config = cfg
		if cfg.Logger != nil {
			e.Logger = cfg.Logger
		}
	}
}

// WithConcurrency sets the worker limit.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.config.MaxConcurrency = n
		}
	}
}

// WithInventory sets the resource inventory.
func WithInventory(inv Inventory) Option {
	return func(e *Engine) {
		e.inventory = inv
	}
}

// WithEventSource sets the audit event source.
func WithEventSource(src provenance.EventSource) Option {
	return func(e *Engine) {
		e.source = src
	}
}

// WithSession sets the credential capability verified before listing.
func WithSession(s Session) Option {
	return func(e *Engine) {
		e.session = s
	}
}

// WithGate paces audit queries.
func WithGate(g provenance.Gate) Option {
	return func(e *Engine) {
		if g != nil {
			e.gate = g
		}
	}
}

// WithObserver registers a progress callback.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Config returns the effective settings.
func (e *Engine) Config() Config {
	return e.config
}

// Close flushes telemetry.
func (e *Engine) Close(ctx context.Context) error {
	if e.shutdown == nil {
		return nil
	}
	return e.shutdown(ctx)
}

// Reconcile lists the inventory once and reconciles every resource. The
// summary is returned even when err is non-nil, except for authentication
// failures, which stop the run before anything is listed.
func (e *Engine) Reconcile(ctx context.Context) (sum *report.Summary, err error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.Reconcile")
	defer span.End()

	defer e.recoverPanic(ctx, &err)

	if e.inventory == nil || e.source == nil {
		return nil, errors.New("engine requires an inventory and an event source")
	}

	sum = &report.Summary{
		RunID:   uuid.NewString(),
		Region:  e.config.Region,
		Started: e.now(),
		DryRun:  e.config.DryRun,
	}
	defer func() {
		if sum != nil {
			sum.Finished = e.now()
		}
	}()
	span.SetAttributes(attribute.String("run.id", sum.RunID), attribute.Bool("run.dry_run", sum.DryRun))

	if e.session != nil {
		account, err := e.verify(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "authentication")
			return nil, err
		}
		sum.Account = account
		e.Logger.Info("Connected", "account", account)
	}

	e.Logger.Info("Starting reconciliation",
		"run_id", sum.RunID,
		"workers", e.config.MaxConcurrency,
		"window", e.config.Window.String(),
		"dry_run", e.config.DryRun)

	resolver := &provenance.Resolver{
		Miner: &provenance.Miner{
			Source:  e.source,
			Window:  e.config.Window,
			Timeout: e.config.CallTimeout,
			Gate:    e.gate,
			Now:     e.now,
		},
		CreatorKey: e.config.CreatorKey,
	}

	workers := max(e.config.MaxConcurrency, 1)
	var (
		mu       sync.Mutex
		outcomes []resource.Outcome
		g        errgroup.Group
	)
	g.SetLimit(workers)

	record := func(i int, out resource.Outcome) {
		mu.Lock()
		outcomes[i] = out
		sum.Add(out)
		mu.Unlock()
		if e.observer != nil {
			e.observer(out)
		}
	}

	listErr := e.inventory.ListResources(ctx, func(r resource.Resource) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		mu.Lock()
		i := len(outcomes)
		outcomes = append(outcomes, resource.Outcome{})
		mu.Unlock()

		if workers == 1 {
			record(i, e.reconcileOne(ctx, resolver, r))
			return nil
		}
		g.Go(func() error {
			record(i, e.reconcileOne(ctx, resolver, r))
			return nil
		})
		return nil
	})
	_ = g.Wait()
	sum.Outcomes = outcomes

	span.SetAttributes(
		attribute.Int("run.listed", sum.Listed),
		attribute.Int("run.resolved", sum.Resolved),
		attribute.Int("run.already_tagged", sum.AlreadyTagged),
	)

	if listErr != nil {
		span.RecordError(listErr)
		span.SetStatus(codes.Error, "inventory")
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(listErr, ctxErr) {
			e.Logger.Warn("Reconciliation interrupted", "processed", sum.Listed)
			return sum, fmt.Errorf("reconciliation interrupted: %w", listErr)
		}
		e.Logger.Error("Inventory listing failed", "processed", sum.Listed, "error", listErr)
		return sum, fmt.Errorf("%w: %w", provenance.ErrInventoryList, listErr)
	}

	e.Logger.Info("Reconciliation finished",
		"run_id", sum.RunID,
		"listed", sum.Listed,
		"already_tagged", sum.AlreadyTagged,
		"resolved", sum.Resolved,
		"resolved_unknown", sum.ResolvedUnknown,
		"failed_resolution", sum.FailedResolution,
		"failed_write", sum.FailedWrite,
		"excluded", sum.Excluded)

	if sum.Partial() {
		span.SetAttributes(attribute.Bool("run.partial", true), attribute.Int("run.failures", sum.Failures()))

		if e.config.StrictMode {
			e.Logger.Error("Strict Mode: failing due to partial results", "failures", sum.Failures())
			return sum, ErrPartialResult
		}
		e.Logger.Warn("Reconciliation finished with partial errors (StrictMode=false)", "failures", sum.Failures())
	}

	return sum, nil
}

func (e *Engine) verify(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.CallTimeout)
	defer cancel()

	account, err := e.session.VerifyIdentity(ctx)
	if err != nil {
		if errors.Is(err, provenance.ErrAuthentication) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", provenance.ErrAuthentication, err)
	}
	return account, nil
}

// recoverPanic converts a panic into an error on the run.
func (e *Engine) recoverPanic(ctx context.Context, err *error) {
	if r := recover(); r != nil {
		_, span := e.Tracer.Start(ctx, "CriticalPanic")

		stack := debug.Stack()

		span.RecordError(fmt.Errorf("%v", r), trace.WithStackTrace(true))
		span.SetStatus(codes.Error, "CRITICAL FAILURE")
		span.SetAttributes(
			attribute.String("crash.stack", string(stack)),
			attribute.String("crash.reason", fmt.Sprintf("%v", r)),
		)
		span.End()

		e.Logger.Error("CRITICAL FAILURE", "error", r, "stack", string(stack))
		*err = fmt.Errorf("reconciliation panicked: %v", r)
	}
}

// redactSensitiveData scrubs sensitive keys from logs.
func redactSensitiveData(groups []string, a slog.Attr) slog.Attr {
	sensitiveKeys := map[string]bool{
		"account": true, "password": true, "access_key": true, "token": true,
		"secret": true, "api_key": true, "private_key": true, "auth_token": true,
		"refresh_token": true, "credential": true, "webhook": true, "session_token": true,
	}

	if sensitiveKeys[a.Key] {
		return slog.Attr{
			Key:   a.Key,
			Value: slog.StringValue("[REDACTED]"),
		}
	}
	return a
}
