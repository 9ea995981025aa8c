package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/DrSkyle/provtag/pkg/config"
	"github.com/DrSkyle/provtag/pkg/engine/aws"
	"github.com/DrSkyle/provtag/pkg/engine/swarm"
)

// Pipeline holds the provider wiring for one run.
type Pipeline struct {
	Options   []Option
	Inventory Inventory
	// Client is nil in mock mode.
	Client    *aws.Client
	Governor  *swarm.Governor
}

// BuildPipeline wires the inventory, event source, session, and shared
// rate governor for cfg. Mock mode uses seeded in-memory fakes.
func BuildPipeline(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Pipeline, error) {
	gov := swarm.NewGovernor(cfg.Rate.Start, cfg.Rate.Min, cfg.Rate.Max, 1)
	gov.IsThrottle = aws.IsThrottle

	if cfg.MockMode {
		return mockPipeline(gov), nil
	}

	client, err := aws.NewClient(ctx, cfg.Region, cfg.Profile, cfg.Verbose, logger)
	if err != nil {
		return nil, err
	}

	trail := aws.NewCloudTrailClient(client.Config)
	trail.Gate = gov

	inv := aws.NewTaggingInventory(client.Config, cfg.ResourceTypes)
	inv.Timeout = cfg.CallTimeout
	inv.Gate = gov

	return &Pipeline{
		Options: []Option{
			WithSession(client),
			WithInventory(inv),
			WithEventSource(trail),
			WithGate(gov),
		},
		Inventory: inv,
		Client:    client,
		Governor:  gov,
	}, nil
}

func mockPipeline(gov *swarm.Governor) *Pipeline {
	inv, src := aws.SeedMockData(time.Now())
	return &Pipeline{
		Options: []Option{
			WithInventory(inv),
			WithEventSource(src),
			WithGate(gov),
		},
		Inventory: inv,
		Governor:  gov,
	}
}
