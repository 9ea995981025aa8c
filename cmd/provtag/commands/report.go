package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/provtag/pkg/engine"
	"github.com/DrSkyle/provtag/pkg/engine/report"
	"github.com/DrSkyle/provtag/pkg/resource"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the provenance of every resource as CSV",
	Long: `Lists the inventory read-only and prints one quoted CSV line per resource:
creator, created date, lifetime, name, id, kind. Missing provenance renders
as <unknown>. Nothing is written to the provider.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg := settings
		cfg.Headless = true
		logger := engine.NewLogger(os.Stderr, cfg.JSONLogs, cfg.Verbose)

		pipe, err := engine.BuildPipeline(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialise provider: %w", err)
		}
		if pipe.Client != nil {
			if _, err := pipe.Client.VerifyIdentity(ctx); err != nil {
				return err
			}
		}

		keys := report.Keys{
			Creator:     cfg.Tags.CreatorKey,
			CreatedDate: cfg.Tags.CreatedDateKey,
			Lifetime:    cfg.Tags.LifetimeKey,
		}
		w := report.NewCSVWriter(cmd.OutOrStdout())
		if err := w.WriteHeader(); err != nil {
			return err
		}
		err = pipe.Inventory.ListResources(ctx, func(r resource.Resource) error {
			return w.Write(report.LineFor(r, keys))
		})
		if flushErr := w.Flush(); err == nil {
			err = flushErr
		}
		return err
	},
}
