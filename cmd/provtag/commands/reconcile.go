package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/DrSkyle/provtag/pkg/config"
	"github.com/DrSkyle/provtag/pkg/engine"
	"github.com/DrSkyle/provtag/pkg/engine/notifier"
	"github.com/DrSkyle/provtag/pkg/engine/report"
	"github.com/DrSkyle/provtag/pkg/resource"
	"github.com/DrSkyle/provtag/pkg/storage"
	"github.com/DrSkyle/provtag/pkg/telemetry"
	"github.com/DrSkyle/provtag/pkg/tui"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Resolve provenance and tag untagged resources",
	Long: `Lists every resource in the region, mines the audit trail for the first
human caller of each untagged resource, and writes creator and creation-date
tags. Resources already carrying the creator tag are left alone.

Use --headless for headless mode.

Example:
  provtag reconcile
  provtag reconcile --headless --region eu-west-1 --workers 4
  provtag reconcile --dry-run --filter 'kind == "ec2:instance"'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcile(cmd.Context(), settings)
	},
}

func runReconcile(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, closeLog, err := runLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	pipe, err := engine.BuildPipeline(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialise provider: %w", err)
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithConfig(engine.ConfigFrom(cfg)),
	}
	opts = append(opts, pipe.Options...)

	var prog *tea.Program
	if !cfg.Headless {
		prog = tea.NewProgram(tui.NewModel(cfg.Region, cfg.DryRun))
		opts = append(opts, engine.WithObserver(func(o resource.Outcome) {
			prog.Send(tui.OutcomeMsg(o))
		}))
	}

	eng, err := engine.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	sum, runErr := execute(ctx, eng, prog)
	if sum == nil {
		return runErr
	}

	report.PrintSummary(os.Stdout, sum)
	publish(ctx, cfg, pipe, eng, sum, logger)
	return runErr
}

// execute runs the engine, behind the TUI when one is attached. Quitting
// the TUI early cancels the run and waits for it to unwind.
func execute(ctx context.Context, eng *engine.Engine, prog *tea.Program) (*report.Summary, error) {
	if prog == nil {
		return eng.Reconcile(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		sum    *report.Summary
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sum, runErr = eng.Reconcile(runCtx)
		prog.Send(tui.DoneMsg{Summary: sum, Err: runErr})
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
		<-done
		return sum, fmt.Errorf("TUI failed: %w", err)
	}
	cancel()
	<-done
	return sum, runErr
}

// publish writes artifacts and sends notifications. Failures are logged;
// they never change the run's exit status.
func publish(ctx context.Context, cfg config.Config, pipe *engine.Pipeline, eng *engine.Engine, sum *report.Summary, logger *slog.Logger) {
	var awsCfg *awssdk.Config
	if pipe.Client != nil {
		awsCfg = &pipe.Client.Config
	}

	if cfg.OutputDir != "" {
		store, err := storage.Open(cfg.OutputDir, awsCfg)
		if err != nil {
			logger.Warn("Artifact target unavailable", "error", err)
		} else {
			paths, err := eng.WriteArtifacts(ctx, sum, store, cfg.Tags.LifetimeKey)
			for _, p := range paths {
				fmt.Printf("[SUCCESS] Artifact written: %s\n", p)
			}
			if err != nil {
				fmt.Printf("[WARN] Some artifacts were not written: %v\n", err)
			}
		}
	}

	if cfg.SlackWebhook != "" {
		slack := notifier.NewSlackClient(cfg.SlackWebhook, cfg.SlackChannel)
		if err := slack.SendRunSummary(ctx, sum); err != nil {
			logger.Warn("Slack notification failed", "error", err)
		}
	}

	if cfg.Pushgateway != "" {
		m := telemetry.NewRunMetrics()
		m.Observe(sum, pipe.Governor.Rate())
		if err := m.Push(ctx, cfg.Pushgateway, cfg.Region); err != nil {
			logger.Warn("Metrics push failed", "error", err)
		}
	}
}

// runLogger returns the logger for this run. Interactive runs log to a file
// so the TUI owns the terminal.
func runLogger(cfg config.Config) (*slog.Logger, func(), error) {
	if cfg.Headless {
		return engine.NewLogger(os.Stderr, cfg.JSONLogs, cfg.Verbose), func() {}, nil
	}

	path := filepath.Join(os.TempDir(), "provtag.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return engine.NewLogger(io.Discard, cfg.JSONLogs, cfg.Verbose), func() {}, nil
		}
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return engine.NewLogger(f, cfg.JSONLogs, cfg.Verbose), func() { _ = f.Close() }, nil
}
