package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/DrSkyle/provtag/pkg/config"
	"github.com/DrSkyle/provtag/pkg/version"
)

var (
	cfgFile  string
	settings = config.Default()
)

// flagKeys maps persistent flags onto their config keys.
var flagKeys = map[string]string{
	"region":           "region",
	"profile":          "profile",
	"resource-type":    "resource_types",
	"filter":           "filter",
	"creator-key":      "tags.creator_key",
	"created-date-key": "tags.created_date_key",
	"lifetime-key":     "tags.lifetime_key",
	"window-days":      "window_days",
	"workers":          "workers",
	"call-timeout":     "call_timeout",
	"dry-run":          "dry_run",
	"strict":           "strict",
	"headless":         "headless",
	"json-logs":        "json_logs",
	"verbose":          "verbose",
	"output":           "output",
	"slack-webhook":    "slack_webhook",
	"slack-channel":    "slack_channel",
	"otel-endpoint":    "otel_endpoint",
	"pushgateway":      "pushgateway",
	"mock":             "mock",
}

var rootCmd = &cobra.Command{
	Use:   version.AppName,
	Short: "Provenance reconciliation for cloud resources",
	Long: `provtag - Creator and creation-date tags for every resource

Resolve. Attribute. Tag.`,
	Version:           version.Current,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	d := config.Default()
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&cfgFile, "config", "", "Config file (default $HOME/.provtag.yaml)")
	pf.String("region", d.Region, "AWS Region")
	pf.String("profile", d.Profile, "AWS shared config profile")
	pf.StringSlice("resource-type", d.ResourceTypes, "Limit listing to resource types (e.g. ec2:instance)")
	pf.String("filter", d.Filter, "CEL expression selecting resources to reconcile")
	pf.String("creator-key", d.Tags.CreatorKey, "Tag key holding the creator")
	pf.String("created-date-key", d.Tags.CreatedDateKey, "Tag key holding the creation date")
	pf.String("lifetime-key", d.Tags.LifetimeKey, "Tag key reported as lifetime")
	pf.Int("window-days", d.WindowDays, "Audit history window in days")
	pf.Int("workers", d.Workers, "Resources reconciled in parallel")
	pf.Duration("call-timeout", d.CallTimeout, "Timeout for each provider call")
	pf.Bool("dry-run", d.DryRun, "Resolve provenance without writing tags")
	pf.Bool("strict", d.StrictMode, "Exit non-zero when any resource fails")
	pf.Bool("headless", d.Headless, "Run without TUI (for CI/CD)")
	pf.Bool("json-logs", d.JSONLogs, "Emit JSON logs")
	pf.BoolP("verbose", "v", d.Verbose, "Log every API call")
	pf.String("output", d.OutputDir, "Artifact directory or s3://bucket/prefix")
	pf.String("slack-webhook", d.SlackWebhook, "Slack Webhook URL for run summaries")
	pf.String("slack-channel", d.SlackChannel, "Override Slack Channel")
	pf.String("otel-endpoint", d.OtelEndpoint, "OTLP HTTP endpoint for traces")
	pf.String("pushgateway", d.Pushgateway, "Prometheus Pushgateway URL for run metrics")

	// Hidden Flags
	pf.Bool("mock", d.MockMode, "Run in Mock Mode")
	_ = pf.MarkHidden("mock")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(permissionsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadSettings layers defaults, config file, environment, and flags.
func loadSettings(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	settings = loaded
	return nil
}

func renderHelp(cmd *cobra.Command) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00FF99")).
		MarginBottom(1)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	fmt.Println(titleStyle.Render(fmt.Sprintf("PROVTAG %s", version.Current)))
	fmt.Println("Creator and creation-date tags for every AWS resource.")

	fmt.Println(titleStyle.Render("USAGE"))
	fmt.Printf("  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Println(titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Printf("  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Println("")
	}

	fmt.Println(titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-17s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "[]" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Println(flagStyle.Render(output))
	})
	fmt.Println("")
}
