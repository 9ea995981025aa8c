package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides (PROVTAG_WINDOW_DAYS, ...).
const EnvPrefix = "PROVTAG"

// NewViper returns a viper instance seeded with defaults and wired to the
// environment. An empty cfgFile falls back to ~/.provtag.yaml when present.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return v, nil
		}
		cfgFile = filepath.Join(home, ".provtag.yaml")
		if _, err := os.Stat(cfgFile); err != nil {
			return v, nil
		}
	}

	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
	}
	return v, nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("region", d.Region)
	v.SetDefault("profile", d.Profile)
	v.SetDefault("resource_types", d.ResourceTypes)
	v.SetDefault("filter", d.Filter)
	v.SetDefault("tags.creator_key", d.Tags.CreatorKey)
	v.SetDefault("tags.created_date_key", d.Tags.CreatedDateKey)
	v.SetDefault("tags.lifetime_key", d.Tags.LifetimeKey)
	v.SetDefault("window_days", d.WindowDays)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("rate.start", d.Rate.Start)
	v.SetDefault("rate.min", d.Rate.Min)
	v.SetDefault("rate.max", d.Rate.Max)
	v.SetDefault("call_timeout", d.CallTimeout)
	v.SetDefault("dry_run", d.DryRun)
	v.SetDefault("strict", d.StrictMode)
	v.SetDefault("headless", d.Headless)
	v.SetDefault("json_logs", d.JSONLogs)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("mock", d.MockMode)
	v.SetDefault("output", d.OutputDir)
	v.SetDefault("slack_webhook", d.SlackWebhook)
	v.SetDefault("slack_channel", d.SlackChannel)
	v.SetDefault("otel_endpoint", d.OtelEndpoint)
	v.SetDefault("pushgateway", d.Pushgateway)
}
