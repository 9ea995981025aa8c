// Package config defines run settings, their defaults, and how they are
// loaded from file, environment, and flags.
package config

import (
	"fmt"
	"time"
)

// Defaults.
const (
	DefaultRegion         = "us-east-1"
	DefaultWindowDays     = 60
	DefaultWorkers        = 1
	DefaultCallTimeout    = 30 * time.Second
	DefaultCreatorKey     = "CreatedBy"
	DefaultCreatedDateKey = "CreatedDate"
	DefaultLifetimeKey    = "Lifetime"
	DefaultOutputDir      = "provtag-out"

	// CloudTrail LookupEvents is limited to 2 requests/sec per account and region.
	DefaultRate    = 2.0
	DefaultRateMin = 0.25
	DefaultRateMax = 2.0
)

// TagConfig names the reserved keys written onto resources.
type TagConfig struct {
	CreatorKey     string `mapstructure:"creator_key"`
	CreatedDateKey string `mapstructure:"created_date_key"`
	// LifetimeKey is passed through to the report untouched.
	LifetimeKey string `mapstructure:"lifetime_key"`
}

// RateConfig bounds the shared call rate against the provider.
type RateConfig struct {
	Start float64 `mapstructure:"start"`
	Min   float64 `mapstructure:"min"`
	Max   float64 `mapstructure:"max"`
}

// Config holds everything a run needs.
type Config struct {
	Region        string   `mapstructure:"region"`
	Profile       string   `mapstructure:"profile"`
	ResourceTypes []string `mapstructure:"resource_types"`
	// Filter is a CEL expression selecting which resources to reconcile.
	Filter string `mapstructure:"filter"`

	Tags        TagConfig     `mapstructure:"tags"`
	WindowDays  int           `mapstructure:"window_days"`
	Workers     int           `mapstructure:"workers"`
	Rate        RateConfig    `mapstructure:"rate"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`

	DryRun     bool `mapstructure:"dry_run"`
	StrictMode bool `mapstructure:"strict"`
	Headless   bool `mapstructure:"headless"`
	JSONLogs   bool `mapstructure:"json_logs"`
	Verbose    bool `mapstructure:"verbose"`
	MockMode   bool `mapstructure:"mock"`

	// OutputDir is a local directory or an s3://bucket/prefix target.
	OutputDir    string `mapstructure:"output"`
	SlackWebhook string `mapstructure:"slack_webhook"`
	SlackChannel string `mapstructure:"slack_channel"`
	OtelEndpoint string `mapstructure:"otel_endpoint"`
	Pushgateway  string `mapstructure:"pushgateway"`
}

// Default returns a configuration with the documented defaults.
func Default() Config {
	return Config{
		Region: DefaultRegion,
		Tags: TagConfig{
			CreatorKey:     DefaultCreatorKey,
			CreatedDateKey: DefaultCreatedDateKey,
			LifetimeKey:    DefaultLifetimeKey,
		},
		WindowDays: DefaultWindowDays,
		Workers:    DefaultWorkers,
		Rate: RateConfig{
			Start: DefaultRate,
			Min:   DefaultRateMin,
			Max:   DefaultRateMax,
		},
		CallTimeout: DefaultCallTimeout,
		OutputDir:   DefaultOutputDir,
	}
}

// Window returns the audit lookback window.
func (c Config) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.WindowDays <= 0:
		return fmt.Errorf("window_days must be positive, got %d", c.WindowDays)
	case c.Workers <= 0:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.Rate.Min <= 0 || c.Rate.Start <= 0 || c.Rate.Max <= 0:
		return fmt.Errorf("rate limits must be positive")
	case c.Rate.Min > c.Rate.Max:
		return fmt.Errorf("rate.min (%.2f) exceeds rate.max (%.2f)", c.Rate.Min, c.Rate.Max)
	case c.CallTimeout <= 0:
		return fmt.Errorf("call_timeout must be positive")
	case c.Tags.CreatorKey == "" || c.Tags.CreatedDateKey == "":
		return fmt.Errorf("reserved tag keys must be set")
	case c.Tags.CreatorKey == c.Tags.CreatedDateKey:
		return fmt.Errorf("creator and created-date keys must differ")
	}
	return nil
}
