/*
Package config loads engine configuration from TOML.

PURPOSE:
  Collects every tunable the engine exposes - HTTP address, database path,
  the eligibility threshold, trust window and weights, suspension thresholds
  and durations, sweeper cadence - into one struct with documented defaults.
  Operators override only what they need; Default() is a complete, runnable
  configuration on its own.

WHY TOML?
  - Human-editable without code changes
  - Comments survive in the file (unlike JSON)
  - Flat enough to diff in deploy reviews

USAGE:
  cfg := config.Default()

  // or from a file, keeping defaults for anything unset
  cfg, err := config.Load("./engine.toml")

SEE ALSO:
  - credit/eligibility.go: consumes Credit.MinEngagementScore
  - trust/escalator.go: consumes Trust thresholds and durations
  - api/sweeper.go: consumes Sweeper cadence
*/
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/techizeBuilder/Decision-Maker-sub003/engine"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Credit  CreditConfig  `toml:"credit"`
	Trust   TrustConfig   `toml:"trust"`
	Sweeper SweeperConfig `toml:"sweeper"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `toml:"driver"`
	// Path is the SQLite database file; ":memory:" for ephemeral.
	Path string `toml:"path"`
}

// CreditConfig tunes referral credit awarding.
type CreditConfig struct {
	// MinEngagementScore is the inclusive eligibility threshold.
	MinEngagementScore int `toml:"min_engagement_score"`
}

// TrustConfig tunes flag aggregation and suspension escalation.
type TrustConfig struct {
	// WindowDays is the trailing window flags are scored over.
	WindowDays int `toml:"window_days"`

	// Severity weights.
	WeightLow      int `toml:"weight_low"`
	WeightMedium   int `toml:"weight_medium"`
	WeightHigh     int `toml:"weight_high"`
	WeightCritical int `toml:"weight_critical"`

	// Escalation thresholds (inclusive).
	ShortThreshold int `toml:"short_threshold"`
	LongThreshold  int `toml:"long_threshold"`

	// Suspension durations.
	ShortDays int `toml:"short_days"`
	LongDays  int `toml:"long_days"`
}

// SweeperConfig controls the pool rollover sweeper.
type SweeperConfig struct {
	Enabled bool `toml:"enabled"`
	// IntervalMinutes is how often pools are checked for a lapsed period.
	IntervalMinutes int `toml:"interval_minutes"`
}

// Default returns a complete configuration with production defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "./data/engine.db",
		},
		Credit: CreditConfig{
			MinEngagementScore: 40,
		},
		Trust: TrustConfig{
			WindowDays:     30,
			WeightLow:      1,
			WeightMedium:   2,
			WeightHigh:     3,
			WeightCritical: 5,
			ShortThreshold: 6,
			LongThreshold:  12,
			ShortDays:      7,
			LongDays:       90,
		},
		Sweeper: SweeperConfig{
			Enabled:         true,
			IntervalMinutes: 60,
		},
	}
}

// Load reads a TOML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	switch c.Storage.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("storage.driver must be sqlite or memory, got %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "sqlite" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path must be set for the sqlite driver")
	}
	if c.Credit.MinEngagementScore < 0 || c.Credit.MinEngagementScore > 100 {
		return fmt.Errorf("credit.min_engagement_score must be 0-100, got %d", c.Credit.MinEngagementScore)
	}
	if c.Trust.WindowDays <= 0 {
		return fmt.Errorf("trust.window_days must be positive, got %d", c.Trust.WindowDays)
	}
	if c.Trust.ShortThreshold <= 0 || c.Trust.LongThreshold <= c.Trust.ShortThreshold {
		return fmt.Errorf("trust thresholds must satisfy 0 < short < long, got short=%d long=%d",
			c.Trust.ShortThreshold, c.Trust.LongThreshold)
	}
	if c.Trust.ShortDays <= 0 || c.Trust.LongDays <= c.Trust.ShortDays {
		return fmt.Errorf("trust durations must satisfy 0 < short_days < long_days, got short=%d long=%d",
			c.Trust.ShortDays, c.Trust.LongDays)
	}
	if c.Sweeper.Enabled && c.Sweeper.IntervalMinutes <= 0 {
		return fmt.Errorf("sweeper.interval_minutes must be positive when enabled, got %d", c.Sweeper.IntervalMinutes)
	}
	return nil
}

// Window returns the trailing flag window as a duration.
func (c TrustConfig) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

// ShortDuration returns the short suspension length.
func (c TrustConfig) ShortDuration() time.Duration {
	return time.Duration(c.ShortDays) * 24 * time.Hour
}

// LongDuration returns the long suspension length.
func (c TrustConfig) LongDuration() time.Duration {
	return time.Duration(c.LongDays) * 24 * time.Hour
}

// Weights returns the severity weight map in the engine's domain type.
func (c TrustConfig) Weights() map[engine.Severity]int {
	return map[engine.Severity]int{
		engine.SeverityLow:      c.WeightLow,
		engine.SeverityMedium:   c.WeightMedium,
		engine.SeverityHigh:     c.WeightHigh,
		engine.SeverityCritical: c.WeightCritical,
	}
}

// Interval returns the sweeper tick interval.
func (c SweeperConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}
