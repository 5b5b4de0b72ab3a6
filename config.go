// Package zoneward is the public facade of the spatial-containment engine:
// construction, mutation, and the per-tick drive loop over the zone/track/
// observe/sched packages (spec §6 External Interfaces).
package zoneward

import (
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

// Config holds the tunables that shape a new Engine. The zero value is
// usable; New applies sensible defaults the same way the teacher's
// redstone.Config.withDefaults() does.
type Config struct {
	// Logger receives structured warnings: budget overruns (sched package)
	// and recovered callback panics (observe package). Defaults to
	// slog.Default().
	Logger *slog.Logger
	// FrameBudget is the scheduler's wall-clock ceiling per tick (spec §6
	// setFrameBudget, default 1ms).
	FrameBudget time.Duration
	// Clock supplies the monotonic time source driving the scheduler.
	// Defaults to time.Now.
	Clock func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.FrameBudget <= 0 {
		c.FrameBudget = time.Millisecond
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// fileConfig is the TOML-decodable shape of an on-disk configuration file,
// mirroring the teacher's own TOML-based server configuration.
type fileConfig struct {
	FrameBudgetMillis float64 `toml:"frame_budget_ms"`
	LogLevel          string  `toml:"log_level"`
}

// LoadConfig reads a TOML configuration file and returns the Config it
// describes (spec §6's ambient configuration surface). A missing or
// non-positive frame_budget_ms leaves FrameBudget at zero, which New's
// withDefaults then resolves to 1ms.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return Config{}, err
	}
	var cfg Config
	if fc.FrameBudgetMillis > 0 {
		cfg.FrameBudget = time.Duration(fc.FrameBudgetMillis * float64(time.Millisecond))
	}
	if fc.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(fc.LogLevel)); err == nil {
			cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		}
	}
	return cfg, nil
}
