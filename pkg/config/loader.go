package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the main configuration file inside the config dir.
const ConfigFileName = "opsbrief.yaml"

// Initialize loads, merges, validates, and returns ready-to-use
// configuration. A missing opsbrief.yaml is not an error: built-in
// defaults apply.
//
// Steps performed:
//  1. Read opsbrief.yaml from configDir (if present)
//  2. Expand environment variables
//  3. Parse YAML into the umbrella Config
//  4. Merge built-in defaults underneath user values
//  5. Validate all sections
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.configDir = configDir

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized",
		"areas", stats.Areas,
		"assets", stats.Assets,
		"timezone", cfg.Plant.Timezone)

	return cfg, nil
}

func load(configDir string) (*Config, error) {
	cfg := &Config{}

	path := filepath.Join(configDir, ConfigFileName)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		slog.Info("No configuration file found, using built-in defaults", "path", path)
	case err != nil:
		return nil, &LoadError{File: path, Err: err}
	default:
		expanded := ExpandEnv(data)
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, &LoadError{File: path, Err: fmt.Errorf("%w: %w", ErrInvalidYAML, err)}
		}
	}

	// User values win; defaults fill the gaps.
	if err := mergo.Merge(cfg, defaults()); err != nil {
		return nil, fmt.Errorf("failed to merge defaults: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if _, err := time.LoadLocation(cfg.Plant.Timezone); err != nil {
		return NewValidationError("plant", "timezone", fmt.Errorf("%w: %q", ErrInvalidValue, cfg.Plant.Timezone))
	}
	if len(cfg.Plant.Areas) == 0 {
		return NewValidationError("plant", "areas", ErrMissingRequiredField)
	}
	seen := make(map[string]bool)
	for _, area := range cfg.Plant.Areas {
		if area.ID == "" {
			return NewValidationError("plant", "areas.id", ErrMissingRequiredField)
		}
		if seen[area.ID] {
			return NewValidationError("plant", "areas.id", fmt.Errorf("%w: duplicate %q", ErrInvalidValue, area.ID))
		}
		seen[area.ID] = true
	}

	if cfg.Actions.TargetOEEPercentage <= 0 || cfg.Actions.TargetOEEPercentage > 100 {
		return NewValidationError("actions", "target_oee_percentage", ErrInvalidValue)
	}
	if cfg.Actions.OEEMediumGapThreshold > cfg.Actions.OEEHighGapThreshold {
		return NewValidationError("actions", "oee_medium_gap_threshold",
			fmt.Errorf("%w: medium threshold exceeds high", ErrInvalidValue))
	}
	if cfg.Actions.FinancialMediumThreshold > cfg.Actions.FinancialHighThreshold {
		return NewValidationError("actions", "financial_medium_threshold",
			fmt.Errorf("%w: medium threshold exceeds high", ErrInvalidValue))
	}

	if cfg.Cache.MaxSize <= 0 {
		return NewValidationError("cache", "max_size", ErrInvalidValue)
	}
	for field, ttl := range map[string]Duration{
		"live_ttl":   cfg.Cache.LiveTTL,
		"daily_ttl":  cfg.Cache.DailyTTL,
		"static_ttl": cfg.Cache.StaticTTL,
	} {
		if ttl.D() <= 0 {
			return NewValidationError("cache", field, ErrInvalidValue)
		}
	}

	for field, d := range map[string]Duration{
		"total_timeout":            cfg.Briefing.TotalTimeout,
		"per_tool_timeout":         cfg.Briefing.PerToolTimeout,
		"area_timeout":             cfg.Briefing.AreaTimeout,
		"handoff_total_timeout":    cfg.Briefing.HandoffTotalTimeout,
		"handoff_per_tool_timeout": cfg.Briefing.HandoffPerToolTimeout,
	} {
		if d.D() <= 0 {
			return NewValidationError("briefing", field, ErrInvalidValue)
		}
	}

	g := cfg.Grounding
	for field, v := range map[string]float64{
		"threshold_min":  g.ThresholdMin,
		"threshold_high": g.ThresholdHigh,
		"threshold_low":  g.ThresholdLow,
	} {
		if v < 0 || v > 1 {
			return NewValidationError("grounding", field, ErrInvalidValue)
		}
	}
	if g.ThresholdLow > g.ThresholdMin || g.ThresholdMin > g.ThresholdHigh {
		return NewValidationError("grounding", "",
			fmt.Errorf("%w: thresholds must satisfy low <= min <= high", ErrInvalidValue))
	}

	if cfg.Recommendation.MinimumDataPoints < 1 {
		return NewValidationError("recommendation", "minimum_data_points", ErrInvalidValue)
	}
	if cfg.Recommendation.MaxRecommendations < 1 {
		return NewValidationError("recommendation", "max_recommendations", ErrInvalidValue)
	}

	for field, v := range map[string]string{
		"morning_time": cfg.Schedule.MorningTime,
		"eod_time":     cfg.Schedule.EODTime,
	} {
		if _, err := time.Parse("15:04", v); err != nil {
			return NewValidationError("schedule", field, fmt.Errorf("%w: %q", ErrInvalidValue, v))
		}
	}
	for _, b := range cfg.Schedule.ShiftBoundaries {
		if _, err := time.Parse("15:04", b); err != nil {
			return NewValidationError("schedule", "shift_boundaries", fmt.Errorf("%w: %q", ErrInvalidValue, b))
		}
	}

	return nil
}
