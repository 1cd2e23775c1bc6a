// Package config loads and validates the opsbrief configuration:
// plant topology (areas and assets), engine thresholds, cache tiers,
// orchestrator budgets, grounding thresholds, and briefing schedules.
package config

import "time"

// Config is the umbrella configuration object returned by Initialize()
// and used throughout the application.
type Config struct {
	configDir string

	Plant          *PlantConfig          `yaml:"plant"`
	Actions        *ActionsConfig        `yaml:"actions"`
	Cache          *CacheConfig          `yaml:"cache"`
	Briefing       *BriefingConfig       `yaml:"briefing"`
	Grounding      *GroundingConfig      `yaml:"grounding"`
	Recommendation *RecommendationConfig `yaml:"recommendation"`
	Schedule       *ScheduleConfig       `yaml:"schedule"`
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Location returns the plant-local time zone. Validated during
// Initialize, so the lookup cannot fail afterwards.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Plant.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Stats contains statistics about loaded configuration.
type Stats struct {
	Areas  int
	Assets int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() Stats {
	s := Stats{}
	if c.Plant != nil {
		s.Areas = len(c.Plant.Areas)
		for _, a := range c.Plant.Areas {
			s.Assets += len(a.AssetNames)
		}
	}
	return s
}

// ActionsConfig tunes the action prioritization engine.
type ActionsConfig struct {
	// TargetOEEPercentage is the plant OEE goal; summaries below it
	// enter the OEE tier.
	TargetOEEPercentage float64 `yaml:"target_oee_percentage"`

	// FinancialLossThreshold is the daily loss above which a summary
	// enters the financial tier.
	FinancialLossThreshold float64 `yaml:"financial_loss_threshold"`

	// OEE gap thresholds: gap >= high → high priority, gap >= medium
	// → medium, otherwise low.
	OEEHighGapThreshold   float64 `yaml:"oee_high_gap_threshold"`
	OEEMediumGapThreshold float64 `yaml:"oee_medium_gap_threshold"`

	// Financial loss thresholds for priority derivation.
	FinancialHighThreshold   float64 `yaml:"financial_high_threshold"`
	FinancialMediumThreshold float64 `yaml:"financial_medium_threshold"`

	// SafetyPriority is the priority label applied to every safety
	// item. Severity decides intra-tier ordering only.
	SafetyPriority string `yaml:"safety_priority"`
}

// CacheConfig tunes the tool response cache.
type CacheConfig struct {
	Enabled *bool `yaml:"enabled"`

	// MaxSize is the per-tier entry cap; LRU eviction beyond it.
	MaxSize int `yaml:"max_size"`

	LiveTTL   Duration `yaml:"live_ttl"`
	DailyTTL  Duration `yaml:"daily_ttl"`
	StaticTTL Duration `yaml:"static_ttl"`
}

// IsEnabled reports whether caching is on (default true).
func (c *CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// BriefingConfig tunes the briefing orchestrator budgets.
type BriefingConfig struct {
	TotalTimeout   Duration `yaml:"total_timeout"`
	PerToolTimeout Duration `yaml:"per_tool_timeout"`
	AreaTimeout    Duration `yaml:"area_timeout"`

	HandoffTotalTimeout   Duration `yaml:"handoff_total_timeout"`
	HandoffPerToolTimeout Duration `yaml:"handoff_per_tool_timeout"`
}

// GroundingConfig tunes the grounding validator thresholds.
type GroundingConfig struct {
	// ThresholdMin: claims at or above are grounded; responses at or
	// above pass through with citations.
	ThresholdMin float64 `yaml:"threshold_min"`
	// ThresholdHigh marks high-confidence grounding.
	ThresholdHigh float64 `yaml:"threshold_high"`
	// ThresholdLow: responses below are replaced with a refusal.
	ThresholdLow float64 `yaml:"threshold_low"`

	// ClaimBudget bounds validation work per claim.
	ClaimBudget Duration `yaml:"claim_budget"`
}

// RecommendationConfig tunes the recommendation engine.
type RecommendationConfig struct {
	MinimumDataPoints  int     `yaml:"minimum_data_points"`
	ConfidenceHigh     float64 `yaml:"confidence_high"`
	ConfidenceMedium   float64 `yaml:"confidence_medium"`
	MaxRecommendations int     `yaml:"max_recommendations"`
}

// ScheduleConfig drives the scheduled briefing workers. Times are
// "HH:MM" in plant-local time.
type ScheduleConfig struct {
	MorningTime     string   `yaml:"morning_time"`
	EODTime         string   `yaml:"eod_time"`
	ShiftBoundaries []string `yaml:"shift_boundaries"`
}
