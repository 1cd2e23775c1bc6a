package config

import "time"

// DefaultPlantConfig returns the built-in plant topology. Deployments
// override it in opsbrief.yaml; the defaults describe the reference
// seven-area line.
func DefaultPlantConfig() *PlantConfig {
	return &PlantConfig{
		Timezone: "UTC",
		Areas: []AreaConfig{
			{ID: "intake", Name: "Intake", AssetNames: []string{"Intake Conveyor 1", "Intake Conveyor 2", "Scale 1"}},
			{ID: "grinding", Name: "Grinding", AssetNames: []string{"Grinder 1", "Grinder 2", "Grinder 3", "Grinder 4", "Grinder 5"}},
			{ID: "mixing", Name: "Mixing", AssetNames: []string{"Mixer 1", "Mixer 2", "Batch Tank 1"}},
			{ID: "forming", Name: "Forming", AssetNames: []string{"Former 1", "Former 2", "Press 1"}},
			{ID: "packing", Name: "Packing", AssetNames: []string{"Packer 1", "Packer 2", "Packer 3", "Case Sealer 1"}},
			{ID: "palletizing", Name: "Palletizing", AssetNames: []string{"Palletizer 1", "Palletizer 2"}},
			{ID: "shipping", Name: "Shipping", AssetNames: []string{"Dock Conveyor 1", "Wrapper 1"}},
		},
	}
}

// DefaultActionsConfig returns the built-in action engine thresholds.
func DefaultActionsConfig() *ActionsConfig {
	return &ActionsConfig{
		TargetOEEPercentage:      85,
		FinancialLossThreshold:   1000,
		OEEHighGapThreshold:      15,
		OEEMediumGapThreshold:    5,
		FinancialHighThreshold:   5000,
		FinancialMediumThreshold: 2000,
		SafetyPriority:           "critical",
	}
}

// DefaultCacheConfig returns the built-in cache tiers.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		MaxSize:   1000,
		LiveTTL:   Duration(60 * time.Second),
		DailyTTL:  Duration(15 * time.Minute),
		StaticTTL: Duration(time.Hour),
	}
}

// DefaultBriefingConfig returns the built-in orchestrator budgets.
func DefaultBriefingConfig() *BriefingConfig {
	return &BriefingConfig{
		TotalTimeout:          Duration(30 * time.Second),
		PerToolTimeout:        Duration(4 * time.Second),
		AreaTimeout:           Duration(4 * time.Second),
		HandoffTotalTimeout:   Duration(15 * time.Second),
		HandoffPerToolTimeout: Duration(10 * time.Second),
	}
}

// DefaultGroundingConfig returns the built-in grounding thresholds.
func DefaultGroundingConfig() *GroundingConfig {
	return &GroundingConfig{
		ThresholdMin:  0.6,
		ThresholdHigh: 0.8,
		ThresholdLow:  0.3,
		ClaimBudget:   Duration(200 * time.Millisecond),
	}
}

// DefaultRecommendationConfig returns the built-in recommendation
// engine settings.
func DefaultRecommendationConfig() *RecommendationConfig {
	return &RecommendationConfig{
		MinimumDataPoints:  10,
		ConfidenceHigh:     0.80,
		ConfidenceMedium:   0.60,
		MaxRecommendations: 3,
	}
}

// DefaultScheduleConfig returns the built-in briefing schedule.
func DefaultScheduleConfig() *ScheduleConfig {
	return &ScheduleConfig{
		MorningTime:     "06:00",
		EODTime:         "18:00",
		ShiftBoundaries: []string{"06:00", "14:00", "22:00"},
	}
}

// defaults returns a Config populated entirely with built-ins.
func defaults() *Config {
	return &Config{
		Plant:          DefaultPlantConfig(),
		Actions:        DefaultActionsConfig(),
		Cache:          DefaultCacheConfig(),
		Briefing:       DefaultBriefingConfig(),
		Grounding:      DefaultGroundingConfig(),
		Recommendation: DefaultRecommendationConfig(),
		Schedule:       DefaultScheduleConfig(),
	}
}
