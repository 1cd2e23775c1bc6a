package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o600))
	return dir
}

func TestInitialize_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.Plant.Timezone)
	assert.Len(t, cfg.Plant.Areas, 7)
	assert.Equal(t, float64(85), cfg.Actions.TargetOEEPercentage)
	assert.Equal(t, float64(1000), cfg.Actions.FinancialLossThreshold)
	assert.Equal(t, 60*time.Second, cfg.Cache.LiveTTL.D())
	assert.Equal(t, 15*time.Minute, cfg.Cache.DailyTTL.D())
	assert.Equal(t, time.Hour, cfg.Cache.StaticTTL.D())
	assert.Equal(t, 30*time.Second, cfg.Briefing.TotalTimeout.D())
	assert.Equal(t, 0.6, cfg.Grounding.ThresholdMin)
	assert.Equal(t, 10, cfg.Recommendation.MinimumDataPoints)
	assert.True(t, cfg.Cache.IsEnabled())
}

func TestInitialize_UserValuesOverrideDefaults(t *testing.T) {
	dir := writeConfig(t, `
plant:
  timezone: America/Chicago
actions:
  target_oee_percentage: 90
cache:
  enabled: false
  daily_ttl: 5m
briefing:
  total_timeout: 45s
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "America/Chicago", cfg.Plant.Timezone)
	assert.Equal(t, float64(90), cfg.Actions.TargetOEEPercentage)
	assert.False(t, cfg.Cache.IsEnabled())
	assert.Equal(t, 5*time.Minute, cfg.Cache.DailyTTL.D())
	assert.Equal(t, 45*time.Second, cfg.Briefing.TotalTimeout.D())

	// Untouched sections keep defaults.
	assert.Equal(t, float64(1000), cfg.Actions.FinancialLossThreshold)
	assert.Len(t, cfg.Plant.Areas, 7)
}

func TestInitialize_DurationAsSeconds(t *testing.T) {
	dir := writeConfig(t, `
cache:
  live_ttl: 120
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Cache.LiveTTL.D())
}

func TestInitialize_EnvExpansion(t *testing.T) {
	t.Setenv("PLANT_TZ", "Europe/Berlin")
	dir := writeConfig(t, `
plant:
  timezone: "{{.PLANT_TZ}}"
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", cfg.Plant.Timezone)
}

func TestInitialize_InvalidTimezone(t *testing.T) {
	dir := writeConfig(t, `
plant:
  timezone: Mars/Olympus
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestInitialize_InvalidYAML(t *testing.T) {
	dir := writeConfig(t, "plant: [unclosed")

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitialize_DuplicateAreaIDs(t *testing.T) {
	dir := writeConfig(t, `
plant:
  timezone: UTC
  areas:
    - id: grinding
      name: Grinding
      asset_names: [Grinder 1]
    - id: grinding
      name: Grinding Again
      asset_names: [Grinder 2]
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestInitialize_ThresholdOrdering(t *testing.T) {
	dir := writeConfig(t, `
grounding:
  threshold_min: 0.9
  threshold_high: 0.5
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestConfig_Location(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cfg.Location())
}
