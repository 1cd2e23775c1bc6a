package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv_SubstitutesVariables(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.plant.local")
	t.Setenv("TEST_DB_PORT", "5432")

	out := ExpandEnv([]byte("dsn: {{.TEST_DB_HOST}}:{{.TEST_DB_PORT}}"))
	assert.Equal(t, "dsn: db.plant.local:5432", string(out))
}

func TestExpandEnv_MissingVariableExpandsEmpty(t *testing.T) {
	out := ExpandEnv([]byte("key: {{.OPSBRIEF_DOES_NOT_EXIST}}"))
	assert.Equal(t, "key: ", string(out))
}

func TestExpandEnv_DollarSignsUntouched(t *testing.T) {
	in := []byte(`formula: "downtime_minutes * $rate / 60"`)
	assert.Equal(t, in, ExpandEnv(in))
}

func TestExpandEnv_PlainYAMLPassesThrough(t *testing.T) {
	in := []byte("plant:\n  timezone: UTC\n")
	assert.Equal(t, in, ExpandEnv(in))
}
