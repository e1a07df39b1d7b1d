package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"BAROTRACE_DATA_DIR", "BAROTRACE_OUTPUT_DIR", "BAROTRACE_JOBS", "BAROTRACE_TZ"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "./dataFiles/", cfg.DataDir)
	assert.Equal(t, "./output/", cfg.OutputDir)
	assert.Equal(t, 4, cfg.Jobs)
	assert.Equal(t, time.Local, cfg.Location)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BAROTRACE_OUTPUT_DIR", "/tmp/out")
	t.Setenv("BAROTRACE_JOBS", "8")
	t.Setenv("BAROTRACE_TZ", "UTC")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, 8, cfg.Jobs)
	assert.Equal(t, "UTC", cfg.Location.String())

	t.Setenv("BAROTRACE_JOBS", "zero")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestArg(t *testing.T) {
	args := []string{"a", ""}
	assert.Equal(t, "a", Arg(args, 0, "def"))
	assert.Equal(t, "def", Arg(args, 1, "def"))
	assert.Equal(t, "def", Arg(args, 2, "def"))
}
