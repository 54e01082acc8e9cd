package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
iterations: 2
duration: 500ms
min_capacities: [3, 30]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Iterations)
	assert.Equal(t, 500*time.Millisecond, cfg.Duration)
	assert.Equal(t, []int{3, 30}, cfg.MinCapacities)
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().BatchSizes, cfg.BatchSizes)
	assert.Equal(t, Default().TrialSize, cfg.TrialSize)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "Malformed", body: "iterations: [1"},
		{name: "BadDuration", body: "duration: soon"},
		{name: "ZeroIterations", body: "iterations: 0"},
		{name: "NegativeCapacity", body: "min_capacities: [4, -1]"},
		{name: "EmptyBatchSizes", body: "batch_sizes: []"},
		{name: "NegativeTrials", body: "trials: -2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
