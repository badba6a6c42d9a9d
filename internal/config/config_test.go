package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Quality.AllowedFaceCount)
	assert.Equal(t, 0.8, cfg.Quality.DetScoreThreshold)
	assert.Equal(t, 45.0, cfg.Quality.YawThreshold)
	assert.Equal(t, 3, cfg.Sampling.Tolerance)
	assert.Equal(t, 2.0, cfg.Sampling.MinClipDuration)
	assert.Equal(t, BoundaryLastValid, cfg.Sampling.BoundaryMode)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipsieve.yaml")
	data := []byte(`
output_dir: /clips
quality:
  allowed_face_count: 2
  yaw_threshold: 30
sampling:
  tolerance: 5
  boundary_mode: compat
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/clips", cfg.OutputDir)
	assert.Equal(t, 2, cfg.Quality.AllowedFaceCount)
	assert.Equal(t, 30.0, cfg.Quality.YawThreshold)
	assert.Equal(t, 5, cfg.Sampling.Tolerance)
	assert.Equal(t, BoundaryCompat, cfg.Sampling.BoundaryMode)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.8, cfg.Quality.DetScoreThreshold)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipsieve.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sampling:\n  tolerance: 5\n"), 0644))

	t.Setenv("CLIPSIEVE_TOLERANCE", "7")
	t.Setenv("CLIPSIEVE_OUTPUT_DIR", "/env/clips")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Sampling.Tolerance)
	assert.Equal(t, "/env/clips", cfg.OutputDir)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Sampling.SampleStride = 4
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Sampling.SampleStride)
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"face size above one", func(c *Config) { c.Quality.FaceSizeThreshold = 1.5 }},
		{"face size negative", func(c *Config) { c.Quality.FaceSizeThreshold = -0.1 }},
		{"det score above one", func(c *Config) { c.Quality.DetScoreThreshold = 2 }},
		{"zero face count", func(c *Config) { c.Quality.AllowedFaceCount = 0 }},
		{"yaw zero", func(c *Config) { c.Quality.YawThreshold = 0 }},
		{"pitch above 180", func(c *Config) { c.Quality.PitchThreshold = 181 }},
		{"roll negative", func(c *Config) { c.Quality.RollThreshold = -15 }},
		{"negative stride", func(c *Config) { c.Sampling.SampleStride = -1 }},
		{"zero min duration", func(c *Config) { c.Sampling.MinClipDuration = 0 }},
		{"negative tolerance", func(c *Config) { c.Sampling.Tolerance = -1 }},
		{"negative forced fps", func(c *Config) { c.Sampling.ForcedFPS = -30 }},
		{"unknown boundary mode", func(c *Config) { c.Sampling.BoundaryMode = "middle" }},
		{"zero trim timeout", func(c *Config) { c.FFmpeg.TrimTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	cfg := defaultConfig()
	cfg.Sampling.Tolerance = 9

	ctx := WithConfig(context.Background(), cfg)
	got := FromContext(ctx)

	assert.Equal(t, 9, got.Sampling.Tolerance)
}
