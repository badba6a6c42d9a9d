package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// BoundaryMode selects how a segment's close timestamp is computed when a
// tolerated run of rejected samples finally exceeds the tolerance.
type BoundaryMode string

const (
	// BoundaryLastValid closes at the timestamp of the last accepted sample.
	BoundaryLastValid BoundaryMode = "last-valid"
	// BoundaryCompat reproduces the historical frame-index subtraction, which
	// drifts when sample_stride > 1. Kept so output stays comparable with
	// earlier runs.
	BoundaryCompat BoundaryMode = "compat"
)

// Config holds all application configuration
type Config struct {
	// Output settings
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR"`

	// Quality predicate thresholds
	Quality QualityConfig `yaml:"quality"`

	// Sampling and segmentation
	Sampling SamplingConfig `yaml:"sampling"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Detector worker settings
	Detector DetectorConfig `yaml:"detector"`

	// Metrics settings
	MetricsListen string `yaml:"metrics_listen" env:"METRICS_LISTEN"`
}

type QualityConfig struct {
	FaceSizeThreshold float64 `yaml:"face_size_threshold" env:"FACE_SIZE_THRESHOLD"`
	YawThreshold      float64 `yaml:"yaw_threshold" env:"YAW_THRESHOLD"`
	PitchThreshold    float64 `yaml:"pitch_threshold" env:"PITCH_THRESHOLD"`
	RollThreshold     float64 `yaml:"roll_threshold" env:"ROLL_THRESHOLD"`
	AllowedFaceCount  int     `yaml:"allowed_face_count" env:"ALLOWED_FACE_COUNT"`
	DetScoreThreshold float64 `yaml:"det_score_threshold" env:"DET_SCORE_THRESHOLD"`
}

type SamplingConfig struct {
	SampleStride    int          `yaml:"sample_stride" env:"SAMPLE_STRIDE"`
	MinClipDuration float64      `yaml:"min_clip_duration" env:"MIN_CLIP_DURATION"`
	Tolerance       int          `yaml:"tolerance" env:"TOLERANCE"`
	ForcedFPS       float64      `yaml:"forced_fps" env:"FORCED_FPS"`
	BoundaryMode    BoundaryMode `yaml:"boundary_mode" env:"BOUNDARY_MODE"`
}

type FFmpegConfig struct {
	BinaryPath  string `yaml:"binary_path"`
	ProbePath   string `yaml:"probe_path"`
	Threads     int    `yaml:"threads"`
	TrimTimeout int    `yaml:"trim_timeout"` // seconds, per trim invocation
}

type DetectorConfig struct {
	Python string `yaml:"python"`
	Script string `yaml:"script"`
}

// Load reads configuration from file, applies environment overrides, or
// returns defaults when no file exists.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "CLIPSIEVE_"}); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		OutputDir: ".",
		Quality: QualityConfig{
			FaceSizeThreshold: 0.0,
			YawThreshold:      45,
			PitchThreshold:    30,
			RollThreshold:     15,
			AllowedFaceCount:  1,
			DetScoreThreshold: 0.8,
		},
		Sampling: SamplingConfig{
			SampleStride:    9,
			MinClipDuration: 2.0,
			Tolerance:       3,
			ForcedFPS:       0,
			BoundaryMode:    BoundaryLastValid,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath:  "ffmpeg",
			ProbePath:   "ffprobe",
			Threads:     0,
			TrimTimeout: 120,
		},
		Detector: DetectorConfig{
			Python: "python3",
			Script: "python/face_worker.py",
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./clipsieve.yaml",
		"./clipsieve.yml",
		filepath.Join(os.Getenv("HOME"), ".clipsieve", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
