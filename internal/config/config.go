package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/keagan/beatcut/internal/beat"
	"github.com/keagan/beatcut/internal/ffmpeg"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	TempDir     string `yaml:"temp_dir"`
	Concurrency int    `yaml:"concurrency"`

	FFmpeg     FFmpegConfig     `yaml:"ffmpeg"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Generation GenerationConfig `yaml:"generation"`
	Cache      CacheConfig      `yaml:"cache"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
	VideoCodec string `yaml:"video_codec"`
	AudioCodec string `yaml:"audio_codec"`
}

type AnalysisConfig struct {
	SampleRate int `yaml:"sample_rate"`
	FFTSize    int `yaml:"fft_size"`
	HopSize    int `yaml:"hop_size"`
	// Categories overrides Preset when set, e.g. "kick,bass". With neither
	// set the selection is kick and snare.
	Categories   string `yaml:"categories"`
	Preset       string `yaml:"preset"`
	FullTimeline bool   `yaml:"full_timeline"`
	// Seed 0 draws a fresh seed per plan
	Seed uint64 `yaml:"seed"`
}

type GenerationConfig struct {
	MixClipAudio    bool    `yaml:"mix_clip_audio"`
	MixVolume       float64 `yaml:"mix_volume"`
	Filter          string  `yaml:"filter"`
	FilterIntensity float64 `yaml:"filter_intensity"`
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	FPS             float64 `yaml:"fps"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from file or returns defaults. Environment
// overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
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

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		TempDir:     os.TempDir(),
		Concurrency: 4,
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     ffmpeg.DefaultPreset,
			CRF:        ffmpeg.DefaultCRF,
			VideoCodec: ffmpeg.DefaultVideoCodec,
			AudioCodec: ffmpeg.DefaultAudioCodec,
		},
		Analysis: AnalysisConfig{
			SampleRate:   44100,
			FFTSize:      512,
			HopSize:      512,
			FullTimeline: true,
		},
		Generation: GenerationConfig{
			MixClipAudio:    true,
			MixVolume:       0.3,
			Filter:          string(ffmpeg.FilterNone),
			FilterIntensity: 0.5,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("BEATCUT_TEMP_DIR"); ok {
		c.TempDir = v
	}
	if v, ok := lookup("BEATCUT_FFMPEG"); ok {
		c.FFmpeg.BinaryPath = v
	}
	if v, ok := lookup("BEATCUT_FFPROBE"); ok {
		c.FFmpeg.ProbePath = v
	}
	if v, ok := lookup("BEATCUT_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BEATCUT_CONCURRENCY: %w", err)
		}
		c.Concurrency = n
	}
	if v, ok := lookup("BEATCUT_SEED"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("BEATCUT_SEED: %w", err)
		}
		c.Analysis.Seed = n
	}
	if v, ok := lookup("BEATCUT_MIX_VOLUME"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BEATCUT_MIX_VOLUME: %w", err)
		}
		c.Generation.MixVolume = f
	}
	return nil
}

// Categories resolves the analysis category selection
func (c *Config) Categories() ([]beat.Category, error) {
	if c.Analysis.Categories != "" {
		return beat.ParseCategories(c.Analysis.Categories)
	}
	if c.Analysis.Preset == "" {
		return beat.DefaultSelection(), nil
	}
	return beat.Preset(c.Analysis.Preset).Categories()
}

// Validate reports every invalid setting
func (c *Config) Validate() error {
	var errs []error

	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if n := c.Analysis.FFTSize; n < 2 || n&(n-1) != 0 {
		errs = append(errs, fmt.Errorf("analysis.fft_size must be a power of two, got %d", n))
	}
	if c.Analysis.HopSize <= 0 {
		errs = append(errs, fmt.Errorf("analysis.hop_size must be positive, got %d", c.Analysis.HopSize))
	}
	if c.Analysis.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("analysis.sample_rate must be positive, got %d", c.Analysis.SampleRate))
	}
	if _, err := c.Categories(); err != nil {
		errs = append(errs, fmt.Errorf("analysis categories: %w", err))
	}
	if v := c.Generation.MixVolume; v < 0 || v > 1 {
		errs = append(errs, fmt.Errorf("generation.mix_volume must be in [0,1], got %g", v))
	}
	if v := c.Generation.FilterIntensity; v < 0 || v > 1 {
		errs = append(errs, fmt.Errorf("generation.filter_intensity must be in [0,1], got %g", v))
	}
	if _, err := ffmpeg.ParseFilterKind(c.Generation.Filter); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func findConfigFile() string {
	candidates := []string{
		"./beatcut.yaml",
		"./beatcut.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".beatcut", "config.yaml"))
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
	return Default()
}
