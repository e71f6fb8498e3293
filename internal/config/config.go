package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Audio     AudioConfig     `yaml:"audio"`
	Features  FeaturesConfig  `yaml:"features"`
	Decode    DecodeConfig    `yaml:"decode"`
	Inference InferenceConfig `yaml:"inference"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// AudioConfig contains the audio front-end parameters
type AudioConfig struct {
	SampleRate int     `yaml:"sample_rate"`
	TargetPeak float64 `yaml:"target_peak"` // inference normalization peak
	Amplify    bool    `yaml:"amplify"`     // pre-inference amplification
	TargetAmp  float64 `yaml:"target_amp"`  // amplification target amplitude
	Dither     bool    `yaml:"dither"`
}

// FeaturesConfig contains log-mel feature extraction geometry.
// These values are part of the pretrained model's preprocessing contract
// and must match it exactly.
type FeaturesConfig struct {
	NFft      int     `yaml:"n_fft"`
	WinLength int     `yaml:"win_length"` // samples
	HopLength int     `yaml:"hop_length"` // samples
	NMels     int     `yaml:"n_mels"`
	FMin      float64 `yaml:"f_min"` // Hz
	FMax      float64 `yaml:"f_max"` // Hz
	PadTo     int     `yaml:"pad_to"`
}

// DecodeConfig contains CTC decoding configuration
type DecodeConfig struct {
	VocabPath      string `yaml:"vocab_path"`
	BlankIndex     int    `yaml:"blank_index"` // -1 tries both 0 and V-1, keeps the longer decode
	BoundaryMarker string `yaml:"boundary_marker"`
}

// InferenceConfig contains model server client configuration
type InferenceConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyDefaults fills unset optional values
func (c *Config) applyDefaults() {
	if c.Audio.TargetPeak == 0 {
		c.Audio.TargetPeak = 0.95
	}
	if c.Audio.TargetAmp == 0 {
		c.Audio.TargetAmp = 0.3
	}
	if c.Features.PadTo == 0 {
		c.Features.PadTo = 16
	}
	if c.Decode.BoundaryMarker == "" {
		c.Decode.BoundaryMarker = "|"
	}
	if c.Inference.Timeout == 0 {
		c.Inference.Timeout = 30
	}
	if c.Inference.MaxConcurrent == 0 {
		c.Inference.MaxConcurrent = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Features.Validate(); err != nil {
		return fmt.Errorf("features config: %w", err)
	}

	if err := c.Decode.Validate(); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if err := c.Inference.Validate(); err != nil {
		return fmt.Errorf("inference config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", a.SampleRate)
	}

	if a.TargetPeak <= 0 || a.TargetPeak > 1 {
		return fmt.Errorf("target_peak must be in (0, 1], got %f", a.TargetPeak)
	}

	if a.TargetAmp <= 0 {
		return fmt.Errorf("target_amp must be positive, got %f", a.TargetAmp)
	}

	return nil
}

// Validate validates feature extraction configuration
func (f *FeaturesConfig) Validate() error {
	if f.NFft <= 0 || f.NFft&(f.NFft-1) != 0 {
		return fmt.Errorf("n_fft must be a positive power of two, got %d", f.NFft)
	}

	if f.WinLength <= 1 {
		return fmt.Errorf("win_length must be greater than 1, got %d", f.WinLength)
	}

	if f.WinLength > f.NFft {
		return fmt.Errorf("win_length (%d) must not exceed n_fft (%d)", f.WinLength, f.NFft)
	}

	if f.HopLength <= 0 {
		return fmt.Errorf("hop_length must be positive, got %d", f.HopLength)
	}

	if f.NMels <= 0 {
		return fmt.Errorf("n_mels must be positive, got %d", f.NMels)
	}

	if f.FMin < 0 || f.FMax <= f.FMin {
		return fmt.Errorf("mel frequency range [%f, %f] is invalid", f.FMin, f.FMax)
	}

	if f.PadTo < 1 {
		return fmt.Errorf("pad_to must be at least 1, got %d", f.PadTo)
	}

	return nil
}

// Validate validates decode configuration
func (d *DecodeConfig) Validate() error {
	if d.VocabPath == "" {
		return fmt.Errorf("vocab_path cannot be empty")
	}

	if d.BlankIndex < -1 {
		return fmt.Errorf("blank_index must be -1 (auto) or a valid token index, got %d", d.BlankIndex)
	}

	return nil
}

// Validate validates inference configuration
func (i *InferenceConfig) Validate() error {
	if i.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if i.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", i.Timeout)
	}

	if i.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", i.MaxConcurrent)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error, got %q", l.Level)
	}

	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format must be text or json, got %q", l.Format)
	}

	return nil
}

// GetTimeoutDuration returns the inference timeout as a time.Duration
func (i *InferenceConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(i.Timeout) * time.Second
}
