package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"lapfinder/internal/analysis"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Analysis AnalysisConfig `json:"analysis"`
	Remote   RemoteConfig   `json:"remote"`
	Storage  StorageConfig  `json:"storage"`
}

// ServerConfig holds HTTP service settings
type ServerConfig struct {
	Addr           string `json:"addr"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
}

// AnalysisConfig holds the default analysis parameters
type AnalysisConfig struct {
	Segments          int      `json:"segments"`
	MaxDT             *float64 `json:"max_dt,omitempty"` // seconds, nil disables the filter
	BrakeThreshold    float64  `json:"brake_threshold"`
	ThrottleThreshold float64  `json:"throttle_threshold"`
}

// RemoteConfig holds optional OAuth2 client credentials for fetching
// telemetry exports over HTTP
type RemoteConfig struct {
	TokenURL          string   `json:"token_url,omitempty"`
	ClientID          string   `json:"client_id,omitempty"`
	ClientSecret      string   `json:"client_secret,omitempty"`
	Scopes            []string `json:"scopes,omitempty"`
	RequestsPerMinute int      `json:"requests_per_minute"`
	MaxBytes          int64    `json:"max_bytes"` // download size cap per export
}

// HasCredentials reports whether OAuth2 client credentials are configured
func (r RemoteConfig) HasCredentials() bool {
	return r.TokenURL != "" && r.ClientID != "" && r.ClientSecret != ""
}

// StorageConfig holds the run history database location
type StorageConfig struct {
	Path string `json:"path"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

const (
	defaultAddr              = ":5001"
	defaultMaxUploadBytes    = 64 << 20
	defaultRequestsPerMinute = 60
	defaultRemoteMaxBytes    = 64 << 20
)

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	opts := analysis.DefaultOptions()
	cfg := Config{
		Server: ServerConfig{
			Addr:           defaultAddr,
			MaxUploadBytes: defaultMaxUploadBytes,
		},
		Analysis: AnalysisConfig{
			Segments:          opts.Segments,
			MaxDT:             opts.MaxDT,
			BrakeThreshold:    opts.BrakeThreshold,
			ThrottleThreshold: opts.ThrottleThreshold,
		},
		Remote: RemoteConfig{
			RequestsPerMinute: defaultRequestsPerMinute,
			MaxBytes:          defaultRemoteMaxBytes,
		},
	}
	if dir, err := GetConfigDir(); err == nil {
		cfg.Storage.Path = filepath.Join(dir, "data.db")
	}
	return cfg
}

// Load reads the configuration from ~/.lapfinder/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from path and fills in defaults
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault returns the config file contents, or the defaults when
// no config file exists yet
func LoadOrDefault() (*Config, error) {
	cfg, err := Load()
	if errors.Is(err, ErrNoConfig) {
		defaults := DefaultConfig()
		return &defaults, nil
	}
	return cfg, err
}

// applyDefaults replaces zero values with defaults
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = defaults.Server.MaxUploadBytes
	}
	if c.Analysis.Segments == 0 {
		c.Analysis.Segments = defaults.Analysis.Segments
	}
	if c.Analysis.BrakeThreshold == 0 {
		c.Analysis.BrakeThreshold = defaults.Analysis.BrakeThreshold
	}
	if c.Analysis.ThrottleThreshold == 0 {
		c.Analysis.ThrottleThreshold = defaults.Analysis.ThrottleThreshold
	}
	if c.Remote.RequestsPerMinute == 0 {
		c.Remote.RequestsPerMinute = defaults.Remote.RequestsPerMinute
	}
	if c.Remote.MaxBytes == 0 {
		c.Remote.MaxBytes = defaults.Remote.MaxBytes
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaults.Storage.Path
	}
}

// SaveTo writes the configuration to path
func SaveTo(path string, cfg *Config) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	// 0600: the remote section may carry a client secret
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	maxDT := 0.5
	example.Analysis.MaxDT = &maxDT
	return SaveTo(path, &example)
}

// Validate checks that the config values are usable
func (c *Config) Validate() error {
	if c.Analysis.Segments <= 0 {
		return fmt.Errorf("analysis.segments must be positive, got %d", c.Analysis.Segments)
	}
	if err := checkUnit("analysis.brake_threshold", c.Analysis.BrakeThreshold); err != nil {
		return err
	}
	if err := checkUnit("analysis.throttle_threshold", c.Analysis.ThrottleThreshold); err != nil {
		return err
	}
	if c.Analysis.MaxDT != nil && (*c.Analysis.MaxDT < 0 || math.IsNaN(*c.Analysis.MaxDT)) {
		return fmt.Errorf("analysis.max_dt must not be negative, got %v", *c.Analysis.MaxDT)
	}

	if c.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes must not be negative, got %d", c.Server.MaxUploadBytes)
	}
	if c.Remote.RequestsPerMinute < 0 {
		return fmt.Errorf("remote.requests_per_minute must not be negative, got %d", c.Remote.RequestsPerMinute)
	}
	if c.Remote.MaxBytes < 0 {
		return fmt.Errorf("remote.max_bytes must not be negative, got %d", c.Remote.MaxBytes)
	}

	// Remote credentials are all or nothing
	set := 0
	for _, v := range []string{c.Remote.TokenURL, c.Remote.ClientID, c.Remote.ClientSecret} {
		if v != "" {
			set++
		}
	}
	if set != 0 && !c.Remote.HasCredentials() {
		return errors.New("remote.token_url, remote.client_id and remote.client_secret must be set together")
	}

	return nil
}

func checkUnit(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%s must be within [0, 1], got %v", field, v)
	}
	return nil
}

// AnalysisOptions converts the analysis section to pipeline options
func (c *Config) AnalysisOptions() analysis.Options {
	return analysis.Options{
		Segments:          c.Analysis.Segments,
		MaxDT:             c.Analysis.MaxDT,
		BrakeThreshold:    c.Analysis.BrakeThreshold,
		ThrottleThreshold: c.Analysis.ThrottleThreshold,
	}
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".lapfinder"), nil
}
