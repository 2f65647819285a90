// Package config loads application configuration: programmatic defaults,
// overlaid by an optional YAML file, overlaid by environment variables
// (prefix BEDPULSE).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"bedpulse/internal/dataprocessing"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	Ingest  IngestConfig  `yaml:"ingest" envconfig:"INGEST"`
	DST     DSTConfig     `yaml:"dst" envconfig:"DST"`
	Fetch   FetchConfig   `yaml:"fetch" envconfig:"FETCH"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir     string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	HistoryFile string `yaml:"history_file" envconfig:"HISTORY_FILE" validate:"required"`
}

// HistoryPath returns the resolved location of the persisted history
// document.
func (p PathsConfig) HistoryPath() string {
	if filepath.IsAbs(p.HistoryFile) {
		return p.HistoryFile
	}
	return filepath.Join(p.DataDir, p.HistoryFile)
}

// IngestConfig bounds ingestion requests.
type IngestConfig struct {
	MaxBodyBytes int64   `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES" validate:"gt=0"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateBurst    int     `yaml:"rate_burst" envconfig:"RATE_BURST" validate:"gt=0"`
}

// DSTConfig is the fixed daylight-saving rule used to resolve free-text
// feed timestamps. The feed's operating window spans exactly one
// transition, so the offsets are configuration rather than a timezone-
// database lookup; move the window by changing these values.
type DSTConfig struct {
	TransitionMonth int `yaml:"transition_month" envconfig:"TRANSITION_MONTH" validate:"min=1,max=12"`
	TransitionDay   int `yaml:"transition_day" envconfig:"TRANSITION_DAY" validate:"min=1,max=31"`
	StandardOffset  int `yaml:"standard_offset_hours" envconfig:"STANDARD_OFFSET_HOURS" validate:"min=-14,max=14"`
	DaylightOffset  int `yaml:"daylight_offset_hours" envconfig:"DAYLIGHT_OFFSET_HOURS" validate:"min=-14,max=14"`
}

// Rule converts the configured offsets into the resolver's rule form.
func (d DSTConfig) Rule() dataprocessing.DSTRule {
	return dataprocessing.DSTRule{
		TransitionMonth: time.Month(d.TransitionMonth),
		TransitionDay:   d.TransitionDay,
		StandardOffset:  d.StandardOffset * 3600,
		DaylightOffset:  d.DaylightOffset * 3600,
	}
}

// FetchConfig configures the scheduled fetcher entrypoint.
type FetchConfig struct {
	Sources []string      `yaml:"sources" envconfig:"SOURCES"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
}

// Load assembles the configuration. Environment variables win over file
// values, file values over defaults.
func Load() (*Config, error) {
	cfg := *Default()

	if path := configFilePath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := envconfig.Process("BEDPULSE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// configFilePath returns the first config file found in the conventional
// locations, or "" to run on env vars and defaults alone.
func configFilePath() string {
	for _, location := range []string{"config.yaml", "configs/config.yaml"} {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the baseline configuration that file and env values
// overlay.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/bedpulse.log",
		},
		Paths: PathsConfig{
			DataDir:     "data",
			HistoryFile: "history.json",
		},
		Ingest: IngestConfig{
			MaxBodyBytes: 10 << 20,
			RateLimitRPS: 5,
			RateBurst:    10,
		},
		DST: DSTConfig{
			TransitionMonth: 3,
			TransitionDay:   8,
			StandardOffset:  -8,
			DaylightOffset:  -7,
		},
		Fetch: FetchConfig{
			Timeout: 30 * time.Second,
		},
	}
}
