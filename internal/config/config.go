package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the configuration schema version written by Init.
const CurrentVersion = "1"

// EnvTokenVar is the default environment variable consulted for a bearer token.
const EnvTokenVar = "TCIDE_TOKEN"

// Config is the tcide configuration file.
type Config struct {
	Version      string        `yaml:"version"`
	API          APIConfig     `yaml:"api"`
	Auth         AuthConfig    `yaml:"auth"`
	History      HistoryConfig `yaml:"history"`
	Metrics      MetricsConfig `yaml:"metrics"`
	Logging      LoggingConfig `yaml:"logging"`
	StarterPacks []PackConfig  `yaml:"starter_packs,omitempty"`
}

// APIConfig holds the challenge platform endpoints. URL templates use
// {challengeId}, {memberId}, {submissionId} and {artifactId} placeholders.
type APIConfig struct {
	ActiveChallengesURL    string      `yaml:"active_challenges_url"`
	ChallengeDetailsURL    string      `yaml:"challenge_details_url"`
	RegistrationURL        string      `yaml:"registration_url"`
	MemberChallengesURL    string      `yaml:"member_challenges_url"`
	MemberSubmissionsURL   string      `yaml:"member_submissions_url"`
	SubmissionArtifactsURL string      `yaml:"submission_artifacts_url"`
	ArtifactDownloadURL    string      `yaml:"artifact_download_url"`
	SubmissionUploadURL    string      `yaml:"submission_upload_url"`
	Timeout                string      `yaml:"timeout"`
	Retry                  RetryConfig `yaml:"retry"`
}

// RetryConfig controls retries of idempotent API reads.
type RetryConfig struct {
	MaxRetries   int              `yaml:"max_retries"`
	Backoff      RetryBackoffMode `yaml:"backoff"`
	InitialDelay string           `yaml:"initial_delay"`
	MaxDelay     string           `yaml:"max_delay"`
}

// AuthConfig locates the stored bearer token.
type AuthConfig struct {
	TokenFile string `yaml:"token_file"`
	TokenEnv  string `yaml:"token_env"`
}

// HistoryConfig controls the local submission history database.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path"`
}

// IsEnabled reports whether history recording is on (default true).
func (h HistoryConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// MetricsConfig controls the Prometheus textfile written after submissions.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// LoggingConfig holds logging preferences; CLI flags take precedence.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// PackConfig is one technology entry of the starter pack catalogue.
type PackConfig struct {
	Name  string       `yaml:"name"`
	Repos []RepoConfig `yaml:"repos"`
}

// RepoConfig is one cloneable starter pack repository.
type RepoConfig struct {
	Title  string `yaml:"title"`
	URL    string `yaml:"url"`
	Branch string `yaml:"branch,omitempty"`
}

// DefaultDir returns the per-user configuration directory for tcide.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "tcide")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load reads the configuration at configPath. A missing file is not an error:
// the defaults are returned instead so tcide works without any setup.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil && !errors.Is(err, errNoEnvFile) {
		fmt.Fprintf(os.Stderr, "Note: .env file couldn't be loaded: %v\n", err)
	}

	var cfg Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		// Expand environment variables in the YAML content
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config %s: %w", configPath, err)
		}
		if cfg.Version != "" && cfg.Version != CurrentVersion {
			return nil, fmt.Errorf("unsupported configuration version: %s (expected %s)", cfg.Version, CurrentVersion)
		}
	case os.IsNotExist(err):
		cfg.Version = CurrentVersion
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	applyDefaults(cfg)
	return cfg
}
