// Package config loads the review pipeline configuration from YAML with
// ${VAR} environment substitution, defaulting and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a review run.
type Config struct {
	Session    SessionConfig    `yaml:"session"`
	Consensus  ConsensusConfig  `yaml:"consensus"`
	Generation GenerationConfig `yaml:"generation"`
	Rules      RulesConfig      `yaml:"rules"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Logging    LoggingConfig    `yaml:"logging"`
	Actors     []ActorConfig    `yaml:"actors"`
}

// SessionConfig bounds the orchestration state machine.
type SessionConfig struct {
	MaxRounds      int           `yaml:"max_rounds"`
	ActorTimeout   time.Duration `yaml:"actor_timeout"`
	MaxParallelism int           `yaml:"max_parallelism"`
}

// ConsensusConfig holds the evaluator thresholds.
type ConsensusConfig struct {
	ConsensusThresholdPct         float64 `yaml:"consensus_threshold_pct"`
	EscalationConfidenceThreshold float64 `yaml:"escalation_confidence_threshold"`
}

// GenerationConfig configures the text generation service client.
type GenerationConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// RulesConfig selects the procurement rule engine. Mode "static" uses the
// built-in keyword rules; "http" calls a remote engine at BaseURL.
type RulesConfig struct {
	Mode    string        `yaml:"mode"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// ArchiveConfig enables SQLite archival of terminal session trails.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// ActorConfig declares one debate participant.
type ActorConfig struct {
	ID    string `yaml:"id"`
	Role  string `yaml:"role"` // "proposer" or "challenger"
	Focus string `yaml:"focus,omitempty"`
}

// Loader reads and validates a configuration file.
type Loader struct {
	configPath string
	config     *Config
}

// NewLoader creates a loader for the given path.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load reads the configuration from file.
func (l *Loader) Load() (*Config, error) {
	if l.configPath == "" {
		return nil, fmt.Errorf("configuration path is required")
	}
	if _, err := os.Stat(l.configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file does not exist: %s", l.configPath)
	}

	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	return l.LoadFromString(string(data))
}

// LoadFromString parses configuration from a YAML document.
func (l *Loader) LoadFromString(yamlContent string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(yamlContent), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	substituteEnvVars(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	l.config = &cfg
	return &cfg, nil
}

// GetConfig returns the last loaded configuration.
func (l *Loader) GetConfig() *Config {
	return l.config
}

// Reload re-reads the configuration from file.
func (l *Loader) Reload() (*Config, error) {
	return l.Load()
}

// Default returns a configuration with every default applied and no actors.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// substituteEnvVars replaces ${VAR_NAME} placeholders with environment
// variable values in fields that commonly carry secrets or endpoints.
func substituteEnvVars(cfg *Config) {
	cfg.Generation.BaseURL = os.ExpandEnv(cfg.Generation.BaseURL)
	cfg.Generation.APIKey = os.ExpandEnv(cfg.Generation.APIKey)
	cfg.Rules.BaseURL = os.ExpandEnv(cfg.Rules.BaseURL)
	cfg.Rules.APIKey = os.ExpandEnv(cfg.Rules.APIKey)
	cfg.Archive.Path = os.ExpandEnv(cfg.Archive.Path)
}

// applyDefaults fills in zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Session.MaxRounds <= 0 {
		cfg.Session.MaxRounds = 5
	}
	if cfg.Session.ActorTimeout <= 0 {
		cfg.Session.ActorTimeout = 120 * time.Second
	}

	if cfg.Consensus.ConsensusThresholdPct <= 0 {
		cfg.Consensus.ConsensusThresholdPct = 80
	}
	if cfg.Consensus.EscalationConfidenceThreshold <= 0 {
		cfg.Consensus.EscalationConfidenceThreshold = 70
	}

	if cfg.Generation.Temperature <= 0 {
		cfg.Generation.Temperature = 0.7
	}
	if cfg.Generation.MaxTokens <= 0 {
		cfg.Generation.MaxTokens = 4096
	}
	if cfg.Generation.Timeout <= 0 {
		cfg.Generation.Timeout = 120 * time.Second
	}
	if cfg.Generation.MaxRetries <= 0 {
		cfg.Generation.MaxRetries = 3
	}
	if cfg.Generation.RetryDelay <= 0 {
		cfg.Generation.RetryDelay = time.Second
	}

	if cfg.Rules.Mode == "" {
		cfg.Rules.Mode = "static"
	}
	if cfg.Rules.Timeout <= 0 {
		cfg.Rules.Timeout = 30 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Session.MaxRounds < 1 {
		return fmt.Errorf("session.max_rounds must be at least 1")
	}
	if c.Consensus.ConsensusThresholdPct > 100 {
		return fmt.Errorf("consensus.consensus_threshold_pct must not exceed 100")
	}

	switch c.Rules.Mode {
	case "static":
	case "http":
		if c.Rules.BaseURL == "" {
			return fmt.Errorf("rules.base_url is required when rules.mode is http")
		}
	default:
		return fmt.Errorf("unknown rules.mode %q", c.Rules.Mode)
	}

	if c.Archive.Enabled && c.Archive.Path == "" {
		return fmt.Errorf("archive.path is required when archive.enabled is true")
	}

	seen := make(map[string]bool)
	for i, a := range c.Actors {
		if a.ID == "" {
			return fmt.Errorf("actors[%d].id is required", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate actor id %q", a.ID)
		}
		seen[a.ID] = true
		if a.Role != "proposer" && a.Role != "challenger" {
			return fmt.Errorf("actors[%d].role must be proposer or challenger, got %q", i, a.Role)
		}
	}
	return nil
}
