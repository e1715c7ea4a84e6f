// Package config loads the server configuration.
// Order: defaults -> YAML file -> .env -> SISYPHUS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
)

// DefaultPath is read when no --config flag is given and the file exists.
const DefaultPath = "sisyphus.yaml"

// Config contains all server settings.
type Config struct {
	Simulation     SimulationConfig     `json:"simulation" yaml:"simulation"`
	Server         ServerConfig         `json:"server" yaml:"server"`
	ThoughtService ThoughtServiceConfig `json:"thought_service" yaml:"thought_service"`
	LLM            LLMConfig            `json:"llm" yaml:"llm"`
	Journal        JournalConfig        `json:"journal" yaml:"journal"`
	Logging        LoggingConfig        `json:"logging" yaml:"logging"`
	Tuning         TuningConfig         `json:"tuning" yaml:"tuning"`
}

// SimulationConfig paces the engine.
type SimulationConfig struct {
	TickInterval        time.Duration `json:"tick_interval" yaml:"tick_interval"`
	DeepThoughtInterval time.Duration `json:"deep_thought_interval" yaml:"deep_thought_interval"`
	DeepThoughtChance   float64       `json:"deep_thought_chance" yaml:"deep_thought_chance"`
	FeedbackDuration    time.Duration `json:"feedback_duration" yaml:"feedback_duration"`
	GreetingDelay       time.Duration `json:"greeting_delay" yaml:"greeting_delay"`
	ReflectionEvery     int64         `json:"reflection_every" yaml:"reflection_every"`
	// Seed makes a run reproducible. 0 seeds from the clock.
	Seed int64 `json:"seed" yaml:"seed"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
	// Environment "development" exposes error details in thought service failures.
	Environment      string  `json:"environment" yaml:"environment"`
	ActionsPerSecond float64 `json:"actions_per_second" yaml:"actions_per_second"`
	ActionBurst      int     `json:"action_burst" yaml:"action_burst"`
}

// ThoughtServiceConfig points the engine at a thought service. An empty URL disables reflection.
type ThoughtServiceConfig struct {
	URL     string        `json:"url" yaml:"url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// LLMConfig configures the provider behind /api/think.
type LLMConfig struct {
	// Provider is "openai" (default) or "anthropic".
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
	// APIKey supports ${VAR} syntax for env vars.
	APIKey           string        `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL          string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Timeout          time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	DailyBudgetUSD   float64       `json:"daily_budget_usd" yaml:"daily_budget_usd"`
	MonthlyBudgetUSD float64       `json:"monthly_budget_usd" yaml:"monthly_budget_usd"`
}

// RedactedAPIKey returns the API key with most characters masked.
func (c LLMConfig) RedactedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) < 12 {
		return "(set)"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// String implements fmt.Stringer to prevent accidental API key logging.
func (c LLMConfig) String() string {
	return fmt.Sprintf("LLMConfig{Provider:%s, Model:%s, APIKey:%s}", c.Provider, c.Model, c.RedactedAPIKey())
}

// JournalConfig configures the session journal.
type JournalConfig struct {
	// Path of the SQLite file. Empty or ":memory:" keeps it in memory.
	Path   string `json:"path" yaml:"path"`
	Retain int    `json:"retain" yaml:"retain"`
}

// LoggingConfig sets log verbosity: "info" (default) or "debug".
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// TuningConfig holds channel buffer sizes for the WebSocket hub.
type TuningConfig struct {
	BroadcastBuffer  int           `json:"broadcast_buffer" yaml:"broadcast_buffer"`
	ClientSendBuffer int           `json:"client_send_buffer" yaml:"client_send_buffer"`
	PollInterval     time.Duration `json:"poll_interval" yaml:"poll_interval"`
}

// Default returns the stock configuration: a 3s tick and no reflection.
func Default() *Config {
	sim := engine.DefaultConfig()
	return &Config{
		Simulation: SimulationConfig{
			TickInterval:        sim.TickInterval,
			DeepThoughtInterval: sim.DeepThoughtInterval,
			DeepThoughtChance:   sim.DeepThoughtChance,
			FeedbackDuration:    sim.FeedbackDuration,
			GreetingDelay:       sim.GreetingDelay,
		},
		Server: ServerConfig{
			Addr:             ":8080",
			Environment:      "production",
			ActionsPerSecond: 2,
			ActionBurst:      5,
		},
		ThoughtService: ThoughtServiceConfig{
			Timeout: sim.ReflectionTimeout,
		},
		LLM: LLMConfig{
			Provider:         "openai",
			Timeout:          30 * time.Second,
			DailyBudgetUSD:   1.0,
			MonthlyBudgetUSD: 20.0,
		},
		Journal: JournalConfig{
			Path:   ":memory:",
			Retain: 1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Tuning: TuningConfig{
			BroadcastBuffer:  256,
			ClientSendBuffer: 64,
			PollInterval:     250 * time.Millisecond,
		},
	}
}

// Load reads path (or DefaultPath when path is empty and the file exists),
// loads .env if present and applies environment overrides.
func Load(path string) (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileCfg
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.LLM.APIKey = expandEnvVars(cfg.LLM.APIKey)
	cfg.ThoughtService.URL = expandEnvVars(cfg.ThoughtService.URL)

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	s := c.Simulation
	if s.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("simulation.tick_interval must be positive, got %v", s.TickInterval))
	}
	if s.DeepThoughtInterval <= 0 {
		errs = append(errs, fmt.Errorf("simulation.deep_thought_interval must be positive, got %v", s.DeepThoughtInterval))
	}
	if s.DeepThoughtChance < 0 || s.DeepThoughtChance > 1 {
		errs = append(errs, fmt.Errorf("simulation.deep_thought_chance must be between 0 and 1, got %f", s.DeepThoughtChance))
	}
	if s.FeedbackDuration <= 0 {
		errs = append(errs, fmt.Errorf("simulation.feedback_duration must be positive, got %v", s.FeedbackDuration))
	}
	if s.GreetingDelay < 0 {
		errs = append(errs, fmt.Errorf("simulation.greeting_delay must be non-negative, got %v", s.GreetingDelay))
	}
	if s.ReflectionEvery < 0 {
		errs = append(errs, fmt.Errorf("simulation.reflection_every must be non-negative, got %d", s.ReflectionEvery))
	}

	if c.Server.ActionsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("server.actions_per_second must be positive, got %f", c.Server.ActionsPerSecond))
	}
	if c.Server.ActionBurst < 1 {
		errs = append(errs, fmt.Errorf("server.action_burst must be at least 1, got %d", c.Server.ActionBurst))
	}
	if c.ThoughtService.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("thought_service.timeout must be positive, got %v", c.ThoughtService.Timeout))
	}

	validProviders := map[string]bool{"": true, "openai": true, "anthropic": true}
	if !validProviders[strings.ToLower(c.LLM.Provider)] {
		errs = append(errs, fmt.Errorf("invalid llm provider: %s (valid: openai, anthropic)", c.LLM.Provider))
	}
	if c.LLM.DailyBudgetUSD < 0 || c.LLM.MonthlyBudgetUSD < 0 {
		errs = append(errs, fmt.Errorf("llm budgets must be non-negative"))
	}

	if c.Journal.Retain < 1 {
		errs = append(errs, fmt.Errorf("journal.retain must be at least 1, got %d", c.Journal.Retain))
	}

	validLevels := map[string]bool{"": true, "info": true, "debug": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level: %s (valid: info, debug)", c.Logging.Level))
	}

	if c.Tuning.BroadcastBuffer < 1 || c.Tuning.ClientSendBuffer < 1 {
		errs = append(errs, fmt.Errorf("tuning buffers must be at least 1"))
	}
	if c.Tuning.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("tuning.poll_interval must be positive, got %v", c.Tuning.PollInterval))
	}

	return errors.Join(errs...)
}

// Engine converts the simulation section into engine timing.
func (c *Config) Engine() engine.Config {
	return engine.Config{
		TickInterval:        c.Simulation.TickInterval,
		DeepThoughtInterval: c.Simulation.DeepThoughtInterval,
		DeepThoughtChance:   c.Simulation.DeepThoughtChance,
		FeedbackDuration:    c.Simulation.FeedbackDuration,
		GreetingDelay:       c.Simulation.GreetingDelay,
		ReflectionEvery:     c.Simulation.ReflectionEvery,
		ReflectionTimeout:   c.ThoughtService.Timeout,
	}
}

// IsDevelopment reports whether error details may be sent to clients.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Server.Environment, "development")
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SISYPHUS_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SISYPHUS_ENV"); v != "" {
		cfg.Server.Environment = v
	}
	if v := os.Getenv("SISYPHUS_TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SISYPHUS_TICK_INTERVAL: %w", err)
		}
		cfg.Simulation.TickInterval = d
	}
	if v := os.Getenv("SISYPHUS_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SISYPHUS_SEED: %w", err)
		}
		cfg.Simulation.Seed = n
	}
	if v := os.Getenv("SISYPHUS_THOUGHT_SERVICE_URL"); v != "" {
		cfg.ThoughtService.URL = v
	}
	if v := os.Getenv("SISYPHUS_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("SISYPHUS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SISYPHUS_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}

	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "anthropic":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	return nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
