package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config root configuration
type Config struct {
	Agent      AgentConfig      `mapstructure:"agent"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	Data       DataConfig       `mapstructure:"data"`
	Log        LogConfig        `mapstructure:"log"`
}

// AgentConfig decision-loop parameters
type AgentConfig struct {
	Model         string  `mapstructure:"model"`
	FastModel     string  `mapstructure:"fast_model"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	Temperature   float64 `mapstructure:"temperature"`
	MaxIterations int     `mapstructure:"max_iterations"`
	StateDir      string  `mapstructure:"state_dir"`
}

// ProvidersConfig LLM provider settings
type ProvidersConfig struct {
	Claude     ProviderConfig `mapstructure:"claude"`
	OpenRouter ProviderConfig `mapstructure:"openrouter"`
	OpenAI     ProviderConfig `mapstructure:"openai"`
	DeepSeek   ProviderConfig `mapstructure:"deepseek"`
	Ollama     ProviderConfig `mapstructure:"ollama"`
}

// ProviderConfig single provider settings
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// RetrievalConfig policy index settings
type RetrievalConfig struct {
	ConfidenceThreshold float64         `mapstructure:"confidence_threshold"`
	TopK                int             `mapstructure:"top_k"`
	Embedding           EmbeddingConfig `mapstructure:"embedding"`
}

// EmbeddingConfig embedding provider settings
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"` // hash | voyage
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	Dimension int    `mapstructure:"dimension"`
}

// GuardrailsConfig input validation settings
type GuardrailsConfig struct {
	MaxInputLength    int      `mapstructure:"max_input_length"`
	InjectionPatterns []string `mapstructure:"injection_patterns"`
}

// EscalationConfig human-review thresholds
type EscalationConfig struct {
	RetrievalThreshold float64 `mapstructure:"retrieval_threshold"`
	DecisionThreshold  float64 `mapstructure:"decision_threshold"`
	AmountThreshold    float64 `mapstructure:"amount_threshold"`
}

// DataConfig reference data file locations
type DataConfig struct {
	Dir           string `mapstructure:"dir"`
	PoliciesFile  string `mapstructure:"policies_file"`
	EmployeesFile string `mapstructure:"employees_file"`
	RulesFile     string `mapstructure:"rules_file"`
}

// LogConfig application logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultInjectionPatterns are the phrases treated as prompt-injection attempts.
var DefaultInjectionPatterns = []string{
	"ignore previous instructions",
	"ignore all instructions",
	"disregard your instructions",
	"forget your rules",
	"you are now",
	"act as if",
	"pretend you are",
	"new instructions:",
	"system prompt:",
	"override:",
}

// DefaultConfig returns config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Model:         "claude-sonnet-4-20250514",
			FastModel:     "claude-haiku-4-20250514",
			MaxTokens:     4096,
			Temperature:   0.2,
			MaxIterations: 10,
			StateDir:      filepath.Join(ConfigDir(), "state"),
		},
		Providers: ProvidersConfig{},
		Retrieval: RetrievalConfig{
			ConfidenceThreshold: 0.75,
			TopK:                3,
			Embedding: EmbeddingConfig{
				Provider:  "hash",
				Model:     "voyage-3",
				Dimension: 1024,
			},
		},
		Guardrails: GuardrailsConfig{
			MaxInputLength:    2000,
			InjectionPatterns: append([]string(nil), DefaultInjectionPatterns...),
		},
		Escalation: EscalationConfig{
			RetrievalThreshold: 0.6,
			DecisionThreshold:  0.7,
			AmountThreshold:    5000,
		},
		Data: DataConfig{
			Dir:           "data",
			PoliciesFile:  "policies.json",
			EmployeesFile: "employees.json",
			RulesFile:     "rules.json",
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// ConfigDir returns the policyagent config directory
func ConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".policyagent")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load loads config from the default path or returns defaults
func Load() (*Config, error) {
	configPath := ConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := Save(cfg); err != nil {
			return cfg, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}
	return LoadFrom(configPath)
}

// LoadFrom loads config from an explicit file path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("POLICYAGENT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Save saves config to file
func Save(cfg *Config) error {
	configPath := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// Validate checks that the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	a := &c.Agent

	if a.MaxIterations < 0 {
		return fmt.Errorf("agent.max_iterations must not be negative, got %d", a.MaxIterations)
	}
	if a.MaxIterations == 0 {
		a.MaxIterations = 10
	}

	if a.Temperature < 0 || a.Temperature > 2.0 {
		return fmt.Errorf("agent.temperature must be between 0 and 2.0, got %f", a.Temperature)
	}

	if a.MaxTokens <= 0 {
		return fmt.Errorf("agent.max_tokens must be > 0, got %d", a.MaxTokens)
	}

	r := &c.Retrieval
	if r.ConfidenceThreshold < 0 || r.ConfidenceThreshold > 1 {
		return fmt.Errorf("retrieval.confidence_threshold must be in [0,1], got %f", r.ConfidenceThreshold)
	}
	if r.TopK <= 0 {
		r.TopK = 3
	}
	provider := strings.ToLower(strings.TrimSpace(r.Embedding.Provider))
	switch provider {
	case "", "hash":
		r.Embedding.Provider = "hash"
	case "voyage":
		r.Embedding.Provider = "voyage"
	default:
		return fmt.Errorf("retrieval.embedding.provider must be hash or voyage, got %q", r.Embedding.Provider)
	}
	if r.Embedding.Dimension <= 0 {
		r.Embedding.Dimension = 1024
	}

	if c.Guardrails.MaxInputLength <= 0 {
		c.Guardrails.MaxInputLength = 2000
	}
	if len(c.Guardrails.InjectionPatterns) == 0 {
		c.Guardrails.InjectionPatterns = append([]string(nil), DefaultInjectionPatterns...)
	}

	e := &c.Escalation
	if e.RetrievalThreshold <= 0 {
		e.RetrievalThreshold = 0.6
	}
	if e.DecisionThreshold <= 0 {
		e.DecisionThreshold = 0.7
	}
	if e.AmountThreshold <= 0 {
		e.AmountThreshold = 5000
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	if level == "" {
		c.Log.Level = "info"
	} else {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
		}
		c.Log.Level = level
	}

	return nil
}

// PoliciesPath returns the resolved path to the policy corpus file.
func (c *Config) PoliciesPath() string {
	return filepath.Join(c.Data.Dir, c.Data.PoliciesFile)
}

// EmployeesPath returns the resolved path to the employee records file.
func (c *Config) EmployeesPath() string {
	return filepath.Join(c.Data.Dir, c.Data.EmployeesFile)
}

// RulesPath returns the resolved path to the approval rules file.
func (c *Config) RulesPath() string {
	return filepath.Join(c.Data.Dir, c.Data.RulesFile)
}
