package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// EndpointConfig describes one completion endpoint. The primary and every
// backup use the same shape; a backup with an empty APIKey inherits the
// primary's key at request time.
type EndpointConfig struct {
	Name    string `json:"name" env:"AXON_LLM_NAME"`
	Model   string `json:"model" env:"AXON_LLM_MODEL"`
	APIKey  string `json:"api_key" env:"AXON_LLM_API_KEY"`
	BaseURL string `json:"base_url" env:"AXON_LLM_BASE_URL"`
}

type LLMConfig struct {
	Primary     EndpointConfig   `json:"primary"`
	Backups     []EndpointConfig `json:"backups,omitempty"`
	MaxRetries  int              `json:"max_retries" env:"AXON_LLM_MAX_RETRIES"`
	FailoverAll bool             `json:"failover_all" env:"AXON_LLM_FAILOVER_ALL"`
	Proxy       string           `json:"proxy" env:"AXON_LLM_PROXY"`
}

// AgentDefaults carries the generation settings seeded into a new agent
// context plus the tick cadence for supervised runs.
type AgentDefaults struct {
	MaxTokens        int     `json:"max_tokens" env:"AXON_AGENT_MAX_TOKENS"`
	Temperature      float64 `json:"temperature" env:"AXON_AGENT_TEMPERATURE"`
	TopP             float64 `json:"top_p" env:"AXON_AGENT_TOP_P"`
	FrequencyPenalty float64 `json:"frequency_penalty" env:"AXON_AGENT_FREQUENCY_PENALTY"`
	PresencePenalty  float64 `json:"presence_penalty" env:"AXON_AGENT_PRESENCE_PENALTY"`
	Choices          int     `json:"choices" env:"AXON_AGENT_CHOICES"`
	WorldEnabled     bool    `json:"world_enabled" env:"AXON_AGENT_WORLD_ENABLED"`
	TickIntervalSecs int     `json:"tick_interval_secs" env:"AXON_AGENT_TICK_INTERVAL_SECS"`
}

type StorageConfig struct {
	// Backend is "sqlite" or "file".
	Backend string `json:"backend" env:"AXON_STORAGE_BACKEND"`
	Path    string `json:"path" env:"AXON_STORAGE_PATH"`
}

type EmailConfig struct {
	SMTPServer string `json:"smtp_server" env:"AXON_EMAIL_SMTP_SERVER"`
	SMTPPort   int    `json:"smtp_port" env:"AXON_EMAIL_SMTP_PORT"`
	Username   string `json:"username" env:"AXON_EMAIL_USERNAME"`
	Password   string `json:"password" env:"AXON_EMAIL_PASSWORD"`
	From       string `json:"from" env:"AXON_EMAIL_FROM"`
}

type SearchConfig struct {
	MaxResults int `json:"max_results" env:"AXON_SEARCH_MAX_RESULTS"`
}

type Config struct {
	LLM     LLMConfig     `json:"llm"`
	Agent   AgentDefaults `json:"agent"`
	Storage StorageConfig `json:"storage"`
	Email   EmailConfig   `json:"email"`
	Search  SearchConfig  `json:"search"`
	LogFile string        `json:"log_file" env:"AXON_LOG_FILE"`
}

func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Primary: EndpointConfig{
				Name:    "primary",
				Model:   "gpt-4o",
				BaseURL: "https://api.openai.com/v1",
			},
			MaxRetries: 3,
		},
		Agent: AgentDefaults{
			MaxTokens:        1024,
			Temperature:      0,
			TopP:             1,
			Choices:          1,
			WorldEnabled:     true,
			TickIntervalSecs: 60,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "~/.axon/axon.db",
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
		Search: SearchConfig{
			MaxResults: 5,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No file: defaults plus env overrides.
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// ExpandHome resolves a leading "~/" against the current user's home dir.
func ExpandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// DefaultConfigPath returns ~/.axon/config.json.
func DefaultConfigPath() string {
	return ExpandHome("~/.axon/config.json")
}
