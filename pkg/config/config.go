package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "U123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Slack     SlackConfig     `json:"slack"`
	Providers ProvidersConfig `json:"providers"`
	Responder ResponderConfig `json:"responder"`
	Delivery  DeliveryConfig  `json:"delivery"`
	Ledger    LedgerConfig    `json:"ledger"`
	Redis     RedisConfig     `json:"redis,omitzero"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Gateway   GatewayConfig   `json:"gateway"`
}

type SlackConfig struct {
	SigningSecret string              `env:"HOOKCLAW_SLACK_SIGNING_SECRET" json:"signing_secret"`
	BotToken      string              `env:"HOOKCLAW_SLACK_BOT_TOKEN"      json:"bot_token"`
	AllowFrom     FlexibleStringSlice `env:"HOOKCLAW_SLACK_ALLOW_FROM"     json:"allow_from,omitempty"`
}

type ProvidersConfig struct {
	Anthropic ProviderConfig `json:"anthropic"`
	OpenAI    ProviderConfig `json:"openai"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	APIBase string `json:"api_base,omitempty"`
}

// IsEmpty reports whether no provider credentials are configured at all.
func (p ProvidersConfig) IsEmpty() bool {
	return p.Anthropic.APIKey == "" && p.OpenAI.APIKey == ""
}

type ResponderConfig struct {
	Model             string `env:"HOOKCLAW_RESPONDER_MODEL"               json:"model"`
	MaxTokens         int    `env:"HOOKCLAW_RESPONDER_MAX_TOKENS"          json:"max_tokens"`
	MaxToolIterations int    `env:"HOOKCLAW_RESPONDER_MAX_TOOL_ITERATIONS" json:"max_tool_iterations"`
}

type DeliveryConfig struct {
	MaxAttempts int `env:"HOOKCLAW_DELIVERY_MAX_ATTEMPTS" json:"max_attempts"`
}

type LedgerConfig struct {
	// Namespace prefixes every ledger key, e.g. "hookclaw/U123/reminders".
	Namespace string `env:"HOOKCLAW_LEDGER_NAMESPACE" json:"namespace"`
	// Dir is where the file-backed blob store keeps ledgers when Redis is
	// not configured.
	Dir string `env:"HOOKCLAW_LEDGER_DIR" json:"dir"`
}

type RedisConfig struct {
	Addr     string `env:"HOOKCLAW_REDIS_ADDR"     json:"addr"`
	Password string `env:"HOOKCLAW_REDIS_PASSWORD" json:"password,omitempty"`
	DB       int    `env:"HOOKCLAW_REDIS_DB"       json:"db"`
}

// Enabled reports whether Redis-backed storage should be used.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type SchedulerConfig struct {
	Enabled   bool   `env:"HOOKCLAW_SCHEDULER_ENABLED"    json:"enabled"`
	StorePath string `env:"HOOKCLAW_SCHEDULER_STORE_PATH" json:"store_path"`
}

type GatewayConfig struct {
	Host string `env:"HOOKCLAW_GATEWAY_HOST" json:"host"`
	Port int    `env:"HOOKCLAW_GATEWAY_PORT" json:"port"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Responder: ResponderConfig{
			Model:             "claude-sonnet-4.6",
			MaxTokens:         4096,
			MaxToolIterations: 10,
		},
		Delivery: DeliveryConfig{MaxAttempts: 3},
		Ledger: LedgerConfig{
			Namespace: "hookclaw",
			Dir:       filepath.Join(home, ".hookclaw", "ledgers"),
		},
		Scheduler: SchedulerConfig{
			Enabled:   true,
			StorePath: filepath.Join(home, ".hookclaw", "scheduler", "jobs.json"),
		},
		Gateway: GatewayConfig{Host: "0.0.0.0", Port: 8080},
	}
}

// Env overlay struct tags cannot template per-provider names the way the
// channel tags do, so provider keys get explicit env names here.
type providerEnvOverlay struct {
	AnthropicAPIKey  string `env:"HOOKCLAW_PROVIDERS_ANTHROPIC_API_KEY"`
	AnthropicAPIBase string `env:"HOOKCLAW_PROVIDERS_ANTHROPIC_API_BASE"`
	OpenAIAPIKey     string `env:"HOOKCLAW_PROVIDERS_OPENAI_API_KEY"`
	OpenAIAPIBase    string `env:"HOOKCLAW_PROVIDERS_OPENAI_API_BASE"`
}

func applyProviderEnv(cfg *Config) error {
	var o providerEnvOverlay
	if err := env.Parse(&o); err != nil {
		return err
	}
	if o.AnthropicAPIKey != "" {
		cfg.Providers.Anthropic.APIKey = o.AnthropicAPIKey
	}
	if o.AnthropicAPIBase != "" {
		cfg.Providers.Anthropic.APIBase = o.AnthropicAPIBase
	}
	if o.OpenAIAPIKey != "" {
		cfg.Providers.OpenAI.APIKey = o.OpenAIAPIKey
	}
	if o.OpenAIAPIBase != "" {
		cfg.Providers.OpenAI.APIBase = o.OpenAIAPIBase
	}
	return nil
}

// LoadConfig reads the JSON config at path (a missing file yields defaults)
// and overlays HOOKCLAW_* environment variables on the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := applyProviderEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
