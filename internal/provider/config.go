package provider

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider names accepted in configuration.
const (
	NameAnthropic = "anthropic"
	NameOpenAI    = "openai"
)

// Config selects and configures the generation backend.
type Config struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	Model       string        `yaml:"model,omitempty"`
	MaxTokens   int           `yaml:"max_tokens,omitempty"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	RetryMax    int           `yaml:"retry_max"`
}

// DefaultConfig returns the Anthropic backend with conservative sampling.
func DefaultConfig() Config {
	return Config{
		Provider:    NameAnthropic,
		MaxTokens:   8192,
		Temperature: 0.2,
		Timeout:     120 * time.Second,
		RetryMax:    2,
	}
}

// APIKeyEnv returns the environment variable holding the provider's key.
func (c Config) APIKeyEnv() string {
	return strings.ToUpper(c.Provider) + "_API_KEY"
}

// ResolveAPIKey fills APIKey from the environment when it is not set.
func (c *Config) ResolveAPIKey() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(c.APIKeyEnv())
	}
}

// Validate reports every problem with the configuration.
func (c Config) Validate() []string {
	var problems []string
	switch c.Provider {
	case NameAnthropic, NameOpenAI:
		if c.APIKey == "" {
			problems = append(problems, fmt.Sprintf("generator.api_key is required (or set %s)", c.APIKeyEnv()))
		}
	default:
		problems = append(problems, fmt.Sprintf("generator.provider %q is not supported (must be %s or %s)",
			c.Provider, NameAnthropic, NameOpenAI))
	}
	if c.MaxTokens < 0 {
		problems = append(problems, "generator.max_tokens must be non-negative")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		problems = append(problems, "generator.temperature must be between 0 and 2")
	}
	if c.RetryMax < 0 {
		problems = append(problems, "generator.retry_max must be non-negative")
	}
	return problems
}

// New creates the provider named by cfg.Provider.
func New(cfg Config, opts ...Option) (ProviderClient, error) {
	switch cfg.Provider {
	case NameAnthropic:
		return NewAnthropicProvider(cfg, opts...)
	case NameOpenAI:
		return NewOpenAIProvider(cfg, opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
