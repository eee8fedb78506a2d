package jira

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the tracker connection settings.
type Config struct {
	BaseURL  string `yaml:"base_url"`
	Email    string `yaml:"email"`
	APIToken string `yaml:"api_token"`

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration `yaml:"timeout"`

	// RetryMax is the number of retries for reads. Creates are never retried.
	RetryMax     int           `yaml:"retry_max"`
	RetryWaitMin time.Duration `yaml:"retry_wait_min"`
	RetryWaitMax time.Duration `yaml:"retry_wait_max"`

	// RequestsPerSecond throttles all requests; zero disables throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// DefaultConfig returns three attempts with 1s to 10s exponential backoff.
func DefaultConfig() Config {
	return Config{
		Timeout:           30 * time.Second,
		RetryMax:          2,
		RetryWaitMin:      time.Second,
		RetryWaitMax:      10 * time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// Validate reports every missing or malformed setting.
func (c Config) Validate() []string {
	var problems []string
	if c.BaseURL == "" {
		problems = append(problems, "jira.base_url is required")
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("jira.base_url %q is not an absolute URL", c.BaseURL))
	}
	if c.Email == "" {
		problems = append(problems, "jira.email is required")
	}
	if c.APIToken == "" {
		problems = append(problems, "jira.api_token is required")
	}
	if c.RetryMax < 0 {
		problems = append(problems, "jira.retry_max must not be negative")
	}
	if c.RetryWaitMax < c.RetryWaitMin {
		problems = append(problems, "jira.retry_wait_max must be at least jira.retry_wait_min")
	}
	if c.RequestsPerSecond < 0 {
		problems = append(problems, "jira.requests_per_second must not be negative")
	}
	return problems
}

func (c Config) baseURL() string {
	return strings.TrimRight(c.BaseURL, "/")
}
