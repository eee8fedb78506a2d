// Package config loads the CLI configuration file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/backlog/internal/domain"
	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/jira"
	"github.com/felixgeelhaar/backlog/internal/log"
	"github.com/felixgeelhaar/backlog/internal/mapper"
	"github.com/felixgeelhaar/backlog/internal/orchestrator"
	"github.com/felixgeelhaar/backlog/internal/projectctx"
	"github.com/felixgeelhaar/backlog/internal/provider"
	"github.com/felixgeelhaar/backlog/internal/telemetry"
)

// Environment variables that override the file.
const (
	EnvConfig        = "BACKLOG_CONFIG"
	EnvJiraBaseURL   = "JIRA_BASE_URL"
	EnvJiraEmail     = "JIRA_EMAIL"
	EnvJiraAPIToken  = "JIRA_API_TOKEN"
	EnvLogLevel      = "BACKLOG_LOG_LEVEL"
	EnvMetricsOutput = "BACKLOG_METRICS_TEXTFILE"
)

// Config is the complete CLI configuration.
type Config struct {
	Jira      jira.Config      `yaml:"jira"`
	Mapping   MappingConfig    `yaml:"mapping"`
	Plan      PlanConfig       `yaml:"plan"`
	Context   ContextConfig    `yaml:"context"`
	Generator provider.Config  `yaml:"generator"`
	Log       log.Config       `yaml:"log"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

// MappingConfig tunes the field mappers.
type MappingConfig struct {
	// Exempt replaces the default list of fields never reported as missing.
	Exempt []string `yaml:"exempt,omitempty"`
	// StrictTypes checks values against the tracker's field schemas.
	StrictTypes bool `yaml:"strict_types"`
}

// PlanConfig describes the target tracker's conventions.
type PlanConfig struct {
	// Priorities are the labels plans may use; empty means the standard scheme.
	Priorities []string `yaml:"priorities,omitempty"`
	// IssueTypes name the tracker types created for each plan level.
	IssueTypes IssueTypesConfig `yaml:"issue_types"`
}

// IssueTypesConfig names the tracker issue types.
type IssueTypesConfig struct {
	Epic  string `yaml:"epic"`
	Story string `yaml:"story"`
	Task  string `yaml:"task"`
}

// ContextConfig bounds how much project history feeds the generator.
type ContextConfig struct {
	RecentEpics   int `yaml:"recent_epics"`
	SnapshotLimit int `yaml:"snapshot_limit"`
}

// MetricsConfig controls the Prometheus textfile written after each command.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	ctx := projectctx.DefaultOptions()
	types := orchestrator.DefaultIssueTypes
	return &Config{
		Jira:      jira.DefaultConfig(),
		Generator: provider.DefaultConfig(),
		Plan: PlanConfig{
			IssueTypes: IssueTypesConfig{Epic: types.Epic, Story: types.Story, Task: types.Task},
		},
		Context: ContextConfig{
			RecentEpics:   ctx.RecentEpics,
			SnapshotLimit: ctx.SnapshotLimit,
		},
		Log:       log.DefaultConfig(),
		Telemetry: telemetry.DefaultConfig(),
	}
}

// DefaultPath returns ~/.backlog/config.yaml, or "" when the home directory
// is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".backlog", "config.yaml")
}

// Load reads path over the defaults, expands ${VAR} references and applies
// environment overrides. An empty path falls back to $BACKLOG_CONFIG and then
// DefaultPath; a missing default file is not an error, a missing explicit one is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvConfig); env != "" {
			path, explicit = env, true
		} else {
			path = DefaultPath()
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		case errors.Is(err, fs.ErrNotExist):
			return nil, berrors.New(berrors.ErrCodeConfigNotFound, fmt.Sprintf("config file not found: %s", path)).
				WithSuggestion("Check the path passed with --config or $" + EnvConfig)
		case err != nil:
			return nil, berrors.Wrap(berrors.ErrCodeFileReadFailed, "read config", err)
		default:
			if err := Parse(data, cfg); err != nil {
				return nil, berrors.NewFileUnmarshalError(path, "YAML", err)
			}
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// Parse decodes YAML into cfg after expanding environment references.
func Parse(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	if strings.TrimSpace(expanded) == "" {
		return nil
	}
	return yaml.Unmarshal([]byte(expanded), cfg)
}

// ApplyEnv overlays the well-known environment variables.
func (c *Config) ApplyEnv() {
	setFromEnv(&c.Jira.BaseURL, EnvJiraBaseURL)
	setFromEnv(&c.Jira.Email, EnvJiraEmail)
	setFromEnv(&c.Jira.APIToken, EnvJiraAPIToken)
	setFromEnv(&c.Metrics.Textfile, EnvMetricsOutput)
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.Log.Level = log.ParseLevel(lvl)
	}
	c.Generator.ResolveAPIKey()
}

func setFromEnv(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// Validate checks the sections every command relies on.
func (c *Config) Validate() error {
	return asError(c.problems())
}

// ValidateTracker additionally requires working tracker settings.
func (c *Config) ValidateTracker() error {
	return asError(append(c.problems(), c.Jira.Validate()...))
}

// ValidateGenerator additionally requires tracker and generator settings.
func (c *Config) ValidateGenerator() error {
	problems := append(c.problems(), c.Jira.Validate()...)
	return asError(append(problems, c.Generator.Validate()...))
}

func (c *Config) problems() []string {
	var problems []string
	for i, p := range c.Plan.Priorities {
		if strings.TrimSpace(p) == "" {
			problems = append(problems, fmt.Sprintf("plan.priorities[%d] is empty", i))
		}
	}
	types := c.Plan.IssueTypes
	for _, t := range []struct{ name, value string }{
		{"epic", types.Epic}, {"story", types.Story}, {"task", types.Task},
	} {
		if strings.TrimSpace(t.value) == "" {
			problems = append(problems, fmt.Sprintf("plan.issue_types.%s is required", t.name))
		}
	}
	if c.Context.RecentEpics < 0 || c.Context.SnapshotLimit < 0 {
		problems = append(problems, "context limits must be non-negative")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		problems = append(problems, "telemetry.sample_rate must be between 0 and 1")
	}
	return problems
}

func asError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return berrors.NewConfigInvalidError(problems)
}

// Priorities returns the allowed priority labels.
func (c *Config) Priorities() []domain.Priority {
	if len(c.Plan.Priorities) == 0 {
		return domain.StandardPriorities
	}
	out := make([]domain.Priority, len(c.Plan.Priorities))
	for i, p := range c.Plan.Priorities {
		out[i] = domain.Priority(strings.TrimSpace(p))
	}
	return out
}

// MapperOptions returns the mapper settings.
func (c *Config) MapperOptions() mapper.Options {
	return mapper.Options{Exempt: c.Mapping.Exempt, StrictTypes: c.Mapping.StrictTypes}
}

// IssueTypes returns the tracker issue types the orchestrator creates.
func (c *Config) IssueTypes() orchestrator.IssueTypes {
	t := c.Plan.IssueTypes
	return orchestrator.IssueTypes{Epic: t.Epic, Story: t.Story, Task: t.Task}
}

// ContextOptions returns the project context limits.
func (c *Config) ContextOptions() projectctx.Options {
	opts := projectctx.DefaultOptions()
	opts.RecentEpics = c.Context.RecentEpics
	opts.SnapshotLimit = c.Context.SnapshotLimit
	return opts
}
