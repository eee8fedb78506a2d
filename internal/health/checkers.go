package health

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/backlog/internal/jira"
	"github.com/felixgeelhaar/backlog/internal/provider"
	"github.com/felixgeelhaar/backlog/internal/schema"
)

// ConfigChecker reports which config file is in use.
type ConfigChecker struct {
	path string
}

// NewConfigChecker checks the config file at path; "" means none was found.
func NewConfigChecker(path string) *ConfigChecker {
	return &ConfigChecker{path: path}
}

// Name implements Checker.
func (c *ConfigChecker) Name() string { return "config" }

// Check implements Checker.
func (c *ConfigChecker) Check(context.Context) *Result {
	if c.path == "" {
		return Degraded("no config file found, using defaults and environment").
			WithHint("Create ~/.backlog/config.yaml or a project .backlog.yaml")
	}
	return Healthy(c.path).WithDetail("path", c.path)
}

// Identity is the tracker client surface the tracker check needs.
type Identity interface {
	Myself(ctx context.Context) (jira.User, error)
	BaseURL() string
}

// TrackerChecker verifies the tracker credentials by asking who they belong to.
type TrackerChecker struct {
	client   Identity
	problems []string
}

// NewTrackerChecker checks client. Configuration problems, when given, fail
// the check without a request.
func NewTrackerChecker(client Identity, problems ...string) *TrackerChecker {
	return &TrackerChecker{client: client, problems: problems}
}

// Name implements Checker.
func (c *TrackerChecker) Name() string { return "jira" }

// Check implements Checker.
func (c *TrackerChecker) Check(ctx context.Context) *Result {
	if len(c.problems) > 0 {
		return Unhealthy(strings.Join(c.problems, "; ")).
			WithHint("Set JIRA_BASE_URL, JIRA_EMAIL and JIRA_API_TOKEN")
	}
	me, err := c.client.Myself(ctx)
	if err != nil {
		return Unhealthy(firstLine(err))
	}
	return Healthy(fmt.Sprintf("%s as %s", c.client.BaseURL(), me.DisplayName)).
		WithDetail("account_id", me.AccountID)
}

// ProjectSource reads a project's metadata.
type ProjectSource interface {
	Project(ctx context.Context, key string) (jira.Project, error)
}

// TypeLister lists a project's creatable issue types.
type TypeLister interface {
	IssueTypes(ctx context.Context, projectKey string) ([]schema.IssueType, error)
}

// ProjectChecker verifies a project is visible and lists its issue types.
type ProjectChecker struct {
	src   ProjectSource
	types TypeLister
	key   string
}

// NewProjectChecker checks project key; an empty key skips the check.
func NewProjectChecker(src ProjectSource, types TypeLister, key string) *ProjectChecker {
	return &ProjectChecker{src: src, types: types, key: key}
}

// Name implements Checker.
func (c *ProjectChecker) Name() string { return "project" }

// Check implements Checker.
func (c *ProjectChecker) Check(ctx context.Context) *Result {
	if c.key == "" {
		return Skipped("pass --project to check a project")
	}
	if c.src == nil {
		return Skipped("jira is not configured")
	}
	project, err := c.src.Project(ctx, c.key)
	if err != nil {
		return Unhealthy(firstLine(err))
	}
	types, err := c.types.IssueTypes(ctx, c.key)
	if err != nil {
		return Degraded(fmt.Sprintf("%s found but issue types are unavailable: %s", project.Name, firstLine(err)))
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	return Healthy(fmt.Sprintf("%s (%s): %s", project.Name, project.Key, strings.Join(names, ", "))).
		WithDetail("issue_types", names)
}

// GeneratorChecker validates the plan generator settings without calling it.
type GeneratorChecker struct {
	cfg provider.Config
}

// NewGeneratorChecker checks cfg.
func NewGeneratorChecker(cfg provider.Config) *GeneratorChecker {
	return &GeneratorChecker{cfg: cfg}
}

// Name implements Checker.
func (c *GeneratorChecker) Name() string { return "generator" }

// Check implements Checker.
func (c *GeneratorChecker) Check(context.Context) *Result {
	if problems := c.cfg.Validate(); len(problems) > 0 {
		return Degraded(strings.Join(problems, "; ")).
			WithHint(fmt.Sprintf("Set %s to draft plans with 'backlog plan generate'", c.cfg.APIKeyEnv()))
	}
	model := c.cfg.Model
	if model == "" {
		model = "default model"
	}
	return Healthy(fmt.Sprintf("%s, %s", c.cfg.Provider, model))
}

// firstLine drops suggestion blocks from coded error messages.
func firstLine(err error) string {
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return msg
}
