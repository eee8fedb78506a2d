package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/backlog/internal/jira"
	"github.com/felixgeelhaar/backlog/internal/provider"
	"github.com/felixgeelhaar/backlog/internal/schema"
)

func TestResultBuilders(t *testing.T) {
	r := Degraded("slow").WithDetail("ms", 900).WithHint("try later")
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, 900, r.Details["ms"])
	assert.Equal(t, "try later", r.Hint)
	assert.Equal(t, "ok", StatusHealthy.String())
}

type fakeIdentity struct {
	user jira.User
	err  error
}

func (f fakeIdentity) Myself(context.Context) (jira.User, error) { return f.user, f.err }
func (f fakeIdentity) BaseURL() string                           { return "https://demo.atlassian.net" }

func TestTrackerChecker(t *testing.T) {
	tests := []struct {
		name     string
		checker  *TrackerChecker
		status   Status
		contains string
	}{
		{"ok", NewTrackerChecker(fakeIdentity{user: jira.User{AccountID: "a1", DisplayName: "Dev"}}), StatusHealthy, "as Dev"},
		{"auth failure", NewTrackerChecker(fakeIdentity{err: errors.New("401 unauthorized\n\nSuggestions: x")}), StatusUnhealthy, "401 unauthorized"},
		{"not configured", NewTrackerChecker(nil, "jira.base_url is required"), StatusUnhealthy, "jira.base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.checker.Check(context.Background())
			assert.Equal(t, tt.status, r.Status)
			assert.Contains(t, r.Message, tt.contains)
			assert.NotContains(t, r.Message, "Suggestions")
		})
	}
}

type fakeProject struct {
	types []schema.IssueType
	err   error
}

func (f fakeProject) Project(_ context.Context, key string) (jira.Project, error) {
	if f.err != nil {
		return jira.Project{}, f.err
	}
	return jira.Project{Key: key, Name: "Demo"}, nil
}

func (f fakeProject) IssueTypes(context.Context, string) ([]schema.IssueType, error) {
	return f.types, nil
}

func TestProjectChecker(t *testing.T) {
	src := fakeProject{types: []schema.IssueType{{Name: "Epic"}, {Name: "Story"}}}

	r := NewProjectChecker(src, src, "DEMO").Check(context.Background())
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Equal(t, "Demo (DEMO): Epic, Story", r.Message)

	r = NewProjectChecker(src, src, "").Check(context.Background())
	assert.Equal(t, StatusSkipped, r.Status)

	failing := fakeProject{err: errors.New("404 project not found")}
	r = NewProjectChecker(failing, failing, "NOPE").Check(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)
}

func TestGeneratorChecker(t *testing.T) {
	cfg := provider.DefaultConfig()
	r := NewGeneratorChecker(cfg).Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Contains(t, r.Hint, "ANTHROPIC_API_KEY")

	cfg.APIKey = "k"
	cfg.Model = "claude-test"
	r = NewGeneratorChecker(cfg).Check(context.Background())
	require.Equal(t, StatusHealthy, r.Status)
	assert.Equal(t, "anthropic, claude-test", r.Message)
}

func TestConfigChecker(t *testing.T) {
	assert.Equal(t, StatusDegraded, NewConfigChecker("").Check(context.Background()).Status)
	assert.Equal(t, StatusHealthy, NewConfigChecker("/etc/backlog.yaml").Check(context.Background()).Status)
}
