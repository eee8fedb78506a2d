// Package projectctx gathers read-only context about a tracker project that
// is fed to the plan generator: an overview, recent epics and a style guide
// derived from existing issues.
package projectctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/backlog/internal/jira"
	"github.com/felixgeelhaar/backlog/internal/log"
)

// Source is the subset of the tracker client the loader reads from.
type Source interface {
	Project(ctx context.Context, key string) (jira.Project, error)
	Search(ctx context.Context, jql string, limit int) ([]jira.Issue, error)
}

// Overview is a project's headline metadata.
type Overview struct {
	Key         string `json:"key" yaml:"key"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Lead        string `json:"lead,omitempty" yaml:"lead,omitempty"`
}

// Context is everything the generator is told about the target project.
type Context struct {
	Overview    Overview `json:"overview" yaml:"overview"`
	RecentEpics []Sample `json:"recentEpics,omitempty" yaml:"recent_epics,omitempty"`
	StyleGuide  string   `json:"styleGuide" yaml:"style_guide"`
}

// Options bounds how much history is read.
type Options struct {
	// RecentEpics is how many of the newest epics are listed.
	RecentEpics int
	// SnapshotLimit caps the issues analysed for the style guide; zero reads all.
	SnapshotLimit int
	// SnapshotTypes are the issue types analysed for the style guide.
	SnapshotTypes []string
}

// DefaultOptions returns three recent epics and a 200-issue epic/story snapshot.
func DefaultOptions() Options {
	return Options{
		RecentEpics:   3,
		SnapshotLimit: 200,
		SnapshotTypes: []string{"Epic", "Story"},
	}
}

// Loader reads project context from the tracker.
type Loader struct {
	src    Source
	opts   Options
	logger *log.Logger
}

// NewLoader creates a loader. A nil logger discards.
func NewLoader(src Source, opts Options, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Discard()
	}
	return &Loader{src: src, opts: opts, logger: logger}
}

// Overview returns the project's name, description and lead.
func (l *Loader) Overview(ctx context.Context, projectKey string) (Overview, error) {
	p, err := l.src.Project(ctx, projectKey)
	if err != nil {
		return Overview{}, fmt.Errorf("project overview %s: %w", projectKey, err)
	}
	return Overview{
		Key:         p.Key,
		Name:        p.Name,
		Description: p.Description,
		Lead:        p.Lead.DisplayName,
	}, nil
}

// RecentEpics returns the newest epics of the project.
func (l *Loader) RecentEpics(ctx context.Context, projectKey string) ([]Sample, error) {
	if l.opts.RecentEpics <= 0 {
		return nil, nil
	}
	issues, err := l.src.Search(ctx, jira.ProjectJQL(projectKey, "issuetype = Epic"), l.opts.RecentEpics)
	if err != nil {
		return nil, fmt.Errorf("recent epics %s: %w", projectKey, err)
	}
	return samples(issues), nil
}

// Snapshot returns the issues analysed for the style guide.
func (l *Loader) Snapshot(ctx context.Context, projectKey string) ([]Sample, error) {
	types := l.opts.SnapshotTypes
	if len(types) == 0 {
		types = DefaultOptions().SnapshotTypes
	}
	quoted := make([]string, len(types))
	for i, t := range types {
		quoted[i] = jira.QuoteJQL(t)
	}
	jql := jira.ProjectJQL(projectKey, "issuetype IN ("+strings.Join(quoted, ", ")+")")

	issues, err := l.src.Search(ctx, jql, l.opts.SnapshotLimit)
	if err != nil {
		return nil, fmt.Errorf("project snapshot %s: %w", projectKey, err)
	}
	return samples(issues), nil
}

// Load assembles the full context. Only the overview is mandatory; history
// lookups that fail are logged and leave the style guide at its default.
func (l *Loader) Load(ctx context.Context, projectKey string) (*Context, error) {
	overview, err := l.Overview(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	out := &Context{Overview: overview, StyleGuide: NoHistory}

	if epics, err := l.RecentEpics(ctx, projectKey); err != nil {
		l.logger.WithError(err).Warn("skipping recent epics", "project", projectKey)
	} else {
		out.RecentEpics = epics
	}

	snapshot, err := l.Snapshot(ctx, projectKey)
	if err != nil {
		l.logger.WithError(err).Warn("skipping style guide", "project", projectKey)
		return out, nil
	}
	out.StyleGuide = StyleGuide(snapshot)
	l.logger.Debug("project context loaded",
		"project", projectKey,
		"recent_epics", len(out.RecentEpics),
		"snapshot", len(snapshot))
	return out, nil
}

// Brief renders the overview and recent epics as prompt text.
func (c *Context) Brief() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Project %s: %s\n", c.Overview.Key, c.Overview.Name)
	if c.Overview.Lead != "" {
		fmt.Fprintf(&b, "Lead: %s\n", c.Overview.Lead)
	}
	if c.Overview.Description != "" {
		fmt.Fprintf(&b, "About: %s\n", Shorten(c.Overview.Description, 400))
	}
	if len(c.RecentEpics) > 0 {
		b.WriteString("Recent epics:\n")
		for _, e := range c.RecentEpics {
			fmt.Fprintf(&b, "- %s %s\n", e.Key, e.Summary)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func samples(issues []jira.Issue) []Sample {
	out := make([]Sample, 0, len(issues))
	for _, is := range issues {
		out = append(out, SampleOf(is))
	}
	return out
}
