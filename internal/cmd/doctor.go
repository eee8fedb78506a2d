package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/backlog/internal/domain"
	"github.com/felixgeelhaar/backlog/internal/health"
	"github.com/felixgeelhaar/backlog/internal/ux"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and connectivity",
	Long: `Run diagnostics to check that backlog is ready to use.

Checks include:
  • Configuration file and settings
  • Jira credentials (by asking Jira who you are)
  • Access to a project and its issue types (with --project)
  • Plan generator settings

Examples:
  backlog doctor
  backlog doctor --project DEMO --format json`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

// DoctorReport represents the complete health check report
type DoctorReport struct {
	Checks    []health.Named `json:"checks" yaml:"checks"`
	NextSteps []string       `json:"next_steps" yaml:"next_steps"`
	Status    health.Status  `json:"status" yaml:"status"`
	Healthy   bool           `json:"healthy" yaml:"healthy"`
}

// RenderText implements ux.TextRenderer.
func (r *DoctorReport) RenderText(th ux.Theme) string {
	var b strings.Builder
	b.WriteString(th.Title.Render("backlog doctor") + "\n\n")
	for _, c := range r.Checks {
		var mark string
		switch c.Status {
		case health.StatusHealthy:
			mark = th.Success.Render("✓")
		case health.StatusDegraded:
			mark = th.Warning.Render("!")
		case health.StatusUnhealthy:
			mark = th.Error.Render("✗")
		default:
			mark = th.Muted.Render("-")
		}
		fmt.Fprintf(&b, "%s %-10s %s\n", mark, c.Name, c.Message)
	}
	if len(r.NextSteps) > 0 {
		b.WriteString("\n" + th.Header.Render("Next steps") + "\n")
		for _, s := range r.NextSteps {
			fmt.Fprintf(&b, "  • %s\n", s)
		}
	}
	b.WriteString("\n")
	if r.Healthy {
		b.WriteString(th.Success.Render("Ready to publish"))
	} else {
		b.WriteString(th.Error.Render("Not ready: fix the errors above"))
	}
	return b.String()
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	s := current
	projectKey := domain.NormalizeProjectKey(cmd.Flags().Lookup("project").Value.String())

	m := health.NewManager()
	m.AddChecker(health.NewConfigChecker(s.configPath))
	if problems := s.cfg.Jira.Validate(); len(problems) > 0 {
		m.AddChecker(health.NewTrackerChecker(nil, problems...))
		m.AddChecker(health.NewProjectChecker(nil, nil, projectKey))
	} else {
		client := s.jiraClient()
		m.AddChecker(health.NewTrackerChecker(client))
		m.AddChecker(health.NewProjectChecker(client, s.resolver(client), projectKey))
	}
	m.AddChecker(health.NewGeneratorChecker(s.cfg.Generator))

	report := &DoctorReport{Checks: m.Check(cmd.Context())}
	for _, c := range report.Checks {
		if c.Hint != "" {
			report.NextSteps = append(report.NextSteps, c.Hint)
		}
		s.logger.Debug("doctor check", "name", c.Name, "status", c.Status, "latency", c.Latency)
	}
	report.Status = health.OverallStatus(report.Checks)
	report.Healthy = report.Status != health.StatusUnhealthy

	f, err := cc.Formatter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return f.Format(report)
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().String("project", "", "Also check access to this project")
}
