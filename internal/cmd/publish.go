package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/domain"
	"github.com/felixgeelhaar/backlog/internal/journal"
	"github.com/felixgeelhaar/backlog/internal/orchestrator"
	"github.com/felixgeelhaar/backlog/internal/plan"
	"github.com/felixgeelhaar/backlog/internal/progress"
	"github.com/felixgeelhaar/backlog/internal/tui"
	"github.com/felixgeelhaar/backlog/internal/ux"
)

var publishCmd = &cobra.Command{
	Use:   "publish FILE",
	Short: "Create a plan's issues in Jira",
	Long: `Create every epic, story and sub-task of a plan in Jira, parents first.

Each issue type's field schema is resolved once, every payload is checked
against it before it is sent, and the run halts at the first item that cannot
be created. Issues created before a failure are kept; the run report lists
their keys and the item that stopped the run.

Every create request is also appended to ~/.backlog/runs/journal.jsonl as it
happens, so the keys of created issues survive a crash.

Press q during an interactive run to stop after the issue in flight.`,
	Example: `  backlog publish demo-plan.yaml
  backlog publish demo-plan.yaml --yes --report run.yaml
  backlog publish demo-plan.yaml --dry-run -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

// dryRunOutput is what a dry run prints in structured formats.
type dryRunOutput struct {
	Report   orchestrator.Report          `json:"report" yaml:"report"`
	Requests []orchestrator.DryRunRequest `json:"requests" yaml:"requests"`
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	s := current

	yes, _ := cmd.Flags().GetBool("yes")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noTUI, _ := cmd.Flags().GetBool("no-tui")
	noJournal, _ := cmd.Flags().GetBool("no-journal")
	reportPath := cmd.Flags().Lookup("report").Value.String()

	p, err := plan.Load(args[0])
	if err != nil {
		return err
	}
	if err := p.ValidateSelf(plan.WithPriorities(s.cfg.Priorities()...)); err != nil {
		return err
	}

	projectKey := p.ProjectKey
	if override := cmd.Flags().Lookup("project").Value.String(); override != "" {
		projectKey = domain.NormalizeProjectKey(override)
		if err := domain.ValidateProjectKey(projectKey); err != nil {
			return usageError("--project: %v", err)
		}
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("project", projectKey),
		attribute.String("plan_file", args[0]),
		attribute.Int("nodes", p.Len()),
		attribute.Bool("dry_run", dryRun),
	)

	if err := s.cfg.ValidateTracker(); err != nil {
		return err
	}

	if !yes && !dryRun {
		ok, err := ux.Confirm(
			fmt.Sprintf("Create %d issue(s) in %s?", p.Len(), projectKey),
			ux.PlanSummary(p),
		)
		if errors.Is(err, ux.ErrNotInteractive) {
			return usageError("refusing to create issues without confirmation: pass --yes")
		}
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.ErrOrStderr(), "Publish cancelled.")
			return nil
		}
	}

	client := s.jiraClient()
	me, err := client.Myself(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("authenticated", "account_id", me.AccountID, "display_name", me.DisplayName)

	var (
		orch   *orchestrator.Orchestrator
		poster orchestrator.Poster = client
		dry    *orchestrator.DryRunPoster
		rec    *journal.RecordingPoster
	)
	switch {
	case dryRun:
		dry = orchestrator.NewDryRunPoster(projectKey)
		poster = dry
	case !noJournal:
		w, err := journal.Open(journal.DefaultConfig(ux.NewPathDefaults().RunsDir()))
		if err != nil {
			s.logger.WithError(err).Warn("Journal disabled for this run")
			break
		}
		defer w.Close()
		rec = journal.NewRecordingPoster(client, w, projectKey, func() string { return orch.RunID() }, s.logger)
		poster = rec
	}
	orch = s.orchestrator(s.resolver(client), poster)

	useTUI := cc.Text() && !noTUI && ux.IsInteractive() && !progress.IsCIEnvironment()
	ids, runErr := createWithProgress(ctx, cmd, cc, orch, p, me.AccountID, projectKey, useTUI)
	if rec != nil {
		rec.Close(orch.RunID(), ids.Created(), runErr)
	}

	report := orchestrator.NewReport(p, orch.RunID(), ids, runErr)
	report.Project = projectKey

	if reportPath != "" || !dryRun {
		if reportPath == "" {
			defaults := ux.NewPathDefaults()
			if err := defaults.EnsureRunsDir(); err != nil {
				s.logger.WithError(err).Warn("Failed to create runs directory")
			}
			reportPath = defaults.ReportFile(report.RunID, report.FinishedAt)
		}
		if err := writeReport(report, reportPath); err != nil {
			if runErr != nil {
				s.logger.With("path", reportPath).LogError(ctx, "Failed to write run report", err)
				return runErr
			}
			return err
		}
		s.logger.Info("run report written", "path", reportPath)
	}

	if err := printPublishResult(cmd, cc, report, dry, reportPath); err != nil {
		return err
	}
	return runErr
}

// createWithProgress runs the orchestrator behind the interactive view or the
// plain progress bar.
func createWithProgress(ctx context.Context, cmd *cobra.Command, cc *CommandContext, orch *orchestrator.Orchestrator, p *plan.Plan, accountID, projectKey string, useTUI bool) (orchestrator.IdentifierMap, error) {
	if useTUI {
		view := tui.NewAdapter(projectKey, p.Len(), tea.WithOutput(cmd.ErrOrStderr()))
		view.Start(ctx)
		ids, runErr := orch.CreatePlan(ctx, p, accountID, projectKey, view.Progress)
		if err := view.Finish(ids.Created(), runErr); err != nil {
			current.logger.WithError(err).Warn("Interactive view exited with an error")
		}
		return ids, runErr
	}

	indicator := progress.NewIndicator(progress.Config{Writer: cmd.ErrOrStderr()})
	ids, runErr := orch.CreatePlan(ctx, p, accountID, projectKey, indicator.Update)
	summary := progress.Summary{Created: ids.Created(), Err: runErr}
	var re *orchestrator.RunError
	if errors.As(runErr, &re) {
		summary.FailedAt = re.LocalID
	}
	if cc.Text() {
		indicator.Finish(summary)
	}
	return ids, runErr
}

func printPublishResult(cmd *cobra.Command, cc *CommandContext, report orchestrator.Report, dry *orchestrator.DryRunPoster, reportPath string) error {
	f, err := cc.Formatter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if dry != nil && !cc.Text() {
		return f.Format(dryRunOutput{Report: report, Requests: dry.Requests()})
	}
	if err := f.Format(ux.ReportView{Report: report}); err != nil {
		return err
	}

	if !cc.Text() {
		return nil
	}
	th := cc.Theme()
	w := cmd.OutOrStdout()
	if dry != nil {
		fmt.Fprintf(w, "%s\n", th.Warning.Render(fmt.Sprintf("Dry run: %d request(s) checked, nothing was created in Jira", len(dry.Requests()))))
	}
	if reportPath != "" {
		fmt.Fprintf(w, "%s\n", th.Muted.Render("Report: "+reportPath))
	}
	return nil
}

// writeReport saves report as YAML, creating the parent directory.
func writeReport(report orchestrator.Report, path string) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return berrors.Wrap(berrors.ErrCodeFileMarshal, "encode run report", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return berrors.Wrap(berrors.ErrCodeFileWriteFailed, "create report directory", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return berrors.Wrap(berrors.ErrCodeFileWriteFailed, "write run report", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().Bool("yes", false, "Create issues without asking for confirmation")
	publishCmd.Flags().String("report", "", "Write the run report here (default: ~/.backlog/runs/<time>-<run id>.yaml)")
	publishCmd.Flags().Bool("dry-run", false, "Resolve schemas and check every payload without creating issues")
	publishCmd.Flags().Bool("no-tui", false, "Print a plain progress bar instead of the interactive view")
	publishCmd.Flags().String("project", "", "Create issues in this project instead of the plan's")
	publishCmd.Flags().Bool("no-journal", false, "Do not append create requests to ~/.backlog/runs/journal.jsonl")
}
