package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/domain"
	"github.com/felixgeelhaar/backlog/internal/generator"
	"github.com/felixgeelhaar/backlog/internal/plan"
	"github.com/felixgeelhaar/backlog/internal/projectctx"
	"github.com/felixgeelhaar/backlog/internal/schema"
	"github.com/felixgeelhaar/backlog/internal/ux"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Draft, inspect and check backlog plans",
	Long: `Work with plan files: the reviewable YAML or JSON description of the
initiatives, epics, stories and sub-tasks that 'backlog publish' creates.

Use 'backlog plan generate' to draft a plan from a feature request.
Use 'backlog plan show' to view a plan as a tree.
Use 'backlog plan validate' to check a plan after editing it.
Use 'backlog plan schema' to print the plan file's JSON Schema.`,
}

var planGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Draft a plan from a feature request",
	Long: `Draft a plan with the configured language model.

The model is told about the target project: its description, its most
recent epics, a style guide derived from existing epics and stories, and the
fields each issue type requires. The reply is checked against the plan
schema before it is written.`,
	Example: `  backlog plan generate --project DEMO --prompt "Add card payments to checkout"
  backlog plan generate --project DEMO --prompt-file request.md --out payments.yaml`,
	Args: cobra.NoArgs,
	RunE: runPlanGenerate,
}

var planValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a plan file",
	Long: `Check a plan's structure: unique local ids, parents that exist and
precede their children, known priorities and non-negative story points.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlanValidate,
}

var planShowCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Print a plan as a tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanShow,
}

var planSchemaCmd = &cobra.Command{
	Use:         "schema",
	Short:       "Print the JSON Schema of plan files",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoSession: "true"},
	RunE:        runPlanSchema,
}

func runPlanGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	s := current

	projectKey := domain.NormalizeProjectKey(cmd.Flags().Lookup("project").Value.String())
	if err := domain.ValidateProjectKey(projectKey); err != nil {
		return usageError("--project: %v", err)
	}
	if err := s.cfg.ValidateGenerator(); err != nil {
		return err
	}

	prompt, err := readPrompt(cmd)
	if err != nil {
		return err
	}

	out := cmd.Flags().Lookup("out").Value.String()
	if !cmd.Flags().Changed("out") {
		out = ux.PlanFile(projectKey)
	}
	noContext, _ := cmd.Flags().GetBool("no-context")

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("project", projectKey),
		attribute.String("plan_file", out),
		attribute.Bool("project_context", !noContext),
	)

	gen, err := s.generator()
	if err != nil {
		return err
	}
	req := generator.Request{ProjectKey: projectKey, Prompt: prompt}

	if !noContext {
		if err := s.cfg.ValidateTracker(); err != nil {
			return err
		}
		client := s.jiraClient()

		pc, err := projectctx.NewLoader(client, s.cfg.ContextOptions(), s.logger).Load(ctx, projectKey)
		if err != nil {
			return ux.FormatError(err, "loading project context")
		}
		req.ProjectBrief = pc.Brief()
		req.StyleGuide = pc.StyleGuide

		resolver := s.resolver(client)
		types := s.cfg.IssueTypes()
		var sets []*schema.FieldSet
		for _, name := range []string{types.Epic, types.Story, types.Task} {
			fs, err := resolver.Resolve(ctx, projectKey, name)
			if err != nil {
				s.logger.WithError(err).Warn("Field schema unavailable for generation", "issue_type", name)
				continue
			}
			sets = append(sets, fs)
		}
		req.FieldsGuide = projectctx.FieldsGuide(sets...)
	}

	if cc.Text() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Drafting plan for %s...\n", projectKey)
	}
	p, err := gen.Generate(ctx, req)
	if err != nil {
		return err
	}
	if err := plan.Save(p, out); err != nil {
		return err
	}

	if !cc.Text() {
		f, err := cc.Formatter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return f.Format(p)
	}

	th := cc.Theme()
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, ux.PlanView{Plan: p}.RenderText(th))
	fmt.Fprintf(w, "\n%s Wrote %s (%s)\n", th.Success.Render("✓"), out, ux.PlanSummary(p))
	fmt.Fprintf(w, "%s\n", th.Muted.Render("Review and edit it, then run: backlog publish "+out))
	return nil
}

// readPrompt takes the feature request from --prompt, --prompt-file or an
// interactive prompt, in that order.
func readPrompt(cmd *cobra.Command) (string, error) {
	prompt, _ := cmd.Flags().GetString("prompt")
	promptFile, _ := cmd.Flags().GetString("prompt-file")

	switch {
	case prompt != "" && promptFile != "":
		return "", usageError("--prompt and --prompt-file are mutually exclusive")
	case promptFile != "":
		data, err := os.ReadFile(promptFile)
		if errors.Is(err, fs.ErrNotExist) {
			return "", berrors.NewFileNotFoundError(promptFile)
		}
		if err != nil {
			return "", berrors.Wrap(berrors.ErrCodeFileReadFailed, "read prompt file", err)
		}
		prompt = string(data)
	case prompt == "":
		text, err := ux.PromptText("Feature request", "Describe what should be built")
		if err != nil {
			if errors.Is(err, ux.ErrNotInteractive) {
				return "", usageError("a feature request is required: pass --prompt or --prompt-file")
			}
			return "", err
		}
		prompt = text
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", usageError("the feature request is empty")
	}
	return prompt, nil
}

func runPlanValidate(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	p, err := plan.Load(args[0])
	if err != nil {
		return err
	}
	if err := p.ValidateSelf(plan.WithPriorities(current.cfg.Priorities()...)); err != nil {
		return err
	}

	th := cc.Theme()
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s is valid: %s for project %s\n",
		th.Success.Render("✓"), args[0], ux.PlanSummary(p), p.ProjectKey)
	return nil
}

func runPlanShow(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	p, err := plan.Load(args[0])
	if err != nil {
		return err
	}

	f, err := cc.Formatter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return f.Format(ux.PlanView{Plan: p})
}

func runPlanSchema(cmd *cobra.Command, _ []string) error {
	data, err := plan.JSONSchemaBytes()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planGenerateCmd)
	planCmd.AddCommand(planValidateCmd)
	planCmd.AddCommand(planShowCmd)
	planCmd.AddCommand(planSchemaCmd)

	// plan generate flags
	planGenerateCmd.Flags().String("project", "", "Target project key (required)")
	planGenerateCmd.Flags().String("prompt", "", "Feature request text")
	planGenerateCmd.Flags().String("prompt-file", "", "Read the feature request from a file")
	planGenerateCmd.Flags().String("out", "", "Output plan file (default: <project>-plan.yaml)")
	planGenerateCmd.Flags().Bool("no-context", false, "Do not read project history or field schemas from Jira")
	_ = planGenerateCmd.MarkFlagRequired("project")
}
