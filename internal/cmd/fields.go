package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/backlog/internal/domain"
	"github.com/felixgeelhaar/backlog/internal/projectctx"
	"github.com/felixgeelhaar/backlog/internal/schema"
	"github.com/felixgeelhaar/backlog/internal/ux"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Show the fields Jira expects when creating issues",
	Long: `Resolve and print the create-time field schema of one or more issue
types: each field's id, value type, whether it is required and the values it
accepts. These are the schemas 'backlog publish' checks payloads against.`,
	Example: `  backlog fields --project DEMO
  backlog fields --project DEMO --type Story,Bug
  backlog fields --project DEMO --type Epic -o json`,
	Args: cobra.NoArgs,
	RunE: runFields,
}

func runFields(cmd *cobra.Command, _ []string) error {
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
	if err := s.cfg.ValidateTracker(); err != nil {
		return err
	}

	types := issueTypeNames(cmd.Flags().Lookup("type").Value.String())
	if len(types) == 0 {
		configured := s.cfg.IssueTypes()
		types = []string{configured.Epic, configured.Story, configured.Task}
	}

	resolver := s.resolver(s.jiraClient())
	sets := make([]*schema.FieldSet, 0, len(types))
	for _, name := range types {
		fs, err := resolver.Resolve(ctx, projectKey, name)
		if err != nil {
			return err
		}
		sets = append(sets, fs)
	}

	if guide, _ := cmd.Flags().GetBool("guide"); guide {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), projectctx.FieldsGuide(sets...))
		return err
	}

	f, err := cc.Formatter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return f.Format(ux.FieldsView{Sets: sets})
}

// issueTypeNames splits a comma-separated --type value, dropping blanks and
// repeats.
func issueTypeNames(value string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(value, ",") {
		name := strings.TrimSpace(part)
		key := schema.Canonicalize(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

func init() {
	rootCmd.AddCommand(fieldsCmd)

	fieldsCmd.Flags().String("project", "", "Project key (required)")
	fieldsCmd.Flags().String("type", "", "Comma-separated issue types (default: the configured epic, story and sub-task types)")
	fieldsCmd.Flags().Bool("guide", false, "Print the field guide given to the plan generator instead of tables")
	_ = fieldsCmd.MarkFlagRequired("project")
}
