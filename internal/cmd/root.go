package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/backlog/internal/ux"
)

// annotationNoSession marks commands that run without loading configuration.
const annotationNoSession = "backlog/no-session"

var rootCmd = &cobra.Command{
	Use:   "backlog",
	Short: "Turn feature requests into Jira backlogs",
	Long: `backlog drafts a plan of initiatives, epics, stories and sub-tasks from a
feature request, lets you review and edit it as a file, and then creates the
issues in Jira parents first, checking every payload against the project's
field schemas before anything is sent.

Typical flow:
  backlog plan generate --project DEMO --prompt "Add card payments to checkout"
  backlog plan show demo-plan.yaml
  backlog publish demo-plan.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Annotations[annotationNoSession] != "" {
			return nil
		}
		return openSession(cmd)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: .backlog.yaml up to the git root, then ~/.backlog/config.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.StringP("format", "o", "text", "output format: text, json, yaml")
	pf.Bool("no-color", false, "disable colored output")
}

// ExecuteContext runs the root command with ctx and releases what the
// command opened: the trace provider and the metrics textfile.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	closeSession(err)
	return err
}

// PrintError writes err to w the way the CLI reports failures.
func PrintError(w io.Writer, err error) {
	th := ux.DefaultTheme()
	if !ux.IsInteractive() {
		th = ux.PlainTheme()
	}
	fmt.Fprint(w, ux.RenderError(err, th))
}
