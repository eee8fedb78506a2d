package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/backlog/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoSession: "true"},
	RunE:        runVersion,
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "show detailed version information")

	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	info := version.GetInfo()

	if !cc.Text() {
		f, err := cc.Formatter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return f.Format(info)
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "backlog %s\n", info.Short())
	return err
}
