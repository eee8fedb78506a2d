package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/backlog/internal/config"
	"github.com/felixgeelhaar/backlog/internal/ux"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
	Long: `Inspect the configuration backlog runs with.

Settings come from the config file and are overridden by JIRA_BASE_URL,
JIRA_EMAIL, JIRA_API_TOKEN, ANTHROPIC_API_KEY or OPENAI_API_KEY and
BACKLOG_LOG_LEVEL. The file is the one passed with --config, else
$BACKLOG_CONFIG, else .backlog.yaml in the current directory or a parent up
to the repository root, else ~/.backlog/config.yaml.`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print the effective configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE:  runConfigView,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print which config file would be used",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoSession: "true"},
	RunE:        runConfigPath,
}

const redacted = "********"

func runConfigView(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	view := *current.cfg
	if view.Jira.APIToken != "" {
		view.Jira.APIToken = redacted
	}
	if view.Generator.APIKey != "" {
		view.Generator.APIKey = redacted
	}

	if !cc.Text() {
		f, err := cc.Formatter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return f.Format(view)
	}

	data, err := yaml.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	w := cmd.OutOrStdout()
	source := current.configPath
	if source == "" {
		source = "built-in defaults"
	}
	fmt.Fprintf(w, "# source: %s\n", source)
	_, err = w.Write(data)
	return err
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	path, origin := cc.ConfigPath, "--config"
	if path == "" {
		if env := os.Getenv(config.EnvConfig); env != "" {
			path, origin = env, "$"+config.EnvConfig
		}
	}
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			if found, _ := ux.DiscoverConfigFile(wd); found != "" {
				path, origin = found, "project"
			}
		}
	}
	if path == "" {
		path, origin = config.DefaultPath(), "default"
	}

	status := "exists"
	if _, err := os.Stat(path); err != nil {
		status = "missing"
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", path, origin, status)
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configPathCmd)
}
