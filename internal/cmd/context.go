package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/backlog/internal/ux"
)

// CommandContext holds the persistent flags every command reads.
type CommandContext struct {
	ConfigPath string
	LogLevel   string
	Format     string
	NoColor    bool
}

// NewCommandContext extracts command context from cobra.Command flags.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}

	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		ConfigPath: configPath,
		LogLevel:   logLevel,
		Format:     format,
		NoColor:    noColor,
	}, nil
}

// Formatter returns the output formatter selected by --format.
func (c *CommandContext) Formatter(w io.Writer) (ux.Formatter, error) {
	f, err := ux.NewFormatter(c.Format, &ux.FormatterOptions{Writer: w, NoColor: c.NoColor})
	if err != nil {
		return nil, usageError("%s", err)
	}
	return f, nil
}

// Theme returns the text theme for output written outside the formatter.
func (c *CommandContext) Theme() ux.Theme {
	if c.NoColor {
		return ux.PlainTheme()
	}
	return ux.DefaultTheme()
}

// Text reports whether output is meant for people.
func (c *CommandContext) Text() bool {
	return c.Format == "" || c.Format == "text"
}
