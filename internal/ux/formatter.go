package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Formatter writes command output in one of the supported formats.
type Formatter interface {
	// Format writes the given data to the output writer
	Format(data any) error
}

// FormatterOptions contains configuration for formatters
type FormatterOptions struct {
	// Writer is where output is written (defaults to os.Stdout)
	Writer io.Writer
	// NoColor renders text output with PlainTheme
	NoColor bool
	// Compact disables indentation for JSON output
	Compact bool
}

// Formats lists the values accepted by --format.
var Formats = []string{"text", "json", "yaml"}

// NewFormatter creates a formatter based on the format string
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	if opts == nil {
		opts = &FormatterOptions{}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	switch format {
	case "json":
		return &JSONFormatter{opts: opts}, nil
	case "yaml":
		return &YAMLFormatter{opts: opts}, nil
	case "text", "":
		th := DefaultTheme()
		if opts.NoColor {
			th = PlainTheme()
		}
		return &TextFormatter{opts: opts, theme: th}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: text, json, yaml)", format)
	}
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	opts *FormatterOptions
}

// Format writes data as JSON
func (f *JSONFormatter) Format(data any) error {
	encoder := json.NewEncoder(f.opts.Writer)
	if !f.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(unwrapView(data))
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	opts *FormatterOptions
}

// Format writes data as YAML
func (f *YAMLFormatter) Format(data any) error {
	encoder := yaml.NewEncoder(f.opts.Writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(unwrapView(data)); err != nil {
		return err
	}
	return encoder.Close()
}

// TextFormatter formats output for people
type TextFormatter struct {
	opts  *FormatterOptions
	theme Theme
}

// Format writes data as text. data must be a string, a fmt.Stringer or a
// TextRenderer.
func (f *TextFormatter) Format(data any) error {
	var out string
	switch v := data.(type) {
	case TextRenderer:
		out = v.RenderText(f.theme)
	case string:
		out = v + "\n"
	case fmt.Stringer:
		out = v.String() + "\n"
	default:
		return fmt.Errorf("text output is not supported for %T; use --format json or yaml", data)
	}
	_, err := io.WriteString(f.opts.Writer, out)
	return err
}

// unwrapView returns the data behind a view so structured formats encode
// the model rather than the presentation wrapper.
func unwrapView(data any) any {
	switch v := data.(type) {
	case PlanView:
		return v.Plan
	case FieldsView:
		return v.Sets
	case ReportView:
		return v.Report
	}
	return data
}

var _ Formatter = (*JSONFormatter)(nil)
var _ Formatter = (*YAMLFormatter)(nil)
var _ Formatter = (*TextFormatter)(nil)
