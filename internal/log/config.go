package log

import (
	"io"
	"os"
	"strings"
)

// Format represents the output format for logs
type Format int

const (
	// FormatText outputs logs in human-readable text format
	FormatText Format = iota
	// FormatJSON outputs logs in JSON format
	FormatJSON
)

// String returns the string representation of the format
func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// ParseFormat parses a string into a Format. Unknown values map to text,
// which suits an interactive CLI.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	default:
		return FormatText
	}
}

// UnmarshalText lets a Format be read straight from YAML or flags.
func (f *Format) UnmarshalText(text []byte) error {
	*f = ParseFormat(string(text))
	return nil
}

// Output represents where logs should be written
type Output struct {
	writer io.Writer
}

// Writer returns the underlying io.Writer, stderr when unset.
func (o Output) Writer() io.Writer {
	if o.writer == nil {
		return os.Stderr
	}
	return o.writer
}

// NewOutput creates an Output from an io.Writer
func NewOutput(w io.Writer) Output {
	return Output{writer: w}
}

// OutputStderr creates an Output that writes to stderr
func OutputStderr() Output {
	return Output{writer: os.Stderr}
}

// Config holds configuration for the logger
type Config struct {
	// Level is the minimum log level to output
	Level Level `yaml:"level"`

	// Format is the output format (JSON or Text)
	Format Format `yaml:"format"`

	// Output is where logs should be written. Stdout is reserved for
	// command output such as rendered plans, so the default is stderr.
	Output Output `yaml:"-"`

	// AddSource includes source file and line number in logs
	AddSource bool `yaml:"add_source"`

	// ServiceName is attached to every record when set
	ServiceName string `yaml:"-"`
}

// DefaultConfig logs at WARN in text format to stderr, keeping the CLI quiet
// unless something needs attention.
func DefaultConfig() Config {
	return Config{
		Level:       LevelWarn,
		Format:      FormatText,
		Output:      OutputStderr(),
		ServiceName: "backlog",
	}
}

// MarshalText writes the format by name.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}
