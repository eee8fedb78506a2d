package ux

import (
	"errors"
	"fmt"
	"strings"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// hints pairs message fragments of uncoded errors with a fix.
var hints = []struct {
	fragments  []string
	suggestion string
}{
	{[]string{"no such file or directory"}, "Check the path, or create a plan with 'backlog plan generate'"},
	{[]string{"permission denied"}, "Check file permissions on the plan, report and config files"},
	{[]string{"connection refused", "no route to host", "no such host"}, "Check JIRA_BASE_URL and your network connection"},
	{[]string{"x509", "certificate"}, "The tracker's TLS certificate is not trusted by this machine"},
	{[]string{"context deadline exceeded"}, "Raise jira.timeout or generator.timeout in the config file"},
}

// EnhanceError adds a suggestion to errors that do not carry a code. Coded
// errors already list their own suggestions and are returned unchanged.
func EnhanceError(err error) error {
	if err == nil || berrors.CodeOf(err) != "" {
		return err
	}
	var ews *ErrorWithSuggestion
	if errors.As(err, &ews) {
		return err
	}

	msg := err.Error()
	for _, h := range hints {
		for _, fragment := range h.fragments {
			if strings.Contains(msg, fragment) {
				return NewErrorWithSuggestion(err, h.suggestion)
			}
		}
	}
	return err
}

// RenderError formats err for the terminal: the first line in the error
// style, the rest (suggestions, docs) muted.
func RenderError(err error, th Theme) string {
	if err == nil {
		return ""
	}
	text := EnhanceError(err).Error()
	head, rest, _ := strings.Cut(text, "\n")

	var b strings.Builder
	b.WriteString(th.Error.Render("✗ " + head))
	if rest != "" {
		b.WriteString("\n")
		b.WriteString(th.Muted.Render(rest))
	}
	b.WriteString("\n")
	return b.String()
}

// FormatError provides consistent error formatting with context
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}

	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}
