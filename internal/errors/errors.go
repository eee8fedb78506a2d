package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Schema errors (SCHEMA-001 to SCHEMA-099)
	ErrCodeSchemaNotFound    ErrorCode = "SCHEMA-001"
	ErrCodeSchemaMalformed   ErrorCode = "SCHEMA-002"
	ErrCodeSchemaUnavailable ErrorCode = "SCHEMA-003"

	// Plan errors (PLAN-001 to PLAN-099)
	ErrCodePlanNotFound  ErrorCode = "PLAN-001"
	ErrCodePlanInvalid   ErrorCode = "PLAN-002"
	ErrCodePlanUnmarshal ErrorCode = "PLAN-003"
	ErrCodePlanMarshal   ErrorCode = "PLAN-004"

	// Mapping errors (MAP-001 to MAP-099)
	ErrCodeMissingRequired ErrorCode = "MAP-001"
	ErrCodeInvalidValue    ErrorCode = "MAP-002"

	// Orchestration errors (ORCH-001 to ORCH-099)
	ErrCodeUnresolvedParent ErrorCode = "ORCH-001"
	ErrCodeRunFailed        ErrorCode = "ORCH-002"
	ErrCodeRunStopped       ErrorCode = "ORCH-003"

	// Tracker transport errors (JIRA-001 to JIRA-099)
	ErrCodeTransport      ErrorCode = "JIRA-001"
	ErrCodeTrackerAuth    ErrorCode = "JIRA-002"
	ErrCodeTrackerDecode  ErrorCode = "JIRA-003"
	ErrCodeTrackerNoKey   ErrorCode = "JIRA-004"
	ErrCodeTrackerRateLim ErrorCode = "JIRA-005"
	ErrCodeTrackerReject  ErrorCode = "JIRA-006"

	// Generator errors (GEN-001 to GEN-099)
	ErrCodeGeneratorAPI     ErrorCode = "GEN-001"
	ErrCodeGeneratorOutput  ErrorCode = "GEN-002"
	ErrCodeGeneratorAuth    ErrorCode = "GEN-003"
	ErrCodeGeneratorTimeout ErrorCode = "GEN-004"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigNotFound ErrorCode = "CONFIG-001"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeFileUnmarshal   ErrorCode = "IO-005"
	ErrCodeFileMarshal     ErrorCode = "IO-006"
)

// Coder is implemented by every domain error that carries a stable code.
type Coder interface {
	error
	Code() ErrorCode
}

// CodeOf returns the code of the outermost coded error in err's chain, or ""
// if none carries one.
func CodeOf(err error) ErrorCode {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch ce := e.(type) {
		case *BacklogError:
			return ce.Code
		case Coder:
			return ce.Code()
		}
	}
	return ""
}

// Category returns the prefix of a code, e.g. "SCHEMA" for "SCHEMA-001".
func (c ErrorCode) Category() string {
	if i := strings.IndexByte(string(c), '-'); i > 0 {
		return string(c)[:i]
	}
	return string(c)
}

// BacklogError represents an enhanced error with code, suggestions, and documentation
type BacklogError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *BacklogError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *BacklogError) Unwrap() error {
	return e.Cause
}

// New creates a new BacklogError
func New(code ErrorCode, message string) *BacklogError {
	return &BacklogError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new BacklogError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *BacklogError {
	return &BacklogError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *BacklogError) WithSuggestion(suggestion string) *BacklogError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *BacklogError) WithSuggestions(suggestions ...string) *BacklogError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *BacklogError) WithDocs(url string) *BacklogError {
	e.DocsURL = url
	return e
}

// Common error constructors for frequently used errors

// NewPlanNotFoundError creates a plan file not found error
func NewPlanNotFoundError(path string) *BacklogError {
	return New(ErrCodePlanNotFound, fmt.Sprintf("plan file not found: %s", path)).
		WithSuggestion("Run 'backlog plan generate' to create a plan").
		WithSuggestion("Check if the file path is correct")
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(problems []string) *BacklogError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", strings.Join(problems, "; "))).
		WithSuggestion("Check ~/.backlog/config.yaml or the file passed with --config").
		WithSuggestion("Set JIRA_BASE_URL, JIRA_EMAIL and JIRA_API_TOKEN in the environment")
}

// NewTrackerAuthError creates a tracker authentication error
func NewTrackerAuthError(baseURL string, cause error) *BacklogError {
	return Wrap(ErrCodeTrackerAuth, fmt.Sprintf("authentication failed for %s", baseURL), cause).
		WithSuggestion("Check that JIRA_EMAIL matches the account that owns the API token").
		WithSuggestion("Create a new token at https://id.atlassian.com/manage-profile/security/api-tokens").
		WithDocs("https://developer.atlassian.com/cloud/jira/platform/basic-auth-for-rest-apis/")
}

// NewGeneratorAuthError creates a generator authentication error
func NewGeneratorAuthError(provider string) *BacklogError {
	return New(ErrCodeGeneratorAuth, fmt.Sprintf("authentication failed for provider: %s", provider)).
		WithSuggestion(fmt.Sprintf("Set the %s_API_KEY environment variable", strings.ToUpper(provider))).
		WithSuggestion("Check if your API key is valid and not expired")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *BacklogError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *BacklogError {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
