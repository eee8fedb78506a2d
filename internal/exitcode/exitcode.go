package exitcode

import (
	"errors"
	"os"
	"strings"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/log"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// InvalidInput indicates a plan, mapping or configuration problem found
	// before anything was created
	InvalidInput = 3

	// RunFailed indicates a publish run halted part way; see the run report
	RunFailed = 4

	// AuthError indicates an authentication or authorization failure
	AuthError = 5

	// NetworkError indicates the tracker or generator could not be reached
	NetworkError = 6

	// Interrupted indicates the run was stopped by the user
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	code := DetermineExitCode(err)
	log.DefaultLogger().Debug("exiting", "exit_code", code, "reason", GetExitCodeDescription(code))
	Exit(code)
}

// categorized is implemented by errors that know their exit category without
// carrying a domain code, such as command usage errors.
type categorized interface {
	ExitCategory() string
}

// halted is implemented by run errors. Halted reports whether the run
// failed after creating at least one issue.
type halted interface {
	Halted() bool
}

// DetermineExitCode maps an error to an exit code. A run that failed part way
// exits RunFailed whatever its cause; otherwise the error code decides, then
// the message.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var h halted
	if errors.As(err, &h) && h.Halted() {
		return RunFailed
	}

	if code := berrors.CodeOf(err); code != "" {
		return fromCode(code)
	}

	var c categorized
	if errors.As(err, &c) && c.ExitCategory() == "usage" {
		return UsageError
	}

	errMsg := strings.ToLower(err.Error())

	// Usage errors reported by the command parser
	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "unknown flag") {
		return UsageError
	}
	if strings.Contains(errMsg, "accepts") && strings.Contains(errMsg, "arg(s)") {
		return UsageError
	}

	// Network errors
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") {
		return NetworkError
	}

	// Default to general error
	return GeneralError
}

func fromCode(code berrors.ErrorCode) int {
	switch code {
	case berrors.ErrCodeTrackerAuth, berrors.ErrCodeGeneratorAuth:
		return AuthError
	case berrors.ErrCodeTransport, berrors.ErrCodeTrackerRateLim,
		berrors.ErrCodeGeneratorAPI, berrors.ErrCodeGeneratorTimeout, berrors.ErrCodeSchemaUnavailable:
		return NetworkError
	case berrors.ErrCodeRunStopped:
		return Interrupted
	case berrors.ErrCodeTrackerReject:
		return InvalidInput
	}

	switch code.Category() {
	case "PLAN", "MAP", "CONFIG", "SCHEMA", "GEN":
		return InvalidInput
	case "ORCH":
		return RunFailed
	default:
		return GeneralError
	}
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case InvalidInput:
		return "Invalid plan, mapping or configuration"
	case RunFailed:
		return "Publish run failed part way"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
