package ux

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/backlog/internal/config"
)

// PathDefaults provides default locations for generated files
type PathDefaults struct {
	// Dir is the per-user state directory, ~/.backlog by default.
	Dir string
}

// NewPathDefaults places state next to the default config file.
func NewPathDefaults() *PathDefaults {
	return &PathDefaults{Dir: filepath.Dir(config.DefaultPath())}
}

// RunsDir holds one report per publish run.
func (pd *PathDefaults) RunsDir() string {
	return filepath.Join(pd.Dir, "runs")
}

// ReportFile is where a run's report goes when --report is not given. The
// timestamp prefix keeps a directory listing in run order.
func (pd *PathDefaults) ReportFile(runID string, at time.Time) string {
	return filepath.Join(pd.RunsDir(), fmt.Sprintf("%s-%s.yaml", at.UTC().Format("20060102T150405Z"), runID))
}

// EnsureRunsDir creates RunsDir if needed.
func (pd *PathDefaults) EnsureRunsDir() error {
	return os.MkdirAll(pd.RunsDir(), 0o755)
}

// PlanFile returns the default output path for a generated plan.
func PlanFile(projectKey string) string {
	return strings.ToLower(projectKey) + "-plan.yaml"
}
