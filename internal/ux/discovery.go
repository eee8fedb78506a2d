package ux

import (
	"os"
	"path/filepath"
)

// ProjectConfigName is the per-repository config file name.
const ProjectConfigName = ".backlog.yaml"

// DiscoverConfigFile looks for ProjectConfigName in dir and its parents,
// stopping after the first directory that holds a .git entry. It returns ""
// when no project config exists, leaving the user-level default in charge.
func DiscoverConfigFile(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, ProjectConfigName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		// Stop at git root
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
