package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the configuration file looked up by FindRoot.
const ConfigFileName = "mend.yaml"

// FindRoot recursively looks upwards for a project root indicator.
// Indicators are: mend.yaml file, .mend directory or .git directory.
// If found, returns the absolute path to the root.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, ConfigFileName) || hasFile(dir, ".mend") || hasFile(dir, ".git") {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("root not found")
}

// FindConfig returns the mend.yaml of the nearest root above startDir,
// or "" when there is none.
func FindConfig(startDir string) string {
	root, err := FindRoot(startDir)
	if err != nil {
		return ""
	}
	path := filepath.Join(root, ConfigFileName)
	if !hasFile(root, ConfigFileName) {
		return ""
	}
	return path
}

func hasFile(dir, name string) bool {
	path := filepath.Join(dir, name)
	_, err := os.Stat(path)
	return err == nil
}
