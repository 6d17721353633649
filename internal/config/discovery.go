package config

import (
	"os"
)

// EnvConfig names the environment variable pointing at the configuration file.
const EnvConfig = "CISYNC_CONFIG"

// DefaultFileName is looked up in the working directory when $CISYNC_CONFIG
// is not set.
const DefaultFileName = "cisync.yaml"

// Discover finds the configuration file.
// Priority order: $CISYNC_CONFIG, ./cisync.yaml.
// An explicitly set $CISYNC_CONFIG is returned even if the file is missing so
// that Load reports it.
func Discover() (string, bool) {
	if path := os.Getenv(EnvConfig); path != "" {
		return path, true
	}
	if fileExists(DefaultFileName) {
		return DefaultFileName, true
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
