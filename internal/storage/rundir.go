package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MakeRunDirs creates a unique run directory under base, named by the
// start time, with a nested logs directory. Returns the run directory and
// the log file path.
func MakeRunDirs(base string) (runDir, logPath string, err error) {
	ts := time.Now().Format("20060102_150405")
	runDir = filepath.Join(base, ts)
	logDir := filepath.Join(runDir, "logs")

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", "", fmt.Errorf("creating run directory: %w", err)
	}
	return runDir, filepath.Join(logDir, "fetch.log"), nil
}
