package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/grovetools/sessionlink/config"
	"github.com/grovetools/sessionlink/pkg/paths"
	"github.com/grovetools/sessionlink/util/pathutil"
)

// FindLogFile returns the log file the file sink writes to and its
// directory. With no explicit path it picks the latest file in the log
// directory.
func FindLogFile(cfg *config.Config) (logFile string, logsDir string, err error) {
	var logCfg Config
	if cfg != nil {
		// A malformed section falls back to the default location.
		_ = cfg.UnmarshalExtension("logging", &logCfg)
	}

	if logCfg.File.Path != "" {
		expanded, err := pathutil.Expand(logCfg.File.Path)
		if err != nil {
			return "", "", err
		}
		return expanded, filepath.Dir(expanded), nil
	}

	logsDir = paths.LogDir()
	logFile, err = FindLatestLogFile(logsDir)
	return logFile, logsDir, err
}

// FindLatestLogFile finds the most recently modified file in dir, preferring
// files with content.
func FindLatestLogFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("could not read log directory %s: %w", dir, err)
	}

	var latest, latestNonEmpty os.FileInfo
	var latestPath, latestNonEmptyPath string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == nil || info.ModTime().After(latest.ModTime()) {
			latest = info
			latestPath = filepath.Join(dir, entry.Name())
		}
		if info.Size() > 0 && (latestNonEmpty == nil || info.ModTime().After(latestNonEmpty.ModTime())) {
			latestNonEmpty = info
			latestNonEmptyPath = filepath.Join(dir, entry.Name())
		}
	}

	if latestNonEmpty != nil {
		return latestNonEmptyPath, nil
	}
	if latest == nil {
		return "", fmt.Errorf("no log files found in %s", dir)
	}
	return latestPath, nil
}
