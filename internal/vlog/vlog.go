// vlog package is a thin wrapper around logrus. The TUI owns the terminal so
// everything goes to a log file.
package vlog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// logLevelEnvVar overrides the default level when set.
const logLevelEnvVar = "VIDSHELF_LOG_LEVEL"

// Global logger instance
var Vlogger = newDiscardLogger()

// InitializeVlogger initializes or resets the global logger (Vlogger)
func InitializeVlogger(logFile string) error {
	logger := logrus.New()

	// #nosec G304
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", logFile, err)
	}

	logger.Out = file
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	Vlogger = logger

	if lvl := strings.TrimSpace(os.Getenv(logLevelEnvVar)); lvl != "" {
		if err := SetLevel(lvl); err != nil {
			Vlogger.Warnf("Ignoring %s=%q: %v", logLevelEnvVar, lvl, err)
		}
	}
	return nil
}

// SetLevel parses level and applies it to Vlogger. An invalid level leaves
// the current level untouched.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Vlogger.SetLevel(lvl)
	return nil
}

// newDiscardLogger keeps packages usable before InitializeVlogger runs, e.g.
// in tests.
func newDiscardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger
}
