// Package applog wires up the process-wide structured logger.
package applog

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

// New opens logFile and returns a logger at the requested level, along
// with a closer to flush/close the underlying file. Grounded on the
// teacher's cmd/holdem/main.go:createLogger.
func New(logFile string, level string, prefix string) (*log.Logger, func() error, error) {
	nilCloser := func() error { return nil }

	parsedLevel, err := log.ParseLevel(level)
	if err != nil {
		return nil, nilCloser, fmt.Errorf("applog: parse level %s: %w", level, err)
	}

	out, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, nilCloser, fmt.Errorf("applog: open log file: %w", err)
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
		TimeFormat:      "2006-01-02 15:04:05",
		Level:           parsedLevel,
	})

	return logger, out.Close, nil
}
