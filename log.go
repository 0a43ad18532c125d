package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// setupLog configures logging. Logs are discarded unless HEARSAY_LOGFILE
// points somewhere; the returned closer flushes that file.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	path := os.Getenv("HEARSAY_LOGFILE")
	if path == "" {
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}

	log.SetOutput(f)
	log.SetReportTimestamp(true)
	if os.Getenv("HEARSAY_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}
	return f.Close, nil
}
