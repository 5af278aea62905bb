package trafficsim

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/footprint/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging initializes the global logger to write to stdout and logFile.
// An empty logFile gets a timestamped name. The returned func closes the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	if logFile == "" {
		logFile = "simulate_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file.Close, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Footprint Traffic Simulator
===========================

Sends synthetic portfolio visitors to a running collector and checks that
the dashboard counts every distinct visit. Start the collector with
FOOTPRINT_TRUST_PROXY=true so each visitor keeps its own address.

Usage:
  go run ./cmd/simulate-traffic [options]

Options:
  -url string
        Base URL of the collector (default "http://localhost:9080")
  -visitors int
        Number of simulated visitors (default 200)
  -pages int
        Upper bound of page views per visitor (default 5)
  -workers int
        Number of concurrent senders (default 2 x CPUs)
  -timeout duration
        HTTP request timeout (default 10s)
  -settle duration
        Wait before reading the dashboard (default 2s)
  -seed uint
        Generator seed, 0 picks one (default 0)
  -log string
        Log file (default: simulate_log_TIMESTAMP.log)
  -verbose
        Log every accepted beacon
  -help
        Show this help

Examples:
  go run ./cmd/simulate-traffic -visitors 1000 -workers 16
  go run ./cmd/simulate-traffic -url http://localhost:9081 -seed 42 -verbose
`)
}
