package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/footprint/internal/trafficsim"
	"github.com/okian/footprint/pkg/logger"
)

const (
	defaultVisitors = 200
	defaultPages    = 5
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultTimeout  = 10 * time.Second
	defaultSettle   = 2 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the collector")
		visitors = flag.Int("visitors", defaultVisitors, "Number of simulated visitors")
		pages    = flag.Int("pages", defaultPages, "Upper bound of page views per visitor")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent senders")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle   = flag.Duration("settle", defaultSettle, "Wait before reading the dashboard")
		seed     = flag.Uint64("seed", 0, "Generator seed, 0 picks one")
		logFile  = flag.String("log", "", "Log file (default: simulate_log_TIMESTAMP.log)")
		verbose  = flag.Bool("verbose", false, "Log every accepted beacon")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		trafficsim.ShowHelp()
		return
	}

	closeLog, err := trafficsim.SetupLogging(*logFile, *verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to setup logging:", err)
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunLimit)
	defer cancel()

	report, err := trafficsim.Run(ctx, &trafficsim.Config{
		BaseURL:         *baseURL,
		Visitors:        *visitors,
		PagesPerVisitor: *pages,
		Workers:         *workers,
		Timeout:         *timeout,
		Settle:          *settle,
		Seed:            *seed,
		Verbose:         *verbose,
	}, logger.Named("simulate"))
	if err != nil {
		if errors.Is(err, trafficsim.ErrVerification) && report != nil {
			fmt.Fprintf(os.Stderr, "Verification failed: expected %d visits, saw %d\n", report.ExpectedVisits, report.ObservedVisits)
		} else {
			fmt.Fprintln(os.Stderr, "Simulation failed:", err)
		}
		cancel()
		stop()
		_ = closeLog()
		os.Exit(1)
	}
}
