package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/eonx-com/ferry/internal/logger"
	"github.com/eonx-com/ferry/pkg/config"
	"github.com/eonx-com/ferry/pkg/iterator"
)

func main() {
	os.Exit(run())
}

// run is split from main so deferred cleanup runs before the exit code is
// set.
func run() int {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	maxFiles := flag.Int("max-files", -1, "Override the configured file quota (-1 uses config, 0 = unlimited)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Cancel the run on SIGINT/SIGTERM; the iterator checks the context and
	// stops between files.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warn("received %v, stopping after current file", sig)
		cancel()
	}()

	it, closer, err := config.BuildIterator(ctx, cfg)
	if err != nil {
		logger.Error("failed to build iterator: %v", err)
		return 1
	}
	defer func() {
		if err := closer(); err != nil {
			logger.Warn("failed to close filesystem connections: %v", err)
		}
	}()

	quota := cfg.Iterator.MaxFiles
	if *maxFiles >= 0 {
		quota = *maxFiles
	}

	// Ferry mode: claim, deliver to the configured destinations, done. All
	// the work happens in routing, so the callback has nothing to add.
	passThrough := func(ctx context.Context, stake *iterator.Stake) (iterator.Outcome, error) {
		return iterator.Outcome{}, nil
	}

	reports := it.Run(ctx, passThrough, quota)

	exitCode := 0
	for _, report := range reports {
		if report.ListingErr != nil {
			logger.Error("source %s: %v", report.Source, report.ListingErr)
			exitCode = 1
		}
		for _, cleanupErr := range report.CleanupErrs {
			logger.Error("source %s: %v", report.Source, cleanupErr)
			exitCode = 1
		}
		if report.Failed > 0 {
			exitCode = 1
		}
	}

	totals := iterator.Sum(reports)
	fmt.Printf("ferry run %s: %d attempted, %d succeeded, %d failed, %d conflicted\n",
		it.ClaimantID(), totals.Attempted, totals.Succeeded, totals.Failed, totals.Conflicted)

	return exitCode
}
