// Command fetch is the batch market-data fetcher: given Polymarket event
// URLs (or a CSV of them), it collects price history, trade history, order
// book snapshots, and metadata for every market of every event, writing
// flat files per market under a timestamped run directory.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/johan/polymarket-history/internal/collector"
	"github.com/johan/polymarket-history/internal/config"
	"github.com/johan/polymarket-history/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	interval := flag.String("interval", "", "Price history window (overrides config)")
	fidelity := flag.Int("fidelity", 0, "Price history resolution in minutes (overrides config)")
	trades := flag.Bool("trades", false, "Also collect trade history")
	book := flag.Bool("book", false, "Also collect order book snapshots")
	depth := flag.Int("depth", 0, "Order book levels per side (overrides config)")
	output := flag.String("output", "", "Override output directory")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: fetch [flags] <event-url-or-csv>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// .env is optional; real environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logrus.Fatalf("Error loading config: %v", err)
		}
		cfg = config.DefaultConfig()
	}
	cfg.ApplyEnv()
	if *output != "" {
		cfg.Storage.OutputDir = *output
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	urls, err := readInput(flag.Arg(0))
	if err != nil {
		logrus.Fatalf("Error reading input: %v", err)
	}

	runDir, logPath, err := storage.MakeRunDirs(cfg.Storage.OutputDir)
	if err != nil {
		logrus.Fatalf("Error creating run directory: %v", err)
	}

	log, logFile, err := setupLogger(cfg.Logging, logPath)
	if err != nil {
		logrus.Fatalf("Error setting up logging: %v", err)
	}
	defer logFile.Close()

	opts := collector.Options{
		Interval: cfg.Prices.Interval,
		Fidelity: cfg.Prices.Fidelity,
		Trades:   *trades,
		Book:     *book,
		Depth:    cfg.Book.Depth,
	}
	if *interval != "" {
		opts.Interval = *interval
	}
	if *fidelity > 0 {
		opts.Fidelity = *fidelity
	}
	if *depth > 0 {
		opts.Depth = *depth
	}

	runLog := log.WithField("run_id", uuid.NewString())
	runLog.WithFields(logrus.Fields{
		"urls":     len(urls),
		"interval": opts.Interval,
		"fidelity": opts.Fidelity,
		"trades":   opts.Trades,
		"book":     opts.Book,
		"dir":      runDir,
	}).Info("batch fetch started")

	writer := storage.NewFileWriter(runDir, runLog)
	svc := collector.NewService(cfg, writer, runLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		runLog.Infof("received signal %v, shutting down", sig)
		cancel()
	}()

	if err := svc.Run(ctx, urls, opts); err != nil && !errors.Is(err, context.Canceled) {
		runLog.Fatalf("Run failed: %v", err)
	}

	runLog.Info("batch complete")
	fmt.Printf("All done. Outputs in: %s\n", runDir)
	fmt.Printf("Run log saved to: %s\n", logPath)
}

// readInput returns the event URLs to process: either the single URL given
// on the command line, or the url column (falling back to the first
// column) of a CSV file.
func readInput(arg string) ([]string, error) {
	if !strings.HasSuffix(arg, ".csv") {
		return []string{arg}, nil
	}

	f, err := os.Open(arg)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var urls []string
	col := 0
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			for i, name := range record {
				if strings.EqualFold(strings.TrimSpace(name), "url") {
					col = i
				}
			}
			// A header row is not a URL.
			if !strings.Contains(record[col], "/") {
				continue
			}
		}
		if col < len(record) {
			if u := strings.TrimSpace(record[col]); u != "" {
				urls = append(urls, u)
			}
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no URLs found in %s", arg)
	}
	return urls, nil
}

// setupLogger builds a logger that writes to stderr and the run log file.
func setupLogger(cfg config.LoggingConfig, logPath string) (*logrus.Logger, *os.File, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level: %w", err)
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	f, err := os.Create(logPath)
	if err != nil {
		return nil, nil, fmt.Errorf("creating log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return log, f, nil
}
