// Command watch subscribes to the live CLOB market feed for one event's
// markets and appends every message to JSONL files, rotating on an
// interval. Ctrl-C stops the watcher cleanly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/johan/polymarket-history/internal/config"
	"github.com/johan/polymarket-history/internal/gamma"
	"github.com/johan/polymarket-history/internal/storage"
	"github.com/johan/polymarket-history/internal/token"
	"github.com/johan/polymarket-history/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	output := flag.String("output", "feed", "Output directory for JSONL files")
	rotation := flag.Duration("rotation", time.Hour, "File rotation interval")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: watch [flags] <event-url-or-slug>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logrus.Fatalf("Error loading config: %v", err)
		}
		cfg = config.DefaultConfig()
	}
	cfg.ApplyEnv()
	if *debug {
		cfg.Logging.Level = "debug"
	}

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	}
	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	slug, err := gamma.ExtractSlug(flag.Arg(0))
	if err != nil {
		log.Fatalf("Invalid event URL: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}
	markets, err := gamma.NewClient(httpClient, log).EventMarkets(ctx, slug)
	if err != nil {
		log.Fatalf("Error resolving event %q: %v", slug, err)
	}

	var ids []token.Identity
	for _, m := range markets {
		yes, no, err := token.ParseDualTokenField(m.ClobTokenIds)
		if err != nil {
			log.WithError(err).WithField("market", m.Slug).Warn("skipping market with malformed token field")
			continue
		}
		ids = append(ids, yes, no)
	}
	if len(ids) == 0 {
		log.Fatalf("Event %q has no subscribable markets", slug)
	}

	store, err := storage.NewJSONLStorage(*output, *rotation)
	if err != nil {
		log.Fatalf("Error creating storage: %v", err)
	}
	defer store.Close()

	handler := func(messages []ws.Message) {
		for i := range messages {
			if err := store.Write(&messages[i]); err != nil {
				log.WithError(err).Error("failed to store feed message")
			}
		}
	}

	client := ws.NewClient(handler, log).
		WithURL(cfg.WebSocket.URL).
		WithReconnectConfig(ws.ReconnectConfig{
			InitialBackoff: cfg.WebSocket.InitialBackoff,
			MaxBackoff:     cfg.WebSocket.MaxBackoff,
			BackoffFactor:  cfg.WebSocket.BackoffFactor,
		})

	if err := client.Connect(ctx); err != nil {
		log.Fatalf("Error connecting to feed: %v", err)
	}
	defer client.Close()

	if err := client.Subscribe(ids); err != nil {
		log.Fatalf("Error subscribing: %v", err)
	}

	log.WithFields(logrus.Fields{
		"event":  slug,
		"assets": len(ids),
		"output": *output,
	}).Info("watching live feed, press Ctrl-C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigCh:
			log.Infof("received signal %v, shutting down", sig)
			log.WithField("messages", store.MessageCount()).Info("feed capture finished")
			return
		case <-ticker.C:
			log.WithFields(logrus.Fields{
				"messages":  store.MessageCount(),
				"connected": client.IsConnected(),
				"file":      store.CurrentPath(),
			}).Info("feed status")
		}
	}
}
