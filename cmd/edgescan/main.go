package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/liamashdown/edgescan/internal/aggregator"
	"github.com/liamashdown/edgescan/internal/alerts"
	"github.com/liamashdown/edgescan/internal/classifier"
	"github.com/liamashdown/edgescan/internal/config"
	"github.com/liamashdown/edgescan/internal/extract"
	"github.com/liamashdown/edgescan/internal/kalshi"
	"github.com/liamashdown/edgescan/internal/oracle"
	"github.com/liamashdown/edgescan/internal/polymarket/gammaapi"
	"github.com/liamashdown/edgescan/internal/ratelimit"
	"github.com/liamashdown/edgescan/internal/scanner"
	"github.com/liamashdown/edgescan/internal/server"
	"github.com/liamashdown/edgescan/internal/storage"
	"github.com/liamashdown/edgescan/internal/venue"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a TOML config file")
	flag.Parse()

	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	log.Info("Starting edgescan service...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, keeping info")
	}

	log.WithFields(logrus.Fields{
		"environment":      cfg.Environment,
		"venue_limit":      cfg.VenueLimit,
		"batch_ceiling":    cfg.BatchCeiling,
		"alert_confidence": cfg.AlertConfidence,
		"alert_mode":       cfg.AlertMode,
		"oracle_model":     cfg.OracleModel,
		"oracle_enabled":   cfg.OracleEnabled(),
		"ledger_enabled":   cfg.LedgerEnabled(),
	}).Info("Configuration loaded")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Alert delivery
	dispatcher := alerts.NewDispatcher(alerts.BuildSender(cfg, log), cfg.AlertQueueSize, log)

	var ready server.ReadyFunc
	if cfg.LedgerEnabled() {
		db, err := storage.New(cfg, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		if err := db.AutoMigrate(); err != nil {
			log.WithError(err).Fatal("Failed to run database migrations")
		}
		log.Info("Alert ledger ready")

		dispatcher.WithLedger(db, cfg.AlertCooldown())
		ready = db.Ping
	}

	if !dispatcher.Enabled() {
		log.Info("No alert senders configured, alerts disabled")
	}

	var dispatchWG sync.WaitGroup
	dispatchWG.Add(1)
	go func() {
		defer dispatchWG.Done()
		dispatcher.Run(ctx)
	}()

	// Venue adapters, in declaration order
	adapters := []venue.Adapter{
		gammaapi.NewClient(cfg.GammaAPIBaseURL, log),
		kalshi.NewClient(cfg.KalshiAPIBaseURL, log),
	}

	var scorer scanner.Scorer
	if cfg.OracleEnabled() {
		scorer = oracle.NewClient(oracle.Config{
			BaseURL: cfg.OracleBaseURL,
			APIKey:  cfg.OracleAPIKey,
			Model:   cfg.OracleModel,
			Timeout: cfg.OracleTimeout(),
		}, log)
	} else {
		log.Warn("ORACLE_API_KEY not set, scans will fail until it is configured")
	}

	scan := scanner.New(
		adapters,
		aggregator.New(cfg.BatchCeiling, log),
		scorer,
		extract.SpanExtractor{},
		classifier.New(cfg.AlertConfidence, cfg.Environment, dispatcher, log),
		scanner.Options{
			Fetch: venue.FetchOptions{
				Limit:   cfg.VenueLimit,
				Timeout: cfg.VenueTimeout(),
				Headers: venueHeaders(cfg),
			},
			MaxCandidates: cfg.OracleMaxCandidates,
		},
		log,
	)

	handler := server.NewRouter(
		server.NewHandler(scan, ready, log).
			WithScanLimiter(ratelimit.New(cfg.ScanRatePerSec, cfg.ScanBurst)),
	)

	// A scan may take a venue round trip plus the full oracle timeout
	writeTimeout := cfg.VenueTimeout() + cfg.OracleTimeout() + 15*time.Second

	if err := server.Run(ctx, fmt.Sprintf(":%d", cfg.HTTPPort), handler, writeTimeout, log); err != nil {
		log.WithError(err).Error("HTTP server stopped with error")
	}

	cancel()
	dispatchWG.Wait()
	log.Info("Graceful shutdown complete")
}

// venueHeaders builds the identifying headers sent to every venue
func venueHeaders(cfg *config.Config) map[string]string {
	headers := map[string]string{
		"User-Agent":      cfg.VenueUserAgent,
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.9",
	}
	for k, v := range cfg.VenueHeaders {
		headers[k] = v
	}
	return headers
}
