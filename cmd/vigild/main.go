// vigild is the host metrics daemon: it samples OS counters into a
// bounded in-memory store and serves them over an HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vigil-sys/vigil/internal/api"
	"github.com/vigil-sys/vigil/internal/loader"
	"github.com/vigil-sys/vigil/internal/logging"
	"github.com/vigil-sys/vigil/internal/metrics"
	"github.com/vigil-sys/vigil/internal/sampler"
	"github.com/vigil-sys/vigil/internal/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "config.yaml", "config file path")
	listen := flag.String("listen", "", "listen address (overrides config)")
	hostLabel := flag.String("host-label", "", "host label (overrides config)")
	keep := flag.Int("keep", 0, "retention window in seconds (overrides config)")
	period := flag.Int("period", 0, "sample period in seconds (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "", "log format: auto, text, json")
	flag.Parse()

	// Load config; a missing file just means defaults.
	cfg, err := loader.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = loader.DefaultConfig()
		} else {
			log.Fatalf("Load config: %v", err)
		}
	}

	// CLI overrides
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *hostLabel != "" {
		cfg.HostLabel = *hostLabel
	}
	if *keep > 0 {
		cfg.Store.KeepSeconds = *keep
	}
	if *period > 0 {
		cfg.Sampler.PeriodSec = *period
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	if err := loader.Validate(cfg); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	host := cfg.ResolveHostLabel()
	logging.Info("vigild starting", "version", Version, "host", host)

	// =========================================================================
	// Store and Registry
	// =========================================================================

	st := store.New(cfg.ToStoreConfig())
	reg := metrics.Builtin()
	logging.Info("store ready",
		"keep_seconds", cfg.Store.KeepSeconds,
		"capacity_per_series", st.CapacityPerSeries())

	// =========================================================================
	// Sampler
	// =========================================================================

	smp := sampler.New(sampler.Config{
		Period:       time.Duration(cfg.Sampler.PeriodSec) * time.Second,
		HostLabel:    host,
		ProcessLimit: cfg.Sampler.ProcessLimit,
		Disabled:     cfg.Sampler.Disabled,
	}, st)
	if err := smp.Start(); err != nil {
		log.Fatalf("Start sampler: %v", err)
	}

	// =========================================================================
	// HTTP API
	// =========================================================================

	srv := api.New(api.Config{
		Listen:         cfg.Server.Listen,
		ReadTimeout:    cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:   cfg.Server.WriteTimeout.Duration(),
		HostLabel:      host,
		Version:        Version,
		SketchAccuracy: cfg.Stats.Accuracy,
	}, st, reg)

	// =========================================================================
	// Signal Handling and Graceful Shutdown
	// =========================================================================

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	shutdownDone := make(chan struct{})
	go func() {
		<-sig
		logging.Info("shutdown signal received")

		// Stop the API first, then the collectors feeding the store.
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			logging.Warn("api stop", "error", err)
		}
		smp.Stop()
		close(shutdownDone)
	}()

	// =========================================================================
	// Run
	// =========================================================================

	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	<-shutdownDone
}
