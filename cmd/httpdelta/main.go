package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/usestring/httpdelta/internal/config"
	"github.com/usestring/httpdelta/internal/corpus"
	"github.com/usestring/httpdelta/internal/findings"
	"github.com/usestring/httpdelta/internal/harness"
	"github.com/usestring/httpdelta/internal/logging"
	"github.com/usestring/httpdelta/internal/metrics"
	"github.com/usestring/httpdelta/internal/mutate"
	"github.com/usestring/httpdelta/internal/profile"
	"github.com/usestring/httpdelta/internal/transport"
)

func main() {
	// Set up context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Configuration is loaded from environment variables:
	// - HTTPDELTA_TARGETS: comma list of name=profile@host:port (required)
	// - HTTPDELTA_PROFILES_FILE: JSON profile document (optional)
	// - HTTPDELTA_ITERATIONS: campaign cap, 0 = run until canceled
	// - LOG_LEVEL, LOG_FILE: logging
	// - etc. (see internal/config for all options)
	cfg := config.Load()

	cleanup, err := logging.Setup(cfg)
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	h, meter, err := build(cfg)
	if err != nil {
		slog.Error("failed to build harness", "error", err)
		os.Exit(1)
	}

	if cfg.MetricsEnabled {
		go meter.Serve(ctx, cfg.MetricsAddr)
	}

	slog.Info("starting httpdelta campaign")
	if err := h.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("campaign error", "error", err)
		os.Exit(1)
	}

	slog.Info("campaign stopped")
}

// build wires the campaign from configuration.
func build(cfg *config.Config) (*harness.Harness, *metrics.Metrics, error) {
	specs, err := harness.ParseTargetSpecs(cfg.Targets)
	if err != nil {
		return nil, nil, err
	}

	var loaded []*profile.Profile
	if cfg.ProfilesFile != "" {
		loaded, err = profile.LoadFile(cfg.ProfilesFile)
		if err != nil {
			return nil, nil, err
		}
	}
	profiles, err := harness.ResolveProfiles(specs, loaded)
	if err != nil {
		return nil, nil, err
	}

	targets := make([]transport.Target, len(specs))
	names := make([]string, len(specs))
	for i, spec := range specs {
		targets[i] = transport.Target{Name: spec.Name, Addr: spec.Addr}
		names[i] = spec.Name
	}
	pool := transport.NewPool(targets, transport.Config{
		DialTimeout:  cfg.DialTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		SegmentDelay: cfg.SegmentDelay,
	})

	store, err := corpus.New(cfg.MaxTried)
	if err != nil {
		return nil, nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	slog.Info("seeding random source", slog.Int64("seed", seed))

	filter, err := findings.NewFilter(cfg.Filter)
	if err != nil {
		return nil, nil, err
	}

	sinks := []findings.Sink{
		findings.NewJSONLSink(cfg.FindingsPath),
		findings.NewLogSink(),
	}
	if cfg.FindingsDSN != "" {
		sinks = append(sinks, findings.NewPGSink(cfg.FindingsDSN))
	}

	meter := metrics.New()
	h, err := harness.New(harness.Params{
		Exchanger:   pool,
		TargetNames: names,
		Profiles:    profiles,
		Corpus:      store,
		Engine:      mutate.NewEngine(rand.New(rand.NewSource(seed))),
		Sinks:       sinks,
		Filter:      filter,
		Meter:       meter,
		Rand:        rand.New(rand.NewSource(seed + 1)),
		Iterations:  cfg.Iterations,
	})
	if err != nil {
		return nil, nil, err
	}
	return h, meter, nil
}
