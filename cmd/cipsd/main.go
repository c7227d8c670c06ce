package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/lzulberti/cipsd/internal/cips"
	"github.com/lzulberti/cipsd/internal/config"
	"github.com/lzulberti/cipsd/internal/logging"
	"github.com/lzulberti/cipsd/internal/metrics"
	"github.com/lzulberti/cipsd/internal/server"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	flags := config.ParseFlags()

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	var collector metrics.Collector = &metrics.NoopCollector{}
	if cfg.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)
	}

	store := cips.NewUserStore()
	if err := store.Load(cfg.UsersFile); err != nil {
		fmt.Fprintf(os.Stderr, "error loading users file: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Shutdown(); err != nil {
			logger.Error("error closing users file", "error", err)
		}
	}()

	cipLog := cips.NewCipLog()

	// Command registration happens once at process startup against a
	// registry scoped to this process (internal/cips/command.go); every
	// accepted connection shares the same registered command set.
	reg := cips.NewRegistry()
	cips.RegisterAuthCommands(reg, store)
	cips.RegisterSocialCommands(reg, store)
	cips.RegisterCipCommands(reg, cipLog, store)
	cips.RegisterHelpAndQuit(reg)

	limits := cips.Limits{
		CmdMax:             cfg.Limits.CmdMax,
		OversizedThreshold: cfg.Limits.OversizedThreshold,
	}

	handler := func(ctx context.Context, conn net.Conn) {
		cips.HandleConnection(ctx, conn, reg, store, collector, limits)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewPrometheusServer(cfg.Metrics.Address, cfg.Metrics.Path)
		go func() {
			if err := metricsServer.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("metrics server error", "error", err)
			}
		}()
		logger.Info("metrics server started", "address", cfg.Metrics.Address, "path", cfg.Metrics.Path)
	}

	srv, err := server.New(ctx, server.Deps{Cfg: &cfg, Logger: logger, Handler: handler})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating server: %v\n", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	logger.Info("starting cipsd", "hostname", cfg.Hostname, "listen", cfg.Listeners[0].Address, "workers", cfg.WorkerCount)

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("cipsd stopped")
}
