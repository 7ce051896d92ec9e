// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Command example-device runs a small SUPLA device exposing a thermometer
// channel, a relay ("light") channel, and an action-trigger channel for a
// push button — the same shape as the platform's own C example client, fed
// with simulated readings instead of real hardware.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-supla/libsupla"
	"github.com/go-supla/libsupla/internal/hostconfig"
	"github.com/go-supla/libsupla/internal/logging"
	"github.com/go-supla/libsupla/internal/metrics"
)

const observabilityShutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "/etc/libsupla/device.yaml", "path to device config file")
	listenAddr := flag.String("listen", "", "address to serve /health and /metrics on (disabled if empty)")
	flag.Parse()

	cfg, err := hostconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logCloser.Close()

	hostState := newHostStateReporter(logger)

	// collector is filled in once the device exists; OnStateChanged closes
	// over the pointer so it can be wired into Callbacks before that.
	var collector *metrics.Collector
	callbacks := libsupla.Callbacks{
		OnStateChanged: func(d *libsupla.Device, s libsupla.State) {
			logger.Info("session state changed", "state", s.String())
			if collector != nil {
				collector.OnStateChanged(d, s)
			}
		},
		OnChannelStateRequested: hostState.OnChannelStateRequested,
		OnRegisterResult: func(d *libsupla.Device, result libsupla.RegisterResult) {
			logger.Info("register result", "result", result.String())
		},
	}

	device, chans, err := buildDevice(cfg, logger, callbacks)
	if err != nil {
		logger.Error("building device", "error", err)
		os.Exit(1)
	}
	hostState.primeNetworkState(chans.thermometer, chans.relay, chans.trigger)
	collector = metrics.NewCollector(device)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listenAddr != "" {
		startObservabilityServer(ctx, logger, *listenAddr, device, collector)
	}

	sim := newSensorSimulator(chans.thermometer, logger)
	if err := sim.Start(); err != nil {
		logger.Error("starting sensor simulator", "error", err)
		os.Exit(1)
	}
	defer sim.Stop(ctx)

	if err := device.Start(ctx); err != nil {
		logger.Error("starting device", "error", err)
		os.Exit(1)
	}
	logger.Info("device started", "name", cfg.Device.Name, "server", cfg.Server.Address)

	<-ctx.Done()
	logger.Info("shutting down")
	device.Stop()
}

// startObservabilityServer serves /health and /metrics until ctx is
// canceled; a failure to bind is logged but does not abort the device.
func startObservabilityServer(ctx context.Context, logger *slog.Logger, addr string, device *libsupla.Device, collector *metrics.Collector) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)

	mux := http.NewServeMux()
	mux.Handle("/health", metrics.NewHealthHandler(device))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), observabilityShutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("observability server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("observability server stopped", "error", err)
		}
	}()
}
