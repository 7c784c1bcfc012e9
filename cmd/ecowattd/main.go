// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/ecowatt/acquisition/internal/catalogue"
	"github.com/ecowatt/acquisition/internal/config"
	"github.com/ecowatt/acquisition/internal/device"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	pollingOverrideMs := flag.Int("polling-interval-ms", 0, "Override acquisition.polling_interval_ms")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *pollingOverrideMs > 0 {
		cfg.Acquisition.PollingInterval = time.Duration(*pollingOverrideMs) * time.Millisecond
	}

	setupLogger(cfg.Log)

	slog.Info("Starting EcoWatt acquisition engine...")

	cat, err := catalogue.LoadFromFile(cfg.Acquisition.RegisterMapPath)
	if err != nil {
		slog.Error("Failed to load register map", "err", err)
		os.Exit(1)
	}
	if err := cat.ValidateMinimumRegisters(cfg.Acquisition.MinimumRegisters); err != nil {
		slog.Error("Register map validation failed", "err", err)
		os.Exit(1)
	}

	dev, err := device.New(cfg, cat)
	if err != nil {
		slog.Error("Failed to construct device", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dev.Start()

	<-ctx.Done()

	slog.Info("Shutting down...")
	if err := dev.Stop(); err != nil {
		slog.Error("Error during shutdown", "err", err)
		os.Exit(1)
	}
	slog.Info("Goodbye.")
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
