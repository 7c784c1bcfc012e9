// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package device wires one catalogue, one protocol adapter, one
// scheduler, and one hybrid store into a single owning façade
// (spec.md §4.I supplement), the only component allowed to construct
// all four and to bridge the sample bus into the hybrid store and into
// structured logging.
package device

import (
	"context"
	"log/slog"

	"github.com/ecowatt/acquisition/internal/adapter"
	"github.com/ecowatt/acquisition/internal/catalogue"
	"github.com/ecowatt/acquisition/internal/config"
	"github.com/ecowatt/acquisition/internal/sample"
	"github.com/ecowatt/acquisition/internal/scheduler"
	"github.com/ecowatt/acquisition/internal/store/durable"
	"github.com/ecowatt/acquisition/internal/store/hybrid"
	"github.com/ecowatt/acquisition/internal/store/memory"
)

// Statistics combines adapter and scheduler statistics into the
// single view the CLI/API surface exposes.
type Statistics struct {
	Communication adapter.CommunicationStats
	Acquisition   scheduler.Stats
}

// Device is the top-level façade: it owns the catalogue, the adapter,
// the scheduler, and the hybrid store, and is the only component that
// constructs all four.
type Device struct {
	cfg       *config.Config
	catalogue *catalogue.Catalogue
	adapter   *adapter.Adapter
	scheduler *scheduler.Scheduler
	store     *hybrid.Store
	bus       *sample.Bus
}

// New builds a Device from a validated config and an already-loaded
// register catalogue. The caller is responsible for validating cfg
// (internal/config.Validate) and the catalogue's minimum registers
// before calling New.
func New(cfg *config.Config, cat *catalogue.Catalogue) (*Device, error) {
	transport := adapter.NewHTTPTransport(cfg.API.BaseURL, cfg.API.APIKey, cfg.Modbus.Timeout)
	a := adapter.New(adapter.Config{
		SlaveAddress:  cfg.Modbus.SlaveAddress,
		ReadEndpoint:  cfg.API.ReadEndpoint,
		WriteEndpoint: cfg.API.WriteEndpoint,
		MaxRetries:    cfg.Modbus.MaxRetries,
		RetryDelay:    cfg.Modbus.RetryDelay,
	}, transport)

	var durableStore durable.Store
	if cfg.Storage.EnablePersistentStorage {
		var err error
		durableStore, err = newDurableStore(cfg)
		if err != nil {
			return nil, err
		}
	}

	store := hybrid.New(memory.New(cfg.Acquisition.MaxSamplesPerReg), durableStore, hybrid.Config{
		Retain:        cfg.Storage.RetentionPeriod,
		SweepInterval: cfg.Storage.CleanupInterval,
		EnableDurable: cfg.Storage.EnablePersistentStorage,
	})

	bus := sample.New()
	bus.SubscribeSample(store.Store)
	bus.SubscribeError(func(msg string) { slog.Error("acquisition error", "msg", msg) })

	sched := scheduler.New(cat, a, bus, scheduler.Config{
		PollingInterval:    cfg.Acquisition.PollingInterval,
		MinimumRegisters:   cfg.Acquisition.MinimumRegisters,
		EnableGroupedReads: cfg.Acquisition.EnableGroupedReads,
	})

	return &Device{
		cfg:       cfg,
		catalogue: cat,
		adapter:   a,
		scheduler: sched,
		store:     store,
		bus:       bus,
	}, nil
}

func newDurableStore(cfg *config.Config) (durable.Store, error) {
	switch cfg.Storage.DurableBackend {
	case "file":
		return durable.NewFileLogStore(cfg.Storage.DatabasePath)
	default:
		return durable.NewSQLiteStore(cfg.Storage.DatabasePath)
	}
}

// Start begins acquisition and the retention sweeper.
func (d *Device) Start() {
	d.store.StartSweeper()
	d.scheduler.Start()
}

// Stop stops acquisition and the retention sweeper, then closes the
// durable store.
func (d *Device) Stop() error {
	d.scheduler.Stop()
	d.store.StopSweeper()
	return d.store.Close()
}

// ReadRegister performs one manual read.
func (d *Device) ReadRegister(ctx context.Context, addr uint16) *sample.Sample {
	return d.scheduler.ReadSingle(ctx, addr)
}

// WriteRegister performs one manual write.
func (d *Device) WriteRegister(ctx context.Context, addr uint16, value uint16) bool {
	return d.scheduler.Write(ctx, addr, value)
}

// GetRecentSamples returns the n most recent samples from the
// scheduler's internal buffer, oldest-first.
func (d *Device) GetRecentSamples(n int) []sample.Sample {
	return d.scheduler.Recent(n)
}

// GetSamplesByRegister returns the n most recent samples for addr,
// oldest-first.
func (d *Device) GetSamplesByRegister(addr uint16, n int) []sample.Sample {
	return d.scheduler.ByRegister(addr, n)
}

// GetHistoricalSamples returns every durably-stored sample for addr in
// [fromUnix, toUnix].
func (d *Device) GetHistoricalSamples(addr uint16, fromUnix, toUnix int64) ([]sample.Sample, error) {
	return d.store.Historical(addr, fromUnix, toUnix)
}

// ExportCSV renders samples for addr in [fromUnix, toUnix] as CSV,
// writing the result to path when non-empty.
func (d *Device) ExportCSV(path string, addr uint16, fromUnix, toUnix int64) (string, error) {
	return d.store.ExportCSV(path, addr, fromUnix, toUnix)
}

// ExportJSON renders samples for addr in [fromUnix, toUnix] as JSON,
// writing the result to path when non-empty.
func (d *Device) ExportJSON(path string, addr uint16, fromUnix, toUnix int64) (string, error) {
	return d.store.ExportJSON(path, addr, fromUnix, toUnix)
}

// testCommunicationProbeValue is written to the export-power register
// and immediately restored by TestConnection; it is never persisted.
const testCommunicationProbeValue = 50

// TestConnection exercises a read/write/restore sequence against the
// configured export-power register.
func (d *Device) TestConnection(ctx context.Context) bool {
	return d.adapter.TestCommunication(ctx, d.cfg.Acquisition.ExportPowerRegister, testCommunicationProbeValue)
}

// GetStatistics returns a combined snapshot of communication and
// acquisition statistics.
func (d *Device) GetStatistics() Statistics {
	return Statistics{
		Communication: d.adapter.Stats(),
		Acquisition:   d.scheduler.Stats(),
	}
}

// Catalogue exposes the register catalogue for read-only inspection
// by the CLI collaborator.
func (d *Device) Catalogue() *catalogue.Catalogue {
	return d.catalogue
}
