// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package config loads and validates the acquisition engine's
// configuration surface (spec.md §6) via viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full configuration surface from spec.md §6.
type Config struct {
	Modbus      ModbusConfig      `mapstructure:"modbus"`
	Acquisition AcquisitionConfig `mapstructure:"acquisition"`
	Storage     StorageConfig     `mapstructure:"storage"`
	API         APIConfig         `mapstructure:"api"`
	Log         LogConfig         `mapstructure:"log"`
}

// ModbusConfig holds the framing/transport parameters for every request.
type ModbusConfig struct {
	SlaveAddress byte          `mapstructure:"slave_address"`
	TimeoutMs    int           `mapstructure:"timeout_ms"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryDelayMs int           `mapstructure:"retry_delay_ms"`
	Timeout      time.Duration `mapstructure:"-"`
	RetryDelay   time.Duration `mapstructure:"-"`
}

// AcquisitionConfig controls the polling scheduler.
type AcquisitionConfig struct {
	PollingIntervalMs   int           `mapstructure:"polling_interval_ms"`
	MinimumRegisters    []uint16      `mapstructure:"minimum_registers"`
	MaxSamplesPerReg    int           `mapstructure:"max_samples_per_register"`
	ExportPowerRegister uint16        `mapstructure:"export_power_register"`
	EnableGroupedReads  bool          `mapstructure:"enable_grouped_reads"`
	RegisterMapPath     string        `mapstructure:"register_map_path"`
	PollingInterval     time.Duration `mapstructure:"-"`
}

// StorageConfig controls the retention store tiers.
type StorageConfig struct {
	EnablePersistentStorage bool          `mapstructure:"enable_persistent_storage"`
	DataRetentionDays       int           `mapstructure:"data_retention_days"`
	CleanupIntervalMs       int           `mapstructure:"cleanup_interval_ms"`
	DatabasePath            string        `mapstructure:"database_path"`
	DurableBackend          string        `mapstructure:"durable_backend"`
	CleanupInterval         time.Duration `mapstructure:"-"`
	RetentionPeriod         time.Duration `mapstructure:"-"`
}

// APIConfig holds the cloud gateway's HTTP transport targets.
type APIConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	ReadEndpoint  string `mapstructure:"read_endpoint"`
	WriteEndpoint string `mapstructure:"write_endpoint"`
	APIKey        string `mapstructure:"api_key"`
}

// LogConfig controls the process-wide slog handler.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// LoadConfig loads configuration from a file (if given) or the
// standard search path, applies defaults, and validates the result.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/ecowatt/")
		v.AddConfigPath("$HOME/.ecowatt")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ECOWATT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Modbus.Timeout = time.Duration(cfg.Modbus.TimeoutMs) * time.Millisecond
	cfg.Modbus.RetryDelay = time.Duration(cfg.Modbus.RetryDelayMs) * time.Millisecond
	cfg.Acquisition.PollingInterval = time.Duration(cfg.Acquisition.PollingIntervalMs) * time.Millisecond
	cfg.Storage.CleanupInterval = time.Duration(cfg.Storage.CleanupIntervalMs) * time.Millisecond
	cfg.Storage.RetentionPeriod = time.Duration(cfg.Storage.DataRetentionDays) * 24 * time.Hour

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("modbus.slave_address", 17)
	v.SetDefault("modbus.timeout_ms", 5000)
	v.SetDefault("modbus.max_retries", 3)
	v.SetDefault("modbus.retry_delay_ms", 1000)

	v.SetDefault("acquisition.polling_interval_ms", 10000)
	v.SetDefault("acquisition.max_samples_per_register", 1000)
	v.SetDefault("acquisition.export_power_register", 8)
	v.SetDefault("acquisition.register_map_path", "registers.json")

	v.SetDefault("storage.enable_persistent_storage", true)
	v.SetDefault("storage.data_retention_days", 30)
	v.SetDefault("storage.cleanup_interval_ms", 24*60*60*1000)
	v.SetDefault("storage.database_path", "ecowatt.db")
	v.SetDefault("storage.durable_backend", "sqlite")

	v.SetDefault("api.base_url", "http://20.15.114.131:8080")
	v.SetDefault("api.read_endpoint", "/api/inverter/read")
	v.SetDefault("api.write_endpoint", "/api/inverter/write")

	v.SetDefault("log.level", "info")
}
