// internal/config/config_test.go
package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Modbus: ModbusConfig{
			SlaveAddress: 17,
			Timeout:      5 * time.Second,
			MaxRetries:   3,
			RetryDelay:   time.Second,
		},
		Acquisition: AcquisitionConfig{
			PollingInterval:  10 * time.Second,
			MaxSamplesPerReg: 1000,
		},
		Storage: StorageConfig{},
		API: APIConfig{
			BaseURL: "http://20.15.114.131:8080",
			APIKey:  "secret",
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.API.APIKey = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing api_key")
	}
}

func TestValidate_MissingBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.API.BaseURL = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing base_url")
	}
}

func TestValidate_TimeoutTooLow(t *testing.T) {
	cfg := validConfig()
	cfg.Modbus.Timeout = 500 * time.Millisecond
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for timeout below 1s")
	}
}

func TestValidate_PollingIntervalTooLow(t *testing.T) {
	cfg := validConfig()
	cfg.Acquisition.PollingInterval = 999 * time.Millisecond
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for polling interval below 1s")
	}
}

func TestValidate_MaxRetriesTooLow(t *testing.T) {
	cfg := validConfig()
	cfg.Modbus.MaxRetries = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for max_retries below 1")
	}
}
