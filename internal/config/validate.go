// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"
	"time"
)

// Error reports a fatal configuration problem (spec.md §7, "Configuration" kind).
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// Validate checks the numeric ranges and required settings from
// spec.md §6/§7. It does not check "minimum register present in
// catalogue" — that validation runs at catalogue-load time (§4.C).
func Validate(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return &Error{Field: "api.base_url", Message: "must not be empty"}
	}
	if cfg.API.APIKey == "" {
		return &Error{Field: "api.api_key", Message: "must not be empty"}
	}
	if cfg.Modbus.Timeout < time.Millisecond*1000 {
		return &Error{Field: "modbus.timeout_ms", Message: "must be at least 1000"}
	}
	if cfg.Acquisition.PollingInterval < time.Millisecond*1000 {
		return &Error{Field: "acquisition.polling_interval_ms", Message: "must be at least 1000"}
	}
	if cfg.Modbus.MaxRetries < 1 {
		return &Error{Field: "modbus.max_retries", Message: "must be at least 1"}
	}
	if cfg.Acquisition.MaxSamplesPerReg < 1 {
		return &Error{Field: "acquisition.max_samples_per_register", Message: "must be at least 1"}
	}
	return nil
}
