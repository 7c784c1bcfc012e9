// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package catalogue

import "fmt"

// InvalidArgumentError reports a rejected register argument — negative
// gain or unknown access (spec.md §7, "InvalidArgument" kind).
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string { return "invalid argument: " + e.Message }

// ConfigurationError reports a fatal configuration problem discovered
// while loading or validating the register catalogue (spec.md §7,
// "Configuration" kind).
type ConfigurationError struct {
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return "configuration error: " + e.Message
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }
