// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package catalogue

import (
	"encoding/json"
	"fmt"
	"os"
)

// registerConfigJSON mirrors RegisterConfig for the on-disk register
// map format, grounded on original_source/cpp/include/config_manager.hpp's
// parseRegisterConfigs, which reads the same fields from a JSON array.
type registerConfigJSON struct {
	Address     uint16  `json:"address"`
	Name        string  `json:"name"`
	Unit        string  `json:"unit"`
	Gain        float64 `json:"gain"`
	Access      string  `json:"access"`
	Description string  `json:"description"`
}

func parseAccess(s string) (Access, error) {
	switch s {
	case "read-only", "":
		return ReadOnly, nil
	case "write-only":
		return WriteOnly, nil
	case "read-write":
		return ReadWrite, nil
	default:
		return 0, &InvalidArgumentError{Message: fmt.Sprintf("unknown access %q", s)}
	}
}

// LoadFromFile reads a JSON array of register definitions from path and
// builds a Catalogue from them.
func LoadFromFile(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("failed to read register map %s", path), Cause: err}
	}

	var entries []registerConfigJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("failed to parse register map %s", path), Cause: err}
	}

	cat := New()
	for _, e := range entries {
		access, err := parseAccess(e.Access)
		if err != nil {
			return nil, err
		}
		if err := cat.Set(RegisterConfig{
			Address:     e.Address,
			Name:        e.Name,
			Unit:        e.Unit,
			Gain:        e.Gain,
			Access:      access,
			Description: e.Description,
		}); err != nil {
			return nil, err
		}
	}
	return cat, nil
}
