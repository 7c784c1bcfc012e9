// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package catalogue

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRegisterMap(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registers.json")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeRegisterMap(t, `[
		{"address": 0, "name": "Vac", "unit": "V", "gain": 10, "access": "read-only", "description": "AC voltage"},
		{"address": 8, "name": "ExportPower", "unit": "W", "gain": 1, "access": "read-write", "description": "Export power setpoint"}
	]`)

	cat, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	cfg, ok := cat.Get(0)
	if !ok || cfg.Name != "Vac" || cfg.Gain != 10 {
		t.Errorf("Get(0) = %+v, %v", cfg, ok)
	}

	cfg, ok = cat.Get(8)
	if !ok || cfg.Access != ReadWrite {
		t.Errorf("Get(8) = %+v, %v", cfg, ok)
	}
}

func TestLoadFromFileRejectsUnknownAccess(t *testing.T) {
	path := writeRegisterMap(t, `[{"address": 0, "name": "X", "access": "bogus"}]`)
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected error for unknown access")
	}
}

func TestLoadFromFileMissingFile(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromFileDefaultsAccessToReadOnly(t *testing.T) {
	path := writeRegisterMap(t, `[{"address": 0, "name": "X"}]`)
	cat, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	cfg, _ := cat.Get(0)
	if cfg.Access != ReadOnly {
		t.Errorf("Access = %v, want ReadOnly", cfg.Access)
	}
}
