// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package durable

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/ecowatt/acquisition/internal/sample"
)

// formatCSV renders samples with header row
// Timestamp,Register,Name,RawValue,ScaledValue,Unit, local timestamps
// formatted YYYY-MM-DD HH:MM:SS and scaled values to two decimals,
// with CRLF line endings.
func formatCSV(samples []sample.Sample) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.Write([]string{"Timestamp", "Register", "Name", "RawValue", "ScaledValue", "Unit"}); err != nil {
		return "", err
	}
	for _, smp := range samples {
		record := []string{
			smp.Timestamp.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", smp.Address),
			smp.Name,
			fmt.Sprintf("%d", smp.RawValue),
			fmt.Sprintf("%.2f", smp.ScaledValue),
			smp.Unit,
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// exportedSample is the JSON export wire shape for one sample, distinct
// from sample.Sample's field names/casing.
type exportedSample struct {
	Timestamp    string  `json:"timestamp"`
	RegisterAddr uint16  `json:"register_address"`
	RegisterName string  `json:"register_name"`
	RawValue     uint16  `json:"raw_value"`
	ScaledValue  float64 `json:"scaled_value"`
	Unit         string  `json:"unit"`
}

// formatJSON renders samples as {"samples": [...]} with the field names
// spec.md §6 requires.
func formatJSON(samples []sample.Sample) (string, error) {
	exported := make([]exportedSample, len(samples))
	for i, smp := range samples {
		exported[i] = exportedSample{
			Timestamp:    smp.Timestamp.Local().Format("2006-01-02 15:04:05"),
			RegisterAddr: smp.Address,
			RegisterName: smp.Name,
			RawValue:     smp.RawValue,
			ScaledValue:  smp.ScaledValue,
			Unit:         smp.Unit,
		}
	}
	out, err := json.Marshal(struct {
		Samples []exportedSample `json:"samples"`
	}{Samples: exported})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
