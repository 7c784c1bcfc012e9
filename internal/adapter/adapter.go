// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package adapter turns register operations into framed HTTP+JSON
// requests against the cloud gateway, with retry and statistics
// (spec.md §4.B).
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ecowatt/acquisition/modbus/frame"
)

// Config holds everything the adapter needs beyond the Transport.
type Config struct {
	SlaveAddress  byte
	ReadEndpoint  string
	WriteEndpoint string
	MaxRetries    int
	RetryDelay    time.Duration
}

// Adapter is the protocol adapter (spec.md §4.B).
type Adapter struct {
	cfg       Config
	transport Transport
	stats     statsTracker
}

// New builds an Adapter over the given Transport.
func New(cfg Config, transport Transport) *Adapter {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Adapter{cfg: cfg, transport: transport}
}

type envelope struct {
	Frame string `json:"frame"`
}

// ReadRegisters reads count holding registers starting at start
// (spec.md §4.B).
func (a *Adapter) ReadRegisters(ctx context.Context, start uint16, count uint16) ([]uint16, error) {
	reqFrame, err := frame.BuildReadHoldingRegisters(a.cfg.SlaveAddress, start, count)
	if err != nil {
		return nil, err
	}

	resp, err := a.exchange(ctx, a.cfg.ReadEndpoint, reqFrame, func(frameHex string) (*frame.Response, error) {
		return frame.ParseResponseExpectingCount(frameHex, count)
	})
	if err != nil {
		return nil, err
	}

	values, err := frame.DecodeRegisters(resp.Data)
	if err != nil {
		return nil, &ProtocolMismatchError{Message: err.Error()}
	}
	return values, nil
}

// WriteRegister writes value to addr and requires the echo to match
// address and value byte-for-byte (spec.md §4.B).
func (a *Adapter) WriteRegister(ctx context.Context, addr uint16, value uint16) (bool, error) {
	reqFrame, err := frame.BuildWriteSingleRegister(a.cfg.SlaveAddress, addr, value)
	if err != nil {
		return false, err
	}

	resp, err := a.exchange(ctx, a.cfg.WriteEndpoint, reqFrame, func(frameHex string) (*frame.Response, error) {
		return frame.ParseResponse(frameHex)
	})
	if err != nil {
		return false, err
	}

	echo, err := frame.DecodeRegisters(resp.Data)
	if err != nil || len(echo) != 2 || echo[0] != addr || echo[1] != value {
		return false, &ProtocolMismatchError{Message: "write echo does not match address and value"}
	}
	return true, nil
}

// TestCommunication exercises a read/write/restore sequence and
// reports whether the whole sequence succeeded (spec.md §4.B). The
// export-power register address is supplied by the caller (from
// configuration, per spec.md §9's Open Question) and never hard-coded.
func (a *Adapter) TestCommunication(ctx context.Context, exportPowerRegister uint16, testValue uint16) bool {
	if _, err := a.ReadRegisters(ctx, 0, 2); err != nil {
		return false
	}

	original, err := a.ReadRegisters(ctx, exportPowerRegister, 1)
	if err != nil {
		return false
	}

	ok, err := a.WriteRegister(ctx, exportPowerRegister, testValue)
	if err != nil || !ok {
		return false
	}

	ok, err = a.WriteRegister(ctx, exportPowerRegister, original[0])
	return err == nil && ok
}

// Stats returns a snapshot of the adapter's communication statistics.
func (a *Adapter) Stats() CommunicationStats {
	return a.stats.Snapshot()
}

// ResetStats zeroes the adapter's statistics.
func (a *Adapter) ResetStats() {
	a.stats.Reset()
}

// exchange runs the retry-wrapped request/response cycle shared by
// ReadRegisters and WriteRegister (spec.md §4.B retry policy).
func (a *Adapter) exchange(ctx context.Context, endpoint string, reqFrame []byte, parse func(string) (*frame.Response, error)) (*frame.Response, error) {
	body, err := json.Marshal(envelope{Frame: frame.BytesToHex(reqFrame)})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxRetries; attempt++ {
		start := time.Now()
		resp, parsed, attemptErr := a.attempt(ctx, endpoint, body, parse)
		elapsed := time.Since(start)

		if modbusErr, ok := attemptErr.(*ModbusException); ok {
			// Terminal: a legitimate exception response is never retried.
			a.stats.recordAttempt(attempt, false, elapsed)
			return nil, modbusErr
		}

		if invalidFrame, ok := attemptErr.(*frame.InvalidFrameError); ok {
			// Terminal: a structurally bad frame (bad hex, too short, CRC
			// mismatch, register-count mismatch) is never retried.
			a.stats.recordAttempt(attempt, false, elapsed)
			return nil, &ProtocolMismatchError{Message: invalidFrame.Error()}
		}

		if attemptErr == nil {
			a.stats.recordAttempt(attempt, true, elapsed)
			_ = resp
			return parsed, nil
		}

		a.stats.recordAttempt(attempt, false, elapsed)
		lastErr = attemptErr

		if attempt < a.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.cfg.RetryDelay):
			}
		}
	}

	return nil, &TransportFailure{Attempts: a.cfg.MaxRetries, Cause: lastErr}
}

// attempt performs exactly one HTTP exchange and decode, without retry.
func (a *Adapter) attempt(ctx context.Context, endpoint string, body []byte, parse func(string) (*frame.Response, error)) (Response, *frame.Response, error) {
	httpResp, err := a.transport.Post(ctx, endpoint, body)
	if err != nil {
		return Response{}, nil, err
	}
	if httpResp.Status < 200 || httpResp.Status >= 300 {
		return httpResp, nil, fmt.Errorf("non-2xx status: %d", httpResp.Status)
	}

	var env envelope
	if err := json.Unmarshal(httpResp.Body, &env); err != nil {
		return httpResp, nil, fmt.Errorf("malformed JSON response: %w", err)
	}
	if env.Frame == "" {
		return httpResp, nil, &ProtocolMismatchError{Message: "missing or empty frame field"}
	}

	parsed, err := parse(env.Frame)
	if err != nil {
		return httpResp, nil, err
	}
	if parsed.IsError {
		return httpResp, nil, &ModbusException{ErrorCode: parsed.ErrorCode, Message: frame.ErrorMessage(parsed.ErrorCode)}
	}

	return httpResp, parsed, nil
}
