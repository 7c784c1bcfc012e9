// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package frame builds and parses Modbus-RTU frames (function codes
// 0x03 read-holding-registers and 0x06 write-single-register) on top
// of complete byte buffers, the way they arrive decoded from a hex
// string inside an HTTP+JSON envelope rather than byte-at-a-time off a
// serial line.
package frame

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ecowatt/acquisition/modbus/crc"
)

// Function codes used by the core.
const (
	FuncReadHoldingRegisters = 0x03
	FuncWriteSingleRegister  = 0x06

	exceptionBit = 0x80

	minRegisterCount = 1
	maxRegisterCount = 125
)

// Response is a decoded Modbus-RTU response frame.
type Response struct {
	SlaveAddress byte
	FunctionCode byte
	Data         []byte
	IsError      bool
	ErrorCode    byte
}

// InvalidArgumentError reports a caller-supplied value outside the
// protocol's valid range.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string { return e.Message }

// InvalidFrameError reports a frame that failed structural or CRC
// validation.
type InvalidFrameError struct {
	Message string
}

func (e *InvalidFrameError) Error() string { return e.Message }

// BuildReadHoldingRegisters builds an 8-byte read-holding-registers
// request frame: [slave, 0x03, start_hi, start_lo, count_hi, count_lo, crc_lo, crc_hi].
func BuildReadHoldingRegisters(slave byte, startAddr uint16, count uint16) ([]byte, error) {
	if count < minRegisterCount || count > maxRegisterCount {
		return nil, &InvalidArgumentError{Message: fmt.Sprintf("register count %d out of range [%d..%d]", count, minRegisterCount, maxRegisterCount)}
	}

	body := make([]byte, 6)
	body[0] = slave
	body[1] = FuncReadHoldingRegisters
	binary.BigEndian.PutUint16(body[2:4], startAddr)
	binary.BigEndian.PutUint16(body[4:6], count)

	return appendCRC(body), nil
}

// BuildWriteSingleRegister builds an 8-byte write-single-register
// request frame: [slave, 0x06, addr_hi, addr_lo, val_hi, val_lo, crc_lo, crc_hi].
func BuildWriteSingleRegister(slave byte, addr uint16, value uint16) ([]byte, error) {
	body := make([]byte, 6)
	body[0] = slave
	body[1] = FuncWriteSingleRegister
	binary.BigEndian.PutUint16(body[2:4], addr)
	binary.BigEndian.PutUint16(body[4:6], value)

	return appendCRC(body), nil
}

func appendCRC(body []byte) []byte {
	sum := crc.Checksum(body)
	frame := make([]byte, len(body)+2)
	copy(frame, body)
	frame[len(body)] = byte(sum)
	frame[len(body)+1] = byte(sum >> 8)
	return frame
}

// BytesToHex renders bytes as uppercase hex, matching the wire protocol's
// "<uppercase hex>" convention.
func BytesToHex(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// HexToBytes decodes a hex string, accepting upper or lower case.
func HexToBytes(hexString string) ([]byte, error) {
	if hexString == "" {
		return nil, &InvalidFrameError{Message: "empty hex string"}
	}
	if len(hexString)%2 != 0 {
		return nil, &InvalidFrameError{Message: "odd-length hex string"}
	}
	data, err := hex.DecodeString(hexString)
	if err != nil {
		return nil, &InvalidFrameError{Message: fmt.Sprintf("invalid hex character: %v", err)}
	}
	return data, nil
}

// Validate reports whether frameBytes carries a correct trailing CRC.
func Validate(frameBytes []byte) bool {
	if len(frameBytes) < 3 {
		return false
	}
	body := frameBytes[:len(frameBytes)-2]
	want := crc.Checksum(body)
	got := uint16(frameBytes[len(frameBytes)-2]) | uint16(frameBytes[len(frameBytes)-1])<<8
	return want == got
}

// ParseResponse parses a hex-encoded response frame per spec.md §4.A /
// §8 scenarios 1-4.
func ParseResponse(frameHex string) (*Response, error) {
	data, err := HexToBytes(frameHex)
	if err != nil {
		return nil, err
	}
	if len(data) < 5 {
		return nil, &InvalidFrameError{Message: fmt.Sprintf("frame too short: %d bytes", len(data))}
	}
	if !Validate(data) {
		return nil, &InvalidFrameError{Message: "CRC mismatch"}
	}

	slave := data[0]
	funcCode := data[1]
	payload := data[2 : len(data)-2]

	resp := &Response{SlaveAddress: slave}

	if funcCode&exceptionBit != 0 {
		resp.IsError = true
		resp.FunctionCode = funcCode &^ exceptionBit
		if len(payload) < 1 {
			return nil, &InvalidFrameError{Message: "exception frame missing error code"}
		}
		resp.ErrorCode = payload[0]
		return resp, nil
	}

	resp.FunctionCode = funcCode

	switch funcCode {
	case FuncReadHoldingRegisters:
		if len(payload) < 1 {
			return nil, &InvalidFrameError{Message: "read response missing byte count"}
		}
		byteCount := int(payload[0])
		if len(data) != 3+byteCount+2 {
			return nil, &InvalidFrameError{Message: fmt.Sprintf("frame size %d does not match byte count %d", len(data), byteCount)}
		}
		resp.Data = payload[1:]
	case FuncWriteSingleRegister:
		resp.Data = payload
	default:
		resp.Data = payload
	}

	return resp, nil
}

// ParseResponseExpectingCount is ParseResponse with an additional check
// that a 0x03 response carries exactly count registers.
func ParseResponseExpectingCount(frameHex string, count uint16) (*Response, error) {
	resp, err := ParseResponse(frameHex)
	if err != nil {
		return nil, err
	}
	if resp.IsError || resp.FunctionCode != FuncReadHoldingRegisters {
		return resp, nil
	}
	if len(resp.Data) != int(count)*2 {
		return nil, &InvalidFrameError{Message: fmt.Sprintf("byte count %d does not match expected register count %d", len(resp.Data), count)}
	}
	return resp, nil
}

// DecodeRegisters decodes consecutive big-endian register words.
func DecodeRegisters(data []byte) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, &InvalidFrameError{Message: "register data length is not even"}
	}
	values := make([]uint16, len(data)/2)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(data[i*2 : i*2+2])
	}
	return values, nil
}

// EncodeRegisters encodes register words as consecutive big-endian bytes.
func EncodeRegisters(values []uint16) []byte {
	data := make([]byte, len(values)*2)
	for i, v := range values {
		binary.BigEndian.PutUint16(data[i*2:i*2+2], v)
	}
	return data
}
