// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package adapter

import (
	"fmt"

	"github.com/ecowatt/acquisition/modbus/crc"
	"github.com/ecowatt/acquisition/modbus/frame"
)

// buildReadResponse constructs a valid 0x03 response frame for the
// given register values, for use as test fixtures.
func buildReadResponse(slave byte, funcCode byte, values []uint16) ([]byte, error) {
	data := frame.EncodeRegisters(values)
	body := make([]byte, 0, 3+len(data))
	body = append(body, slave, funcCode, byte(len(data)))
	body = append(body, data...)
	sum := crc.Checksum(body)
	body = append(body, byte(sum), byte(sum>>8))
	return body, nil
}

// buildWriteEchoResponse constructs a valid 0x06 echo response frame.
func buildWriteEchoResponse(slave byte, addr, value uint16) ([]byte, error) {
	return frame.BuildWriteSingleRegister(slave, addr, value)
}

func jsonFrameResponse(f []byte) Response {
	return Response{Status: 200, Body: []byte(fmt.Sprintf(`{"frame":"%s"}`, frame.BytesToHex(f)))}
}
