// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package frame

// modbusErrorMessages is the exception-code dictionary from spec.md §4.A.
var modbusErrorMessages = map[byte]string{
	0x01: "Illegal Function",
	0x02: "Illegal Data Address",
	0x03: "Illegal Data Value",
	0x04: "Slave Device Failure",
	0x05: "Acknowledge",
	0x06: "Slave Device Busy",
	0x08: "Memory Parity Error",
	0x0A: "Gateway Path Unavailable",
	0x0B: "Gateway Target Device Failed to Respond",
}

// ErrorMessage returns the human-readable description for a Modbus
// exception code, or "Unknown Error" if the code isn't in the dictionary.
func ErrorMessage(code byte) string {
	if msg, ok := modbusErrorMessages[code]; ok {
		return msg
	}
	return "Unknown Error"
}
