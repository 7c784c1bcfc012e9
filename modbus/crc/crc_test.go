// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package crc

import "testing"

func TestCRC(t *testing.T) {
	var crc CRC
	crc.Reset()
	crc.PushBytes([]byte{0x02, 0x07})

	if crc.Value() != 0x1241 {
		t.Fatalf("crc expected %v, actual %v", 0x1241, crc.Value())
	}
}

func TestChecksumMatchesPushBytes(t *testing.T) {
	data := []byte{0x11, 0x03, 0x00, 0x00, 0x00, 0x02}
	var crc CRC
	crc.Reset()
	crc.PushBytes(data)

	if got := Checksum(data); got != crc.Value() {
		t.Fatalf("Checksum() = %#04x, want %#04x", got, crc.Value())
	}
}

func TestReadTwoRegistersFrameCRC(t *testing.T) {
	// From spec scenario 1: frame body 1103000000029BC6, CRC bytes 9B C6
	// little-endian => value 0xC69B.
	body := []byte{0x11, 0x03, 0x00, 0x00, 0x00, 0x02}
	if got := Checksum(body); got != 0xC69B {
		t.Fatalf("Checksum() = %#04x, want 0xc69b", got)
	}
}
