// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package durable

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/edsrzf/mmap-go"

	"github.com/ecowatt/acquisition/internal/sample"
)

// recordSize is the fixed on-disk layout of one sample record:
// timestamp_ms(8) + address(2) + raw(2) + scaled(8) + unit[8] + name[32],
// mirroring the teacher's fixed-offset mmap layout technique in
// internal/local-slave/persistence/layout.go, generalised from a
// whole-address-space table to an append-only log.
const unitFieldSize = 8
const nameFieldSize = 32
const recordSize = 8 + 2 + 2 + 8 + unitFieldSize + nameFieldSize

// indexGrowth is how many records' worth of space the mapped log file
// grows by each time it needs to extend, to amortise remap cost.
const indexGrowth = 4096 * recordSize

// FileLogStore is the alternative durable backend: one append-only
// binary log file of fixed-size records, memory-mapped with mmap-go
// (spec.md §4.G). There is no separate index; Get, GetRange and Stats
// scan every mapped record.
type FileLogStore struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	index    mmap.MMap
	size     int64 // bytes currently used in the mmap region
	capacity int64 // bytes currently mapped
}

// NewFileLogStore opens (creating if necessary) the append log at path.
func NewFileLogStore(path string) (*FileLogStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &StorageFailure{Op: "create directory", Cause: err}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, &StorageFailure{Op: "open log file", Cause: err}
	}

	s := &FileLogStore{path: path, file: f}
	if err := s.remap(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *FileLogStore) remap() error {
	if s.index != nil {
		s.index.Unmap()
		s.index = nil
	}

	fi, err := s.file.Stat()
	if err != nil {
		return &StorageFailure{Op: "stat log file", Cause: err}
	}
	s.size = fi.Size()

	capacity := s.size
	if capacity == 0 {
		capacity = indexGrowth
	}
	if err := s.file.Truncate(capacity); err != nil {
		return &StorageFailure{Op: "truncate log file", Cause: err}
	}
	s.capacity = capacity

	data, err := mmap.Map(s.file, mmap.RDWR, 0)
	if err != nil {
		return &StorageFailure{Op: "mmap log file", Cause: err}
	}
	s.index = data
	return nil
}

func (s *FileLogStore) ensureRoom(extra int64) error {
	if s.size+extra <= s.capacity {
		return nil
	}
	growth := indexGrowth
	for s.capacity+int64(growth) < s.size+extra {
		growth += indexGrowth
	}

	if s.index != nil {
		s.index.Unmap()
		s.index = nil
	}
	if err := s.file.Truncate(s.capacity + int64(growth)); err != nil {
		return &StorageFailure{Op: "grow log file", Cause: err}
	}
	s.capacity += int64(growth)

	data, err := mmap.Map(s.file, mmap.RDWR, 0)
	if err != nil {
		return &StorageFailure{Op: "remap log file", Cause: err}
	}
	s.index = data
	return nil
}

// Store appends one sample record.
func (s *FileLogStore) Store(smp sample.Sample) error {
	return s.StoreBatch([]sample.Sample{smp})
}

// StoreBatch appends several sample records.
func (s *FileLogStore) StoreBatch(samples []sample.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureRoom(int64(len(samples)) * recordSize); err != nil {
		return err
	}

	for _, smp := range samples {
		buf := encodeRecord(smp)
		copy(s.index[s.size:s.size+recordSize], buf)
		s.size += recordSize
	}
	return s.index.Flush()
}

// Get returns the newest n samples for addr, newest-first.
func (s *FileLogStore) Get(addr uint16, n int) ([]sample.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []sample.Sample
	for off := int64(0); off < s.size; off += recordSize {
		smp, recAddr := decodeRecord(s.index[off : off+recordSize])
		if recAddr == addr {
			matches = append(matches, smp)
		}
	}

	if n <= 0 || n > len(matches) {
		n = len(matches)
	}
	out := make([]sample.Sample, n)
	for i := 0; i < n; i++ {
		out[i] = matches[len(matches)-1-i]
	}
	return out, nil
}

// GetRange returns every sample for addr with a timestamp in
// [fromUnix, toUnix] (seconds), newest-first.
func (s *FileLogStore) GetRange(addr uint16, fromUnix, toUnix int64) ([]sample.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []sample.Sample
	for off := s.size - recordSize; off >= 0; off -= recordSize {
		smp, recAddr := decodeRecord(s.index[off : off+recordSize])
		if recAddr != addr {
			continue
		}
		t := smp.Timestamp.Unix()
		if t >= fromUnix && t <= toUnix {
			out = append(out, smp)
		}
	}
	return out, nil
}

// Cleanup rewrites the log without any record older than
// olderThanUnix, returning the number of records removed. The append
// log has no in-place delete, so cleanup is a compact-and-replace.
func (s *FileLogStore) Cleanup(olderThanUnix int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept bytes.Buffer
	removed := int64(0)
	for off := int64(0); off < s.size; off += recordSize {
		record := s.index[off : off+recordSize]
		smp, _ := decodeRecord(record)
		if smp.Timestamp.Unix() < olderThanUnix {
			removed++
			continue
		}
		kept.Write(record)
	}

	if removed == 0 {
		return 0, nil
	}

	s.size = 0
	if err := s.ensureRoom(int64(kept.Len())); err != nil {
		return 0, err
	}
	copy(s.index[0:kept.Len()], kept.Bytes())
	s.size = int64(kept.Len())
	if err := s.index.Flush(); err != nil {
		return 0, &StorageFailure{Op: "flush after cleanup", Cause: err}
	}
	return removed, nil
}

// ExportCSV renders every sample for addr in [fromUnix, toUnix] as CSV
// and, when path is non-empty, writes it there.
func (s *FileLogStore) ExportCSV(path string, addr uint16, fromUnix, toUnix int64) (string, error) {
	samples, err := s.GetRange(addr, fromUnix, toUnix)
	if err != nil {
		return "", err
	}
	csv, err := formatCSV(samples)
	if err != nil {
		return "", err
	}
	if err := writeExportFile(path, csv); err != nil {
		return "", err
	}
	return csv, nil
}

// ExportJSON renders every sample for addr in [fromUnix, toUnix] as
// JSON and, when path is non-empty, writes it there.
func (s *FileLogStore) ExportJSON(path string, addr uint16, fromUnix, toUnix int64) (string, error) {
	samples, err := s.GetRange(addr, fromUnix, toUnix)
	if err != nil {
		return "", err
	}
	js, err := formatJSON(samples)
	if err != nil {
		return "", err
	}
	if err := writeExportFile(path, js); err != nil {
		return "", err
	}
	return js, nil
}

// Stats reports the durable store's current footprint: total and
// per-register sample counts, oldest/newest timestamps, and the bytes
// currently in use in the log.
func (s *FileLogStore) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.size / recordSize
	perRegister := make(map[uint16]int64)
	var oldest, newest int64
	for off := int64(0); off < s.size; off += recordSize {
		smp, addr := decodeRecord(s.index[off : off+recordSize])
		perRegister[addr]++
		t := smp.Timestamp.Unix()
		if oldest == 0 || t < oldest {
			oldest = t
		}
		if t > newest {
			newest = t
		}
	}
	return Stats{
		TotalSamples:      count,
		PerRegisterCounts: perRegister,
		OldestUnix:        oldest,
		NewestUnix:        newest,
		ApproxBytes:       s.size,
	}, nil
}

// Close flushes and unmaps the index, then closes the file.
func (s *FileLogStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.index != nil {
		if e := s.index.Flush(); e != nil {
			err = e
		}
		if e := s.index.Unmap(); e != nil {
			err = e
		}
		s.index = nil
	}
	if s.file != nil {
		if e := s.file.Truncate(s.size); e != nil {
			err = e
		}
		if e := s.file.Close(); e != nil {
			err = e
		}
		s.file = nil
	}
	if err != nil {
		return &StorageFailure{Op: "close log file", Cause: err}
	}
	return nil
}

func encodeRecord(smp sample.Sample) []byte {
	buf := make([]byte, recordSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(smp.Timestamp.UnixMilli()))
	binary.LittleEndian.PutUint16(buf[8:10], smp.Address)
	binary.LittleEndian.PutUint16(buf[10:12], smp.RawValue)
	binary.LittleEndian.PutUint64(buf[12:20], math.Float64bits(smp.ScaledValue))

	unit := []byte(smp.Unit)
	if len(unit) > unitFieldSize {
		unit = unit[:unitFieldSize]
	}
	copy(buf[20:20+unitFieldSize], unit)

	nameOff := 20 + unitFieldSize
	name := []byte(smp.Name)
	if len(name) > nameFieldSize {
		name = name[:nameFieldSize]
	}
	copy(buf[nameOff:nameOff+nameFieldSize], name)
	return buf
}

func decodeRecord(buf []byte) (sample.Sample, uint16) {
	tsMs := int64(binary.LittleEndian.Uint64(buf[0:8]))
	addr := binary.LittleEndian.Uint16(buf[8:10])
	raw := binary.LittleEndian.Uint16(buf[10:12])
	scaled := math.Float64frombits(binary.LittleEndian.Uint64(buf[12:20]))
	unit := string(bytes.TrimRight(buf[20:20+unitFieldSize], "\x00"))

	nameOff := 20 + unitFieldSize
	name := string(bytes.TrimRight(buf[nameOff:nameOff+nameFieldSize], "\x00"))

	return sample.Sample{
		Timestamp:   time.UnixMilli(tsMs).UTC(),
		Address:     addr,
		RawValue:    raw,
		ScaledValue: scaled,
		Unit:        unit,
		Name:        name,
	}, addr
}
