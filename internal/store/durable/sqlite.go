// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package durable

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ecowatt/acquisition/internal/sample"
)

// SQLiteStore is the default durable backend: an append-only
// `samples` table keyed by (address, timestamp_ms), generalised from
// the teacher's register-table upsert pattern into a history log
// (spec.md §4.G).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at
// path and ensures its schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &StorageFailure{Op: "open", Cause: err}
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, &StorageFailure{Op: "init schema", Cause: err}
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			address INTEGER NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			name TEXT,
			raw_value INTEGER NOT NULL,
			scaled_value REAL NOT NULL,
			unit TEXT,
			PRIMARY KEY (address, timestamp_ms)
		);
		CREATE INDEX IF NOT EXISTS idx_samples_address_ts ON samples(address, timestamp_ms);
	`)
	return err
}

// Store inserts one sample.
func (s *SQLiteStore) Store(smp sample.Sample) error {
	return s.StoreBatch([]sample.Sample{smp})
}

// StoreBatch inserts several samples within one transaction.
func (s *SQLiteStore) StoreBatch(samples []sample.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &StorageFailure{Op: "begin transaction", Cause: err}
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO samples
		(address, timestamp_ms, name, raw_value, scaled_value, unit)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return &StorageFailure{Op: "prepare insert", Cause: err}
	}
	defer stmt.Close()

	for _, smp := range samples {
		_, err := stmt.Exec(smp.Address, smp.Timestamp.UnixMilli(), smp.Name, smp.RawValue, smp.ScaledValue, smp.Unit)
		if err != nil {
			tx.Rollback()
			return &StorageFailure{Op: "insert sample", Cause: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageFailure{Op: "commit transaction", Cause: err}
	}
	return nil
}

// Get returns the newest n samples for addr, newest-first.
func (s *SQLiteStore) Get(addr uint16, n int) ([]sample.Sample, error) {
	query := `SELECT timestamp_ms, address, name, raw_value, scaled_value, unit
		FROM samples WHERE address = ? ORDER BY timestamp_ms DESC`
	args := []interface{}{addr}
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &StorageFailure{Op: "query", Cause: err}
	}
	defer rows.Close()
	return scanSamples(rows)
}

// GetRange returns every sample for addr with timestamp in
// [fromUnix, toUnix] (seconds), newest-first.
func (s *SQLiteStore) GetRange(addr uint16, fromUnix, toUnix int64) ([]sample.Sample, error) {
	rows, err := s.db.Query(`SELECT timestamp_ms, address, name, raw_value, scaled_value, unit
		FROM samples WHERE address = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms DESC`, addr, fromUnix*1000, toUnix*1000)
	if err != nil {
		return nil, &StorageFailure{Op: "query range", Cause: err}
	}
	defer rows.Close()
	return scanSamples(rows)
}

// Cleanup deletes every sample older than olderThanUnix (seconds),
// returning the number of rows removed.
func (s *SQLiteStore) Cleanup(olderThanUnix int64) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM samples WHERE timestamp_ms < ?`, olderThanUnix*1000)
	if err != nil {
		return 0, &StorageFailure{Op: "cleanup", Cause: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageFailure{Op: "cleanup rows affected", Cause: err}
	}
	return n, nil
}

// ExportCSV renders every sample for addr in [fromUnix, toUnix] as CSV
// and, when path is non-empty, writes it there.
func (s *SQLiteStore) ExportCSV(path string, addr uint16, fromUnix, toUnix int64) (string, error) {
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
func (s *SQLiteStore) ExportJSON(path string, addr uint16, fromUnix, toUnix int64) (string, error) {
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
// per-register sample counts, oldest/newest timestamps, and the
// database file's approximate size on disk.
func (s *SQLiteStore) Stats() (Stats, error) {
	stats := Stats{PerRegisterCounts: make(map[uint16]int64)}

	row := s.db.QueryRow(`SELECT COUNT(*), COALESCE(MIN(timestamp_ms), 0), COALESCE(MAX(timestamp_ms), 0) FROM samples`)
	var minMs, maxMs int64
	if err := row.Scan(&stats.TotalSamples, &minMs, &maxMs); err != nil {
		return Stats{}, &StorageFailure{Op: "stats", Cause: err}
	}
	stats.OldestUnix = minMs / 1000
	stats.NewestUnix = maxMs / 1000

	rows, err := s.db.Query(`SELECT address, COUNT(*) FROM samples GROUP BY address`)
	if err != nil {
		return Stats{}, &StorageFailure{Op: "stats per-register", Cause: err}
	}
	defer rows.Close()
	for rows.Next() {
		var addr uint16
		var count int64
		if err := rows.Scan(&addr, &count); err != nil {
			return Stats{}, &StorageFailure{Op: "stats per-register scan", Cause: err}
		}
		stats.PerRegisterCounts[addr] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, &StorageFailure{Op: "stats per-register iterate", Cause: err}
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRow(`PRAGMA page_count`).Scan(&pageCount); err == nil {
		if err := s.db.QueryRow(`PRAGMA page_size`).Scan(&pageSize); err == nil {
			stats.ApproxBytes = pageCount * pageSize
		}
	}

	return stats, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanSamples(rows *sql.Rows) ([]sample.Sample, error) {
	var out []sample.Sample
	for rows.Next() {
		var tsMs int64
		var smp sample.Sample
		if err := rows.Scan(&tsMs, &smp.Address, &smp.Name, &smp.RawValue, &smp.ScaledValue, &smp.Unit); err != nil {
			return nil, &StorageFailure{Op: "scan row", Cause: err}
		}
		smp.Timestamp = time.UnixMilli(tsMs).UTC()
		out = append(out, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageFailure{Op: "iterate rows", Cause: err}
	}
	return out, nil
}
