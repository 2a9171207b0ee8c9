// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// Package backup reads and writes Zstandard-compressed JSON database
// backups. A backup file contains every table of the Gobro database and can
// be used for disaster recovery or for migrating between database backends.
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/bnrobert/gobro/internal/db"
	"github.com/bnrobert/gobro/internal/model"
)

// SchemaVersion is the backup format version this build writes and reads.
const SchemaVersion = 1

// Options control how a restore is applied.
type Options struct {
	// Full wipes all existing data before importing. The default is a
	// non-destructive integration that only adds rows that do not exist yet.
	Full bool
}

// DefaultFilename returns the dated default backup filename,
// e.g. gobro-backup-2026-08-25.json.zst.
func DefaultFilename(now time.Time) string {
	return fmt.Sprintf("gobro-backup-%s.json.zst", now.Format("2006-01-02"))
}

// NormalizeFilename appends the .zst suffix when it is missing.
func NormalizeFilename(name string) string {
	if strings.HasSuffix(name, ".zst") {
		return name
	}
	return name + ".zst"
}

// Export dumps the database contents into a BackupData structure.
func Export(st db.Store) (*model.BackupData, error) {
	return st.ExportDataForBackup()
}

// Write streams data as indented JSON through a zstd writer. The JSON is
// encoded directly into the compressor so large catalogs never have to be
// buffered in memory.
func Write(w io.Writer, data *model.BackupData) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush backup: %w", err)
	}
	return nil
}

// Read decodes a zstd-compressed JSON backup from r and checks its schema
// version against what this build understands.
func Read(r io.Reader) (*model.BackupData, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()
	var data model.BackupData
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	if data.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported backup schema version %d, this build reads version %d", data.SchemaVersion, SchemaVersion)
	}
	return &data, nil
}

// Restore reads a compressed backup from r and applies it to the store.
func Restore(r io.Reader, opts Options, st db.Store) error {
	data, err := Read(r)
	if err != nil {
		return err
	}
	if opts.Full {
		return st.ImportDataFromBackup(data)
	}
	return st.IntegrateDataFromBackup(data)
}

// WriteFile creates filename and streams a backup of the store into it.
func WriteFile(filename string, st db.Store) error {
	data, err := Export(st)
	if err != nil {
		return fmt.Errorf("export backup: %w", err)
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Write(f, data)
}

// RestoreFile opens filename and applies the backup inside it to the store.
func RestoreFile(filename string, opts Options, st db.Store) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Restore(f, opts, st)
}
