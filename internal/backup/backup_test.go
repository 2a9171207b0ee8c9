// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package backup

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bnrobert/gobro/internal/db"
	"github.com/bnrobert/gobro/internal/model"
)

func setupTestStore(t *testing.T) db.Store {
	t.Helper()
	store, err := db.New("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() {
		if bdb := store.BunDB(); bdb != nil {
			_ = bdb.Close()
		}
	})
	return store
}

func sampleData() *model.BackupData {
	return &model.BackupData{
		SchemaVersion: SchemaVersion,
		DicomFiles: []model.DicomFile{
			{ID: 1, Path: "/data/a.dcm", PatientID: "PAT1", Modality: "CT", ContentHash: "abc", SizeBytes: 42},
		},
		Articles: []model.Article{
			{PMID: "100", Title: "ct of the chest", JournalAbbrev: "eur_radiol"},
		},
		Authors: []model.Author{
			{ID: 1, PMID: "100", ShortName: "doe", FullName: "Doe, Jane"},
		},
		MeshTerms: []model.MeshTerm{
			{ID: 1, PMID: "100", Term: "ct"},
		},
		KnownHosts: []model.KnownHost{
			{Hostname: "pacs.example.org:22", Key: "ssh-ed25519 AAAA"},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleData()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", got.SchemaVersion, SchemaVersion)
	}
	if len(got.DicomFiles) != 1 || got.DicomFiles[0].PatientID != "PAT1" {
		t.Errorf("DicomFiles = %+v", got.DicomFiles)
	}
	if len(got.Articles) != 1 || got.Articles[0].Title != "ct of the chest" {
		t.Errorf("Articles = %+v", got.Articles)
	}
	if len(got.Authors) != 1 || got.Authors[0].FullName != "Doe, Jane" {
		t.Errorf("Authors = %+v", got.Authors)
	}
	if len(got.KnownHosts) != 1 || got.KnownHosts[0].Hostname != "pacs.example.org:22" {
		t.Errorf("KnownHosts = %+v", got.KnownHosts)
	}
}

func TestReadRejectsUnknownSchemaVersion(t *testing.T) {
	data := sampleData()
	data.SchemaVersion = SchemaVersion + 1
	var buf bytes.Buffer
	if err := Write(&buf, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := Read(&buf); err == nil {
		t.Error("Read accepted a backup with a future schema version")
	}
}

func TestReadRejectsUncompressedInput(t *testing.T) {
	if _, err := Read(strings.NewReader(`{"schema_version":1}`)); err == nil {
		t.Error("Read accepted plain JSON without zstd framing")
	}
}

func TestRestoreIntegratesIntoStore(t *testing.T) {
	store := setupTestStore(t)
	var buf bytes.Buffer
	if err := Write(&buf, sampleData()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := Restore(&buf, Options{}, store); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	n, err := store.CountDicomFiles()
	if err != nil {
		t.Fatalf("CountDicomFiles: %v", err)
	}
	if n != 1 {
		t.Errorf("catalog rows after restore = %d, want 1", n)
	}
	art, err := store.GetArticleByPMID("100")
	if err != nil {
		t.Fatalf("GetArticleByPMID: %v", err)
	}
	if art == nil || art.Title != "ct of the chest" {
		t.Errorf("restored article = %+v", art)
	}
	key, err := store.GetKnownHostKey("pacs.example.org:22")
	if err != nil {
		t.Fatalf("GetKnownHostKey: %v", err)
	}
	if key != "ssh-ed25519 AAAA" {
		t.Errorf("restored host key = %q", key)
	}
}

func TestRestoreFullReplacesExistingData(t *testing.T) {
	store := setupTestStore(t)
	if _, err := store.UpsertDicomFile(model.DicomFile{Path: "/old/x.dcm", PatientID: "OLD", Modality: "MR"}); err != nil {
		t.Fatalf("UpsertDicomFile: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, sampleData()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Restore(&buf, Options{Full: true}, store); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	rows, err := store.GetAllDicomFiles()
	if err != nil {
		t.Fatalf("GetAllDicomFiles: %v", err)
	}
	if len(rows) != 1 || rows[0].PatientID != "PAT1" {
		t.Errorf("rows after full restore = %+v, want only the backup row", rows)
	}
}

func TestExportRoundTripThroughFiles(t *testing.T) {
	src := setupTestStore(t)
	if _, err := src.UpsertDicomFile(model.DicomFile{Path: "/data/a.dcm", PatientID: "PAT1", Modality: "CT"}); err != nil {
		t.Fatalf("UpsertDicomFile: %v", err)
	}
	if err := src.AddKnownHostKey("pacs.example.org:22", "ssh-ed25519 AAAA"); err != nil {
		t.Fatalf("AddKnownHostKey: %v", err)
	}

	file := filepath.Join(t.TempDir(), "gobro.json.zst")
	if err := WriteFile(file, src); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	dst := setupTestStore(t)
	if err := RestoreFile(file, Options{}, dst); err != nil {
		t.Fatalf("RestoreFile: %v", err)
	}
	n, err := dst.CountDicomFiles()
	if err != nil {
		t.Fatalf("CountDicomFiles: %v", err)
	}
	if n != 1 {
		t.Errorf("restored catalog rows = %d, want 1", n)
	}
	key, err := dst.GetKnownHostKey("pacs.example.org:22")
	if err != nil || key == "" {
		t.Errorf("restored host key = %q, err %v", key, err)
	}
}

func TestDefaultFilename(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	if got := DefaultFilename(now); got != "gobro-backup-2026-08-25.json.zst" {
		t.Errorf("DefaultFilename = %q", got)
	}
}

func TestNormalizeFilename(t *testing.T) {
	if got := NormalizeFilename("my-backup.json"); got != "my-backup.json.zst" {
		t.Errorf("NormalizeFilename = %q", got)
	}
	if got := NormalizeFilename("my-backup.json.zst"); got != "my-backup.json.zst" {
		t.Errorf("NormalizeFilename kept = %q", got)
	}
}
