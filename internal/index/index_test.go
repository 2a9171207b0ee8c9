// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/bnrobert/gobro/internal/db"
	"github.com/bnrobert/gobro/internal/dicom"
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

func writeDicom(t *testing.T, path, patientID, modality string) {
	t.Helper()
	els := []*godicom.Element{}
	add := func(tg tag.Tag, vals []string) {
		el, err := godicom.NewElement(tg, vals)
		if err != nil {
			t.Fatalf("NewElement(%v): %v", tg, err)
		}
		els = append(els, el)
	}
	add(tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"})
	add(tag.MediaStorageSOPInstanceUID, []string{"1.2.3.4.5"})
	add(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"})
	add(tag.Modality, []string{modality})
	add(tag.PatientID, []string{patientID})
	add(tag.StudyDate, []string{"20240102"})

	f := &dicom.File{Path: path, Dataset: godicom.Dataset{Elements: els}}
	if err := f.Save(path); err != nil {
		t.Fatalf("Save(%s): %v", path, err)
	}
}

func TestScanIndexesDirectory(t *testing.T) {
	store := setupTestStore(t)
	dir := t.TempDir()
	writeDicom(t, filepath.Join(dir, "a.dcm"), "PAT1", "CT")
	writeDicom(t, filepath.Join(dir, "sub", "b.dcm"), "PAT2", "MR")
	if err := os.WriteFile(filepath.Join(dir, "junk.txt"), []byte("plain text"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	res, err := Scan(context.Background(), store, dir, 2, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Total != 3 || res.Indexed != 2 || res.Failed != 1 {
		t.Errorf("result = %+v, want total 3, indexed 2, failed 1", res)
	}

	n, err := store.CountDicomFiles()
	if err != nil {
		t.Fatalf("CountDicomFiles: %v", err)
	}
	if n != 2 {
		t.Errorf("catalog rows = %d, want 2", n)
	}

	rec, err := store.GetDicomFileByPath(filepath.Join(dir, "a.dcm"))
	if err != nil {
		t.Fatalf("GetDicomFileByPath: %v", err)
	}
	if rec == nil {
		t.Fatal("a.dcm not cataloged")
	}
	if rec.PatientID != "PAT1" || rec.Modality != "CT" {
		t.Errorf("cataloged attributes = %s/%s, want PAT1/CT", rec.PatientID, rec.Modality)
	}
	if rec.StudyDate != "20240102" {
		t.Errorf("StudyDate = %q, want 20240102", rec.StudyDate)
	}
	if rec.AccessionNumber != dicom.UnknownValue {
		t.Errorf("missing AccessionNumber = %q, want %q", rec.AccessionNumber, dicom.UnknownValue)
	}
	if len(rec.ContentHash) != 64 {
		t.Errorf("content hash %q is not a 256-bit hex digest", rec.ContentHash)
	}
	if rec.SizeBytes <= 0 {
		t.Errorf("size = %d, want > 0", rec.SizeBytes)
	}
	if rec.IndexedAt == "" {
		t.Error("IndexedAt is empty")
	}
}

func TestScanIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	dir := t.TempDir()
	writeDicom(t, filepath.Join(dir, "a.dcm"), "PAT1", "CT")

	if _, err := Scan(context.Background(), store, dir, 1, nil); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	first, err := store.GetAllDicomFiles()
	if err != nil {
		t.Fatalf("GetAllDicomFiles: %v", err)
	}

	if _, err := Scan(context.Background(), store, dir, 1, nil); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	second, err := store.GetAllDicomFiles()
	if err != nil {
		t.Fatalf("GetAllDicomFiles: %v", err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("row counts = %d then %d, want 1 and 1", len(first), len(second))
	}
	if first[0].ID != second[0].ID {
		t.Errorf("row ID changed across rescans: %d then %d", first[0].ID, second[0].ID)
	}
	if first[0].ContentHash != second[0].ContentHash {
		t.Errorf("hash changed for unchanged file")
	}
}

func TestScanRejectsMissingDir(t *testing.T) {
	store := setupTestStore(t)
	if _, err := Scan(context.Background(), store, filepath.Join(t.TempDir(), "nope"), 1, nil); err == nil {
		t.Error("Scan accepted a missing directory")
	}
}

func TestPruneDropsVanishedFiles(t *testing.T) {
	store := setupTestStore(t)
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.dcm")
	gone := filepath.Join(dir, "gone.dcm")
	writeDicom(t, keep, "PAT1", "CT")
	writeDicom(t, gone, "PAT2", "MR")

	if _, err := Scan(context.Background(), store, dir, 1, nil); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if err := os.Remove(gone); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	n, err := Prune(store)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
	rec, err := store.GetDicomFileByPath(keep)
	if err != nil || rec == nil {
		t.Fatalf("surviving file missing from catalog: %v", err)
	}
	if rec.PatientID != "PAT1" {
		t.Errorf("surviving row = %+v", rec)
	}

	again, err := Prune(store)
	if err != nil {
		t.Fatalf("second Prune: %v", err)
	}
	if again != 0 {
		t.Errorf("second prune removed %d rows, want 0", again)
	}
}
