// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"testing"

	"github.com/bnrobert/gobro/internal/model"
)

func TestFilterDicomFilesByTokens(t *testing.T) {
	files := []model.DicomFile{
		{Path: "/data/ct1.dcm", PatientID: "P100", Modality: "CT", StationName: "SCANNER01"},
		{Path: "/data/mr1.dcm", PatientID: "P200", Modality: "MR", StationName: "SCANNER02"},
		{Path: "/data/ct2.dcm", PatientID: "P200", Modality: "CT", StationName: "SCANNER01"},
	}

	// No tokens returns the input unchanged.
	if got := FilterDicomFilesByTokens(files, nil); len(got) != 3 {
		t.Errorf("Expected all rows for nil tokens, got %d", len(got))
	}

	got := FilterDicomFilesByTokens(files, []string{"ct"})
	if len(got) != 2 {
		t.Errorf("Expected 2 CT rows, got %d", len(got))
	}

	// All tokens must match the same row.
	got = FilterDicomFilesByTokens(files, []string{"ct", "p200"})
	if len(got) != 1 || got[0].Path != "/data/ct2.dcm" {
		t.Errorf("Expected only /data/ct2.dcm, got %+v", got)
	}

	got = FilterDicomFilesByTokens(files, []string{"nothing"})
	if len(got) != 0 {
		t.Errorf("Expected no rows, got %+v", got)
	}
}

func TestFilterArticlesByTokens(t *testing.T) {
	articles := []model.Article{
		{PMID: "1", Title: "CT dose reduction", Journal: "Radiology"},
		{PMID: "2", Title: "MR safety", Journal: "Radiology"},
		{PMID: "3", Title: "Reporting guidelines", Journal: "The Lancet"},
	}

	got := FilterArticlesByTokens(articles, []string{"radiology"})
	if len(got) != 2 {
		t.Errorf("Expected 2 Radiology articles, got %d", len(got))
	}

	got = FilterArticlesByTokens(articles, []string{"radiology", "mr"})
	if len(got) != 1 || got[0].PMID != "2" {
		t.Errorf("Expected article 2, got %+v", got)
	}
}
