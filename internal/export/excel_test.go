// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package export

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/bnrobert/gobro/internal/model"
)

func TestWriteBibliography(t *testing.T) {
	path := filepath.Join(t.TempDir(), "biblio.xlsx")

	articles := []model.Article{
		{PMID: "1", Title: "ct dose reduction", JournalAbbrev: "eur_radiol",
			Journal: "european radiology", Volume: "34", Issue: "2",
			PubDate: "2024 jan", Source: "src", Abstract: "dose matters"},
		{PMID: "2", Title: "mri in child", JournalAbbrev: "pediatr_radiol"},
	}
	authors := []model.Author{
		{PMID: "1", ShortName: "doe", FullName: "Doe, Jane A"},
	}
	terms := []model.MeshTerm{
		{PMID: "1", Term: "ct"},
		{PMID: "2", Term: "mri"},
	}

	if err := WriteBibliography(path, articles, authors, terms); err != nil {
		t.Fatalf("WriteBibliography: %v", err)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer func() { _ = wb.Close() }()

	rows, err := wb.GetRows(SheetArticles)
	if err != nil {
		t.Fatalf("GetRows(articles): %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("articles rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "PMID" || rows[0][1] != "TI" {
		t.Errorf("articles header = %v", rows[0])
	}
	if rows[1][0] != "1" || rows[1][1] != "ct dose reduction" {
		t.Errorf("first article row = %v", rows[1])
	}

	rows, err = wb.GetRows(SheetAuthors)
	if err != nil {
		t.Fatalf("GetRows(authors): %v", err)
	}
	if len(rows) != 2 || rows[1][2] != "Doe, Jane A" {
		t.Errorf("authors rows = %v", rows)
	}

	rows, err = wb.GetRows(SheetKeywords)
	if err != nil {
		t.Fatalf("GetRows(keywords): %v", err)
	}
	if len(rows) != 3 || rows[2][1] != "mri" {
		t.Errorf("keywords rows = %v", rows)
	}

	for _, name := range wb.GetSheetList() {
		if name == "Sheet1" {
			t.Error("default sheet survived the export")
		}
	}
}

func TestWriteBibliographyEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := WriteBibliography(path, nil, nil, nil); err != nil {
		t.Fatalf("WriteBibliography: %v", err)
	}
	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer func() { _ = wb.Close() }()

	rows, err := wb.GetRows(SheetArticles)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("articles rows = %d, want header only", len(rows))
	}
}
