// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// Package export writes bibliography data to Excel workbooks. Column headers
// keep the MEDLINE tag names so a round trip through the original exports
// stays recognizable.
package export // import "github.com/bnrobert/gobro/internal/export"

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/bnrobert/gobro/internal/fsutil"
	"github.com/bnrobert/gobro/internal/model"
)

// Sheet names in the exported workbook.
const (
	SheetArticles = "articles"
	SheetAuthors  = "authors"
	SheetKeywords = "keywords"
)

// WriteBibliography writes a three-sheet workbook (articles, authors,
// keywords) to path, atomically. An existing file is replaced.
func WriteBibliography(path string, articles []model.Article, authors []model.Author, terms []model.MeshTerm) error {
	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	if err := writeArticles(wb, articles); err != nil {
		return err
	}
	if err := writeAuthors(wb, authors); err != nil {
		return err
	}
	if err := writeKeywords(wb, terms); err != nil {
		return err
	}
	if err := wb.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	return fsutil.WriteAtomic(path, buf.Bytes(), 0o644)
}

func writeArticles(wb *excelize.File, articles []model.Article) error {
	header := []interface{}{"PMID", "TI", "TA", "JT", "VI", "IP", "DP", "SO", "AB"}
	rows := make([][]interface{}, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, []interface{}{
			a.PMID, a.Title, a.JournalAbbrev, a.Journal,
			a.Volume, a.Issue, a.PubDate, a.Source, a.Abstract,
		})
	}
	return writeSheet(wb, SheetArticles, header, rows)
}

func writeAuthors(wb *excelize.File, authors []model.Author) error {
	header := []interface{}{"PMID", "SAU", "FAU"}
	rows := make([][]interface{}, 0, len(authors))
	for _, a := range authors {
		rows = append(rows, []interface{}{a.PMID, a.ShortName, a.FullName})
	}
	return writeSheet(wb, SheetAuthors, header, rows)
}

func writeKeywords(wb *excelize.File, terms []model.MeshTerm) error {
	header := []interface{}{"PMID", "MH"}
	rows := make([][]interface{}, 0, len(terms))
	for _, t := range terms {
		rows = append(rows, []interface{}{t.PMID, t.Term})
	}
	return writeSheet(wb, SheetKeywords, header, rows)
}

func writeSheet(wb *excelize.File, name string, header []interface{}, rows [][]interface{}) error {
	if _, err := wb.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	if err := wb.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := wb.SetSheetRow(name, cell, &r); err != nil {
			return fmt.Errorf("write %s row %d: %w", name, i+2, err)
		}
	}
	return nil
}
