// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"strings"

	"github.com/bnrobert/gobro/internal/model"
)

// FilterDicomFilesByTokens returns the subset of `files` that match all tokens.
// Matching is case-insensitive and tests patient ID, patient name, modality,
// station name, and path for substring containment. If `tokens` is nil or
// empty, the original slice is returned.
func FilterDicomFilesByTokens(files []model.DicomFile, tokens []string) []model.DicomFile {
	if len(tokens) == 0 {
		return files
	}
	out := make([]model.DicomFile, 0, len(files))
	for _, f := range files {
		// prepare lowercase fields
		pid := strings.ToLower(f.PatientID)
		name := strings.ToLower(f.PatientName)
		mod := strings.ToLower(f.Modality)
		station := strings.ToLower(f.StationName)
		path := strings.ToLower(f.Path)

		matchedAll := true
		for _, tok := range tokens {
			tok = strings.ToLower(strings.TrimSpace(tok))
			if tok == "" {
				continue
			}
			if !strings.Contains(pid, tok) && !strings.Contains(name, tok) &&
				!strings.Contains(mod, tok) && !strings.Contains(station, tok) &&
				!strings.Contains(path, tok) {
				matchedAll = false
				break
			}
		}
		if matchedAll {
			out = append(out, f)
		}
	}
	return out
}

// FilterArticlesByTokens returns the subset of `articles` that match all
// tokens across PMID, title, and journal fields.
func FilterArticlesByTokens(articles []model.Article, tokens []string) []model.Article {
	if len(tokens) == 0 {
		return articles
	}
	out := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		pmid := strings.ToLower(a.PMID)
		title := strings.ToLower(a.Title)
		journal := strings.ToLower(a.Journal)
		abbrev := strings.ToLower(a.JournalAbbrev)

		matchedAll := true
		for _, tok := range tokens {
			tok = strings.ToLower(strings.TrimSpace(tok))
			if tok == "" {
				continue
			}
			if !strings.Contains(pmid, tok) && !strings.Contains(title, tok) &&
				!strings.Contains(journal, tok) && !strings.Contains(abbrev, tok) {
				matchedAll = false
				break
			}
		}
		if matchedAll {
			out = append(out, a)
		}
	}
	return out
}
