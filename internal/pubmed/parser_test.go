// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package pubmed

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleExport = `PMID- 36990001
OWN - NLM
TI  - Computed Tomography of the chest: a retrospective
      study over ten years.
TA  - Eur Radiol
JT  - European radiology
VI  - 34
IP  - 2
DP  - 2024 Jan 15
SO  - Eur Radiol. 2024;34(2):100-110.
AB  - Background: chest imaging with low dose protocols
      reduces exposure. We reviewed adults with suspected
      disease.
FAU - Doe, Jane A
FAU - Van Der Berg, Anna
MH  - Tomography, X-Ray Computed
MH  - Radiation Dosage

PMID- 36990002
TI  - Magnetic Resonance Imaging in children
TA  - Pediatr Radiol
JT  - Pediatric radiology
DP  - 2023 Dec
FAU - Doe, Jane A
MH  - Magnetic Resonance Imaging
`

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.pubmed")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestParseFile(t *testing.T) {
	bib, err := ParseFile(writeExport(t, sampleExport))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	if len(bib.Articles) != 2 {
		t.Fatalf("articles = %d, want 2", len(bib.Articles))
	}
	first := bib.Articles[0]
	if first.PMID != "36990001" {
		t.Errorf("PMID = %q", first.PMID)
	}
	// Wrapped titles keep their first line only; continuations extend
	// abstracts, nothing else.
	if first.Title != "ct of the chest: a retrospective" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.JournalAbbrev != "eur_radiol" {
		t.Errorf("JournalAbbrev = %q, want eur_radiol", first.JournalAbbrev)
	}
	if first.Journal != "european radiology" {
		t.Errorf("Journal = %q", first.Journal)
	}
	if first.Volume != "34" || first.Issue != "2" {
		t.Errorf("Volume/Issue = %q/%q", first.Volume, first.Issue)
	}
	if first.PubDate != "2024 jan 15" {
		t.Errorf("PubDate = %q", first.PubDate)
	}
	wantAB := "background: chest imaging with low dose protocols " +
		"reduces exposure  we reviewed adult with suspected disease"
	if first.Abstract != wantAB {
		t.Errorf("Abstract = %q\nwant       %q", first.Abstract, wantAB)
	}

	second := bib.Articles[1]
	if second.PMID != "36990002" {
		t.Errorf("second PMID = %q", second.PMID)
	}
	if second.Title != "mri in child" {
		t.Errorf("second Title = %q, want \"mri in child\"", second.Title)
	}

	if len(bib.Authors) != 3 {
		t.Fatalf("authors = %d, want 3", len(bib.Authors))
	}
	if bib.Authors[0].PMID != "36990001" || bib.Authors[0].ShortName != "doe" {
		t.Errorf("first author = %+v", bib.Authors[0])
	}
	if bib.Authors[0].FullName != "Doe, Jane A" {
		t.Errorf("full name = %q, want raw case kept", bib.Authors[0].FullName)
	}
	if bib.Authors[1].ShortName != "van_der_berg" {
		t.Errorf("second author short name = %q, want van_der_berg", bib.Authors[1].ShortName)
	}

	if len(bib.Terms) != 3 {
		t.Fatalf("terms = %d, want 3", len(bib.Terms))
	}
	if bib.Terms[0].Term != "ct" {
		t.Errorf("first term = %q, want ct", bib.Terms[0].Term)
	}
	if bib.Terms[1].Term != "radiation dosage" {
		t.Errorf("second term = %q", bib.Terms[1].Term)
	}
	if bib.Terms[2].Term != "mri" {
		t.Errorf("third term = %q, want mri", bib.Terms[2].Term)
	}
}

func TestParseFileIgnoresPreamble(t *testing.T) {
	bib, err := ParseFile(writeExport(t, "FAU - Orphan, Line\nMH  - Orphan Term\n"+sampleExport))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(bib.Articles) != 2 || len(bib.Authors) != 3 || len(bib.Terms) != 3 {
		t.Errorf("preamble lines leaked into the result: %d/%d/%d",
			len(bib.Articles), len(bib.Authors), len(bib.Terms))
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "absent.pubmed")); err == nil {
		t.Error("ParseFile accepted a missing file")
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Computed Tomography", "ct"},
		{"Tomography, X-Ray Computed", "ct"},
		{"Magnetic Resonance Imaging of the Brain", "mri of the brain"},
		{"CT and MR imaging", "ct and mri imaging"},
		{"risk-factors", "risk_factor"},
		{"therapies are evolving", "therapy are evolving"},
		{"échographie rénale", "echographie renale"},
		{"A/B testing, now", "a b testing  now"},
	}
	for _, tt := range tests {
		if got := cleanText(tt.in); got != tt.want {
			t.Errorf("cleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShortName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Doe, Jane A", "doe"},
		{"Van Der Berg, Anna", "van_der_berg"},
		{"O'Neil, Sam", "o'neil"},
	}
	for _, tt := range tests {
		if got := shortName(tt.in); got != tt.want {
			t.Errorf("shortName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMergeLastImportWins(t *testing.T) {
	a, err := ParseFile(writeExport(t, sampleExport))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	b, err := ParseFile(writeExport(t, `PMID- 36990001
TI  - Revised title
FAU - Doe, Jane A
FAU - New, Author
MH  - Tomography, X-Ray Computed
`))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	m := Merge(a, b)
	if len(m.Articles) != 2 {
		t.Fatalf("merged articles = %d, want 2", len(m.Articles))
	}
	if m.Articles[0].PMID != "36990001" {
		t.Errorf("merge broke article order: %+v", m.Articles[0])
	}
	if m.Articles[0].Title != "revised title" {
		t.Errorf("merged title = %q, want the later import", m.Articles[0].Title)
	}

	// 3 from the first batch plus the one genuinely new author.
	if len(m.Authors) != 4 {
		t.Errorf("merged authors = %d, want 4", len(m.Authors))
	}
	if len(m.Terms) != 3 {
		t.Errorf("merged terms = %d, want 3 (duplicate union)", len(m.Terms))
	}
}
