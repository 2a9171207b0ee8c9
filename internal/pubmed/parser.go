// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// Package pubmed parses MEDLINE exports from the PubMed search portal and
// prepares them for storage and word-frequency analysis. All free-text
// fields are normalized on the way in: lowercased, accents folded and the
// imaging vocabulary collapsed to acronyms, so the same article imported
// twice produces identical rows.
package pubmed // import "github.com/bnrobert/gobro/internal/pubmed"

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bnrobert/gobro/internal/fsutil"
	"github.com/bnrobert/gobro/internal/model"
)

// Bibliography is one parsed batch of articles with their authors and MeSH
// terms. Author and term rows reference articles by PMID.
type Bibliography struct {
	Articles []model.Article
	Authors  []model.Author
	Terms    []model.MeshTerm
}

// wordsReplace is applied in order to every cleaned text. Accent folding
// first, then the longer imaging phrases before their shorter variants, then
// punctuation. Reordering the table changes the output.
var wordsReplace = []struct{ old, new string }{
	{"à", "a"}, {"â", "a"}, {"é", "e"}, {"è", "e"}, {"ê", "e"},
	{"ô", "o"}, {"ö", "o"}, {"ù", "u"}, {"û", "u"},
	{"computed tomography", "ct"},
	{"tomography, x-ray computed", "ct"},
	{"magnetic resonance imaging", "mri"},
	{"magnetic resonance", "mri"},
	{"mr ", "mri "},
	{"mrs", "spectroscopy"},
	{"positron-emission tomography", "pet"},
	{"diagnostic imaging", "imaging"},
	{"adults", "adult"},
	{"agents", "agent"},
	{"children", "child"},
	{"complications", "complication"},
	{"drugs", "drug"},
	{"factors", "factor"},
	{"procedures", "procedure"},
	{"studies", "study"},
	{"tissues", "tissue"},
	{"trends", "trend"},
	{"ies ", "y "},
	{"-", "_"}, {"/", " "}, {"*", " "}, {",", " "}, {"&", " "},
	{"=", " "}, {">", " "}, {"<", " "}, {".", " "},
}

// cleanText lowercases s and applies the replacement table.
func cleanText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range wordsReplace {
		s = strings.ReplaceAll(s, r.old, r.new)
	}
	return strings.TrimSpace(s)
}

func underscored(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

// shortName derives the indexable author key from a MEDLINE FAU value: the
// family-name part before the first comma, cleaned and underscored.
func shortName(fullName string) string {
	idx := strings.Index(fullName, ",")
	if idx < 0 {
		idx = max(len(fullName)-1, 0)
	}
	return underscored(cleanText(fullName[:idx]))
}

// ParseFile reads one MEDLINE export. Tags are the first four columns of a
// line, values start at column six. A PMID tag opens a new article; TI, TA,
// JT, VI, IP, DP, SO and AB fill article fields; FAU and MH add author and
// keyword rows; untagged lines extend the abstract while one is being
// collected. Lines before the first PMID are ignored.
func ParseFile(path string) (*Bibliography, error) {
	if !fsutil.CheckFile(path) {
		return nil, fmt.Errorf("unsupported file: %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var (
		bib       Bibliography
		cur       *model.Article
		collectAB bool
	)
	flush := func() {
		if cur != nil && cur.PMID != "" {
			bib.Articles = append(bib.Articles, *cur)
		}
		cur = nil
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		tag := strings.TrimSpace(firstN(line, 4))
		value := strings.TrimSpace(fromN(line, 5))

		if tag == "PMID" {
			flush()
			cur = &model.Article{PMID: value}
			collectAB = false
			continue
		}
		if cur == nil {
			continue
		}

		switch tag {
		case "TI":
			cur.Title = cleanText(value)
			collectAB = false
		case "TA":
			cur.JournalAbbrev = underscored(cleanText(value))
			collectAB = false
		case "JT":
			cur.Journal = cleanText(value)
			collectAB = false
		case "VI":
			cur.Volume = cleanText(value)
			collectAB = false
		case "IP":
			cur.Issue = cleanText(value)
			collectAB = false
		case "DP":
			cur.PubDate = cleanText(value)
			collectAB = false
		case "SO":
			cur.Source = cleanText(value)
			collectAB = false
		case "AB":
			cur.Abstract = cleanText(value)
			collectAB = true
		case "FAU":
			bib.Authors = append(bib.Authors, model.Author{
				PMID:      cur.PMID,
				ShortName: shortName(value),
				FullName:  value,
			})
		case "MH":
			bib.Terms = append(bib.Terms, model.MeshTerm{
				PMID: cur.PMID,
				Term: cleanText(value),
			})
		case "":
			if collectAB && value != "" {
				cur.Abstract += " " + cleanText(value)
			}
		default:
			collectAB = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	flush()
	return &bib, nil
}

// Merge combines bibliographies in order. Article fields from later batches
// replace earlier ones per PMID; author and term rows union, first
// occurrence kept. Row order stays stable with first appearance.
func Merge(bibs ...*Bibliography) *Bibliography {
	out := &Bibliography{}
	articleAt := make(map[string]int)
	seenAuthor := make(map[string]struct{})
	seenTerm := make(map[string]struct{})

	for _, b := range bibs {
		if b == nil {
			continue
		}
		for _, a := range b.Articles {
			if i, ok := articleAt[a.PMID]; ok {
				out.Articles[i] = a
				continue
			}
			articleAt[a.PMID] = len(out.Articles)
			out.Articles = append(out.Articles, a)
		}
		for _, au := range b.Authors {
			k := au.PMID + "\x00" + au.FullName
			if _, ok := seenAuthor[k]; ok {
				continue
			}
			seenAuthor[k] = struct{}{}
			out.Authors = append(out.Authors, au)
		}
		for _, tm := range b.Terms {
			k := tm.PMID + "\x00" + tm.Term
			if _, ok := seenTerm[k]; ok {
				continue
			}
			seenTerm[k] = struct{}{}
			out.Terms = append(out.Terms, tm)
		}
	}
	return out
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func fromN(s string, n int) string {
	if len(s) <= n {
		return ""
	}
	return s[n:]
}
