// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package pubmed

import (
	"fmt"
	"sort"
	"strings"
)

// Field selects which bibliography text feeds a frequency count.
type Field string

// Countable fields.
const (
	FieldKeyword  Field = "keyword"
	FieldAuthor   Field = "author"
	FieldJournal  Field = "journal"
	FieldTitle    Field = "title"
	FieldAbstract Field = "abstract"
)

// Fields lists the accepted Field values in display order.
func Fields() []Field {
	return []Field{FieldKeyword, FieldAuthor, FieldJournal, FieldTitle, FieldAbstract}
}

// WordCount is one row of a frequency table.
type WordCount struct {
	Word  string
	Count int
}

// DefaultTop caps a frequency table when the caller does not.
const DefaultTop = 200

// wordsRemove is always dropped from frequency tables. "ci" floods abstracts
// through confidence intervals without carrying meaning.
var wordsRemove = []string{"ci"}

// stopwords dropped from frequency tables. Texts are already lowercase when
// tokenized.
var stopwords = map[string]struct{}{}

func init() {
	list := []string{
		"a", "about", "after", "all", "also", "an", "and", "any", "are", "as",
		"at", "be", "been", "before", "being", "between", "both", "but", "by",
		"can", "could", "did", "do", "does", "during", "each", "for", "from",
		"had", "has", "have", "he", "her", "his", "how", "if", "in", "into",
		"is", "it", "its", "may", "more", "most", "no", "not", "of", "on",
		"one", "or", "other", "our", "over", "she", "should", "so", "some",
		"such", "than", "that", "the", "their", "then", "there", "these",
		"they", "this", "those", "through", "to", "under", "was", "we", "were",
		"what", "when", "which", "while", "who", "will", "with", "within",
		"would",
	}
	for _, w := range list {
		stopwords[w] = struct{}{}
	}
}

// Frequencies counts the words of one bibliography field. Values shorter
// than two characters are ignored, stopwords and the removal list (plus any
// extra words the caller passes) are dropped, ties break alphabetically and
// the table is capped at top rows (DefaultTop when top <= 0).
func Frequencies(b *Bibliography, field Field, extraRemove []string, top int) ([]WordCount, error) {
	values, err := fieldValues(b, field)
	if err != nil {
		return nil, err
	}

	remove := make(map[string]struct{}, len(wordsRemove)+len(extraRemove))
	for _, w := range wordsRemove {
		remove[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range extraRemove {
		remove[strings.ToLower(w)] = struct{}{}
	}

	counts := make(map[string]int)
	for _, v := range values {
		if len(v) <= 1 {
			continue
		}
		for _, word := range strings.Fields(v) {
			if len(word) <= 1 {
				continue
			}
			if _, ok := stopwords[word]; ok {
				continue
			}
			if _, ok := remove[word]; ok {
				continue
			}
			counts[word]++
		}
	}

	table := make([]WordCount, 0, len(counts))
	for w, n := range counts {
		table = append(table, WordCount{Word: w, Count: n})
	}
	sort.Slice(table, func(i, j int) bool {
		if table[i].Count != table[j].Count {
			return table[i].Count > table[j].Count
		}
		return table[i].Word < table[j].Word
	})

	if top <= 0 {
		top = DefaultTop
	}
	if len(table) > top {
		table = table[:top]
	}
	return table, nil
}

func fieldValues(b *Bibliography, field Field) ([]string, error) {
	var values []string
	switch field {
	case FieldKeyword:
		for _, t := range b.Terms {
			values = append(values, t.Term)
		}
	case FieldAuthor:
		for _, a := range b.Authors {
			values = append(values, a.ShortName)
		}
	case FieldJournal:
		for _, a := range b.Articles {
			values = append(values, a.JournalAbbrev)
		}
	case FieldTitle:
		for _, a := range b.Articles {
			values = append(values, a.Title)
		}
	case FieldAbstract:
		for _, a := range b.Articles {
			values = append(values, a.Abstract)
		}
	default:
		return nil, fmt.Errorf("unknown word field %q", field)
	}
	return values, nil
}
