// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bnrobert/gobro/internal/db"
	"github.com/bnrobert/gobro/internal/export"
	"github.com/bnrobert/gobro/internal/fsutil"
	"github.com/bnrobert/gobro/internal/model"
	"github.com/bnrobert/gobro/internal/pubmed"
)

// pubmedCmd is the root command for bibliography operations.
var pubmedCmd = &cobra.Command{
	Use:   "pubmed",
	Short: "Manage the PubMed bibliography (import, list, words, export)",
	Long: `The 'pubmed' command group manages the bibliography:
  - Import MEDLINE exports (single file or a directory of them)
  - List and search stored articles
  - Compute word frequency tables over titles, abstracts or keywords
  - Export the bibliography to an Excel workbook`,
}

// pubmedImportCmd parses MEDLINE exports and stores them.
var pubmedImportCmd = &cobra.Command{
	Use:   "import <file|dir>",
	Short: "Import a MEDLINE export into the bibliography",
	Long: `Parse one MEDLINE-format PubMed export, or every file in a directory of
them, and upsert the articles with their authors and MeSH keywords.
Re-importing a PMID overwrites the stored article fields.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]

		var paths []string
		if fsutil.CheckDir(target) {
			var err error
			paths, err = fsutil.ListFiles(target, false, nil)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", target, err)
			}
		} else {
			paths = []string{target}
		}

		var bibs []*pubmed.Bibliography
		for _, p := range paths {
			bib, err := pubmed.ParseFile(p)
			if err != nil {
				fmt.Printf("skipped %s: %v\n", p, err)
				continue
			}
			bibs = append(bibs, bib)
		}
		if len(bibs) == 0 {
			return fmt.Errorf("no parseable MEDLINE files in %s", target)
		}
		merged := pubmed.Merge(bibs...)

		authorsByPMID := make(map[string][]model.Author)
		for _, a := range merged.Authors {
			authorsByPMID[a.PMID] = append(authorsByPMID[a.PMID], a)
		}
		termsByPMID := make(map[string][]model.MeshTerm)
		for _, t := range merged.Terms {
			termsByPMID[t.PMID] = append(termsByPMID[t.PMID], t)
		}

		for _, art := range merged.Articles {
			if err := db.UpsertArticle(art, authorsByPMID[art.PMID], termsByPMID[art.PMID]); err != nil {
				return fmt.Errorf("failed to store article %s: %w", art.PMID, err)
			}
		}

		_ = db.LogAction("IMPORT_PUBMED", fmt.Sprintf("%s: %d articles", target, len(merged.Articles)))
		fmt.Printf("Imported %d articles from %d file(s).\n", len(merged.Articles), len(bibs))
		return nil
	},
}

// pubmedListCmd lists stored articles with optional search.
var pubmedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored articles",
	Long: `Display the stored bibliography in table format.
You can search across PMID, title, journal and abstract.`,
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		searchTerm, _ := cmd.Flags().GetString("search")

		articles, err := db.GetAllArticles()
		if err != nil {
			return fmt.Errorf("failed to list articles: %w", err)
		}
		if searchTerm != "" {
			articles = db.FilterArticlesByTokens(articles, db.TokenizeSearchQuery(searchTerm))
		}

		if len(articles) == 0 {
			fmt.Println("No articles found.")
			return nil
		}

		// Display as table
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PMID\tDATE\tJOURNAL\tTITLE")
		for _, a := range articles {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.PMID, a.PubDate, a.JournalAbbrev, a.Title)
		}
		w.Flush()

		return nil
	},
}

// pubmedWordsCmd prints a word frequency table for one bibliography field.
var pubmedWordsCmd = &cobra.Command{
	Use:   "words [field]",
	Short: "Word frequency table over the stored bibliography",
	Long: `Count word frequencies over one field of the stored bibliography.
Fields: keyword (default), author, journal, title, abstract.
Stopwords and one-character tokens are dropped; --remove drops extra words.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		top, _ := cmd.Flags().GetInt("top")
		removeWords, _ := cmd.Flags().GetStringSlice("remove")

		field := pubmed.FieldKeyword
		if len(args) > 0 {
			field = pubmed.Field(strings.ToLower(args[0]))
		}

		articles, err := db.GetAllArticles()
		if err != nil {
			return fmt.Errorf("failed to load articles: %w", err)
		}
		authors, err := db.GetAllAuthors()
		if err != nil {
			return fmt.Errorf("failed to load authors: %w", err)
		}
		terms, err := db.GetAllMeshTerms()
		if err != nil {
			return fmt.Errorf("failed to load keywords: %w", err)
		}
		bib := &pubmed.Bibliography{Articles: articles, Authors: authors, Terms: terms}

		table, err := pubmed.Frequencies(bib, field, removeWords, top)
		if err != nil {
			return err
		}
		if len(table) == 0 {
			fmt.Println("Nothing to count. Import a bibliography first.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WORD\tCOUNT")
		for _, row := range table {
			fmt.Fprintf(w, "%s\t%d\n", row.Word, row.Count)
		}
		w.Flush()

		return nil
	},
}

// pubmedExportCmd writes the bibliography to an Excel workbook.
var pubmedExportCmd = &cobra.Command{
	Use:   "export <out.xlsx>",
	Short: "Export the bibliography to an Excel workbook",
	Long: `Write the stored bibliography to an Excel workbook with three sheets:
Articles, Authors and Keywords. '.xlsx' is appended to the name if missing.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile := args[0]
		if !strings.HasSuffix(outputFile, ".xlsx") {
			outputFile += ".xlsx"
		}

		articles, err := db.GetAllArticles()
		if err != nil {
			return fmt.Errorf("failed to load articles: %w", err)
		}
		if len(articles) == 0 {
			return fmt.Errorf("nothing to export, import a bibliography first")
		}
		authors, err := db.GetAllAuthors()
		if err != nil {
			return fmt.Errorf("failed to load authors: %w", err)
		}
		terms, err := db.GetAllMeshTerms()
		if err != nil {
			return fmt.Errorf("failed to load keywords: %w", err)
		}

		if err := export.WriteBibliography(outputFile, articles, authors, terms); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}

		_ = db.LogAction("EXPORT_PUBMED", fmt.Sprintf("%d articles to %s", len(articles), outputFile))
		fmt.Printf("Exported %d articles to %s\n", len(articles), outputFile)
		return nil
	},
}

func init() {
	pubmedCmd.AddCommand(pubmedImportCmd)
	pubmedCmd.AddCommand(pubmedListCmd)
	pubmedCmd.AddCommand(pubmedWordsCmd)
	pubmedCmd.AddCommand(pubmedExportCmd)

	pubmedListCmd.Flags().String("search", "", "Search PMID, title, journal and abstract")

	pubmedWordsCmd.Flags().Int("top", 0, fmt.Sprintf("Cap the table at N rows (default %d)", pubmed.DefaultTop))
	pubmedWordsCmd.Flags().StringSlice("remove", nil, "Extra words to drop from the table")
}
