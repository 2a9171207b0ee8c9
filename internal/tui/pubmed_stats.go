// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnrobert/gobro/internal/db"
	"github.com/bnrobert/gobro/internal/i18n"
	"github.com/bnrobert/gobro/internal/model"
)

type pubmedStatsModel struct {
	viewport viewport.Model
	err      error
}

func newPubmedStatsModel() pubmedStatsModel {
	m := pubmedStatsModel{viewport: viewport.New(0, 0)}

	count, err := db.CountArticles()
	if err != nil {
		m.err = err
		return m
	}
	journals, err := db.TopJournals(10)
	if err != nil {
		m.err = err
		return m
	}
	terms, err := db.TopMeshTerms(10)
	if err != nil {
		m.err = err
		return m
	}
	authors, err := db.GetAllAuthors()
	if err != nil {
		m.err = err
		return m
	}

	m.viewport.SetContent(buildStatsContent(count, journals, terms, topAuthors(authors, 10)))
	return m
}

// topAuthors tallies author links by short name and keeps the n busiest.
func topAuthors(authors []model.Author, n int) []db.NameCount {
	counts := map[string]int{}
	for _, a := range authors {
		counts[a.ShortName]++
	}
	out := make([]db.NameCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, db.NameCount{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// buildStatsContent renders the scrollable statistics report.
func buildStatsContent(articleCount int, journals, terms, authors []db.NameCount) string {
	sectionStyle := lipgloss.NewStyle().Bold(true)

	var b strings.Builder
	b.WriteString(i18n.T("stats.articles", articleCount) + "\n")

	if articleCount == 0 {
		b.WriteString("\n" + helpStyle.Render(i18n.T("stats.empty")))
		return b.String()
	}

	writeSection := func(title string, rows []db.NameCount) {
		b.WriteString("\n" + sectionStyle.Render(title) + "\n")
		if len(rows) == 0 {
			b.WriteString(helpStyle.Render("  " + i18n.T("dashboard.none")) + "\n")
			return
		}
		for _, row := range rows {
			b.WriteString(fmt.Sprintf("  %4d  %s\n", row.Count, row.Name))
		}
	}

	writeSection(i18n.T("stats.top_journals"), journals)
	writeSection(i18n.T("stats.top_terms"), terms)
	writeSection(i18n.T("stats.top_authors"), authors)

	return b.String()
}

func (m pubmedStatsModel) Init() tea.Cmd {
	return nil
}

func (m *pubmedStatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// header(3) + footer(2)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 5
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc":
			return m, func() tea.Msg { return backToMenuMsg{} }
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *pubmedStatsModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error loading bibliography statistics: %v", m.err))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("📚 "+i18n.T("stats.title")) + "\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString(helpStyle.Render("\n(↑/↓ to scroll, q to quit)"))
	return b.String()
}
