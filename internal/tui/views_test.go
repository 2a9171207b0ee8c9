// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnrobert/gobro/internal/db"
	"github.com/bnrobert/gobro/internal/i18n"
	"github.com/bnrobert/gobro/internal/model"
)

// setupTestDB points the db package at a fresh in-memory SQLite store.
func setupTestDB(t *testing.T) {
	t.Helper()
	i18n.Init("en")
	dsn := fmt.Sprintf("file:memdb_tui_%d?mode=memory&cache=shared", time.Now().UnixNano())
	if _, err := db.New("sqlite", dsn); err != nil {
		t.Fatalf("failed to initialize test database: %v", err)
	}
	b := db.BunDB()
	t.Cleanup(func() {
		if b != nil {
			_ = b.Close()
		}
	})
}

func TestAuditActionStyleAndRebuild(t *testing.T) {
	// Check styles render something non-empty
	s := auditActionStyle("PRUNE_INDEX")
	if s.Render("x") == "" {
		t.Fatalf("expected non-empty render from destructive style")
	}
	s2 := auditActionStyle("INDEX_DICOM")
	if s2.Render("x") == "" {
		t.Fatalf("expected non-empty render from additive style")
	}

	// Test rebuildTableRows with entries
	m := &auditLogModel{
		allEntries: []model.AuditLogEntry{
			{Timestamp: "2026-01-01 08:00:00", Username: "alice", Action: "INDEX_DICOM", Details: "/data: 4/4"},
			{Timestamp: "2026-01-02 09:30:00", Username: "bob", Action: "PRUNE_INDEX", Details: "2 entries"},
		},
	}
	m.filter = ""
	m.filterCol = 0
	m.rebuildTableRows()
	rows := m.table.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after rebuild, got %d", len(rows))
	}

	// Try filter by username
	m.filter = "bob"
	m.filterCol = 2
	m.rebuildTableRows()
	rows = m.table.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row when filtering by bob, got %d", len(rows))
	}
}

func TestDicomBrowserRebuildAndFilter(t *testing.T) {
	m := &dicomBrowserModel{
		allFiles: []model.DicomFile{
			{PatientID: "HOSP12345", PatientName: "DOE^JANE", Modality: "CT", StationName: "CTSCANNER1", StudyDate: "20240102", Path: "/data/a.dcm"},
			{PatientID: "HOSP99999", PatientName: "ROE^JOHN", Modality: "MR", StationName: "MRUNIT2", StudyDate: "20240301", Path: "/data/b.dcm"},
		},
	}
	m.rebuildTableRows()
	if got := len(m.table.Rows()); got != 2 {
		t.Fatalf("expected 2 rows after rebuild, got %d", got)
	}
	if len(m.visible) != 2 {
		t.Fatalf("expected visible list to track rows, got %d", len(m.visible))
	}

	// Filter on the patient column matches both ID and name.
	m.filter = "doe"
	m.filterCol = 1
	m.rebuildTableRows()
	if got := len(m.table.Rows()); got != 1 {
		t.Fatalf("expected 1 row when filtering by patient, got %d", got)
	}
	if m.visible[0].Path != "/data/a.dcm" {
		t.Fatalf("expected visible entry for a.dcm, got %s", m.visible[0].Path)
	}

	// Filter on the modality column.
	m.filter = "mr"
	m.filterCol = 2
	m.rebuildTableRows()
	if got := len(m.table.Rows()); got != 1 {
		t.Fatalf("expected 1 row when filtering by modality, got %d", got)
	}
	if m.visible[0].PatientID != "HOSP99999" {
		t.Fatalf("expected the MR study to remain, got %s", m.visible[0].PatientID)
	}
}

func TestMenuNavigationAndDashboardView(t *testing.T) {
	i18n.Init("en")

	m := initialModel()
	if m.state != menuView {
		t.Fatalf("expected initial state to be the menu")
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = updated.(mainModel)
	if m.menu.cursor != 1 {
		t.Fatalf("expected cursor 1 after moving down, got %d", m.menu.cursor)
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	m = updated.(mainModel)
	if m.menu.cursor != 0 {
		t.Fatalf("expected cursor 0 after moving up, got %d", m.menu.cursor)
	}

	// "L" jumps straight to the language view.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("L")})
	m = updated.(mainModel)
	if m.state != languageView {
		t.Fatalf("expected language view after pressing L")
	}

	// The dashboard renders the catalog and bibliography counters.
	view := menuModel{choices: []string{"one", "two"}}.View(dashboardData{
		dicomCount:        7,
		articleCount:      3,
		modalityBreakdown: "CT: 7",
		recentLogs: []model.AuditLogEntry{
			{Timestamp: "2026-01-02 09:30:00", Username: "alice", Action: "INDEX_DICOM", Details: "/data: 7/7"},
		},
	}, 120, 40)
	if !strings.Contains(view, "Indexed DICOM files: 7") {
		t.Fatalf("expected dashboard to show the catalog counter, got:\n%s", view)
	}
	if !strings.Contains(view, "INDEX_DICOM") {
		t.Fatalf("expected dashboard to show recent activity, got:\n%s", view)
	}
}

func TestBackToMenuFromSubViews(t *testing.T) {
	i18n.Init("en")

	m := initialModel()
	m.state = auditLogView
	m.auditLog = &auditLogModel{}

	updated, cmd := m.Update(backToMenuMsg{})
	m = updated.(mainModel)
	if m.state != menuView {
		t.Fatalf("expected to return to the menu, got state %d", m.state)
	}
	if cmd == nil {
		t.Fatalf("expected a dashboard refresh command on return to menu")
	}
}

func TestLanguageSwitchFlow(t *testing.T) {
	setupTestDB(t)

	savedCode := ""
	origSave := saveLanguage
	saveLanguage = func(code string) error {
		savedCode = code
		return nil
	}
	defer func() {
		saveLanguage = origSave
		i18n.SetLang("en")
	}()

	m := initialModel()
	m.state = languageView
	m.language = newLanguageModel()
	if len(m.language.orderedKeys) < 2 {
		t.Fatalf("expected at least two locales, got %v", m.language.orderedKeys)
	}
	if m.language.orderedKeys[0] != "en" {
		t.Fatalf("expected en to sort first, got %v", m.language.orderedKeys)
	}

	if v := m.language.View(); v == "" {
		t.Fatalf("language view rendered empty")
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(mainModel)
	if cmd == nil {
		t.Fatalf("expected a command signalling the language change")
	}
	if savedCode != "en" {
		t.Fatalf("expected the selection to be persisted, got %q", savedCode)
	}
	if _, ok := cmd().(languageChangedMsg); !ok {
		t.Fatalf("expected a languageChangedMsg")
	}

	// The change message rebuilds the model back at the menu.
	updated, _ = m.Update(languageChangedMsg{})
	m = updated.(mainModel)
	if m.state != menuView {
		t.Fatalf("expected a fresh model at the menu after a language change")
	}
}

func TestTopAuthorsAndStatsContent(t *testing.T) {
	i18n.Init("en")

	authors := []model.Author{
		{PMID: "1", ShortName: "doe"},
		{PMID: "2", ShortName: "doe"},
		{PMID: "2", ShortName: "van_der_berg"},
	}
	top := topAuthors(authors, 10)
	if len(top) != 2 {
		t.Fatalf("expected 2 tallied authors, got %d", len(top))
	}
	if top[0].Name != "doe" || top[0].Count != 2 {
		t.Fatalf("expected doe to lead with 2 links, got %+v", top[0])
	}

	content := buildStatsContent(2,
		[]db.NameCount{{Name: "Radiology", Count: 2}},
		[]db.NameCount{{Name: "radiation dosage", Count: 1}},
		top,
	)
	if !strings.Contains(content, "Radiology") || !strings.Contains(content, "van_der_berg") {
		t.Fatalf("expected stats content to list journals and authors, got:\n%s", content)
	}

	empty := buildStatsContent(0, nil, nil, nil)
	if !strings.Contains(empty, i18n.T("stats.empty")) {
		t.Fatalf("expected the empty-catalog hint, got:\n%s", empty)
	}
}

func TestPubmedStatsModelWithData(t *testing.T) {
	setupTestDB(t)

	err := db.UpsertArticle(model.Article{
		PMID:          "36990001",
		Title:         "ct of the chest: a retrospective",
		JournalAbbrev: "Radiology",
		Journal:       "Radiology",
	}, []model.Author{{PMID: "36990001", ShortName: "doe", FullName: "Doe, Jane"}},
		[]model.MeshTerm{{PMID: "36990001", Term: "radiation dosage"}})
	if err != nil {
		t.Fatalf("failed to seed article: %v", err)
	}

	m := newPubmedStatsModel()
	if m.err != nil {
		t.Fatalf("unexpected stats error: %v", m.err)
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	sm := updated.(*pubmedStatsModel)
	view := sm.View()
	if !strings.Contains(view, "Radiology") {
		t.Fatalf("expected the journal tally in the stats view, got:\n%s", view)
	}
}

func TestAlignFooter(t *testing.T) {
	got := AlignFooter("left", "right", 20)
	if len(got) != 20 {
		t.Fatalf("expected padded width 20, got %d (%q)", len(got), got)
	}
	if !strings.HasPrefix(got, "left") || !strings.HasSuffix(got, "right") {
		t.Fatalf("expected tokens at both edges, got %q", got)
	}

	// Too-narrow widths degrade to a single separating space.
	if got := AlignFooter("left", "right", 5); got != "left right" {
		t.Fatalf("expected single-space fallback, got %q", got)
	}
}
