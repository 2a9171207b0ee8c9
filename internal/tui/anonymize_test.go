// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnrobert/gobro/internal/db"
)

func TestAnonymizeWizardFlow(t *testing.T) {
	setupTestDB(t)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not dicom"), 0o644); err != nil {
		t.Fatalf("failed to write junk file: %v", err)
	}

	wizard := newAnonymizeModel()
	am := &wizard

	// A missing directory keeps the wizard on the input step with a hint.
	am.input.SetValue(filepath.Join(dir, "missing"))
	updated, _ := am.Update(tea.KeyMsg{Type: tea.KeyEnter})
	am = updated.(*anonymizeModel)
	if am.state != anonStateInput {
		t.Fatalf("expected to stay on the input step, got state %d", am.state)
	}
	if am.inputErr == "" {
		t.Fatalf("expected an inline error for a missing directory")
	}

	// A valid directory advances to the confirm step.
	am.input.SetValue(dir)
	updated, _ = am.Update(tea.KeyMsg{Type: tea.KeyEnter})
	am = updated.(*anonymizeModel)
	if am.state != anonStateConfirm {
		t.Fatalf("expected the confirm step, got state %d", am.state)
	}
	if am.outDir != filepath.Join(dir, "anonymized") {
		t.Fatalf("unexpected output dir: %s", am.outDir)
	}
	if v := am.View(); !strings.Contains(v, dir) {
		t.Fatalf("expected the confirm view to show the source directory, got:\n%s", v)
	}

	// Confirming starts the batch.
	updated, cmd := am.Update(tea.KeyMsg{Type: tea.KeyEnter})
	am = updated.(*anonymizeModel)
	if am.state != anonStateRunning {
		t.Fatalf("expected the running step, got state %d", am.state)
	}
	if cmd == nil {
		t.Fatalf("expected a command waiting for batch events")
	}

	// Drive the event loop until the batch reports completion.
	for i := 0; i < 10 && am.state != anonStateDone; i++ {
		msg := cmd()
		updated, cmd = am.Update(msg)
		am = updated.(*anonymizeModel)
	}
	if am.state != anonStateDone {
		t.Fatalf("batch never finished")
	}
	if am.err != nil {
		t.Fatalf("unexpected batch error: %v", am.err)
	}
	if am.result == nil || am.result.Total != 1 || am.result.Failed != 1 {
		t.Fatalf("expected the junk file to be counted and failed, got %+v", am.result)
	}

	view := am.View()
	if !strings.Contains(view, "Anonymized 0 of 1") {
		t.Fatalf("expected the summary line, got:\n%s", view)
	}

	// The run leaves an audit entry.
	entries, err := db.GetAllAuditLogEntries()
	if err != nil {
		t.Fatalf("failed to read audit log: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Action == "ANONYMIZE_DICOM" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an ANONYMIZE_DICOM audit entry, got %+v", entries)
	}

	// Esc from the summary returns to the menu.
	updated, cmd = am.Update(tea.KeyMsg{Type: tea.KeyEsc})
	_ = updated
	if cmd == nil {
		t.Fatalf("expected a back-to-menu command")
	}
	if _, ok := cmd().(backToMenuMsg); !ok {
		t.Fatalf("expected backToMenuMsg from the summary step")
	}
}
