// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnrobert/gobro/internal/db"
	"github.com/bnrobert/gobro/internal/dicom"
	"github.com/bnrobert/gobro/internal/fsutil"
	"github.com/bnrobert/gobro/internal/i18n"
)

type anonState int

const (
	anonStateInput anonState = iota
	anonStateConfirm
	anonStateRunning
	anonStateDone
)

// anonProgressMsg reports one processed file during a running batch.
type anonProgressMsg struct {
	done  int
	total int
	path  string
	err   error
}

// anonDoneMsg signals that the batch has finished.
type anonDoneMsg struct {
	res *dicom.BatchResult
	err error
}

type anonymizeModel struct {
	state    anonState
	input    textinput.Model
	dir      string
	outDir   string
	inputErr string

	done     int
	total    int
	failed   int
	lastPath string

	result *dicom.BatchResult
	events chan tea.Msg
	err    error
}

func newAnonymizeModel() anonymizeModel {
	ti := textinput.New()
	ti.Cursor.Style = focusedStyle
	ti.CharLimit = 512
	ti.Width = 60
	ti.Placeholder = "/data/studies/2026-08"
	ti.Focus()

	return anonymizeModel{
		state: anonStateInput,
		input: ti,
	}
}

func (m anonymizeModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *anonymizeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Batch events can arrive regardless of which step is showing.
	switch msg := msg.(type) {
	case anonProgressMsg:
		m.done = msg.done
		m.total = msg.total
		m.lastPath = msg.path
		if msg.err != nil {
			m.failed++
		}
		return m, m.waitForEvent()

	case anonDoneMsg:
		m.state = anonStateDone
		m.result = msg.res
		m.err = msg.err
		return m, nil
	}

	switch m.state {
	case anonStateInput:
		return m.updateInput(msg)
	case anonStateConfirm:
		return m.updateConfirm(msg)
	case anonStateRunning:
		return m, nil // Don't process input while the batch is running
	case anonStateDone:
		return m.updateDone(msg)
	}
	return m, nil
}

func (m *anonymizeModel) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, func() tea.Msg { return backToMenuMsg{} }
		case "enter":
			dir := strings.TrimSpace(m.input.Value())
			if !fsutil.CheckDir(dir) {
				m.inputErr = i18n.T("anonymize.error_bad_dir", dir)
				return m, nil
			}
			m.dir = dir
			m.outDir = filepath.Join(dir, "anonymized")
			m.inputErr = ""
			m.state = anonStateConfirm
			return m, nil
		default:
			m.inputErr = ""
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *anonymizeModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.state = anonStateInput
			return m, textinput.Blink
		case "enter":
			m.state = anonStateRunning
			m.done, m.total, m.failed, m.lastPath = 0, 0, 0, ""
			return m, m.startAnonymize()
		}
	}
	return m, nil
}

func (m *anonymizeModel) updateDone(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			// Start over with a fresh directory.
			fresh := newAnonymizeModel()
			return &fresh, fresh.Init()
		case "q", "esc":
			return m, func() tea.Msg { return backToMenuMsg{} }
		}
	}
	return m, nil
}

// startAnonymize launches the batch in the background and returns a command
// that waits for its first event. Progress flows through a channel so the
// view can render counts while workers are busy.
func (m *anonymizeModel) startAnonymize() tea.Cmd {
	events := make(chan tea.Msg, 64)
	m.events = events
	dir := m.dir
	outDir := m.outDir

	go func() {
		res, err := dicom.AnonymizeDir(context.Background(), dir, dicom.BatchOptions{
			Progress: func(done, total int, path string, err error) {
				events <- anonProgressMsg{done: done, total: total, path: path, err: err}
			},
		})
		if err == nil {
			_ = db.LogAction("ANONYMIZE_DICOM", fmt.Sprintf("%s: %d/%d into %s", dir, res.Succeeded, res.Total, outDir))
		}
		events <- anonDoneMsg{res: res, err: err}
		close(events)
	}()

	return m.waitForEvent()
}

// waitForEvent returns a command that delivers the next batch event.
func (m *anonymizeModel) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg { return <-events }
}

func (m *anonymizeModel) View() string {
	var b strings.Builder

	if m.err != nil {
		b.WriteString(titleStyle.Render("💥 " + i18n.T("anonymize.failed_title")))
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString(helpStyle.Render("\n\n" + i18n.T("anonymize.help_done")))
		return b.String()
	}

	switch m.state {
	case anonStateInput:
		b.WriteString(titleStyle.Render("🕵 " + i18n.T("anonymize.title")))
		b.WriteString("\n\n")
		b.WriteString(i18n.T("anonymize.prompt") + "\n\n")
		b.WriteString(m.input.View())
		if m.inputErr != "" {
			b.WriteString("\n\n" + errorStyle.Render(m.inputErr))
		}
		b.WriteString(helpStyle.Render("\n\n" + i18n.T("anonymize.help_input")))

	case anonStateConfirm:
		b.WriteString(titleStyle.Render("🕵 " + i18n.T("anonymize.title")))
		b.WriteString("\n\n")
		labels := []struct {
			label string
			value string
		}{
			{i18n.T("anonymize.source"), m.dir},
			{i18n.T("anonymize.output"), m.outDir},
		}
		maxLabelLen := 0
		for _, item := range labels {
			if len(item.label) > maxLabelLen {
				maxLabelLen = len(item.label)
			}
		}
		for _, item := range labels {
			b.WriteString(formatLabelPadding(item.label, item.value, maxLabelLen) + "\n")
		}
		b.WriteString("\n" + specialStyle.Render(i18n.T("anonymize.originals_note")))
		b.WriteString(helpStyle.Render("\n\n" + i18n.T("anonymize.help_confirm")))

	case anonStateRunning:
		b.WriteString(titleStyle.Render("🕵 " + i18n.T("anonymize.running_title")))
		b.WriteString("\n\n")
		b.WriteString(i18n.T("anonymize.progress", m.done, m.total))
		if m.failed > 0 {
			b.WriteString("  " + specialStyle.Render(i18n.T("anonymize.failed_count", m.failed)))
		}
		if m.lastPath != "" {
			last := m.lastPath
			if len(last) > 70 {
				last = "..." + last[len(last)-67:]
			}
			b.WriteString("\n" + helpStyle.Render(last))
		}

	case anonStateDone:
		b.WriteString(titleStyle.Render("✅ " + i18n.T("anonymize.done_title")))
		b.WriteString("\n\n")
		if m.result != nil {
			b.WriteString(i18n.T("anonymize.summary", m.result.Succeeded, m.result.Total, m.outDir))
			if m.result.Failed > 0 {
				b.WriteString("\n" + specialStyle.Render(i18n.T("anonymize.failed_count", m.result.Failed)))
			}
		}
		b.WriteString(helpStyle.Render("\n\n" + i18n.T("anonymize.help_done")))
	}

	return b.String()
}
