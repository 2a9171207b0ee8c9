// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnrobert/gobro/internal/db"
	"github.com/bnrobert/gobro/internal/i18n"
	"github.com/bnrobert/gobro/internal/model"
)

type dicomBrowserModel struct {
	table       table.Model
	allFiles    []model.DicomFile // Master list of cataloged files
	visible     []model.DicomFile // Files currently shown, parallel to the table rows
	filter      string
	filterCol   int // 0=all, 1=patient, 2=modality, 3=station, 4=path
	isFiltering bool
	statusMsg   string
	err         error
}

func newDicomBrowserModel() dicomBrowserModel {
	m := dicomBrowserModel{}
	files, err := db.GetAllDicomFiles()
	if err != nil {
		m.err = err
		return m
	}
	m.allFiles = files

	columns := []table.Column{
		{Title: i18n.T("dicom_browser.header.patient"), Width: 18},
		{Title: i18n.T("dicom_browser.header.modality"), Width: 10},
		{Title: i18n.T("dicom_browser.header.station"), Width: 14},
		{Title: i18n.T("dicom_browser.header.study_date"), Width: 12},
		{Title: i18n.T("dicom_browser.header.path"), Width: 50},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15), // Placeholder height
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorSubtle).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorWhite).
		Background(colorHighlight).
		Bold(false)
	t.SetStyles(s)

	m.table = t
	m.rebuildTableRows()
	return m
}

// rebuildTableRows filters the master list of files and populates the table.
func (m *dicomBrowserModel) rebuildTableRows() {
	var rows []table.Row
	m.visible = m.visible[:0]
	lowerFilter := strings.ToLower(m.filter)

	for _, f := range m.allFiles {
		match := false
		switch m.filterCol {
		case 0: // all
			match = strings.Contains(strings.ToLower(f.PatientID), lowerFilter) ||
				strings.Contains(strings.ToLower(f.PatientName), lowerFilter) ||
				strings.Contains(strings.ToLower(f.Modality), lowerFilter) ||
				strings.Contains(strings.ToLower(f.StationName), lowerFilter) ||
				strings.Contains(strings.ToLower(f.Path), lowerFilter)
		case 1:
			match = strings.Contains(strings.ToLower(f.PatientID), lowerFilter) ||
				strings.Contains(strings.ToLower(f.PatientName), lowerFilter)
		case 2:
			match = strings.Contains(strings.ToLower(f.Modality), lowerFilter)
		case 3:
			match = strings.Contains(strings.ToLower(f.StationName), lowerFilter)
		case 4:
			match = strings.Contains(strings.ToLower(f.Path), lowerFilter)
		}
		if m.filter != "" && !match {
			continue
		}

		m.visible = append(m.visible, f)
		rows = append(rows, table.Row{f.PatientID, f.Modality, f.StationName, f.StudyDate, f.Path})
	}
	m.table.SetRows(rows)

	// Go to the top of the table after filtering
	if m.isFiltering {
		m.table.GotoTop()
	}
}

func (m dicomBrowserModel) Init() tea.Cmd {
	return nil
}

func (m *dicomBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// header(3) + filter/help(3)
		m.table.SetHeight(msg.Height - 6)
		m.table.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		// If filtering, handle input.
		if m.isFiltering {
			switch msg.Type {
			case tea.KeyEsc:
				m.isFiltering = false
				m.filter = ""
				m.rebuildTableRows()
			case tea.KeyEnter:
				m.isFiltering = false
			case tea.KeyBackspace:
				if len(m.filter) > 0 {
					m.filter = m.filter[:len(m.filter)-1]
					m.rebuildTableRows()
				}
			case tea.KeyRunes:
				m.filter += string(msg.Runes)
				m.rebuildTableRows()
			case tea.KeyTab:
				m.filterCol = (m.filterCol + 1) % 5
				m.rebuildTableRows()
			case tea.KeyShiftTab:
				m.filterCol = (m.filterCol + 4) % 5
				m.rebuildTableRows()
			}
			return m, nil
		}

		// A fresh key press clears the transient clipboard confirmation.
		if msg.String() != "c" {
			m.statusMsg = ""
		}

		// Not filtering, handle commands.
		switch msg.String() {
		case "/":
			m.isFiltering = true
			m.filter = ""
			m.rebuildTableRows()
			return m, nil
		case "c":
			// Copy the selected file's path to the clipboard.
			if cursor := m.table.Cursor(); cursor >= 0 && cursor < len(m.visible) {
				path := m.visible[cursor].Path
				if err := clipboard.WriteAll(path); err == nil {
					m.statusMsg = i18n.T("dicom_browser.copied", path)
				}
			}
			return m, nil
		case "q", "esc":
			if m.filter != "" {
				m.filter = ""
				m.isFiltering = false
				m.rebuildTableRows()
				return m, nil
			}
			return m, func() tea.Msg { return backToMenuMsg{} }
		}
	}

	m.table, cmd = m.table.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *dicomBrowserModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error loading DICOM catalog: %v", m.err))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("🗂  "+i18n.T("dicom_browser.title")) + "\n\n")

	if len(m.table.Rows()) == 0 {
		b.WriteString(helpStyle.Render(i18n.T("dicom_browser.empty")))
		b.WriteString(m.footerView())
		return b.String()
	}

	b.WriteString(m.table.View())
	b.WriteString(m.footerView())
	return b.String()
}

func (m *dicomBrowserModel) footerView() string {
	var filterStatus string
	colNames := []string{
		i18n.T("all"),
		i18n.T("dicom_browser.header.patient"),
		i18n.T("dicom_browser.header.modality"),
		i18n.T("dicom_browser.header.station"),
		i18n.T("dicom_browser.header.path"),
	}
	if m.isFiltering {
		filterStatus = fmt.Sprintf("Filter [%s]: %s█ (tab to change column)", colNames[m.filterCol], m.filter)
	} else if m.filter != "" {
		filterStatus = fmt.Sprintf("Filter [%s]: %s (press 'esc' to clear)", colNames[m.filterCol], m.filter)
	} else {
		filterStatus = "Press / to filter..."
	}

	footer := helpStyle.Render(fmt.Sprintf("\n(↑/↓ to scroll, tab: column, c: copy path, q to quit) %s", filterStatus))
	if m.statusMsg != "" {
		footer += "\n" + statusMessageStyle.Render(m.statusMsg)
	}
	return footer
}
