// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// package tui provides the interactive workbench for Gobro.
// This file, tui.go, is the main entry point for the TUI, containing the
// top-level model that acts as a router to all other sub-views.
package tui // import "github.com/bnrobert/gobro/internal/tui"

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"

	"github.com/bnrobert/gobro/internal/config"
	"github.com/bnrobert/gobro/internal/db"
	"github.com/bnrobert/gobro/internal/i18n"
	"github.com/bnrobert/gobro/internal/logging"
	"github.com/bnrobert/gobro/internal/model"
)

// viewState represents which part of the UI is currently active.
type viewState int

const (
	// menuView is the main dashboard and navigation menu.
	menuView viewState = iota
	dicomBrowserView
	anonymizeView
	pubmedStatsView
	auditLogView
	languageView
)

// backToMenuMsg is sent by sub-views to return to the main menu.
type backToMenuMsg struct{}

// dashboardDataMsg is a message containing the data for the main menu dashboard.
type dashboardDataMsg struct {
	data dashboardData
}

// languageChangedMsg is a message to signal that the language has changed and the UI should be re-initialized.
type languageChangedMsg struct{}

// dashboardData holds the summary information for the main menu view.
type dashboardData struct {
	dicomCount        int
	modalityBreakdown string
	articleCount      int
	topJournal        string
	topJournalCount   int
	recentLogs        []model.AuditLogEntry
	err               error
}

// mainModel is the top-level model for the TUI. It acts as a state machine
// and router, delegating updates and view rendering to the currently active sub-model.
type mainModel struct {
	state      viewState
	menu       menuModel
	browser    *dicomBrowserModel
	anonymizer *anonymizeModel
	stats      *pubmedStatsModel
	auditLog   *auditLogModel
	language   languageModel
	dashboard  dashboardData
	width      int
	height     int
	err        error
}

// menuModel holds the state for the main menu.
type menuModel struct {
	choices []string // The menu items to show.
	cursor  int      // Which menu item our cursor is pointing at.
}

// languageModel holds the state for the language selection menu.
type languageModel struct {
	choices     map[string]string // map of lang code to display name
	orderedKeys []string          // for stable iteration
	cursor      int
}

// initialModel creates the starting state of the TUI, beginning at the main menu.
func initialModel() mainModel {
	return mainModel{
		state: menuView,
		menu: menuModel{
			choices: []string{
				i18n.T("menu.browse_dicom"),
				i18n.T("menu.anonymize_dicom"),
				i18n.T("menu.bibliography_stats"),
				i18n.T("menu.view_audit_log"),
				i18n.T("menu.language"),
			},
		},
	}
}

// Init is the first function that will be called by the Bubble Tea runtime.
// It kicks off the initial command to load data for the dashboard.
func (m mainModel) Init() tea.Cmd {
	return refreshDashboardCmd()
}

// Update is the main message loop. It handles all events (like key presses and
// window size changes) and delegates them to the active sub-model.
func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings that work everywhere.
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case dashboardDataMsg:
		m.dashboard = msg.data
		if msg.data.err != nil {
			m.err = msg.data.err
		}
		return m, nil

	case languageChangedMsg:
		// The language has changed. Re-initialize the entire model to apply new translations everywhere.
		newModel := initialModel()
		// Preserve the current window dimensions so the layout remains correct.
		newModel.width = m.width
		newModel.height = m.height
		return newModel, newModel.Init()
	}

	// Delegate updates to the currently active view.
	switch m.state {
	case dicomBrowserView:
		// If we received a "back" message, switch the state.
		if _, ok := msg.(backToMenuMsg); ok {
			m.state = menuView
			return m, refreshDashboardCmd()
		}
		var newBrowserModel tea.Model
		newBrowserModel, cmd = m.browser.Update(msg)
		m.browser = newBrowserModel.(*dicomBrowserModel)

	case anonymizeView:
		if _, ok := msg.(backToMenuMsg); ok {
			m.state = menuView
			return m, refreshDashboardCmd()
		}
		var newAnonModel tea.Model
		newAnonModel, cmd = m.anonymizer.Update(msg)
		m.anonymizer = newAnonModel.(*anonymizeModel)

	case pubmedStatsView:
		if _, ok := msg.(backToMenuMsg); ok {
			m.state = menuView
			return m, refreshDashboardCmd()
		}
		var newStatsModel tea.Model
		newStatsModel, cmd = m.stats.Update(msg)
		m.stats = newStatsModel.(*pubmedStatsModel)

	case auditLogView:
		if _, ok := msg.(backToMenuMsg); ok {
			m.state = menuView
			return m, refreshDashboardCmd()
		}
		var newAuditLogModel tea.Model
		newAuditLogModel, cmd = m.auditLog.Update(msg)
		m.auditLog = newAuditLogModel.(*auditLogModel)

	case languageView:
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "q", "esc":
				m.state = menuView
				return m, refreshDashboardCmd()
			case "up", "k":
				if m.language.cursor > 0 {
					m.language.cursor--
				}
			case "down", "j":
				if m.language.cursor < len(m.language.orderedKeys)-1 {
					m.language.cursor++
				}
			case "enter":
				langCode := m.language.orderedKeys[m.language.cursor]
				i18n.SetLang(langCode)
				if err := saveLanguage(langCode); err != nil {
					m.err = fmt.Errorf("failed to save config: %w", err)
				}

				// Signal that the language has changed so the entire UI can be re-initialized.
				return m, func() tea.Msg { return languageChangedMsg{} }
			}
		}
		var newLangModel tea.Model
		newLangModel, cmd = m.language.Update(msg)
		m.language = newLangModel.(languageModel)

	default: // menuView
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "q":
				return m, tea.Quit
			case "up", "k":
				if m.menu.cursor > 0 {
					m.menu.cursor--
				}
			case "down", "j":
				if m.menu.cursor < len(m.menu.choices)-1 {
					m.menu.cursor++
				}
			case "enter":
				switch m.menu.cursor {
				case 0: // Browse DICOM catalog
					m.state = dicomBrowserView
					newModel := newDicomBrowserModel()
					m.browser = &newModel
					// Manually update the new sub-model with the current window size
					// to ensure the table is initialized correctly.
					var updatedModel tea.Model
					updatedModel, cmd = m.browser.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
					m.browser = updatedModel.(*dicomBrowserModel)
					return m, cmd
				case 1: // Anonymize a directory
					m.state = anonymizeView
					newModel := newAnonymizeModel()
					m.anonymizer = &newModel
					return m, m.anonymizer.Init()
				case 2: // Bibliography statistics
					m.state = pubmedStatsView
					newModel := newPubmedStatsModel()
					m.stats = &newModel
					var updatedModel tea.Model
					updatedModel, cmd = m.stats.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
					m.stats = updatedModel.(*pubmedStatsModel)
					return m, cmd
				case 3: // View audit log
					m.state = auditLogView
					newModel := newAuditLogModel()
					m.auditLog = &newModel
					var updatedModel tea.Model
					updatedModel, cmd = m.auditLog.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
					m.auditLog = updatedModel.(*auditLogModel)
					return m, cmd
				case 4: // Language
					m.state = languageView
					m.language = newLanguageModel()
					return m, nil
				}
			case "L":
				// "L" opens the language menu from anywhere on the dashboard.
				m.state = languageView
				m.language = newLanguageModel()
				return m, nil
			}
		}
	}

	return m, cmd
}

// View renders the TUI. It's called after every Update and delegates rendering
// to the currently active sub-model.
func (m mainModel) View() string {
	if m.err != nil {
		// A simple error view
		errorViewStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(1, 2)
		return errorViewStyle.Render(fmt.Sprintf("An error occurred: %v", m.err))
	}

	// Delegate rendering to the currently active view.
	switch m.state {
	case dicomBrowserView:
		return m.browser.View()
	case anonymizeView:
		return m.anonymizer.View()
	case pubmedStatsView:
		return m.stats.View()
	case auditLogView:
		return m.auditLog.View()
	case languageView:
		return m.language.View()
	default: // menuView
		return m.menu.View(m.dashboard, m.width, m.height)
	}
}

// formatLabelPadding formats a label/value pair so values line up in a column.
func formatLabelPadding(label, value string, labelWidth int) string {
	if labelWidth <= 0 {
		return label + " " + value
	}
	if len(label) >= labelWidth {
		return label + " " + value
	}
	return label + strings.Repeat(" ", labelWidth-len(label)) + " " + value
}

// View renders the main menu and dashboard.
func (m menuModel) View(data dashboardData, width, height int) string {
	// Title (i18n)
	title := mainTitleStyle.Render("🩺 " + i18n.T("dashboard.title"))
	subTitle := helpStyle.Render(i18n.T("dashboard.subtitle"))
	header := lipgloss.JoinVertical(lipgloss.Left, title, subTitle)

	// --- Panes ---
	paneTitleStyle := lipgloss.NewStyle().Bold(true)

	// Menu List (Left Pane)
	var menuItems []string
	menuItems = append(menuItems, paneTitleStyle.Render(i18n.T("menu.navigation")), "") // Add title and a blank line for spacing
	for i, choice := range m.choices {
		if m.cursor == i {
			menuItems = append(menuItems, selectedItemStyle.Render("▸ "+choice))
		} else {
			menuItems = append(menuItems, itemStyle.Render("  "+choice))
		}
	}
	menuContent := lipgloss.JoinVertical(lipgloss.Left, menuItems...)

	// Dashboard (Right Pane)
	var dashboardItems []string
	dashboardItems = append(dashboardItems, paneTitleStyle.Render(i18n.T("dashboard.catalog_status")), "")
	dashboardItems = append(dashboardItems, i18n.T("dashboard.indexed_files", data.dicomCount))

	// Align the label/value pairs under the counters.
	statusItems := []struct {
		label string
		value string
	}{
		{i18n.T("dashboard.by_modality"), data.modalityBreakdown},
	}
	if data.modalityBreakdown == "" {
		statusItems[0].value = helpStyle.Render(i18n.T("dashboard.none"))
	}

	maxLabelLen := 0
	for _, item := range statusItems {
		if len(item.label) > maxLabelLen {
			maxLabelLen = len(item.label)
		}
	}
	for _, item := range statusItems {
		dashboardItems = append(dashboardItems, formatLabelPadding(item.label, item.value, maxLabelLen))
	}

	// Bibliography status
	dashboardItems = append(dashboardItems, "", "", paneTitleStyle.Render(i18n.T("dashboard.bibliography_status")), "")
	dashboardItems = append(dashboardItems, i18n.T("dashboard.imported_articles", data.articleCount))
	if data.topJournal != "" {
		dashboardItems = append(dashboardItems, i18n.T("dashboard.top_journal", data.topJournal, data.topJournalCount))
	}

	// Recent Activity
	dashboardItems = append(dashboardItems, "", "", paneTitleStyle.Render(i18n.T("dashboard.recent_activity")), "")

	// --- Layout ---
	paneStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorSubtle).
		Padding(1, 2)

	// Calculate height for the panes to fill the screen
	headerHeight := lipgloss.Height(header)
	footerHeight := 1
	paneHeight := height - headerHeight - footerHeight - 2 // -2 for newlines around mainArea

	menuWidth := 38
	dashboardWidth := width - 4 - menuWidth - 2

	if len(data.recentLogs) == 0 {
		dashboardItems = append(dashboardItems, helpStyle.Render(i18n.T("dashboard.no_recent_activity")))
	} else {
		for _, entry := range data.recentLogs {
			ts := entry.Timestamp
			if len(ts) >= 16 {
				ts = ts[5:16] // Format as MM-DD HH:MM
			}

			// Calculate available space inside the pane for the log line content.
			innerDashboardWidth := dashboardWidth - 4 - 2
			availableWidth := innerDashboardWidth - len(ts) - 1 // Subtract timestamp and a space

			styledAction := auditActionStyle(entry.Action).Render(entry.Action)
			actionLen := len(entry.Action)

			// Calculate the remaining space for the details string.
			detailsWidth := availableWidth - actionLen - 1 // -1 for space after action
			if detailsWidth < 10 {
				detailsWidth = 10 // Ensure we show at least a little detail.
			}

			// Gracefully truncate the details if they are too long.
			details := entry.Details
			if len(details) > detailsWidth {
				details = details[:detailsWidth-3] + "..."
			}

			// Use lipgloss.JoinHorizontal to correctly lay out the styled and unstyled parts.
			logLine := lipgloss.JoinHorizontal(lipgloss.Left,
				helpStyle.Render(ts), " ", styledAction, " ", helpStyle.Render(details))

			dashboardItems = append(dashboardItems, logLine)
		}
	}
	dashboardContent := lipgloss.JoinVertical(lipgloss.Left, dashboardItems...)

	leftPane := paneStyle.Width(menuWidth).Height(paneHeight).Render(menuContent)
	rightPane := paneStyle.Width(dashboardWidth).Height(paneHeight).MarginLeft(2).Render(dashboardContent)

	mainArea := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	// Styled footer/help line
	footerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Background(lipgloss.Color("236")).Padding(0, 1).Italic(true)
	left := i18n.T("dashboard.footer")
	footer := footerStyle.Render(AlignFooter(left, "", width))

	return lipgloss.JoinVertical(lipgloss.Top, header, mainArea, footer)
}

// newLanguageModel creates a new model for the language selection view.
func newLanguageModel() languageModel {
	// Get the dynamically discovered locales from the i18n package.
	choices := i18n.GetAvailableLocales()

	// Create a sorted list of keys for stable iteration and display order.
	keys := make([]string, 0, len(choices))
	for k := range choices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return languageModel{
		choices:     choices,
		orderedKeys: keys,
		cursor:      0,
	}
}

// Init for languageModel.
func (m languageModel) Init() tea.Cmd { return nil }

// Update for languageModel.
func (m languageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { return m, nil }

// View for languageModel.
func (m languageModel) View() string {
	title := mainTitleStyle.Render("🌐 " + i18n.T("menu.language"))

	var listItems []string
	listItems = append(listItems, titleStyle.Render(i18n.T("language.select")), "")

	for i, langCode := range m.orderedKeys {
		displayName := m.choices[langCode]
		line := "  " + displayName
		if m.cursor == i {
			line = "▸ " + displayName
			listItems = append(listItems, selectedItemStyle.Render(line))
		} else {
			listItems = append(listItems, itemStyle.Render(line))
		}
	}

	paneStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSubtle).Padding(1, 2)
	listPane := paneStyle.Width(60).Render(lipgloss.JoinVertical(lipgloss.Left, listItems...))

	footerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Background(lipgloss.Color("236")).Padding(0, 1).Italic(true)
	helpLine := footerStyle.Render(AlignFooter(i18n.T("language.help"), "", 60))

	return lipgloss.JoinVertical(lipgloss.Left, title, "", listPane, "", helpLine)
}

// saveLanguage persists the chosen language to the user config file while
// preserving whatever else is already configured there. It is a package
// variable so tests can stub the filesystem write.
var saveLanguage = func(code string) error {
	v := viper.New()
	v.SetConfigName("gobro")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "gobro"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	var c config.Config
	if err := v.Unmarshal(&c); err != nil {
		return err
	}
	c.Language = code
	return config.WriteConfigFile(&c, false)
}

// Run is the main entrypoint for the TUI. It initializes and runs the Bubble Tea program.
func Run() {
	if _, err := tea.NewProgram(initialModel()).Run(); err != nil {
		logging.Errorf("TUI run error: %v", err)
		os.Exit(1)
	}
}

// refreshDashboardCmd is a tea.Cmd that fetches summary data for the main menu.
func refreshDashboardCmd() tea.Cmd {
	return func() tea.Msg {
		data := dashboardData{}

		var err error
		if data.dicomCount, err = db.CountDicomFiles(); err != nil {
			return dashboardDataMsg{data: dashboardData{err: err}}
		}
		modalities, err := db.CountDicomFilesByModality()
		if err != nil {
			return dashboardDataMsg{data: dashboardData{err: err}}
		}
		if data.articleCount, err = db.CountArticles(); err != nil {
			return dashboardDataMsg{data: dashboardData{err: err}}
		}
		if tops, err := db.TopJournals(1); err == nil && len(tops) > 0 {
			data.topJournal = tops[0].Name
			data.topJournalCount = tops[0].Count
		}
		logs, err := db.GetAllAuditLogEntries()
		if err != nil {
			return dashboardDataMsg{data: dashboardData{err: err}}
		}
		if len(logs) > 5 {
			logs = logs[:5]
		}
		data.recentLogs = logs

		// Format the modality breakdown. Files whose header carried no
		// modality show up as UNK and get flagged.
		var sortedModalities []string
		for modality := range modalities {
			sortedModalities = append(sortedModalities, modality)
		}
		sort.Strings(sortedModalities)
		var parts []string
		for _, modality := range sortedModalities {
			count := modalities[modality]
			style := successStyle
			if modality == "UNK" {
				style = specialStyle
			}
			parts = append(parts, style.Render(fmt.Sprintf("%s: %d", modality, count)))
		}
		data.modalityBreakdown = strings.Join(parts, ", ")

		return dashboardDataMsg{data: data}
	}
}
