package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/textback/models"
)

func newIntegrationsTable() table.Model {
	columns := []table.Column{
		{Title: "Provider", Width: 16},
		{Title: "Primary", Width: 8},
		{Title: "Sync", Width: 8},
		{Title: "Last Sync", Width: 17},
		{Title: "Status", Width: 10},
		{Title: "ID", Width: 28},
	}

	return table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
}

func integrationRows(integrations []models.CalendarIntegration) []table.Row {
	rows := make([]table.Row, 0, len(integrations))
	for _, integration := range integrations {
		primary := ""
		if integration.IsPrimary {
			primary = "★"
		}
		rows = append(rows, table.Row{
			integration.Provider.DisplayName(),
			primary,
			integration.SyncLabel(),
			integration.LastSyncLabel(),
			integration.StatusLabel(),
			integration.ID,
		})
	}
	return rows
}

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("TEXTBACK · CALENDAR INTEGRATIONS"))
	s.WriteString("\n\n")

	switch {
	case len(m.integrations) > 0:
		s.WriteString(m.table.View())
	case m.loading:
		s.WriteString(m.spinner.View() + " Loading integrations...")
	default:
		s.WriteString(mutedStyle.Render("No calendars connected. Press g, o, or c to connect one."))
	}
	s.WriteString("\n\n")

	s.WriteString(m.renderStatusLine())

	s.WriteString(helpStyle.Render("g: google • o: outlook • c: calendly • d: disconnect • r: refresh • q: quit"))
	return s.String()
}

func (m Model) renderStatusLine() string {
	if m.snapshot.Busy {
		return m.spinner.View() + " Requesting authorization...\n"
	}
	if m.snapshot.Err != "" {
		return errorStyle.Render("Error: "+m.snapshot.Err) + "\n"
	}
	if m.status != "" {
		return statusStyle.Render(m.status) + "\n"
	}
	return ""
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()

	case "g":
		return m.startConnect(models.ProviderGoogle)
	case "o":
		return m.startConnect(models.ProviderOutlook)
	case "c":
		return m.startConnect(models.ProviderCalendly)

	case "r":
		m.ctrl.ClearError()
		m.status = ""
		m.loading = true
		return m, m.refreshCmd()

	case "d", "x":
		integration, ok := m.selectedIntegration()
		if !ok {
			return m, nil
		}
		m.deleteID = integration.ID
		m.viewMode = ViewConfirmDelete
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) startConnect(provider models.Provider) (tea.Model, tea.Cmd) {
	if m.snapshot.Busy {
		return m, nil
	}
	m.status = ""
	return m, m.connectCmd(provider)
}
