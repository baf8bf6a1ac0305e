// ABOUTME: Disconnect confirmation view for TUI
// ABOUTME: Asks before removing a calendar integration from the backend
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

func (m Model) renderConfirmDeleteView() string {
	label := m.deleteID
	for _, integration := range m.integrations {
		if integration.ID == m.deleteID {
			label = fmt.Sprintf("%s (%s)", integration.Provider.DisplayName(), integration.ID)
			break
		}
	}

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Disconnect (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		warningStyle.Render("⚠  DISCONNECT CALENDAR  ⚠"),
		"",
		"Stop syncing this calendar with TextBack?",
		"\n"+label+"\n",
		"The assistant will no longer see or book this calendar.",
		"",
		buttons,
	)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		confirmBoxStyle.Render(content),
	)
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := m.deleteID
		m.deleteID = ""
		m.viewMode = ViewList
		m.status = ""
		m.loading = true
		return m, m.removeCmd(id)
	case "n", "N", "esc":
		m.deleteID = ""
		m.viewMode = ViewList
	}
	return m, nil
}
