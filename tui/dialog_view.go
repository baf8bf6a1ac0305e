// ABOUTME: Connection dialog view for TUI
// ABOUTME: Renders authorization waiting, Calendly token entry, and the calendar selector
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/textback/setup"
)

var (
	dialogBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("170")).
			Padding(1, 2).
			Width(64)

	dialogTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("170"))

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("170")).
				Bold(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Underline(true)
)

func (m Model) renderDialogView() string {
	d := m.snapshot.Dialog

	var s strings.Builder
	s.WriteString(dialogTitleStyle.Render("Connect " + d.Provider.DisplayName()))
	s.WriteString("\n\n")

	switch d.Step {
	case setup.StepAwaitingAuthorization:
		s.WriteString("Finish signing in with your browser.\n")
		if m.snapshot.AuthorizationURL != "" {
			s.WriteString("If it did not open, visit:\n")
			s.WriteString(urlStyle.Render(m.snapshot.AuthorizationURL))
			s.WriteString("\n")
		}
		s.WriteString("\n")
		s.WriteString(m.spinner.View() + " Waiting for authorization...")

	case setup.StepInitial:
		s.WriteString("Paste a Calendly personal access token.\n")
		s.WriteString(mutedStyle.Render("Calendly → Integrations → API & Webhooks"))
		s.WriteString("\n\n")
		s.WriteString(m.tokenInput.View())
		if m.snapshot.Busy {
			s.WriteString("\n\n" + m.spinner.View() + " Checking token...")
		}

	case setup.StepSelectingCalendar:
		s.WriteString(m.renderSelector(d))
		if m.snapshot.Busy {
			s.WriteString("\n" + m.spinner.View() + " Saving selection...")
		}
	}

	if m.snapshot.Err != "" {
		s.WriteString("\n\n" + errorStyle.Render(m.snapshot.Err))
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(dialogHelp(d.Step)))

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		dialogBoxStyle.Render(s.String()),
	)
}

func (m Model) renderSelector(d setup.Dialog) string {
	var s strings.Builder
	if d.Provider.UsesOAuthPopup() {
		s.WriteString("Choose the calendar TextBack should sync:\n\n")
	} else {
		s.WriteString("Choose the event type used for bookings:\n\n")
	}
	for i, opt := range d.Calendars {
		line := opt.Name
		if opt.Description != "" {
			line = fmt.Sprintf("%s (%s)", opt.Name, opt.Description)
		}
		if i == m.choice {
			s.WriteString(selectedOptionStyle.Render("▶ " + line))
		} else {
			s.WriteString("  " + line)
		}
		s.WriteString("\n")
	}
	return s.String()
}

func dialogHelp(step setup.Step) string {
	switch step {
	case setup.StepInitial:
		return "enter: connect • esc: cancel"
	case setup.StepSelectingCalendar:
		return "↑/↓: choose • enter: confirm • esc: cancel"
	}
	return "esc: cancel"
}

func (m Model) handleDialogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		return m, m.closeDialogCmd()
	}

	d := m.snapshot.Dialog
	switch d.Step {
	case setup.StepInitial:
		if msg.String() == "enter" {
			if m.snapshot.Busy {
				return m, nil
			}
			return m, m.setupCalendlyCmd(m.tokenInput.Value())
		}
		var cmd tea.Cmd
		m.tokenInput, cmd = m.tokenInput.Update(msg)
		return m, cmd

	case setup.StepSelectingCalendar:
		switch msg.String() {
		case "up", "k":
			if m.choice > 0 {
				m.choice--
			}
		case "down", "j":
			if m.choice < len(d.Calendars)-1 {
				m.choice++
			}
		case "enter":
			if m.snapshot.Busy || m.choice >= len(d.Calendars) {
				return m, nil
			}
			id := d.Calendars[m.choice].ID
			if !m.ctrl.CanConfirm(id) {
				return m, nil
			}
			return m, m.confirmCmd(d.Provider, id)
		}
	}
	return m, nil
}
