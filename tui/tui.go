// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Interactive calendar integrations page with the connection dialog
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/textback/models"
	"github.com/harperreed/textback/setup"
)

// Controller is the page logic the TUI renders and drives.
type Controller interface {
	ConnectProvider(ctx context.Context, provider models.Provider) error
	SetupCalendly(ctx context.Context, token string) error
	Confirm(ctx context.Context, optionID string) error
	CloseDialog()
	Shutdown()
	Refresh(ctx context.Context) error
	RemoveIntegration(ctx context.Context, id string) error
	Snapshot() setup.Event
	Integrations() []models.CalendarIntegration
	Updates() <-chan setup.Event
	CanConfirm(selection string) bool
	ClearError()
}

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewConfirmDelete
)

// Model is the main bubbletea model
type Model struct {
	ctrl     Controller
	ctx      context.Context
	viewMode ViewMode

	snapshot     setup.Event
	integrations []models.CalendarIntegration

	table      table.Model
	tokenInput textinput.Model
	spinner    spinner.Model

	// Selector cursor within the offered calendars
	choice int

	// Delete confirmation state
	deleteID string

	// Page-level activity outside the dialog
	loading bool
	status  string

	width  int
	height int
}

// NewModel creates a new TUI model
func NewModel(ctrl Controller) Model {
	ti := textinput.New()
	ti.Placeholder = "Calendly personal access token"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 1024
	ti.Width = 48

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		ctrl:       ctrl,
		ctx:        context.Background(),
		viewMode:   ViewList,
		table:      newIntegrationsTable(),
		tokenInput: ti,
		spinner:    sp,
		loading:    true,
		width:      80,
		height:     24,
	}
	m.applySnapshot(ctrl.Snapshot())
	m.syncIntegrations()
	return m
}

// Run starts the full-screen program and shuts the controller down on exit.
func Run(ctrl Controller) error {
	defer ctrl.Shutdown()
	_, err := tea.NewProgram(NewModel(ctrl), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForUpdate(m.ctrl.Updates()),
		m.refreshCmd(),
		m.spinner.Tick,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(3, m.height-12))
		return m, nil

	case updateMsg:
		m.applySnapshot(setup.Event(msg))
		return m, waitForUpdate(m.ctrl.Updates())

	case updatesClosedMsg:
		return m, nil

	case actionResultMsg:
		m.loading = false
		m.syncIntegrations()
		if msg.status != "" {
			m.status = msg.status
		}
		m.applySnapshot(m.ctrl.Snapshot())
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.snapshot.Dialog.Open() {
		return m.renderDialogView()
	}
	switch m.viewMode {
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	default:
		return m.renderListView()
	}
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	if m.snapshot.Dialog.Open() {
		return m.handleDialogKeys(msg)
	}

	switch m.viewMode {
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	default:
		return m.handleListKeys(msg)
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.ctrl.Shutdown()
	return m, tea.Quit
}

// applySnapshot adopts controller state, resetting dialog widgets when the
// dialog moves to a new step.
func (m *Model) applySnapshot(ev setup.Event) {
	prev := m.snapshot.Dialog
	m.snapshot = ev

	if ev.Dialog.AttemptID != prev.AttemptID || ev.Dialog.Step != prev.Step {
		m.choice = 0
		if ev.Dialog.Step == setup.StepInitial {
			m.tokenInput.Reset()
			m.tokenInput.Focus()
		} else {
			m.tokenInput.Blur()
		}
	}
	if m.choice >= len(ev.Dialog.Calendars) {
		m.choice = 0
	}
	if !ev.Dialog.Open() {
		m.syncIntegrations()
	}
}

func (m *Model) syncIntegrations() {
	m.integrations = m.ctrl.Integrations()
	m.table.SetRows(integrationRows(m.integrations))
	if m.table.Cursor() >= len(m.integrations) && len(m.integrations) > 0 {
		m.table.SetCursor(len(m.integrations) - 1)
	}
}

func (m Model) selectedIntegration() (models.CalendarIntegration, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.integrations) {
		return models.CalendarIntegration{}, false
	}
	return m.integrations[idx], true
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))
)
