// ABOUTME: Async commands and messages bridging the controller and the bubbletea loop
// ABOUTME: Controller calls block on HTTP, so they run as tea.Cmds off the update loop
package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/textback/models"
	"github.com/harperreed/textback/setup"
)

// updateMsg carries a controller snapshot into Update.
type updateMsg setup.Event

// updatesClosedMsg is sent once the controller has shut down.
type updatesClosedMsg struct{}

// actionResultMsg reports a finished controller call.
type actionResultMsg struct {
	status string
	err    error
}

// waitForUpdate blocks on the controller's update channel for one snapshot.
func waitForUpdate(updates <-chan setup.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(ev)
	}
}

func (m Model) refreshCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return actionResultMsg{err: ctrl.Refresh(ctx)}
	}
}

func (m Model) connectCmd(provider models.Provider) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return actionResultMsg{err: ctrl.ConnectProvider(ctx, provider)}
	}
}

func (m Model) setupCalendlyCmd(token string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		err := ctrl.SetupCalendly(ctx, token)
		status := ""
		if connected(err) && !ctrl.Snapshot().Dialog.Open() {
			status = "✓ Calendly connected"
		}
		return actionResultMsg{status: status, err: err}
	}
}

func (m Model) confirmCmd(provider models.Provider, optionID string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		err := ctrl.Confirm(ctx, optionID)
		status := ""
		if connected(err) && !ctrl.Snapshot().Dialog.Open() {
			status = "✓ " + provider.DisplayName() + " connected"
		}
		return actionResultMsg{status: status, err: err}
	}
}

func (m Model) closeDialogCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.CloseDialog()
		return actionResultMsg{}
	}
}

func (m Model) removeCmd(id string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		err := ctrl.RemoveIntegration(ctx, id)
		if err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{status: "✓ Integration removed"}
	}
}

// connected reports whether a finalize call succeeded. A failed refresh after
// a successful finalize still counts.
func connected(err error) bool {
	return err == nil || errors.Is(err, setup.ErrRefreshFailed)
}
