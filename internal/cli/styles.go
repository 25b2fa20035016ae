package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/vecsync-mcp/pkg/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("245"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("78"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)
)

// stateStyle colours a sync state
func stateStyle(s types.SyncState) lipgloss.Style {
	switch s {
	case types.StateInSync:
		return successStyle
	case types.StateSyncError:
		return errorStyle
	case types.StatePartialSync, types.StateOutOfSync:
		return warnStyle
	case types.StateSyncing:
		return selectedStyle
	default:
		return dimStyle
	}
}
