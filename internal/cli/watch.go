package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dshills/vecsync-mcp/pkg/types"
)

const watchInterval = 250 * time.Millisecond

// watchModel follows one collection's sync until it reaches a terminal state
type watchModel struct {
	spinner    spinner.Model
	collection string
	fetch      func() (*types.SyncStatus, error)
	cancel     func() bool
	interval   time.Duration

	status     *types.SyncStatus
	err        error
	done       bool
	cancelling bool
}

type statusMsg struct {
	status *types.SyncStatus
	err    error
}

type pollMsg struct{}

func newWatchModel(collection string, fetch func() (*types.SyncStatus, error), cancel func() bool) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return watchModel{
		spinner:    sp,
		collection: collection,
		fetch:      fetch,
		cancel:     cancel,
		interval:   watchInterval,
	}
}

func (m watchModel) poll() tea.Cmd {
	return func() tea.Msg {
		st, err := m.fetch()
		return statusMsg{status: st, err: err}
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "c":
			if !m.cancelling && m.cancel != nil {
				m.cancelling = m.cancel()
			}
		}
		return m, nil
	case statusMsg:
		m.status, m.err = msg.status, msg.err
		if m.err != nil || (m.status != nil && m.status.State.Terminal()) {
			m.done = true
			return m, tea.Quit
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return pollMsg{} })
	case pollMsg:
		return m, m.poll()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("  Syncing "+m.collection) + "\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n")
		return b.String()
	}
	st := m.status
	if st == nil {
		b.WriteString(fmt.Sprintf("  %s waiting for status\n", m.spinner.View()))
		return b.String()
	}

	if m.done {
		style := stateStyle(st.State)
		b.WriteString(style.Render("  "+string(st.State)) + "\n")
		b.WriteString(fmt.Sprintf("  %d/%d files synced, %d failed, %d chunks\n",
			st.SyncedFiles, st.TotalFiles, st.FailedFiles, st.ChunkCount))
		if st.LastError != "" {
			b.WriteString(errorStyle.Render("  "+st.LastError) + "\n")
		}
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %s %s\n", m.spinner.View(), stateStyle(st.State).Render(string(st.State))))
	if st.Progress != nil {
		b.WriteString("  " + progressLine(st.Progress) + "\n")
	}
	b.WriteString("\n")
	help := "  c cancel after current file • q quit"
	if m.cancelling {
		help = "  cancelling… • q quit"
	}
	b.WriteString(dimStyle.Render(help) + "\n")
	return b.String()
}
