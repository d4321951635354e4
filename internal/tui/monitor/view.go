package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/marcus/offsync/internal/engine"
)

// MinWidth is the minimum terminal width for proper display.
const MinWidth = 40

func (m Model) renderView() string {
	if m.Width > 0 && m.Width < MinWidth {
		return subtleStyle.Render("terminal too narrow")
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderQueuePanel())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	conn := offlineStyle.Render("● offline")
	if m.Online {
		conn = onlineStyle.Render("● online")
	}

	var sync string
	switch m.SyncState.Phase {
	case engine.PhaseSyncing:
		sync = fmt.Sprintf("%s syncing %d%%", m.Spinner.View(), int(m.SyncState.Progress*100))
	case engine.PhaseCompleted:
		sync = onlineStyle.Render("synced")
	case engine.PhaseError:
		sync = offlineStyle.Render("sync error: " + m.SyncState.Message)
	default:
		sync = subtleStyle.Render("idle")
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("offsync"), "  ", conn, "  ", sync,
		"  ", subtleStyle.Render(fmt.Sprintf("%d optimistic pending", m.PendingUpdates)),
	)
}

func (m Model) renderQueuePanel() string {
	title := panelTitleStyle.Render(fmt.Sprintf(" Mutation Queue (%d) ", len(m.Mutations)))

	var rows []string
	if len(m.Mutations) == 0 {
		rows = append(rows, subtleStyle.Render("nothing queued"))
	}
	for _, mu := range m.Mutations {
		retries := ""
		if mu.RetryCount > 0 {
			retries = fmt.Sprintf(" retries=%d/%d", mu.RetryCount, mu.MaxRetries)
		}
		rows = append(rows, fmt.Sprintf("%s %-6s %-30s %s%s",
			timestampStyle.Render(mu.CreatedAt.Local().Format("15:04:05")),
			mu.Method,
			mu.Endpoint,
			statusStyle(mu.Status).Render(string(mu.Status)),
			subtleStyle.Render(retries),
		))
	}

	body := strings.Join(rows, "\n")
	width := m.Width - 4
	if width < MinWidth-4 {
		width = MinWidth - 4
	}
	return title + "\n" + panelStyle.Width(width).Render(body)
}

func (m Model) renderFooter() string {
	refreshed := ""
	if !m.LastRefresh.IsZero() {
		refreshed = "refreshed " + m.LastRefresh.Format("15:04:05") + "  "
	}
	return helpStyle.Render(refreshed + "r refresh · q quit")
}
