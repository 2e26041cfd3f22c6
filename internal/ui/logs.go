package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/beacon/internal/api"
)

// contentBoxHeight returns the height left for the tab content box.
func (m Model) contentBoxHeight() int {
	used := headerHeight + commandHeight + statCardHeight + tabBarHeight
	if m.snapshot.LastError != "" {
		used++
	}
	return max(m.height-used, minBoxHeight)
}

// updateLogViewport resizes the log viewport and refreshes its content.
func (m *Model) updateLogViewport() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.logViewport.Width = max(m.width-2, 1)
	m.logViewport.Height = max(m.contentBoxHeight()-2, 1)
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
	m.logViewport.SetContent(m.renderLogLines(m.logViewport.Width))
}

// renderLogLines formats the request log, newest first.
func (m Model) renderLogLines(width int) string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.FocusBg)

	if len(m.snapshot.Logs) == 0 {
		return styles.MutedText.Background(bg.Color()).Render(emptyLogsText)
	}

	showAgent := width >= LayoutUserAgentWidth
	const timeW, methodW, statusW, durW, clientW = 10, 7, 3, 8, 15
	fixed := timeW + methodW + statusW + durW + clientW + 5
	agentW := 0
	if showAgent {
		agentW = 30
		fixed += agentW + 1
	}
	pathW := max(width-fixed, 8)

	lines := make([]string, 0, len(m.snapshot.Logs))
	for _, e := range m.snapshot.Logs {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(m.theme.StatusClassColor(api.ClassifyStatus(e.Status)))).
			Bold(true)
		parts := []string{
			bg.Render(padRight(truncate(e.Timestamp, timeW), timeW), styles.MutedText),
			bg.Render(padRight(orDash(e.Method), methodW), styles.AccentText),
			bg.Render(padRight(truncate(e.Path, pathW), pathW), styles.Text),
			bg.Render(padLeft(fmt.Sprintf("%d", e.Status), statusW), statusStyle),
			bg.Render(padLeft(fmt.Sprintf("%dms", e.ResponseTime), durW), styles.MutedText),
			bg.Render(padRight(truncate(e.ClientIP, clientW), clientW), styles.FaintText),
		}
		if showAgent {
			parts = append(parts, bg.Render(truncate(e.UserAgent, agentW), styles.FaintText))
		}
		lines = append(lines, strings.Join(parts, bg.Space()))
	}
	return strings.Join(lines, "\n")
}

// renderLogs renders the Logs tab.
func (m Model) renderLogs(width, height int) string {
	title := fmt.Sprintf("Request Log (%d)", len(m.snapshot.Logs))
	return m.renderTitledBox(title, m.logViewport.View(), width, height, true)
}
