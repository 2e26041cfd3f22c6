package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/beacon/internal/state"
)

// renderConnect renders the disconnected/connecting screen.
func (m Model) renderConnect() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	used := headerHeight + commandHeight
	if banner := m.renderErrorBanner(); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
		used++
	}

	styles := m.theme.Styles()
	var body strings.Builder
	body.WriteString(styles.Text.Bold(true).Render("Connect to server"))
	body.WriteString("\n\n")
	body.WriteString(m.urlInput.View())
	body.WriteString("\n\n")

	if m.snapshot.Connectivity == state.Connecting || m.pending[actionConnect] {
		body.WriteString(styles.AccentText.Render(m.spinner.View()) + " " +
			styles.WarningText.Render("Connecting to "+truncate(m.urlInput.Value(), 40)+"..."))
	} else {
		body.WriteString(styles.MutedText.Render("Press enter to connect"))
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(min(60, max(m.width-4, 20))).
		Render(body.String())

	b.WriteString(lipgloss.Place(
		m.width,
		max(m.height-used, 1),
		lipgloss.Center,
		lipgloss.Center,
		modal,
		lipgloss.WithWhitespaceChars(" "),
	))
	return b.String()
}
