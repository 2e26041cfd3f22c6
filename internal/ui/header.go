package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/beacon/internal/api"
	"github.com/five82/beacon/internal/state"
)

// renderHeader renders the status bar: logo, connectivity, run state, server
// and last update time.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	conn := string(m.snapshot.Connectivity)
	parts := []string{
		bg.Render("beacon", styles.Logo),
		styles.BadgeStyle(conn).Render(strings.ToUpper(conn)),
	}

	if m.snapshot.IsConnected() {
		run := string(m.snapshot.RunState)
		parts = append(parts,
			bg.Render("Server:", styles.MutedText)+bg.Space()+
				styles.BadgeStyle(run).Render(strings.ToUpper(run)))
	}

	if url := m.serverURL(); url != "" && m.snapshot.Connectivity != state.Disconnected {
		limit := 48
		if compact {
			limit = 24
		}
		parts = append(parts, bg.Render(truncate(url, limit), styles.MutedText))
	}

	if ts := formatTimestamp(m.snapshot.LastUpdated, m.now); ts != "" && !compact {
		parts = append(parts, bg.Render(ts, styles.FaintText))
	}

	for _, action := range []string{actionToggle, actionAddRoute, actionClearLogs} {
		if m.pending[action] {
			parts = append(parts, bg.Render(m.spinner.View(), styles.AccentText)+bg.Space()+
				bg.Render(pendingLabel(action), styles.WarningText))
			break
		}
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

func pendingLabel(action string) string {
	switch action {
	case actionToggle:
		return "Switching server..."
	case actionAddRoute:
		return "Adding route..."
	case actionClearLogs:
		return "Clearing logs..."
	default:
		return "Working..."
	}
}

// renderErrorBanner renders the dismissible error line, or "" when there is none.
func (m Model) renderErrorBanner() string {
	msg := m.snapshot.LastError
	if msg == "" {
		return ""
	}
	bg := NewBgStyle(m.theme.Background)
	styles := m.theme.Styles().WithBackground(m.theme.Background)

	label := classifyConnectionError(msg)
	hint := bg.Hint("x", "dismiss", styles.AccentText, styles.MutedText)
	room := m.width - lipgloss.Width(label) - lipgloss.Width(hint) - 6
	text := bg.Render(label, styles.DangerText) + bg.Spaces(2) +
		bg.Render(truncate(msg, room), styles.DangerText.Bold(false)) + bg.Spaces(2) + hint

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Background)).
		Width(m.width).
		Padding(0, 1).
		Render(text)
}

// classifyConnectionError returns a short description of an error message.
func classifyConnectionError(msg string) string {
	switch {
	case msg == "":
		return ""
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	case strings.Contains(msg, "HTTP error!"):
		return "HTTP ERROR"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the key hints for the current screen.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch {
	case !m.snapshot.IsConnected() && m.urlInput.Focused():
		commands = []cmd{{"enter", "Connect"}, {"esc", "Leave input"}, {"ctrl+c", "Quit"}}
	case !m.snapshot.IsConnected():
		commands = []cmd{{"enter", "Connect"}, {"i", "Edit URL"}, {"?", "Help"}, {"q", "Quit"}}
	case m.routeForm:
		commands = []cmd{{"enter", "Save route"}, {"tab", "Next field"}, {"esc", "Cancel"}}
	default:
		toggle := "Start"
		if m.snapshot.RunState == api.RunStateRunning {
			toggle = "Stop"
		}
		commands = []cmd{
			{"s", toggle},
			{"a", "Add route"},
			{"C", "Clear logs"},
			{"r", "Reconnect"},
			{"tab", "Tabs"},
			{"?", "More"},
			{"q", "Quit"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}
