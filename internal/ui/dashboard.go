package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderDashboard renders the connected layout: header, command bar, error
// banner, stat cards, tab bar and the active tab.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	if banner := m.renderErrorBanner(); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatCards())
	b.WriteString("\n")
	b.WriteString(m.renderTabBar())
	b.WriteString("\n")
	b.WriteString(m.renderActiveTab())

	return b.String()
}

type statCard struct {
	label string
	value string
}

// statCards lists the cards for the current stats; CPU only when reported.
func (m Model) statCards() []statCard {
	if !m.snapshot.HasStats {
		return []statCard{
			{"Uptime", "-"},
			{"Total Requests", "-"},
			{"Active Connections", "-"},
			{"Memory", "-"},
		}
	}
	s := m.snapshot.Stats
	cards := []statCard{
		{"Uptime", orDash(s.Uptime)},
		{"Total Requests", fmt.Sprintf("%d", s.TotalRequests)},
		{"Active Connections", fmt.Sprintf("%d", s.ActiveConnections)},
		{"Memory", orDash(s.MemoryUsage)},
	}
	if s.CPUUsage != nil {
		cards = append(cards, statCard{"CPU", fmt.Sprintf("%.1f%%", *s.CPUUsage)})
	}
	return cards
}

func (m Model) renderStatCards() string {
	cards := m.statCards()
	width := max(m.width/len(cards), 12)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Muted)).
		Background(lipgloss.Color(m.theme.SurfaceAlt))
	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Text)).
		Background(lipgloss.Color(m.theme.SurfaceAlt)).
		Bold(true)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Border)).
		BorderBackground(lipgloss.Color(m.theme.SurfaceAlt)).
		Background(lipgloss.Color(m.theme.SurfaceAlt)).
		Width(width - 2).
		Padding(0, 1)

	rendered := make([]string, 0, len(cards))
	for _, c := range cards {
		inner := max(width-4, 1)
		rendered = append(rendered, box.Render(
			labelStyle.Render(truncate(c.label, inner))+"\n"+valueStyle.Render(truncate(c.value, inner))))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderTabBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Background)
	bg := NewBgStyle(m.theme.Background)

	tabs := make([]string, 0, len(tabOrder))
	for _, t := range tabOrder {
		label := " " + t.String() + " "
		if t == m.activeTab {
			tabs = append(tabs, styles.Selected.Bold(true).Render(label))
			continue
		}
		tabs = append(tabs, styles.MutedText.Render(label))
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Background)).
		Width(m.width).
		Render(strings.Join(tabs, bg.Space()))
}

func (m Model) renderActiveTab() string {
	height := m.contentBoxHeight()
	switch m.activeTab {
	case TabRoutes:
		return m.renderRoutes(m.width, height)
	case TabFiles:
		return m.renderFiles(m.width, height)
	case TabConfig:
		return m.renderConfig(m.width, height)
	default:
		return m.renderLogs(m.width, height)
	}
}

// renderConfig renders the read-only server configuration.
func (m Model) renderConfig(width, height int) string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.FocusBg)

	if !m.snapshot.HasConfig {
		body := styles.MutedText.Background(bg.Color()).Render(emptyConfigText)
		return m.renderTitledBox("Configuration", body, width, height, true)
	}

	cfg := m.snapshot.Config
	rows := []statCard{
		{"Port", fmt.Sprintf("%d", cfg.Port)},
		{"Document Root", orDash(cfg.DocumentRoot)},
		{"Default Index", orDash(cfg.DefaultIndex)},
	}
	if cfg.MaxConnections > 0 {
		rows = append(rows, statCard{"Max Connections", fmt.Sprintf("%d", cfg.MaxConnections)})
	}
	if cfg.ThreadPoolSize > 0 {
		rows = append(rows, statCard{"Thread Pool", fmt.Sprintf("%d", cfg.ThreadPoolSize)})
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines,
			bg.Render(padRight(r.label, 18), styles.MutedText)+bg.Space()+bg.Render(r.value, styles.Text))
	}
	return m.renderTitledBox("Configuration", strings.Join(lines, "\n"), width, height, true)
}
