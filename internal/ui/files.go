package ui

import (
	"fmt"
	"strings"
)

// renderFiles renders the static file server tab: document root, default
// index and request counts per file taken from the request log.
func (m Model) renderFiles(width, height int) string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.FocusBg)
	inner := max(width-2, 1)

	root, index := "-", "-"
	if m.snapshot.HasConfig {
		root = orDash(m.snapshot.Config.DocumentRoot)
		index = orDash(m.snapshot.Config.DefaultIndex)
	}
	lines := []string{
		bg.Render(padRight("Document Root", 18), styles.MutedText) + bg.Space() + bg.Render(root, styles.Text),
		bg.Render(padRight("Default Index", 18), styles.MutedText) + bg.Space() + bg.Render(index, styles.Text),
		"",
		bg.Render("Recent File Requests", styles.AccentText.Bold(true)),
	}

	files := m.snapshot.FileRequests()
	if len(files) == 0 {
		lines = append(lines, bg.Render(emptyFilesText, styles.MutedText))
	}
	const countW = 14
	pathW := max(inner-countW-1, 8)
	for _, f := range files {
		count := fmt.Sprintf("%d requests", f.Requests)
		if f.Requests == 1 {
			count = "1 request"
		}
		lines = append(lines,
			bg.Render(padRight(truncate(f.Path, pathW), pathW), styles.Text)+bg.Space()+
				bg.Render(padLeft(count, countW), styles.InfoText))
	}

	title := fmt.Sprintf("Static Files (%d)", len(files))
	return m.renderTitledBox(title, strings.Join(lines, "\n"), width, height, true)
}
