package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle paints text segments on a fixed background. lipgloss resets the
// background after every styled segment, so plain spaces between segments
// would show the terminal default instead.
type BgStyle struct {
	bg    lipgloss.Color
	space string
}

// NewBgStyle returns a painter for the given background color.
func NewBgStyle(bgColor string) BgStyle {
	bg := lipgloss.Color(bgColor)
	return BgStyle{bg: bg, space: lipgloss.NewStyle().Background(bg).Render(" ")}
}

// Render styles text with the painter's background, including inner spaces.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	style = style.Background(b.bg)
	if !strings.Contains(text, " ") {
		return style.Render(text)
	}
	words := strings.Split(text, " ")
	for i, w := range words {
		if w != "" {
			words[i] = style.Render(w)
		}
	}
	return strings.Join(words, b.space)
}

// Hint renders a "key desc" pair as used in the command bar and forms.
func (b BgStyle) Hint(key, desc string, keyStyle, descStyle lipgloss.Style) string {
	return b.Render(key, keyStyle) + b.space + b.Render(desc, descStyle)
}

func (b BgStyle) Space() string { return b.space }

func (b BgStyle) Spaces(n int) string {
	return b.Sep(strings.Repeat(" ", max(n, 0)))
}

func (b BgStyle) Sep(sep string) string {
	return lipgloss.NewStyle().Background(b.bg).Render(sep)
}

func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, b.Sep(sep))
}

func (b BgStyle) Color() lipgloss.Color { return b.bg }
