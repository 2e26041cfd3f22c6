package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/beacon/internal/state"
)

// openRouteForm focuses the first add-route field, restoring any stored draft.
func (m *Model) openRouteForm() tea.Cmd {
	m.routeForm = true
	d := m.snapshot.Draft
	for i, v := range [fieldCount]string{d.Path, d.Handler, d.Method} {
		m.routeInputs[i].SetValue(v)
		m.routeInputs[i].Blur()
	}
	m.routeFocus = fieldPath
	return m.routeInputs[fieldPath].Focus()
}

func (m *Model) closeRouteForm() {
	m.routeForm = false
	for i := range m.routeInputs {
		m.routeInputs[i].Blur()
		m.routeInputs[i].Reset()
	}
	m.routeFocus = fieldPath
}

func (m Model) draftFromInputs() state.RouteDraft {
	return state.RouteDraft{
		Path:    strings.TrimSpace(m.routeInputs[fieldPath].Value()),
		Handler: strings.TrimSpace(m.routeInputs[fieldHandler].Value()),
		Method:  strings.ToUpper(strings.TrimSpace(m.routeInputs[fieldMethod].Value())),
	}
}

func (m *Model) focusRouteField(idx int) tea.Cmd {
	m.routeInputs[m.routeFocus].Blur()
	m.routeFocus = (idx%fieldCount + fieldCount) % fieldCount
	return m.routeInputs[m.routeFocus].Focus()
}

// handleRouteFormKey handles input while the add-route form is active.
func (m Model) handleRouteFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeRouteForm()
		return m, nil
	case "tab", "down":
		return m, m.focusRouteField(m.routeFocus + 1)
	case "shift+tab", "up":
		return m, m.focusRouteField(m.routeFocus - 1)
	case "enter":
		draft := m.draftFromInputs()
		if draft.Path == "" || draft.Handler == "" {
			return m, nil
		}
		if m.store != nil {
			m.store.SetDraft(draft)
		}
		return m, m.runAction(actionAddRoute, m.ctrlAddRoute)
	}

	var cmd tea.Cmd
	m.routeInputs[m.routeFocus], cmd = m.routeInputs[m.routeFocus].Update(msg)
	if m.store != nil {
		m.store.SetDraft(m.draftFromInputs())
	}
	return m, cmd
}

// renderRoutes renders the route table and, when active, the add form.
func (m Model) renderRoutes(width, height int) string {
	title := fmt.Sprintf("Routes (%d)", len(m.snapshot.Routes))
	inner := width - 2
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()

	var lines []string
	if len(m.snapshot.Routes) == 0 {
		lines = append(lines, styles.MutedText.Background(bg.Color()).Render(emptyRoutesText))
	} else {
		methodW, handlerW, stateW := 8, 24, 8
		pathW := max(inner-methodW-handlerW-stateW-3, 8)
		lines = append(lines,
			bg.Render(padRight("METHOD", methodW), styles.FaintText)+bg.Space()+
				bg.Render(padRight("PATH", pathW), styles.FaintText)+bg.Space()+
				bg.Render(padRight("HANDLER", handlerW), styles.FaintText)+bg.Space()+
				bg.Render("STATE", styles.FaintText))
		for _, r := range m.snapshot.Routes {
			enabled := bg.Render("enabled", styles.SuccessText)
			if !r.Enabled {
				enabled = bg.Render("disabled", styles.MutedText)
			}
			lines = append(lines,
				bg.Render(padRight(orDash(r.Method), methodW), styles.AccentText)+bg.Space()+
					bg.Render(padRight(truncate(r.Path, pathW), pathW), styles.Text)+bg.Space()+
					bg.Render(padRight(truncate(r.Handler, handlerW), handlerW), styles.MutedText)+bg.Space()+
					enabled)
		}
	}

	formLines := m.renderRouteForm(bg, styles)
	room := height - 2 - len(formLines)
	if room < 1 {
		room = 1
	}
	if len(lines) > room {
		lines = lines[:room]
	}
	for len(lines) < room {
		lines = append(lines, "")
	}
	lines = append(lines, formLines...)

	return m.renderTitledBox(title, strings.Join(lines, "\n"), width, height, true)
}

func (m Model) renderRouteForm(bg BgStyle, styles Styles) []string {
	if !m.routeForm {
		return []string{bg.Hint("a", "add route", styles.AccentText, styles.MutedText)}
	}
	lines := []string{bg.Render("New route", styles.AccentText.Bold(true))}
	for i := range m.routeInputs {
		lines = append(lines, m.routeInputs[i].View())
	}
	hints := []string{
		bg.Hint("enter", "save", styles.AccentText, styles.MutedText),
		bg.Hint("tab", "next field", styles.AccentText, styles.MutedText),
		bg.Hint("esc", "cancel", styles.AccentText, styles.MutedText),
	}
	return append(lines, bg.Join(hints, "  "))
}
