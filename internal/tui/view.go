package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the widget.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 72
	}
	inner := max(20, width-4)
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("☎ PHONELINK")

	body := lipgloss.JoinVertical(lipgloss.Left,
		a.renderTokenSection(inner),
		"",
		a.renderContacts(inner),
	)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(inner).
		Render(body)

	sections := []string{header}
	if toasts := a.toasts.render(inner); toasts != "" {
		sections = append(sections, toasts)
	}
	sections = append(sections, box)
	if bar := a.renderActionBar(inner); bar != "" {
		sections = append(sections, bar)
	}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, a.renderHelp())
	return strings.Join(sections, "\n")
}

func (a *App) renderTokenSection(width int) string {
	label := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render("API TOKEN")
	indicator := ""
	if a.session.HasCredential() {
		indicator = lipgloss.NewStyle().Foreground(lipgloss.Color("#7BD88F")).Render(" ✓")
	}
	lines := []string{label + indicator, a.tokenInput.View()}
	if a.authErr != "" {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Width(width).
			Render(a.authErr))
	}
	if a.state == stateFetching {
		lines = append(lines, a.spinner.View()+" Fetching phone numbers...")
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderContacts(width int) string {
	contacts := a.session.Contacts()
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("PHONE NUMBERS · %d selected", a.session.SelectedCount()))
	if a.state < stateBrowsing && len(contacts) == 0 {
		note := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("Fetch numbers to choose one.")
		return lipgloss.JoinVertical(lipgloss.Left, title, note)
	}
	if len(contacts) == 0 {
		note := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("No phone numbers on this token.")
		return lipgloss.JoinVertical(lipgloss.Left, title, note)
	}
	rows := make([]string, 0, len(contacts))
	for i, c := range contacts {
		cursor := "  "
		if a.focus == focusList && i == a.cursor {
			cursor = "› "
		}
		check := "[ ]"
		style := lipgloss.NewStyle().Width(max(20, width))
		if a.session.IsSelected(c.ID) {
			check = "[x]"
			style = style.Bold(true).Foreground(lipgloss.Color("#7BD88F"))
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %s", cursor, check, c.PhoneNumber)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n"))
}

// actionLabel is the submit button text for the current state.
func (a *App) actionLabel() string {
	if a.state == stateSubmitting {
		return labelSending
	}
	count := a.session.SelectedCount()
	suffix := ""
	if count > 1 {
		suffix = "s"
	}
	return fmt.Sprintf("Send to %d Recipient%s", count, suffix)
}

func (a *App) renderActionBar(width int) string {
	if a.state != stateSubmitting && !a.actionVisible {
		return ""
	}
	style := lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		Bold(true).
		Foreground(lipgloss.Color("#1E1E1E")).
		Background(lipgloss.Color("#5B8DEF"))
	if a.state == stateSubmitting {
		style = style.Background(lipgloss.Color("#888888"))
	}
	return style.Render("⏎ " + a.actionLabel())
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, _ := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s", fileName))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) renderHelp() string {
	var help string
	if a.focus == focusList {
		help = "↑/↓ move · space select · enter connect · r refetch · tab token · q quit"
	} else {
		help = "enter fetch · tab numbers · esc quit"
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(help)
}
