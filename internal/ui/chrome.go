package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) renderHeader(title string) string {
	st := m.styles

	left := st.Title.Render("Bookshelf") + st.MutedText.Render(" · "+title)
	right := ""
	if user, ok := m.session.CurrentUser(); ok {
		right = st.MutedText.Render(user.Username)
	}

	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		pad = 1
	}
	return st.Header.Render(left+strings.Repeat(" ", pad)+right) + "\n"
}

func (m Model) renderFooter(hints string) string {
	return m.styles.Footer.Render(hints)
}

func (m Model) renderHelp() string {
	st := m.styles
	k := m.keys

	rows := [][2]string{
		{helpKeys(k.ViewDiscover), "Discover and search books"},
		{helpKeys(k.ViewReading), "Reading list"},
		{helpKeys(k.ViewFinished), "Finished books"},
		{helpKeys(k.Search), "Search (discover screen)"},
		{helpKeys(k.Up) + "/" + helpKeys(k.Down), "Move selection"},
		{helpKeys(k.Open), "Open selected book"},
		{helpKeys(k.AddToList), "Add book to list"},
		{helpKeys(k.Remove), "Remove book from list"},
		{helpKeys(k.MarkRead) + "/" + helpKeys(k.MarkUnread), "Mark read / unread"},
		{"1-5, 0", "Rate book / clear rating"},
		{helpKeys(k.EditNotes), "Edit notes"},
		{helpKeys(k.CycleTheme), "Cycle theme"},
		{helpKeys(k.Logout), "Log out"},
		{helpKeys(k.Quit), "Quit"},
	}

	var b strings.Builder
	b.WriteString(st.Title.Render("Help"))
	b.WriteString("\n\n")
	for _, row := range rows {
		b.WriteString(st.AccentText.Render(padRight(row[0], 12)))
		b.WriteString(st.Text.Render(row[1]))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(st.FaintText.Render("Press any key to close"))

	return m.centered(st.Panel.Render(b.String()))
}

func helpKeys(b interface{ Keys() []string }) string {
	keys := b.Keys()
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-len(s))
}
