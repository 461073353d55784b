package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kwalsh/bookshelf/internal/async"
	"github.com/kwalsh/bookshelf/internal/library"
	"github.com/kwalsh/bookshelf/internal/shelf"
)

// visibleItems filters the reading list for the current screen: finished
// items for the finished screen, unfinished for the reading screen.
func (m Model) visibleItems(finished bool) []library.ListItem {
	var out []library.ListItem
	for _, item := range shelf.ListItemsFrom(m.listItemsResult()) {
		if item.Finished() == finished {
			out = append(out, item)
		}
	}
	return out
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.visibleItems(m.view == ViewFinished)

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(items)-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.Open):
		if m.selected < len(items) {
			return m.openBook(items[m.selected].BookID), nil
		}
		return m, nil
	}
	return m, nil
}

func (m Model) renderReadingList(finished bool) string {
	st := m.styles
	res := m.listItemsResult()
	items := m.visibleItems(finished)

	title := "Reading List"
	empty := "Nothing here yet. Find a book on the discover screen and add it to your list."
	if finished {
		title = "Finished Books"
		empty = "Nothing finished yet. Mark a book as read and it will show up here."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(title))
	b.WriteString("\n")

	switch {
	case res.Status == async.StatusPending && !res.HasData:
		b.WriteString(m.spin.View() + st.MutedText.Render(" Loading your list..."))
		b.WriteString("\n")
	case res.Status == async.StatusRejected:
		b.WriteString(st.DangerText.Render("Could not load your list: " + errMessage(res.Err)))
		b.WriteString("\n")
	case len(items) == 0:
		b.WriteString(st.MutedText.Render(empty))
		b.WriteString("\n")
	default:
		for i, item := range items {
			b.WriteString(m.renderListRow(item, i == m.selected))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter("enter open · d discover · l list · f finished · ? help"))
	return b.String()
}

func (m Model) renderListRow(item library.ListItem, selected bool) string {
	st := m.styles

	book := m.bookFor(item)
	title := book.Title
	if book.Placeholder {
		title = "(loading)"
	}

	line := fmt.Sprintf("%s  %s", title, stars(item.Rating, st))
	if item.Finished() {
		line += st.MutedText.Render("  finished " + item.FinishDate.Format("Jan 2"))
	}
	if selected {
		return m.styles.Selected.Render("▸ " + line)
	}
	return "  " + line
}

// bookFor resolves the book a list item refers to: the server-expanded
// record when present, otherwise the cached detail entry.
func (m Model) bookFor(item library.ListItem) library.Book {
	if item.Book != nil {
		return *item.Book
	}
	if b, ok := m.resolver.PeekBook(item.BookID); ok {
		return b
	}
	return library.PlaceholderBook()
}
