package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kwalsh/bookshelf/internal/async"
	"github.com/kwalsh/bookshelf/internal/library"
	"github.com/kwalsh/bookshelf/internal/query"
	"github.com/kwalsh/bookshelf/internal/shelf"
)

func (m Model) handleDiscoverKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	books := m.discoverBooks()

	switch {
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.searchQuery)
		m.searchInput.Focus()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(books)-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.Open):
		if m.selected < len(books) && !books[m.selected].Placeholder {
			return m.openBook(books[m.selected].ID), nil
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		q := strings.TrimSpace(m.searchInput.Value())
		if q != m.searchQuery {
			m.searchQuery = q
			m.selected = 0
			if m.searchSub != nil {
				m.searchSub.Close()
				m.searchSub = nil // next tick subscribes the new query
			}
		}
		return m, nil
	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) openBook(bookID string) Model {
	m = m.closeBook()
	m.bookID = bookID
	m.view = ViewBook
	return m
}

func (m Model) discoverResult() query.Result {
	if m.searchSub == nil {
		return query.Result{Status: async.StatusPending}
	}
	return m.searchSub.Result()
}

func (m Model) discoverBooks() []library.Book {
	return shelf.BooksFrom(m.discoverResult())
}

func (m Model) renderDiscover() string {
	st := m.styles
	res := m.discoverResult()
	books := shelf.BooksFrom(res)
	listRes := m.listItemsResult()

	var b strings.Builder
	b.WriteString(m.renderHeader("Discover"))
	b.WriteString("\n")

	if m.searchMode {
		b.WriteString(st.PanelFocus.Render(m.searchInput.View()))
	} else if m.searchQuery != "" {
		b.WriteString(st.MutedText.Render(fmt.Sprintf("Results for %q", m.searchQuery)))
	} else {
		b.WriteString(st.MutedText.Render("Popular books"))
	}
	b.WriteString("\n\n")

	if res.Status == async.StatusRejected {
		b.WriteString(st.DangerText.Render("Search failed: " + errMessage(res.Err)))
		b.WriteString("\n")
	}

	for i, book := range books {
		b.WriteString(m.renderBookRow(book, listRes, i == m.selected))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter("/ search · enter open · l list · f finished · ? help"))
	return b.String()
}

// renderBookRow renders one result row: title, author, and the item's place
// on the reading list, if any.
func (m Model) renderBookRow(book library.Book, listRes query.Result, selected bool) string {
	st := m.styles

	if book.Placeholder {
		return st.FaintText.Render("  " + m.spin.View() + " Loading...")
	}

	marker := " "
	if item, ok := shelf.ListItemFor(listRes, book.ID); ok {
		if item.Finished() {
			marker = st.SuccessText.Render("✓")
		} else {
			marker = st.AccentText.Render("●")
		}
	}

	line := fmt.Sprintf("%s %s · %s", marker, book.Title, book.Author)
	if selected {
		return m.styles.Selected.Render("▸ " + line)
	}
	return "  " + st.Text.Render(line)
}

func (m Model) listItemsResult() query.Result {
	if m.listSub == nil {
		return query.Result{Status: async.StatusIdle}
	}
	return m.listSub.Result()
}
