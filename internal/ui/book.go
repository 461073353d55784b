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

// Book screen actions, each with its own async state.
const (
	actionAdd    = "add"
	actionRemove = "remove"
	actionRead   = "read"
	actionUnread = "unread"
	actionRate   = "rate"
	actionNotes  = "notes"
)

func (m Model) handleBookKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	user, ok := m.session.CurrentUser()
	if !ok {
		return m, nil
	}
	item, onList := shelf.ListItemFor(m.listItemsResult(), m.bookID)

	switch {
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.synopsis, cmd = m.synopsis.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.AddToList):
		if !onList {
			m.runAction(actionAdd, func() error {
				return m.resolver.CreateListItem(m.ctx, user, m.bookID)
			})
		}
		return m, nil

	case key.Matches(msg, m.keys.Remove):
		if onList {
			m.runAction(actionRemove, func() error {
				return m.resolver.RemoveListItem(m.ctx, user, item.ID)
			})
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkRead):
		if onList && !item.Finished() {
			m.runAction(actionRead, func() error {
				return m.resolver.MarkAsRead(m.ctx, user, item.ID)
			})
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkUnread):
		if onList && item.Finished() {
			m.runAction(actionUnread, func() error {
				return m.resolver.MarkAsUnread(m.ctx, user, item.ID)
			})
		}
		return m, nil

	case key.Matches(msg, m.keys.EditNotes):
		if onList {
			m.editingNotes = true
			m.notesInput.SetValue(item.Notes)
			m.notesInput.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.Rate):
		if onList {
			rating := int(msg.String()[0] - '0')
			if rating == 0 {
				rating = -1 // clear the rating
			}
			m.runAction(actionRate, func() error {
				return m.resolver.SetRating(m.ctx, user, item.ID, rating)
			})
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleNotesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.editingNotes = false
		m.notesInput.Blur()
		user, ok := m.session.CurrentUser()
		item, onList := shelf.ListItemFor(m.listItemsResult(), m.bookID)
		if ok && onList {
			notes := m.notesInput.Value()
			m.runAction(actionNotes, func() error {
				return m.resolver.SetNotes(m.ctx, user, item.ID, notes)
			})
		}
		return m, nil
	case "esc":
		m.editingNotes = false
		m.notesInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.notesInput, cmd = m.notesInput.Update(msg)
	return m, cmd
}

// runAction executes one mutation through the action's own async state so
// its pending spinner and error render independently.
func (m Model) runAction(name string, fn func() error) {
	op := m.action(name)
	if op.State().Status == async.StatusPending {
		return
	}
	op.Run(async.Go(func() (any, error) {
		return nil, fn()
	}))
}

// syncSynopsis loads the book's synopsis into the persisted viewport.
// Rendering must not do this itself: View runs on a copy of the model, so a
// SetContent there is lost and scrolling never has anything to move.
func (m Model) syncSynopsis() Model {
	if m.bookSub == nil {
		return m
	}
	book := shelf.BookFrom(m.bookSub.Result())
	if book.Placeholder {
		return m
	}
	m.synopsis.SetContent(m.styles.Text.Render(wrap(book.Synopsis, m.synopsis.Width)))
	return m
}

func (m Model) renderBook() string {
	st := m.styles

	res := m.discoverResultForBook()
	book := shelf.BookFrom(res)
	item, onList := shelf.ListItemFor(m.listItemsResult(), m.bookID)

	var b strings.Builder
	b.WriteString(m.renderHeader("Book"))
	b.WriteString("\n")

	if res.Status == async.StatusRejected {
		b.WriteString(st.DangerText.Render("Could not load this book: " + errMessage(res.Err)))
		b.WriteString("\n")
		b.WriteString(st.MutedText.Render("It may have been removed from the catalog."))
		b.WriteString("\n\n")
		b.WriteString(m.renderFooter("esc back"))
		return b.String()
	}

	if book.Placeholder {
		b.WriteString(m.spin.View() + st.MutedText.Render(" Loading book..."))
		b.WriteString("\n")
	} else {
		b.WriteString(st.AccentText.Render(book.Title))
		b.WriteString("\n")
		b.WriteString(st.MutedText.Render(fmt.Sprintf("%s · %s", book.Author, book.Publisher)))
		b.WriteString("\n\n")
		b.WriteString(m.synopsis.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if onList {
		b.WriteString(m.renderItemStatus(item))
	} else {
		b.WriteString(st.MutedText.Render("Not on your list"))
	}
	b.WriteString("\n")

	if m.editingNotes {
		b.WriteString("\n")
		b.WriteString(st.PanelFocus.Render(m.notesInput.View()))
		b.WriteString("\n")
	}

	b.WriteString(m.renderActionStates())
	b.WriteString("\n")

	hints := "a add · x remove · r read · u unread · n notes · 1-5 rate · j/k scroll · esc back"
	b.WriteString(m.renderFooter(hints))
	return b.String()
}

func (m Model) renderItemStatus(item library.ListItem) string {
	st := m.styles

	var parts []string
	if item.Finished() {
		parts = append(parts, st.SuccessText.Render(
			"Finished "+item.FinishDate.Format("Jan 2, 2006")))
	} else {
		parts = append(parts, st.AccentText.Render(
			"Reading since "+item.StartDate.Format("Jan 2, 2006")))
	}
	parts = append(parts, stars(item.Rating, st))
	if item.Notes != "" {
		parts = append(parts, st.MutedText.Render("Notes: "+item.Notes))
	}
	return strings.Join(parts, "\n")
}

// renderActionStates shows a spinner or error line per in-flight action.
func (m Model) renderActionStates() string {
	st := m.styles
	var b strings.Builder
	for _, name := range []string{actionAdd, actionRemove, actionRead, actionUnread, actionRate, actionNotes} {
		op, ok := m.actions[name]
		if !ok {
			continue
		}
		switch s := op.State(); s.Status {
		case async.StatusPending:
			b.WriteString("\n" + m.spin.View() + st.MutedText.Render(" "+name+"..."))
		case async.StatusRejected:
			b.WriteString("\n" + st.DangerText.Render(name+": "+errMessage(s.Err)))
		}
	}
	return b.String()
}

// discoverResultForBook reads the book's cache entry; search results seed
// it, so this is usually already resolved.
func (m Model) discoverResultForBook() query.Result {
	if m.bookSub == nil {
		return query.Result{Status: async.StatusPending}
	}
	return m.bookSub.Result()
}

func stars(rating int, st Styles) string {
	if rating < 1 {
		return st.FaintText.Render("unrated")
	}
	if rating > 5 {
		rating = 5
	}
	return st.WarningText.Render(strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating))
}

func wrap(text string, width int) string {
	if width < 20 {
		width = 20
	}
	words := strings.Fields(text)
	var lines []string
	var line string
	for _, w := range words {
		if line == "" {
			line = w
			continue
		}
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
