package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding
	Logout     key.Binding

	// View switching
	ViewDiscover key.Binding
	ViewReading  key.Binding
	ViewFinished key.Binding

	// Navigation
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	Search  key.Binding
	Confirm key.Binding

	// Book actions
	AddToList  key.Binding
	Remove     key.Binding
	MarkRead   key.Binding
	MarkUnread key.Binding
	EditNotes  key.Binding
	Rate       key.Binding

	// Login form
	SwitchField key.Binding
	ToggleMode  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "Log out"),
		),

		ViewDiscover: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Discover"),
		),
		ViewReading: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Reading list"),
		),
		ViewFinished: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Finished books"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open book"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),

		AddToList: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add to list"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Remove from list"),
		),
		MarkRead: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Mark as read"),
		),
		MarkUnread: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Mark as unread"),
		),
		EditNotes: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Edit notes"),
		),
		Rate: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "0"),
			key.WithHelp("1-5/0", "Rate / clear rating"),
		),

		SwitchField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next field"),
		),
		ToggleMode: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "Login/register"),
		),
	}
}
