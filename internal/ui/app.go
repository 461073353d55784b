// Package ui provides the Bubble Tea terminal interface for Bookshelf.
//
// Screens read their data from the shared query cache through shelf
// selectors on every tick, so cache changes (fetches landing, optimistic
// patches, logout) show up without any screen-specific plumbing. Each screen
// keeps a cache subscription open while it is visible; closing it on leave
// lets unused entries age out.
package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kwalsh/bookshelf/internal/async"
	"github.com/kwalsh/bookshelf/internal/prefs"
	"github.com/kwalsh/bookshelf/internal/query"
	"github.com/kwalsh/bookshelf/internal/session"
	"github.com/kwalsh/bookshelf/internal/shelf"
)

// View represents the current active screen.
type View int

const (
	ViewDiscover View = iota
	ViewReading
	ViewFinished
	ViewBook
)

const tickEvery = 200 * time.Millisecond

// Options configures the UI.
type Options struct {
	Context   context.Context
	Session   *session.Session
	Resolver  *shelf.Resolver
	ThemeName string
	PrefsPath string
	// BindReload receives a func that forces the app back to the login
	// screen; the session's 401 teardown calls it.
	BindReload func(func())
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx      context.Context
	session  *session.Session
	resolver *shelf.Resolver

	keys      keyMap
	theme     Theme
	styles    Styles
	prefsPath string

	width  int
	height int
	ready  bool

	showHelp bool
	view     View
	authed   bool

	spin spinner.Model

	login loginState

	// Discover state
	searchInput textinput.Model
	searchMode  bool
	searchQuery string
	searchSub   *query.Subscription

	// Reading list state, shared by the reading and finished screens
	listSub  *query.Subscription
	selected int

	// Book detail state
	bookID       string
	bookSub      *query.Subscription
	synopsis     viewport.Model
	notesInput   textinput.Model
	editingNotes bool
	actions      map[string]*async.Operation[any]
}

type tickMsg time.Time

// sessionResetMsg forces the app back to the unauthenticated screen; sent
// when a 401 tears the session down.
type sessionResetMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// New creates the root Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}
	theme := GetTheme(themeName)

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	search := textinput.New()
	search.Placeholder = "Search books..."
	search.CharLimit = 120

	notes := textinput.New()
	notes.Placeholder = "Notes"
	notes.CharLimit = 500

	return Model{
		ctx:         ctx,
		session:     opts.Session,
		resolver:    opts.Resolver,
		keys:        DefaultKeyMap(),
		theme:       theme,
		styles:      theme.Styles(),
		prefsPath:   prefsPath,
		view:        ViewDiscover,
		spin:        spin,
		login:       newLoginState(),
		searchInput: search,
		synopsis:    viewport.New(76, 10),
		notesInput:  notes,
		actions:     map[string]*async.Operation[any]{},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, tickCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.synopsis.Width = max(msg.Width-4, 20)
		m.synopsis.Height = max(msg.Height-14, 4)
		m.ready = true
		return m, nil

	case tickMsg:
		m = m.sync()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case sessionResetMsg:
		m = m.resetToLogin()
		return m, nil
	}

	return m, nil
}

// sync reconciles the model with the session and keeps exactly the
// subscriptions the visible screen needs. Runs on every tick.
func (m Model) sync() Model {
	user, ok := m.session.CurrentUser()
	if !ok {
		if m.authed {
			m = m.resetToLogin()
		}
		return m
	}

	if !m.authed {
		m.authed = true
		m.view = ViewDiscover
		m.login = newLoginState()
	}

	if m.listSub == nil {
		m.listSub = m.resolver.SubscribeListItems(m.ctx, user, nil)
	}
	if m.view == ViewDiscover && m.searchSub == nil {
		m.searchSub = m.resolver.SubscribeBookSearch(m.ctx, user, m.searchQuery, nil)
	}
	if m.view == ViewBook && m.bookID != "" {
		if m.bookSub == nil {
			m.bookSub = m.resolver.SubscribeBook(m.ctx, user, m.bookID, nil)
		}
		m = m.syncSynopsis()
	}
	return m
}

func (m Model) resetToLogin() Model {
	if m.listSub != nil {
		m.listSub.Close()
		m.listSub = nil
	}
	if m.searchSub != nil {
		m.searchSub.Close()
		m.searchSub = nil
	}
	m = m.closeBook()
	m.authed = false
	m.view = ViewDiscover
	m.selected = 0
	m.searchMode = false
	m.searchQuery = ""
	m.login = newLoginState()
	return m
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	st := m.session.State()
	switch st.Status {
	case async.StatusIdle, async.StatusPending:
		return m.renderSplash()
	case async.StatusRejected:
		return m.renderFatal(st.Err)
	}

	if _, ok := m.session.CurrentUser(); !ok {
		return m.renderLogin()
	}

	if m.showHelp {
		return m.renderHelp()
	}

	switch m.view {
	case ViewBook:
		return m.renderBook()
	case ViewReading:
		return m.renderReadingList(false)
	case ViewFinished:
		return m.renderReadingList(true)
	default:
		return m.renderDiscover()
	}
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C always quits, whatever mode the app is in.
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if !m.authed {
		return m.handleLoginKey(msg)
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.searchMode {
		return m.handleSearchKey(msg)
	}
	if m.editingNotes {
		return m.handleNotesKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.styles = m.theme.Styles()
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Logout):
		m.session.Logout()
		return m.resetToLogin(), nil

	case key.Matches(msg, m.keys.ViewDiscover):
		return m.switchView(ViewDiscover), nil

	case key.Matches(msg, m.keys.ViewReading):
		return m.switchView(ViewReading), nil

	case key.Matches(msg, m.keys.ViewFinished):
		return m.switchView(ViewFinished), nil

	case key.Matches(msg, m.keys.Escape):
		if m.view == ViewBook {
			return m.closeBook().switchView(ViewDiscover), nil
		}
		return m, nil
	}

	switch m.view {
	case ViewDiscover:
		return m.handleDiscoverKey(msg)
	case ViewReading, ViewFinished:
		return m.handleListKey(msg)
	case ViewBook:
		return m.handleBookKey(msg)
	}
	return m, nil
}

func (m Model) switchView(v View) Model {
	if m.view == v {
		return m
	}
	if m.view == ViewDiscover && v != ViewDiscover {
		// Leaving discover: warm the default search for the next visit
		// and drop the live subscription.
		if user, ok := m.session.CurrentUser(); ok {
			m.resolver.PrefetchBookSearch(m.ctx, user)
		}
		if m.searchSub != nil {
			m.searchSub.Close()
			m.searchSub = nil
		}
	}
	if m.view == ViewBook {
		m = m.closeBook()
	}
	m.view = v
	m.selected = 0
	return m
}

func (m Model) closeBook() Model {
	if m.bookSub != nil {
		m.bookSub.Close()
		m.bookSub = nil
	}
	for _, op := range m.actions {
		op.Close()
	}
	m.actions = map[string]*async.Operation[any]{}
	m.bookID = ""
	m.editingNotes = false
	m.synopsis.GotoTop()
	return m
}

// action returns the per-action async state for the book screen, creating
// it on first use. One operation per action keeps a failing button from
// poisoning the others.
func (m Model) action(name string) *async.Operation[any] {
	op, ok := m.actions[name]
	if !ok {
		op = async.New[any]()
		m.actions[name] = op
	}
	return op
}

func (m Model) savePrefs() {
	token, _ := prefs.NewStore(m.prefsPath).Token()
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, Token: token})
}

// Run boots the UI and blocks until the user quits or the context ends.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(opts.Context))
	if opts.BindReload != nil {
		opts.BindReload(func() {
			p.Send(sessionResetMsg{})
		})
	}
	_, err := p.Run()
	return err
}
