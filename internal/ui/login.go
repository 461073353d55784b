package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kwalsh/bookshelf/internal/api"
	"github.com/kwalsh/bookshelf/internal/async"
	"github.com/kwalsh/bookshelf/internal/library"
)

// loginState is the unauthenticated screen: a username/password form that
// submits either a login or a register call. The form owns its own async
// state so a rejected submit shows inline instead of failing the session.
type loginState struct {
	inputs   [2]textinput.Model // username, password
	focus    int
	register bool
	op       *async.Operation[*library.User]
}

func newLoginState() loginState {
	username := textinput.New()
	username.Placeholder = "Username"
	username.CharLimit = 64
	username.Focus()

	password := textinput.New()
	password.Placeholder = "Password"
	password.CharLimit = 64
	password.EchoMode = textinput.EchoPassword

	return loginState{
		inputs: [2]textinput.Model{username, password},
		op:     async.New[*library.User](),
	}
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.SwitchField):
		m.login.focus = (m.login.focus + 1) % len(m.login.inputs)
		for i := range m.login.inputs {
			if i == m.login.focus {
				m.login.inputs[i].Focus()
			} else {
				m.login.inputs[i].Blur()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleMode):
		m.login.register = !m.login.register
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		return m.submitLogin()
	}

	var cmd tea.Cmd
	m.login.inputs[m.login.focus], cmd = m.login.inputs[m.login.focus].Update(msg)
	return m, cmd
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	if m.login.op.State().Status == async.StatusPending {
		return m, nil
	}

	creds := api.Credentials{
		Username: strings.TrimSpace(m.login.inputs[0].Value()),
		Password: m.login.inputs[1].Value(),
	}
	if creds.Username == "" || creds.Password == "" {
		return m, nil
	}

	if m.login.register {
		m.login.op.Run(m.session.Register(m.ctx, creds))
	} else {
		m.login.op.Run(m.session.Login(m.ctx, creds))
	}
	return m, nil
}

func (m Model) renderLogin() string {
	st := m.styles

	mode := "Log in"
	if m.login.register {
		mode = "Register"
	}

	var b strings.Builder
	b.WriteString(st.Title.Render("Bookshelf"))
	b.WriteString("\n\n")
	b.WriteString(st.MutedText.Render(mode))
	b.WriteString("\n\n")
	for i := range m.login.inputs {
		b.WriteString(m.login.inputs[i].View())
		b.WriteString("\n")
	}

	switch form := m.login.op.State(); form.Status {
	case async.StatusPending:
		b.WriteString("\n" + m.spin.View() + st.MutedText.Render(" Signing in..."))
	case async.StatusRejected:
		b.WriteString("\n" + st.DangerText.Render(errMessage(form.Err)))
	}

	b.WriteString("\n\n")
	b.WriteString(st.FaintText.Render("enter submit · tab switch field · ctrl+r " +
		strings.ToLower(toggleOf(m.login.register)) + " · ctrl+c quit"))

	return m.centered(st.Panel.Render(b.String()))
}

func toggleOf(register bool) string {
	if register {
		return "Log in instead"
	}
	return "Register instead"
}

func (m Model) renderSplash() string {
	return m.centered(m.spin.View() + m.styles.MutedText.Render(" Loading your bookshelf..."))
}

func (m Model) renderFatal(err error) string {
	st := m.styles
	body := st.DangerText.Render("Something went wrong") + "\n\n" +
		st.Text.Render(errMessage(err)) + "\n\n" +
		st.FaintText.Render("ctrl+c quit")
	return m.centered(st.Panel.Render(body))
}

func (m Model) centered(content string) string {
	if m.width <= 0 || m.height <= 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
