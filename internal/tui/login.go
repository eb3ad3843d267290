// Package tui implements the interactive login screen.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/subnetconsole/agentops/session"
)

// Session is the part of session.Monitor the login screen drives.
type Session interface {
	Start(ctx context.Context) error
	Snapshot() session.Snapshot
	SetPendingKey(key string)
	SaveKey(ctx context.Context, key string) error
	RunCheck(ctx context.Context) error
}

type checkDoneMsg struct{ err error }

type saveDoneMsg struct{ err error }

// Login prompts for an API key until the session is healthy.
type Login struct {
	ctx     context.Context
	session Session
	input   textinput.Model
	spinner spinner.Model
	snap    session.Snapshot
	busy    bool
	done    bool
	notice  string
	width   int
}

// NewLogin creates the login model. Init starts the session.
func NewLogin(ctx context.Context, s Session) *Login {
	ti := textinput.New()
	ti.Placeholder = "sk-..."
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 512
	ti.Width = 48
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = StatusStyle(session.StatusChecking)

	return &Login{
		ctx:     ctx,
		session: s,
		input:   ti,
		spinner: sp,
		snap:    s.Snapshot(),
		busy:    true,
	}
}

// Done reports whether the session ended healthy.
func (m *Login) Done() bool { return m.done }

// Snapshot returns the last observed session state.
func (m *Login) Snapshot() session.Snapshot { return m.snap }

func (m *Login) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.start())
}

func (m *Login) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case checkDoneMsg:
		m.busy = false
		m.snap = m.session.Snapshot()
		m.notice = ""
		if msg.err != nil && !errors.Is(msg.err, session.ErrCheckInFlight) {
			m.notice = msg.err.Error()
		}
		if m.snap.Status == session.StatusHealthy {
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case saveDoneMsg:
		m.busy = false
		m.snap = m.session.Snapshot()
		m.notice = ""
		if msg.err == nil {
			m.done = true
			return m, tea.Quit
		}
		if errors.Is(msg.err, session.ErrEmptyKey) {
			m.notice = "Enter an API key"
		} else if m.snap.Error == "" {
			m.notice = msg.err.Error()
		}
		m.input.SetValue("")
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Login) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	switch msg.String() {
	case "enter":
		key := strings.TrimSpace(m.input.Value())
		if key == "" {
			m.notice = "Enter an API key"
			return m, nil
		}
		m.busy = true
		m.notice = ""
		return m, tea.Batch(m.spinner.Tick, m.save(key))
	case "ctrl+r":
		m.busy = true
		m.notice = ""
		return m, tea.Batch(m.spinner.Tick, m.check())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.session.SetPendingKey(m.input.Value())
	return m, cmd
}

func (m *Login) start() tea.Cmd {
	return func() tea.Msg {
		err := m.session.Start(m.ctx)
		if errors.Is(err, session.ErrAlreadyStarted) {
			err = m.session.RunCheck(m.ctx)
		}
		return checkDoneMsg{err: err}
	}
}

func (m *Login) check() tea.Cmd {
	return func() tea.Msg {
		return checkDoneMsg{err: m.session.RunCheck(m.ctx)}
	}
}

func (m *Login) save(key string) tea.Cmd {
	return func() tea.Msg {
		return saveDoneMsg{err: m.session.SaveKey(m.ctx, key)}
	}
}

func (m *Login) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Subnet Agent"))
	b.WriteString("\n\n")

	if m.busy {
		b.WriteString(m.spinner.View() + " " + session.StatusChecking.String())
	} else {
		b.WriteString(RenderStatus(m.snap.Status))
	}
	b.WriteString("\n")

	if m.snap.Error != "" {
		b.WriteString(ErrorStyle.Render(m.snap.Error) + "\n")
	}
	if m.notice != "" {
		b.WriteString(ErrorStyle.Render(m.notice) + "\n")
	}

	switch {
	case m.done:
		b.WriteString("\nConnected.\n")
	case !m.busy && m.snap.Status == session.StatusUnhealthy:
		b.WriteString("\n" + HintStyle.Render("ctrl+r retry • esc quit"))
	case !m.busy:
		b.WriteString("\nAPI key\n" + m.input.View() + "\n\n")
		b.WriteString(HintStyle.Render("enter save • ctrl+r re-check • esc quit"))
	}

	style := PanelStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(b.String())
}

var _ tea.Model = (*Login)(nil)
