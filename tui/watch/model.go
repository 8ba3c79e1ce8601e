// Package watch is a live view of the daemon's unread counts.
package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/grovetools/inbox/pkg/api"
	"github.com/grovetools/inbox/pkg/badge"
	"github.com/grovetools/inbox/pkg/visibility"
)

// Source is the part of the daemon client the view needs.
type Source interface {
	StreamCounts(ctx context.Context) (<-chan api.Counts, error)
	Refresh(ctx context.Context) (*api.Counts, error)
	SetVisibility(ctx context.Context, state visibility.State) error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Width(14)
	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("9")).
			Bold(true).
			Padding(0, 1)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type (
	streamOpenedMsg struct{ ch <-chan api.Counts }
	countsMsg       api.Counts
	streamClosedMsg struct{}
	visibilityMsg   visibility.State
	errMsg          struct{ err error }
)

// Model is the bubbletea model of the watch view.
type Model struct {
	ctx     context.Context
	src     Source
	updates <-chan api.Counts

	counts  *api.Counts
	updated time.Time
	err     error
	closed  bool

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	now     func() time.Time
}

// New creates the view. ctx bounds the stream subscription.
func New(ctx context.Context, src Source) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = mutedStyle
	return Model{
		ctx:     ctx,
		src:     src,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		now:     time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.subscribe)
}

func (m Model) subscribe() tea.Msg {
	ch, err := m.src.StreamCounts(m.ctx)
	if err != nil {
		return errMsg{err}
	}
	return streamOpenedMsg{ch}
}

func waitForCounts(ch <-chan api.Counts) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return countsMsg(c)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Refresh):
			return m, m.refresh
		case key.Matches(msg, m.keys.Visibility):
			return m, m.toggleVisibility()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case streamOpenedMsg:
		m.updates = msg.ch
		return m, waitForCounts(m.updates)

	case countsMsg:
		c := api.Counts(msg)
		m.counts = &c
		m.updated = m.now()
		m.err = nil
		if m.updates != nil {
			return m, waitForCounts(m.updates)
		}
		return m, nil

	case visibilityMsg:
		if m.counts != nil {
			m.counts.Visibility = visibility.State(msg)
		}
		return m, nil

	case streamClosedMsg:
		m.closed = true
		return m, tea.Quit

	case errMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) refresh() tea.Msg {
	c, err := m.src.Refresh(m.ctx)
	if err != nil {
		return errMsg{err}
	}
	return countsMsg(*c)
}

func (m Model) toggleVisibility() tea.Cmd {
	next := visibility.Hidden
	if m.counts != nil && m.counts.Visibility == visibility.Hidden {
		next = visibility.Visible
	}
	return func() tea.Msg {
		if err := m.src.SetVisibility(m.ctx, next); err != nil {
			return errMsg{err}
		}
		return visibilityMsg(next)
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("inboxd") + "\n\n")

	switch {
	case m.counts == nil && m.err == nil:
		b.WriteString(m.spinner.View() + " Waiting for counts...\n")
	case m.counts != nil:
		b.WriteString(RenderCounts(*m.counts))
		status := "updated " + humanize.RelTime(m.updated, m.now(), "ago", "from now")
		if m.counts.Visibility == visibility.Hidden {
			status += ", polling paused"
		}
		b.WriteString("\n" + mutedStyle.Render(status) + "\n")
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("✗ "+m.err.Error()) + "\n")
	}
	if m.closed {
		b.WriteString("\n" + mutedStyle.Render("Daemon closed the stream.") + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys) + "\n")
	return b.String()
}

// RenderCounts renders one line per badge the viewer is entitled to.
func RenderCounts(c api.Counts) string {
	if !c.Viewer.LoggedIn {
		return mutedStyle.Render("Not logged in.") + "\n"
	}
	var b strings.Builder
	for _, bd := range c.Badges {
		text := mutedStyle.Render("0")
		if bd.Text != "" {
			text = countStyle.Render(bd.Text)
		}
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(label(bd.Kind)), text)
	}
	return b.String()
}

func label(k badge.Kind) string {
	switch k {
	case badge.Inbox:
		return "Inbox"
	case badge.Reports:
		return "Reports"
	case badge.Applications:
		return "Applications"
	}
	return string(k)
}
