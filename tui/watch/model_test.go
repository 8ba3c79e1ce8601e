package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/inbox/pkg/api"
	"github.com/grovetools/inbox/pkg/badge"
	"github.com/grovetools/inbox/pkg/visibility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	stream     chan api.Counts
	streamErr  error
	refreshed  *api.Counts
	visibility []visibility.State
}

func (f *fakeSource) StreamCounts(ctx context.Context) (<-chan api.Counts, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return f.stream, nil
}

func (f *fakeSource) Refresh(ctx context.Context) (*api.Counts, error) {
	return f.refreshed, nil
}

func (f *fakeSource) SetVisibility(ctx context.Context, state visibility.State) error {
	f.visibility = append(f.visibility, state)
	return nil
}

func moderatorCounts(inbox, reports int) api.Counts {
	viewer := badge.Viewer{LoggedIn: true, Moderator: true}
	counts := badge.Counts{Inbox: inbox, Reports: reports}
	return api.Counts{
		Counts:     counts,
		Viewer:     viewer,
		Badges:     badge.For(viewer, counts),
		Visibility: visibility.Visible,
	}
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStreamUpdatesView(t *testing.T) {
	src := &fakeSource{stream: make(chan api.Counts, 1)}
	m := New(context.Background(), src)
	assert.Contains(t, m.View(), "Waiting for counts")

	opened := m.subscribe()
	require.IsType(t, streamOpenedMsg{}, opened)

	next, cmd := m.Update(opened)
	require.NotNil(t, cmd)

	src.stream <- moderatorCounts(3, 1500)
	msg := cmd()
	require.IsType(t, countsMsg{}, msg)

	next, cmd = next.Update(msg)
	assert.NotNil(t, cmd, "keeps waiting for the next update")

	view := next.View()
	assert.Contains(t, view, "Inbox")
	assert.Contains(t, view, "Reports")
	assert.Contains(t, view, "1.5K")
	assert.NotContains(t, view, "Applications")
	assert.Contains(t, view, "updated")
}

func TestStreamClosedQuits(t *testing.T) {
	src := &fakeSource{stream: make(chan api.Counts)}
	close(src.stream)

	m := New(context.Background(), src)
	next, cmd := m.Update(streamOpenedMsg{src.stream})
	msg := cmd()
	assert.Equal(t, streamClosedMsg{}, msg)

	next, cmd = next.Update(msg)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Contains(t, next.View(), "closed the stream")
}

func TestStreamError(t *testing.T) {
	src := &fakeSource{streamErr: errors.New("daemon gone")}
	m := New(context.Background(), src)

	next, _ := m.Update(m.subscribe())
	assert.Contains(t, next.View(), "daemon gone")
}

func TestKeys(t *testing.T) {
	refreshed := moderatorCounts(9, 0)
	src := &fakeSource{refreshed: &refreshed}
	m := New(context.Background(), src)

	_, cmd := m.Update(keyPress("q"))
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = m.Update(keyPress("r"))
	msg := cmd()
	assert.Equal(t, countsMsg(refreshed), msg)

	next, _ := m.Update(msg)
	_, cmd = next.Update(keyPress("p"))
	next, _ = next.Update(cmd())
	assert.Equal(t, []visibility.State{visibility.Hidden}, src.visibility)
	assert.Contains(t, next.View(), "polling paused")

	_, cmd = next.Update(keyPress("p"))
	cmd()
	assert.Equal(t, []visibility.State{visibility.Hidden, visibility.Visible}, src.visibility)
}

func TestHelpToggle(t *testing.T) {
	m := New(context.Background(), &fakeSource{})
	assert.NotContains(t, m.View(), "pause/resume")

	next, _ := m.Update(keyPress("?"))
	assert.Contains(t, next.View(), "pause/resume")
}

func TestRenderCountsAnonymous(t *testing.T) {
	assert.Contains(t, RenderCounts(api.Counts{}), "Not logged in")
}

func TestRelativeTime(t *testing.T) {
	m := New(context.Background(), &fakeSource{})
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }

	next, _ := m.Update(countsMsg(moderatorCounts(1, 0)))
	model := next.(Model)
	model.now = func() time.Time { return start.Add(2 * time.Minute) }
	assert.Contains(t, model.View(), "2 minutes ago")
}
