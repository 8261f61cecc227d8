package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/davidjes1/trAIn-sub002/internal/scheduler"
	"github.com/davidjes1/trAIn-sub002/internal/service"
)

var now = time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type fakeRefresher struct {
	calls int
	b     *service.Briefing
	err   error
}

func (f *fakeRefresher) RunNow() (*service.Briefing, error) {
	f.calls++
	return f.b, f.err
}

func (f *fakeRefresher) Next() time.Time { return now.Add(2 * time.Hour) }

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m tea.Model, msg tea.Msg) (WatchModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	wm, ok := next.(WatchModel)
	require.True(t, ok)
	return wm, cmd
}

func briefing() *service.Briefing {
	return &service.Briefing{UserID: "u1", Date: now, Advice: service.FallbackAdvice, Fallback: true}
}

func TestWatchModelFirstRefresh(t *testing.T) {
	r := &fakeRefresher{b: briefing()}
	m := NewWatchModel(r, clock)
	require.True(t, m.refreshing)
	require.Contains(t, m.View(), "Waiting for the first briefing")

	m, _ = update(t, m, m.refresh())
	require.Equal(t, 1, r.calls)
	require.False(t, m.refreshing)

	out := m.View()
	require.Contains(t, out, "Daily briefing")
	require.Contains(t, out, "Up to date")
	require.Contains(t, out, "next refresh 2 hours from now")
}

func TestWatchModelManualRefresh(t *testing.T) {
	m := NewWatchModel(&fakeRefresher{}, clock)
	m, _ = update(t, m, BriefingMsg{Briefing: briefing()})

	m, cmd := update(t, m, key("r"))
	require.True(t, m.refreshing)
	require.NotNil(t, cmd)

	_, cmd = update(t, m, key("r"))
	require.Nil(t, cmd, "a refresh is already running")
}

func TestWatchModelKeepsBriefingOnError(t *testing.T) {
	m := NewWatchModel(&fakeRefresher{}, clock)
	m, _ = update(t, m, BriefingMsg{Briefing: briefing()})
	m.refreshing = true

	m, _ = update(t, m, BriefingMsg{Err: scheduler.ErrBusy})
	require.True(t, m.refreshing, "busy runs report through the scheduled outcome")

	m, _ = update(t, m, BriefingMsg{Err: errors.New("store offline")})
	require.False(t, m.refreshing)
	require.NotNil(t, m.briefing)

	out := m.View()
	require.Contains(t, out, "Refresh failed: store offline")
	require.Contains(t, out, "Daily briefing")
}

func TestWatchModelScheduledProgress(t *testing.T) {
	m := NewWatchModel(&fakeRefresher{}, clock)
	m, _ = update(t, m, BriefingMsg{Briefing: briefing()})

	m, cmd := update(t, m, SyncProgressMsg{Page: 2, Fetched: 1200})
	require.True(t, m.refreshing)
	require.NotNil(t, cmd, "spinner restarts for a scheduled run")
	require.Contains(t, m.View(), "page 2: 1,200 fetched")

	_, cmd = update(t, m, SyncProgressMsg{Page: 3, Fetched: 1300})
	require.Nil(t, cmd)
}

func TestWatchModelWindowAndQuit(t *testing.T) {
	m := NewWatchModel(&fakeRefresher{}, clock)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	require.True(t, m.ready)
	require.Equal(t, 40-chromeHeight, m.viewport.Height)

	m, _ = update(t, m, BriefingMsg{Briefing: briefing()})
	require.Contains(t, m.View(), "Daily briefing")

	_, cmd := update(t, m, key("q"))
	require.True(t, isQuit(cmd))
}
