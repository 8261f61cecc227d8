package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/davidjes1/trAIn-sub002/internal/service"
)

type fakeSyncer struct {
	pages  int
	result *service.SyncResult
	err    error
}

func (f *fakeSyncer) Sync(_ context.Context, progress chan<- service.SyncProgress) (*service.SyncResult, error) {
	defer close(progress)
	for i := 1; i <= f.pages; i++ {
		progress <- service.SyncProgress{Page: i, Fetched: i * 100, Stored: i * 100}
	}
	return f.result, f.err
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestSyncModelShowsProgress(t *testing.T) {
	syncer := &fakeSyncer{pages: 2, result: &service.SyncResult{ActivitiesStored: 200}}
	m := NewSyncModel(context.Background(), syncer)

	done := make(chan tea.Msg, 1)
	go func() { done <- m.runSync() }()

	var model tea.Model = m
	wait := waitForProgress(m.updates)
	for page := 1; page <= 2; page++ {
		msg := wait()
		require.Equal(t, SyncProgressMsg{Page: page, Fetched: page * 100, Stored: page * 100}, msg)
		model, wait = model.Update(msg)
		require.NotNil(t, wait)
	}
	require.Contains(t, model.View(), "page 2: 200 fetched, 200 stored")
	require.Nil(t, wait(), "closed channel should yield no message")

	model, cmd := model.Update(<-done)
	require.True(t, isQuit(cmd))
	require.Contains(t, model.View(), "Synced 200 activities")

	res, err := model.(SyncModel).Result()
	require.NoError(t, err)
	require.Equal(t, 200, res.ActivitiesStored)
}

func TestSyncModelSummary(t *testing.T) {
	tests := []struct {
		name string
		msg  SyncDoneMsg
		want string
	}{
		{"stored", SyncDoneMsg{Result: &service.SyncResult{ActivitiesStored: 1500, WithHeartrate: 1200}}, "Synced 1,500 activities (1,200 with heart rate)"},
		{"nothing new", SyncDoneMsg{Result: &service.SyncResult{}}, "Already up to date"},
		{"store errors", SyncDoneMsg{Result: &service.SyncResult{ActivitiesStored: 1, Errors: []error{errors.New("storing activity 7: disk full")}}}, "disk full"},
		{"failed", SyncDoneMsg{Err: errors.New("strava API error 401")}, "Sync failed: strava API error 401"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, _ := NewSyncModel(context.Background(), &fakeSyncer{}).Update(tt.msg)
			if got := model.View(); !strings.Contains(got, tt.want) {
				t.Errorf("View() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSyncModelInterrupted(t *testing.T) {
	m := NewSyncModel(context.Background(), &fakeSyncer{})

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.True(t, isQuit(cmd))

	_, err := model.(SyncModel).Result()
	require.ErrorIs(t, err, ErrInterrupted)
}
