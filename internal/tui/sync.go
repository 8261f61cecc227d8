package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/davidjes1/trAIn-sub002/internal/service"
)

// ErrInterrupted is reported when the user quits before sync finishes
var ErrInterrupted = errors.New("sync interrupted")

// Syncer runs one sync, reporting progress on a channel it closes
type Syncer interface {
	Sync(ctx context.Context, progress chan<- service.SyncProgress) (*service.SyncResult, error)
}

// SyncProgressMsg carries one page of sync progress
type SyncProgressMsg service.SyncProgress

// SyncDoneMsg is sent when sync finishes
type SyncDoneMsg struct {
	Result *service.SyncResult
	Err    error
}

// SyncModel runs a single sync and shows its progress
type SyncModel struct {
	ctx     context.Context
	syncer  Syncer
	updates chan service.SyncProgress
	spinner spinner.Model

	last   service.SyncProgress
	result *service.SyncResult
	err    error
	done   bool
}

// NewSyncModel creates the sync screen. The sync starts with Init.
func NewSyncModel(ctx context.Context, s Syncer) SyncModel {
	return SyncModel{
		ctx:     ctx,
		syncer:  s,
		updates: make(chan service.SyncProgress),
		spinner: newSpinner(),
	}
}

// Init starts the sync
func (m SyncModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runSync, waitForProgress(m.updates))
}

func (m SyncModel) runSync() tea.Msg {
	result, err := m.syncer.Sync(m.ctx, m.updates)
	return SyncDoneMsg{Result: result, Err: err}
}

// waitForProgress reads the next update. A closed channel yields no message.
func waitForProgress(ch <-chan service.SyncProgress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return SyncProgressMsg(p)
	}
}

// Update handles messages
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SyncProgressMsg:
		m.last = service.SyncProgress(msg)
		return m, waitForProgress(m.updates)

	case SyncDoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Result reports the finished sync, or ErrInterrupted when it never finished
func (m SyncModel) Result() (*service.SyncResult, error) {
	if !m.done {
		return nil, ErrInterrupted
	}
	return m.result, m.err
}

// View renders the sync screen
func (m SyncModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Sync failed: %v", m.err)) + "\n"
	}
	if m.done {
		return m.renderSummary()
	}

	line := m.spinner.View() + " Syncing with Strava..."
	if m.last.Page > 0 {
		line += statusStyle.Render(fmt.Sprintf("  page %d: %s fetched, %s stored",
			m.last.Page, humanize.Comma(int64(m.last.Fetched)), humanize.Comma(int64(m.last.Stored))))
	}
	return line + "\n" + statusStyle.Render("Press q to stop") + "\n"
}

func (m SyncModel) renderSummary() string {
	r := m.result
	if r == nil {
		return successStyle.Render("Sync complete") + "\n"
	}

	var b strings.Builder
	if r.ActivitiesStored == 0 {
		b.WriteString(successStyle.Render("Already up to date"))
	} else {
		b.WriteString(successStyle.Render(fmt.Sprintf("Synced %s activities (%s with heart rate)",
			humanize.Comma(int64(r.ActivitiesStored)), humanize.Comma(int64(r.WithHeartrate)))))
	}
	b.WriteString("\n")
	for _, e := range r.Errors {
		b.WriteString(warningStyle.Render("  " + e.Error()))
		b.WriteString("\n")
	}
	return b.String()
}
