package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/davidjes1/trAIn-sub002/internal/report"
	"github.com/davidjes1/trAIn-sub002/internal/scheduler"
	"github.com/davidjes1/trAIn-sub002/internal/service"
)

// clockInterval re-renders relative times between refreshes
const clockInterval = time.Minute

// chromeHeight is the rows taken by the title and status lines
const chromeHeight = 3

// Refresher rebuilds the briefing on demand and knows the next scheduled run.
// *scheduler.Scheduler satisfies it.
type Refresher interface {
	RunNow() (*service.Briefing, error)
	Next() time.Time
}

// BriefingMsg carries the outcome of a refresh
type BriefingMsg struct {
	Briefing *service.Briefing
	Err      error
}

type clockMsg time.Time

// WatchModel shows the latest briefing and refreshes it on demand or when
// the scheduler reports a run.
type WatchModel struct {
	refresher Refresher
	now       func() time.Time
	spinner   spinner.Model
	viewport  viewport.Model
	ready     bool

	refreshing bool
	progress   service.SyncProgress
	briefing   *service.Briefing
	err        error
}

// NewWatchModel creates the watch screen. Init runs the first refresh.
func NewWatchModel(r Refresher, now func() time.Time) WatchModel {
	if now == nil {
		now = time.Now
	}
	return WatchModel{
		refresher:  r,
		now:        now,
		spinner:    newSpinner(),
		refreshing: true,
	}
}

// Init runs the first refresh and starts the clock
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh, clockTick())
}

func (m WatchModel) refresh() tea.Msg {
	b, err := m.refresher.RunNow()
	return BriefingMsg{Briefing: b, Err: err}
}

func clockTick() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg { return clockMsg(t) })
}

// Update handles messages
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if m.refreshing {
				return m, nil
			}
			m.refreshing = true
			m.progress = service.SyncProgress{}
			return m, tea.Batch(m.spinner.Tick, m.refresh)
		}

	case tea.WindowSizeMsg:
		h := max(msg.Height-chromeHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = h
		}
		m.setContent()
		return m, nil

	case BriefingMsg:
		// a scheduled run is in flight and reports through its own message
		if errors.Is(msg.Err, scheduler.ErrBusy) {
			return m, nil
		}
		m.refreshing = false
		m.progress = service.SyncProgress{}
		if msg.Err != nil {
			m.err = msg.Err
		} else {
			m.briefing = msg.Briefing
			m.err = nil
		}
		m.setContent()
		return m, nil

	case SyncProgressMsg:
		m.progress = service.SyncProgress(msg)
		if !m.refreshing {
			m.refreshing = true
			return m, m.spinner.Tick
		}
		return m, nil

	case clockMsg:
		m.setContent()
		return m, clockTick()

	case spinner.TickMsg:
		if !m.refreshing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *WatchModel) setContent() {
	if m.ready {
		m.viewport.SetContent(m.body())
	}
}

func (m WatchModel) body() string {
	if m.briefing == nil {
		return statusStyle.Render("Waiting for the first briefing...")
	}
	return report.Briefing(m.briefing, m.now())
}

// View renders the watch screen
func (m WatchModel) View() string {
	body := m.body()
	if m.ready {
		body = m.viewport.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Training watch"),
		body,
		m.status(),
	)
}

func (m WatchModel) status() string {
	var line string
	switch {
	case m.refreshing:
		line = m.spinner.View() + " Refreshing"
		if m.progress.Page > 0 {
			line += fmt.Sprintf(" (page %d: %s fetched)", m.progress.Page, humanize.Comma(int64(m.progress.Fetched)))
		}
	case m.err != nil:
		line = errorStyle.Render(fmt.Sprintf("Refresh failed: %v", m.err))
	default:
		line = successStyle.Render("Up to date")
	}

	help := "r refresh · q quit"
	if next := m.refresher.Next(); !next.IsZero() {
		help = "next refresh " + humanize.RelTime(next, m.now(), "ago", "from now") + " · " + help
	}
	return line + "  " + statusStyle.Render(help)
}
