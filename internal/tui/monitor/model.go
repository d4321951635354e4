// Package monitor is a live TUI over the sync core's observables:
// queue contents, sync state, connectivity, and optimistic updates.
package monitor

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/offsync/internal/connectivity"
	"github.com/marcus/offsync/internal/engine"
	"github.com/marcus/offsync/internal/optimistic"
	"github.com/marcus/offsync/internal/queue"
)

// Core bundles the components the monitor observes.
type Core struct {
	Queue   *queue.Queue
	Engine  *engine.Engine
	Manager *connectivity.Manager
	Updates *optimistic.Manager
}

// Model is the main Bubble Tea model for the monitor TUI.
type Model struct {
	Core Core

	Width  int
	Height int

	Mutations      []queue.Mutation
	PendingUpdates int
	Online         bool
	SyncState      engine.State
	LastRefresh    time.Time

	RefreshInterval time.Duration
	Spinner         spinner.Model

	states       <-chan engine.State
	cancelStates func()
	online       <-chan bool
	cancelOnline func()
}

// TickMsg triggers a data refresh.
type TickMsg time.Time

// RefreshDataMsg carries refreshed snapshot data.
type RefreshDataMsg struct {
	Mutations      []queue.Mutation
	PendingUpdates int
	Online         bool
	Timestamp      time.Time
}

// SyncStateMsg carries an engine state transition.
type SyncStateMsg engine.State

// OnlineMsg carries a connectivity transition.
type OnlineMsg bool

// NewModel creates a monitor model observing the given core.
func NewModel(core Core, interval time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	states, cancelStates := core.Engine.States()
	online, cancelOnline := core.Manager.Transitions()

	return Model{
		Core:            core,
		RefreshInterval: interval,
		Spinner:         sp,
		states:          states,
		cancelStates:    cancelStates,
		online:          online,
		cancelOnline:    cancelOnline,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchData(),
		m.scheduleTick(),
		m.waitForState(),
		m.waitForOnline(),
		m.Spinner.Tick,
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancelStates()
			m.cancelOnline()
			return m, tea.Quit
		case "r":
			return m, m.fetchData()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.fetchData(), m.scheduleTick())

	case RefreshDataMsg:
		m.Mutations = msg.Mutations
		m.PendingUpdates = msg.PendingUpdates
		m.Online = msg.Online
		m.LastRefresh = msg.Timestamp
		return m, nil

	case SyncStateMsg:
		m.SyncState = engine.State(msg)
		return m, m.waitForState()

	case OnlineMsg:
		m.Online = bool(msg)
		return m, m.waitForOnline()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	return m.renderView()
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// fetchData snapshots the core's current state.
func (m Model) fetchData() tea.Cmd {
	return func() tea.Msg {
		return RefreshDataMsg{
			Mutations:      m.Core.Queue.All(),
			PendingUpdates: m.Core.Updates.PendingCount(),
			Online:         m.Core.Manager.IsOnline(),
			Timestamp:      time.Now(),
		}
	}
}

// waitForState blocks on the engine's state stream.
func (m Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.states
		if !ok {
			return nil
		}
		return SyncStateMsg(s)
	}
}

// waitForOnline blocks on the connectivity transition stream.
func (m Model) waitForOnline() tea.Cmd {
	return func() tea.Msg {
		v, ok := <-m.online
		if !ok {
			return nil
		}
		return OnlineMsg(v)
	}
}
