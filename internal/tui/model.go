// Package tui plays a Session in the terminal.
package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"memory-pairs/internal/game"
)

type snapshotMsg game.Snapshot

// Model is the Bubble Tea model for one local game
type Model struct {
	session *game.Session
	rules   game.Rules

	updates chan game.Snapshot
	done    chan struct{}
	stop    func()

	snap   game.Snapshot
	cursor int
	err    error
}

// New subscribes to session and returns a model showing its current state
func New(session *game.Session) Model {
	updates := make(chan game.Snapshot, 1)
	done := make(chan struct{})

	cancel := session.Subscribe(func(snap game.Snapshot) {
		// keep only the newest snapshot; the subscriber must never block
		for {
			select {
			case updates <- snap:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})

	return Model{
		session: session,
		rules:   session.Rules(),
		updates: updates,
		done:    done,
		stop: sync.OnceFunc(func() {
			cancel()
			session.Close()
			close(done)
		}),
		snap: session.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.updates, m.done)
}

func waitForSnapshot(updates <-chan game.Snapshot, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case snap := <-updates:
			return snapshotMsg(snap)
		case <-done:
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		if msg.Version > m.snap.Version {
			m.snap = game.Snapshot(msg)
		}
		return m, waitForSnapshot(m.updates, m.done)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.stop()
			return m, tea.Quit
		case "up", "k":
			m.move(-1, 0)
		case "down", "j":
			m.move(1, 0)
		case "left", "h":
			m.move(0, -1)
		case "right", "l":
			m.move(0, 1)
		case "enter", " ":
			m.click()
		}
	}
	return m, nil
}

func (m *Model) move(dr, dc int) {
	row, col := m.cursor/m.rules.Cols, m.cursor%m.rules.Cols
	row = min(max(row+dr, 0), m.rules.Rows-1)
	col = min(max(col+dc, 0), m.rules.Cols-1)
	m.cursor = row*m.rules.Cols + col
}

func (m *Model) click() {
	index := game.NoCell
	if m.snap.State.Phase == game.PhaseRunning {
		index = m.cursor
	}
	if m.err = m.session.Click(index); m.err != nil {
		log.Warn().Err(m.err).Msg("click failed")
	}
	if snap := m.session.Snapshot(); snap.Version > m.snap.Version {
		m.snap = snap
	}
}

// Snapshot returns the state the model last rendered from
func (m Model) Snapshot() game.Snapshot {
	return m.snap
}
