package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"memory-pairs/internal/game"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newModel returns a model over a 2x2 game dealt as
//
//	A B
//	A B
func newModel(t *testing.T) Model {
	t.Helper()
	rules := game.Rules{Rows: 2, Cols: 2, TimeLimit: 60, TickInterval: time.Hour, MismatchDelay: time.Hour}
	session := game.NewSession(rules, game.WithBoardFunc(func(rows, cols int) (game.Board, error) {
		return game.Board{{Symbol: 'A'}, {Symbol: 'B'}, {Symbol: 'A'}, {Symbol: 'B'}}, nil
	}))
	m := New(session)
	t.Cleanup(m.stop)
	return m
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	up    = tea.KeyMsg{Type: tea.KeyUp}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	left  = tea.KeyMsg{Type: tea.KeyLeft}
	right = tea.KeyMsg{Type: tea.KeyRight}
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStoppedScreen(t *testing.T) {
	m := newModel(t)

	view := m.View()
	require.Contains(t, view, "Lets Go!")
	require.NotContains(t, view, ":)")
	require.Contains(t, view, "Memory game")
	require.Contains(t, view, "Click anywhere to start!")
	require.NotContains(t, view, "Seconds left")
}

func TestEnterStartsGame(t *testing.T) {
	m := press(t, newModel(t), enter)

	snap := m.Snapshot()
	require.Equal(t, game.PhaseRunning, snap.State.Phase)
	require.Equal(t, 60, snap.State.SecondsLeft)
	require.Contains(t, m.View(), ":)  Seconds left: 60")
	require.NotContains(t, m.View(), "Lets Go!")
	require.NotContains(t, m.View(), "Click anywhere")
}

func TestCursorMovesAndClamps(t *testing.T) {
	m := press(t, newModel(t), enter)
	require.Equal(t, 0, m.cursor)

	m = press(t, m, left, up)
	require.Equal(t, 0, m.cursor)

	m = press(t, m, right, right)
	require.Equal(t, 1, m.cursor)

	m = press(t, m, down, down)
	require.Equal(t, 3, m.cursor)

	m = press(t, m, runes("h"), runes("k"))
	require.Equal(t, 0, m.cursor)

	m = press(t, m, runes("j"), runes("l"))
	require.Equal(t, 3, m.cursor)
}

func TestPlayToVictory(t *testing.T) {
	m := press(t, newModel(t), enter)

	// A at 0 and 2
	m = press(t, m, space, down, space)
	board := m.Snapshot().State.Board
	require.Equal(t, game.CellDone, board[0].Status)
	require.Equal(t, game.CellDone, board[2].Status)

	// B at 3 and 1
	m = press(t, m, right, enter, up, enter)
	require.Equal(t, game.PhaseWon, m.Snapshot().State.Phase)
	require.Contains(t, m.View(), "Victory!")
	require.Contains(t, m.View(), "Click anywhere to try again!")
	require.Contains(t, m.View(), "Lets Go!")
	require.NotContains(t, m.View(), ":)")

	// any click restarts
	m = press(t, m, enter)
	require.Equal(t, game.PhaseRunning, m.Snapshot().State.Phase)
}

func TestMismatchShowsFailedCards(t *testing.T) {
	m := press(t, newModel(t), enter)

	m = press(t, m, enter, right, enter)
	board := m.Snapshot().State.Board
	require.Equal(t, game.CellFailed, board[0].Status)
	require.Equal(t, game.CellFailed, board[1].Status)
	require.Equal(t, game.ResolutionMismatched, m.Snapshot().Resolution)
}

func TestLostScreen(t *testing.T) {
	m := newModel(t)
	m.snap = game.Snapshot{Version: 9, State: game.GameState{Phase: game.PhaseLost}}
	require.Contains(t, m.View(), "Defeat!")
	require.Contains(t, m.View(), "Click anywhere to try again!")
	require.Contains(t, m.View(), "Lets Go!")
}

func TestSnapshotMsgKeepsNewest(t *testing.T) {
	m := press(t, newModel(t), enter)
	current := m.Snapshot()

	next, cmd := m.Update(snapshotMsg(game.Snapshot{Version: current.Version - 1}))
	require.NotNil(t, cmd)
	require.Equal(t, current, next.(Model).Snapshot())

	newer := current
	newer.Version++
	newer.State.SecondsLeft = 59
	next, _ = m.Update(snapshotMsg(newer))
	require.Equal(t, 59, next.(Model).Snapshot().State.SecondsLeft)
}

func TestSubscriberDeliversLatestSnapshot(t *testing.T) {
	m := newModel(t)
	press(t, m, enter)

	msg := m.Init()()
	snap, ok := msg.(snapshotMsg)
	require.True(t, ok)
	require.Equal(t, game.PhaseRunning, snap.State.Phase)
}

func TestQuitClosesSession(t *testing.T) {
	m := newModel(t)

	for _, key := range []tea.KeyMsg{runes("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(key)
		require.NotNil(t, cmd)
		require.IsType(t, tea.QuitMsg{}, cmd())
	}
	require.True(t, m.session.Closed())

	// pending waits return once the model has stopped
	require.Nil(t, waitForSnapshot(m.updates, m.done)())
}
