package game

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fastRules keeps the countdown out of the way unless a test shortens it
func fastRules() Rules {
	return Rules{
		Rows:          2,
		Cols:          2,
		TimeLimit:     60,
		TickInterval:  time.Hour,
		MismatchDelay: 20 * time.Millisecond,
	}
}

func fixedBoard(rows, cols int) (Board, error) {
	return testBoard(), nil
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func (r *recorder) ended() []Snapshot {
	var out []Snapshot
	for _, s := range r.all() {
		if s.Ended {
			out = append(out, s)
		}
	}
	return out
}

func TestSessionStartsStopped(t *testing.T) {
	s := NewSession(fastRules(), WithID("game-1"))
	defer s.Close()

	snap := s.Snapshot()
	require.Equal(t, "game-1", snap.GameID)
	require.Equal(t, PhaseStopped, snap.State.Phase)
	require.Empty(t, snap.State.Board)
}

func TestSessionClickStartsThenOpens(t *testing.T) {
	s := NewSession(fastRules(), WithBoardFunc(fixedBoard))
	defer s.Close()

	require.NoError(t, s.Click(NoCell))
	snap := s.Snapshot()
	require.Equal(t, PhaseRunning, snap.State.Phase)
	require.Equal(t, 60, snap.State.SecondsLeft)

	require.NoError(t, s.Click(0))
	require.Equal(t, CellOpen, s.Snapshot().State.Board.StatusAt(0))

	// a second start click while running changes nothing
	started, err := s.Start()
	require.NoError(t, err)
	require.False(t, started)
	require.Equal(t, CellOpen, s.Snapshot().State.Board.StatusAt(0))
}

func TestSessionMatchAndWin(t *testing.T) {
	s := NewSession(fastRules(), WithBoardFunc(fixedBoard))
	defer s.Close()
	rec := &recorder{}
	s.Subscribe(rec.record)

	require.NoError(t, s.Click(NoCell))
	require.True(t, s.Open(0))
	require.True(t, s.Open(2))

	snap := s.Snapshot()
	require.Equal(t, CellDone, snap.State.Board.StatusAt(0))
	require.Equal(t, CellDone, snap.State.Board.StatusAt(2))

	require.True(t, s.Open(1))
	require.True(t, s.Open(3))

	snap = s.Snapshot()
	require.Equal(t, PhaseWon, snap.State.Phase)
	require.Len(t, rec.ended(), 1)
	require.Equal(t, ResolutionMatched, rec.ended()[0].Resolution)

	s.mu.Lock()
	require.Nil(t, s.ticker, "countdown must stop once the game is won")
	s.mu.Unlock()

	require.False(t, s.Open(0))
}

func TestSessionMismatchResetsAfterDelay(t *testing.T) {
	s := NewSession(fastRules(), WithBoardFunc(fixedBoard))
	defer s.Close()

	require.NoError(t, s.Click(NoCell))
	require.True(t, s.Open(0))
	require.True(t, s.Open(1))

	board := s.Snapshot().State.Board
	require.Equal(t, CellFailed, board.StatusAt(0))
	require.Equal(t, CellFailed, board.StatusAt(1))
	require.False(t, s.Open(2), "two failed cards block opening")

	require.Eventually(t, func() bool {
		return len(s.Snapshot().State.Board.StatusesBy(IsBlocking)) == 0
	}, time.Second, 5*time.Millisecond)

	require.True(t, s.Open(2))
}

func TestSessionDropsStaleReset(t *testing.T) {
	rules := fastRules()
	rules.MismatchDelay = time.Hour
	s := NewSession(rules, WithBoardFunc(fixedBoard))
	defer s.Close()

	require.NoError(t, s.Click(NoCell))
	s.mu.Lock()
	oldGen := s.generation
	s.mu.Unlock()

	// finish the first game, then start another and mismatch in it
	require.True(t, s.Open(0))
	require.True(t, s.Open(2))
	require.True(t, s.Open(1))
	require.True(t, s.Open(3))
	require.Equal(t, PhaseWon, s.Snapshot().State.Phase)

	require.NoError(t, s.Click(NoCell))
	require.True(t, s.Open(0))
	require.True(t, s.Open(1))

	s.reset(oldGen)

	board := s.Snapshot().State.Board
	require.Equal(t, CellFailed, board.StatusAt(0), "reset from a previous game must not touch the new one")
	require.Equal(t, CellFailed, board.StatusAt(1))
}

func TestSessionCountdownLoses(t *testing.T) {
	rules := fastRules()
	rules.TimeLimit = 3
	rules.TickInterval = 5 * time.Millisecond
	s := NewSession(rules, WithBoardFunc(fixedBoard))
	defer s.Close()
	rec := &recorder{}
	s.Subscribe(rec.record)

	require.NoError(t, s.Click(NoCell))

	require.Eventually(t, func() bool {
		return s.Snapshot().State.Phase == PhaseLost
	}, time.Second, 5*time.Millisecond)

	snap := s.Snapshot()
	require.Equal(t, 0, snap.State.SecondsLeft)

	ended := rec.ended()
	require.Len(t, ended, 1)
	require.Equal(t, PhaseLost, ended[0].State.Phase)

	// no ticks after the game is over
	version := snap.Version
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, version, s.Snapshot().Version)
}

func TestSessionSnapshotsArriveInOrder(t *testing.T) {
	rules := fastRules()
	rules.TickInterval = time.Millisecond
	rules.TimeLimit = 20
	s := NewSession(rules, WithBoardFunc(fixedBoard))
	defer s.Close()
	rec := &recorder{}
	s.Subscribe(rec.record)

	require.NoError(t, s.Click(NoCell))
	for i := 0; i < 4; i++ {
		s.Open(i)
	}

	require.Eventually(t, func() bool {
		return s.Snapshot().State.Phase != PhaseRunning
	}, time.Second, 2*time.Millisecond)

	snaps := rec.all()
	require.NotEmpty(t, snaps)
	for i := 1; i < len(snaps); i++ {
		require.Equal(t, snaps[i-1].Version+1, snaps[i].Version)
	}
}

func TestSessionStartError(t *testing.T) {
	boom := errors.New("no cards")
	s := NewSession(fastRules(), WithBoardFunc(func(int, int) (Board, error) {
		return nil, boom
	}))
	defer s.Close()

	err := s.Click(NoCell)
	require.ErrorIs(t, err, boom)
	require.Equal(t, PhaseStopped, s.Snapshot().State.Phase)
	require.Zero(t, s.Snapshot().Version)
}

func TestSessionInvalidDimensionsAbortStart(t *testing.T) {
	rules := fastRules()
	rules.Rows, rules.Cols = 3, 3
	s := NewSession(rules)
	defer s.Close()

	require.ErrorIs(t, s.Click(NoCell), ErrOddCells)
	require.Equal(t, PhaseStopped, s.Snapshot().State.Phase)
}

func TestSessionUnsubscribe(t *testing.T) {
	s := NewSession(fastRules(), WithBoardFunc(fixedBoard))
	defer s.Close()
	rec := &recorder{}
	cancel := s.Subscribe(rec.record)

	require.NoError(t, s.Click(NoCell))
	cancel()
	s.Open(0)

	require.Len(t, rec.all(), 1)
}

func TestSessionClosedIgnoresClicks(t *testing.T) {
	s := NewSession(fastRules(), WithBoardFunc(fixedBoard))
	require.NoError(t, s.Click(NoCell))
	s.Close()
	require.True(t, s.Closed())

	require.False(t, s.Open(0))
	started, err := s.Start()
	require.NoError(t, err)
	require.False(t, started)
}
