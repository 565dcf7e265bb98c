package game

import "time"

// Phase represents the current game phase
type Phase string

const (
	PhaseStopped Phase = "stopped"
	PhaseRunning Phase = "running"
	PhaseWon     Phase = "won"
	PhaseLost    Phase = "lost"
)

// Finished reports whether the phase is a terminal screen
func (p Phase) Finished() bool {
	return p == PhaseWon || p == PhaseLost
}

const (
	DefaultRows          = 4
	DefaultCols          = 3
	DefaultTimeLimit     = 60
	DefaultTickInterval  = time.Second
	DefaultMismatchDelay = 500 * time.Millisecond
)

// Rules configures a game
type Rules struct {
	Rows          int
	Cols          int
	TimeLimit     int // seconds
	TickInterval  time.Duration
	MismatchDelay time.Duration
}

// DefaultRules returns the classic 4x3, one minute game
func DefaultRules() Rules {
	return Rules{
		Rows:          DefaultRows,
		Cols:          DefaultCols,
		TimeLimit:     DefaultTimeLimit,
		TickInterval:  DefaultTickInterval,
		MismatchDelay: DefaultMismatchDelay,
	}
}

// GameState is an immutable snapshot of one game. Transitions return a new
// value; the board is never modified in place.
type GameState struct {
	Board       Board
	Phase       Phase
	SecondsLeft int
}

// NewGameState returns the idle state shown before the first game
func NewGameState() GameState {
	return GameState{
		Board: Board{},
		Phase: PhaseStopped,
	}
}

// StartGame deals a fresh board and starts the countdown
func StartGame(rules Rules) (GameState, error) {
	board, err := MakeBoard(rules.Rows, rules.Cols)
	if err != nil {
		return GameState{}, err
	}
	return StartWithBoard(board, rules.TimeLimit), nil
}

// StartWithBoard starts a running game on a prepared board
func StartWithBoard(board Board, secondsLeft int) GameState {
	return GameState{
		Board:       board,
		Phase:       PhaseRunning,
		SecondsLeft: secondsLeft,
	}
}

// CanOpenCell reports whether a click on index would flip a card
func (gs GameState) CanOpenCell(index int) bool {
	return gs.Phase == PhaseRunning && gs.Board.CanOpenAt(index)
}

// OpenCell flips the card at index. The second return value is false and
// the state unchanged when the card cannot be opened.
func (gs GameState) OpenCell(index int) (GameState, bool) {
	if !gs.CanOpenCell(index) {
		return gs, false
	}
	gs.Board = gs.Board.SetStatusAt(index, CellOpen)
	return gs, true
}

// Succeed marks the open cards as found
func (gs GameState) Succeed() GameState {
	gs.Board = gs.Board.SetStatusesBy(IsOpen, CellDone)
	return gs
}

// Fail marks the open cards as a mismatch
func (gs GameState) Fail() GameState {
	gs.Board = gs.Board.SetStatusesBy(IsOpen, CellFailed)
	return gs
}

// Reset turns mismatched cards face down again
func (gs GameState) Reset() GameState {
	gs.Board = gs.Board.SetStatusesBy(IsFailed, CellClosed)
	return gs
}

// NextSecond advances the countdown, never below zero
func (gs GameState) NextSecond() GameState {
	gs.SecondsLeft = max(gs.SecondsLeft-1, 0)
	return gs
}

func (gs GameState) HasWinningCond() bool { return gs.Board.AllDone() }
func (gs GameState) HasLosingCond() bool  { return gs.SecondsLeft == 0 }

// WithPhase returns the state with its phase replaced
func (gs GameState) WithPhase(phase Phase) GameState {
	gs.Phase = phase
	return gs
}

// Resolution is the outcome of comparing the open cards
type Resolution string

const (
	ResolutionNone       Resolution = "none"
	ResolutionMatched    Resolution = "matched"
	ResolutionMismatched Resolution = "mismatched"
)

// ResolveMatch turns a matching pair of open cards into done cards and a
// mismatching pair into failed cards. The caller owns the delayed Reset
// that follows a mismatch.
func ResolveMatch(gs GameState) (GameState, Resolution) {
	switch {
	case gs.Board.OpensEqual():
		return gs.Succeed(), ResolutionMatched
	case gs.Board.OpensDifferent():
		return gs.Fail(), ResolutionMismatched
	default:
		return gs, ResolutionNone
	}
}

// CheckOutcome ends a running game. Winning is checked before losing.
func CheckOutcome(gs GameState) GameState {
	if gs.Phase != PhaseRunning {
		return gs
	}
	if gs.HasWinningCond() {
		return gs.WithPhase(PhaseWon)
	}
	if gs.HasLosingCond() {
		return gs.WithPhase(PhaseLost)
	}
	return gs
}

// Settle runs the post-transition hooks in order: match resolution, then
// the win/lose check.
func Settle(gs GameState) (GameState, Resolution) {
	gs, res := ResolveMatch(gs)
	return CheckOutcome(gs), res
}
