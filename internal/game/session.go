package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NoCell is the click index for a click that lands outside every card
const NoCell = -1

// BoardFunc deals the board for a new game
type BoardFunc func(rows, cols int) (Board, error)

// Snapshot is handed to subscribers after every change
type Snapshot struct {
	GameID     string
	Version    uint64
	State      GameState
	Resolution Resolution
	Ended      bool // true only on the change that left the running phase
}

// SessionOption customizes a Session
type SessionOption func(*Session)

// WithBoardFunc replaces the shuffled board dealer
func WithBoardFunc(fn BoardFunc) SessionOption {
	return func(s *Session) { s.newBoard = fn }
}

// WithID sets the session ID instead of a random UUID
func WithID(id string) SessionOption {
	return func(s *Session) { s.ID = id }
}

// Session owns one game and serializes clicks, countdown ticks and
// mismatch resets. Each new game bumps the generation; timer callbacks
// scheduled under an older generation are dropped.
type Session struct {
	ID string

	rules    Rules
	newBoard BoardFunc

	mu         sync.Mutex
	state      GameState
	version    uint64
	generation uint64
	closed     bool
	lastActive time.Time
	ticker     *time.Ticker
	tickerDone chan struct{}
	resetTimer *time.Timer

	// notifyMu is acquired before mu is released so subscribers observe
	// snapshots in version order.
	notifyMu sync.Mutex

	subsMu      sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// NewSession creates a stopped session
func NewSession(rules Rules, opts ...SessionOption) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		rules:       rules,
		newBoard:    MakeBoard,
		state:       NewGameState(),
		lastActive:  time.Now(),
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the rules the session deals games with
func (s *Session) Rules() Rules {
	return s.rules
}

// Subscribe registers fn for every future snapshot. fn runs on the
// goroutine that made the change and must not call back into the Session.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subscribers, id)
	}
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(ResolutionNone, false)
}

// LastActive returns the time of the last click or start
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Closed reports whether Close has been called
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Click handles a click on the game area. Outside the running phase any
// click starts a new game; while running, a click on a card opens it.
func (s *Session) Click(index int) error {
	if s.Snapshot().State.Phase != PhaseRunning {
		_, err := s.Start()
		return err
	}
	if index != NoCell {
		s.Open(index)
	}
	return nil
}

// Start deals a new board and starts the countdown. It is a no-op while a
// game is running. A board error leaves the session unchanged.
func (s *Session) Start() (bool, error) {
	s.mu.Lock()

	if s.closed || s.state.Phase == PhaseRunning {
		s.mu.Unlock()
		return false, nil
	}

	board, err := s.newBoard(s.rules.Rows, s.rules.Cols)
	if err != nil {
		s.mu.Unlock()
		log.Warn().Err(err).Str("game", s.ID).Msg("start failed")
		return false, err
	}

	s.stopTimersLocked()
	s.generation++
	s.lastActive = time.Now()

	s.state = StartWithBoard(board, s.rules.TimeLimit)
	next := CheckOutcome(s.state)
	snap := s.commitLocked(next, ResolutionNone)
	if next.Phase == PhaseRunning {
		s.startTickerLocked(s.generation)
	}

	log.Debug().Str("game", s.ID).Int("cells", len(board)).Msg("game started")
	s.unlockAndNotify(snap)
	return true, nil
}

// Open flips the card at index and resolves the pair if it is the second
// one. It returns false when the card cannot be opened.
func (s *Session) Open(index int) bool {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return false
	}

	opened, ok := s.state.OpenCell(index)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.lastActive = time.Now()

	next, res := Settle(opened)
	snap := s.commitLocked(next, res)
	if res == ResolutionMismatched && next.Phase == PhaseRunning {
		s.scheduleResetLocked(s.generation)
	}

	log.Debug().Str("game", s.ID).Int("index", index).Str("resolution", string(res)).Msg("cell opened")
	s.unlockAndNotify(snap)
	return true
}

// Close stops all timers. Later clicks are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	s.stopTimersLocked()
}

func (s *Session) tick(gen uint64) bool {
	s.mu.Lock()

	if s.staleLocked(gen) || s.state.Phase != PhaseRunning {
		s.mu.Unlock()
		return false
	}

	next, res := Settle(s.state.NextSecond())
	snap := s.commitLocked(next, res)
	s.unlockAndNotify(snap)

	return next.Phase == PhaseRunning
}

func (s *Session) reset(gen uint64) {
	s.mu.Lock()

	if s.staleLocked(gen) || s.state.Phase != PhaseRunning {
		s.mu.Unlock()
		return
	}
	s.resetTimer = nil

	next, res := Settle(s.state.Reset())
	snap := s.commitLocked(next, res)
	s.unlockAndNotify(snap)
}

func (s *Session) staleLocked(gen uint64) bool {
	return s.closed || gen != s.generation
}

// commitLocked installs next as the current state and tears the timers
// down once the game is no longer running.
func (s *Session) commitLocked(next GameState, res Resolution) Snapshot {
	ended := s.state.Phase == PhaseRunning && next.Phase.Finished()

	s.state = next
	s.version++

	if next.Phase != PhaseRunning {
		s.stopTimersLocked()
	}
	if ended {
		log.Info().Str("game", s.ID).Str("outcome", string(next.Phase)).Int("secondsLeft", next.SecondsLeft).Msg("game over")
	}

	return s.snapshotLocked(res, ended)
}

func (s *Session) snapshotLocked(res Resolution, ended bool) Snapshot {
	return Snapshot{
		GameID:     s.ID,
		Version:    s.version,
		State:      s.state,
		Resolution: res,
		Ended:      ended,
	}
}

// unlockAndNotify releases mu and delivers snap to every subscriber
func (s *Session) unlockAndNotify(snap Snapshot) {
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.subsMu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Session) startTickerLocked(gen uint64) {
	ticker := time.NewTicker(s.rules.TickInterval)
	done := make(chan struct{})
	s.ticker = ticker
	s.tickerDone = done

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !s.tick(gen) {
					return
				}
			}
		}
	}()
}

func (s *Session) scheduleResetLocked(gen uint64) {
	if s.resetTimer != nil {
		s.resetTimer.Stop()
	}
	s.resetTimer = time.AfterFunc(s.rules.MismatchDelay, func() {
		s.reset(gen)
	})
}

func (s *Session) stopTimersLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.tickerDone != nil {
		close(s.tickerDone)
		s.tickerDone = nil
	}
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
}
