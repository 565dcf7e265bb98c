package store

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

// Store keeps the log of finished games
type Store interface {
	SaveResult(ctx context.Context, result Result) error
	// RecentResults returns up to limit results, newest first
	RecentResults(ctx context.Context, limit int) ([]Result, error)
	Close() error
}

// Result is one finished game
type Result struct {
	GameID      string    `json:"gameId"`
	Outcome     string    `json:"outcome"` // won, lost
	Rows        int       `json:"rows"`
	Cols        int       `json:"cols"`
	SecondsLeft int       `json:"secondsLeft"`
	FinishedAt  time.Time `json:"finishedAt"`
}

// ClampLimit maps a requested page size into 1..MaxRecentLimit, with
// DefaultRecentLimit for anything non-positive.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}

// MemoryStore implements Store in memory (for testing/simple deployments)
type MemoryStore struct {
	mu      sync.RWMutex
	results []Result
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveResult(ctx context.Context, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, result)
	if len(s.results) > MaxRecentLimit {
		s.results = s.results[len(s.results)-MaxRecentLimit:]
	}
	return nil
}

func (s *MemoryStore) RecentResults(ctx context.Context, limit int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = min(ClampLimit(limit), len(s.results))
	out := make([]Result, 0, limit)
	for i := len(s.results) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.results[i])
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
