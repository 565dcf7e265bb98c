package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultIdleTimeout = 10 * time.Minute
	cleanupInterval    = 10 * time.Second
)

// Registry keeps the live sessions of a server by ID and expires idle ones
type Registry struct {
	rules       Rules
	idleTimeout time.Duration
	opts        []SessionOption

	mu       sync.RWMutex
	sessions map[string]*Session
	onExpire func(s *Session)
}

// NewRegistry creates a registry dealing games with rules. onExpire, if
// set, is called for every session dropped by the idle cleanup.
func NewRegistry(rules Rules, idleTimeout time.Duration, onExpire func(s *Session), opts ...SessionOption) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Registry{
		rules:       rules,
		idleTimeout: idleTimeout,
		opts:        opts,
		sessions:    make(map[string]*Session),
		onExpire:    onExpire,
	}
}

// Create registers a new stopped session
func (r *Registry) Create() *Session {
	s := NewSession(r.rules, r.opts...)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	return s
}

// Get returns the session with id, or nil
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Remove closes and drops a session. It reports whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Run expires idle sessions until ctx is done, then closes every session
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case now := <-ticker.C:
			r.cleanupIdle(now)
		}
	}
}

func (r *Registry) cleanupIdle(now time.Time) {
	r.mu.Lock()
	expired := make([]*Session, 0)
	for id, s := range r.sessions {
		if now.Sub(s.LastActive()) >= r.idleTimeout {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
		log.Debug().Str("game", s.ID).Msg("session expired")
		if r.onExpire != nil {
			r.onExpire(s)
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
