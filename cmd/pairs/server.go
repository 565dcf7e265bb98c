package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"memory-pairs/internal/config"
	"memory-pairs/internal/events"
	"memory-pairs/internal/game"
	"memory-pairs/internal/store"
	"memory-pairs/internal/ws"
)

const recordTimeout = 5 * time.Second

// Server holds all server state
type Server struct {
	cfg       config.Config
	hub       *ws.Hub
	registry  *game.Registry
	store     store.Store
	publisher events.Publisher
	router    *chi.Mux
	upgrader  websocket.Upgrader

	// broadcast subscription per live game
	watchMu sync.Mutex
	watches map[string]func()

	// pending result writes; no new ones start once recordsClosed is set
	recordsMu     sync.Mutex
	recordsClosed bool
	records       sync.WaitGroup
}

// NewServer creates a new server instance
func NewServer(cfg config.Config, st store.Store, pub events.Publisher, opts ...game.SessionOption) *Server {
	s := &Server{
		cfg:       cfg,
		hub:       ws.NewHub(),
		store:     st,
		publisher: pub,
		watches:   make(map[string]func()),
	}
	s.registry = game.NewRegistry(cfg.Rules(), cfg.IdleTimeout, s.expireGame, opts...)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/api/results", s.handleResults)
	r.Handle("/*", http.FileServer(http.Dir(s.cfg.StaticDir)))

	return r
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler { return s.router }

// Run drives the hub and the idle cleanup until ctx is done
func (s *Server) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		s.registry.Run(ctx)
	}()
	wg.Wait()
	s.drainRecords()
}

// drainRecords stops new result writes and waits for pending ones
func (s *Server) drainRecords() {
	s.recordsMu.Lock()
	s.recordsClosed = true
	s.recordsMu.Unlock()

	s.records.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"games":   s.registry.Len(),
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_limit"})
			return
		}
		limit = n
	}

	results, err := s.store.RecentResults(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("load results")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store_unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}

	// Reuse the client ID across reconnects when the browser sends one
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	client := ws.NewClient(s.hub, conn, clientID)
	s.hub.Register(client)

	go client.WritePump()

	client.ReadPump(s.handleMessage, s.disconnect)
}

func (s *Server) handleMessage(client *ws.Client, msg *ws.Message) {
	if !ws.IsMessageAllowed(client.GetState(), msg.Type) {
		s.sendError(client, "invalid_state",
			"Message "+string(msg.Type)+" not allowed in state "+string(client.GetState()))
		return
	}

	switch msg.Type {
	case ws.MsgNewGame:
		s.handleNewGame(client)
	case ws.MsgAttach:
		s.handleAttach(client, msg)
	case ws.MsgClick:
		s.handleClick(client, msg)
	case ws.MsgLeave:
		s.leaveGame(client)
	default:
		log.Debug().Str("client", client.ID).Str("type", string(msg.Type)).Msg("unknown message type")
	}
}

func (s *Server) handleNewGame(client *ws.Client) {
	s.leaveGame(client)

	sess := s.registry.Create()
	s.watch(sess)
	s.attach(client, sess)

	log.Info().Str("client", client.ID).Str("game", sess.ID).Msg("game created")
}

func (s *Server) handleAttach(client *ws.Client, msg *ws.Message) {
	var payload ws.AttachPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.sendError(client, "invalid_payload", "Invalid attach payload")
		return
	}

	sess := s.registry.Get(payload.GameID)
	if sess == nil {
		s.sendError(client, "game_not_found", "Game not found")
		return
	}

	if client.GameID() != sess.ID {
		s.leaveGame(client)
	}
	s.attach(client, sess)
}

func (s *Server) handleClick(client *ws.Client, msg *ws.Message) {
	var payload ws.ClickPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			s.sendError(client, "invalid_payload", "Invalid click payload")
			return
		}
	}

	sess := s.registry.Get(client.GameID())
	if sess == nil {
		client.Detach()
		s.sendError(client, "game_not_found", "Game not found")
		return
	}

	index := game.NoCell
	if payload.Index != nil {
		index = *payload.Index
	}
	if err := sess.Click(index); err != nil {
		s.sendError(client, "start_failed", err.Error())
	}
}

// attach moves client into sess and sends it the current state
func (s *Server) attach(client *ws.Client, sess *game.Session) {
	client.AttachGame(sess.ID)

	rules := sess.Rules()
	sessionMsg, err := ws.NewMessage(ws.MsgSession, ws.SessionPayload{
		GameID:    sess.ID,
		Rows:      rules.Rows,
		Cols:      rules.Cols,
		TimeLimit: rules.TimeLimit,
	})
	if err == nil {
		client.SendMessage(sessionMsg)
	}

	stateMsg, err := ws.NewMessage(ws.MsgGameState, ws.NewGameStatePayload(sess.Snapshot(), rules))
	if err == nil {
		client.SendMessage(stateMsg)
	}
}

// disconnect detaches a closed connection but keeps its game, so the
// player can reconnect and attach again. Idle expiry drops it otherwise.
func (s *Server) disconnect(client *ws.Client) {
	if gameID := client.Detach(); gameID != "" {
		log.Debug().Str("client", client.ID).Str("game", gameID).Msg("client disconnected from game")
	}
}

// leaveGame detaches client and drops the game once nobody watches it
func (s *Server) leaveGame(client *ws.Client) {
	gameID := client.Detach()
	if gameID == "" {
		return
	}
	if len(s.hub.ClientsForGame(gameID)) == 0 {
		s.removeGame(gameID)
	}
}

func (s *Server) removeGame(gameID string) {
	s.unwatch(gameID)
	if s.registry.Remove(gameID) {
		log.Debug().Str("game", gameID).Msg("game removed")
	}
}

// expireGame runs for games dropped by the idle cleanup
func (s *Server) expireGame(sess *game.Session) {
	s.unwatch(sess.ID)
	for _, c := range s.hub.ClientsForGame(sess.ID) {
		c.Detach()
		s.sendError(c, "game_expired", "Game expired after inactivity")
	}
}

// watch broadcasts every snapshot of sess to its clients and records the
// result when a game ends
func (s *Server) watch(sess *game.Session) {
	rules := sess.Rules()
	cancel := sess.Subscribe(func(snap game.Snapshot) {
		msg, err := ws.NewMessage(ws.MsgGameState, ws.NewGameStatePayload(snap, rules))
		if err != nil {
			log.Error().Err(err).Str("game", snap.GameID).Msg("encode game_state")
			return
		}
		s.hub.BroadcastToGame(snap.GameID, msg)

		if !snap.Ended {
			return
		}
		endMsg, err := ws.NewMessage(ws.MsgGameEnd, ws.GameEndPayload{
			GameID:      snap.GameID,
			Outcome:     string(snap.State.Phase),
			SecondsLeft: snap.State.SecondsLeft,
		})
		if err == nil {
			s.hub.BroadcastToGame(snap.GameID, endMsg)
		}

		// the subscriber runs under the session's notify lock
		s.goRecord(snap, rules)
	})

	s.watchMu.Lock()
	s.watches[sess.ID] = cancel
	s.watchMu.Unlock()
}

func (s *Server) unwatch(gameID string) {
	s.watchMu.Lock()
	cancel, ok := s.watches[gameID]
	delete(s.watches, gameID)
	s.watchMu.Unlock()

	if ok {
		cancel()
	}
}

func (s *Server) goRecord(snap game.Snapshot, rules game.Rules) {
	s.recordsMu.Lock()
	defer s.recordsMu.Unlock()

	if s.recordsClosed {
		log.Warn().Str("game", snap.GameID).Msg("result dropped during shutdown")
		return
	}
	s.records.Add(1)
	go func() {
		defer s.records.Done()
		s.recordResult(snap, rules)
	}()
}

func (s *Server) recordResult(snap game.Snapshot, rules game.Rules) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	now := time.Now().UTC()
	outcome := string(snap.State.Phase)

	if err := s.store.SaveResult(ctx, store.Result{
		GameID:      snap.GameID,
		Outcome:     outcome,
		Rows:        rules.Rows,
		Cols:        rules.Cols,
		SecondsLeft: snap.State.SecondsLeft,
		FinishedAt:  now,
	}); err != nil {
		log.Error().Err(err).Str("game", snap.GameID).Msg("save result")
	}

	if err := s.publisher.Publish(ctx, events.Event{
		GameID:      snap.GameID,
		Outcome:     outcome,
		SecondsLeft: snap.State.SecondsLeft,
		Rows:        rules.Rows,
		Cols:        rules.Cols,
		At:          now,
	}); err != nil {
		log.Error().Err(err).Str("game", snap.GameID).Msg("publish result")
	}
}

func (s *Server) sendError(client *ws.Client, code, message string) {
	errMsg, _ := ws.NewErrorMessage(code, message)
	client.SendMessage(errMsg)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if isOriginAllowed(origin, s.cfg.AllowedOrigins) {
		return true
	}
	log.Warn().Str("origin", origin).Msg("websocket origin rejected")
	return false
}

// isOriginAllowed accepts exact (case-insensitive) matches from allowed.
// With no list configured only local origins pass. "*" matches nothing.
func isOriginAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	if len(allowed) == 0 {
		return isLocalOrigin(origin)
	}
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "" || a == "*" {
			continue
		}
		if strings.EqualFold(origin, a) {
			return true
		}
	}
	return false
}

func isLocalOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	switch host := strings.ToLower(u.Hostname()); host {
	case "localhost":
		return true
	default:
		ip := net.ParseIP(host)
		return ip != nil && ip.IsLoopback()
	}
}
