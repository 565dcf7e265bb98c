package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ClientState gates which messages a client may send
type ClientState string

const (
	ClientLobby  ClientState = "lobby"
	ClientInGame ClientState = "in_game"
)

// Hub maintains the set of active clients
type Hub struct {
	// Registered clients by ID
	clients map[string]*Client

	// Mutex for clients map
	mu sync.RWMutex

	register   chan *Client
	unregister chan *Client

	// done is closed when Run returns
	done chan struct{}
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop and closes every client when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				c.Close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			// A reconnect with the same ID replaces the old connection
			if existing, ok := h.clients[client.ID]; ok && existing != client {
				existing.Close()
			}
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Debug().Str("client", client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			// Only unregister if it's the same client instance
			if existing, ok := h.clients[client.ID]; ok && existing == client {
				delete(h.clients, client.ID)
				log.Debug().Str("client", client.ID).Msg("client unregistered")
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// GetClient returns a client by ID
func (h *Hub) GetClient(id string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientsForGame returns the clients attached to a game
func (h *Hub) ClientsForGame(gameID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Client
	for _, c := range h.clients {
		if c.GameID() == gameID {
			out = append(out, c)
		}
	}
	return out
}

// BroadcastToGame queues msg for every client attached to a game
func (h *Hub) BroadcastToGame(gameID string, msg *Message) {
	for _, c := range h.ClientsForGame(gameID) {
		if err := c.SendMessage(msg); err != nil {
			log.Warn().Err(err).Str("client", c.ID).Str("game", gameID).Msg("broadcast dropped")
		}
	}
}

// Client represents a connected WebSocket client
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	ID   string
	Send chan []byte

	stateMu sync.RWMutex
	state   ClientState
	gameID  string

	closeMu sync.Mutex
	closed  bool
}

// NewClient creates a new client in the lobby
func NewClient(hub *Hub, conn *websocket.Conn, id string) *Client {
	return &Client{
		Hub:   hub,
		Conn:  conn,
		ID:    id,
		Send:  make(chan []byte, 256),
		state: ClientLobby,
	}
}

// GetState returns the client's state
func (c *Client) GetState() ClientState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// GameID returns the attached game, or ""
func (c *Client) GameID() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.gameID
}

// AttachGame moves the client into a game
func (c *Client) AttachGame(gameID string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.gameID = gameID
	c.state = ClientInGame
}

// Detach returns the client to the lobby and reports the game it left
func (c *Client) Detach() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	gameID := c.gameID
	c.gameID = ""
	c.state = ClientLobby
	return gameID
}

// Close closes the client connection
func (c *Client) Close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.Conn != nil {
		c.Conn.Close()
	}
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

// SendMessage queues a message without blocking
func (c *Client) SendMessage(msg *Message) error {
	bytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return nil
	}

	select {
	case c.Send <- bytes:
		return nil
	default:
		return ErrChannelFull
	}
}

// Error types
type HubError string

func (e HubError) Error() string { return string(e) }

const (
	ErrChannelFull HubError = "send channel full"
)
