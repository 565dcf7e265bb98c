package ws

import (
	"encoding/json"

	"memory-pairs/internal/game"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Client -> Server messages
	MsgNewGame MessageType = "new_game"
	MsgAttach  MessageType = "attach"
	MsgClick   MessageType = "click"
	MsgLeave   MessageType = "leave"

	// Server -> Client messages
	MsgError     MessageType = "error"
	MsgSession   MessageType = "session"
	MsgGameState MessageType = "game_state"
	MsgGameEnd   MessageType = "game_end"
)

// Message is the base WebSocket message structure
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AttachPayload for watching an existing game, e.g. after a reconnect
type AttachPayload struct {
	GameID string `json:"gameId"`
}

// ClickPayload carries the clicked card, or no index for a click outside
// the board
type ClickPayload struct {
	Index *int `json:"index,omitempty"`
}

// ErrorPayload for error messages
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionPayload confirms the game a client is attached to
type SessionPayload struct {
	GameID    string `json:"gameId"`
	Rows      int    `json:"rows"`
	Cols      int    `json:"cols"`
	TimeLimit int    `json:"timeLimit"`
}

// GameStatePayload contains the full game state. Closed cards carry no
// symbol.
type GameStatePayload struct {
	GameID      string     `json:"gameId"`
	Version     uint64     `json:"version"`
	Phase       string     `json:"phase"` // stopped, running, won, lost
	SecondsLeft int        `json:"secondsLeft"`
	Rows        int        `json:"rows"`
	Cols        int        `json:"cols"`
	Cells       []CellInfo `json:"cells"`
	Resolution  string     `json:"resolution,omitempty"` // matched, mismatched
}

// CellInfo for game state
type CellInfo struct {
	Status string `json:"status"`
	Symbol string `json:"symbol,omitempty"`
}

// GameEndPayload when a game is won or lost
type GameEndPayload struct {
	GameID      string `json:"gameId"`
	Outcome     string `json:"outcome"` // won, lost
	SecondsLeft int    `json:"secondsLeft"`
}

// NewGameStatePayload builds the client view of a snapshot
func NewGameStatePayload(snap game.Snapshot, rules game.Rules) GameStatePayload {
	cells := make([]CellInfo, len(snap.State.Board))
	for i, c := range snap.State.Board {
		cells[i] = CellInfo{Status: c.Status.String()}
		if !game.IsClosed(c) {
			cells[i].Symbol = string(c.Symbol)
		}
	}

	state := GameStatePayload{
		GameID:      snap.GameID,
		Version:     snap.Version,
		Phase:       string(snap.State.Phase),
		SecondsLeft: snap.State.SecondsLeft,
		Rows:        rules.Rows,
		Cols:        rules.Cols,
		Cells:       cells,
	}
	if snap.Resolution != game.ResolutionNone && snap.Resolution != "" {
		state.Resolution = string(snap.Resolution)
	}
	return state
}

// Helper functions for creating messages

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}
	return &Message{
		Type:    msgType,
		Payload: payloadBytes,
	}, nil
}

func NewErrorMessage(code, message string) (*Message, error) {
	return NewMessage(MsgError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}

var ValidMessagesForLobby = []MessageType{
	MsgNewGame,
	MsgAttach,
}

var ValidMessagesForInGame = []MessageType{
	MsgNewGame,
	MsgAttach,
	MsgClick,
	MsgLeave,
}

// IsMessageAllowed checks if a message type is allowed in the client state
func IsMessageAllowed(state ClientState, msgType MessageType) bool {
	var allowed []MessageType
	switch state {
	case ClientLobby:
		allowed = ValidMessagesForLobby
	case ClientInGame:
		allowed = ValidMessagesForInGame
	default:
		return false
	}

	for _, t := range allowed {
		if t == msgType {
			return true
		}
	}
	return false
}
