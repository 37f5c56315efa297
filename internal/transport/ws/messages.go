package ws

import (
	"encoding/json"
	"time"

	"github.com/edwardhuahan/drawphone/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgNewGame              MessageType = "newGame"
	MsgJoinGame             MessageType = "joinGame"
	MsgTryStartGame         MessageType = "tryStartGame"
	MsgFinishedLink         MessageType = "finishedLink"
	MsgHostUpdatedSettings  MessageType = "hostUpdatedSettings"
	MsgAddBotPlayer         MessageType = "addBotPlayer"
	MsgRemoveBotPlayer      MessageType = "removeBotPlayer"
	MsgKickPlayer           MessageType = "kickPlayer"
	MsgReplacePlayerWithBot MessageType = "replacePlayerWithBot"
	MsgTryReplacePlayer     MessageType = "tryReplacePlayer"
	MsgViewPreviousResults  MessageType = "viewPreviousResults"
	MsgAIGuessResult        MessageType = "AIGuessResult"
	MsgPing                 MessageType = "ping"
)

// Server → Client message types sent directly by the transport; round
// and lobby pushes reuse the domain event names as their type.
const (
	MsgJoinGameRes MessageType = "joinGameRes"
	MsgError       MessageType = "error"
	MsgPong        MessageType = "pong"
)

// ClientMessage is the envelope for messages from client to server.
// The payload is decoded against the schema for its tag before any of
// it reaches the round state machine.
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage is the envelope for messages from server to client
type ServerMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType string, data any) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Client message payloads

// PlayerRef identifies a player in a client request
type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// NewGamePayload is the payload for newGame
type NewGamePayload struct {
	Name string `json:"name"`
}

// JoinGamePayload is the payload for joinGame
type JoinGamePayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// TryStartGamePayload is the payload for tryStartGame. The client sends
// `false` for an unset time limit and for wordPackName in word-first
// mode, so both fields arrive untyped.
type TryStartGamePayload struct {
	TimeLimit     any  `json:"timeLimit"`
	WordPackName  any  `json:"wordPackName"`
	ShowNeighbors bool `json:"showNeighbors"`
}

// LinkPayload is one contribution as sent by a client
type LinkPayload struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// FinishedLinkPayload is the payload for finishedLink
type FinishedLinkPayload struct {
	Link LinkPayload `json:"link"`
}

// HostUpdatedSettingsPayload is the payload for hostUpdatedSettings
type HostUpdatedSettingsPayload struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// KickPlayerPayload is the payload for kickPlayer
type KickPlayerPayload struct {
	PlayerToKick PlayerRef `json:"playerToKick"`
}

// ReplacePlayerWithBotPayload is the payload for replacePlayerWithBot
type ReplacePlayerWithBotPayload struct {
	PlayerToReplaceWithBot PlayerRef `json:"playerToReplaceWithBot"`
}

// TryReplacePlayerPayload is the payload for tryReplacePlayer
type TryReplacePlayerPayload struct {
	PlayerToReplace PlayerRef `json:"playerToReplace"`
}

// AIGuessResultPayload is the payload for AIGuessResult
type AIGuessResultPayload struct {
	Success bool         `json:"success"`
	Link    *LinkPayload `json:"link,omitempty"`
}

// Server message payloads

// JoinGameResPayload answers newGame and joinGame
type JoinGameResPayload struct {
	Success bool           `json:"success"`
	Game    *domain.Game   `json:"game,omitempty"`
	You     *domain.Player `json:"you,omitempty"`
	Error   string         `json:"error,omitempty"`
	Content string         `json:"content,omitempty"`
}

// ErrorPayload reports a rejected intent back to its sender
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeGameNotFound   = "GAME_NOT_FOUND"
	ErrCodeNotHost        = "NOT_HOST"
	ErrCodeNotReady       = "NOT_READY"
	ErrCodeNotYourTurn    = "NOT_YOUR_TURN"
	ErrCodeInvalidAction  = "INVALID_ACTION"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)
