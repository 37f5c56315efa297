package domain

import "time"

// EventType names a server→client push. The values double as the wire
// message names.
type EventType string

const (
	EventUpdatePlayerList  EventType = "updatePlayerList"
	EventUpdateSettings    EventType = "updateSettings"
	EventNextLink          EventType = "nextLink"
	EventViewResults       EventType = "viewResults"
	EventShowWaitingList   EventType = "showWaitingList"
	EventUpdateWaitingList EventType = "updateWaitingList"
	EventReplacePlayer     EventType = "replacePlayer"
	EventMakeAIGuess       EventType = "makeAIGuess"
)

// GameEvent represents a push that occurred in a game. PlayerID, when
// set, targets the event at a single client.
type GameEvent struct {
	Type      EventType `json:"type"`
	GameCode  string    `json:"gameCode"`
	PlayerID  string    `json:"playerId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates a broadcast event
func NewEvent(eventType EventType, gameCode string, payload any) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		GameCode:  gameCode,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewPlayerEvent creates an event targeted at a single player
func NewPlayerEvent(eventType EventType, gameCode, playerID string, payload any) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		GameCode:  gameCode,
		PlayerID:  playerID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Payload types for the pushes above

// NextLinkPayload tells a player which link to respond to. For an empty
// chain the link is a synthetic first-word prompt; when a word pack is
// active its data carries the suggested word.
type NextLinkPayload struct {
	Link          Link      `json:"link"`
	Count         int       `json:"count"`
	FinalCount    int       `json:"finalCount"`
	ShowNeighbors bool      `json:"showNeighbors"`
	Players       []*Player `json:"players,omitempty"`
	ThisPlayer    *Player   `json:"thisPlayer"`
	TimeLimit     int       `json:"timeLimit"`
}

// WaitingListPayload describes who the round is still waiting on. You
// is filled in per recipient when the update is fanned out.
type WaitingListPayload struct {
	NotFinished  []string `json:"notFinished"`
	Disconnected []string `json:"disconnected"`
	You          *Player  `json:"you,omitempty"`
}

// ResultsPayload carries the sealed chains for the replay screen
type ResultsPayload struct {
	Chains                  []*Chain `json:"chains"`
	RoundTime               int64    `json:"roundTime"`
	CanViewLastRoundResults bool     `json:"canViewLastRoundResults,omitempty"`
}

// ReplacePlayerPayload offers a potential player the replaceable slots
type ReplacePlayerPayload struct {
	GameCode string    `json:"gameCode"`
	Players  []*Player `json:"players"`
}

// MakeAIGuessPayload asks the host's client to classify a drawing
type MakeAIGuessPayload struct {
	Data string `json:"data"`
}

// SettingPayload mirrors a host-issued lobby setting change
type SettingPayload struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}
