package domain

import "time"

// ConnectionStatus represents a player's connection state
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "CONNECTED"
	StatusDisconnected ConnectionStatus = "DISCONNECTED"
)

// Player represents one participant in a game. Identity is fixed at
// creation; only the connection status changes afterwards.
type Player struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	IsHost   bool             `json:"isHost"`
	IsAI     bool             `json:"isAi"`
	Status   ConnectionStatus `json:"status"`
	JoinedAt time.Time        `json:"joinedAt"`
}

// NewPlayer creates a new human player with the given ID and name
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		Status:   StatusConnected,
		JoinedAt: time.Now(),
	}
}

// NewBotPlayer creates a synthetic player. Bots count as connected for
// the whole round; they never hold a client connection.
func NewBotPlayer(id, name string) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		IsAI:     true,
		Status:   StatusConnected,
		JoinedAt: time.Now(),
	}
}

// IsConnected returns true if the player is currently connected
func (p *Player) IsConnected() bool {
	return p.Status == StatusConnected
}

// Disconnect marks the player as disconnected
func (p *Player) Disconnect() {
	p.Status = StatusDisconnected
}

// ValidateName enforces the display-name length contract: more than two
// characters, at most sixteen. Tag stripping happens at the transport
// boundary before this is called.
func ValidateName(name string) error {
	if len(name) <= 2 || len(name) > 16 {
		return ErrNameLength
	}
	return nil
}
