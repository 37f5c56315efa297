package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Game represents one session: the roster, lobby settings, and the
// sequence of rounds. The join code is unique for the session's
// lifetime within the registry.
type Game struct {
	Code                    string         `json:"code"`
	Players                 []*Player      `json:"players"`
	CurrentRound            *Round         `json:"-"`
	LastRound               *Round         `json:"-"`
	RoundCount              int            `json:"roundCount"`
	InProgress              bool           `json:"inProgress"`
	CanViewLastRoundResults bool           `json:"canViewLastRoundResults"`
	Settings                map[string]any `json:"settings"`
	CreatedAt               time.Time      `json:"createdAt"`

	botCount int
}

// NewGame creates a new game with the given join code
func NewGame(code string) *Game {
	return &Game{
		Code:      code,
		Players:   make([]*Player, 0),
		Settings:  make(map[string]any),
		CreatedAt: time.Now(),
	}
}

// AddPlayer appends a player to the roster. The first player becomes
// the host. Joins while a round is in progress are rejected here; the
// caller routes those into the round's potential-player queue instead.
func (g *Game) AddPlayer(player *Player) (*Player, error) {
	if g.InProgress {
		return nil, ErrGameInProgress
	}
	if err := ValidateName(player.Name); err != nil {
		return nil, err
	}

	if g.HostID() == "" && !player.IsAI {
		player.IsHost = true
	}
	g.Players = append(g.Players, player)

	return player, nil
}

// RemovePlayer removes a player from the roster, reassigning the host
// flag to the first remaining connected human if needed.
func (g *Game) RemovePlayer(playerID string) error {
	for i, p := range g.Players {
		if p.ID == playerID {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			if p.IsHost {
				g.reassignHost()
			}
			return nil
		}
	}
	return ErrPlayerNotFound
}

func (g *Game) reassignHost() {
	for _, p := range g.Players {
		if p.IsConnected() && !p.IsAI {
			p.IsHost = true
			return
		}
	}
}

// GetPlayer returns a roster player by ID
func (g *Game) GetPlayer(playerID string) (*Player, error) {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return nil, ErrPlayerNotFound
}

// HostID returns the current host's ID, or empty if there is none
func (g *Game) HostID() string {
	for _, p := range g.Players {
		if p.IsHost {
			return p.ID
		}
	}
	return ""
}

// IsHost checks if the given player is the host
func (g *Game) IsHost(playerID string) bool {
	host := g.HostID()
	return host != "" && host == playerID
}

// ConnectedPlayers returns the roster players currently connected, in
// join order. Bots always count as connected.
func (g *Game) ConnectedPlayers() []*Player {
	out := make([]*Player, 0, len(g.Players))
	for _, p := range g.Players {
		if p.IsConnected() {
			out = append(out, p)
		}
	}
	return out
}

// ConnectedCount returns the number of connected roster players
func (g *Game) ConnectedCount() int {
	return len(g.ConnectedPlayers())
}

// AddBotPlayer inserts a synthetic player into the roster. It affects
// the next round's player order, never the round already running.
func (g *Game) AddBotPlayer() (*Player, error) {
	if g.InProgress {
		return nil, ErrGameInProgress
	}
	g.botCount++
	bot := NewBotPlayer(uuid.New().String(), fmt.Sprintf("🤖 Bot %d", g.botCount))
	g.Players = append(g.Players, bot)
	return bot, nil
}

// RemoveBotPlayer removes the most recently added bot from the roster
func (g *Game) RemoveBotPlayer() (*Player, error) {
	if g.InProgress {
		return nil, ErrGameInProgress
	}
	for i := len(g.Players) - 1; i >= 0; i-- {
		if g.Players[i].IsAI {
			bot := g.Players[i]
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			return bot, nil
		}
	}
	return nil, ErrPlayerNotFound
}

// StartRound snapshots the connected player order and begins a new
// round. Preconditions: at least four players, or exactly one for the
// solo mode; a non-negative time limit; and either a word pack or the
// word-first variant. The host check lives with the caller.
func (g *Game) StartRound(timeLimit int, wordPackName string, wordFirst, showNeighbors bool) (*Round, error) {
	if g.InProgress {
		return nil, ErrGameInProgress
	}
	if timeLimit < 0 {
		return nil, ErrNegativeTime
	}
	if !wordFirst && wordPackName == "" {
		return nil, ErrNoWordPack
	}
	if wordFirst {
		wordPackName = ""
	}

	players := g.ConnectedPlayers()
	if len(players) < 4 && len(players) != 1 {
		return nil, ErrNotReady
	}

	g.RoundCount++
	g.CurrentRound = NewRound(g.RoundCount, timeLimit, wordPackName, showNeighbors, players)
	g.InProgress = true
	g.CanViewLastRoundResults = false

	return g.CurrentRound, nil
}

// FinishRound retires the completed round, reopens the lobby for direct
// joins, and drops players who disconnected mid-round from the roster.
func (g *Game) FinishRound() {
	if g.CurrentRound == nil {
		return
	}
	g.LastRound = g.CurrentRound
	g.CurrentRound = nil
	g.InProgress = false
	g.CanViewLastRoundResults = true

	kept := g.Players[:0]
	for _, p := range g.Players {
		if p.IsConnected() {
			kept = append(kept, p)
		} else if p.IsHost {
			p.IsHost = false
		}
	}
	g.Players = kept
	if g.HostID() == "" {
		g.reassignHost()
	}
}

// SwapPlayer replaces a roster entry with a mid-round replacement,
// keeping join order. The replacement is appended if the old player had
// already been dropped.
func (g *Game) SwapPlayer(oldID string, replacement *Player) {
	for i, p := range g.Players {
		if p.ID == oldID {
			g.Players[i] = replacement
			return
		}
	}
	g.Players = append(g.Players, replacement)
}

// Snapshot returns a copy of the game safe to serialize outside the
// session lock. Players are shared pointers; the slice is copied.
func (g *Game) Snapshot() *Game {
	players := make([]*Player, len(g.Players))
	copy(players, g.Players)
	return &Game{
		Code:                    g.Code,
		Players:                 players,
		RoundCount:              g.RoundCount,
		InProgress:              g.InProgress,
		CanViewLastRoundResults: g.CanViewLastRoundResults,
		Settings:                g.Settings,
		CreatedAt:               g.CreatedAt,
	}
}

// DisconnectPlayer marks a player as disconnected. In the lobby the
// player is dropped from the roster entirely; during a round they keep
// their snapshot position so the slot can be rebound. The host flag
// moves to a connected human either way.
func (g *Game) DisconnectPlayer(playerID string) (*Player, error) {
	player, err := g.GetPlayer(playerID)
	if err != nil && g.CurrentRound != nil {
		// Replacements and ghosts live only in the round's snapshot.
		if pos, ok := g.CurrentRound.PositionOf(playerID); ok {
			player = g.CurrentRound.Positions[pos]
			err = nil
		}
	}
	if err != nil {
		return nil, err
	}
	if !player.IsConnected() {
		return player, nil
	}

	player.Disconnect()

	if !g.InProgress {
		_ = g.RemovePlayer(player.ID)
		return player, nil
	}

	if player.IsHost {
		player.IsHost = false
		g.reassignHost()
	}
	return player, nil
}

// UpdateSetting records a host-issued lobby setting for mirroring to
// the non-host players.
func (g *Game) UpdateSetting(name string, value any) *SettingPayload {
	g.Settings[name] = value
	return &SettingPayload{Name: name, Value: value}
}
