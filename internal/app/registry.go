package app

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/edwardhuahan/drawphone/internal/domain"
)

const (
	// GameCodeLength is the length of the join code
	GameCodeLength = 4

	// GameCodeChars are the characters used for join codes
	GameCodeChars = "abcdefghijklmnopqrstuvwxyz"

	// DefaultCleanupInterval is how often abandoned games are reaped
	DefaultCleanupInterval = time.Minute
)

// Registry is the process-wide mapping from join codes to game
// sessions. It is constructed explicitly and injected, never ambient,
// so tests can build isolated instances.
type Registry struct {
	sessions map[string]*GameSession
	mu       sync.RWMutex
	logger   *slog.Logger
	done     chan struct{}
	once     sync.Once

	locked              bool
	minutesUntilRestart int
}

// NewRegistry creates a registry and starts its cleanup loop
func NewRegistry(logger *slog.Logger, cleanupInterval time.Duration) *Registry {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	r := &Registry{
		sessions: make(map[string]*GameSession),
		logger:   logger,
		done:     make(chan struct{}),
	}

	go r.cleanupLoop(cleanupInterval)

	return r
}

// NewGame allocates a fresh unique join code, registers a new game
// under it, and returns the session.
func (r *Registry) NewGame() (*GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locked {
		return nil, domain.ErrServerLocked
	}

	var code string
	for attempts := 0; attempts < 10; attempts++ {
		code = generateGameCode()
		if _, exists := r.sessions[code]; !exists {
			break
		}
	}
	if _, exists := r.sessions[code]; exists {
		return nil, fmt.Errorf("failed to generate unique game code")
	}

	session := NewGameSession(domain.NewGame(code), r.logger)
	r.sessions[code] = session

	r.logger.Info("game created", "code", code)

	return session, nil
}

// Find returns the session for a join code. Lookup only, no creation.
func (r *Registry) Find(code string) (*GameSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[strings.ToLower(code)]
	if !ok {
		return nil, domain.ErrGameNotFound
	}

	return session, nil
}

// Remove deletes a session from the registry and closes it
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[code]; ok {
		session.Close()
		delete(r.sessions, code)
		r.logger.Info("game removed", "code", code)
	}
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// TotalPlayerCount returns the total player count across all sessions
func (r *Registry) TotalPlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, session := range r.sessions {
		total += session.PlayerCount()
	}
	return total
}

// Lock puts the registry into pending-restart mode: newGame and
// tryStartGame are refused with an ETA, but in-progress rounds keep
// running untouched.
func (r *Registry) Lock(minutesUntilRestart int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = true
	r.minutesUntilRestart = minutesUntilRestart
}

// Locked reports the maintenance lock and its ETA in minutes
func (r *Registry) Locked() (bool, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locked, r.minutesUntilRestart
}

// LockedMessage renders the human-readable restart notice
func LockedMessage(minutesUntilRestart int) string {
	return "The Drawphone server is pending an update, and will be restarted " +
		timeLeft(minutesUntilRestart) + ". Try again then!"
}

func timeLeft(minutes int) string {
	if minutes <= 0 {
		return "momentarily"
	}
	if minutes == 1 {
		return "in 1 minute"
	}
	return fmt.Sprintf("in %d minutes", minutes)
}

// Close shuts down the registry and all sessions
func (r *Registry) Close() {
	r.once.Do(func() { close(r.done) })

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, session := range r.sessions {
		session.Close()
	}
	r.sessions = make(map[string]*GameSession)
}

// generateGameCode generates a random lowercase join code
func generateGameCode() string {
	b := make([]byte, GameCodeLength)
	rand.Read(b)

	code := make([]byte, GameCodeLength)
	for i := range code {
		code[i] = GameCodeChars[int(b[i])%len(GameCodeChars)]
	}

	return string(code)
}

// cleanupLoop periodically evicts games whose players have all left
func (r *Registry) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.cleanupAbandonedGames()
		}
	}
}

// cleanupAbandonedGames removes games with no connected players and no
// round in progress.
func (r *Registry) cleanupAbandonedGames() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for code, session := range r.sessions {
		if session.ConnectedCount() == 0 && !session.InProgress() {
			session.Close()
			delete(r.sessions, code)
			r.logger.Info("abandoned game cleaned up", "code", code)
		}
	}
}
