package app

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edwardhuahan/drawphone/internal/domain"
)

// ClientConnection represents a connected client
type ClientConnection interface {
	Send(msgType string, payload any) error
	Close() error
}

const botPlaceholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 300 300">` +
	`<text x="150" y="170" font-size="120" text-anchor="middle">👻</text></svg>`

// BotDrawingDataURL is the deterministic drawing a bot submits when its
// turn calls for one. The guess oracle only turns drawings into words,
// so drawing slots fall back to this fixed payload.
var BotDrawingDataURL = "data:image/svg+xml;base64," +
	base64.StdEncoding.EncodeToString([]byte(botPlaceholderSVG))

// pendingGuess tracks one outstanding request to the external
// classification oracle. Results are applied oldest-first.
type pendingGuess struct {
	botID   string
	chainID string
}

// GameSession wraps a game with concurrency control and client
// management. Every inbound intent runs to completion under one lock,
// and every mutating intent ends by re-running the round's completion
// check, so the advance invariant is evaluated consistently.
type GameSession struct {
	game      *domain.Game
	mu        sync.Mutex
	clients   map[string]ClientConnection // playerID -> client
	clientsMu sync.RWMutex
	logger    *slog.Logger

	// sentAssignments dedupes nextLink pushes: playerID -> the
	// chain slot last announced to them.
	sentAssignments map[string]string
	pendingGuesses  []pendingGuess

	events chan *domain.GameEvent
	done   chan struct{}
	once   sync.Once
}

// NewGameSession creates a new game session
func NewGameSession(game *domain.Game, logger *slog.Logger) *GameSession {
	session := &GameSession{
		game:            game,
		clients:         make(map[string]ClientConnection),
		logger:          logger,
		sentAssignments: make(map[string]string),
		events:          make(chan *domain.GameEvent, 100),
		done:            make(chan struct{}),
	}

	go session.eventLoop()

	return session
}

// Code returns the game's join code
func (s *GameSession) Code() string {
	return s.game.Code
}

// CreatedAt returns when the game was created
func (s *GameSession) CreatedAt() time.Time {
	return s.game.CreatedAt
}

// PlayerCount returns the roster size
func (s *GameSession) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.game.Players)
}

// ConnectedCount returns the number of connected roster players
func (s *GameSession) ConnectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.ConnectedCount()
}

// InProgress reports whether a round is running
func (s *GameSession) InProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.InProgress
}

// GameInfo returns a snapshot safe to serialize without the lock
func (s *GameSession) GameInfo() *domain.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Snapshot()
}

// RegisterClient registers a client connection for a player
func (s *GameSession) RegisterClient(playerID string, client ClientConnection) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[playerID] = client
}

// UnregisterClient removes a client connection
func (s *GameSession) UnregisterClient(playerID string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, playerID)
}

// Join adds a newcomer. Before a round starts they go straight onto the
// roster; mid-round they are queued as a potential player and offered
// the replaceable slots instead. The client is registered inside the
// lock so no push can race past it.
func (s *GameSession) Join(name string, client ClientConnection) (*domain.Player, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := domain.ValidateName(name); err != nil {
		return nil, false, err
	}

	player := domain.NewPlayer(uuid.New().String(), name)

	if !s.game.InProgress {
		if _, err := s.game.AddPlayer(player); err != nil {
			return nil, false, err
		}
		s.registerLocked(player.ID, client)
		s.queueEvent(domain.NewEvent(domain.EventUpdatePlayerList, s.game.Code, s.game.Snapshot().Players))
		return player, false, nil
	}

	round := s.game.CurrentRound
	if round == nil {
		return nil, false, domain.ErrNoActiveRound
	}

	round.AddPotentialPlayer(player)
	s.registerLocked(player.ID, client)
	s.sendPotentialOffersLocked()

	return player, true, nil
}

func (s *GameSession) registerLocked(playerID string, client ClientConnection) {
	s.clientsMu.Lock()
	s.clients[playerID] = client
	s.clientsMu.Unlock()
}

// StartRound begins a new round. Host only.
func (s *GameSession) StartRound(playerID string, timeLimit int, wordPackName string, wordFirst, showNeighbors bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.IsHost(playerID) {
		return domain.ErrNotHost
	}
	if !wordFirst && !IsWordPack(wordPackName) {
		return domain.ErrNoWordPack
	}

	if _, err := s.game.StartRound(timeLimit, wordPackName, wordFirst, showNeighbors); err != nil {
		return err
	}

	s.sentAssignments = make(map[string]string)
	s.pendingGuesses = nil

	s.logger.Info("round started",
		"code", s.game.Code,
		"round", s.game.RoundCount,
		"players", s.game.CurrentRound.PlayerCount(),
		"wordPack", wordPackName,
		"wordFirst", wordFirst,
	)

	s.afterMutationLocked()
	return nil
}

// SubmitLink records a player's contribution for the current tick
func (s *GameSession) SubmitLink(playerID string, linkType domain.LinkType, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.game.CurrentRound
	if round == nil {
		return domain.ErrNoActiveRound
	}

	pos, ok := round.PositionOf(playerID)
	if !ok {
		return domain.ErrNotYourTurn
	}
	player := round.Positions[pos]

	chain, err := round.SubmitLink(player, linkType, data)
	if err != nil {
		return err
	}

	s.sentAssignments[playerID] = ""
	s.logger.Debug("link submitted",
		"code", s.game.Code,
		"player", player.Name,
		"type", linkType,
		"chainLen", chain.Len(),
	)

	s.afterMutationLocked()
	return nil
}

// DisconnectPlayer marks a player as disconnected and recomputes
// replacement eligibility. In the lobby the player simply leaves; mid-
// round their pending chains freeze until a replacement binds.
func (s *GameSession) DisconnectPlayer(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.game.CurrentRound

	// A waiting potential player just leaves the queue.
	if round != nil {
		for i, p := range round.Potentials {
			if p.ID == playerID {
				round.Potentials = append(round.Potentials[:i], round.Potentials[i+1:]...)
				return
			}
		}
	}

	player, err := s.game.DisconnectPlayer(playerID)
	if err != nil {
		return
	}

	s.logger.Info("player disconnected", "code", s.game.Code, "player", player.Name)

	s.queueEvent(domain.NewEvent(domain.EventUpdatePlayerList, s.game.Code, s.game.Snapshot().Players))

	if round != nil {
		s.broadcastWaitingListLocked()
		s.sendPotentialOffersLocked()
	}
}

// KickPlayer forcefully disconnects a player. Host only. Closing the
// connection drives the regular disconnect path.
func (s *GameSession) KickPlayer(hostID, targetID string) error {
	s.mu.Lock()
	if !s.game.IsHost(hostID) {
		s.mu.Unlock()
		return domain.ErrNotHost
	}
	if _, err := s.game.GetPlayer(targetID); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.clientsMu.RLock()
	client, ok := s.clients[targetID]
	s.clientsMu.RUnlock()

	if ok {
		return client.Close()
	}

	// No connection to sever (a bot): run the disconnect path directly.
	s.DisconnectPlayer(targetID)
	return nil
}

// ReplaceWithBot rebinds a replaceable slot to a ghost bot. Host only.
func (s *GameSession) ReplaceWithBot(hostID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.IsHost(hostID) {
		return domain.ErrNotHost
	}
	round := s.game.CurrentRound
	if round == nil {
		return domain.ErrNoActiveRound
	}

	pos, ok := round.PositionOf(targetID)
	if !ok {
		return domain.ErrPlayerNotFound
	}
	old := round.Positions[pos]

	bot := domain.NewBotPlayer(uuid.New().String(), fmt.Sprintf("👻 The Ghost of %s", old.Name))
	if err := round.ReplacePlayer(targetID, bot); err != nil {
		return err
	}

	s.logger.Info("player replaced with bot", "code", s.game.Code, "player", old.Name)

	s.broadcastWaitingListLocked()
	s.sendPotentialOffersLocked()
	s.afterMutationLocked()
	return nil
}

// ReplaceWithPotential binds a queued potential player to a replaceable
// slot. The request comes from the potential player themselves.
func (s *GameSession) ReplaceWithPotential(replacementID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.game.CurrentRound
	if round == nil {
		return domain.ErrNoActiveRound
	}

	var replacement *domain.Player
	for _, p := range round.Potentials {
		if p.ID == replacementID {
			replacement = p
			break
		}
	}
	if replacement == nil {
		return domain.ErrPlayerNotFound
	}

	if err := round.ReplacePlayer(targetID, replacement); err != nil {
		// Someone beat them to the slot: resynchronize silently.
		s.sendPotentialOffersLocked()
		return err
	}

	s.game.SwapPlayer(targetID, replacement)

	s.logger.Info("player replaced",
		"code", s.game.Code,
		"replacement", replacement.Name,
	)

	s.queueEvent(domain.NewEvent(domain.EventUpdatePlayerList, s.game.Code, s.game.Snapshot().Players))
	s.broadcastWaitingListLocked()
	s.sendPotentialOffersLocked()
	s.afterMutationLocked()
	return nil
}

// UpdateSettings mirrors a host-issued setting to the non-host players.
// Settings are locked while a round is active.
func (s *GameSession) UpdateSettings(playerID, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.IsHost(playerID) {
		return domain.ErrNotHost
	}
	if s.game.InProgress {
		return domain.ErrGameInProgress
	}

	payload := s.game.UpdateSetting(name, value)

	for _, p := range s.game.Players {
		if p.IsHost || p.IsAI || !p.IsConnected() {
			continue
		}
		s.queueEvent(domain.NewPlayerEvent(domain.EventUpdateSettings, s.game.Code, p.ID, payload))
	}
	return nil
}

// AddBot inserts a synthetic player into the roster. Host only.
func (s *GameSession) AddBot(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.IsHost(playerID) {
		return domain.ErrNotHost
	}
	if _, err := s.game.AddBotPlayer(); err != nil {
		return err
	}

	s.queueEvent(domain.NewEvent(domain.EventUpdatePlayerList, s.game.Code, s.game.Snapshot().Players))
	return nil
}

// RemoveBot removes the most recently added bot. Host only.
func (s *GameSession) RemoveBot(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.IsHost(playerID) {
		return domain.ErrNotHost
	}
	if _, err := s.game.RemoveBotPlayer(); err != nil {
		return err
	}

	s.queueEvent(domain.NewEvent(domain.EventUpdatePlayerList, s.game.Code, s.game.Snapshot().Players))
	return nil
}

// ViewPreviousResults resends the last round's result set to one player
func (s *GameSession) ViewPreviousResults(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.CanViewLastRoundResults || s.game.LastRound == nil {
		return domain.ErrNoResults
	}

	last := s.game.LastRound
	payload := &domain.ResultsPayload{
		Chains:                  last.Chains,
		RoundTime:               last.EndedAt.Sub(last.StartedAt).Milliseconds(),
		CanViewLastRoundResults: true,
	}
	s.queueEvent(domain.NewPlayerEvent(domain.EventViewResults, s.game.Code, playerID, payload))
	return nil
}

// AIGuessResult applies the oracle's answer for the oldest outstanding
// guess. A failed guess is dropped; the chain stays pending on the bot
// and the next sweep re-requests, so one bad classification never
// corrupts or duplicates a link.
func (s *GameSession) AIGuessResult(success bool, linkType domain.LinkType, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.game.CurrentRound
	if round == nil {
		return domain.ErrNoActiveRound
	}
	if len(s.pendingGuesses) == 0 {
		return domain.ErrNoPendingGuess
	}

	guess := s.pendingGuesses[0]
	s.pendingGuesses = s.pendingGuesses[1:]

	if !success {
		s.logger.Warn("ai guess failed", "code", s.game.Code)
		return nil
	}
	if linkType != domain.LinkWord {
		return domain.ErrWrongLinkType
	}

	pos, ok := round.PositionOf(guess.botID)
	if !ok {
		return domain.ErrPlayerNotFound
	}
	bot := round.Positions[pos]

	chain, ok := round.AssignedChain(bot.ID)
	if !ok || chain.ID != guess.chainID {
		return domain.ErrNotYourTurn
	}

	if _, err := round.SubmitLink(bot, domain.LinkWord, data); err != nil {
		return err
	}

	s.afterMutationLocked()
	return nil
}

// afterMutationLocked is run after every state-mutating operation: it
// lets bots take any turns they now owe, pushes fresh assignments,
// refreshes the waiting list, and re-evaluates round completion.
func (s *GameSession) afterMutationLocked() {
	round := s.game.CurrentRound
	if round == nil {
		return
	}

	s.botSweepLocked()
	s.pushAssignmentsLocked()
	s.broadcastWaitingListLocked()
	s.advanceLocked()
}

// botSweepLocked lets every bot play each chain currently waiting on
// it. Words after drawings go through the external oracle and stay
// pending until the host's client answers.
func (s *GameSession) botSweepLocked() {
	round := s.game.CurrentRound

	for progress := true; progress; {
		progress = false
		for _, p := range round.Positions {
			if !p.IsAI {
				continue
			}
			chain, ok := round.AssignedChain(p.ID)
			if !ok {
				continue
			}

			switch chain.NextLinkType() {
			case domain.LinkDrawing:
				if _, err := round.SubmitLink(p, domain.LinkDrawing, BotDrawingDataURL); err == nil {
					progress = true
				}
			case domain.LinkWord:
				last, has := chain.LastLink()
				if !has || last.Type == domain.LinkFirstWord {
					pack := round.WordPackName
					if pack == "" {
						pack = DefaultWordPack
					}
					if _, err := round.SubmitLink(p, domain.LinkWord, RandomWord(pack)); err == nil {
						progress = true
					}
				} else {
					s.requestGuessLocked(p, chain, last)
				}
			}
		}
	}
}

// requestGuessLocked asks the host's client to classify a drawing on a
// bot's behalf, once per outstanding slot.
func (s *GameSession) requestGuessLocked(bot *domain.Player, chain *domain.Chain, drawing domain.Link) {
	for _, g := range s.pendingGuesses {
		if g.botID == bot.ID && g.chainID == chain.ID {
			return
		}
	}

	hostID := s.game.HostID()
	if hostID == "" {
		return
	}

	s.pendingGuesses = append(s.pendingGuesses, pendingGuess{botID: bot.ID, chainID: chain.ID})
	s.queueEvent(domain.NewPlayerEvent(domain.EventMakeAIGuess, s.game.Code, hostID,
		&domain.MakeAIGuessPayload{Data: drawing.Data}))
}

// pushAssignmentsLocked sends each connected human the chain now
// waiting on them, deduped per slot so resubmitted state never repeats
// a push.
func (s *GameSession) pushAssignmentsLocked() {
	round := s.game.CurrentRound

	for _, p := range round.Positions {
		if p.IsAI || !p.IsConnected() {
			continue
		}

		chain, ok := round.AssignedChain(p.ID)
		if !ok {
			delete(s.sentAssignments, p.ID)
			continue
		}

		key := fmt.Sprintf("%s:%d", chain.ID, chain.Len())
		if s.sentAssignments[p.ID] == key {
			continue
		}
		s.sentAssignments[p.ID] = key

		last, has := chain.LastLink()
		if !has {
			// Empty chains only occur in word-pack mode: the owner
			// writes the first word, prompted by a pack suggestion.
			last = domain.Link{Type: domain.LinkFirstWord, Data: RandomWord(round.WordPackName)}
		}

		payload := &domain.NextLinkPayload{
			Link:          last,
			Count:         chain.Len() + 1,
			FinalCount:    round.PlayerCount(),
			ShowNeighbors: round.ShowNeighbors,
			ThisPlayer:    p,
			TimeLimit:     round.TimeLimit,
		}
		if round.ShowNeighbors {
			payload.Players = round.Positions
		}

		s.queueEvent(domain.NewPlayerEvent(domain.EventNextLink, s.game.Code, p.ID, payload))
	}
}

// broadcastWaitingListLocked pushes the waiting list to every connected
// human: players with nothing left to do this tick also get told to
// show the waiting screen. The payload is a pure function of round
// state, so replays are harmless.
func (s *GameSession) broadcastWaitingListLocked() {
	round := s.game.CurrentRound
	if round == nil || round.State != domain.RoundCollecting {
		return
	}

	list := round.WaitingList()

	for _, p := range round.Positions {
		if p.IsAI || !p.IsConnected() {
			continue
		}
		if len(round.PendingChains(p.ID)) == 0 {
			s.queueEvent(domain.NewPlayerEvent(domain.EventShowWaitingList, s.game.Code, p.ID, nil))
		}
		personal := *list
		personal.You = p
		s.queueEvent(domain.NewPlayerEvent(domain.EventUpdateWaitingList, s.game.Code, p.ID, &personal))
	}
}

// sendPotentialOffersLocked shows every queued joiner the slots they
// could take over.
func (s *GameSession) sendPotentialOffersLocked() {
	round := s.game.CurrentRound
	if round == nil {
		return
	}

	payload := &domain.ReplacePlayerPayload{
		GameCode: s.game.Code,
		Players:  round.ReplaceablePlayers(),
	}
	for _, p := range round.Potentials {
		s.queueEvent(domain.NewPlayerEvent(domain.EventReplacePlayer, s.game.Code, p.ID, payload))
	}
}

// advanceLocked runs the centralized everyone-done check and, once all
// chains are sealed, finalizes the round and broadcasts the results.
func (s *GameSession) advanceLocked() {
	round := s.game.CurrentRound
	if round == nil || !round.Advance() {
		return
	}

	results, err := round.Finalize()
	if err != nil {
		s.logger.Error("failed to finalize round", "code", s.game.Code, "error", err)
		return
	}

	s.game.FinishRound()
	s.sentAssignments = make(map[string]string)
	s.pendingGuesses = nil

	s.logger.Info("round complete",
		"code", s.game.Code,
		"chains", len(results.Chains),
		"roundTimeMs", results.RoundTime,
	)

	s.queueEvent(domain.NewEvent(domain.EventViewResults, s.game.Code, results))
	s.queueEvent(domain.NewEvent(domain.EventUpdatePlayerList, s.game.Code, s.game.Snapshot().Players))
}

// queueEvent adds an event to the broadcast queue
func (s *GameSession) queueEvent(event *domain.GameEvent) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("event queue full, dropping event", "type", event.Type)
	}
}

// eventLoop processes events and pushes them out to clients
func (s *GameSession) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			s.broadcastEvent(event)
		}
	}
}

// broadcastEvent sends an event to the targeted client, or to everyone
func (s *GameSession) broadcastEvent(event *domain.GameEvent) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	if event.PlayerID != "" {
		if client, ok := s.clients[event.PlayerID]; ok {
			if err := client.Send(string(event.Type), event.Payload); err != nil {
				s.logger.Debug("failed to send to client", "playerID", event.PlayerID, "error", err)
			}
		}
		return
	}

	for playerID, client := range s.clients {
		if err := client.Send(string(event.Type), event.Payload); err != nil {
			s.logger.Debug("failed to send to client", "playerID", playerID, "error", err)
		}
	}
}

// Close shuts down the session
func (s *GameSession) Close() {
	s.once.Do(func() { close(s.done) })

	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clients = make(map[string]ClientConnection)
	s.clientsMu.Unlock()
}
