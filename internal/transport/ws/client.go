package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edwardhuahan/drawphone/internal/app"
	"github.com/edwardhuahan/drawphone/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; drawings ride in as
	// base64 data URLs, so this is generous.
	maxMessageSize = 1 << 20

	// Size of the send channel buffer
	sendBufferSize = 256
)

// Client represents a WebSocket client connection. A connection starts
// unbound; newGame or joinGame binds the explicit session/player pair
// every later intent is dispatched against.
type Client struct {
	conn     *websocket.Conn
	registry *app.Registry
	session  *app.GameSession
	player   *domain.Player
	send     chan []byte
	done     chan struct{}
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, registry *app.Registry, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		registry: registry,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Send implements app.ClientConnection
func (c *Client) Send(msgType string, payload any) error {
	data, err := json.Marshal(NewServerMessage(msgType, payload))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("send buffer full, message dropped", "type", msgType)
		return nil
	}
}

// Close implements app.ClientConnection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection. A read error
// is the disconnect signal: the bound player is marked disconnected and
// replacement eligibility is recomputed synchronously.
func (c *Client) readPump() {
	defer func() {
		if c.session != nil && c.player != nil {
			c.session.UnregisterClient(c.player.ID)
			c.session.DisconnectPlayer(c.player.ID)
		}
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes and dispatches one incoming intent
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	switch msg.Type {
	case MsgNewGame:
		c.handleNewGame(msg.Payload)
	case MsgJoinGame:
		c.handleJoinGame(msg.Payload)
	case MsgPing:
		c.Send(string(MsgPong), nil)
	default:
		if c.session == nil || c.player == nil {
			c.sendError(ErrCodeInvalidAction, "Join a game first")
			return
		}
		c.handleBoundMessage(msg)
	}
}

// handleBoundMessage dispatches intents that require a bound game
func (c *Client) handleBoundMessage(msg ClientMessage) {
	switch msg.Type {
	case MsgTryStartGame:
		c.handleTryStartGame(msg.Payload)
	case MsgFinishedLink:
		c.handleFinishedLink(msg.Payload)
	case MsgHostUpdatedSettings:
		c.handleHostUpdatedSettings(msg.Payload)
	case MsgAddBotPlayer:
		c.handleGameError(c.session.AddBot(c.player.ID))
	case MsgRemoveBotPlayer:
		c.handleGameError(c.session.RemoveBot(c.player.ID))
	case MsgKickPlayer:
		c.handleKickPlayer(msg.Payload)
	case MsgReplacePlayerWithBot:
		c.handleReplacePlayerWithBot(msg.Payload)
	case MsgTryReplacePlayer:
		c.handleTryReplacePlayer(msg.Payload)
	case MsgViewPreviousResults:
		c.handleGameError(c.session.ViewPreviousResults(c.player.ID))
	case MsgAIGuessResult:
		c.handleAIGuessResult(msg.Payload)
	default:
		c.sendError(ErrCodeInvalidMessage, "Unknown message type")
	}
}

// handleNewGame creates a game and joins its creator as host
func (c *Client) handleNewGame(payload json.RawMessage) {
	if c.session != nil {
		c.sendError(ErrCodeInvalidAction, "Already in a game")
		return
	}

	if locked, minutes := c.registry.Locked(); locked {
		c.sendLockedError(minutes)
		return
	}

	var p NewGamePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	name := stripTags(p.Name)
	if err := domain.ValidateName(name); err != nil {
		c.sendJoinGameRes(&JoinGameResPayload{Success: false, Error: "Name too short/long"})
		return
	}

	session, err := c.registry.NewGame()
	if err != nil {
		c.sendError(ErrCodeInternalError, err.Error())
		return
	}

	player, _, err := session.Join(name, c)
	if err != nil {
		c.sendError(ErrCodeInternalError, err.Error())
		return
	}

	c.session = session
	c.player = player

	c.sendJoinGameRes(&JoinGameResPayload{
		Success: true,
		Game:    session.GameInfo(),
		You:     player,
	})
}

// handleJoinGame joins an existing game by code. When a round is in
// progress the joiner is queued as a potential player and gets shown
// the replaceable slots instead of a join confirmation.
func (c *Client) handleJoinGame(payload json.RawMessage) {
	if c.session != nil {
		c.sendError(ErrCodeInvalidAction, "Already in a game")
		return
	}

	var p JoinGamePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	session, err := c.registry.Find(p.Code)
	if err != nil {
		c.sendJoinGameRes(&JoinGameResPayload{Success: false, Error: "Game not found"})
		return
	}

	name := stripTags(p.Name)
	if err := domain.ValidateName(name); err != nil {
		c.sendJoinGameRes(&JoinGameResPayload{Success: false, Error: "Name too short/long"})
		return
	}

	player, queued, err := session.Join(name, c)
	if err != nil {
		c.sendError(ErrCodeInternalError, err.Error())
		return
	}

	c.session = session
	c.player = player

	if !queued {
		c.sendJoinGameRes(&JoinGameResPayload{
			Success: true,
			Game:    session.GameInfo(),
			You:     player,
		})
	}
}

// handleTryStartGame starts a round. The client sends false for an
// unset time limit and for wordPackName when word-first mode is on.
func (c *Client) handleTryStartGame(payload json.RawMessage) {
	if locked, minutes := c.registry.Locked(); locked {
		c.sendLockedError(minutes)
		return
	}

	var p TryStartGamePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	timeLimit, ok := asTimeLimit(p.TimeLimit)
	if !ok {
		return // no time limit chosen yet; nothing to start
	}

	wordPackName, wordFirst := asWordPack(p.WordPackName)

	err := c.session.StartRound(c.player.ID, timeLimit, wordPackName, wordFirst, p.ShowNeighbors)
	c.handleGameError(err)
}

// handleFinishedLink submits the player's contribution for this tick
func (c *Client) handleFinishedLink(payload json.RawMessage) {
	var p FinishedLinkPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	linkType := domain.LinkType(p.Link.Type)
	if linkType != domain.LinkWord && linkType != domain.LinkDrawing {
		c.sendError(ErrCodeInvalidMessage, "Invalid link type")
		return
	}

	err := c.session.SubmitLink(c.player.ID, linkType, p.Link.Data)
	c.handleGameError(err)
}

// handleHostUpdatedSettings mirrors a lobby setting to the other players
func (c *Client) handleHostUpdatedSettings(payload json.RawMessage) {
	var p HostUpdatedSettingsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	c.handleGameError(c.session.UpdateSettings(c.player.ID, p.Name, p.Value))
}

func (c *Client) handleKickPlayer(payload json.RawMessage) {
	var p KickPlayerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	c.handleGameError(c.session.KickPlayer(c.player.ID, p.PlayerToKick.ID))
}

func (c *Client) handleReplacePlayerWithBot(payload json.RawMessage) {
	var p ReplacePlayerWithBotPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	err := c.session.ReplaceWithBot(c.player.ID, p.PlayerToReplaceWithBot.ID)
	if errors.Is(err, domain.ErrNotReplaceable) {
		return // slot was taken or finished in the meantime; clients resync
	}
	c.handleGameError(err)
}

// handleTryReplacePlayer lets a queued potential player take over a
// replaceable slot. A lost race resynchronizes silently.
func (c *Client) handleTryReplacePlayer(payload json.RawMessage) {
	var p TryReplacePlayerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	err := c.session.ReplaceWithPotential(c.player.ID, p.PlayerToReplace.ID)
	if errors.Is(err, domain.ErrNotReplaceable) {
		return
	}
	c.handleGameError(err)
}

func (c *Client) handleAIGuessResult(payload json.RawMessage) {
	var p AIGuessResultPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	linkType := domain.LinkWord
	data := ""
	if p.Link != nil {
		linkType = domain.LinkType(p.Link.Type)
		data = p.Link.Data
	}

	c.handleGameError(c.session.AIGuessResult(p.Success, linkType, data))
}

// handleGameError maps domain sentinels onto wire error codes. A nil
// error sends nothing.
func (c *Client) handleGameError(err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotHost):
		c.sendError(ErrCodeNotHost, "Only the host can do that")
	case errors.Is(err, domain.ErrNotReady),
		errors.Is(err, domain.ErrNoWordPack),
		errors.Is(err, domain.ErrNegativeTime),
		errors.Is(err, domain.ErrGameInProgress):
		c.sendError(ErrCodeNotReady, err.Error())
	case errors.Is(err, domain.ErrNotYourTurn),
		errors.Is(err, domain.ErrWrongLinkType),
		errors.Is(err, domain.ErrChainFull):
		c.sendError(ErrCodeNotYourTurn, err.Error())
	case errors.Is(err, domain.ErrPlayerNotFound),
		errors.Is(err, domain.ErrNoActiveRound),
		errors.Is(err, domain.ErrNoResults),
		errors.Is(err, domain.ErrNoPendingGuess):
		c.sendError(ErrCodeInvalidAction, err.Error())
	default:
		c.sendError(ErrCodeInternalError, err.Error())
	}
}

func (c *Client) sendJoinGameRes(payload *JoinGameResPayload) {
	c.Send(string(MsgJoinGameRes), payload)
}

func (c *Client) sendError(code, message string) {
	c.Send(string(MsgError), &ErrorPayload{Code: code, Message: message})
}

// sendLockedError reports the pending-restart notice with its ETA
func (c *Client) sendLockedError(minutesUntilRestart int) {
	c.sendJoinGameRes(&JoinGameResPayload{
		Success: false,
		Error:   "Oopsie woopsie",
		Content: app.LockedMessage(minutesUntilRestart),
	})
}

// asTimeLimit normalizes the untyped timeLimit field. false means the
// client never picked one, which cancels the start request.
func asTimeLimit(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case nil:
		return 0, true
	case bool:
		if !t {
			return 0, false
		}
		return 0, true
	default:
		return 0, false
	}
}

// asWordPack normalizes the untyped wordPackName field. false or null
// requests word-first mode.
func asWordPack(v any) (string, bool) {
	if s, ok := v.(string); ok && s != "" {
		return s, false
	}
	return "", true
}
