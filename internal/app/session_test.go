package app

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edwardhuahan/drawphone/internal/domain"
)

type fakeMessage struct {
	Type    string
	Payload any
}

type fakeClient struct {
	mu       sync.Mutex
	messages []fakeMessage
	closed   bool
}

func (f *fakeClient) Send(msgType string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, fakeMessage{Type: msgType, Payload: payload})
	return nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) received(msgType string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.Type == msgType {
			return true
		}
	}
	return false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession() *GameSession {
	return NewGameSession(domain.NewGame("abcd"), testLogger())
}

func joinPlayers(t *testing.T, s *GameSession, n int) ([]*domain.Player, []*fakeClient) {
	t.Helper()
	players := make([]*domain.Player, n)
	clients := make([]*fakeClient, n)
	for i := range players {
		clients[i] = &fakeClient{}
		p, queued, err := s.Join(fmt.Sprintf("Player %d", i), clients[i])
		require.NoError(t, err)
		require.False(t, queued)
		players[i] = p
	}
	return players, clients
}

func TestSessionJoin(t *testing.T) {
	t.Run("lobby join goes straight onto the roster", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()

		players, _ := joinPlayers(t, s, 2)
		assert.True(t, players[0].IsHost)
		assert.False(t, players[1].IsHost)
		assert.Equal(t, 2, s.PlayerCount())
	})

	t.Run("short names are rejected", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()

		_, _, err := s.Join("ab", &fakeClient{})
		assert.ErrorIs(t, err, domain.ErrNameLength)
	})

	t.Run("mid round join queues as a potential player", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()

		players, _ := joinPlayers(t, s, 4)
		require.NoError(t, s.StartRound(players[0].ID, 0, "Animals", false, false))

		late := &fakeClient{}
		p, queued, err := s.Join("Late Player", late)
		require.NoError(t, err)
		assert.True(t, queued)
		assert.NotNil(t, p)
		assert.Equal(t, 4, s.PlayerCount())
	})
}

func TestSessionStartRound(t *testing.T) {
	t.Run("host only", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()

		players, _ := joinPlayers(t, s, 4)
		err := s.StartRound(players[1].ID, 0, "Animals", false, false)
		assert.ErrorIs(t, err, domain.ErrNotHost)
	})

	t.Run("unknown word pack is refused", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()

		players, _ := joinPlayers(t, s, 4)
		err := s.StartRound(players[0].ID, 0, "No Such Pack", false, false)
		assert.ErrorIs(t, err, domain.ErrNoWordPack)
	})

	t.Run("players receive their first assignment", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()

		players, clients := joinPlayers(t, s, 4)
		require.NoError(t, s.StartRound(players[0].ID, 0, "Animals", false, false))

		for _, c := range clients {
			c := c
			assert.Eventually(t, func() bool {
				return c.received(string(domain.EventNextLink))
			}, time.Second, 10*time.Millisecond)
		}
	})
}

func TestSessionSoloRound(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	players, _ := joinPlayers(t, s, 1)
	require.NoError(t, s.StartRound(players[0].ID, 0, "Animals", false, false))
	require.True(t, s.InProgress())

	require.NoError(t, s.SubmitLink(players[0].ID, domain.LinkWord, "apple"))

	assert.False(t, s.InProgress())
	info := s.GameInfo()
	assert.True(t, info.CanViewLastRoundResults)
}

func TestSessionFullRound(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	players, clients := joinPlayers(t, s, 4)
	require.NoError(t, s.StartRound(players[0].ID, 0, "Animals", false, false))

	// Everyone keeps submitting whatever their current assignment
	// accepts until the round seals itself.
	for i := 0; i < 50 && s.InProgress(); i++ {
		for _, p := range players {
			if err := s.SubmitLink(p.ID, domain.LinkWord, "word"); err == nil {
				continue
			}
			s.SubmitLink(p.ID, domain.LinkDrawing, "data:image/png;base64,x")
		}
	}

	require.False(t, s.InProgress())
	for _, c := range clients {
		c := c
		assert.Eventually(t, func() bool {
			return c.received(string(domain.EventViewResults))
		}, time.Second, 10*time.Millisecond)
	}
}

func TestSessionBotsPlayWordFirstRound(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	players, clients := joinPlayers(t, s, 1)
	host := players[0]
	for i := 0; i < 3; i++ {
		require.NoError(t, s.AddBot(host.ID))
	}

	require.NoError(t, s.StartRound(host.ID, 0, "", true, false))

	// Bots take their own turns; words after drawings go through the
	// host's client as guess requests, answered here directly.
	for i := 0; i < 50 && s.InProgress(); i++ {
		if err := s.SubmitLink(host.ID, domain.LinkWord, "word"); err == nil {
			continue
		}
		if err := s.SubmitLink(host.ID, domain.LinkDrawing, "data:image/png;base64,x"); err == nil {
			continue
		}
		if err := s.AIGuessResult(true, domain.LinkWord, "a guess"); err != nil {
			break
		}
	}

	assert.False(t, s.InProgress())
	assert.True(t, clients[0].received(string(domain.EventMakeAIGuess)))
}

func TestSessionFailedGuessIsRetried(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	players, _ := joinPlayers(t, s, 1)
	host := players[0]
	for i := 0; i < 3; i++ {
		require.NoError(t, s.AddBot(host.ID))
	}
	require.NoError(t, s.StartRound(host.ID, 0, "", true, false))

	// Drive until a guess is outstanding.
	for i := 0; i < 20; i++ {
		s.mu.Lock()
		pending := len(s.pendingGuesses)
		s.mu.Unlock()
		if pending > 0 {
			break
		}
		if err := s.SubmitLink(host.ID, domain.LinkWord, "word"); err != nil {
			s.SubmitLink(host.ID, domain.LinkDrawing, "data:image/png;base64,x")
		}
	}

	s.mu.Lock()
	first := s.pendingGuesses[0]
	s.mu.Unlock()

	// A failed guess is dropped without touching the chain, and the
	// next sweep asks again for the same slot.
	require.NoError(t, s.AIGuessResult(false, "", ""))
	if err := s.SubmitLink(host.ID, domain.LinkWord, "word"); err != nil {
		require.NoError(t, s.SubmitLink(host.ID, domain.LinkDrawing, "data:image/png;base64,x"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, g := range s.pendingGuesses {
		if g == first {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSessionDisconnectAndReplace(t *testing.T) {
	t.Run("replace with ghost bot", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()

		players, _ := joinPlayers(t, s, 4)
		require.NoError(t, s.StartRound(players[0].ID, 0, "Animals", false, false))

		for _, p := range players {
			require.NoError(t, s.SubmitLink(p.ID, domain.LinkWord, "word"))
		}

		s.DisconnectPlayer(players[2].ID)
		require.NoError(t, s.ReplaceWithBot(players[0].ID, players[2].ID))

		round := s.game.CurrentRound
		pos := -1
		for i, p := range round.Positions {
			if p.IsAI {
				pos = i
			}
		}
		require.NotEqual(t, -1, pos)
		assert.True(t, strings.HasPrefix(round.Positions[pos].Name, "👻 The Ghost of "))
	})

	t.Run("connected players cannot be replaced", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()

		players, _ := joinPlayers(t, s, 4)
		require.NoError(t, s.StartRound(players[0].ID, 0, "Animals", false, false))

		err := s.ReplaceWithBot(players[0].ID, players[1].ID)
		assert.ErrorIs(t, err, domain.ErrNotReplaceable)
	})

	t.Run("potential player takes over a slot", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()

		players, _ := joinPlayers(t, s, 4)
		require.NoError(t, s.StartRound(players[0].ID, 0, "Animals", false, false))

		for _, p := range players {
			require.NoError(t, s.SubmitLink(p.ID, domain.LinkWord, "word"))
		}

		lateClient := &fakeClient{}
		late, queued, err := s.Join("Late Player", lateClient)
		require.NoError(t, err)
		require.True(t, queued)

		s.DisconnectPlayer(players[2].ID)

		assert.Eventually(t, func() bool {
			return lateClient.received(string(domain.EventReplacePlayer))
		}, time.Second, 10*time.Millisecond)

		require.NoError(t, s.ReplaceWithPotential(late.ID, players[2].ID))

		// The replacement is now on the roster in the old player's spot.
		info := s.GameInfo()
		names := make([]string, 0, len(info.Players))
		for _, p := range info.Players {
			names = append(names, p.Name)
		}
		assert.Contains(t, names, "Late Player")
		assert.NotContains(t, names, "Player 2")
	})

	t.Run("lost replacement race resynchronizes", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()

		players, _ := joinPlayers(t, s, 4)
		require.NoError(t, s.StartRound(players[0].ID, 0, "Animals", false, false))

		late, queued, err := s.Join("Late Player", &fakeClient{})
		require.NoError(t, err)
		require.True(t, queued)

		err = s.ReplaceWithPotential(late.ID, players[1].ID)
		assert.ErrorIs(t, err, domain.ErrNotReplaceable)
	})
}

func TestSessionKickPlayer(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	players, clients := joinPlayers(t, s, 4)

	err := s.KickPlayer(players[1].ID, players[2].ID)
	assert.ErrorIs(t, err, domain.ErrNotHost)

	require.NoError(t, s.KickPlayer(players[0].ID, players[2].ID))
	clients[2].mu.Lock()
	closed := clients[2].closed
	clients[2].mu.Unlock()
	assert.True(t, closed)
}

func TestSessionSettings(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	players, clients := joinPlayers(t, s, 4)

	err := s.UpdateSettings(players[1].ID, "wordPackName", "Animals")
	assert.ErrorIs(t, err, domain.ErrNotHost)

	require.NoError(t, s.UpdateSettings(players[0].ID, "wordPackName", "Animals"))

	// Mirrored to the other players but not echoed to the host.
	for _, c := range clients[1:] {
		c := c
		assert.Eventually(t, func() bool {
			return c.received(string(domain.EventUpdateSettings))
		}, time.Second, 10*time.Millisecond)
	}
	assert.False(t, clients[0].received(string(domain.EventUpdateSettings)))

	require.NoError(t, s.StartRound(players[0].ID, 0, "Animals", false, false))
	err = s.UpdateSettings(players[0].ID, "wordPackName", "Objects")
	assert.ErrorIs(t, err, domain.ErrGameInProgress)
}

func TestSessionViewPreviousResults(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	players, clients := joinPlayers(t, s, 1)

	err := s.ViewPreviousResults(players[0].ID)
	assert.ErrorIs(t, err, domain.ErrNoResults)

	require.NoError(t, s.StartRound(players[0].ID, 0, "Animals", false, false))
	require.NoError(t, s.SubmitLink(players[0].ID, domain.LinkWord, "apple"))
	require.False(t, s.InProgress())

	require.NoError(t, s.ViewPreviousResults(players[0].ID))
	assert.Eventually(t, func() bool {
		return clients[0].received(string(domain.EventViewResults))
	}, time.Second, 10*time.Millisecond)
}

func TestSessionLobbyDisconnectRemovesPlayer(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	players, _ := joinPlayers(t, s, 3)
	s.DisconnectPlayer(players[1].ID)
	assert.Equal(t, 2, s.PlayerCount())
}
