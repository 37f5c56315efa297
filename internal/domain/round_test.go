package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePlayers(n int) []*Player {
	players := make([]*Player, n)
	for i := range players {
		players[i] = NewPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("Player %d", i))
	}
	return players
}

// playOut drives the round to completion by letting every player submit
// whatever their assigned chain needs, repeatedly, until nothing is
// pending anywhere.
func playOut(t *testing.T, r *Round) {
	t.Helper()
	for i := 0; i < 200; i++ {
		progressed := false
		for _, p := range r.Positions {
			chain, ok := r.AssignedChain(p.ID)
			if !ok {
				continue
			}
			_, err := r.SubmitLink(p, chain.NextLinkType(), "x")
			require.NoError(t, err)
			progressed = true
		}
		if !progressed {
			return
		}
	}
	t.Fatal("round did not complete")
}

func TestNewRound(t *testing.T) {
	t.Run("word pack mode creates empty chains", func(t *testing.T) {
		players := makePlayers(4)
		r := NewRound(1, 0, "Animals", false, players)

		assert.False(t, r.WordFirst)
		assert.Len(t, r.Chains, 4)
		for i, chain := range r.Chains {
			assert.Equal(t, players[i].ID, chain.OwnerID)
			assert.Equal(t, 0, chain.Len())
		}
	})

	t.Run("word first mode seeds a prompt link", func(t *testing.T) {
		players := makePlayers(4)
		r := NewRound(1, 0, "", false, players)

		assert.True(t, r.WordFirst)
		for i, chain := range r.Chains {
			require.Equal(t, 1, chain.Len())
			assert.Equal(t, LinkFirstWord, chain.Links[0].Type)
			assert.Equal(t, players[i].ID, chain.Links[0].AuthorID)
		}
	})

	t.Run("snapshot is a copy of the player slice", func(t *testing.T) {
		players := makePlayers(4)
		r := NewRound(1, 0, "Animals", false, players)

		players[0] = NewPlayer("other", "Other Player")
		assert.Equal(t, "p0", r.Positions[0].ID)
	})
}

func TestRoundRotation(t *testing.T) {
	t.Run("each player starts on their own chain", func(t *testing.T) {
		players := makePlayers(4)
		r := NewRound(1, 0, "Animals", false, players)

		for i, p := range players {
			chain, ok := r.AssignedChain(p.ID)
			require.True(t, ok)
			assert.Equal(t, r.Chains[i].ID, chain.ID)
		}
	})

	t.Run("assignments rotate by one each tick", func(t *testing.T) {
		players := makePlayers(4)
		r := NewRound(1, 0, "Animals", false, players)

		for _, p := range players {
			_, err := r.SubmitLink(p, LinkWord, "apple")
			require.NoError(t, err)
		}

		// After everyone's first word, player i draws on the chain
		// owned by the player before them.
		for i, p := range players {
			chain, ok := r.AssignedChain(p.ID)
			require.True(t, ok)
			want := r.Chains[(i+3)%4]
			assert.Equal(t, want.ID, chain.ID)
			assert.Equal(t, LinkDrawing, chain.NextLinkType())
		}
	})

	t.Run("every player touches every chain exactly once", func(t *testing.T) {
		players := makePlayers(5)
		r := NewRound(1, 0, "Animals", false, players)

		playOut(t, r)

		for _, chain := range r.Chains {
			require.Equal(t, 5, chain.Len())
			seen := make(map[string]bool)
			for _, link := range chain.Links {
				assert.False(t, seen[link.AuthorID], "author %s repeated in chain", link.AuthorID)
				seen[link.AuthorID] = true
			}
		}
	})
}

func TestRoundAlternation(t *testing.T) {
	players := makePlayers(4)
	r := NewRound(1, 0, "Animals", false, players)

	_, err := r.SubmitLink(players[0], LinkDrawing, "data:image/png;base64,x")
	assert.ErrorIs(t, err, ErrWrongLinkType)

	_, err = r.SubmitLink(players[0], LinkWord, "apple")
	require.NoError(t, err)

	// Player 3 now owes chain 0 a drawing; a word is refused.
	_, err = r.SubmitLink(players[1], LinkWord, "banana")
	require.NoError(t, err)
	_, err = r.SubmitLink(players[2], LinkWord, "cherry")
	require.NoError(t, err)
	_, err = r.SubmitLink(players[3], LinkWord, "mango")
	require.NoError(t, err)

	chain, ok := r.AssignedChain(players[3].ID)
	require.True(t, ok)
	assert.Equal(t, LinkDrawing, chain.NextLinkType())
	_, err = r.SubmitLink(players[3], LinkWord, "plum")
	assert.ErrorIs(t, err, ErrWrongLinkType)
}

func TestRoundDecoupling(t *testing.T) {
	players := makePlayers(4)
	r := NewRound(1, 0, "Animals", false, players)

	// Player 2 goes silent; everyone else keeps playing.
	for i, p := range players {
		if i == 2 {
			continue
		}
		_, err := r.SubmitLink(p, LinkWord, "word")
		require.NoError(t, err)
	}

	// The other players keep contributing until every chain has
	// rotated around to player 2's slot and stalled there.
	for i := 0; i < 3; i++ {
		for _, p := range []*Player{players[0], players[1], players[3]} {
			chain, ok := r.AssignedChain(p.ID)
			if !ok {
				continue
			}
			_, err := r.SubmitLink(p, chain.NextLinkType(), "x")
			require.NoError(t, err)
		}
	}

	assert.False(t, r.Advance())

	pending := r.PendingChains(players[2].ID)
	assert.NotEmpty(t, pending)
	for _, idx := range pending {
		p, ok := r.PendingPlayer(idx)
		require.True(t, ok)
		assert.Equal(t, players[2].ID, p.ID)
	}
}

func TestRoundPendingChainsShortestFirst(t *testing.T) {
	players := makePlayers(4)
	r := NewRound(1, 0, "Animals", false, players)

	// Players 0, 1 and 3 submit their first words while player 2 stays
	// idle. Player 2 now owes chain 2 its first word and chain 1 a
	// drawing; the shorter chain comes first.
	for _, i := range []int{0, 1, 3} {
		_, err := r.SubmitLink(players[i], LinkWord, "word")
		require.NoError(t, err)
	}

	pending := r.PendingChains(players[2].ID)
	require.Len(t, pending, 2)
	assert.Equal(t, 2, pending[0])
	assert.Equal(t, 1, pending[1])
}

func TestRoundReplacement(t *testing.T) {
	t.Run("connected players cannot be replaced", func(t *testing.T) {
		players := makePlayers(4)
		r := NewRound(1, 0, "Animals", false, players)

		assert.False(t, r.CanBeReplaced(players[0].ID))
		err := r.ReplacePlayer(players[0].ID, NewPlayer("new", "Newcomer"))
		assert.ErrorIs(t, err, ErrNotReplaceable)
	})

	t.Run("disconnected player with nothing pending cannot be replaced", func(t *testing.T) {
		players := makePlayers(4)
		r := NewRound(1, 0, "Animals", false, players)

		_, err := r.SubmitLink(players[0], LinkWord, "apple")
		require.NoError(t, err)
		players[0].Disconnect()

		// Chain 3 has no first word yet, so nothing is waiting on
		// player 0 until player 3 submits.
		assert.False(t, r.CanBeReplaced(players[0].ID))
	})

	t.Run("replacement takes over the slot and history survives", func(t *testing.T) {
		players := makePlayers(4)
		r := NewRound(1, 0, "Animals", false, players)

		for _, p := range players {
			_, err := r.SubmitLink(p, LinkWord, "word")
			require.NoError(t, err)
		}

		players[2].Disconnect()
		require.True(t, r.CanBeReplaced(players[2].ID))

		sub := NewPlayer("sub", "Substitute")
		require.NoError(t, r.ReplacePlayer(players[2].ID, sub))

		pos, ok := r.PositionOf(sub.ID)
		require.True(t, ok)
		assert.Equal(t, 2, pos)
		_, gone := r.PositionOf(players[2].ID)
		assert.False(t, gone)

		// The replaced player's earlier link is untouched, and the
		// chain's owner is still the original player.
		assert.Equal(t, players[2].ID, r.Chains[2].Links[0].AuthorID)
		assert.Equal(t, players[2].ID, r.Chains[2].OwnerID)

		playOut(t, r)
		assert.True(t, r.Advance())
	})

	t.Run("replacement is dequeued from the potentials", func(t *testing.T) {
		players := makePlayers(4)
		r := NewRound(1, 0, "Animals", false, players)

		for _, p := range players {
			_, err := r.SubmitLink(p, LinkWord, "word")
			require.NoError(t, err)
		}
		players[1].Disconnect()

		sub := NewPlayer("sub", "Substitute")
		r.AddPotentialPlayer(sub)
		require.Len(t, r.Potentials, 1)

		require.NoError(t, r.ReplacePlayer(players[1].ID, sub))
		assert.Empty(t, r.Potentials)
	})
}

func TestRoundReplaceablePlayers(t *testing.T) {
	players := makePlayers(4)
	r := NewRound(1, 0, "Animals", false, players)

	for _, p := range players {
		_, err := r.SubmitLink(p, LinkWord, "word")
		require.NoError(t, err)
	}

	players[0].Disconnect()
	players[2].Disconnect()

	replaceable := r.ReplaceablePlayers()
	require.Len(t, replaceable, 2)
	assert.Equal(t, players[0].ID, replaceable[0].ID)
	assert.Equal(t, players[2].ID, replaceable[1].ID)
}

func TestRoundWaitingList(t *testing.T) {
	players := makePlayers(4)
	r := NewRound(1, 0, "Animals", false, players)

	_, err := r.SubmitLink(players[0], LinkWord, "apple")
	require.NoError(t, err)
	players[3].Disconnect()

	list := r.WaitingList()
	assert.ElementsMatch(t, []string{"Player 1", "Player 2"}, list.NotFinished)
	assert.Equal(t, []string{"Player 3"}, list.Disconnected)

	// Deriving the list twice changes nothing.
	again := r.WaitingList()
	assert.Equal(t, list.NotFinished, again.NotFinished)
	assert.Equal(t, list.Disconnected, again.Disconnected)
}

func TestRoundAdvanceAndFinalize(t *testing.T) {
	t.Run("advance is false while any chain is open", func(t *testing.T) {
		players := makePlayers(4)
		r := NewRound(1, 0, "Animals", false, players)

		assert.False(t, r.Advance())
		assert.Equal(t, RoundCollecting, r.State)
	})

	t.Run("finalize requires all done", func(t *testing.T) {
		players := makePlayers(4)
		r := NewRound(1, 0, "Animals", false, players)

		_, err := r.Finalize()
		assert.ErrorIs(t, err, ErrNoActiveRound)
	})

	t.Run("full round finalizes with sealed chains", func(t *testing.T) {
		players := makePlayers(4)
		r := NewRound(1, 0, "Animals", false, players)

		playOut(t, r)
		require.True(t, r.Advance())

		results, err := r.Finalize()
		require.NoError(t, err)
		assert.Len(t, results.Chains, 4)
		assert.GreaterOrEqual(t, results.RoundTime, int64(0))
		assert.True(t, r.IsComplete())

		// Sealed: nothing more can be submitted.
		_, err = r.SubmitLink(players[0], LinkWord, "late")
		assert.ErrorIs(t, err, ErrNoActiveRound)
	})
}

func TestRoundWordFirstCompletes(t *testing.T) {
	players := makePlayers(4)
	r := NewRound(1, 0, "", false, players)

	playOut(t, r)
	require.True(t, r.Advance())

	for _, chain := range r.Chains {
		require.Equal(t, 4, chain.Len())
		assert.Equal(t, LinkFirstWord, chain.Links[0].Type)
		assert.Equal(t, LinkWord, chain.Links[1].Type)
		assert.Equal(t, LinkDrawing, chain.Links[2].Type)
		assert.Equal(t, LinkWord, chain.Links[3].Type)
	}
}

func TestRoundSolo(t *testing.T) {
	players := makePlayers(1)
	r := NewRound(1, 0, "Animals", false, players)

	_, err := r.SubmitLink(players[0], LinkWord, "apple")
	require.NoError(t, err)
	assert.True(t, r.Advance())
}

func TestRoundStateTransitions(t *testing.T) {
	assert.True(t, RoundCollecting.CanTransitionTo(RoundAllDone))
	assert.True(t, RoundAllDone.CanTransitionTo(RoundFinalizing))
	assert.True(t, RoundFinalizing.CanTransitionTo(RoundComplete))

	assert.False(t, RoundCollecting.CanTransitionTo(RoundComplete))
	assert.False(t, RoundComplete.CanTransitionTo(RoundCollecting))
	assert.False(t, RoundAllDone.CanTransitionTo(RoundCollecting))
}
