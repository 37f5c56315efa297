package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// RoundState represents where a round is in its lifecycle
type RoundState string

const (
	RoundCollecting RoundState = "COLLECTING" // players producing links
	RoundAllDone    RoundState = "ALL_DONE"   // every chain's final slot filled
	RoundFinalizing RoundState = "FINALIZING" // assembling the result set
	RoundComplete   RoundState = "COMPLETE"
)

// CanTransitionTo checks if a transition from the current state to the
// target state is valid
func (s RoundState) CanTransitionTo(target RoundState) bool {
	validTransitions := map[RoundState][]RoundState{
		RoundCollecting: {RoundAllDone},
		RoundAllDone:    {RoundFinalizing},
		RoundFinalizing: {RoundComplete},
	}

	for _, state := range validTransitions[s] {
		if state == target {
			return true
		}
	}
	return false
}

// Round orchestrates one timed cycle across all chains. Positions is
// the player-order snapshot captured at round start: the player at
// position i owns chain i, and chain c's link number k is owed by the
// player at position (c+k) mod N. Replacement swaps a position's
// occupant without touching rotation math or chain history.
type Round struct {
	Number        int        `json:"number"`
	TimeLimit     int        `json:"timeLimit"` // seconds, advisory only
	WordPackName  string     `json:"wordPackName,omitempty"`
	WordFirst     bool       `json:"wordFirst"`
	ShowNeighbors bool       `json:"showNeighbors"`
	State         RoundState `json:"state"`
	Chains        []*Chain   `json:"chains"`
	Positions     []*Player  `json:"positions"`
	Potentials    []*Player  `json:"-"` // late joiners waiting for a vacancy
	StartedAt     time.Time  `json:"startedAt"`
	EndedAt       time.Time  `json:"endedAt,omitempty"`
}

// NewRound snapshots the given player order and creates one chain per
// player. In word-first mode each chain is pre-seeded with a prompt
// link, so the first real word comes from the next player in rotation
// rather than the owner.
func NewRound(number, timeLimit int, wordPackName string, showNeighbors bool, players []*Player) *Round {
	positions := make([]*Player, len(players))
	copy(positions, players)

	wordFirst := wordPackName == ""

	chains := make([]*Chain, len(positions))
	for i, owner := range positions {
		chain := NewChain(uuid.New().String(), owner, len(positions))
		if wordFirst {
			chain.Links = append(chain.Links, NewLink(LinkFirstWord, "", owner))
		}
		chains[i] = chain
	}

	return &Round{
		Number:        number,
		TimeLimit:     timeLimit,
		WordPackName:  wordPackName,
		WordFirst:     wordFirst,
		ShowNeighbors: showNeighbors,
		State:         RoundCollecting,
		Chains:        chains,
		Positions:     positions,
		Potentials:    make([]*Player, 0),
		StartedAt:     time.Now(),
	}
}

// PlayerCount returns the size of the rotation snapshot
func (r *Round) PlayerCount() int {
	return len(r.Positions)
}

// PositionOf returns the snapshot position currently held by the player
func (r *Round) PositionOf(playerID string) (int, bool) {
	for i, p := range r.Positions {
		if p.ID == playerID {
			return i, true
		}
	}
	return 0, false
}

// PendingPlayer returns the player who owes the given chain its next
// link, or false if the chain is complete.
func (r *Round) PendingPlayer(chainIndex int) (*Player, bool) {
	chain := r.Chains[chainIndex]
	if chain.IsComplete() {
		return nil, false
	}
	return r.Positions[(chainIndex+chain.Len())%len(r.Positions)], true
}

// PendingChains returns the indexes of every chain currently waiting on
// the given player, shortest chain first. Chains advance independently,
// so a player can briefly owe more than one when an unrelated chain was
// blocked; the first entry is their active assignment.
func (r *Round) PendingChains(playerID string) []int {
	pending := make([]int, 0, 1)
	for i := range r.Chains {
		if p, ok := r.PendingPlayer(i); ok && p.ID == playerID {
			pending = append(pending, i)
		}
	}
	sort.Slice(pending, func(a, b int) bool {
		la, lb := r.Chains[pending[a]].Len(), r.Chains[pending[b]].Len()
		if la != lb {
			return la < lb
		}
		return pending[a] < pending[b]
	})
	return pending
}

// AssignedChain returns the chain the player must contribute to next
func (r *Round) AssignedChain(playerID string) (*Chain, bool) {
	pending := r.PendingChains(playerID)
	if len(pending) == 0 {
		return nil, false
	}
	return r.Chains[pending[0]], true
}

// ChainByID returns the chain with the given ID
func (r *Round) ChainByID(id string) (*Chain, bool) {
	for _, c := range r.Chains {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// SubmitLink appends the player's contribution to their assigned chain.
// Submissions for a blocked, unrelated chain are unaffected: only the
// submitting player's own assignment is touched.
func (r *Round) SubmitLink(player *Player, linkType LinkType, data string) (*Chain, error) {
	if r.State != RoundCollecting {
		return nil, ErrNoActiveRound
	}

	chain, ok := r.AssignedChain(player.ID)
	if !ok {
		return nil, ErrNotYourTurn
	}

	if err := chain.AppendLink(NewLink(linkType, data, player)); err != nil {
		return nil, err
	}

	return chain, nil
}

// CanBeReplaced reports whether the player holds a replaceable slot:
// they are disconnected and some chain is still waiting on their
// contribution.
func (r *Round) CanBeReplaced(playerID string) bool {
	pos, ok := r.PositionOf(playerID)
	if !ok || r.Positions[pos].IsConnected() {
		return false
	}
	return len(r.PendingChains(playerID)) > 0
}

// ReplacePlayer rebinds the replaced player's snapshot position to the
// replacement. Chain history and rotation math are untouched; only the
// pending slot changes hands. The replacement is removed from the
// potential-player queue if it was waiting there.
func (r *Round) ReplacePlayer(oldID string, replacement *Player) error {
	if !r.CanBeReplaced(oldID) {
		return ErrNotReplaceable
	}

	pos, _ := r.PositionOf(oldID)
	r.Positions[pos] = replacement

	for i, p := range r.Potentials {
		if p.ID == replacement.ID {
			r.Potentials = append(r.Potentials[:i], r.Potentials[i+1:]...)
			break
		}
	}

	return nil
}

// AddPotentialPlayer queues a late joiner until a vacancy opens
func (r *Round) AddPotentialPlayer(p *Player) {
	r.Potentials = append(r.Potentials, p)
}

// ReplaceablePlayers returns every player whose slot a potential player
// or bot could currently take over.
func (r *Round) ReplaceablePlayers() []*Player {
	out := make([]*Player, 0)
	for _, p := range r.Positions {
		if r.CanBeReplaced(p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// WaitingList derives the broadcast payload describing who the round is
// still waiting on. It is a pure function of round state; replaying it
// to a client has no server-side effect.
func (r *Round) WaitingList() *WaitingListPayload {
	payload := &WaitingListPayload{
		NotFinished:  make([]string, 0),
		Disconnected: make([]string, 0),
	}
	for _, p := range r.Positions {
		if len(r.PendingChains(p.ID)) == 0 {
			continue
		}
		if p.IsConnected() {
			payload.NotFinished = append(payload.NotFinished, p.Name)
		} else {
			payload.Disconnected = append(payload.Disconnected, p.Name)
		}
	}
	return payload
}

// Advance is the single everyone-done check, re-run after every
// mutating operation. It moves the round to AllDone once every chain
// holds a link for every player. Blocked chains only ever delay
// themselves; completion is re-derived from chain lengths each call.
func (r *Round) Advance() bool {
	if r.State != RoundCollecting {
		return false
	}
	for _, chain := range r.Chains {
		if !chain.IsComplete() {
			return false
		}
	}
	r.State = RoundAllDone
	return true
}

// Finalize seals the chains and assembles the result payload, moving
// the round to its terminal state.
func (r *Round) Finalize() (*ResultsPayload, error) {
	if !r.State.CanTransitionTo(RoundFinalizing) {
		return nil, ErrNoActiveRound
	}
	r.State = RoundFinalizing
	r.EndedAt = time.Now()

	results := &ResultsPayload{
		Chains:    r.Chains,
		RoundTime: r.EndedAt.Sub(r.StartedAt).Milliseconds(),
	}

	r.State = RoundComplete
	return results, nil
}

// IsComplete returns true once the round has been finalized
func (r *Round) IsComplete() bool {
	return r.State == RoundComplete
}
