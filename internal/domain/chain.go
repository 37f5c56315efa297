package domain

// Chain is an ordered sequence of alternating contributions, one per
// participating player. The owner is the player whose position seeded
// link zero; it never changes, even if that player is later replaced.
type Chain struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId"`
	OwnerName string `json:"ownerName"`
	Links     []Link `json:"links"`

	// capacity is the number of links this chain holds when complete,
	// fixed at the round's player count.
	capacity int
}

// NewChain creates an empty chain owned by the given player
func NewChain(id string, owner *Player, capacity int) *Chain {
	return &Chain{
		ID:        id,
		OwnerID:   owner.ID,
		OwnerName: owner.Name,
		Links:     make([]Link, 0, capacity),
		capacity:  capacity,
	}
}

// AppendLink adds a link to the end of the chain. The link's type must
// match NextLinkType, and a completed chain accepts nothing further.
func (c *Chain) AppendLink(link Link) error {
	if c.IsComplete() {
		return ErrChainFull
	}
	if link.Type != c.NextLinkType() {
		return ErrWrongLinkType
	}
	c.Links = append(c.Links, link)
	return nil
}

// NextLinkType derives the type the next contribution must have. An
// empty chain starts with a word; afterwards types strictly alternate,
// with first-word acting as a prompt for a word.
func (c *Chain) NextLinkType() LinkType {
	if len(c.Links) == 0 {
		return LinkWord
	}
	return NextAfter(c.Links[len(c.Links)-1].Type)
}

// Len returns the number of links currently in the chain
func (c *Chain) Len() int {
	return len(c.Links)
}

// IsComplete returns true once the chain holds a link for every player
func (c *Chain) IsComplete() bool {
	return len(c.Links) >= c.capacity
}

// LastLink returns the most recent link, or false for an empty chain
func (c *Chain) LastLink() (Link, bool) {
	if len(c.Links) == 0 {
		return Link{}, false
	}
	return c.Links[len(c.Links)-1], true
}
