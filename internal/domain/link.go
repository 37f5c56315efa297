package domain

import "time"

// LinkType represents the kind of contribution a link holds
type LinkType string

const (
	LinkWord      LinkType = "word"
	LinkDrawing   LinkType = "drawing"
	LinkFirstWord LinkType = "first-word"
)

// Link is one atomic contribution to a chain. Immutable once created.
// Drawing data is an opaque data-URL string and is never parsed.
type Link struct {
	Type       LinkType  `json:"type"`
	Data       string    `json:"data"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewLink creates a new link authored by the given player
func NewLink(linkType LinkType, data string, author *Player) Link {
	return Link{
		Type:       linkType,
		Data:       data,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		CreatedAt:  time.Now(),
	}
}

// NextAfter derives the type that must follow a link of type t.
// Chains strictly alternate word/drawing; the first-word seam counts
// as a prompt, so a real word follows it.
func NextAfter(t LinkType) LinkType {
	if t == LinkWord {
		return LinkDrawing
	}
	return LinkWord
}
