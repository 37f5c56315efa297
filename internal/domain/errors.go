package domain

import "errors"

// Domain errors
var (
	ErrGameNotFound   = errors.New("game not found")
	ErrNameLength     = errors.New("name too short/long")
	ErrGameInProgress = errors.New("game already in progress")
	ErrNotReady       = errors.New("round preconditions not met")
	ErrNotHost        = errors.New("only the host can perform this action")
	ErrPlayerNotFound = errors.New("player not found")
	ErrNoWordPack     = errors.New("a word pack or word-first mode is required")
	ErrNegativeTime   = errors.New("time limit must be zero or greater")
	ErrNotYourTurn    = errors.New("no chain is waiting on you")
	ErrWrongLinkType  = errors.New("link type does not match the chain")
	ErrChainFull      = errors.New("chain already has all of its links")
	ErrNotReplaceable = errors.New("player cannot be replaced right now")
	ErrNoActiveRound  = errors.New("no round is in progress")
	ErrNoResults      = errors.New("no previous results to view")
	ErrServerLocked   = errors.New("server is pending a restart")
	ErrNoPendingGuess = errors.New("no guess was requested")
)
