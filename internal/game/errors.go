package game

import "errors"

// Engine errors are surfaced to the originating connection as rejected
// actions; none of them mutate session state or affect other players.
var (
	// ErrGameNotFound means no live session exists for the given code.
	ErrGameNotFound = errors.New("game not found")
	// ErrUnknownPlayer means the player ID is not part of the session.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrUnknownCard means the vote is not a card of the session's deck.
	ErrUnknownCard = errors.New("card not in deck")
	// ErrInvalidState means the action is not legal in the current
	// round state, e.g. voting before a round has started.
	ErrInvalidState = errors.New("invalid round state")
	// ErrNotAuthorized means a non-admin player attempted an
	// admin-only action.
	ErrNotAuthorized = errors.New("not authorized")
)
