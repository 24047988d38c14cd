package model

import "encoding/json"

// MessageType discriminates the messages exchanged with clients over a
// game connection.
type MessageType string

// Client messages.
const (
	MsgVote       MessageType = "vote"        // submit or change a vote for the current round
	MsgObserve    MessageType = "observe"     // toggle observer mode
	MsgSync       MessageType = "sync"        // request the current game state
	MsgLeave      MessageType = "leave"       // leave the game for good
	MsgStartRound MessageType = "start_round" // admin only: clear votes and open a round
	MsgReveal     MessageType = "reveal"      // admin only: show everyone's votes
)

// Server messages.
const (
	MsgState MessageType = "state" // full game state snapshot
	MsgError MessageType = "error" // rejected action, sent to the offender only
)

// Message is the envelope for all game messages in both directions.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// VotePayload carries a vote submission; the label must match a card
// of the game's deck.
type VotePayload struct {
	Label string `json:"label"`
}

// StartRoundPayload optionally links the story being estimated next.
type StartRoundPayload struct {
	TicketURL string `json:"ticketUrl,omitempty"`
}

// ErrorPayload describes a rejected action.
type ErrorPayload struct {
	Message string `json:"message"`
}
