package model

// RoundState is the voting phase of a game session.
type RoundState string

const (
	// RoundInit is the state of a freshly created session, before the
	// admin has started the first round.
	RoundInit RoundState = "init"
	// RoundVoting means votes are being collected; values stay hidden.
	RoundVoting RoundState = "voting"
	// RoundRevealed means all votes are visible to the whole room.
	RoundRevealed RoundState = "revealed"
)

// Game is the immutable description of a game session, fixed at
// creation time.
type Game struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	DeckID int    `json:"deckId"`
}
