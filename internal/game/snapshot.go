package game

import (
	"github.com/google/uuid"

	"github.com/tristeng/planning-poker/internal/model"
)

// Snapshot is the full view of a session pushed to every connected
// client on each state change. While voting is open, a player's entry
// only says whether they voted; the card itself appears once the admin
// reveals the round.
type Snapshot struct {
	Game      model.Game        `json:"game"`
	State     model.RoundState  `json:"state"`
	Deck      model.DeckSummary `json:"deck"`
	AdminID   uuid.UUID         `json:"adminId"`
	TicketURL string            `json:"ticketUrl,omitempty"`
	Players   []PlayerState     `json:"players"`
	Aggregate *Aggregate        `json:"aggregate,omitempty"`
}

// PlayerState is one player's entry in a snapshot.
type PlayerState struct {
	Player    model.Player `json:"player"`
	Connected bool         `json:"connected"`
	Admin     bool         `json:"admin"`
	Observing bool         `json:"observing"`
	HasVoted  bool         `json:"hasVoted"`
	Card      *model.Card  `json:"card,omitempty"`
}

// Aggregate summarizes the revealed votes of one round. Abstention
// cards count toward Votes and Distinct but not the Mean.
type Aggregate struct {
	Votes     int     `json:"votes"`
	Distinct  int     `json:"distinct"`
	Abstained int     `json:"abstained"`
	Mean      float64 `json:"mean"`
	Consensus bool    `json:"consensus"`
}

// aggregate computes the round summary from the revealed votes. It is
// a pure function of the cast cards.
func aggregate(votes []model.Card) *Aggregate {
	agg := &Aggregate{}
	labels := make(map[string]struct{})
	var sum float64
	var numeric int
	for _, c := range votes {
		agg.Votes++
		labels[c.Label] = struct{}{}
		if c.Numeric() {
			sum += c.Value
			numeric++
		} else {
			agg.Abstained++
		}
	}
	agg.Distinct = len(labels)
	if numeric > 0 {
		agg.Mean = sum / float64(numeric)
	}
	agg.Consensus = agg.Votes > 0 && agg.Distinct == 1
	return agg
}
