package model

// Card is a single estimation card from a deck.
type Card struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Numeric reports whether the card carries an estimate that can be
// averaged. Abstention cards such as "?" are defined with a negative
// value and are excluded from numeric aggregates.
func (c Card) Numeric() bool {
	return c.Value >= 0
}

// Deck is a named, ordered set of estimation cards. Decks are loaded
// once at startup and never mutated.
type Deck struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Cards []Card `json:"cards"`
}

// Card returns the deck card with the given label.
func (d Deck) Card(label string) (Card, bool) {
	for _, c := range d.Cards {
		if c.Label == label {
			return c, true
		}
	}
	return Card{}, false
}

// Summary returns the deck without its card list, for embedding in
// game state snapshots and listings.
func (d Deck) Summary() DeckSummary {
	return DeckSummary{ID: d.ID, Name: d.Name, NumCards: len(d.Cards)}
}

// DeckSummary identifies a deck without carrying its cards.
type DeckSummary struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	NumCards int    `json:"numCards"`
}
