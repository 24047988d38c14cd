// Package deck holds the read-only catalog of estimation decks games
// pick their cards from.
package deck

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/tristeng/planning-poker/internal/model"
)

// ErrUnknownDeck is returned when a deck ID is not in the catalog.
// Callers decide whether to fall back to the default deck or reject.
var ErrUnknownDeck = errors.New("unknown deck")

// Catalog is an immutable set of decks, fixed at process start.
type Catalog struct {
	decks     map[int]model.Deck
	defaultID int
}

// NewCatalog builds a catalog from the given decks. The deck with
// defaultID becomes the default; it must be present.
func NewCatalog(decks []model.Deck, defaultID int) (*Catalog, error) {
	if len(decks) == 0 {
		return nil, errors.New("catalog requires at least one deck")
	}
	byID := make(map[int]model.Deck, len(decks))
	for _, d := range decks {
		if len(d.Cards) == 0 {
			return nil, fmt.Errorf("deck %d (%s) has no cards", d.ID, d.Name)
		}
		if _, ok := byID[d.ID]; ok {
			return nil, fmt.Errorf("duplicate deck ID %d", d.ID)
		}
		byID[d.ID] = d
	}
	if _, ok := byID[defaultID]; !ok {
		return nil, fmt.Errorf("default deck %d not in catalog", defaultID)
	}
	return &Catalog{decks: byID, defaultID: defaultID}, nil
}

// deckFile is the on-disk shape of a deck definition file.
type deckFile struct {
	Default int          `json:"default"`
	Decks   []model.Deck `json:"decks"`
}

// LoadFile reads deck definitions from a JSON file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck file: %w", err)
	}
	var f deckFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse deck file %s: %w", path, err)
	}
	return NewCatalog(f.Decks, f.Default)
}

// Builtin returns the compiled-in catalog used when no deck file is
// configured. The "?" card abstains from numeric aggregates.
func Builtin() *Catalog {
	c, err := NewCatalog([]model.Deck{
		{
			ID:   1,
			Name: "Fibonacci",
			Cards: []model.Card{
				{Label: "1/2", Value: 0.5},
				{Label: "1", Value: 1},
				{Label: "2", Value: 2},
				{Label: "3", Value: 3},
				{Label: "5", Value: 5},
				{Label: "8", Value: 8},
				{Label: "13", Value: 13},
				{Label: "21", Value: 21},
				{Label: "?", Value: -1},
			},
		},
		{
			ID:   2,
			Name: "Powers of Two",
			Cards: []model.Card{
				{Label: "1", Value: 1},
				{Label: "2", Value: 2},
				{Label: "4", Value: 4},
				{Label: "8", Value: 8},
				{Label: "16", Value: 16},
				{Label: "32", Value: 32},
				{Label: "?", Value: -1},
			},
		},
	}, 1)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the deck with the given ID or ErrUnknownDeck.
func (c *Catalog) Get(id int) (model.Deck, error) {
	d, ok := c.decks[id]
	if !ok {
		return model.Deck{}, fmt.Errorf("%w: %d", ErrUnknownDeck, id)
	}
	return d, nil
}

// Default returns the catalog's default deck.
func (c *Catalog) Default() model.Deck {
	return c.decks[c.defaultID]
}

// List returns summaries of every deck, ordered by ID.
func (c *Catalog) List() []model.DeckSummary {
	out := make([]model.DeckSummary, 0, len(c.decks))
	for _, d := range c.decks {
		out = append(out, d.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
