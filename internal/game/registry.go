package game

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tristeng/planning-poker/internal/deck"
	"github.com/tristeng/planning-poker/internal/model"
)

// codeAlphabet are the characters game codes are drawn from. Codes are
// lowercase so they are easy to read out and type; lookups fold case.
const (
	codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	codeLen      = 4
)

// Registry is the process-wide map of live game sessions, keyed by
// their shareable code. It is constructed once at startup and injected
// into the transport handlers; sessions are dropped automatically when
// their last player leaves.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	catalog  *deck.Catalog
}

// NewRegistry creates an empty registry drawing decks from catalog.
func NewRegistry(catalog *deck.Catalog) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		catalog:  catalog,
	}
}

// CreateGame creates a new session with a fresh collision-free code
// and no players; the first player to join it becomes admin. An
// unknown deck ID falls back to the default deck rather than failing
// the creation.
func (r *Registry) CreateGame(name string, deckID int) (model.Game, error) {
	d, err := r.catalog.Get(deckID)
	if errors.Is(err, deck.ErrUnknownDeck) {
		slog.Warn("unknown deck requested, using default", "deck", deckID)
		d = r.catalog.Default()
	} else if err != nil {
		return model.Game{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.newCodeLocked()
	if err != nil {
		return model.Game{}, err
	}
	g := model.Game{Code: code, Name: name, DeckID: d.ID}
	r.sessions[code] = newSession(g, d, func() {
		r.Remove(code)
	})
	slog.Info("game created", "game", code, "name", name, "deck", d.ID)
	return g, nil
}

// Session resolves a game code to its live session. Codes are
// case-insensitive.
func (r *Registry) Session(code string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[strings.ToLower(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrGameNotFound, code)
	}
	return s, nil
}

// Remove drops a session from the registry. Removing a code that is
// already gone is a no-op.
func (r *Registry) Remove(code string) {
	code = strings.ToLower(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[code]; ok {
		delete(r.sessions, code)
		slog.Info("game removed", "game", code)
	}
}

// newCodeLocked generates a random code not currently in use.
func (r *Registry) newCodeLocked() (string, error) {
	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		code := make([]byte, codeLen)
		for i := range code {
			code[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
		}
		if _, taken := r.sessions[string(code)]; !taken {
			return string(code), nil
		}
	}
	return "", errors.New("failed to generate a unique game code")
}
