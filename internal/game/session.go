// Package game implements the planning poker engine: the registry of
// live game sessions, the per-session round state machine and the
// fan-out of state snapshots to connected clients.
package game

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tristeng/planning-poker/internal/model"
)

// playerEntry is the per-player state held by a session. A nil conn
// means the player is currently disconnected; their vote and admin
// status survive until they either reconnect or explicitly leave.
type playerEntry struct {
	player    model.Player
	conn      Conn
	vote      *model.Card
	observing bool
	joined    int // join sequence, drives admin succession order
}

// Session is one isolated planning poker room. All mutating operations
// take the session mutex, so operations on the same game form a total
// order while independent games proceed in parallel. Broadcasts are
// serialized inside the critical section of the mutation that caused
// them, which keeps the snapshot order identical for every client.
type Session struct {
	mu      sync.Mutex
	game    model.Game
	deck    model.Deck
	state   model.RoundState
	ticket  string
	adminID uuid.UUID
	players map[uuid.UUID]*playerEntry
	joinSeq int
	created time.Time

	// closed is set when the last player leaves: the registry has
	// dropped the session and a late join must not resurrect it.
	closed bool

	// onEmpty runs inside the critical section when the last player
	// leaves; the registry uses it to drop the session.
	onEmpty func()
}

func newSession(g model.Game, d model.Deck, onEmpty func()) *Session {
	return &Session{
		game:    g,
		deck:    d,
		state:   model.RoundInit,
		players: make(map[uuid.UUID]*playerEntry),
		created: time.Now(),
		onEmpty: onEmpty,
	}
}

// Game returns the immutable game description.
func (s *Session) Game() model.Game {
	return s.game
}

// Deck returns the deck this game estimates with.
func (s *Session) Deck() model.Deck {
	return s.deck
}

// Join adds a player to the session, or reclaims an existing identity
// when id matches a present player (reconnect). The first player to
// join becomes the game admin. Joining never touches the round state
// or anyone's votes. A join that races the last player's leave fails
// with ErrGameNotFound: the session is already gone from the registry.
func (s *Session) Join(id uuid.UUID, name string) (model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.Player{}, ErrGameNotFound
	}

	if id != uuid.Nil {
		if p, ok := s.players[id]; ok {
			slog.Info("player rejoined", "game", s.game.Code, "player", id)
			return p.player, nil
		}
	} else {
		id = uuid.New()
	}

	player := model.Player{ID: id, Name: name}
	s.joinSeq++
	s.players[id] = &playerEntry{player: player, joined: s.joinSeq}
	if len(s.players) == 1 {
		// first joiner runs the game
		s.adminID = id
		slog.Info("player registered as admin", "game", s.game.Code, "player", id)
	}
	slog.Info("player joined", "game", s.game.Code, "player", id, "name", name)
	s.broadcastLocked()
	return player, nil
}

// Attach binds a live connection to a player and pushes the current
// state to the whole room. Replaces any previous connection for the
// same player.
func (s *Session) Attach(playerID uuid.UUID, conn Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	p.conn = conn
	slog.Info("player connected", "game", s.game.Code, "player", playerID)
	s.broadcastLocked()
	return nil
}

// Detach drops a player's connection without forfeiting their vote,
// observer flag or admin status: a network interruption is not a
// leave. Only the connection that registered itself is cleared -
// a stale read loop cleaning up after a reconnect must not silence
// the replacement connection. The session stays alive for reconnects.
func (s *Session) Detach(playerID uuid.UUID, conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok || p.conn == nil || p.conn != conn {
		return
	}
	p.conn = nil
	slog.Info("player disconnected", "game", s.game.Code, "player", playerID)
	s.broadcastLocked()
}

// Leave removes a player from the game for good. When the admin
// leaves, the earliest-joined remaining player takes over; when the
// last player leaves, the session is destroyed.
func (s *Session) Leave(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[playerID]; !ok {
		return ErrUnknownPlayer
	}
	delete(s.players, playerID)
	slog.Info("player left", "game", s.game.Code, "player", playerID)

	if len(s.players) == 0 {
		s.adminID = uuid.Nil
		s.closed = true
		if s.onEmpty != nil {
			s.onEmpty()
		}
		return nil
	}
	if playerID == s.adminID {
		s.adminID = s.successorLocked()
		slog.Info("admin succession", "game", s.game.Code, "admin", s.adminID)
	}
	s.broadcastLocked()
	return nil
}

// successorLocked picks the earliest-joined remaining player.
func (s *Session) successorLocked() uuid.UUID {
	var next uuid.UUID
	lowest := s.joinSeq + 1
	for id, p := range s.players {
		if p.joined < lowest {
			lowest = p.joined
			next = id
		}
	}
	return next
}

// StartRound opens a voting round: every vote is cleared and the state
// moves to voting. Admin only; legal from the initial state or after a
// reveal, not while a round is already open.
func (s *Session) StartRound(playerID uuid.UUID, ticketURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdminLocked(playerID); err != nil {
		return err
	}
	if s.state == model.RoundVoting {
		return ErrInvalidState
	}
	for _, p := range s.players {
		p.vote = nil
	}
	s.ticket = ticketURL
	s.state = model.RoundVoting
	slog.Info("round started", "game", s.game.Code, "ticket", ticketURL)
	s.broadcastLocked()
	return nil
}

// Reveal closes the round and makes every vote visible. Admin only;
// legal only while voting. Players who have not voted are revealed as
// such - the admin decides when enough votes are in.
func (s *Session) Reveal(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdminLocked(playerID); err != nil {
		return err
	}
	if s.state != model.RoundVoting {
		return ErrInvalidState
	}
	s.state = model.RoundRevealed
	slog.Info("votes revealed", "game", s.game.Code)
	s.broadcastLocked()
	return nil
}

// CastVote records a player's vote for the open round. The card must
// belong to the game's deck; a player may change their vote any number
// of times until the reveal, last write wins. The room only ever
// learns that the player voted, never the value, until the reveal.
func (s *Session) CastVote(playerID uuid.UUID, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.RoundVoting {
		return ErrInvalidState
	}
	p, ok := s.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	card, ok := s.deck.Card(label)
	if !ok {
		return ErrUnknownCard
	}
	p.vote = &card
	slog.Info("vote cast", "game", s.game.Code, "player", playerID)
	s.broadcastLocked()
	return nil
}

// ToggleObserver flips a player in or out of observer mode. Observers
// are flagged in snapshots so clients can exclude them from "waiting
// on" displays.
func (s *Session) ToggleObserver(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	p.observing = !p.observing
	slog.Info("observer toggled", "game", s.game.Code, "player", playerID, "observing", p.observing)
	s.broadcastLocked()
	return nil
}

// Sync pushes the current state to one player's connection only, for
// clients that suspect they are out of date.
func (s *Session) Sync(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if p.conn == nil {
		return nil
	}
	data, err := encodeState(s.snapshotLocked())
	if err != nil {
		return err
	}
	if err := p.conn.Send(data); err != nil {
		p.conn = nil
	}
	return nil
}

// Snapshot returns a consistent view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) requireAdminLocked(playerID uuid.UUID) error {
	if _, ok := s.players[playerID]; !ok {
		return ErrUnknownPlayer
	}
	if playerID != s.adminID {
		return ErrNotAuthorized
	}
	return nil
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Game:      s.game,
		State:     s.state,
		Deck:      s.deck.Summary(),
		AdminID:   s.adminID,
		TicketURL: s.ticket,
		Players:   make([]PlayerState, 0, len(s.players)),
	}
	revealed := s.state == model.RoundRevealed
	var votes []model.Card
	for id, p := range s.players {
		ps := PlayerState{
			Player:    p.player,
			Connected: p.conn != nil,
			Admin:     id == s.adminID,
			Observing: p.observing,
			HasVoted:  p.vote != nil,
		}
		if revealed && p.vote != nil {
			card := *p.vote
			ps.Card = &card
			votes = append(votes, card)
		}
		snap.Players = append(snap.Players, ps)
	}
	sort.Slice(snap.Players, func(i, j int) bool {
		return s.players[snap.Players[i].Player.ID].joined < s.players[snap.Players[j].Player.ID].joined
	})
	if revealed {
		snap.Aggregate = aggregate(votes)
	}
	return snap
}

// broadcastLocked pushes the current snapshot to every connection.
// Delivery is best effort: a failed send drops that connection and
// never blocks the others or the mutating caller.
func (s *Session) broadcastLocked() {
	data, err := encodeState(s.snapshotLocked())
	if err != nil {
		slog.Error("encoding snapshot failed", "game", s.game.Code, "error", err)
		return
	}
	for id, p := range s.players {
		if p.conn == nil {
			continue
		}
		if err := p.conn.Send(data); err != nil {
			slog.Warn("send failed, dropping connection", "game", s.game.Code, "player", id, "error", err)
			p.conn = nil
		}
	}
}

func encodeState(snap Snapshot) ([]byte, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	return json.Marshal(model.Message{Type: model.MsgState, Payload: payload})
}
