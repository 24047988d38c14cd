package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tristeng/planning-poker/internal/deck"
	"github.com/tristeng/planning-poker/internal/game"
	"github.com/tristeng/planning-poker/internal/model"
)

func newTestServer(t *testing.T) (*httptest.Server, *game.Registry) {
	t.Helper()
	catalog := deck.Builtin()
	registry := game.NewRegistry(catalog)
	router := NewRouter(&Container{
		Registry:    registry,
		Catalog:     catalog,
		PublicURL:   "http://poker.test",
		CORSOrigins: []string{"*"},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, registry
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func createGame(t *testing.T, srv *httptest.Server, name string, deckID int) model.Game {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/game", map[string]any{"name": name, "deckId": deckID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create game: expected 201, got %d", resp.StatusCode)
	}
	return decodeBody[model.Game](t, resp)
}

func joinGame(t *testing.T, srv *httptest.Server, code, name string) model.Player {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/join/"+code, map[string]any{"name": name})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join game: expected 200, got %d", resp.StatusCode)
	}
	return decodeBody[model.Player](t, resp)
}

func dialWS(t *testing.T, srv *httptest.Server, playerID uuid.UUID, code string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/api/ws/%s/%s", playerID, code)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) model.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var msg model.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	return msg
}

func readState(t *testing.T, conn *websocket.Conn) game.Snapshot {
	t.Helper()
	msg := readMessage(t, conn)
	if msg.Type != model.MsgState {
		t.Fatalf("expected a state message, got %q", msg.Type)
	}
	var snap game.Snapshot
	if err := json.Unmarshal(msg.Payload, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	return snap
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType model.MessageType, payload any) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		raw = data
	}
	if err := conn.WriteJSON(model.Message{Type: msgType, Payload: raw}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func playerState(t *testing.T, snap game.Snapshot, id uuid.UUID) game.PlayerState {
	t.Helper()
	for _, ps := range snap.Players {
		if ps.Player.ID == id {
			return ps
		}
	}
	t.Fatalf("player %s not in snapshot", id)
	return game.PlayerState{}
}

// TestGameLifecycle plays a full game over the wire: create, join,
// connect, vote, reveal, leave, with admin succession and session
// cleanup along the way.
func TestGameLifecycle(t *testing.T) {
	srv, registry := newTestServer(t)

	g := createGame(t, srv, "release planning", 1)
	alice := joinGame(t, srv, g.Code, "alice")
	c1 := dialWS(t, srv, alice.ID, g.Code)

	snap := readState(t, c1)
	if snap.State != model.RoundInit {
		t.Fatalf("expected state init, got %q", snap.State)
	}
	if snap.AdminID != alice.ID {
		t.Fatal("first joiner must be admin")
	}

	bob := joinGame(t, srv, g.Code, "bob")
	readState(t, c1) // join broadcast
	c2 := dialWS(t, srv, bob.ID, g.Code)
	readState(t, c2) // attach broadcast
	readState(t, c1)

	// admin opens the round
	sendMessage(t, c1, model.MsgStartRound, model.StartRoundPayload{TicketURL: "https://tracker.example/story/7"})
	snap = readState(t, c2)
	if snap.State != model.RoundVoting {
		t.Fatalf("expected state voting, got %q", snap.State)
	}
	if snap.TicketURL != "https://tracker.example/story/7" {
		t.Errorf("ticket URL missing from snapshot: %q", snap.TicketURL)
	}
	if ps := playerState(t, snap, alice.ID); ps.HasVoted {
		t.Error("nobody has voted yet")
	}
	readState(t, c1)

	// alice votes; the room sees that she voted but not what
	sendMessage(t, c1, model.MsgVote, model.VotePayload{Label: "3"})
	snap = readState(t, c2)
	ps := playerState(t, snap, alice.ID)
	if !ps.HasVoted {
		t.Error("vote not visible as cast")
	}
	if ps.Card != nil {
		t.Fatal("vote value leaked before reveal")
	}
	readState(t, c1)

	// bob may not reveal; the rejection goes to bob alone
	sendMessage(t, c2, model.MsgReveal, nil)
	if msg := readMessage(t, c2); msg.Type != model.MsgError {
		t.Fatalf("expected an error message, got %q", msg.Type)
	}

	// admin reveals
	sendMessage(t, c1, model.MsgReveal, nil)
	snap = readState(t, c2)
	if snap.State != model.RoundRevealed {
		t.Fatalf("expected state revealed, got %q", snap.State)
	}
	ps = playerState(t, snap, alice.ID)
	if ps.Card == nil || ps.Card.Value != 3.0 {
		t.Fatalf("expected alice's card 3.0 after reveal, got %+v", ps.Card)
	}
	if ps := playerState(t, snap, bob.ID); ps.HasVoted || ps.Card != nil {
		t.Errorf("bob never voted: %+v", ps)
	}
	if snap.Aggregate == nil || snap.Aggregate.Votes != 1 || snap.Aggregate.Mean != 3.0 {
		t.Errorf("unexpected aggregate: %+v", snap.Aggregate)
	}
	readState(t, c1)

	// admin leaves, bob takes over
	sendMessage(t, c1, model.MsgLeave, nil)
	snap = readState(t, c2)
	if len(snap.Players) != 1 {
		t.Fatalf("expected 1 remaining player, got %d", len(snap.Players))
	}
	if snap.AdminID != bob.ID {
		t.Error("admin did not pass to the remaining player")
	}

	// last player leaves, the game is gone
	sendMessage(t, c2, model.MsgLeave, nil)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := registry.Session(g.Code); err != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session not removed after last player left")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp := postJSON(t, srv.URL+"/api/join/"+g.Code, map[string]any{"name": "carol"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 joining a removed game, got %d", resp.StatusCode)
	}
}

func TestWSUnknownGameCloseCode(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/api/ws/%s/zzz9", uuid.New())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, 4000) {
		t.Errorf("expected close code 4000 for an unknown game, got %v", err)
	}
}

func TestWSUnknownPlayerCloseCode(t *testing.T) {
	srv, _ := newTestServer(t)
	g := createGame(t, srv, "sprint", 1)

	conn := dialWS(t, srv, uuid.New(), g.Code)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, 4001) {
		t.Errorf("expected close code 4001 for an unknown player, got %v", err)
	}
}

func TestCreateGameValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/game", map[string]any{"name": "", "deckId": 1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for an empty name, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/game", map[string]any{"name": strings.Repeat("x", 101), "deckId": 1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for an oversized name, got %d", resp.StatusCode)
	}
}

func TestCreateGameUnknownDeckFallsBack(t *testing.T) {
	srv, _ := newTestServer(t)
	g := createGame(t, srv, "sprint", 999)
	if g.DeckID != 1 {
		t.Errorf("expected fallback to the default deck, got %d", g.DeckID)
	}
}

func TestRejoinKeepsIdentity(t *testing.T) {
	srv, _ := newTestServer(t)
	g := createGame(t, srv, "sprint", 1)
	alice := joinGame(t, srv, g.Code, "alice")

	resp := postJSON(t, srv.URL+"/api/join/"+g.Code, map[string]any{"id": alice.ID, "name": "alice"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rejoin: expected 200, got %d", resp.StatusCode)
	}
	again := decodeBody[model.Player](t, resp)
	if again.ID != alice.ID {
		t.Errorf("rejoin changed identity: %s != %s", again.ID, alice.ID)
	}
}

func TestDeckEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/decks")
	if err != nil {
		t.Fatal(err)
	}
	decks := decodeBody[[]model.DeckSummary](t, resp)
	if len(decks) != 2 {
		t.Errorf("expected 2 decks, got %d", len(decks))
	}

	resp, err = http.Get(srv.URL + "/api/decks/1")
	if err != nil {
		t.Fatal(err)
	}
	d := decodeBody[model.Deck](t, resp)
	if d.Name != "Fibonacci" || len(d.Cards) != 9 {
		t.Errorf("unexpected deck 1: %+v", d)
	}

	resp, err = http.Get(srv.URL + "/api/decks/999")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for deck 999, got %d", resp.StatusCode)
	}
}

func TestQRCode(t *testing.T) {
	srv, _ := newTestServer(t)
	g := createGame(t, srv, "sprint", 1)

	resp, err := http.Get(srv.URL + "/api/game/" + g.Code + "/qr")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}

	resp, err = http.Get(srv.URL + "/api/game/zzz9/qr")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown game, got %d", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	catalog := deck.Builtin()
	router := NewRouter(&Container{
		Registry:    game.NewRegistry(catalog),
		Catalog:     catalog,
		PublicURL:   "http://poker.test",
		CORSOrigins: []string{"http://poker.test"},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	preflight := func(origin string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/decks", nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "GET")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp
	}

	resp := preflight("http://poker.test")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204 for an allowed origin, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://poker.test" {
		t.Errorf("expected the allowed origin to be echoed, got %q", got)
	}

	resp = preflight("http://evil.test")
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin must not be granted access, got %q", got)
	}
	if resp.StatusCode == http.StatusNoContent {
		t.Errorf("disallowed origin must not get a preflight grant, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
