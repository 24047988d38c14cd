// Package ws is the websocket transport: it negotiates connections,
// feeds inbound action messages into the game engine and writes the
// engine's snapshots back out.
package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/tristeng/planning-poker/internal/game"
	"github.com/tristeng/planning-poker/internal/model"
)

// Close codes sent when a connection addresses a game or player that
// does not exist, so clients can tell the two apart.
const (
	closeUnknownGame   = 4000
	closeUnknownPlayer = 4001
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // cross-origin policy is enforced by the frontend deployment
	},
}

// Handler upgrades game connections and runs their read loop.
type Handler struct {
	registry *game.Registry
}

// NewHandler creates a websocket handler backed by registry.
func NewHandler(registry *game.Registry) *Handler {
	return &Handler{registry: registry}
}

// ServeWS handles GET /api/ws/{playerId}/{code}. The player must have
// joined the game via the REST endpoint first; the connection is then
// attached to that identity, which also serves reconnects.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]

	playerID, err := uuid.Parse(vars["playerId"])
	if err != nil {
		http.Error(w, "invalid player ID", http.StatusBadRequest)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	// The session checks happen after the upgrade so the client gets a
	// close code and reason it can surface, not a failed handshake.
	sess, err := h.registry.Session(code)
	if err != nil {
		closeWith(wsConn, closeUnknownGame, fmt.Sprintf("no game with code %q exists", code))
		return
	}

	client := newClient(wsConn)
	if err := sess.Attach(playerID, client); err != nil {
		closeWith(wsConn, closeUnknownPlayer, fmt.Sprintf("player %s not found in game %q", playerID, code))
		return
	}
	go client.writePump()

	h.readPump(wsConn, client, sess, playerID)
}

// readPump consumes action messages until the connection dies or the
// player leaves. A transport-level failure detaches the player but
// keeps their seat for a reconnect; an explicit leave removes them.
func (h *Handler) readPump(wsConn *websocket.Conn, client *Client, sess *game.Session, playerID uuid.UUID) {
	left := false
	defer func() {
		if !left {
			sess.Detach(playerID, client)
		}
		client.close()
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "game", sess.Game().Code, "player", playerID, "error", err)
			}
			return
		}

		var msg model.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// don't kill the connection on garbage, just log and move on
			slog.Warn("ignoring malformed message", "game", sess.Game().Code, "player", playerID, "error", err)
			continue
		}

		if msg.Type == model.MsgLeave {
			left = true
			if err := sess.Leave(playerID); err != nil {
				slog.Warn("leave failed", "game", sess.Game().Code, "player", playerID, "error", err)
			}
			return
		}

		if err := h.dispatch(sess, playerID, msg); err != nil {
			slog.Info("action rejected", "game", sess.Game().Code, "player", playerID, "type", msg.Type, "error", err)
			sendError(client, err)
		}
	}
}

// dispatch maps one inbound message to its engine operation.
func (h *Handler) dispatch(sess *game.Session, playerID uuid.UUID, msg model.Message) error {
	switch msg.Type {
	case model.MsgVote:
		var p model.VotePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid vote payload: %w", err)
		}
		return sess.CastVote(playerID, p.Label)

	case model.MsgStartRound:
		var p model.StartRoundPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return fmt.Errorf("invalid start_round payload: %w", err)
			}
		}
		return sess.StartRound(playerID, p.TicketURL)

	case model.MsgReveal:
		return sess.Reveal(playerID)

	case model.MsgObserve:
		return sess.ToggleObserver(playerID)

	case model.MsgSync:
		return sess.Sync(playerID)

	default:
		return fmt.Errorf("unsupported message type %q", msg.Type)
	}
}

// sendError reports a rejected action to the offending client only.
func sendError(client *Client, actionErr error) {
	payload, err := json.Marshal(model.ErrorPayload{Message: actionErr.Error()})
	if err != nil {
		return
	}
	data, err := json.Marshal(model.Message{Type: model.MsgError, Payload: payload})
	if err != nil {
		return
	}
	if err := client.Send(data); err != nil {
		slog.Warn("failed to deliver error message", "error", err)
	}
}

func closeWith(wsConn *websocket.Conn, code int, reason string) {
	wsConn.SetWriteDeadline(time.Now().Add(writeWait))
	wsConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	wsConn.Close()
}
