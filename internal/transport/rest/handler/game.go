package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/tristeng/planning-poker/internal/game"
)

const (
	maxGameNameLen   = 100
	maxPlayerNameLen = 50
)

// GameHandler handles game creation and joining.
type GameHandler struct {
	registry  *game.Registry
	publicURL string
}

// NewGameHandler creates a new game handler. publicURL is the base the
// QR join links point at.
func NewGameHandler(registry *game.Registry, publicURL string) *GameHandler {
	return &GameHandler{registry: registry, publicURL: publicURL}
}

// CreateGameRequest is the request body for creating a game.
type CreateGameRequest struct {
	Name   string `json:"name"`
	DeckID int    `json:"deckId"`
}

// Create handles POST /api/game.
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || len(req.Name) > maxGameNameLen {
		writeError(w, http.StatusBadRequest, "game name must be 1-100 characters")
		return
	}

	g, err := h.registry.CreateGame(req.Name, req.DeckID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// JoinGameRequest is the request body for joining a game. ID is set
// when a returning player reclaims a previously issued identity.
type JoinGameRequest struct {
	ID   *uuid.UUID `json:"id,omitempty"`
	Name string     `json:"name"`
}

// Join handles POST /api/join/{code}.
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req JoinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || len(req.Name) > maxPlayerNameLen {
		writeError(w, http.StatusBadRequest, "player name must be 1-50 characters")
		return
	}

	sess, err := h.registry.Session(code)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no game found with code %q", code))
		return
	}

	id := uuid.Nil
	if req.ID != nil {
		id = *req.ID
	}
	// the session may have emptied and been removed between the
	// lookup above and here; Join reports that as a missing game
	player, err := sess.Join(id, req.Name)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no game found with code %q", code))
		return
	}
	writeJSON(w, http.StatusOK, player)
}

// QR handles GET /api/game/{code}/qr and renders the game's join link
// as a PNG QR code for sharing a room with the real-life one.
func (h *GameHandler) QR(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	sess, err := h.registry.Session(code)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no game found with code %q", code))
		return
	}

	size := 256
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 || n > 1024 {
			writeError(w, http.StatusBadRequest, "size must be between 64 and 1024")
			return
		}
		size = n
	}

	joinURL := fmt.Sprintf("%s/join/%s", h.publicURL, sess.Game().Code)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
