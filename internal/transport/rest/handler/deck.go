package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tristeng/planning-poker/internal/deck"
)

// DeckHandler serves the deck catalog.
type DeckHandler struct {
	catalog *deck.Catalog
}

// NewDeckHandler creates a new deck handler.
func NewDeckHandler(catalog *deck.Catalog) *DeckHandler {
	return &DeckHandler{catalog: catalog}
}

// List handles GET /api/decks.
func (h *DeckHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.List())
}

// Get handles GET /api/decks/{id}.
func (h *DeckHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deck ID")
		return
	}

	d, err := h.catalog.Get(id)
	if errors.Is(err, deck.ErrUnknownDeck) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no deck exists with ID %d", id))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}
