package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tristeng/planning-poker/internal/deck"
	"github.com/tristeng/planning-poker/internal/game"
	"github.com/tristeng/planning-poker/internal/transport/rest/handler"
	"github.com/tristeng/planning-poker/internal/transport/ws"
)

// gameCode is the route pattern for shareable game codes.
const gameCode = "{code:[a-zA-Z0-9]{4,10}}"

// Container holds all dependencies for the router.
type Container struct {
	Registry    *game.Registry
	Catalog     *deck.Catalog
	PublicURL   string
	CORSOrigins []string
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	gameHandler := handler.NewGameHandler(c.Registry, c.PublicURL)
	deckHandler := handler.NewDeckHandler(c.Catalog)
	wsHandler := ws.NewHandler(c.Registry)

	r.Use(corsMiddleware(c.CORSOrigins))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/game", gameHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/game/"+gameCode+"/qr", gameHandler.QR).Methods("GET")
	api.HandleFunc("/join/"+gameCode, gameHandler.Join).Methods("POST", "OPTIONS")
	api.HandleFunc("/decks", deckHandler.List).Methods("GET")
	api.HandleFunc("/decks/{id:[0-9]+}", deckHandler.Get).Methods("GET")
	api.HandleFunc("/ws/{playerId}/"+gameCode, wsHandler.ServeWS).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}

// corsMiddleware allows the configured frontend origins to call the
// API from the browser.
func corsMiddleware(origins []string) mux.MiddlewareFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowed["*"] || allowed[strings.TrimRight(origin, "/")]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
